package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"github.com/careslot/scheduling/internal/logger"
	"github.com/careslot/scheduling/internal/models"
)

// Publisher emits scheduling lifecycle events over NATS
type Publisher struct {
	nc     *nats.Conn
	logger *logger.Logger
}

// NewPublisher connects to NATS
func NewPublisher(natsURL string, log *logger.Logger) (*Publisher, error) {
	nc, err := nats.Connect(natsURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	log.Info("Connected to NATS", map[string]interface{}{
		"url": natsURL,
	})

	return &Publisher{nc: nc, logger: log}, nil
}

// Close drains the connection
func (p *Publisher) Close() {
	if p.nc != nil {
		p.nc.Close()
	}
}

// AvailabilityEvent is the payload published for availability lifecycle
// transitions
type AvailabilityEvent struct {
	Type         string               `json:"type"`
	Availability *models.Availability `json:"availability,omitempty"`
	Timestamp    time.Time            `json:"timestamp"`
	Message      string               `json:"message,omitempty"`
}

func (p *Publisher) publishAvailability(subject, eventType, message string, a *models.Availability) error {
	event := &AvailabilityEvent{
		Type:         eventType,
		Availability: a,
		Timestamp:    time.Now(),
		Message:      message,
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	if err := p.nc.Publish(subject, data); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	p.logger.Debug("Published event", map[string]interface{}{
		"type":            eventType,
		"availability_id": a.ID.String(),
	})
	return nil
}

// AvailabilityCreated publishes availability.created
func (p *Publisher) AvailabilityCreated(a *models.Availability) error {
	return p.publishAvailability("careslot.availability.created", "availability.created", "", a)
}

// AvailabilityApproved publishes availability.approved
func (p *Publisher) AvailabilityApproved(a *models.Availability) error {
	return p.publishAvailability("careslot.availability.approved", "availability.approved", "Availability approved", a)
}

// AvailabilityRejected publishes availability.rejected
func (p *Publisher) AvailabilityRejected(a *models.Availability) error {
	return p.publishAvailability("careslot.availability.rejected", "availability.rejected", "Availability rejected", a)
}

// AvailabilityDeactivated publishes availability.deactivated
func (p *Publisher) AvailabilityDeactivated(a *models.Availability) error {
	return p.publishAvailability("careslot.availability.deactivated", "availability.deactivated", "Availability deactivated", a)
}

// AvailabilityReactivated publishes availability.reactivated
func (p *Publisher) AvailabilityReactivated(a *models.Availability) error {
	return p.publishAvailability("careslot.availability.reactivated", "availability.reactivated", "Availability reactivated", a)
}

// AvailabilityExpired publishes availability.expired
func (p *Publisher) AvailabilityExpired(a *models.Availability) error {
	return p.publishAvailability("careslot.availability.expired", "availability.expired", "Availability has expired", a)
}

// AvailabilityDeleted publishes availability.deleted
func (p *Publisher) AvailabilityDeleted(id uuid.UUID) error {
	event := map[string]interface{}{
		"type":            "availability.deleted",
		"availability_id": id.String(),
		"timestamp":       time.Now(),
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	if err := p.nc.Publish("careslot.availability.deleted", data); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	p.logger.Debug("Published event", map[string]interface{}{
		"type":            "availability.deleted",
		"availability_id": id.String(),
	})
	return nil
}

// SlotsMaterialized publishes slots.materialized with the created count
func (p *Publisher) SlotsMaterialized(availabilityID uuid.UUID, created int) error {
	event := map[string]interface{}{
		"type":            "slots.materialized",
		"availability_id": availabilityID.String(),
		"created":         created,
		"timestamp":       time.Now(),
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	if err := p.nc.Publish("careslot.slots.materialized", data); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	p.logger.Debug("Published event", map[string]interface{}{
		"type":            "slots.materialized",
		"availability_id": availabilityID.String(),
		"created":         created,
	})
	return nil
}
