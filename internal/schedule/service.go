package schedule

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/careslot/scheduling/internal/calendar"
	"github.com/careslot/scheduling/internal/logger"
	"github.com/careslot/scheduling/internal/models"
)

// EventPublisher receives lifecycle notifications. Publishing is
// best-effort; the service logs failures and carries on.
type EventPublisher interface {
	AvailabilityCreated(a *models.Availability) error
	AvailabilityApproved(a *models.Availability) error
	AvailabilityRejected(a *models.Availability) error
	AvailabilityDeactivated(a *models.Availability) error
	AvailabilityReactivated(a *models.Availability) error
	AvailabilityExpired(a *models.Availability) error
	AvailabilityDeleted(id uuid.UUID) error
	SlotsMaterialized(availabilityID uuid.UUID, created int) error
}

// Service drives the availability lifecycle around the engine: creation
// with conflict checking, the approval workflow, deactivation and
// reactivation, deletion, the expiry sweep, and single-slot booking flips.
type Service struct {
	engine         *Engine
	availabilities AvailabilityStore
	slots          SlotStore
	profiles       ProfileStore
	events         EventPublisher
	clock          calendar.Clock
	logger         *logger.Logger
}

// NewService wires the lifecycle service
func NewService(engine *Engine, availabilities AvailabilityStore, slots SlotStore, profiles ProfileStore, events EventPublisher, clock calendar.Clock, log *logger.Logger) *Service {
	if clock == nil {
		clock = calendar.System()
	}
	return &Service{
		engine:         engine,
		availabilities: availabilities,
		slots:          slots,
		profiles:       profiles,
		events:         events,
		clock:          clock,
		logger:         log,
	}
}

// Engine exposes the underlying engine
func (s *Service) Engine() *Engine { return s.engine }

// Create validates the proposed availability, proves it conflict-free
// against the provider's other active availabilities, and persists it in
// pending status. Wall-clock times are normalized to 24-hour form before
// storage.
func (s *Service) Create(ctx context.Context, a *models.Availability) (*models.Availability, error) {
	if err := s.normalizeTimes(a); err != nil {
		return nil, err
	}
	if err := s.engine.EnsureNoConflict(ctx, a); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	a.Status = models.StatusPending
	a.Deactivated = false
	a.Expired = false
	a.Deleted = false
	a.CreatedAt = now
	a.UpdatedAt = now

	if err := s.availabilities.Create(ctx, a); err != nil {
		return nil, fmt.Errorf("failed to create availability: %w", err)
	}

	s.logger.Info("Availability created", map[string]interface{}{
		"availability_id": a.ID.String(),
		"provider_id":     a.ProviderID.String(),
		"kind":            string(a.Kind),
	})
	s.publish(func() error { return s.events.AvailabilityCreated(a) })

	return a, nil
}

// Get returns one availability
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*models.Availability, error) {
	return s.availabilities.GetByID(ctx, id)
}

// List filters availabilities by provider and status
func (s *Service) List(ctx context.Context, providerID *uuid.UUID, status *models.AvailabilityStatus) ([]models.Availability, error) {
	return s.availabilities.List(ctx, providerID, status)
}

// Approve moves a pending availability to approved and runs the initial
// materialization
func (s *Service) Approve(ctx context.Context, id uuid.UUID, approvedBy uuid.UUID) (*models.Availability, *Result, error) {
	a, err := s.availabilities.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if a.Status != models.StatusPending {
		return nil, nil, fmt.Errorf("availability %s is not pending approval (current status: %s)", id, a.Status)
	}

	now := s.clock.Now()
	a.Status = models.StatusApproved
	a.ApprovedBy = &approvedBy
	a.ApprovedAt = &now
	a.UpdatedAt = now
	if err := s.availabilities.Update(ctx, a); err != nil {
		return nil, nil, fmt.Errorf("failed to approve availability: %w", err)
	}

	s.logger.Info("Availability approved", map[string]interface{}{
		"availability_id": id.String(),
		"approved_by":     approvedBy.String(),
	})
	s.publish(func() error { return s.events.AvailabilityApproved(a) })

	result, err := s.engine.Materialize(ctx, id)
	if err != nil {
		return a, nil, err
	}
	s.publish(func() error { return s.events.SlotsMaterialized(id, result.Created) })

	return a, result, nil
}

// Reject terminally rejects an availability that has not already reached a
// terminal state. An approved availability may be rejected after the fact;
// its future still-available slots are purged, while booked slots stay for
// the appointment layer to resolve.
func (s *Service) Reject(ctx context.Context, id uuid.UUID, reason string) (*models.Availability, error) {
	a, err := s.availabilities.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if a.Status == models.StatusRejected || a.Deleted || a.Expired {
		return nil, fmt.Errorf("availability %s can no longer be rejected (current status: %s)", id, a.Status)
	}

	a.Status = models.StatusRejected
	a.RejectionReason = &reason
	a.UpdatedAt = s.clock.Now()
	if err := s.availabilities.Update(ctx, a); err != nil {
		return nil, fmt.Errorf("failed to reject availability: %w", err)
	}

	removed, err := s.slots.DeleteAvailableFrom(ctx, id, s.clock.Now())
	if err != nil {
		return nil, fmt.Errorf("failed to purge slots: %w", err)
	}

	s.logger.Info("Availability rejected", map[string]interface{}{
		"availability_id": id.String(),
		"reason":          reason,
		"slots_removed":   removed,
	})
	s.publish(func() error { return s.events.AvailabilityRejected(a) })

	return a, nil
}

// Deactivate suspends an approved availability and purges its future
// still-available slots; booked slots stay for the appointment layer to
// resolve
func (s *Service) Deactivate(ctx context.Context, id uuid.UUID) (*models.Availability, error) {
	a, err := s.availabilities.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if a.Deleted {
		return nil, fmt.Errorf("availability %s is deleted", id)
	}

	a.Deactivated = true
	a.UpdatedAt = s.clock.Now()
	if err := s.availabilities.Update(ctx, a); err != nil {
		return nil, fmt.Errorf("failed to deactivate availability: %w", err)
	}

	removed, err := s.slots.DeleteAvailableFrom(ctx, id, s.clock.Now())
	if err != nil {
		return nil, fmt.Errorf("failed to purge slots: %w", err)
	}

	s.logger.Info("Availability deactivated", map[string]interface{}{
		"availability_id": id.String(),
		"slots_removed":   removed,
	})
	s.publish(func() error { return s.events.AvailabilityDeactivated(a) })

	return a, nil
}

// Reactivate lifts a deactivation and re-runs initial materialization
func (s *Service) Reactivate(ctx context.Context, id uuid.UUID) (*models.Availability, *Result, error) {
	a, err := s.availabilities.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if !a.Deactivated {
		return nil, nil, fmt.Errorf("availability %s is not deactivated", id)
	}
	if a.Deleted || a.Expired {
		return nil, nil, fmt.Errorf("availability %s can no longer be reactivated", id)
	}

	a.Deactivated = false
	a.UpdatedAt = s.clock.Now()
	if err := s.availabilities.Update(ctx, a); err != nil {
		return nil, nil, fmt.Errorf("failed to reactivate availability: %w", err)
	}

	s.logger.Info("Availability reactivated", map[string]interface{}{
		"availability_id": id.String(),
	})
	s.publish(func() error { return s.events.AvailabilityReactivated(a) })

	result, err := s.engine.Materialize(ctx, id)
	if err != nil {
		return a, nil, err
	}
	s.publish(func() error { return s.events.SlotsMaterialized(id, result.Created) })

	return a, result, nil
}

// Delete terminally deletes an availability and purges its future
// still-available slots
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	a, err := s.availabilities.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if a.Deleted {
		return nil
	}

	a.Deleted = true
	a.UpdatedAt = s.clock.Now()
	if err := s.availabilities.Update(ctx, a); err != nil {
		return fmt.Errorf("failed to delete availability: %w", err)
	}

	removed, err := s.slots.DeleteAvailableFrom(ctx, id, s.clock.Now())
	if err != nil {
		return fmt.Errorf("failed to purge slots: %w", err)
	}

	s.logger.Info("Availability deleted", map[string]interface{}{
		"availability_id": id.String(),
		"slots_removed":   removed,
	})
	s.publish(func() error { return s.events.AvailabilityDeleted(id) })

	return nil
}

// ExpireDue marks every approved availability whose end date's local end
// time has passed as expired. Expiry is terminal: materialization halts and
// past slots stay untouched.
func (s *Service) ExpireDue(ctx context.Context) (int, error) {
	candidates, err := s.availabilities.ListExpiryCandidates(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list expiry candidates: %w", err)
	}

	now := s.clock.Now()
	expired := 0
	for i := range candidates {
		a := &candidates[i]
		profile, err := s.profiles.Get(ctx, a.ProviderID, a.LocationID)
		if err != nil {
			s.logger.Error("Skipping expiry check, profile lookup failed", map[string]interface{}{
				"availability_id": a.ID.String(),
				"error":           err.Error(),
			})
			continue
		}
		loc, err := profile.Location()
		if err != nil {
			continue
		}
		rule, err := newRule(a, loc)
		if err != nil {
			continue
		}
		_, to := rule.Bounds()
		if to == nil {
			continue
		}
		_, endAt := rule.InstantRangeOn(*to)
		if endAt.After(now) {
			continue
		}
		if err := s.availabilities.MarkExpired(ctx, a.ID); err != nil {
			s.logger.Error("Failed to mark availability expired", map[string]interface{}{
				"availability_id": a.ID.String(),
				"error":           err.Error(),
			})
			continue
		}
		expired++
		s.publish(func() error { return s.events.AvailabilityExpired(a) })
	}

	if expired > 0 {
		s.logger.Info("Expired availabilities", map[string]interface{}{"count": expired})
	}
	return expired, nil
}

// AdvanceDue runs the daily window advance over every eligible
// availability, logging and skipping per-availability failures
func (s *Service) AdvanceDue(ctx context.Context) (int, error) {
	due, err := s.availabilities.ListAdvanceable(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list advanceable availabilities: %w", err)
	}

	total := 0
	for i := range due {
		result, err := s.engine.Advance(ctx, due[i].ID)
		if err != nil {
			s.logger.Error("Window advance failed", map[string]interface{}{
				"availability_id": due[i].ID.String(),
				"error":           err.Error(),
			})
			continue
		}
		total += result.Created
	}
	return total, nil
}

// ListSlots returns the slots materialized for an availability
func (s *Service) ListSlots(ctx context.Context, availabilityID uuid.UUID) ([]models.Slot, error) {
	return s.slots.ListByAvailability(ctx, availabilityID)
}

// BookSlot flips exactly one available slot to booked, binding it to an
// appointment
func (s *Service) BookSlot(ctx context.Context, slotID, appointmentID uuid.UUID) (*models.Slot, error) {
	slot, err := s.slots.GetByID(ctx, slotID)
	if err != nil {
		return nil, err
	}
	if slot.Status != models.SlotAvailable {
		return nil, fmt.Errorf("slot %s is not available (current status: %s)", slotID, slot.Status)
	}
	if err := s.slots.UpdateStatus(ctx, slotID, models.SlotBooked, &appointmentID); err != nil {
		return nil, fmt.Errorf("failed to book slot: %w", err)
	}
	slot.Status = models.SlotBooked
	slot.AppointmentID = &appointmentID
	return slot, nil
}

// CancelSlot releases a booked slot back to available
func (s *Service) CancelSlot(ctx context.Context, slotID uuid.UUID) (*models.Slot, error) {
	slot, err := s.slots.GetByID(ctx, slotID)
	if err != nil {
		return nil, err
	}
	if slot.Status != models.SlotBooked {
		return nil, fmt.Errorf("slot %s is not booked (current status: %s)", slotID, slot.Status)
	}
	if err := s.slots.UpdateStatus(ctx, slotID, models.SlotAvailable, nil); err != nil {
		return nil, fmt.Errorf("failed to cancel slot booking: %w", err)
	}
	slot.Status = models.SlotAvailable
	slot.AppointmentID = nil
	return slot, nil
}

func (s *Service) normalizeTimes(a *models.Availability) error {
	start, err := calendar.ParseWallClock(a.StartTime)
	if err != nil {
		return &ValidationError{Field: "start_time", Message: err.Error()}
	}
	end, err := calendar.ParseWallClock(a.EndTime)
	if err != nil {
		return &ValidationError{Field: "end_time", Message: err.Error()}
	}
	a.StartTime = start.String()
	a.EndTime = end.String()
	return nil
}

func (s *Service) publish(fn func() error) {
	if s.events == nil {
		return
	}
	if err := fn(); err != nil {
		s.logger.Warn("Failed to publish event", map[string]interface{}{
			"error": err.Error(),
		})
	}
}
