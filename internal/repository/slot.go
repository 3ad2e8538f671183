package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/careslot/scheduling/internal/database"
	"github.com/careslot/scheduling/internal/models"
	"github.com/careslot/scheduling/internal/schedule"
)

// SlotRepository handles database operations for slots
type SlotRepository struct {
	db *database.DB
}

// NewSlotRepository creates a new slot repository
func NewSlotRepository(db *database.DB) *SlotRepository {
	return &SlotRepository{db: db}
}

const slotColumns = `
	id, availability_id, start_at, end_at, slot_date, status, appointment_id,
	created_at, updated_at
`

// BatchInsert writes slots with duplicate-skip semantics. Rows colliding on
// (availability_id, start_at, slot_date) are left untouched; the return
// value counts only rows actually written.
func (r *SlotRepository) BatchInsert(ctx context.Context, slots []models.Slot) (int, error) {
	if len(slots) == 0 {
		return 0, nil
	}

	now := time.Now()
	for i := range slots {
		slots[i].CreatedAt = now
		slots[i].UpdatedAt = now
	}

	query := `
		INSERT INTO slots (` + slotColumns + `)
		VALUES (
			:id, :availability_id, :start_at, :end_at, :slot_date, :status, :appointment_id,
			:created_at, :updated_at
		)
		ON CONFLICT (availability_id, start_at, slot_date) DO NOTHING
	`
	result, err := r.db.NamedExecContext(ctx, query, slots)
	if err != nil {
		return 0, err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(rows), nil
}

// Insert writes a single slot, returning schedule.ErrDuplicateSlot on a key
// collision
func (r *SlotRepository) Insert(ctx context.Context, slot models.Slot) error {
	now := time.Now()
	slot.CreatedAt = now
	slot.UpdatedAt = now

	query := `
		INSERT INTO slots (` + slotColumns + `)
		VALUES (
			:id, :availability_id, :start_at, :end_at, :slot_date, :status, :appointment_id,
			:created_at, :updated_at
		)
	`
	_, err := r.db.NamedExecContext(ctx, query, slot)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return schedule.ErrDuplicateSlot
		}
		return err
	}
	return nil
}

// GetByID retrieves a slot by id
func (r *SlotRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Slot, error) {
	var slot models.Slot
	query := `SELECT ` + slotColumns + ` FROM slots WHERE id = $1`
	if err := r.db.GetContext(ctx, &slot, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &schedule.NotFoundError{Kind: "slot", ID: id.String()}
		}
		return nil, err
	}
	return &slot, nil
}

// ListByAvailability returns an availability's slots ordered by start
// instant
func (r *SlotRepository) ListByAvailability(ctx context.Context, availabilityID uuid.UUID) ([]models.Slot, error) {
	query := `SELECT ` + slotColumns + ` FROM slots WHERE availability_id = $1 ORDER BY start_at`
	var out []models.Slot
	if err := r.db.SelectContext(ctx, &out, query, availabilityID); err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteAvailableFrom removes still-available slots starting at or after
// the given instant
func (r *SlotRepository) DeleteAvailableFrom(ctx context.Context, availabilityID uuid.UUID, from time.Time) (int64, error) {
	query := `
		DELETE FROM slots
		WHERE availability_id = $1 AND status = 'available' AND start_at >= $2
	`
	result, err := r.db.ExecContext(ctx, query, availabilityID, from)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// UpdateStatus flips a slot's status, binding or clearing its appointment
func (r *SlotRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status models.SlotStatus, appointmentID *uuid.UUID) error {
	query := `UPDATE slots SET status = $1, appointment_id = $2, updated_at = $3 WHERE id = $4`
	result, err := r.db.ExecContext(ctx, query, status, appointmentID, time.Now(), id)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return &schedule.NotFoundError{Kind: "slot", ID: id.String()}
	}
	return nil
}
