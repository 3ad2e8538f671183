package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/careslot/scheduling/internal/database"
	"github.com/careslot/scheduling/internal/models"
	"github.com/careslot/scheduling/internal/schedule"
)

// AvailabilityRepository handles database operations for availabilities
type AvailabilityRepository struct {
	db *database.DB
}

// NewAvailabilityRepository creates a new availability repository
func NewAvailabilityRepository(db *database.DB) *AvailabilityRepository {
	return &AvailabilityRepository{db: db}
}

const availabilityColumns = `
	id, provider_id, location_id, kind, date, start_date, end_date, weekdays,
	start_time, end_time, status, deactivated, expired, deleted,
	rejection_reason, approved_by, approved_at, last_materialized_date,
	created_at, updated_at
`

// Create inserts a new availability
func (r *AvailabilityRepository) Create(ctx context.Context, a *models.Availability) error {
	query := `
		INSERT INTO availabilities (` + availabilityColumns + `)
		VALUES (
			:id, :provider_id, :location_id, :kind, :date, :start_date, :end_date, :weekdays,
			:start_time, :end_time, :status, :deactivated, :expired, :deleted,
			:rejection_reason, :approved_by, :approved_at, :last_materialized_date,
			:created_at, :updated_at
		)
	`
	_, err := r.db.NamedExecContext(ctx, query, a)
	return err
}

// GetByID retrieves an availability by id
func (r *AvailabilityRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Availability, error) {
	var a models.Availability
	query := `SELECT ` + availabilityColumns + ` FROM availabilities WHERE id = $1`
	if err := r.db.GetContext(ctx, &a, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &schedule.NotFoundError{Kind: "availability", ID: id.String()}
		}
		return nil, err
	}
	return &a, nil
}

// ActiveByProvider returns the provider's approved and pending
// availabilities that are neither deleted nor deactivated, excluding the
// given id when non-nil
func (r *AvailabilityRepository) ActiveByProvider(ctx context.Context, providerID uuid.UUID, exclude *uuid.UUID) ([]models.Availability, error) {
	query := `
		SELECT ` + availabilityColumns + `
		FROM availabilities
		WHERE provider_id = $1
		  AND status IN ('approved', 'pending')
		  AND NOT deleted AND NOT deactivated
	`
	args := []interface{}{providerID}
	if exclude != nil {
		query += ` AND id <> $2`
		args = append(args, *exclude)
	}
	query += ` ORDER BY created_at`

	var out []models.Availability
	if err := r.db.SelectContext(ctx, &out, query, args...); err != nil {
		return nil, err
	}
	return out, nil
}

// ListAdvanceable returns the availabilities the daily advance pass should
// visit
func (r *AvailabilityRepository) ListAdvanceable(ctx context.Context) ([]models.Availability, error) {
	query := `
		SELECT ` + availabilityColumns + `
		FROM availabilities
		WHERE status = 'approved'
		  AND kind IN ('temporary', 'recurring')
		  AND NOT deleted AND NOT deactivated AND NOT expired
		ORDER BY created_at
	`
	var out []models.Availability
	if err := r.db.SelectContext(ctx, &out, query); err != nil {
		return nil, err
	}
	return out, nil
}

// ListExpiryCandidates returns approved availabilities with an end bound
// that have not yet been expired
func (r *AvailabilityRepository) ListExpiryCandidates(ctx context.Context) ([]models.Availability, error) {
	query := `
		SELECT ` + availabilityColumns + `
		FROM availabilities
		WHERE status = 'approved'
		  AND NOT deleted AND NOT expired
		  AND (date IS NOT NULL OR end_date IS NOT NULL)
		ORDER BY created_at
	`
	var out []models.Availability
	if err := r.db.SelectContext(ctx, &out, query); err != nil {
		return nil, err
	}
	return out, nil
}

// List retrieves availabilities filtered by provider and status
func (r *AvailabilityRepository) List(ctx context.Context, providerID *uuid.UUID, status *models.AvailabilityStatus) ([]models.Availability, error) {
	query := `SELECT ` + availabilityColumns + ` FROM availabilities WHERE NOT deleted`
	args := []interface{}{}
	argIdx := 1

	if providerID != nil {
		query += fmt.Sprintf(" AND provider_id = $%d", argIdx)
		args = append(args, *providerID)
		argIdx++
	}
	if status != nil {
		query += fmt.Sprintf(" AND status = $%d", argIdx)
		args = append(args, *status)
	}
	query += ` ORDER BY created_at DESC`

	var out []models.Availability
	if err := r.db.SelectContext(ctx, &out, query, args...); err != nil {
		return nil, err
	}
	return out, nil
}

// Update rewrites the mutable fields of an availability
func (r *AvailabilityRepository) Update(ctx context.Context, a *models.Availability) error {
	query := `
		UPDATE availabilities
		SET status = :status,
		    deactivated = :deactivated,
		    expired = :expired,
		    deleted = :deleted,
		    weekdays = :weekdays,
		    rejection_reason = :rejection_reason,
		    approved_by = :approved_by,
		    approved_at = :approved_at,
		    last_materialized_date = :last_materialized_date,
		    updated_at = :updated_at
		WHERE id = :id
	`
	result, err := r.db.NamedExecContext(ctx, query, a)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return &schedule.NotFoundError{Kind: "availability", ID: a.ID.String()}
	}
	return nil
}

// SetLastMaterializedDate records the date through which slots exist
func (r *AvailabilityRepository) SetLastMaterializedDate(ctx context.Context, id uuid.UUID, date time.Time) error {
	query := `UPDATE availabilities SET last_materialized_date = $1, updated_at = $2 WHERE id = $3`
	_, err := r.db.ExecContext(ctx, query, date, time.Now(), id)
	return err
}

// MarkExpired terminally expires an availability
func (r *AvailabilityRepository) MarkExpired(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE availabilities SET expired = TRUE, updated_at = $1 WHERE id = $2`
	_, err := r.db.ExecContext(ctx, query, time.Now(), id)
	return err
}
