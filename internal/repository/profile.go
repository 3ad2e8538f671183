package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/careslot/scheduling/internal/database"
	"github.com/careslot/scheduling/internal/models"
	"github.com/careslot/scheduling/internal/schedule"
)

// ProfileRepository resolves provider-location profiles
type ProfileRepository struct {
	db *database.DB
}

// NewProfileRepository creates a new profile repository
func NewProfileRepository(db *database.DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

// Get retrieves the profile for a provider at a location
func (r *ProfileRepository) Get(ctx context.Context, providerID, locationID uuid.UUID) (*models.ProviderProfile, error) {
	var p models.ProviderProfile
	query := `
		SELECT provider_id, location_id, timezone, slot_minutes,
		       provider_deactivated, location_deactivated, updated_at
		FROM provider_profiles
		WHERE provider_id = $1 AND location_id = $2
	`
	if err := r.db.GetContext(ctx, &p, query, providerID, locationID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &schedule.NotFoundError{
				Kind: "provider profile",
				ID:   fmt.Sprintf("%s@%s", providerID, locationID),
			}
		}
		return nil, err
	}
	return &p, nil
}

// Upsert writes a provider-location profile
func (r *ProfileRepository) Upsert(ctx context.Context, p *models.ProviderProfile) error {
	query := `
		INSERT INTO provider_profiles (
			provider_id, location_id, timezone, slot_minutes,
			provider_deactivated, location_deactivated, updated_at
		) VALUES (
			:provider_id, :location_id, :timezone, :slot_minutes,
			:provider_deactivated, :location_deactivated, :updated_at
		)
		ON CONFLICT (provider_id, location_id) DO UPDATE SET
			timezone = EXCLUDED.timezone,
			slot_minutes = EXCLUDED.slot_minutes,
			provider_deactivated = EXCLUDED.provider_deactivated,
			location_deactivated = EXCLUDED.location_deactivated,
			updated_at = EXCLUDED.updated_at
	`
	_, err := r.db.NamedExecContext(ctx, query, p)
	return err
}
