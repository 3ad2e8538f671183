package models

import (
	"time"

	"github.com/google/uuid"
)

// ProviderProfile carries the provider-location settings the scheduling
// engine consumes: the timezone all wall-clock times resolve in, the slot
// length, and the deactivation flags maintained by the admin surface.
type ProviderProfile struct {
	ProviderID          uuid.UUID `json:"provider_id" db:"provider_id"`
	LocationID          uuid.UUID `json:"location_id" db:"location_id"`
	Timezone            string    `json:"timezone" db:"timezone"`
	SlotMinutes         int       `json:"slot_minutes" db:"slot_minutes"`
	ProviderDeactivated bool      `json:"provider_deactivated" db:"provider_deactivated"`
	LocationDeactivated bool      `json:"location_deactivated" db:"location_deactivated"`
	UpdatedAt           time.Time `json:"updated_at" db:"updated_at"`
}

// Location resolves the profile's IANA timezone
func (p *ProviderProfile) Location() (*time.Location, error) {
	return time.LoadLocation(p.Timezone)
}
