package schedule

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/careslot/scheduling/internal/models"
)

// AvailabilityStore is the persistence surface the engine needs for
// availability rules
type AvailabilityStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Availability, error)
	// ActiveByProvider returns the provider's availabilities with status
	// approved or pending that are not deleted or deactivated, excluding
	// the given id when non-nil.
	ActiveByProvider(ctx context.Context, providerID uuid.UUID, exclude *uuid.UUID) ([]models.Availability, error)
	// ListAdvanceable returns approved, non-deleted, non-deactivated,
	// non-expired availabilities of the temporary and recurring kinds.
	ListAdvanceable(ctx context.Context) ([]models.Availability, error)
	// ListExpiryCandidates returns approved, non-deleted, non-expired
	// availabilities that carry an end bound (a one-time date or an end
	// date).
	ListExpiryCandidates(ctx context.Context) ([]models.Availability, error)
	// List filters non-deleted availabilities by provider and status; nil
	// filters match everything.
	List(ctx context.Context, providerID *uuid.UUID, status *models.AvailabilityStatus) ([]models.Availability, error)
	Create(ctx context.Context, a *models.Availability) error
	Update(ctx context.Context, a *models.Availability) error
	SetLastMaterializedDate(ctx context.Context, id uuid.UUID, date time.Time) error
	MarkExpired(ctx context.Context, id uuid.UUID) error
}

// SlotStore is the persistence surface for concrete slots
type SlotStore interface {
	// BatchInsert inserts slots with duplicate-skip semantics keyed on
	// (availability_id, start_at, slot_date) and returns the number of rows
	// actually written.
	BatchInsert(ctx context.Context, slots []models.Slot) (int, error)
	// Insert writes a single slot; inserting an existing key returns
	// ErrDuplicateSlot.
	Insert(ctx context.Context, slot models.Slot) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Slot, error)
	ListByAvailability(ctx context.Context, availabilityID uuid.UUID) ([]models.Slot, error)
	// DeleteAvailableFrom removes still-available slots of the availability
	// whose start instant is at or after from, returning the removed count.
	DeleteAvailableFrom(ctx context.Context, availabilityID uuid.UUID, from time.Time) (int64, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status models.SlotStatus, appointmentID *uuid.UUID) error
}

// ProfileStore resolves provider-location profiles
type ProfileStore interface {
	Get(ctx context.Context, providerID, locationID uuid.UUID) (*models.ProviderProfile, error)
}

// ErrDuplicateSlot marks a slot insert that hit an existing
// (availability_id, start_at, slot_date) key
type duplicateSlotError struct{}

func (duplicateSlotError) Error() string { return "slot already exists" }

// ErrDuplicateSlot is returned by SlotStore.Insert on a key collision.
// Callers in this package absorb it silently.
var ErrDuplicateSlot error = duplicateSlotError{}
