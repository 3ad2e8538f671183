package models

import (
	"database/sql/driver"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// RecurrenceKind identifies how an availability repeats
type RecurrenceKind string

const (
	KindOneTime   RecurrenceKind = "one_time"
	KindTemporary RecurrenceKind = "temporary"
	KindRecurring RecurrenceKind = "recurring"
)

// AvailabilityStatus represents the approval status of an availability
type AvailabilityStatus string

const (
	StatusPending  AvailabilityStatus = "pending"
	StatusApproved AvailabilityStatus = "approved"
	StatusRejected AvailabilityStatus = "rejected"
)

// WeekdaySet is the set of weekdays an availability applies to,
// stored as an integer array (0 = Sunday ... 6 = Saturday)
type WeekdaySet []time.Weekday

// Value implements the driver.Valuer interface
func (w WeekdaySet) Value() (driver.Value, error) {
	arr := make(pq.Int64Array, len(w))
	for i, d := range w {
		arr[i] = int64(d)
	}
	return arr.Value()
}

// Scan implements the sql.Scanner interface
func (w *WeekdaySet) Scan(value interface{}) error {
	var arr pq.Int64Array
	if err := arr.Scan(value); err != nil {
		return err
	}
	set := make(WeekdaySet, len(arr))
	for i, v := range arr {
		if v < 0 || v > 6 {
			return fmt.Errorf("weekday out of range: %d", v)
		}
		set[i] = time.Weekday(v)
	}
	*w = set
	return nil
}

// Contains reports whether the set includes the given weekday
func (w WeekdaySet) Contains(d time.Weekday) bool {
	for _, wd := range w {
		if wd == d {
			return true
		}
	}
	return false
}

// Intersects reports whether two weekday sets share at least one day
func (w WeekdaySet) Intersects(other WeekdaySet) bool {
	for _, d := range other {
		if w.Contains(d) {
			return true
		}
	}
	return false
}

// Availability is an abstract availability rule declared by a provider at a
// location. Calendar dates are stored as midnight-UTC markers; wall-clock
// times are local to the location's timezone and normalized to "HH:MM".
type Availability struct {
	ID         uuid.UUID      `json:"id" db:"id"`
	ProviderID uuid.UUID      `json:"provider_id" db:"provider_id"`
	LocationID uuid.UUID      `json:"location_id" db:"location_id"`
	Kind       RecurrenceKind `json:"kind" db:"kind"`

	// Date is set for one_time availabilities only.
	Date *time.Time `json:"date,omitempty" db:"date"`
	// StartDate/EndDate bound temporary availabilities (both required,
	// inclusive) and optionally bound recurring ones.
	StartDate *time.Time `json:"start_date,omitempty" db:"start_date"`
	EndDate   *time.Time `json:"end_date,omitempty" db:"end_date"`
	// Weekdays is required for recurring availabilities and optional for
	// temporary ones.
	Weekdays WeekdaySet `json:"weekdays,omitempty" db:"weekdays"`

	StartTime string `json:"start_time" db:"start_time"`
	EndTime   string `json:"end_time" db:"end_time"`

	Status          AvailabilityStatus `json:"status" db:"status"`
	Deactivated     bool               `json:"deactivated" db:"deactivated"`
	Expired         bool               `json:"expired" db:"expired"`
	Deleted         bool               `json:"deleted" db:"deleted"`
	RejectionReason *string            `json:"rejection_reason,omitempty" db:"rejection_reason"`
	ApprovedBy      *uuid.UUID         `json:"approved_by,omitempty" db:"approved_by"`
	ApprovedAt      *time.Time         `json:"approved_at,omitempty" db:"approved_at"`

	LastMaterializedDate *time.Time `json:"last_materialized_date,omitempty" db:"last_materialized_date"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Active reports whether the availability still participates in conflict
// checks and materialization
func (a *Availability) Active() bool {
	if a.Deleted || a.Deactivated {
		return false
	}
	return a.Status == StatusApproved || a.Status == StatusPending
}
