package models

import (
	"time"

	"github.com/google/uuid"
)

// SlotStatus represents the lifecycle state of a bookable slot
type SlotStatus string

const (
	SlotAvailable SlotStatus = "available"
	SlotBooked    SlotStatus = "booked"
	SlotCancelled SlotStatus = "cancelled"
	SlotExpired   SlotStatus = "expired"
)

// Slot is one concrete bookable time unit expanded from an availability.
// StartAt/EndAt are absolute UTC instants; SlotDate is the local calendar
// date the slot belongs to, normalized to a midnight-UTC marker. Slots are
// uniquely keyed by (availability_id, start_at, slot_date).
type Slot struct {
	ID             uuid.UUID  `json:"id" db:"id"`
	AvailabilityID uuid.UUID  `json:"availability_id" db:"availability_id"`
	StartAt        time.Time  `json:"start_at" db:"start_at"`
	EndAt          time.Time  `json:"end_at" db:"end_at"`
	SlotDate       time.Time  `json:"slot_date" db:"slot_date"`
	Status         SlotStatus `json:"status" db:"status"`
	AppointmentID  *uuid.UUID `json:"appointment_id,omitempty" db:"appointment_id"`
	CreatedAt      time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at" db:"updated_at"`
}
