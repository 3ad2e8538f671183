package schedule

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Machine codes surfaced to callers on materialization failure
const (
	CodeAvailabilityIDRequired = "SCHEDULE_ID_REQUIRED"
	CodeProviderDeactivated    = "DOCTOR_DEACTIVATED"
	CodeLocationDeactivated    = "HOSPITAL_DEACTIVATED"
	CodeExpired                = "SCHEDULE_EXPIRED"
	CodeStartDatePassed        = "SCHEDULE_START_DATE_PASSED"
	CodeGenerationFailed       = "SLOT_GENERATION_FAILED"
)

// ValidationError reports a malformed availability. It aborts processing
// before any read or write.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ConflictError reports a proven absolute-time overlap with another active
// availability of the same provider
type ConflictError struct {
	ConflictingID uuid.UUID
	OverlapStart  time.Time
	OverlapEnd    time.Time
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("conflicts with availability %s between %s and %s",
		e.ConflictingID,
		e.OverlapStart.UTC().Format(time.RFC3339),
		e.OverlapEnd.UTC().Format(time.RFC3339))
}

// Failure is a materialization precondition or generation failure carrying a
// machine code and diagnostics
type Failure struct {
	Code        string
	Message     string
	Diagnostics map[string]interface{}
}

func (e *Failure) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func newFailure(code, message string) *Failure {
	return &Failure{Code: code, Message: message}
}

// NotFoundError reports a missing availability or provider profile
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Kind, e.ID)
}

// IsConflict reports whether err is a ConflictError
func IsConflict(err error) bool {
	var ce *ConflictError
	return errors.As(err, &ce)
}

// IsValidation reports whether err is a ValidationError
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsNotFound reports whether err is a NotFoundError
func IsNotFound(err error) bool {
	var ne *NotFoundError
	return errors.As(err, &ne)
}

// AsFailure extracts a *Failure from err if present
func AsFailure(err error) (*Failure, bool) {
	var f *Failure
	if errors.As(err, &f) {
		return f, true
	}
	return nil, false
}
