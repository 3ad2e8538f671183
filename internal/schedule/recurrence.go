package schedule

import (
	"time"

	"github.com/careslot/scheduling/internal/calendar"
	"github.com/careslot/scheduling/internal/models"
)

// recurrenceRule is the behavior an availability kind must expose for both
// overlap detection and materialization: whether a calendar day is active,
// and the absolute instant range occupied on an active day.
type recurrenceRule interface {
	// ActiveOn reports whether the rule occupies the given calendar date
	// (a midnight-UTC date marker).
	ActiveOn(date time.Time) bool
	// InstantRangeOn resolves the rule's local wall-clock span on the given
	// date to absolute [start, end) instants in the rule's own timezone.
	InstantRangeOn(date time.Time) (time.Time, time.Time)
	// Bounds returns the rule's date bounds as markers; nil means unbounded
	// on that side.
	Bounds() (from, to *time.Time)
}

// span carries the pieces shared by every kind: the local wall-clock window
// and the timezone it resolves in
type span struct {
	start calendar.WallClock
	end   calendar.WallClock
	loc   *time.Location
}

func (s span) InstantRangeOn(date time.Time) (time.Time, time.Time) {
	return calendar.InstantRange(date, s.start, s.end, s.loc)
}

type oneTimeRule struct {
	span
	date time.Time
}

func (r oneTimeRule) ActiveOn(date time.Time) bool {
	return date.Equal(r.date)
}

func (r oneTimeRule) Bounds() (*time.Time, *time.Time) {
	d := r.date
	return &d, &d
}

type temporaryRule struct {
	span
	startDate time.Time
	endDate   time.Time
	weekdays  models.WeekdaySet
}

func (r temporaryRule) ActiveOn(date time.Time) bool {
	if date.Before(r.startDate) || date.After(r.endDate) {
		return false
	}
	if len(r.weekdays) == 0 {
		return true
	}
	return r.weekdays.Contains(date.Weekday())
}

func (r temporaryRule) Bounds() (*time.Time, *time.Time) {
	from, to := r.startDate, r.endDate
	return &from, &to
}

type recurringRule struct {
	span
	weekdays  models.WeekdaySet
	startDate *time.Time
	endDate   *time.Time
}

func (r recurringRule) ActiveOn(date time.Time) bool {
	if r.startDate != nil && date.Before(*r.startDate) {
		return false
	}
	if r.endDate != nil && date.After(*r.endDate) {
		return false
	}
	return r.weekdays.Contains(date.Weekday())
}

func (r recurringRule) Bounds() (*time.Time, *time.Time) {
	return r.startDate, r.endDate
}

// newRule validates the kind-specific fields of an availability and builds
// its recurrence rule for the given timezone. Wall-clock strings may use
// 24-hour or meridiem notation.
func newRule(a *models.Availability, loc *time.Location) (recurrenceRule, error) {
	start, err := calendar.ParseWallClock(a.StartTime)
	if err != nil {
		return nil, &ValidationError{Field: "start_time", Message: err.Error()}
	}
	end, err := calendar.ParseWallClock(a.EndTime)
	if err != nil {
		return nil, &ValidationError{Field: "end_time", Message: err.Error()}
	}
	sp := span{start: start, end: end, loc: loc}

	switch a.Kind {
	case models.KindOneTime:
		if a.Date == nil {
			return nil, &ValidationError{Field: "date", Message: "required for one-time availability"}
		}
		return oneTimeRule{span: sp, date: calendar.DateMarker(*a.Date)}, nil

	case models.KindTemporary:
		if a.StartDate == nil || a.EndDate == nil {
			return nil, &ValidationError{Field: "start_date", Message: "start and end dates required for temporary availability"}
		}
		startDate := calendar.DateMarker(*a.StartDate)
		endDate := calendar.DateMarker(*a.EndDate)
		if startDate.After(endDate) {
			return nil, &ValidationError{Field: "end_date", Message: "end date precedes start date"}
		}
		return temporaryRule{span: sp, startDate: startDate, endDate: endDate, weekdays: a.Weekdays}, nil

	case models.KindRecurring:
		if len(a.Weekdays) == 0 {
			return nil, &ValidationError{Field: "weekdays", Message: "at least one weekday required for recurring availability"}
		}
		r := recurringRule{span: sp, weekdays: a.Weekdays}
		if a.StartDate != nil {
			d := calendar.DateMarker(*a.StartDate)
			r.startDate = &d
		}
		if a.EndDate != nil {
			d := calendar.DateMarker(*a.EndDate)
			r.endDate = &d
		}
		if r.startDate != nil && r.endDate != nil && r.startDate.After(*r.endDate) {
			return nil, &ValidationError{Field: "end_date", Message: "end date precedes start date"}
		}
		return r, nil

	default:
		return nil, &ValidationError{Field: "kind", Message: "unknown recurrence kind"}
	}
}

// feasible reports whether the rule is active on at least one day of its
// bounded range, scanning at most scanCap days. Rules without an upper
// bound and a non-empty weekday restriction are always feasible.
func feasible(r recurrenceRule, scanCap int) bool {
	from, to := r.Bounds()
	if from == nil || to == nil {
		return true
	}
	day := *from
	for i := 0; i < scanCap && !day.After(*to); i++ {
		if r.ActiveOn(day) {
			return true
		}
		day = calendar.NextDate(day)
	}
	return false
}
