package schedule

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/careslot/scheduling/internal/calendar"
	"github.com/careslot/scheduling/internal/models"
)

// EnsureNoConflict proves that the proposed availability does not overlap,
// in absolute time, with any other active availability of the same provider.
// It validates the proposal first, then tests each surviving candidate on a
// capped sample of days both rules are active, comparing the UTC instant
// ranges each occupies in its own timezone. A proven overlap returns a
// *ConflictError; a malformed proposal returns a *ValidationError.
func (e *Engine) EnsureNoConflict(ctx context.Context, proposed *models.Availability) error {
	profile, err := e.profiles.Get(ctx, proposed.ProviderID, proposed.LocationID)
	if err != nil {
		return err
	}
	loc, err := profile.Location()
	if err != nil {
		return &ValidationError{Field: "timezone", Message: err.Error()}
	}
	rule, err := newRule(proposed, loc)
	if err != nil {
		return err
	}
	if !feasible(rule, e.caps.WeekdayScanDays) {
		return &ValidationError{Field: "weekdays", Message: "no declared weekday falls inside the date range"}
	}

	var exclude *uuid.UUID
	if proposed.ID != uuid.Nil {
		id := proposed.ID
		exclude = &id
	}
	candidates, err := e.availabilities.ActiveByProvider(ctx, proposed.ProviderID, exclude)
	if err != nil {
		return fmt.Errorf("failed to load provider availabilities: %w", err)
	}

	today := calendar.Today(e.clock, loc)

	for i := range candidates {
		cand := &candidates[i]
		if !mayShareDay(proposed, cand) {
			continue
		}
		candProfile, err := e.profiles.Get(ctx, cand.ProviderID, cand.LocationID)
		if err != nil {
			return err
		}
		candLoc, err := candProfile.Location()
		if err != nil {
			return fmt.Errorf("availability %s has unresolvable timezone: %w", cand.ID, err)
		}
		candRule, err := newRule(cand, candLoc)
		if err != nil {
			return fmt.Errorf("availability %s is malformed: %w", cand.ID, err)
		}

		for _, day := range e.sharedActiveDays(rule, candRule, today) {
			aStart, aEnd := rule.InstantRangeOn(day)
			bStart, bEnd := candRule.InstantRangeOn(day)
			if calendar.Overlaps(aStart, aEnd, bStart, bEnd) {
				return &ConflictError{
					ConflictingID: cand.ID,
					OverlapStart:  laterOf(aStart, bStart),
					OverlapEnd:    earlierOf(aEnd, bEnd),
				}
			}
		}
	}

	return nil
}

// sharedActiveDays samples up to OverlapSampleDays calendar days, earliest
// first, on which both rules are active. Scanning starts at the latest of
// today and the rules' lower bounds, stops at the earliest upper bound, and
// never visits more than WeekdayScanDays days.
//
// Days are matched on the civil dates the rules declare. A window that
// spills past midnight stays attributed to its declared day, so a spill
// landing on a day only the other rule declares is never sampled and such
// an overlap goes undetected.
func (e *Engine) sharedActiveDays(a, b recurrenceRule, today time.Time) []time.Time {
	aFrom, aTo := a.Bounds()
	bFrom, bTo := b.Bounds()

	from := today
	if aFrom != nil {
		from = calendar.MaxDate(from, *aFrom)
	}
	if bFrom != nil {
		from = calendar.MaxDate(from, *bFrom)
	}

	var to *time.Time
	if aTo != nil {
		to = aTo
	}
	if bTo != nil && (to == nil || bTo.Before(*to)) {
		to = bTo
	}
	if to != nil && to.Before(from) {
		return nil
	}

	var days []time.Time
	day := from
	for i := 0; i < e.caps.WeekdayScanDays; i++ {
		if to != nil && day.After(*to) {
			break
		}
		if a.ActiveOn(day) && b.ActiveOn(day) {
			days = append(days, day)
			if len(days) >= e.caps.OverlapSampleDays {
				break
			}
		}
		day = calendar.NextDate(day)
	}
	return days
}

// mayShareDay is a type-aware pruning of candidate pairs that provably never
// share a calendar day. It is a performance narrowing only; correctness
// never depends on it, so it errs on the side of keeping a candidate.
func mayShareDay(a, b *models.Availability) bool {
	switch {
	case a.Kind == models.KindOneTime && b.Kind == models.KindOneTime:
		return sameDateField(a.Date, b.Date)
	case a.Kind == models.KindOneTime && b.Kind == models.KindTemporary:
		return dateInRange(a.Date, b.StartDate, b.EndDate)
	case a.Kind == models.KindTemporary && b.Kind == models.KindOneTime:
		return dateInRange(b.Date, a.StartDate, a.EndDate)
	case a.Kind == models.KindOneTime && b.Kind == models.KindRecurring:
		return weekdayMatches(a.Date, b.Weekdays)
	case a.Kind == models.KindRecurring && b.Kind == models.KindOneTime:
		return weekdayMatches(b.Date, a.Weekdays)
	case a.Kind == models.KindTemporary && b.Kind == models.KindTemporary:
		return rangesIntersect(a.StartDate, a.EndDate, b.StartDate, b.EndDate)
	case a.Kind == models.KindRecurring && b.Kind == models.KindRecurring:
		if len(a.Weekdays) > 0 && len(b.Weekdays) > 0 && !a.Weekdays.Intersects(b.Weekdays) {
			return false
		}
		return rangesIntersect(a.StartDate, a.EndDate, b.StartDate, b.EndDate)
	default:
		// temporary vs recurring: keep unless the bounded ranges are
		// provably disjoint
		return rangesIntersect(a.StartDate, a.EndDate, b.StartDate, b.EndDate)
	}
}

func sameDateField(a, b *time.Time) bool {
	if a == nil || b == nil {
		return true
	}
	return calendar.DateMarker(*a).Equal(calendar.DateMarker(*b))
}

func dateInRange(d, from, to *time.Time) bool {
	if d == nil {
		return true
	}
	day := calendar.DateMarker(*d)
	if from != nil && day.Before(calendar.DateMarker(*from)) {
		return false
	}
	if to != nil && day.After(calendar.DateMarker(*to)) {
		return false
	}
	return true
}

func weekdayMatches(d *time.Time, set models.WeekdaySet) bool {
	if d == nil || len(set) == 0 {
		return true
	}
	return set.Contains(calendar.DateMarker(*d).Weekday())
}

func rangesIntersect(aFrom, aTo, bFrom, bTo *time.Time) bool {
	if aFrom != nil && bTo != nil && calendar.DateMarker(*aFrom).After(calendar.DateMarker(*bTo)) {
		return false
	}
	if bFrom != nil && aTo != nil && calendar.DateMarker(*bFrom).After(calendar.DateMarker(*aTo)) {
		return false
	}
	return true
}

func laterOf(a, b time.Time) time.Time {
	if b.After(a) {
		return b
	}
	return a
}

func earlierOf(a, b time.Time) time.Time {
	if b.Before(a) {
		return b
	}
	return a
}
