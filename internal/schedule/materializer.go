package schedule

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/careslot/scheduling/internal/calendar"
	"github.com/careslot/scheduling/internal/models"
)

// Result reports the outcome of a materialization run
type Result struct {
	Created     int        `json:"created"`
	WindowStart *time.Time `json:"window_start,omitempty"`
	WindowEnd   *time.Time `json:"window_end,omitempty"`
}

// Materialize expands the availability into concrete slots across the
// initial generation window: max(today, start date) through
// min(end date, today + GenerationWindowDays), all in the location's
// timezone. It is idempotent; re-running with the same "now" writes no new
// rows and returns no error. Precondition failures surface as *Failure with
// a machine code.
func (e *Engine) Materialize(ctx context.Context, id uuid.UUID) (*Result, error) {
	if id == uuid.Nil {
		return nil, newFailure(CodeAvailabilityIDRequired, "availability id is required")
	}

	av, profile, loc, rule, err := e.loadForGeneration(ctx, id)
	if err != nil {
		return nil, err
	}
	if av.Expired {
		return nil, newFailure(CodeExpired, "availability has expired")
	}
	if profile.ProviderDeactivated {
		return nil, newFailure(CodeProviderDeactivated, "provider is deactivated")
	}
	if profile.LocationDeactivated {
		return nil, newFailure(CodeLocationDeactivated, "location is deactivated")
	}

	now := e.clock.Now()
	today := calendar.Today(e.clock, loc)

	var windowStart, windowEnd time.Time
	if av.Kind == models.KindOneTime {
		date := calendar.DateMarker(*av.Date)
		_, endAt := rule.InstantRangeOn(date)
		if !endAt.After(now) {
			return nil, &Failure{
				Code:    CodeStartDatePassed,
				Message: "the availability's date has already passed",
				Diagnostics: map[string]interface{}{
					"date":     date.Format("2006-01-02"),
					"ends_at":  endAt.UTC().Format(time.RFC3339),
					"asked_at": now.UTC().Format(time.RFC3339),
				},
			}
		}
		windowStart, windowEnd = date, date
	} else {
		from, to := rule.Bounds()
		windowStart = today
		if from != nil {
			windowStart = calendar.MaxDate(today, *from)
		}
		windowEnd = calendar.AddDays(today, e.caps.GenerationWindowDays)
		if to != nil {
			windowEnd = calendar.MinDate(windowEnd, *to)
		}
		if windowStart.After(windowEnd) {
			// the availability starts beyond the rolling horizon; the daily
			// advance will pick it up once it comes due
			return &Result{Created: 0}, nil
		}
	}

	slots := e.expand(av, rule, windowStart, windowEnd, e.slotMinutes(profile.SlotMinutes), now, true)
	if len(slots) == 0 {
		return nil, &Failure{
			Code:    CodeGenerationFailed,
			Message: "no slots produced for a non-empty window",
			Diagnostics: map[string]interface{}{
				"window_start": windowStart.Format("2006-01-02"),
				"window_end":   windowEnd.Format("2006-01-02"),
				"days":         calendar.DaysBetween(windowStart, windowEnd) + 1,
			},
		}
	}

	created, err := e.slots.BatchInsert(ctx, slots)
	if err != nil {
		return nil, fmt.Errorf("failed to insert slots: %w", err)
	}
	if err := e.availabilities.SetLastMaterializedDate(ctx, av.ID, windowEnd); err != nil {
		return nil, fmt.Errorf("failed to record materialized date: %w", err)
	}

	e.logger.Info("Availability materialized", map[string]interface{}{
		"availability_id": av.ID.String(),
		"window_start":    windowStart.Format("2006-01-02"),
		"window_end":      windowEnd.Format("2006-01-02"),
		"created":         created,
	})

	return &Result{Created: created, WindowStart: &windowStart, WindowEnd: &windowEnd}, nil
}

// Advance extends an already-materialized availability's window forward by
// the gap elapsed since its last run. It is meant to be invoked once per
// day per availability; every generated day is strictly future, so no
// elapsed trimming applies. The recorded horizon always moves to
// min(today + AdvanceHorizonDays, end date), even when nothing new was
// written, so forward progress never stalls.
func (e *Engine) Advance(ctx context.Context, id uuid.UUID) (*Result, error) {
	if id == uuid.Nil {
		return nil, newFailure(CodeAvailabilityIDRequired, "availability id is required")
	}

	av, profile, loc, rule, err := e.loadForGeneration(ctx, id)
	if err != nil {
		return nil, err
	}
	if av.Kind == models.KindOneTime || av.Deactivated || av.Expired || av.Deleted {
		return &Result{Created: 0}, nil
	}

	now := e.clock.Now()
	today := calendar.Today(e.clock, loc)
	yesterday := calendar.AddDays(today, -1)

	from, to := rule.Bounds()
	if from != nil && from.After(yesterday) {
		// not due to start yet
		return &Result{Created: 0}, nil
	}

	lastGenerated := yesterday
	if av.LastMaterializedDate != nil {
		lastGenerated = calendar.DateMarker(*av.LastMaterializedDate)
	} else if from != nil {
		lastGenerated = calendar.AddDays(*from, -1)
	}

	newHorizon := calendar.AddDays(today, e.caps.AdvanceHorizonDays)
	if to != nil {
		newHorizon = calendar.MinDate(newHorizon, *to)
	}
	if !newHorizon.After(lastGenerated) {
		return &Result{Created: 0}, nil
	}

	windowStart := calendar.NextDate(lastGenerated)
	slots := e.expand(av, rule, windowStart, newHorizon, e.slotMinutes(profile.SlotMinutes), now, false)

	created, err := e.persistTolerant(ctx, slots)
	if err != nil {
		return nil, err
	}
	if err := e.availabilities.SetLastMaterializedDate(ctx, av.ID, newHorizon); err != nil {
		return nil, fmt.Errorf("failed to record materialized date: %w", err)
	}

	e.logger.Debug("Availability window advanced", map[string]interface{}{
		"availability_id": av.ID.String(),
		"from":            windowStart.Format("2006-01-02"),
		"to":              newHorizon.Format("2006-01-02"),
		"created":         created,
	})

	return &Result{Created: created, WindowStart: &windowStart, WindowEnd: &newHorizon}, nil
}

// loadForGeneration fetches the availability, its provider profile, the
// profile's timezone, and the parsed recurrence rule
func (e *Engine) loadForGeneration(ctx context.Context, id uuid.UUID) (*models.Availability, *models.ProviderProfile, *time.Location, recurrenceRule, error) {
	av, err := e.availabilities.GetByID(ctx, id)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	profile, err := e.profiles.Get(ctx, av.ProviderID, av.LocationID)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	loc, err := profile.Location()
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("profile timezone %q: %w", profile.Timezone, err)
	}
	rule, err := newRule(av, loc)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	return av, profile, loc, rule, nil
}

// expand walks every calendar day in [from, to], splits each active day's
// local instant range into fixed-size increments, and converts the
// survivors to UTC slots. Increments whose end would pass the day's
// declared end are dropped; with trimElapsed set, increments already over
// relative to now are dropped as well (relevant only for today).
func (e *Engine) expand(av *models.Availability, rule recurrenceRule, from, to time.Time, slotLen time.Duration, now time.Time, trimElapsed bool) []models.Slot {
	var slots []models.Slot
	for day := from; !day.After(to); day = calendar.NextDate(day) {
		if !rule.ActiveOn(day) {
			continue
		}
		dayStart, dayEnd := rule.InstantRangeOn(day)
		for cur := dayStart; ; cur = cur.Add(slotLen) {
			end := cur.Add(slotLen)
			if end.After(dayEnd) {
				break
			}
			if trimElapsed && !end.After(now) {
				continue
			}
			slots = append(slots, models.Slot{
				ID:             uuid.New(),
				AvailabilityID: av.ID,
				StartAt:        cur.UTC(),
				EndAt:          end.UTC(),
				SlotDate:       day,
				Status:         models.SlotAvailable,
			})
		}
	}
	return slots
}

// persistTolerant batch-inserts slots and, if the batch fails, retries row
// by row, absorbing duplicate-key collisions and surfacing anything else
func (e *Engine) persistTolerant(ctx context.Context, slots []models.Slot) (int, error) {
	if len(slots) == 0 {
		return 0, nil
	}
	created, err := e.slots.BatchInsert(ctx, slots)
	if err == nil {
		return created, nil
	}
	e.logger.Warn("Batch insert failed, falling back to per-row inserts", map[string]interface{}{
		"error": err.Error(),
		"slots": len(slots),
	})

	created = 0
	for _, slot := range slots {
		if err := e.slots.Insert(ctx, slot); err != nil {
			if errors.Is(err, ErrDuplicateSlot) {
				continue
			}
			return created, fmt.Errorf("failed to insert slot at %s: %w", slot.StartAt.Format(time.RFC3339), err)
		}
		created++
	}
	return created, nil
}
