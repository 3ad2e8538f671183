package schedule

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/careslot/scheduling/internal/calendar"
	"github.com/careslot/scheduling/internal/models"
)

// overlapFixture seeds one provider with an approved recurring availability
// Monday 09:00-12:00 at a UTC location, with "now" fixed to Sunday
// 2026-03-01 12:00 UTC
type overlapFixture struct {
	store      *memStore
	engine     *Engine
	providerID uuid.UUID
	locationID uuid.UUID
	existingID uuid.UUID
}

func newOverlapFixture(t *testing.T) *overlapFixture {
	t.Helper()
	f := &overlapFixture{
		store:      newMemStore(),
		providerID: uuid.New(),
		locationID: uuid.New(),
		existingID: uuid.New(),
	}
	seedProfile(f.store, f.providerID, f.locationID, "UTC", 30)
	f.store.putAvailability(&models.Availability{
		ID:         f.existingID,
		ProviderID: f.providerID,
		LocationID: f.locationID,
		Kind:       models.KindRecurring,
		Weekdays:   models.WeekdaySet{time.Monday},
		StartTime:  "09:00",
		EndTime:    "12:00",
		Status:     models.StatusApproved,
	})
	clock := calendar.Fixed{Instant: time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)}
	f.engine = newTestEngine(f.store, clock)
	return f
}

func (f *overlapFixture) propose(kind models.RecurrenceKind) *models.Availability {
	return &models.Availability{
		ProviderID: f.providerID,
		LocationID: f.locationID,
		Kind:       kind,
	}
}

func TestEnsureNoConflictSameZone(t *testing.T) {
	f := newOverlapFixture(t)
	ctx := context.Background()

	t.Run("overlapping window conflicts", func(t *testing.T) {
		proposed := f.propose(models.KindRecurring)
		proposed.Weekdays = models.WeekdaySet{time.Monday}
		proposed.StartTime = "10:00"
		proposed.EndTime = "11:00"

		err := f.engine.EnsureNoConflict(ctx, proposed)
		var ce *ConflictError
		if !errors.As(err, &ce) {
			t.Fatalf("expected ConflictError, got %v", err)
		}
		if ce.ConflictingID != f.existingID {
			t.Errorf("conflicting id = %s, want %s", ce.ConflictingID, f.existingID)
		}
		if !ce.OverlapEnd.After(ce.OverlapStart) {
			t.Errorf("overlap range %v..%v is not forward", ce.OverlapStart, ce.OverlapEnd)
		}
	})

	t.Run("adjacent window passes", func(t *testing.T) {
		proposed := f.propose(models.KindRecurring)
		proposed.Weekdays = models.WeekdaySet{time.Monday}
		proposed.StartTime = "12:00"
		proposed.EndTime = "13:00"

		if err := f.engine.EnsureNoConflict(ctx, proposed); err != nil {
			t.Fatalf("adjacent intervals must not conflict: %v", err)
		}
	})

	t.Run("different weekday passes", func(t *testing.T) {
		proposed := f.propose(models.KindRecurring)
		proposed.Weekdays = models.WeekdaySet{time.Tuesday}
		proposed.StartTime = "09:00"
		proposed.EndTime = "12:00"

		if err := f.engine.EnsureNoConflict(ctx, proposed); err != nil {
			t.Fatalf("disjoint weekdays must not conflict: %v", err)
		}
	})

	t.Run("one-time on an active weekday conflicts", func(t *testing.T) {
		proposed := f.propose(models.KindOneTime)
		proposed.Date = dateP(2026, time.March, 9) // a Monday
		proposed.StartTime = "09:30"
		proposed.EndTime = "10:30"

		if err := f.engine.EnsureNoConflict(ctx, proposed); !IsConflict(err) {
			t.Fatalf("expected conflict, got %v", err)
		}
	})

	t.Run("temporary spanning the weekday conflicts", func(t *testing.T) {
		proposed := f.propose(models.KindTemporary)
		proposed.StartDate = dateP(2026, time.March, 2)
		proposed.EndDate = dateP(2026, time.March, 6)
		proposed.StartTime = "11:00"
		proposed.EndTime = "14:00"

		if err := f.engine.EnsureNoConflict(ctx, proposed); !IsConflict(err) {
			t.Fatalf("expected conflict, got %v", err)
		}
	})
}

func TestEnsureNoConflictCrossTimezone(t *testing.T) {
	f := newOverlapFixture(t)
	ctx := context.Background()

	// replace the existing window with Monday 07:00-08:00 UTC
	existing, err := f.store.avails().GetByID(ctx, f.existingID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	existing.StartTime = "07:00"
	existing.EndTime = "08:00"
	f.store.putAvailability(existing)

	// the same provider also works at a Moscow location (UTC+3, no DST)
	moscowLocation := uuid.New()
	seedProfile(f.store, f.providerID, moscowLocation, "Europe/Moscow", 30)

	t.Run("same absolute window conflicts", func(t *testing.T) {
		// Monday 10:00-11:00 Moscow is Monday 07:00-08:00 UTC
		proposed := &models.Availability{
			ProviderID: f.providerID,
			LocationID: moscowLocation,
			Kind:       models.KindRecurring,
			Weekdays:   models.WeekdaySet{time.Monday},
			StartTime:  "10:00",
			EndTime:    "11:00",
		}
		if err := f.engine.EnsureNoConflict(ctx, proposed); !IsConflict(err) {
			t.Fatalf("expected cross-timezone conflict, got %v", err)
		}
	})

	t.Run("disjoint absolute window passes", func(t *testing.T) {
		// Monday 13:00-14:00 Moscow is Monday 10:00-11:00 UTC
		proposed := &models.Availability{
			ProviderID: f.providerID,
			LocationID: moscowLocation,
			Kind:       models.KindRecurring,
			Weekdays:   models.WeekdaySet{time.Monday},
			StartTime:  "13:00",
			EndTime:    "14:00",
		}
		if err := f.engine.EnsureNoConflict(ctx, proposed); err != nil {
			t.Fatalf("same local clock in different zones must not conflict on absolute time: %v", err)
		}
	})
}

func TestEnsureNoConflictMidnightCrossing(t *testing.T) {
	f := newOverlapFixture(t)
	ctx := context.Background()

	existing, err := f.store.avails().GetByID(ctx, f.existingID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	existing.StartTime = "22:00"
	existing.EndTime = "02:00" // crosses into Tuesday
	f.store.putAvailability(existing)

	proposed := f.propose(models.KindRecurring)
	proposed.Weekdays = models.WeekdaySet{time.Monday}
	proposed.StartTime = "23:00"
	proposed.EndTime = "23:30"

	if err := f.engine.EnsureNoConflict(ctx, proposed); !IsConflict(err) {
		t.Fatalf("expected conflict inside the pre-midnight leg, got %v", err)
	}
}

func TestEnsureNoConflictSkipsInactive(t *testing.T) {
	f := newOverlapFixture(t)
	ctx := context.Background()

	deactivate := func(mutate func(a *models.Availability)) {
		a, err := f.store.avails().GetByID(ctx, f.existingID)
		if err != nil {
			t.Fatalf("GetByID: %v", err)
		}
		mutate(a)
		f.store.putAvailability(a)
	}

	proposed := f.propose(models.KindRecurring)
	proposed.Weekdays = models.WeekdaySet{time.Monday}
	proposed.StartTime = "10:00"
	proposed.EndTime = "11:00"

	deactivate(func(a *models.Availability) { a.Deactivated = true })
	if err := f.engine.EnsureNoConflict(ctx, proposed); err != nil {
		t.Fatalf("deactivated availability must not block: %v", err)
	}

	deactivate(func(a *models.Availability) { a.Deactivated = false; a.Status = models.StatusRejected })
	if err := f.engine.EnsureNoConflict(ctx, proposed); err != nil {
		t.Fatalf("rejected availability must not block: %v", err)
	}
}

func TestEnsureNoConflictExcludesSelf(t *testing.T) {
	f := newOverlapFixture(t)
	ctx := context.Background()

	// re-validating the stored availability against itself must pass
	self, err := f.store.avails().GetByID(ctx, f.existingID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if err := f.engine.EnsureNoConflict(ctx, self); err != nil {
		t.Fatalf("availability conflicted with itself: %v", err)
	}
}

func TestEnsureNoConflictRejectsInfeasible(t *testing.T) {
	f := newOverlapFixture(t)
	ctx := context.Background()

	// Tue-Wed range restricted to Mondays never produces an active day
	proposed := f.propose(models.KindTemporary)
	proposed.StartDate = dateP(2026, time.March, 3)
	proposed.EndDate = dateP(2026, time.March, 4)
	proposed.Weekdays = models.WeekdaySet{time.Monday}
	proposed.StartTime = "09:00"
	proposed.EndTime = "10:00"

	err := f.engine.EnsureNoConflict(ctx, proposed)
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if ve.Field != "weekdays" {
		t.Errorf("validation field = %q, want %q", ve.Field, "weekdays")
	}
}

func TestSharedActiveDaysSampleCap(t *testing.T) {
	f := newOverlapFixture(t)

	daily := &models.Availability{
		Kind:      models.KindRecurring,
		Weekdays:  models.WeekdaySet{time.Sunday, time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday, time.Saturday},
		StartTime: "09:00",
		EndTime:   "10:00",
	}
	a, err := newRule(daily, time.UTC)
	if err != nil {
		t.Fatalf("newRule: %v", err)
	}
	b, err := newRule(daily, time.UTC)
	if err != nil {
		t.Fatalf("newRule: %v", err)
	}

	today := date(2026, time.March, 1)
	days := f.engine.sharedActiveDays(a, b, today)
	if len(days) != f.engine.caps.OverlapSampleDays {
		t.Fatalf("sampled %d days, want cap of %d", len(days), f.engine.caps.OverlapSampleDays)
	}
	if !days[0].Equal(today) {
		t.Errorf("sampling starts at %v, want today %v", days[0], today)
	}
	for i := 1; i < len(days); i++ {
		if !days[i].After(days[i-1]) {
			t.Errorf("sampled days not strictly increasing at index %d", i)
		}
	}
}
