package schedule

import (
	"errors"
	"io"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/google/uuid"

	"github.com/careslot/scheduling/internal/calendar"
	"github.com/careslot/scheduling/internal/logger"
	"github.com/careslot/scheduling/internal/models"
)

// errDeadConn simulates a storage outage in batch-insert fallback tests
var errDeadConn = errors.New("driver: bad connection")

func testLogger() *logger.Logger {
	return logger.New("error", io.Discard)
}

func newTestEngine(store *memStore, clock calendar.Clock) *Engine {
	return NewEngine(store.avails(), store.slotStore(), store.profileStore(), clock, DefaultCaps(), testLogger())
}

func newTestService(store *memStore, clock calendar.Clock, events EventPublisher) *Service {
	engine := newTestEngine(store, clock)
	return NewService(engine, store.avails(), store.slotStore(), store.profileStore(), events, clock, testLogger())
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func dateP(y int, m time.Month, d int) *time.Time {
	t := date(y, m, d)
	return &t
}

func mustLoc(t *testing.T, name string) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation(name)
	if err != nil {
		t.Fatalf("failed to load timezone %s: %v", name, err)
	}
	return loc
}

func seedProfile(store *memStore, providerID, locationID uuid.UUID, tz string, slotMinutes int) {
	store.putProfile(&models.ProviderProfile{
		ProviderID:  providerID,
		LocationID:  locationID,
		Timezone:    tz,
		SlotMinutes: slotMinutes,
	})
}
