package schedule

import (
	"time"

	"github.com/careslot/scheduling/internal/calendar"
	"github.com/careslot/scheduling/internal/logger"
)

// Caps are the engine's bounded-iteration limits and defaults. They are
// safety valves rather than principled limits, so they stay configurable.
type Caps struct {
	// GenerationWindowDays bounds the initial materialization window
	// (today inclusive).
	GenerationWindowDays int `yaml:"generation_window_days"`
	// AdvanceHorizonDays bounds how far past today the daily advance
	// extends the window.
	AdvanceHorizonDays int `yaml:"advance_horizon_days"`
	// OverlapSampleDays caps how many shared active days the overlap
	// detector tests per candidate pair.
	OverlapSampleDays int `yaml:"overlap_sample_days"`
	// WeekdayScanDays caps day iteration when deriving active days over a
	// bounded range.
	WeekdayScanDays int `yaml:"weekday_scan_days"`
	// DefaultSlotMinutes applies when a provider profile carries no slot
	// length.
	DefaultSlotMinutes int `yaml:"default_slot_minutes"`
}

// DefaultCaps returns the production limits
func DefaultCaps() Caps {
	return Caps{
		GenerationWindowDays: 14,
		AdvanceHorizonDays:   13,
		OverlapSampleDays:    7,
		WeekdayScanDays:      365,
		DefaultSlotMinutes:   30,
	}
}

// Engine implements conflict detection, initial slot materialization, and
// window advancement over persisted availabilities. It is stateless between
// calls; all state lives in the stores.
type Engine struct {
	availabilities AvailabilityStore
	slots          SlotStore
	profiles       ProfileStore
	clock          calendar.Clock
	caps           Caps
	logger         *logger.Logger
}

// NewEngine creates an engine over the given stores
func NewEngine(availabilities AvailabilityStore, slots SlotStore, profiles ProfileStore, clock calendar.Clock, caps Caps, log *logger.Logger) *Engine {
	if clock == nil {
		clock = calendar.System()
	}
	return &Engine{
		availabilities: availabilities,
		slots:          slots,
		profiles:       profiles,
		clock:          clock,
		caps:           caps,
		logger:         log,
	}
}

func (e *Engine) slotMinutes(profileMinutes int) time.Duration {
	minutes := profileMinutes
	if minutes <= 0 {
		minutes = e.caps.DefaultSlotMinutes
	}
	return time.Duration(minutes) * time.Minute
}
