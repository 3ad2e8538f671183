package calendar

import (
	"fmt"
	"strings"
	"time"
)

// Clock supplies the current time. Production code uses System; tests fix
// "now" with Fixed.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// System returns the wall clock
func System() Clock { return systemClock{} }

// Fixed is a Clock pinned to a single instant
type Fixed struct {
	Instant time.Time
}

func (f Fixed) Now() time.Time { return f.Instant }

// WallClock is a timezone-less time of day
type WallClock struct {
	Hour   int
	Minute int
}

// wall-clock layouts accepted on input, tried in order
var wallClockLayouts = []string{
	"15:04",
	"15:04:05",
	"3:04 PM",
	"3:04PM",
	"03:04 PM",
	"3 PM",
}

// ParseWallClock parses a time-of-day string in either 24-hour or 12-hour
// meridiem notation and normalizes it to a WallClock
func ParseWallClock(s string) (WallClock, error) {
	trimmed := strings.ToUpper(strings.TrimSpace(s))
	for _, layout := range wallClockLayouts {
		if t, err := time.Parse(layout, trimmed); err == nil {
			return WallClock{Hour: t.Hour(), Minute: t.Minute()}, nil
		}
	}
	return WallClock{}, fmt.Errorf("unrecognized time of day: %q", s)
}

// String formats the wall clock in normalized 24-hour "HH:MM" form
func (w WallClock) String() string {
	return fmt.Sprintf("%02d:%02d", w.Hour, w.Minute)
}

// Minutes returns the minute offset from midnight
func (w WallClock) Minutes() int {
	return w.Hour*60 + w.Minute
}

// DateMarker normalizes a time to its calendar date as a midnight-UTC
// marker, discarding the clock and zone. Two times in different zones map
// to the same marker iff they print the same calendar date.
func DateMarker(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Today returns the current calendar date in loc as a midnight-UTC marker
func Today(clock Clock, loc *time.Location) time.Time {
	return DateMarker(clock.Now().In(loc))
}

// NextDate returns the calendar day after the given date marker
func NextDate(date time.Time) time.Time {
	return date.AddDate(0, 0, 1)
}

// AddDays shifts a date marker by n calendar days
func AddDays(date time.Time, n int) time.Time {
	return date.AddDate(0, 0, n)
}

// MinDate returns the earlier of two date markers
func MinDate(a, b time.Time) time.Time {
	if b.Before(a) {
		return b
	}
	return a
}

// MaxDate returns the later of two date markers
func MaxDate(a, b time.Time) time.Time {
	if b.After(a) {
		return b
	}
	return a
}

// DaysBetween returns the number of whole days from a to b (negative when b
// precedes a). Both arguments must be date markers.
func DaysBetween(a, b time.Time) int {
	return int(b.Sub(a).Hours() / 24)
}

// InstantAt combines a calendar date marker with a local wall-clock time in
// loc, producing an absolute instant. DST gaps and folds resolve the way
// time.Date does.
func InstantAt(date time.Time, w WallClock, loc *time.Location) time.Time {
	y, m, d := date.Date()
	return time.Date(y, m, d, w.Hour, w.Minute, 0, 0, loc)
}

// InstantRange resolves a local start/end wall-clock pair on the given date
// to an absolute [start, end) instant pair. An end at or before the start is
// taken to cross midnight into the next calendar day.
func InstantRange(date time.Time, start, end WallClock, loc *time.Location) (time.Time, time.Time) {
	startAt := InstantAt(date, start, loc)
	endAt := InstantAt(date, end, loc)
	if !endAt.After(startAt) {
		endAt = InstantAt(NextDate(date), end, loc)
	}
	return startAt, endAt
}

// StartOfDay returns midnight of the date marker's calendar day in loc
func StartOfDay(date time.Time, loc *time.Location) time.Time {
	return InstantAt(date, WallClock{}, loc)
}

// EndOfDay returns the first instant of the following day in loc
func EndOfDay(date time.Time, loc *time.Location) time.Time {
	return StartOfDay(NextDate(date), loc)
}

// Overlaps reports whether two half-open instant intervals [aStart,aEnd) and
// [bStart,bEnd) intersect
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && bStart.Before(aEnd)
}
