package calendar

import (
	"testing"
	"time"
	_ "time/tzdata"
)

func TestParseWallClock(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    WallClock
		wantErr bool
	}{
		{name: "24-hour", input: "09:00", want: WallClock{Hour: 9}},
		{name: "24-hour afternoon", input: "14:45", want: WallClock{Hour: 14, Minute: 45}},
		{name: "24-hour with seconds", input: "08:30:15", want: WallClock{Hour: 8, Minute: 30}},
		{name: "meridiem morning", input: "9:30 AM", want: WallClock{Hour: 9, Minute: 30}},
		{name: "meridiem afternoon", input: "2:30 PM", want: WallClock{Hour: 14, Minute: 30}},
		{name: "meridiem zero-padded", input: "09:00 PM", want: WallClock{Hour: 21}},
		{name: "meridiem no space", input: "2:30PM", want: WallClock{Hour: 14, Minute: 30}},
		{name: "meridiem lowercase", input: "9:30 am", want: WallClock{Hour: 9, Minute: 30}},
		{name: "meridiem hour only", input: "3 PM", want: WallClock{Hour: 15}},
		{name: "midnight meridiem", input: "12:00 AM", want: WallClock{}},
		{name: "noon meridiem", input: "12:00 PM", want: WallClock{Hour: 12}},
		{name: "surrounding whitespace", input: "  10:15  ", want: WallClock{Hour: 10, Minute: 15}},
		{name: "out of range hour", input: "25:00", wantErr: true},
		{name: "word", input: "noon", wantErr: true},
		{name: "empty", input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseWallClock(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseWallClock(%q) = %v, expected error", tt.input, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseWallClock(%q) unexpected error: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("ParseWallClock(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestWallClockString(t *testing.T) {
	if got := (WallClock{Hour: 9, Minute: 5}).String(); got != "09:05" {
		t.Errorf("String() = %q, want %q", got, "09:05")
	}
	if got := (WallClock{Hour: 21, Minute: 30}).String(); got != "21:30" {
		t.Errorf("String() = %q, want %q", got, "21:30")
	}
}

func TestDateMarker(t *testing.T) {
	tokyo, err := time.LoadLocation("Asia/Tokyo")
	if err != nil {
		t.Fatalf("failed to load timezone: %v", err)
	}

	// a late local evening keeps its local calendar date
	in := time.Date(2026, time.January, 5, 23, 30, 0, 0, tokyo)
	want := time.Date(2026, time.January, 5, 0, 0, 0, 0, time.UTC)
	if got := DateMarker(in); !got.Equal(want) {
		t.Errorf("DateMarker(%v) = %v, want %v", in, got, want)
	}

	// the same instant viewed in UTC is already the next day
	if got := DateMarker(in.UTC()); !got.Equal(want) {
		t.Errorf("DateMarker(%v) = %v, want %v (instant converted to UTC first)", in.UTC(), got, want)
	}
}

func TestTodayUsesLocationCalendar(t *testing.T) {
	tokyo, err := time.LoadLocation("Asia/Tokyo")
	if err != nil {
		t.Fatalf("failed to load timezone: %v", err)
	}

	// 2026-01-05 22:00 UTC is already 2026-01-06 in Tokyo
	clock := Fixed{Instant: time.Date(2026, time.January, 5, 22, 0, 0, 0, time.UTC)}

	if got, want := Today(clock, time.UTC), time.Date(2026, time.January, 5, 0, 0, 0, 0, time.UTC); !got.Equal(want) {
		t.Errorf("Today(UTC) = %v, want %v", got, want)
	}
	if got, want := Today(clock, tokyo), time.Date(2026, time.January, 6, 0, 0, 0, 0, time.UTC); !got.Equal(want) {
		t.Errorf("Today(Tokyo) = %v, want %v", got, want)
	}
}

func TestInstantRange(t *testing.T) {
	day := time.Date(2026, time.March, 2, 0, 0, 0, 0, time.UTC)

	start, end := InstantRange(day, WallClock{Hour: 9}, WallClock{Hour: 17}, time.UTC)
	if !start.Equal(time.Date(2026, time.March, 2, 9, 0, 0, 0, time.UTC)) {
		t.Errorf("start = %v", start)
	}
	if !end.Equal(time.Date(2026, time.March, 2, 17, 0, 0, 0, time.UTC)) {
		t.Errorf("end = %v", end)
	}
}

func TestInstantRangeCrossesMidnight(t *testing.T) {
	day := time.Date(2026, time.March, 2, 0, 0, 0, 0, time.UTC)

	// an end at or before the start rolls into the next calendar day
	start, end := InstantRange(day, WallClock{Hour: 22}, WallClock{Hour: 2}, time.UTC)
	if !start.Equal(time.Date(2026, time.March, 2, 22, 0, 0, 0, time.UTC)) {
		t.Errorf("start = %v", start)
	}
	if !end.Equal(time.Date(2026, time.March, 3, 2, 0, 0, 0, time.UTC)) {
		t.Errorf("end = %v, expected 02:00 the following day", end)
	}
	if !end.After(start) {
		t.Error("midnight-crossing range must still be forward")
	}
}

func TestInstantRangeInZone(t *testing.T) {
	addis, err := time.LoadLocation("Africa/Addis_Ababa")
	if err != nil {
		t.Fatalf("failed to load timezone: %v", err)
	}

	day := time.Date(2026, time.March, 2, 0, 0, 0, 0, time.UTC)
	start, _ := InstantRange(day, WallClock{Hour: 8}, WallClock{Hour: 12}, addis)

	// Addis Ababa is UTC+3 year round
	if want := time.Date(2026, time.March, 2, 5, 0, 0, 0, time.UTC); !start.UTC().Equal(want) {
		t.Errorf("start = %v in UTC, want %v", start.UTC(), want)
	}
}

func TestOverlaps(t *testing.T) {
	at := func(h int) time.Time {
		return time.Date(2026, time.March, 2, h, 0, 0, 0, time.UTC)
	}

	tests := []struct {
		name                           string
		aStart, aEnd, bStart, bEnd     time.Time
		want                           bool
	}{
		{"identical", at(9), at(10), at(9), at(10), true},
		{"partial", at(9), at(11), at(10), at(12), true},
		{"contained", at(9), at(17), at(12), at(13), true},
		{"adjacent half-open", at(9), at(10), at(10), at(11), false},
		{"disjoint", at(9), at(10), at(14), at(15), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Overlaps(tt.aStart, tt.aEnd, tt.bStart, tt.bEnd); got != tt.want {
				t.Errorf("Overlaps = %v, want %v", got, tt.want)
			}
			// overlap is symmetric
			if got := Overlaps(tt.bStart, tt.bEnd, tt.aStart, tt.aEnd); got != tt.want {
				t.Errorf("Overlaps (swapped) = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDaysBetween(t *testing.T) {
	a := time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC)
	b := time.Date(2026, time.March, 15, 0, 0, 0, 0, time.UTC)
	if got := DaysBetween(a, b); got != 14 {
		t.Errorf("DaysBetween = %d, want 14", got)
	}
	if got := DaysBetween(b, a); got != -14 {
		t.Errorf("DaysBetween reversed = %d, want -14", got)
	}
	if got := DaysBetween(a, a); got != 0 {
		t.Errorf("DaysBetween same day = %d, want 0", got)
	}
}
