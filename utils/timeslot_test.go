package utils

import (
	"testing"
	"time"
)

func TestOverlapsTouchingIntervals(t *testing.T) {
	base := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	aEnd := base.Add(time.Hour)
	bEnd := aEnd.Add(time.Hour)

	// [10:00, 11:00) and [11:00, 12:00) share no interior point.
	if Overlaps(base, aEnd, aEnd, bEnd) {
		t.Error("touching intervals must not overlap")
	}
	if Overlaps(aEnd, bEnd, base, aEnd) {
		t.Error("touching intervals must not overlap (reversed)")
	}
}

func TestOverlaps(t *testing.T) {
	base := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	at := func(mins int) time.Time { return AddMinutes(base, mins) }

	cases := []struct {
		name                       string
		aStart, aEnd, bStart, bEnd int
		want                       bool
	}{
		{"identical", 0, 60, 0, 60, true},
		{"contained", 0, 60, 15, 45, true},
		{"partial", 0, 60, 30, 90, true},
		{"disjoint", 0, 60, 120, 180, false},
		{"one minute shared", 0, 60, 59, 120, true},
	}
	for _, c := range cases {
		got := Overlaps(at(c.aStart), at(c.aEnd), at(c.bStart), at(c.bEnd))
		if got != c.want {
			t.Errorf("%s: got %v, want %v", c.name, got, c.want)
		}
	}
}

func TestParseHHMM(t *testing.T) {
	mins, err := ParseHHMM("10:30")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if mins != 630 {
		t.Errorf("got %d, want 630", mins)
	}

	if _, err := ParseHHMM("25:00"); err == nil {
		t.Error("expected error for 25:00")
	}
	if _, err := ParseHHMM("10:30:00"); err == nil {
		t.Error("expected error for seconds")
	}
}

func TestFormatHHMM(t *testing.T) {
	if got := FormatHHMM(630); got != "10:30" {
		t.Errorf("got %q, want 10:30", got)
	}
	if got := FormatHHMM(5); got != "00:05" {
		t.Errorf("got %q, want 00:05", got)
	}
}

func TestParseLocalDate(t *testing.T) {
	loc, err := time.LoadLocation("America/Chicago")
	if err != nil {
		t.Fatal(err)
	}

	day, err := ParseLocalDate("2026-03-02", loc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if day.Hour() != 0 || day.Location() != loc {
		t.Errorf("expected midnight in %v, got %v", loc, day)
	}

	if _, err := ParseLocalDate("03/02/2026", loc); err == nil {
		t.Error("expected error for non-ISO date")
	}
}
