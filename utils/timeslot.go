package utils

import (
	"fmt"
	"time"
)

// Overlaps reports whether the half-open intervals [aStart, aEnd) and
// [bStart, bEnd) share any interior point. Touching intervals (end == start)
// do not overlap, so back-to-back slots never conflict.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && bStart.Before(aEnd)
}

func AddMinutes(t time.Time, mins int) time.Time {
	return t.Add(time.Duration(mins) * time.Minute)
}

// ParseLocalDate parses "YYYY-MM-DD" as midnight in loc. The caller decides
// which zone applies; no conversion happens here.
func ParseLocalDate(s string, loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation("2006-01-02", s, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return t, nil
}

// ParseHHMM converts "HH:MM" wall-clock time to minutes since midnight.
func ParseHHMM(s string) (int, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, fmt.Errorf("invalid time %q: %w", s, err)
	}
	return t.Hour()*60 + t.Minute(), nil
}

func FormatHHMM(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}
