package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Wall-clock times are carried as "HH:MM" strings, matching how they are
// stored and displayed. Interval math is done in minutes since midnight.

// MinutesOfDay parses an "HH:MM" string into minutes since midnight.
func MinutesOfDay(s string) (int, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 2 {
		return 0, fmt.Errorf("invalid time format: %s", s)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, fmt.Errorf("invalid hour in %q: %w", s, err)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, fmt.Errorf("invalid minute in %q: %w", s, err)
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, fmt.Errorf("time out of range: %s", s)
	}
	return hour*60 + minute, nil
}

// ClockString formats minutes since midnight as "HH:MM".
func ClockString(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// ISOWeekday returns the ISO day of week for a date (Monday=1 .. Sunday=7).
func ISOWeekday(date time.Time) int {
	wd := int(date.Weekday())
	if wd == 0 {
		return 7
	}
	return wd
}

var weekdayNames = map[int]string{
	1: "Monday",
	2: "Tuesday",
	3: "Wednesday",
	4: "Thursday",
	5: "Friday",
	6: "Saturday",
	7: "Sunday",
}

// WeekdayName returns the English name for an ISO day-of-week number.
func WeekdayName(day int) string {
	return weekdayNames[day]
}

// DateOnly truncates a timestamp to its calendar day.
func DateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// ClockOverlaps reports whether two half-open [start, end) wall-clock
// intervals, in minutes since midnight, share at least one instant.
func ClockOverlaps(start1, end1, start2, end2 int) bool {
	return start1 < end2 && start2 < end1
}
