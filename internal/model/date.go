package model

import (
	"strconv"
	"strings"
	"time"
)

// dateLayouts are tried in order by ParseDate.
var dateLayouts = []string{
	"2006-01-02",
	"02.01.2006",
	time.RFC3339,
	"2006-01-02T15:04:05",
}

// ParseDate parses a stored date string into midnight UTC of its civil date.
// It reports false for empty or unparseable input instead of failing.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		t, err := time.Parse(layout, s)
		if err != nil {
			continue
		}
		y, m, d := t.Date()
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), true
	}
	return time.Time{}, false
}

// ParseClock splits an "HH:MM" string into hour and minute.
// Malformed or out-of-range input yields 00:00.
func ParseClock(s string) (hour, minute int) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 {
		return 0, 0
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, 0
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, 0
	}
	return h, m
}

// At combines a stored date and time into an instant in loc.
func At(date, clock string, loc *time.Location) (time.Time, bool) {
	d, ok := ParseDate(date)
	if !ok {
		return time.Time{}, false
	}
	h, m := ParseClock(clock)
	return time.Date(d.Year(), d.Month(), d.Day(), h, m, 0, 0, loc), true
}

// EndOfDay returns the last instant of the stored date in loc.
func EndOfDay(date string, loc *time.Location) (time.Time, bool) {
	d, ok := ParseDate(date)
	if !ok {
		return time.Time{}, false
	}
	return time.Date(d.Year(), d.Month(), d.Day(), 23, 59, 59, int(time.Second-1), loc), true
}

// Day truncates t to midnight in its own location.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
