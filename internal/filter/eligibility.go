package filter

import (
	"time"

	"eventfeed/internal/model"
)

// IsEligible reports whether an event may currently appear in the open feed.
//
// Span types (exhibition, volunteering, internship) stay visible until the end
// of their end date. Every other type is visible while its start date is in
// the future, or on the start date itself until the start time passes.
// Events with a missing or unparseable required date are never eligible.
func IsEligible(e model.EventRecord, now time.Time) bool {
	if !e.Published || e.Deactivated || e.Visibility != model.VisibilityPublic {
		return false
	}

	loc := now.Location()
	if e.Type.IsSpan() {
		end, ok := model.EndOfDay(e.EndDate, loc)
		return ok && !end.Before(now)
	}

	start, ok := model.At(e.StartDate, "", loc)
	if !ok {
		return false
	}
	today := model.Day(now)
	switch {
	case start.After(today):
		return true
	case start.Equal(today):
		at, _ := model.At(e.StartDate, e.StartTime, loc)
		return !at.Before(now)
	default:
		return false
	}
}

// Eligible returns the eligible events, preserving order.
func Eligible(events []model.EventRecord, now time.Time) []model.EventRecord {
	out := make([]model.EventRecord, 0, len(events))
	for _, e := range events {
		if IsEligible(e, now) {
			out = append(out, e)
		}
	}
	return out
}
