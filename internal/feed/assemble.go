package feed

import (
	"slices"
	"time"

	"eventfeed/internal/filter"
	"eventfeed/internal/model"
)

const (
	// UpcomingDays is the length of the upcoming window in days.
	UpcomingDays = 7
	// UpcomingLimit caps the upcoming window.
	UpcomingLimit = 10
)

// Assemble runs the full pipeline: eligibility, criteria match, ordering.
func Assemble(raw []model.EventRecord, c model.FilterCriteria, now time.Time, shuffle Shuffler) []model.EventRecord {
	return Order(filter.MatchAll(filter.Eligible(raw, now), c), c, shuffle)
}

// Upcoming returns eligible instant-start events starting within the next
// UpcomingDays days, earliest first, capped at UpcomingLimit.
// It is empty whenever any criteria are active.
func Upcoming(raw []model.EventRecord, c model.FilterCriteria, now time.Time) []model.EventRecord {
	if filter.HasActiveCriteria(c) {
		return nil
	}

	loc := now.Location()
	horizon := model.Day(now).AddDate(0, 0, UpcomingDays)

	var ks []keyed
	for _, e := range raw {
		if e.Type.IsSpan() || !filter.IsEligible(e, now) {
			continue
		}
		day, ok := model.At(e.StartDate, "", loc)
		if !ok || day.After(horizon) {
			continue
		}
		at, _ := model.At(e.StartDate, e.StartTime, loc)
		ks = append(ks, keyed{event: e, key: at, ok: true})
	}

	slices.SortStableFunc(ks, func(a, b keyed) int { return a.key.Compare(b.key) })
	if len(ks) > UpcomingLimit {
		ks = ks[:UpcomingLimit]
	}

	out := make([]model.EventRecord, len(ks))
	for i, k := range ks {
		out[i] = k.event
	}
	return out
}
