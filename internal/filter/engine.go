// Package filter implements the event eligibility and criteria matching engine.
package filter

import (
	"strings"

	"eventfeed/internal/model"
)

// Match checks whether an event satisfies every constraint of the criteria.
// Sentinel values match anything; region, type, payment and document
// otherwise require exact equality. Category resolves through Hierarchy.
func Match(e model.EventRecord, c model.FilterCriteria) bool {
	return matchesExact(e.Region, c.Region) &&
		matchesExact(string(e.Type), c.Type) &&
		matchesExact(string(e.Payment), c.Payment) &&
		matchesExact(string(e.Document), c.Document) &&
		MatchCategory(e.Category, c.Category) &&
		matchesQuery(e, c.Query)
}

// MatchAll returns the events that satisfy the criteria, preserving order.
func MatchAll(events []model.EventRecord, c model.FilterCriteria) []model.EventRecord {
	matched := make([]model.EventRecord, 0, len(events))
	for _, e := range events {
		if Match(e, c) {
			matched = append(matched, e)
		}
	}
	return matched
}

// HasActiveCriteria reports whether any filter, sort or search is set.
// The same flag disables shuffling and suppresses the upcoming window.
func HasActiveCriteria(c model.FilterCriteria) bool {
	if !model.IsAll(c.Region) || !model.IsAll(c.Category) || !model.IsAll(c.Type) ||
		!model.IsAll(c.Payment) || !model.IsAll(c.Document) {
		return true
	}
	if c.Sort != "" && c.Sort != model.SortNone {
		return true
	}
	return c.SearchActive()
}

func matchesExact(value, want string) bool {
	if model.IsAll(want) {
		return true
	}
	return value == want
}

func matchesQuery(e model.EventRecord, query string) bool {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return true
	}
	for _, text := range []string{e.Name, e.Description, e.Region} {
		if strings.Contains(strings.ToLower(text), q) {
			return true
		}
	}
	return false
}
