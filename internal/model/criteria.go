package model

import "strings"

// SortMode selects an explicit ordering for a feed.
type SortMode string

// Supported sort modes.
const (
	SortNone              SortMode = "none"
	SortDateAscending     SortMode = "date_asc"
	SortDateDescending    SortMode = "date_desc"
	SortRecencyDescending SortMode = "recent"
)

// FilterCriteria is the user-selected filter and sort configuration of one feed view.
// Empty fields behave like the All sentinel.
type FilterCriteria struct {
	Region   string
	Category string
	Type     string
	Payment  string
	Document string
	Query    string
	Sort     SortMode
}

// DefaultCriteria returns criteria with every field at its sentinel.
func DefaultCriteria() FilterCriteria {
	return FilterCriteria{
		Region:   All,
		Category: All,
		Type:     All,
		Payment:  All,
		Document: All,
		Sort:     SortNone,
	}
}

// IsAll reports whether a criteria value places no constraint.
func IsAll(v string) bool {
	return v == "" || strings.EqualFold(v, All)
}

// SearchActive reports whether a non-blank free-text query is set.
func (c FilterCriteria) SearchActive() bool {
	return strings.TrimSpace(c.Query) != ""
}

// ParseSortMode maps user input to a SortMode.
func ParseSortMode(s string) (SortMode, bool) {
	switch SortMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", SortNone:
		return SortNone, true
	case SortDateAscending:
		return SortDateAscending, true
	case SortDateDescending:
		return SortDateDescending, true
	case SortRecencyDescending:
		return SortRecencyDescending, true
	}
	return "", false
}
