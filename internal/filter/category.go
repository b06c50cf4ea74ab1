package filter

import (
	"slices"

	"eventfeed/internal/model"
)

// Hierarchy maps each parent category to the child categories it stands for.
var Hierarchy = map[string][]string{
	"Entertainment": {"Concert", "Theatre", "Festival", "Film", "Game Night", "Stand-up", "Music", "Dance"},
	"Career":        {"Seminar", "Conference", "Workshop", "Networking", "Training", "Mentorship", "Job Fair", "Startup"},
	"Education":     {"Lecture", "Course", "Olympiad", "Hackathon", "Quiz", "Book Club"},
	"Sport":         {"Marathon", "Tournament", "Fitness", "Yoga", "Cycling", "Hiking"},
}

// MatchCategory reports whether an event category satisfies the wanted one.
// A parent matches itself and its children; any other value needs equality.
func MatchCategory(category, want string) bool {
	if model.IsAll(want) {
		return true
	}
	if children, ok := Hierarchy[want]; ok {
		return category == want || slices.Contains(children, category)
	}
	return category == want
}

// ParentCategories returns the parent category names in sorted order.
func ParentCategories() []string {
	names := make([]string, 0, len(Hierarchy))
	for name := range Hierarchy {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// ParentOf returns the parent of a child category, or "" if it has none.
func ParentOf(category string) string {
	for parent, children := range Hierarchy {
		if slices.Contains(children, category) {
			return parent
		}
	}
	return ""
}
