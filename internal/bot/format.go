package bot

import (
	"fmt"
	"strings"

	"eventfeed/internal/feed"
	"eventfeed/internal/filter"
	"eventfeed/internal/model"
)

const maxMessageLen = 4096

var feedTitles = map[feed.Kind]string{
	feed.KindHome:    "Home",
	feed.KindAll:     "All events",
	feed.KindFollows: "Following",
}

// FormatEvent formats one event as a short multi-line entry.
func FormatEvent(e model.EventRecord) string {
	var b strings.Builder
	b.WriteString(e.Name)
	b.WriteString("\n   ")
	b.WriteString(eventWhen(e))
	if e.Region != "" {
		fmt.Fprintf(&b, ", %s", e.Region)
	}
	details := []string{string(e.Type)}
	if e.Category != "" {
		details = append(details, e.Category)
	}
	if e.Payment != "" {
		details = append(details, paymentLabel(e.Payment))
	}
	if e.Document != "" && e.Document != model.DocumentNone {
		details = append(details, strings.ReplaceAll(string(e.Document), "_", " "))
	}
	fmt.Fprintf(&b, "\n   %s", strings.Join(details, " | "))
	return b.String()
}

// FormatPage formats the events of p starting at index from. Upcoming events
// are listed only with the first page.
func FormatPage(p feed.Page, from int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n%s\n", feedTitles[p.Kind], FormatCriteria(p.Criteria))

	if p.Err != nil {
		b.WriteString("\nCould not load events. Showing previous results.\n")
	}

	if from == 0 && len(p.Upcoming) > 0 {
		b.WriteString("\nUpcoming this week:\n")
		for _, e := range p.Upcoming {
			fmt.Fprintf(&b, "- %s (%s)\n", e.Name, eventWhen(e))
		}
	}

	switch {
	case p.Empty:
		b.WriteString("\nNo events match your filters.")
		return b.String()
	case p.Loading && len(p.Events) == 0:
		b.WriteString("\nLoading...")
		return b.String()
	}

	if from > len(p.Events) {
		from = len(p.Events)
	}
	for i, e := range p.Events[from:] {
		fmt.Fprintf(&b, "\n%d. %s\n", from+i+1, FormatEvent(e))
	}

	fmt.Fprintf(&b, "\nShowing %d of %d.", len(p.Events), p.Total)
	if p.HasMore {
		b.WriteString(" Use /more for the next page.")
	}
	return b.String()
}

// FormatCriteria describes the active filters and sort mode.
func FormatCriteria(c model.FilterCriteria) string {
	var parts []string
	add := func(name, v string) {
		if !model.IsAll(v) {
			parts = append(parts, name+": "+v)
		}
	}
	add("region", c.Region)
	add("category", c.Category)
	add("type", c.Type)
	add("payment", c.Payment)
	add("document", c.Document)
	if c.SearchActive() {
		parts = append(parts, fmt.Sprintf("search: %q", strings.TrimSpace(c.Query)))
	}
	if c.Sort != "" && c.Sort != model.SortNone {
		parts = append(parts, "sort: "+string(c.Sort))
	}
	if len(parts) == 0 {
		return "Filters: none"
	}
	return "Filters: " + strings.Join(parts, ", ")
}

// FormatCategories lists parent categories with their children.
func FormatCategories() string {
	var b strings.Builder
	b.WriteString("Categories:\n")
	for _, parent := range filter.ParentCategories() {
		fmt.Fprintf(&b, "\n%s\n   %s\n", parent, strings.Join(filter.Hierarchy[parent], ", "))
	}
	b.WriteString("\nA parent category also matches its children.")
	return b.String()
}

// FormatRegions lists the known regions.
func FormatRegions() string {
	return "Regions:\n" + strings.Join(model.Regions, "\n")
}

func eventWhen(e model.EventRecord) string {
	when := strings.TrimSpace(e.StartDate + " " + e.StartTime)
	if when == "" {
		when = "date TBA"
	}
	if e.Type.IsSpan() && e.EndDate != "" && e.EndDate != e.StartDate {
		when += " to " + e.EndDate
	}
	return when
}

func paymentLabel(p model.Payment) string {
	switch p {
	case model.PaymentFree:
		return "free"
	case model.PaymentPaid:
		return "paid"
	case model.PaymentStateSupported:
		return "state supported"
	default:
		return string(p)
	}
}

func truncate(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit-3]) + "..."
}
