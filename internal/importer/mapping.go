package importer

import (
	"crypto/sha256"
	"fmt"
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/mmcdole/gofeed"

	"eventfeed/internal/model"
)

// ItemGUID returns the GUID for a feed item.
// If the item has no GUID, a SHA-256 hash of title+link is used.
func ItemGUID(item *gofeed.Item) string {
	if item.GUID != "" {
		return item.GUID
	}
	h := sha256.Sum256([]byte(item.Title + "|" + item.Link))
	return fmt.Sprintf("sha256:%x", h[:16])
}

// EventID derives a stable event id from the source and item GUID.
func EventID(sourceID int64, guid string) string {
	h := sha256.Sum256(fmt.Appendf(nil, "%d|%s", sourceID, guid))
	return fmt.Sprintf("src%d-%x", sourceID, h[:8])
}

// Mapper turns feed items into event records.
type Mapper struct {
	policy *bluemonday.Policy
}

// NewMapper returns a Mapper that strips all markup from descriptions.
func NewMapper() *Mapper {
	return &Mapper{policy: bluemonday.StrictPolicy()}
}

// ToEvent maps an item of src to an event. Event fields are read from item
// elements named region, type, start_date, start_time, end_date, end_time,
// payment, document and visibility, with or without a namespace prefix.
// The first item category is the event category, the second its subcategory.
// Items without a title are skipped.
func (m *Mapper) ToEvent(src model.Source, item *gofeed.Item) (model.EventRecord, bool) {
	name := strings.TrimSpace(item.Title)
	if name == "" {
		return model.EventRecord{}, false
	}

	e := model.EventRecord{
		ID:          EventID(src.ID, ItemGUID(item)),
		OwnerID:     src.OwnerID,
		Name:        name,
		Description: m.clean(item.Description),
		Region:      field(item, "region"),
		Type:        model.EventType(strings.ToLower(field(item, "type"))),
		StartDate:   field(item, "start_date"),
		StartTime:   field(item, "start_time"),
		EndDate:     field(item, "end_date"),
		EndTime:     field(item, "end_time"),
		Payment:     model.Payment(strings.ToLower(field(item, "payment"))),
		Document:    model.DocumentType(strings.ToLower(field(item, "document"))),
		Visibility:  model.Visibility(strings.ToLower(field(item, "visibility"))),
		Published:   true,
	}
	if e.Description == "" {
		e.Description = m.clean(item.Content)
	}
	if e.Type == "" {
		e.Type = model.TypeOther
	}
	if e.Visibility == "" {
		e.Visibility = model.VisibilityPublic
	}
	if len(item.Categories) > 0 {
		e.Category = strings.TrimSpace(item.Categories[0])
	}
	if len(item.Categories) > 1 {
		e.Subcategory = strings.TrimSpace(item.Categories[1])
	}
	if item.PublishedParsed != nil {
		created := item.PublishedParsed.UTC()
		e.CreatedAt = &created
	}
	return e, true
}

func (m *Mapper) clean(s string) string {
	return strings.TrimSpace(html.UnescapeString(m.policy.Sanitize(s)))
}

// field looks an element up among plain custom elements first, then among
// namespaced extensions.
func field(item *gofeed.Item, name string) string {
	if v, ok := item.Custom[name]; ok {
		return strings.TrimSpace(v)
	}
	for _, ns := range item.Extensions {
		if exts := ns[name]; len(exts) > 0 {
			return strings.TrimSpace(exts[0].Value)
		}
	}
	return ""
}
