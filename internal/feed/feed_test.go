package feed

import (
	"time"

	"eventfeed/internal/model"
)

var baku = time.FixedZone("AZT", 4*60*60)

// now is 2026-10-16 12:00 in Baku.
var now = time.Date(2026, time.October, 16, 12, 0, 0, 0, baku)

func event(id string, typ model.EventType, start string) model.EventRecord {
	return model.EventRecord{
		ID:         id,
		Name:       "Event " + id,
		Type:       typ,
		StartDate:  start,
		Visibility: model.VisibilityPublic,
		Published:  true,
	}
}

func ids(events []model.EventRecord) []string {
	out := make([]string, len(events))
	for i, e := range events {
		out[i] = e.ID
	}
	return out
}

func day(offset int) string {
	return now.AddDate(0, 0, offset).Format("2006-01-02")
}
