package seed

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"eventfeed/internal/model"
	"eventfeed/internal/storage"
)

var seedDay = time.Date(2026, time.October, 16, 12, 0, 0, 0, time.UTC)

func newTestStore(t *testing.T) *storage.SQLite {
	t.Helper()
	s, err := storage.NewSQLite(":memory:")
	if err != nil {
		t.Fatalf("new sqlite: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestLoadFileRecords(t *testing.T) {
	f, err := LoadFile("../../testdata/seed.yaml")
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}

	got, err := f.Records(seedDay)
	if err != nil {
		t.Fatalf("Records() error = %v", err)
	}

	created := time.Date(2026, time.September, 1, 10, 0, 0, 0, time.UTC)
	want := []model.EventRecord{
		{
			ID: "career-fair", OwnerID: "org-youth", Name: "Career Fair",
			Description: "Meet employers from 40 companies.", Category: "Career", Subcategory: "Job Fair",
			Region: "Baku", Type: model.TypeConference, StartDate: "2026-10-21", StartTime: "10:00",
			Payment: model.PaymentFree, Document: model.DocumentCertificate,
			Visibility: model.VisibilityPublic, Published: true,
		},
		{
			ID: "modern-art", OwnerID: "org-museum", Name: "Modern Azerbaijani Art",
			Category: "Entertainment", Subcategory: "Exhibition", Region: "Ganja",
			Type: model.TypeExhibition, StartDate: "2026-10-06", EndDate: "2026-11-05",
			Payment: model.PaymentPaid, Document: model.DocumentNone,
			Visibility: model.VisibilityPublic, Published: true,
		},
		{
			ID: "python-workshop", OwnerID: "org-youth", Name: "Python Workshop",
			Category: "Education", Subcategory: "Workshop", Region: "Baku",
			Type: model.TypeWorkshop, StartDate: "2026-12-01", StartTime: "14:30",
			Payment: model.PaymentStateSupported, Document: model.DocumentParticipationProof,
			Visibility: model.VisibilityPublic, Published: true, CreatedAt: &created,
		},
		{
			ID: "draft-concert", OwnerID: "org-museum", Name: "Autumn Concert",
			Type: model.TypeConcert, StartDate: "2026-10-19",
			Visibility: model.VisibilityPublic, Published: false,
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Records() mismatch (-want +got):\n%s", diff)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{name: "unknown key", doc: "events:\n  - name: X\n    colour: red\n"},
		{name: "not a mapping", doc: "- just\n- a list\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse(strings.NewReader(tt.doc)); err == nil {
				t.Fatal("expected error, got nil")
			}
		})
	}
}

func TestRecordsErrors(t *testing.T) {
	tests := []struct {
		name  string
		event Event
	}{
		{name: "missing name", event: Event{StartDate: "today"}},
		{name: "bad start date", event: Event{Name: "X", StartDate: "next week"}},
		{name: "bad end date", event: Event{Name: "X", EndDate: "+3w"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &Fixture{Events: []Event{tt.event}}
			if _, err := f.Records(seedDay); err == nil {
				t.Fatal("expected error, got nil")
			}
		})
	}
}

func TestApply(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	f, err := LoadFile("../../testdata/seed.yaml")
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}

	for run := 0; run < 2; run++ {
		res, err := Apply(ctx, store, f, seedDay)
		if err != nil {
			t.Fatalf("Apply() run %d error = %v", run, err)
		}
		want := Result{Events: 4, Follows: 2, Sources: 1}
		if run > 0 {
			want.Sources = 0
		}
		if diff := cmp.Diff(want, res); diff != "" {
			t.Errorf("Apply() run %d mismatch (-want +got):\n%s", run, diff)
		}
	}

	events, err := store.ListEvents(ctx, storage.EventQuery{})
	if err != nil {
		t.Fatalf("list events: %v", err)
	}
	var ids []string
	for _, e := range events {
		ids = append(ids, e.ID)
	}
	sorted := cmpopts.SortSlices(func(a, b string) bool { return a < b })
	if diff := cmp.Diff([]string{"career-fair", "modern-art", "python-workshop"}, ids, sorted); diff != "" {
		t.Errorf("visible events mismatch (-want +got):\n%s", diff)
	}

	follows, err := store.ListFollowedOrganiserIDs(ctx, "user-1")
	if err != nil {
		t.Fatalf("list follows: %v", err)
	}
	if diff := cmp.Diff([]string{"org-museum", "org-youth"}, follows, sorted); diff != "" {
		t.Errorf("follows mismatch (-want +got):\n%s", diff)
	}

	sources, err := store.ListSources(ctx, "org-youth")
	if err != nil {
		t.Fatalf("list sources: %v", err)
	}
	if len(sources) != 1 || sources[0].IntervalMinutes != 30 || !sources[0].IsActive {
		t.Errorf("sources = %+v, want one active source polled every 30 minutes", sources)
	}
}
