package feed

import (
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"eventfeed/internal/model"
)

func TestAssembleRegionScenario(t *testing.T) {
	a := event("A", model.TypeExhibition, day(-10))
	a.EndDate = day(3)
	b := event("B", model.TypeSeminar, day(-1))
	b.Region = "Baku"
	c := event("C", model.TypeSeminar, day(2))
	c.Region = "Baku"

	criteria := model.DefaultCriteria()
	criteria.Region = "Baku"

	tests := []struct {
		name    string
		regionA string
		want    []string
	}{
		{name: "A elsewhere", regionA: "Ganja", want: []string{"C"}},
		{name: "A in Baku", regionA: "Baku", want: []string{"A", "C"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ea := a
			ea.Region = tt.regionA
			got := Assemble([]model.EventRecord{ea, b, c}, criteria, now, nil)
			if diff := cmp.Diff(tt.want, ids(got)); diff != "" {
				t.Errorf("Assemble() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestAssembleDefaultCriteriaKeepsEligibleSet(t *testing.T) {
	private := event("private", model.TypeSeminar, day(1))
	private.Visibility = model.VisibilityPrivate
	raw := []model.EventRecord{
		event("past", model.TypeSeminar, day(-1)),
		event("next", model.TypeSeminar, day(1)),
		event("later", model.TypeConcert, day(30)),
		private,
	}

	got := Assemble(raw, model.DefaultCriteria(), now, NewRandShuffler(3))
	sorted := cmpopts.SortSlices(func(a, b string) bool { return a < b })
	if diff := cmp.Diff([]string{"later", "next"}, ids(got), sorted); diff != "" {
		t.Errorf("Assemble() mismatch (-want +got):\n%s", diff)
	}
}

func TestUpcoming(t *testing.T) {
	span := event("span", model.TypeExhibition, day(1))
	span.EndDate = day(5)
	todayLater := event("today", model.TypeSeminar, day(0))
	todayLater.StartTime = "18:30"
	todayEarlier := event("gone", model.TypeSeminar, day(0))
	todayEarlier.StartTime = "09:00"
	morning := event("morning", model.TypeConcert, day(2))
	morning.StartTime = "08:00"
	evening := event("evening", model.TypeConcert, day(2))
	evening.StartTime = "20:00"

	raw := []model.EventRecord{
		evening,
		event("edge", model.TypeWorkshop, day(UpcomingDays)),
		event("far", model.TypeWorkshop, day(UpcomingDays+1)),
		span,
		todayEarlier,
		morning,
		todayLater,
	}

	got := Upcoming(raw, model.DefaultCriteria(), now)
	want := []string{"today", "morning", "evening", "edge"}
	if diff := cmp.Diff(want, ids(got)); diff != "" {
		t.Errorf("Upcoming() mismatch (-want +got):\n%s", diff)
	}
}

func TestUpcomingCap(t *testing.T) {
	var raw []model.EventRecord
	for i := 0; i < 15; i++ {
		e := event(fmt.Sprintf("e%02d", i), model.TypeSeminar, day(1))
		e.StartTime = fmt.Sprintf("%02d:00", 23-i)
		raw = append(raw, e)
	}

	got := Upcoming(raw, model.DefaultCriteria(), now)
	if len(got) != UpcomingLimit {
		t.Fatalf("len(Upcoming()) = %d, want %d", len(got), UpcomingLimit)
	}
	if got[0].ID != "e14" || got[UpcomingLimit-1].ID != "e05" {
		t.Errorf("Upcoming() = %v, want e14..e05", ids(got))
	}
}

func TestUpcomingEmptyWithActiveCriteria(t *testing.T) {
	e := event("x", model.TypeSeminar, day(1))
	e.Region = "Baku"
	raw := []model.EventRecord{e}

	tests := []struct {
		name   string
		modify func(c *model.FilterCriteria)
	}{
		{name: "region", modify: func(c *model.FilterCriteria) { c.Region = "Baku" }},
		{name: "sort", modify: func(c *model.FilterCriteria) { c.Sort = model.SortDateAscending }},
		{name: "search", modify: func(c *model.FilterCriteria) { c.Query = "event" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := model.DefaultCriteria()
			tt.modify(&c)
			if got := Upcoming(raw, c, now); len(got) != 0 {
				t.Errorf("Upcoming() = %v, want empty", ids(got))
			}
		})
	}
}
