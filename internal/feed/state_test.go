package feed

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"eventfeed/internal/model"
)

type fakeFetcher struct {
	mu     sync.Mutex
	events []model.EventRecord
	err    error
	calls  int
	// gate, when set, blocks Fetch until a value is received.
	gate chan struct{}
}

func (f *fakeFetcher) Fetch(ctx context.Context, _ model.Scope) ([]model.EventRecord, error) {
	f.mu.Lock()
	f.calls++
	gate := f.gate
	events, err := f.events, f.err
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return events, err
}

func (f *fakeFetcher) set(events []model.EventRecord, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events, f.err = events, err
}

func upcomingEvents(n int) []model.EventRecord {
	out := make([]model.EventRecord, n)
	for i := range out {
		e := event(fmt.Sprintf("e%02d", i), model.TypeSeminar, day(1+i%20))
		if i%2 == 0 {
			e.Region = "Baku"
		}
		out[i] = e
	}
	return out
}

func newTestState(f Fetcher, kind Kind, pageSize int) *State {
	return NewState(f, Options{
		Kind:     kind,
		PageSize: pageSize,
		Now:      func() time.Time { return now },
		Shuffler: NewRandShuffler(1),
	})
}

func TestStateRefreshAndPaging(t *testing.T) {
	f := &fakeFetcher{events: upcomingEvents(47)}
	s := newTestState(f, KindAll, 20)
	ctx := context.Background()

	if err := s.Refresh(ctx); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}

	var got []int
	page := s.Page()
	got = append(got, len(page.Events))
	for i := 0; i < 3; i++ {
		s.LoadMore(ctx)
		got = append(got, len(s.Page().Events))
	}

	if diff := cmp.Diff([]int{20, 40, 47, 47}, got); diff != "" {
		t.Errorf("page sizes mismatch (-want +got):\n%s", diff)
	}
	if s.Page().HasMore {
		t.Error("HasMore = true after exhausting the list")
	}
	if page.Total != 47 {
		t.Errorf("Total = %d, want 47", page.Total)
	}
}

func TestStateRefreshErrorKeepsPreviousList(t *testing.T) {
	f := &fakeFetcher{events: upcomingEvents(5)}
	s := newTestState(f, KindAll, 20)
	ctx := context.Background()

	if err := s.Refresh(ctx); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	before := ids(s.Page().Events)

	cause := errors.New("connection reset")
	f.set(nil, cause)
	err := s.Refresh(ctx)

	var feedErr *model.FeedError
	if !errors.As(err, &feedErr) {
		t.Fatalf("Refresh() error = %v, want *model.FeedError", err)
	}
	if !errors.Is(err, cause) {
		t.Errorf("Refresh() error does not wrap the cause: %v", err)
	}

	page := s.Page()
	if diff := cmp.Diff(before, ids(page.Events)); diff != "" {
		t.Errorf("list changed after failed refresh (-want +got):\n%s", diff)
	}
	if page.Err == nil {
		t.Error("Page().Err = nil after failed refresh")
	}

	f.set(upcomingEvents(5), nil)
	if err := s.Refresh(ctx); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	if s.Page().Err != nil {
		t.Error("Page().Err not cleared by successful refresh")
	}
}

func TestStateEmpty(t *testing.T) {
	s := newTestState(&fakeFetcher{}, KindAll, 20)
	if s.Page().Empty {
		t.Error("Empty = true before first load")
	}
	if err := s.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	if !s.Page().Empty {
		t.Error("Empty = false after loading nothing")
	}
}

// sequenceFetcher answers the n-th call with replies[n] once release[n] is closed.
type sequenceFetcher struct {
	mu      sync.Mutex
	calls   int
	replies [][]model.EventRecord
	release []chan struct{}
}

func (f *sequenceFetcher) Fetch(ctx context.Context, _ model.Scope) ([]model.EventRecord, error) {
	f.mu.Lock()
	n := f.calls
	f.calls++
	f.mu.Unlock()

	select {
	case <-f.release[n]:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return f.replies[n], nil
}

func (f *sequenceFetcher) started() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func TestStateSupersededRefreshIsIgnored(t *testing.T) {
	f := &sequenceFetcher{
		replies: [][]model.EventRecord{upcomingEvents(3), upcomingEvents(7)},
		release: []chan struct{}{make(chan struct{}), make(chan struct{})},
	}
	s := newTestState(f, KindAll, 20)
	ctx := context.Background()

	first := make(chan error)
	go func() { first <- s.Refresh(ctx) }()
	waitFor(t, func() bool { return f.started() == 1 })

	second := make(chan error)
	go func() { second <- s.Refresh(ctx) }()
	waitFor(t, func() bool { return f.started() == 2 })

	close(f.release[1])
	if err := <-second; err != nil {
		t.Fatalf("second Refresh() error = %v", err)
	}
	close(f.release[0])
	if err := <-first; err != nil {
		t.Fatalf("first Refresh() error = %v", err)
	}

	page := s.Page()
	if page.Total != 7 {
		t.Errorf("Total = %d, want 7 from the latest refresh", page.Total)
	}
	if page.Loading {
		t.Error("Loading = true after both refreshes returned")
	}
}

func TestStateLoadMoreDroppedWhileLoading(t *testing.T) {
	f := &fakeFetcher{events: upcomingEvents(50)}
	s := NewState(f, Options{
		Kind:        KindAll,
		PageSize:    10,
		SettleDelay: 50 * time.Millisecond,
		Now:         func() time.Time { return now },
		Shuffler:    NewRandShuffler(1),
	})
	ctx := context.Background()
	if err := s.Refresh(ctx); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}

	first := make(chan bool)
	go func() { first <- s.LoadMore(ctx) }()
	waitFor(t, func() bool { return s.Page().Loading })

	if s.LoadMore(ctx) {
		t.Error("second LoadMore() = true while a load is in flight")
	}
	if !<-first {
		t.Error("first LoadMore() = false")
	}
	if got := len(s.Page().Events); got != 20 {
		t.Errorf("len(Events) = %d, want 20", got)
	}
}

func TestStateCriteriaChangeClearsList(t *testing.T) {
	f := &fakeFetcher{events: upcomingEvents(30)}
	s := NewState(f, Options{
		Kind:        KindAll,
		PageSize:    20,
		SettleDelay: 50 * time.Millisecond,
		Now:         func() time.Time { return now },
	})
	ctx := context.Background()
	if err := s.Refresh(ctx); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}

	done := make(chan struct{})
	go func() {
		s.UpdateCriteria(ctx, func(c *model.FilterCriteria) { c.Region = "Baku" })
		close(done)
	}()

	waitFor(t, func() bool { return s.Page().Loading })
	page := s.Page()
	if len(page.Events) != 0 || page.Empty {
		t.Errorf("during recompute: %d events, empty %v; want 0 events and not empty", len(page.Events), page.Empty)
	}
	if s.LoadMore(ctx) {
		t.Error("LoadMore() = true during recompute")
	}

	<-done
	page = s.Page()
	if page.Total != 15 {
		t.Errorf("Total = %d, want 15 events in Baku", page.Total)
	}
	for _, e := range page.Events {
		if e.Region != "Baku" {
			t.Errorf("event %s has region %q", e.ID, e.Region)
		}
	}
	if f.calls != 1 {
		t.Errorf("fetcher called %d times, want 1", f.calls)
	}

	s.ResetCriteria(ctx)
	if got := s.Criteria(); got != model.DefaultCriteria() {
		t.Errorf("Criteria() = %+v after reset", got)
	}
	if got := s.Page().Total; got != 30 {
		t.Errorf("Total = %d after reset, want 30", got)
	}
}

func TestStateHomeSearchBlocksPaging(t *testing.T) {
	f := &fakeFetcher{events: upcomingEvents(40)}
	ctx := context.Background()

	tests := []struct {
		kind     Kind
		wantMore bool
	}{
		{kind: KindHome, wantMore: false},
		{kind: KindAll, wantMore: true},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			s := newTestState(f, tt.kind, 10)
			if err := s.Refresh(ctx); err != nil {
				t.Fatalf("Refresh() error = %v", err)
			}
			s.SetSearch(ctx, "event")

			if got := s.Page().HasMore; got != tt.wantMore {
				t.Errorf("HasMore = %v, want %v", got, tt.wantMore)
			}
			if got := s.LoadMore(ctx); got != tt.wantMore {
				t.Errorf("LoadMore() = %v, want %v", got, tt.wantMore)
			}
		})
	}
}

func TestStateUpcomingOnlyOnHome(t *testing.T) {
	f := &fakeFetcher{events: upcomingEvents(12)}
	ctx := context.Background()

	home := newTestState(f, KindHome, 20)
	all := newTestState(f, KindAll, 20)
	for _, s := range []*State{home, all} {
		if err := s.Refresh(ctx); err != nil {
			t.Fatalf("Refresh() error = %v", err)
		}
	}

	if got := len(home.Page().Upcoming); got == 0 {
		t.Error("home feed has no upcoming events")
	}
	if got := len(all.Page().Upcoming); got != 0 {
		t.Errorf("all feed has %d upcoming events, want 0", got)
	}

	home.SetCriteria(ctx, model.FilterCriteria{Region: "Baku"})
	if got := len(home.Page().Upcoming); got != 0 {
		t.Errorf("upcoming has %d events with active criteria, want 0", got)
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met in time")
		}
		time.Sleep(time.Millisecond)
	}
}
