package feed

import (
	"context"
	"io"
	"log/slog"
	"slices"
	"sync"
	"time"

	"eventfeed/internal/model"
)

// Kind names a feed variant shown by a consumer.
type Kind string

// Supported feed kinds.
const (
	KindHome    Kind = "home"
	KindAll     Kind = "all"
	KindFollows Kind = "follows"
)

// ParseKind maps user input to a Kind.
func ParseKind(s string) (Kind, bool) {
	switch Kind(s) {
	case KindHome, KindAll, KindFollows:
		return Kind(s), true
	}
	return "", false
}

// Fetcher loads raw events for a scope from the event store.
type Fetcher interface {
	Fetch(ctx context.Context, scope model.Scope) ([]model.EventRecord, error)
}

// Recorder receives feed metrics.
type Recorder interface {
	RecordAssembled(kind string, size int)
	RecordFetchFailure(kind string)
	RecordFetchLatency(kind string, d time.Duration)
}

type nopRecorder struct{}

func (nopRecorder) RecordAssembled(string, int)              {}
func (nopRecorder) RecordFetchFailure(string)                {}
func (nopRecorder) RecordFetchLatency(string, time.Duration) {}

// Options configures a State.
type Options struct {
	Kind     Kind
	PageSize int
	Scope    model.Scope
	// SettleDelay holds the loading state after a criteria change or page
	// request before results are revealed.
	SettleDelay time.Duration
	// Now returns the current instant; its location defines calendar days.
	Now      func() time.Time
	Shuffler Shuffler
	Metrics  Recorder
	Log      *slog.Logger
}

// Page is the consumer-visible snapshot of a feed.
type Page struct {
	Kind     Kind
	Events   []model.EventRecord
	Upcoming []model.EventRecord
	Total    int
	HasMore  bool
	Loading  bool
	// Loaded is set once a fetch has succeeded.
	Loaded bool
	// Empty is set once data has loaded and nothing matched.
	Empty    bool
	Err      error
	Criteria model.FilterCriteria
}

// State is the feed of one consumer session: raw events, the assembled and
// upcoming lists derived from them, and the pagination cursor.
// All methods are safe for concurrent use.
type State struct {
	fetcher  Fetcher
	kind     Kind
	scope    model.Scope
	settle   time.Duration
	now      func() time.Time
	shuffler Shuffler
	metrics  Recorder
	log      *slog.Logger

	mu          sync.Mutex
	criteria    model.FilterCriteria
	raw         []model.EventRecord
	assembled   []model.EventRecord
	upcoming    []model.EventRecord
	cursor      *Cursor
	fetchGen    uint64
	viewGen     uint64
	refreshing  bool
	recomputing bool
	loaded      bool
	err         error
}

// NewState creates a feed state with default criteria. No data is loaded
// until Refresh is called.
func NewState(f Fetcher, opts Options) *State {
	if opts.Kind == "" {
		opts.Kind = KindAll
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Metrics == nil {
		opts.Metrics = nopRecorder{}
	}
	if opts.Log == nil {
		opts.Log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &State{
		fetcher:  f,
		kind:     opts.Kind,
		scope:    opts.Scope,
		settle:   opts.SettleDelay,
		now:      opts.Now,
		shuffler: opts.Shuffler,
		metrics:  opts.Metrics,
		log:      opts.Log,
		criteria: model.DefaultCriteria(),
		cursor:   NewCursor(opts.PageSize),
	}
}

// Kind returns the feed variant.
func (s *State) Kind() Kind { return s.kind }

// Criteria returns the active criteria.
func (s *State) Criteria() model.FilterCriteria {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.criteria
}

// Page returns a snapshot of the visible window.
func (s *State) Page() Page {
	s.mu.Lock()
	defer s.mu.Unlock()

	loading := s.refreshing || s.recomputing || s.cursor.Loading()
	return Page{
		Kind:     s.kind,
		Events:   slices.Clone(Window(s.cursor, s.assembled)),
		Upcoming: slices.Clone(s.upcoming),
		Total:    len(s.assembled),
		HasMore:  s.cursor.HasMore() && !s.pagingBlocked(),
		Loading:  loading,
		Loaded:   s.loaded,
		Empty:    s.loaded && !loading && len(s.assembled) == 0,
		Err:      s.err,
		Criteria: s.criteria,
	}
}

// Refresh fetches raw events and reassembles the feed.
//
// A load in flight is abandoned. When refreshes overlap only the latest
// result is applied. On failure the previous lists stay untouched and a
// *model.FeedError is recorded and returned.
func (s *State) Refresh(ctx context.Context) error {
	s.mu.Lock()
	s.fetchGen++
	gen := s.fetchGen
	s.refreshing = true
	s.cursor.Cancel()
	scope := s.scope
	s.mu.Unlock()

	start := time.Now()
	raw, err := s.fetcher.Fetch(ctx, scope)
	s.metrics.RecordFetchLatency(string(s.kind), time.Since(start))

	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.fetchGen {
		s.log.Debug("discarding superseded fetch", "kind", s.kind, "generation", gen)
		return nil
	}
	s.refreshing = false

	if err != nil {
		s.metrics.RecordFetchFailure(string(s.kind))
		s.log.Error("fetch events", "kind", s.kind, "error", err)
		s.err = model.NewFetchError(err)
		return s.err
	}

	s.err = nil
	s.raw = raw
	s.loaded = true
	s.viewGen++
	s.recomputing = false
	s.recompute()
	return nil
}

// SetCriteria replaces the criteria. The visible list is cleared at once and
// the feed is reassembled from the cached raw events after the settle delay.
func (s *State) SetCriteria(ctx context.Context, c model.FilterCriteria) {
	s.update(ctx, func(cur *model.FilterCriteria) { *cur = c })
}

// SetSearch changes only the free-text query.
func (s *State) SetSearch(ctx context.Context, query string) {
	s.update(ctx, func(cur *model.FilterCriteria) { cur.Query = query })
}

// ResetCriteria restores the default criteria.
func (s *State) ResetCriteria(ctx context.Context) {
	s.SetCriteria(ctx, model.DefaultCriteria())
}

// UpdateCriteria applies fn to the current criteria atomically.
func (s *State) UpdateCriteria(ctx context.Context, fn func(c *model.FilterCriteria)) {
	s.update(ctx, fn)
}

func (s *State) update(ctx context.Context, fn func(c *model.FilterCriteria)) {
	s.mu.Lock()
	fn(&s.criteria)
	s.viewGen++
	gen := s.viewGen
	s.assembled = nil
	s.upcoming = nil
	s.cursor.Reset(0)
	s.recomputing = true
	s.mu.Unlock()

	sleep(ctx, s.settle)

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.viewGen {
		return
	}
	s.recomputing = false
	s.recompute()
}

// LoadMore reveals the next page. It reports false without changing anything
// while a refresh, recomputation or another load is in flight, when nothing
// is left, or on the home feed while a search is active.
func (s *State) LoadMore(ctx context.Context) bool {
	s.mu.Lock()
	if s.refreshing || s.recomputing || s.pagingBlocked() || !s.cursor.TryBegin() {
		s.mu.Unlock()
		return false
	}
	viewGen, fetchGen := s.viewGen, s.fetchGen
	s.mu.Unlock()

	sleep(ctx, s.settle)

	s.mu.Lock()
	defer s.mu.Unlock()
	if viewGen != s.viewGen || fetchGen != s.fetchGen || !s.cursor.Loading() {
		return false
	}
	if ctx.Err() != nil {
		s.cursor.Cancel()
		return false
	}
	s.cursor.Finish()
	return true
}

func (s *State) pagingBlocked() bool {
	return s.kind == KindHome && s.criteria.SearchActive()
}

// recompute rebuilds the derived lists from raw data; s.mu must be held.
func (s *State) recompute() {
	now := s.now()
	s.assembled = Assemble(s.raw, s.criteria, now, s.shuffler)
	s.upcoming = nil
	if s.kind == KindHome {
		s.upcoming = Upcoming(s.raw, s.criteria, now)
	}
	s.cursor.Reset(len(s.assembled))
	s.metrics.RecordAssembled(string(s.kind), len(s.assembled))
	s.log.Debug("feed assembled",
		"kind", s.kind,
		"raw", len(s.raw),
		"assembled", len(s.assembled),
		"upcoming", len(s.upcoming),
	)
}

func sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
