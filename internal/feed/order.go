// Package feed assembles eligible, matching events into ordered, paginated feeds.
package feed

import (
	"math/rand/v2"
	"slices"
	"sync"
	"time"

	"eventfeed/internal/filter"
	"eventfeed/internal/model"
)

// Shuffler permutes events in place.
type Shuffler interface {
	Shuffle(events []model.EventRecord)
}

type globalShuffler struct{}

func (globalShuffler) Shuffle(events []model.EventRecord) {
	rand.Shuffle(len(events), func(i, j int) { events[i], events[j] = events[j], events[i] })
}

// RandShuffler is a Shuffler over a seeded source, for reproducible orderings.
type RandShuffler struct {
	mu sync.Mutex
	r  *rand.Rand
}

// NewRandShuffler returns a Shuffler whose permutations depend only on seed.
func NewRandShuffler(seed uint64) *RandShuffler {
	return &RandShuffler{r: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// Shuffle implements Shuffler.
func (s *RandShuffler) Shuffle(events []model.EventRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.r.Shuffle(len(events), func(i, j int) { events[i], events[j] = events[j], events[i] })
}

// Order returns a newly allocated ordering of events for the criteria.
//
// Without active criteria the result is reshuffled on every call. Otherwise
// the sort mode applies; with no sort mode the input order is kept.
// Date sorts key off the start date for every event type.
func Order(events []model.EventRecord, c model.FilterCriteria, shuffle Shuffler) []model.EventRecord {
	out := slices.Clone(events)
	if out == nil {
		out = []model.EventRecord{}
	}

	if !filter.HasActiveCriteria(c) {
		if shuffle == nil {
			shuffle = globalShuffler{}
		}
		shuffle.Shuffle(out)
		return out
	}

	switch c.Sort {
	case model.SortDateAscending:
		sortByStartDate(out, false)
	case model.SortDateDescending:
		sortByStartDate(out, true)
	case model.SortRecencyDescending:
		sortByRecency(out)
	}
	return out
}

type keyed struct {
	event model.EventRecord
	key   time.Time
	ok    bool
}

// sortByKey sorts stably by key; events without a key always go last.
func sortByKey(events []model.EventRecord, key func(model.EventRecord) (time.Time, bool), desc bool) {
	ks := make([]keyed, len(events))
	for i, e := range events {
		k, ok := key(e)
		ks[i] = keyed{event: e, key: k, ok: ok}
	}
	slices.SortStableFunc(ks, func(a, b keyed) int {
		switch {
		case !a.ok && !b.ok:
			return 0
		case !a.ok:
			return 1
		case !b.ok:
			return -1
		}
		if desc {
			return b.key.Compare(a.key)
		}
		return a.key.Compare(b.key)
	})
	for i := range ks {
		events[i] = ks[i].event
	}
}

func sortByStartDate(events []model.EventRecord, desc bool) {
	sortByKey(events, func(e model.EventRecord) (time.Time, bool) {
		return model.ParseDate(e.StartDate)
	}, desc)
}

func sortByRecency(events []model.EventRecord) {
	sortByKey(events, func(e model.EventRecord) (time.Time, bool) {
		if e.CreatedAt == nil {
			return time.Time{}, false
		}
		return *e.CreatedAt, true
	}, true)
}
