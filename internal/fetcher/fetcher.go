// Package fetcher loads raw events for a feed scope from the event store.
package fetcher

import (
	"context"
	"fmt"
	"log/slog"

	"eventfeed/internal/model"
	"eventfeed/internal/storage"
)

// EventStore lists events. Implementations may reject owner-id sets larger
// than storage.MaxOwnerIDsPerQuery.
type EventStore interface {
	ListEvents(ctx context.Context, q storage.EventQuery) ([]model.EventRecord, error)
}

// FollowLookup resolves the organisers a user follows.
type FollowLookup interface {
	ListFollowedOrganiserIDs(ctx context.Context, followerID string) ([]string, error)
}

// Recorder counts store queries issued per fetch.
type Recorder interface {
	RecordBatchQueries(n int)
}

// Fetcher loads events for a scope, splitting owner-id sets into store-sized batches.
type Fetcher struct {
	store     EventStore
	follows   FollowLookup
	batchSize int
	metrics   Recorder
	log       *slog.Logger
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithMetrics reports batch counts to r.
func WithMetrics(r Recorder) Option {
	return func(f *Fetcher) { f.metrics = r }
}

// WithLogger sets the logger.
func WithLogger(log *slog.Logger) Option {
	return func(f *Fetcher) { f.log = log }
}

// New creates a Fetcher over the given store and follow relations.
func New(store EventStore, follows FollowLookup, opts ...Option) *Fetcher {
	f := &Fetcher{
		store:     store,
		follows:   follows,
		batchSize: storage.MaxOwnerIDsPerQuery,
		log:       slog.Default(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch returns the published events in scope.
//
// An unrestricted scope is one query. Owner-id sets, given directly or
// resolved from a follower, are queried in batches and the results are
// concatenated with duplicates removed. A follower who follows nobody gets
// an empty list without any event query.
func (f *Fetcher) Fetch(ctx context.Context, scope model.Scope) ([]model.EventRecord, error) {
	if !scope.Restricted() {
		f.record(1)
		events, err := f.store.ListEvents(ctx, storage.EventQuery{})
		if err != nil {
			return nil, fmt.Errorf("list events: %w", err)
		}
		return events, nil
	}

	owners := scope.OwnerIDs
	if scope.FollowerID != "" {
		followed, err := f.follows.ListFollowedOrganiserIDs(ctx, scope.FollowerID)
		if err != nil {
			return nil, fmt.Errorf("list follows of %s: %w", scope.FollowerID, err)
		}
		owners = append(append([]string(nil), owners...), followed...)
	}
	owners = dedupe(owners)
	if len(owners) == 0 {
		return []model.EventRecord{}, nil
	}

	batches := Batches(owners, f.batchSize)
	f.record(len(batches))

	seen := make(map[string]struct{})
	out := []model.EventRecord{}
	for i, batch := range batches {
		events, err := f.store.ListEvents(ctx, storage.EventQuery{OwnerIDs: batch})
		if err != nil {
			return nil, fmt.Errorf("list events batch %d/%d: %w", i+1, len(batches), err)
		}
		for _, e := range events {
			if _, ok := seen[e.ID]; ok {
				continue
			}
			seen[e.ID] = struct{}{}
			out = append(out, e)
		}
	}

	f.log.Debug("events fetched", "owners", len(owners), "batches", len(batches), "events", len(out))
	return out, nil
}

func (f *Fetcher) record(n int) {
	if f.metrics != nil {
		f.metrics.RecordBatchQueries(n)
	}
}

// Batches splits ids into consecutive chunks of at most size entries.
func Batches(ids []string, size int) [][]string {
	if size <= 0 {
		size = storage.MaxOwnerIDsPerQuery
	}
	var out [][]string
	for start := 0; start < len(ids); start += size {
		end := min(start+size, len(ids))
		out = append(out, ids[start:end])
	}
	return out
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
