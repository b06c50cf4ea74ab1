// Package session keeps per-consumer feed states and expires idle ones.
package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"eventfeed/internal/feed"
	"eventfeed/internal/model"
)

// Factory creates the feed state of one kind for a user.
type Factory func(kind feed.Kind, userID string) *feed.State

// Settings configures the feed states created by StateFactory.
type Settings struct {
	HomePageSize int
	FeedPageSize int
	SettleDelay  time.Duration
	Now          func() time.Time
	Metrics      feed.Recorder
	Log          *slog.Logger
}

// StateFactory returns a Factory producing states backed by f.
// The follows feed is scoped to the user's followed organisers.
func StateFactory(f feed.Fetcher, s Settings) Factory {
	return func(kind feed.Kind, userID string) *feed.State {
		opts := feed.Options{
			Kind:        kind,
			PageSize:    s.FeedPageSize,
			SettleDelay: s.SettleDelay,
			Now:         s.Now,
			Metrics:     s.Metrics,
			Log:         s.Log,
		}
		switch kind {
		case feed.KindHome:
			opts.PageSize = s.HomePageSize
		case feed.KindFollows:
			opts.Scope = model.Scope{FollowerID: userID}
		}
		return feed.NewState(f, opts)
	}
}

// Session is one consumer's set of feeds.
type Session struct {
	ID     string
	UserID string

	factory Factory

	mu       sync.Mutex
	feeds    map[feed.Kind]*feed.State
	active   feed.Kind
	lastSeen time.Time
}

// Feed returns the session's feed of the given kind, creating it on first use.
func (s *Session) Feed(kind feed.Kind) *feed.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.feeds[kind]
	if !ok {
		st = s.factory(kind, s.UserID)
		s.feeds[kind] = st
	}
	return st
}

// Active returns the feed the consumer looked at last.
func (s *Session) Active() *feed.State {
	s.mu.Lock()
	kind := s.active
	s.mu.Unlock()
	return s.Feed(kind)
}

// SetActive switches the consumer to the feed of the given kind and returns it.
func (s *Session) SetActive(kind feed.Kind) *feed.State {
	s.mu.Lock()
	s.active = kind
	s.mu.Unlock()
	return s.Feed(kind)
}

// Registry holds sessions by id.
type Registry struct {
	factory Factory
	ttl     time.Duration
	now     func() time.Time
	log     *slog.Logger

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewRegistry creates a registry whose sessions expire after ttl without use.
// A non-positive ttl disables expiry.
func NewRegistry(factory Factory, ttl time.Duration, log *slog.Logger) *Registry {
	return &Registry{
		factory:  factory,
		ttl:      ttl,
		now:      time.Now,
		log:      log,
		sessions: make(map[string]*Session),
	}
}

// Create starts a session with a generated id.
func (r *Registry) Create(userID string) *Session {
	return r.GetOrCreate(uuid.NewString(), userID)
}

// GetOrCreate returns the live session with id or starts a new one.
func (r *Registry) GetOrCreate(id, userID string) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	if s, ok := r.sessions[id]; ok && !r.expired(s, now) {
		s.touch(now)
		return s
	}
	s := &Session{
		ID:       id,
		UserID:   userID,
		factory:  r.factory,
		feeds:    make(map[feed.Kind]*feed.State),
		active:   feed.KindHome,
		lastSeen: now,
	}
	r.sessions[id] = s
	return s
}

// Get returns a live session and marks it used.
func (r *Registry) Get(id string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	s, ok := r.sessions[id]
	if !ok {
		return nil, false
	}
	if r.expired(s, now) {
		delete(r.sessions, id)
		return nil, false
	}
	s.touch(now)
	return s, true
}

// Delete removes a session. It reports whether the session existed.
func (r *Registry) Delete(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.sessions[id]
	delete(r.sessions, id)
	return ok
}

// Len returns the number of stored sessions, expired ones included.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Sweep drops expired sessions and returns how many were removed.
func (r *Registry) Sweep() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	removed := 0
	for id, s := range r.sessions {
		if r.expired(s, now) {
			delete(r.sessions, id)
			removed++
		}
	}
	return removed
}

// Run sweeps expired sessions every interval until ctx is cancelled.
func (r *Registry) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := r.Sweep(); n > 0 {
				r.log.Debug("expired sessions", "count", n)
			}
		}
	}
}

func (r *Registry) expired(s *Session, now time.Time) bool {
	if r.ttl <= 0 {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return now.Sub(s.lastSeen) > r.ttl
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}
