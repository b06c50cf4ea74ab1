package session

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"eventfeed/internal/feed"
	"eventfeed/internal/model"
)

type scopeRecorder struct {
	scopes []model.Scope
}

func (s *scopeRecorder) Fetch(_ context.Context, scope model.Scope) ([]model.EventRecord, error) {
	s.scopes = append(s.scopes, scope)
	return nil, nil
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newRegistry(ttl time.Duration, clock *time.Time) (*Registry, *scopeRecorder) {
	f := &scopeRecorder{}
	r := NewRegistry(StateFactory(f, Settings{HomePageSize: 20, FeedPageSize: 15}), ttl, discard())
	r.now = func() time.Time { return *clock }
	return r, f
}

func TestRegistryExpiry(t *testing.T) {
	clock := time.Date(2026, time.October, 16, 12, 0, 0, 0, time.UTC)
	r, _ := newRegistry(30*time.Minute, &clock)

	s := r.GetOrCreate("chat-1", "user-1")
	r.GetOrCreate("chat-2", "user-2")

	clock = clock.Add(20 * time.Minute)
	if got, ok := r.Get("chat-1"); !ok || got != s {
		t.Fatal("session expired too early")
	}

	clock = clock.Add(20 * time.Minute)
	if _, ok := r.Get("chat-1"); !ok {
		t.Fatal("Get() should have extended chat-1")
	}
	if _, ok := r.Get("chat-2"); ok {
		t.Fatal("chat-2 should have expired after 40 idle minutes")
	}

	clock = clock.Add(time.Hour)
	if n := r.Sweep(); n != 1 {
		t.Errorf("Sweep() = %d, want 1", n)
	}
	if r.Len() != 0 {
		t.Errorf("Len() = %d, want 0", r.Len())
	}
}

func TestRegistryGetOrCreateReplacesExpired(t *testing.T) {
	clock := time.Date(2026, time.October, 16, 12, 0, 0, 0, time.UTC)
	r, _ := newRegistry(time.Minute, &clock)

	first := r.GetOrCreate("chat-1", "user-1")
	if again := r.GetOrCreate("chat-1", "user-1"); again != first {
		t.Fatal("GetOrCreate() returned a new session for a live id")
	}

	clock = clock.Add(2 * time.Minute)
	if again := r.GetOrCreate("chat-1", "user-1"); again == first {
		t.Fatal("GetOrCreate() reused an expired session")
	}
}

func TestRegistryCreateAndDelete(t *testing.T) {
	clock := time.Now()
	r, _ := newRegistry(0, &clock)

	a := r.Create("user")
	b := r.Create("user")
	if a.ID == "" || a.ID == b.ID {
		t.Fatalf("Create() ids %q and %q, want distinct non-empty", a.ID, b.ID)
	}

	if !r.Delete(a.ID) {
		t.Error("Delete() = false for existing session")
	}
	if r.Delete(a.ID) {
		t.Error("Delete() = true for missing session")
	}
	if _, ok := r.Get(a.ID); ok {
		t.Error("Get() found deleted session")
	}

	clock = clock.Add(1000 * time.Hour)
	if _, ok := r.Get(b.ID); !ok {
		t.Error("session expired with expiry disabled")
	}
}

func TestSessionFeeds(t *testing.T) {
	clock := time.Now()
	r, f := newRegistry(time.Hour, &clock)
	s := r.GetOrCreate("chat-1", "user-7")

	if got := s.Active().Kind(); got != feed.KindHome {
		t.Errorf("default active feed = %s, want home", got)
	}
	if s.Feed(feed.KindAll) != s.Feed(feed.KindAll) {
		t.Error("Feed() created a second state for the same kind")
	}

	follows := s.SetActive(feed.KindFollows)
	if s.Active() != follows {
		t.Error("Active() does not return the feed set by SetActive()")
	}

	ctx := context.Background()
	for _, kind := range []feed.Kind{feed.KindHome, feed.KindFollows} {
		if err := s.Feed(kind).Refresh(ctx); err != nil {
			t.Fatalf("Refresh(%s) error = %v", kind, err)
		}
	}

	want := []model.Scope{{}, {FollowerID: "user-7"}}
	if diff := cmp.Diff(want, f.scopes); diff != "" {
		t.Errorf("fetched scopes mismatch (-want +got):\n%s", diff)
	}
}
