// Package storage defines the persistence interface and its implementations.
package storage

import (
	"context"
	"errors"

	"eventfeed/internal/model"
)

// MaxOwnerIDsPerQuery is the largest owner-id set a single ListEvents call accepts.
const MaxOwnerIDsPerQuery = 10

var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrTooManyOwners is returned by ListEvents for owner-id sets above MaxOwnerIDsPerQuery.
	ErrTooManyOwners = errors.New("too many owner ids in one query")
)

// EventQuery selects events from the store.
type EventQuery struct {
	// OwnerIDs restricts results to these organisers. Empty means any owner.
	OwnerIDs []string
	// IncludeHidden also returns unpublished and deactivated events.
	IncludeHidden bool
}

// Storage is the interface for all persistence operations.
type Storage interface {
	UpsertEvent(ctx context.Context, e *model.EventRecord) error
	GetEvent(ctx context.Context, id string) (*model.EventRecord, error)
	ListEvents(ctx context.Context, q EventQuery) ([]model.EventRecord, error)
	DeleteEvent(ctx context.Context, id string) error

	Follow(ctx context.Context, followerID, organiserID string) error
	Unfollow(ctx context.Context, followerID, organiserID string) error
	ListFollowedOrganiserIDs(ctx context.Context, followerID string) ([]string, error)

	CreateSource(ctx context.Context, src *model.Source) error
	GetSource(ctx context.Context, id int64) (*model.Source, error)
	ListSources(ctx context.Context, ownerID string) ([]model.Source, error)
	ListDueSources(ctx context.Context) ([]model.Source, error)
	UpdateSource(ctx context.Context, src *model.Source) error
	DeleteSource(ctx context.Context, id int64) error

	Close() error
}
