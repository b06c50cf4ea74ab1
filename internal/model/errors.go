package model

import "fmt"

// FeedError is surfaced to feed consumers when fetching events fails.
// The previously assembled list stays valid when a FeedError is reported.
type FeedError struct {
	Message string
	Err     error
}

// Error implements the error interface.
func (e *FeedError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

// Unwrap returns the underlying cause.
func (e *FeedError) Unwrap() error {
	return e.Err
}

// NewFetchError wraps a fetch failure for the consumer.
func NewFetchError(err error) *FeedError {
	return &FeedError{Message: "could not load events", Err: err}
}
