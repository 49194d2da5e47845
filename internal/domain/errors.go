package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is the root of all "entity absent" errors.
	ErrNotFound = errors.New("not found")
	// ErrPostNotFound is returned when a post id does not exist.
	ErrPostNotFound = fmt.Errorf("post %w", ErrNotFound)
	// ErrCommentNotFound is returned when a comment id does not exist on its post.
	ErrCommentNotFound = fmt.Errorf("comment %w", ErrNotFound)
	// ErrConsistency marks a divergence between the cache and the store after a
	// write the store reported as successful. It is never retried.
	ErrConsistency = errors.New("cache/store consistency fault")
)

// ValidationError reports malformed input detected before any store call.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "invalid input: " + e.Reason
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// StoreError wraps a failed or non-successful entity store call.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// ConsistencyFault builds an ErrConsistency error for op on post id.
func ConsistencyFault(op string, postID int64, detail string) error {
	return fmt.Errorf("%w: %s post %d: %s", ErrConsistency, op, postID, detail)
}

// IsValidation reports whether err is (or wraps) a *ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
