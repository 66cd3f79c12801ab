package types

import (
	"errors"
	"fmt"
)

var (
	// ErrNotLeader is returned when a leader-only operation (semantic
	// search, structural query) is invoked on a reader-mode workspace.
	ErrNotLeader = errors.New("operation requires the indexing leader")

	// ErrUnsupported is returned for operations rejected by design, such
	// as manual file invalidation. The index is eventually correct on the
	// next open; there is no force-refresh path.
	ErrUnsupported = errors.New("operation not supported")

	// ErrNotReady is returned by readers while the store schema is not yet
	// queryable.
	ErrNotReady = errors.New("index not ready")
)

// InitError is a fatal workspace initialization failure: the store cannot be
// opened, the lock cannot be acquired for a reason other than "held", the
// ignore file cannot be updated, or a reader's wait for a queryable schema
// timed out.
type InitError struct {
	Op  string
	Err error
}

func (e *InitError) Error() string {
	return fmt.Sprintf("workspace init: %s: %v", e.Op, e.Err)
}

func (e *InitError) Unwrap() error { return e.Err }

// NewInitError wraps err as a fatal initialization error.
func NewInitError(op string, err error) *InitError {
	return &InitError{Op: op, Err: err}
}
