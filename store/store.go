/*
Package store defines the backing-store collaborator boundary.

PURPOSE:
  The ledger core persists into a path-addressed store: wallet balances,
  settlement entries, transaction records, and per-user indexes each live
  at their own path. The store guarantees atomicity PER PATH only - there
  is no multi-path transaction. Composing multi-path updates into a
  logical unit is the saga coordinator's job, not the store's.

ERROR CONTRACT:
  ErrNotFound:    the path has no value. Normal condition for first reads.
  TransientError: network/timeout/contention failure that may succeed on
                  retry. The saga retry helper keys off IsTransient.
  Anything else:  fatal for the current operation.

IMPLEMENTATIONS:
  - Memory (this package): in-process map, for tests and development.
  - store/sqlite: durable single-file store, one upsert per write.

SEE ALSO:
  - saga/retry.go: consumes IsTransient
  - ledger/paths.go: the path layout used by workflows
*/
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// =============================================================================
// INTERFACE
// =============================================================================

// PathStore is a path-addressed value store. Each call is individually
// atomic; calls do NOT compose into multi-path transactions.
type PathStore interface {
	// Read returns the raw value at path, or ErrNotFound.
	Read(ctx context.Context, path string) (json.RawMessage, error)

	// Write replaces the value at path. Creates the path if absent.
	Write(ctx context.Context, path string, value any) error

	// Delete removes the path. Deleting an absent path is not an error.
	Delete(ctx context.Context, path string) error

	// List returns all populated paths under prefix, sorted. Read-only;
	// used by queries, never by saga operations.
	List(ctx context.Context, prefix string) ([]string, error)
}

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrNotFound is returned when a path has no value.
	ErrNotFound = errors.New("path not found")

	// ErrTransient marks failures that may succeed on retry.
	ErrTransient = errors.New("transient store error")
)

// TransientError wraps a retryable store failure with its operation context.
type TransientError struct {
	Op   string // "read", "write", "delete"
	Path string
	Err  error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("transient store error: %s %s: %v", e.Op, e.Path, e.Err)
}
func (e *TransientError) Unwrap() error { return ErrTransient }

// IsTransient reports whether err may succeed on retry. This is the
// predicate the saga retry helper uses to separate retryable store
// failures from fatal ones.
func IsTransient(err error) bool {
	return errors.Is(err, ErrTransient)
}

// IsNotFound reports whether err means the path is absent.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// =============================================================================
// TYPED READ HELPER
// =============================================================================

// Load reads the value at path and unmarshals it into T.
func Load[T any](ctx context.Context, s PathStore, path string) (T, error) {
	var v T
	raw, err := s.Read(ctx, path)
	if err != nil {
		return v, err
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		return v, fmt.Errorf("decode %s: %w", path, err)
	}
	return v, nil
}
