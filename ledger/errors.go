/*
errors.go - Workflow error taxonomy

PURPOSE:
  Centralizes the errors workflows surface to callers and the helpers the
  API layer uses to map them to status codes.

CATEGORIES:
  Invalid input        - caller mistakes; fail fast, never retried
  Invariant violation  - impossible internal state; a bug, surfaced loudly
  Transient store      - retried inside the saga (see saga/retry.go)
  Saga failure         - post-retry failure with compensation detail

No exception-style control flow crosses the package boundary: every
failure is an error value a caller can errors.Is against.
*/
package ledger

import (
	"errors"
	"fmt"

	"github.com/warp/split-ledger/settle"
	"github.com/warp/split-ledger/split"
)

// =============================================================================
// SENTINEL ERRORS
// =============================================================================

var (
	// ErrInvalidInput is returned for malformed workflow input: zero or
	// negative amounts, empty participants, payer not a participant,
	// overpayment.
	ErrInvalidInput = errors.New("invalid workflow input")

	// ErrDuplicateIdempotencyKey is returned when a workflow is invoked
	// with an idempotency key that was already claimed. Expected behavior
	// for client retries of an already-applied event.
	ErrDuplicateIdempotencyKey = errors.New("duplicate idempotency key")
)

// InputError carries which input field was rejected and why.
type InputError struct {
	Field  string
	Reason string
}

func (e *InputError) Error() string {
	return fmt.Sprintf("invalid input: %s: %s", e.Field, e.Reason)
}
func (e *InputError) Unwrap() error { return ErrInvalidInput }

// =============================================================================
// CLASSIFICATION HELPERS
// =============================================================================

// IsClientError reports whether err is the caller's fault (bad input,
// duplicate key) rather than a system failure.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, split.ErrInvalidInput) ||
		errors.Is(err, settle.ErrPayerNotParticipant) ||
		errors.Is(err, ErrDuplicateIdempotencyKey)
}

// IsInvariantViolation reports whether err indicates an impossible
// internal state - a bug, never a normal runtime condition.
func IsInvariantViolation(err error) bool {
	return errors.Is(err, settle.ErrInvariantViolation) ||
		errors.Is(err, split.ErrSumMismatch)
}
