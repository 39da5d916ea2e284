/*
Package saga coordinates multi-path mutations against a store that offers
no cross-path atomicity.

PURPOSE:
  A workflow like "record an expense" touches several store paths: each
  affected user's settlement entry, the transaction record, and per-user
  indexes. The backing store is atomic per path only, so partial failure
  would leave the ledger inconsistent. The coordinator approximates
  atomicity with compensating transactions: operations execute in order,
  and when one fails every previously-succeeded operation is undone in
  reverse.

STATE MACHINE:
  Pending → Executing → Committed
                      ↘ RollingBack → RolledBack

  Operations can only be added while Pending. Execute is consumed exactly
  once. Committed and RolledBack are terminal.

RETRY:
  Each operation's execute is wrapped in a bounded exponential-backoff
  retry. Only failures the transient predicate accepts (store timeouts,
  contention) are retried; validation and invariant errors surface
  immediately. Context cancellation counts as the current operation's
  failure and triggers rollback.

ROLLBACK SWEEP:
  Rollback runs most-recent-first and is best effort: a failing
  compensation is logged and collected, but the sweep continues so every
  prior operation gets its chance to compensate. Each rollback is invoked
  at most once, and only for operations whose execute succeeded.

LIMITS (read this before trusting it):
  This is an in-process saga. It holds only if the process survives the
  saga and every rollback is correct and idempotent. It is NOT isolation:
  a concurrent reader can observe partially-applied state between steps.

SEE ALSO:
  - saga/retry.go: the backoff helper
  - ledger/expense.go, ledger/payment.go: operation construction
*/
package saga

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// =============================================================================
// OPERATION - One reversible step
// =============================================================================

// Operation is one tagged, reversible step of a saga. Execute applies the
// forward mutation; Rollback compensates it. A nil Rollback means the step
// needs no compensation.
type Operation struct {
	Description string
	Execute     func(ctx context.Context) error
	Rollback    func(ctx context.Context) error
}

// =============================================================================
// STATE MACHINE
// =============================================================================

type State string

const (
	StatePending     State = "pending"
	StateExecuting   State = "executing"
	StateCommitted   State = "committed"
	StateRollingBack State = "rolling_back"
	StateRolledBack  State = "rolled_back"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrNotPending is returned when AddOperation is called after Execute.
	ErrNotPending = errors.New("saga is no longer pending")

	// ErrAlreadyExecuted is returned when Execute is called twice.
	ErrAlreadyExecuted = errors.New("saga already executed")
)

// Error reports a saga that failed and rolled back. It carries which
// operation triggered the failure, which operations were compensated, and
// whether any compensation itself failed.
type Error struct {
	FailedOp    string
	FailedIndex int
	Cause       error

	Compensated          []string
	CompensationFailures []CompensationFailure
}

// CompensationFailure records one rollback that did not succeed.
type CompensationFailure struct {
	Op  string
	Err error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("saga failed at %q: %v", e.FailedOp, e.Cause)
	if len(e.CompensationFailures) > 0 {
		var ops []string
		for _, f := range e.CompensationFailures {
			ops = append(ops, f.Op)
		}
		msg += fmt.Sprintf(" (compensation also failed for: %s)", strings.Join(ops, ", "))
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Cause }

// =============================================================================
// RESULT
// =============================================================================

// Result is the outcome of one saga execution.
type Result struct {
	Success bool
	Err     *Error // nil on success

	// Completed lists operations whose execute succeeded, in order.
	Completed []string
}

// =============================================================================
// COORDINATOR
// =============================================================================

// Coordinator executes an ordered list of reversible operations with
// per-operation retry and reverse-order rollback on failure. One instance
// per saga; not safe for concurrent use.
type Coordinator struct {
	ops    []Operation
	state  State
	retry  RetryPolicy
	logger *slog.Logger
}

// New creates a coordinator with the given retry policy.
func New(retry RetryPolicy) *Coordinator {
	return &Coordinator{
		state:  StatePending,
		retry:  retry,
		logger: slog.Default(),
	}
}

// NewDefault creates a coordinator with DefaultRetryPolicy.
func NewDefault() *Coordinator {
	return New(DefaultRetryPolicy())
}

// State returns the coordinator's current lifecycle state.
func (c *Coordinator) State() State { return c.state }

// AddOperation appends an operation. Valid only while Pending.
func (c *Coordinator) AddOperation(op Operation) error {
	if c.state != StatePending {
		return fmt.Errorf("%w: cannot add %q in state %s", ErrNotPending, op.Description, c.state)
	}
	if op.Execute == nil {
		return fmt.Errorf("operation %q has no execute function", op.Description)
	}
	c.ops = append(c.ops, op)
	return nil
}

// Execute runs all operations in insertion order, synchronously. On the
// first post-retry failure it rolls back every completed operation in
// reverse order and reports the partial-failure detail.
func (c *Coordinator) Execute(ctx context.Context) Result {
	if c.state != StatePending {
		return Result{
			Success: false,
			Err:     &Error{FailedOp: "execute", FailedIndex: -1, Cause: ErrAlreadyExecuted},
		}
	}
	c.state = StateExecuting

	var completed []string
	for i, op := range c.ops {
		if err := retryExecute(ctx, op, c.retry, c.logger); err != nil {
			sagaErr := c.rollback(ctx, i, err, completed)
			return Result{Success: false, Err: sagaErr, Completed: completed}
		}
		completed = append(completed, op.Description)
	}

	c.state = StateCommitted
	return Result{Success: true, Completed: completed}
}

// rollback compensates operations 0..failedIndex-1 in reverse order.
// Compensation failures are logged and collected but never abort the
// sweep.
func (c *Coordinator) rollback(ctx context.Context, failedIndex int, cause error, completed []string) *Error {
	c.state = StateRollingBack
	c.logger.Error("saga operation failed, rolling back",
		"failed_op", c.ops[failedIndex].Description,
		"failed_index", failedIndex,
		"completed", len(completed),
		"error", cause,
	)

	sagaErr := &Error{
		FailedOp:    c.ops[failedIndex].Description,
		FailedIndex: failedIndex,
		Cause:       cause,
	}

	for i := failedIndex - 1; i >= 0; i-- {
		op := c.ops[i]
		if op.Rollback == nil {
			sagaErr.Compensated = append(sagaErr.Compensated, op.Description)
			continue
		}
		// Rollback runs against context.Background(): a cancelled request
		// context must not prevent compensation of writes already made.
		if err := op.Rollback(context.WithoutCancel(ctx)); err != nil {
			c.logger.Error("saga compensation failed, continuing sweep",
				"op", op.Description, "error", err)
			sagaErr.CompensationFailures = append(sagaErr.CompensationFailures,
				CompensationFailure{Op: op.Description, Err: err})
			continue
		}
		sagaErr.Compensated = append(sagaErr.Compensated, op.Description)
	}

	c.state = StateRolledBack
	return sagaErr
}
