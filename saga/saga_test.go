package saga_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/split-ledger/saga"
	"github.com/warp/split-ledger/store"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

// fastRetry keeps tests quick: transient predicate from store, no real waits.
func fastRetry() saga.RetryPolicy {
	return saga.RetryPolicy{
		MaxAttempts: 3,
		BaseDelay:   time.Microsecond,
		MaxDelay:    time.Millisecond,
		IsTransient: store.IsTransient,
	}
}

// op builds an operation that counts its calls.
func op(desc string, execErr error, execCount, rollbackCount *int) saga.Operation {
	return saga.Operation{
		Description: desc,
		Execute: func(context.Context) error {
			*execCount++
			return execErr
		},
		Rollback: func(context.Context) error {
			*rollbackCount++
			return nil
		},
	}
}

// =============================================================================
// HAPPY PATH
// =============================================================================

func TestExecute_AllOperationsSucceed(t *testing.T) {
	c := saga.New(fastRetry())
	var exec1, exec2, rb1, rb2 int

	require.NoError(t, c.AddOperation(op("op-1", nil, &exec1, &rb1)))
	require.NoError(t, c.AddOperation(op("op-2", nil, &exec2, &rb2)))

	result := c.Execute(context.Background())

	assert.True(t, result.Success)
	assert.Nil(t, result.Err)
	assert.Equal(t, []string{"op-1", "op-2"}, result.Completed)
	assert.Equal(t, saga.StateCommitted, c.State())
	assert.Equal(t, 1, exec1)
	assert.Equal(t, 1, exec2)
	assert.Zero(t, rb1, "rollback must not run on success")
	assert.Zero(t, rb2)
}

// =============================================================================
// FAILURE AND ROLLBACK
// =============================================================================

func TestExecute_MiddleOperationFails_PriorRolledBackLaterNeverRuns(t *testing.T) {
	// GIVEN: 3 operations where op-2 always fails
	// WHEN: Executing the saga
	// THEN: op-1 is rolled back exactly once, op-3 never executes

	c := saga.New(fastRetry())
	var exec1, exec3, rb1, rb2, rb3 int
	boom := errors.New("validation failed")

	require.NoError(t, c.AddOperation(op("op-1", nil, &exec1, &rb1)))
	exec2 := 0
	require.NoError(t, c.AddOperation(op("op-2", boom, &exec2, &rb2)))
	require.NoError(t, c.AddOperation(op("op-3", nil, &exec3, &rb3)))

	result := c.Execute(context.Background())

	assert.False(t, result.Success)
	require.NotNil(t, result.Err)
	assert.Equal(t, "op-2", result.Err.FailedOp)
	assert.Equal(t, 1, result.Err.FailedIndex)
	assert.ErrorIs(t, result.Err, boom)
	assert.Equal(t, []string{"op-1"}, result.Err.Compensated)
	assert.Empty(t, result.Err.CompensationFailures)
	assert.Equal(t, saga.StateRolledBack, c.State())

	assert.Equal(t, 1, rb1, "op-1 rollback must run exactly once")
	assert.Zero(t, rb2, "failed op must not be rolled back")
	assert.Zero(t, exec3, "op-3 must never execute")
	assert.Zero(t, rb3)
}

func TestExecute_RollbackRunsInReverseOrder(t *testing.T) {
	c := saga.New(fastRetry())
	var order []string

	mk := func(desc string) saga.Operation {
		return saga.Operation{
			Description: desc,
			Execute:     func(context.Context) error { return nil },
			Rollback: func(context.Context) error {
				order = append(order, desc)
				return nil
			},
		}
	}
	require.NoError(t, c.AddOperation(mk("a")))
	require.NoError(t, c.AddOperation(mk("b")))
	require.NoError(t, c.AddOperation(mk("c")))
	require.NoError(t, c.AddOperation(saga.Operation{
		Description: "boom",
		Execute:     func(context.Context) error { return errors.New("nope") },
	}))

	result := c.Execute(context.Background())

	assert.False(t, result.Success)
	assert.Equal(t, []string{"c", "b", "a"}, order)
}

func TestExecute_CompensationFailureDoesNotAbortSweep(t *testing.T) {
	// A failing rollback is collected, the sweep still compensates
	// every remaining prior operation.

	c := saga.New(fastRetry())
	var rbFirst, rbThird int
	rollbackBoom := errors.New("compensation broke")

	require.NoError(t, c.AddOperation(saga.Operation{
		Description: "first",
		Execute:     func(context.Context) error { return nil },
		Rollback:    func(context.Context) error { rbFirst++; return nil },
	}))
	require.NoError(t, c.AddOperation(saga.Operation{
		Description: "second",
		Execute:     func(context.Context) error { return nil },
		Rollback:    func(context.Context) error { return rollbackBoom },
	}))
	require.NoError(t, c.AddOperation(saga.Operation{
		Description: "third",
		Execute:     func(context.Context) error { return nil },
		Rollback:    func(context.Context) error { rbThird++; return nil },
	}))
	require.NoError(t, c.AddOperation(saga.Operation{
		Description: "boom",
		Execute:     func(context.Context) error { return errors.New("nope") },
	}))

	result := c.Execute(context.Background())

	require.NotNil(t, result.Err)
	assert.Equal(t, 1, rbFirst, "sweep must reach the first operation")
	assert.Equal(t, 1, rbThird)
	require.Len(t, result.Err.CompensationFailures, 1)
	assert.Equal(t, "second", result.Err.CompensationFailures[0].Op)
	assert.ErrorIs(t, result.Err.CompensationFailures[0].Err, rollbackBoom)
	assert.Equal(t, saga.StateRolledBack, c.State())
}

// =============================================================================
// RETRY BEHAVIOR
// =============================================================================

func TestExecute_TransientFailureRetriedThenSucceeds(t *testing.T) {
	c := saga.New(fastRetry())
	calls := 0

	require.NoError(t, c.AddOperation(saga.Operation{
		Description: "flaky-write",
		Execute: func(context.Context) error {
			calls++
			if calls < 3 {
				return &store.TransientError{Op: "write", Path: "p", Err: errors.New("timeout")}
			}
			return nil
		},
	}))

	result := c.Execute(context.Background())

	assert.True(t, result.Success)
	assert.Equal(t, 3, calls)
}

func TestExecute_TransientFailureExhaustsRetries(t *testing.T) {
	c := saga.New(fastRetry())
	calls := 0

	require.NoError(t, c.AddOperation(saga.Operation{
		Description: "always-down",
		Execute: func(context.Context) error {
			calls++
			return &store.TransientError{Op: "write", Path: "p", Err: errors.New("timeout")}
		},
	}))

	result := c.Execute(context.Background())

	assert.False(t, result.Success)
	assert.Equal(t, 3, calls, "MaxAttempts bounds total calls")
	assert.ErrorIs(t, result.Err, store.ErrTransient)
}

func TestExecute_NonTransientFailureNotRetried(t *testing.T) {
	c := saga.New(fastRetry())
	calls := 0

	require.NoError(t, c.AddOperation(saga.Operation{
		Description: "invalid",
		Execute: func(context.Context) error {
			calls++
			return errors.New("validation failed")
		},
	}))

	result := c.Execute(context.Background())

	assert.False(t, result.Success)
	assert.Equal(t, 1, calls, "non-transient errors must not be retried")
}

func TestExecute_ContextCancellationFailsOperation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	c := saga.New(saga.RetryPolicy{
		MaxAttempts: 5,
		BaseDelay:   50 * time.Millisecond,
		MaxDelay:    time.Second,
		IsTransient: store.IsTransient,
	})
	var rb int
	require.NoError(t, c.AddOperation(saga.Operation{
		Description: "done",
		Execute:     func(context.Context) error { return nil },
		Rollback:    func(context.Context) error { rb++; return nil },
	}))
	require.NoError(t, c.AddOperation(saga.Operation{
		Description: "stuck",
		Execute: func(context.Context) error {
			cancel() // simulate an external timeout mid-operation
			return &store.TransientError{Op: "write", Path: "p", Err: errors.New("timeout")}
		},
	}))

	result := c.Execute(ctx)

	assert.False(t, result.Success)
	assert.ErrorIs(t, result.Err, context.Canceled)
	assert.Equal(t, 1, rb, "cancellation must still trigger rollback of prior operations")
}

// =============================================================================
// STATE MACHINE
// =============================================================================

func TestAddOperation_RejectedAfterExecute(t *testing.T) {
	c := saga.NewDefault()
	require.NoError(t, c.AddOperation(saga.Operation{
		Description: "only",
		Execute:     func(context.Context) error { return nil },
	}))
	c.Execute(context.Background())

	err := c.AddOperation(saga.Operation{
		Description: "late",
		Execute:     func(context.Context) error { return nil },
	})
	assert.ErrorIs(t, err, saga.ErrNotPending)
}

func TestExecute_ConsumedExactlyOnce(t *testing.T) {
	c := saga.NewDefault()
	require.NoError(t, c.AddOperation(saga.Operation{
		Description: "only",
		Execute:     func(context.Context) error { return nil },
	}))

	first := c.Execute(context.Background())
	second := c.Execute(context.Background())

	assert.True(t, first.Success)
	assert.False(t, second.Success)
	assert.ErrorIs(t, second.Err, saga.ErrAlreadyExecuted)
}

func TestExecute_EmptySagaCommits(t *testing.T) {
	c := saga.NewDefault()
	result := c.Execute(context.Background())
	assert.True(t, result.Success)
	assert.Equal(t, saga.StateCommitted, c.State())
}
