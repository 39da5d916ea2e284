package saga

import (
	"context"
	"log/slog"
	"time"

	"github.com/warp/split-ledger/store"
)

// =============================================================================
// RETRY POLICY - Bounded exponential backoff for transient failures
// =============================================================================

// RetryPolicy bounds how a single operation's execute is retried.
// Non-transient failures are never retried.
type RetryPolicy struct {
	// MaxAttempts is the total number of execute calls (first try included).
	MaxAttempts int

	// BaseDelay is the wait after the first failure; it doubles each
	// attempt up to MaxDelay.
	BaseDelay time.Duration
	MaxDelay  time.Duration

	// IsTransient separates retryable failures from fatal ones.
	IsTransient func(error) bool
}

// DefaultRetryPolicy retries transient store errors three times with
// 50ms/100ms backoff.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		BaseDelay:   50 * time.Millisecond,
		MaxDelay:    2 * time.Second,
		IsTransient: store.IsTransient,
	}
}

// backoffDelay returns BaseDelay * 2^attempt, capped at MaxDelay.
func (p RetryPolicy) backoffDelay(attempt int) time.Duration {
	d := p.BaseDelay
	for i := 0; i < attempt; i++ {
		d *= 2
		if d >= p.MaxDelay {
			return p.MaxDelay
		}
	}
	if d > p.MaxDelay {
		return p.MaxDelay
	}
	return d
}

// retryExecute runs op.Execute under the policy. It returns the last error
// once attempts are exhausted, the error is non-transient, or the context
// is done.
func retryExecute(ctx context.Context, op Operation, policy RetryPolicy, logger *slog.Logger) error {
	attempts := policy.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for attempt := 0; attempt < attempts; attempt++ {
		err = op.Execute(ctx)
		if err == nil {
			return nil
		}
		if policy.IsTransient == nil || !policy.IsTransient(err) {
			return err
		}
		if attempt == attempts-1 {
			break
		}

		delay := policy.backoffDelay(attempt)
		logger.Warn("transient failure, retrying operation",
			"op", op.Description,
			"attempt", attempt+1,
			"delay", delay,
			"error", err,
		)
		if sleepErr := sleepWithContext(ctx, delay); sleepErr != nil {
			// External cancellation counts as this operation's failure.
			return sleepErr
		}
	}
	return err
}

// sleepWithContext waits for d but returns early if ctx is done.
func sleepWithContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
