/*
Package ledger orchestrates expense and payment workflows.

PURPOSE:
  This is where the pieces meet: the split calculator produces shares, the
  settlement package turns them into balance deltas, and the saga
  coordinator applies every implied store mutation - settlement entries,
  wallet balance, the transaction record, per-user indexes - as one
  logical unit with rollback on partial failure.

WORKFLOW SHAPE (RecordExpense):
  1. Validate input (fail fast, before any saga operation exists)
  2. split.Split → per-participant shares
  3. settle.ComputeGlobalUpdates → debtor/creditor updates
  4. Build the saga:
       - claim idempotency key        (rollback: release)
       - per-viewer entry updates     (rollback: restore previous value)
       - persist transaction record   (rollback: delete)
       - fan out per-user tx index    (rollback: remove written entries)
  5. Execute; return the committed transaction or the saga error with
     every partial write compensated.

COLLABORATORS:
  store.PathStore - the only persistence surface; per-path atomicity only.
  Identity        - supplies the current user id (auth lives elsewhere).
  Notifier        - receives committed transactions out of band; its
                    failures never touch the committed saga.

CONSISTENCY CAVEAT:
  Entry updates are read-modify-write without optimistic concurrency. Two
  concurrent sagas touching the same (group, pair) entry can lose an
  update. Recorded as an open gap in DESIGN.md, not a feature.

SEE ALSO:
  - ledger/expense.go, ledger/payment.go, ledger/wallet.go: workflows
  - ledger/queries.go: settlement and history reads
*/
package ledger

import (
	"context"
	"log/slog"

	"github.com/warp/split-ledger/saga"
	"github.com/warp/split-ledger/store"
)

// =============================================================================
// COLLABORATOR INTERFACES
// =============================================================================

// Identity supplies the authenticated user on whose behalf workflows run.
// Authentication itself is an external concern.
type Identity interface {
	CurrentUserID(ctx context.Context) (string, error)
}

// Notifier receives committed transactions for out-of-band delivery
// (push, email). Fire-and-forget: called after commit, never part of the
// saga, and failures must not propagate.
type Notifier interface {
	TransactionCommitted(tx Transaction)
}

// =============================================================================
// SERVICE
// =============================================================================

// Service runs the expense/payment workflows against a backing store.
type Service struct {
	Store    store.PathStore
	Identity Identity
	Notifier Notifier // optional
	Retry    saga.RetryPolicy
	Logger   *slog.Logger
}

// NewService creates a Service with the default retry policy.
func NewService(s store.PathStore, identity Identity) *Service {
	return &Service{
		Store:    s,
		Identity: identity,
		Retry:    saga.DefaultRetryPolicy(),
		Logger:   slog.Default(),
	}
}

func (s *Service) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}

// notifyCommitted hands a committed transaction to the notifier without
// blocking the workflow. Panics in the notifier are swallowed: a broken
// notification channel must never look like a failed ledger write.
func (s *Service) notifyCommitted(tx Transaction) {
	if s.Notifier == nil {
		return
	}
	go func() {
		defer func() {
			if r := recover(); r != nil {
				s.logger().Error("notifier panicked", "tx_id", tx.ID, "panic", r)
			}
		}()
		s.Notifier.TransactionCommitted(tx)
	}()
}

// newSaga builds a coordinator with the service's retry policy.
func (s *Service) newSaga() *saga.Coordinator {
	return saga.New(s.Retry)
}
