/*
ops.go - Saga operation builders

PURPOSE:
  Each builder returns one tagged, reversible saga.Operation over the
  backing store. Execute captures the previous value in its closure so
  Rollback can restore it exactly; rollbacks are idempotent (restoring or
  deleting twice converges on the same state).

OPERATION CATALOG:
  claimIdempotencyOp   claim idempotency/{key}     rollback: release
  settlementUpdateOp   read-apply-write one entry  rollback: restore prior
  walletUpdateOp       adjust one wallet balance   rollback: restore prior
  persistTransactionOp write the tx record         rollback: delete
  indexFanoutOp        write per-user tx refs      rollback: remove written
*/
package ledger

import (
	"context"
	"fmt"

	"github.com/warp/split-ledger/money"
	"github.com/warp/split-ledger/saga"
	"github.com/warp/split-ledger/settle"
	"github.com/warp/split-ledger/store"
)

// Wallet is the stored wallet balance for one user.
type Wallet struct {
	Balance money.Money `json:"balance"`
}

// claimIdempotencyOp writes the claim for key, failing with
// ErrDuplicateIdempotencyKey if the key is already taken. As the saga's
// first operation it guarantees no side effect of a duplicate invocation
// survives.
func (s *Service) claimIdempotencyOp(key, transactionID string) saga.Operation {
	path := idempotencyPath(key)
	return saga.Operation{
		Description: fmt.Sprintf("claim idempotency key %s", key),
		Execute: func(ctx context.Context) error {
			_, err := s.Store.Read(ctx, path)
			if err == nil {
				return fmt.Errorf("%w: %s", ErrDuplicateIdempotencyKey, key)
			}
			if !store.IsNotFound(err) {
				return err
			}
			return s.Store.Write(ctx, path, idempotencyClaim{
				TransactionID: transactionID,
				ClaimedAt:     nowUnix(),
			})
		},
		Rollback: func(ctx context.Context) error {
			return s.Store.Delete(ctx, path)
		},
	}
}

// settlementUpdateOp applies one entry delta for one viewer: read the
// current entry, apply+net, write back. Rollback restores the exact
// previous state (including absence).
func (s *Service) settlementUpdateOp(viewerID, groupID string, delta settle.EntryDelta) saga.Operation {
	path := settlementPath(viewerID, groupID, delta.CounterpartyID)

	var prev settle.Entry
	var existed bool

	return saga.Operation{
		Description: fmt.Sprintf("update settlement %s", path),
		Execute: func(ctx context.Context) error {
			entry, err := store.Load[settle.Entry](ctx, s.Store, path)
			switch {
			case store.IsNotFound(err):
				entry = settle.Entry{}
			case err != nil:
				return err
			default:
				existed = true
			}
			prev = entry

			next, err := settle.Apply(entry, delta)
			if err != nil {
				return err
			}
			return s.Store.Write(ctx, path, next)
		},
		Rollback: func(ctx context.Context) error {
			if !existed {
				return s.Store.Delete(ctx, path)
			}
			return s.Store.Write(ctx, path, prev)
		},
	}
}

// walletUpdateOp adjusts one user's wallet balance by delta. A balance
// that would go negative fails the operation: workflows validate funds
// before the saga starts, so reaching negative here means a concurrent
// writer got in between.
func (s *Service) walletUpdateOp(userID string, delta money.Money) saga.Operation {
	path := walletPath(userID)

	var prev Wallet
	var existed bool

	return saga.Operation{
		Description: fmt.Sprintf("adjust wallet %s by %s", userID, delta),
		Execute: func(ctx context.Context) error {
			w, err := store.Load[Wallet](ctx, s.Store, path)
			switch {
			case store.IsNotFound(err):
				w = Wallet{}
			case err != nil:
				return err
			default:
				existed = true
			}
			prev = w

			next := Wallet{Balance: w.Balance.Add(delta)}
			if next.Balance.IsNegative() {
				return fmt.Errorf("wallet for %s would go negative (%s)", userID, next.Balance)
			}
			return s.Store.Write(ctx, path, next)
		},
		Rollback: func(ctx context.Context) error {
			if !existed {
				return s.Store.Delete(ctx, path)
			}
			return s.Store.Write(ctx, path, prev)
		},
	}
}

// persistTransactionOp writes the immutable transaction record.
func (s *Service) persistTransactionOp(tx Transaction) saga.Operation {
	path := txPath(tx.ID)
	return saga.Operation{
		Description: fmt.Sprintf("persist transaction %s", tx.ID),
		Execute: func(ctx context.Context) error {
			return s.Store.Write(ctx, path, tx)
		},
		Rollback: func(ctx context.Context) error {
			return s.Store.Delete(ctx, path)
		},
	}
}

// indexFanoutOp writes the transaction ref into every participant's
// per-user index. Rollback removes exactly the refs that were written,
// so a mid-fanout failure compensates cleanly.
func (s *Service) indexFanoutOp(tx Transaction) saga.Operation {
	ref := TxRef{
		TransactionID: tx.ID,
		Type:          tx.Type,
		GroupID:       tx.GroupID,
		CreatedAt:     tx.CreatedAt,
	}

	var written []string

	return saga.Operation{
		Description: fmt.Sprintf("fan out index for transaction %s", tx.ID),
		Execute: func(ctx context.Context) error {
			seen := make(map[string]bool)
			for _, userID := range tx.Participants() {
				if seen[userID] {
					continue
				}
				seen[userID] = true

				path := txIndexPath(userID, tx.ID)
				if err := s.Store.Write(ctx, path, ref); err != nil {
					return err
				}
				written = append(written, path)
			}
			return nil
		},
		Rollback: func(ctx context.Context) error {
			var firstErr error
			for _, path := range written {
				if err := s.Store.Delete(ctx, path); err != nil && firstErr == nil {
					firstErr = err
				}
			}
			return firstErr
		},
	}
}
