/*
queries.go - Read-side views over the store

PURPOSE:
  Settlement views, the net delta, and transaction history for the current
  user. Queries enumerate with List and never mutate; they read through
  the same paths the sagas write.
*/
package ledger

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/warp/split-ledger/money"
	"github.com/warp/split-ledger/settle"
	"github.com/warp/split-ledger/store"
)

// Settlements returns the current user's settlement entries, keyed by
// group id then counterparty id. An empty groupID returns all groups.
// Zeroed entries (fully netted) are included as written; callers decide
// whether to display them.
func (s *Service) Settlements(ctx context.Context, groupID string) (map[string]map[string]settle.Entry, error) {
	userID, err := s.Identity.CurrentUserID(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolving current user: %w", err)
	}

	prefix := settlementPrefix(userID, groupID)
	paths, err := s.Store.List(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("listing settlements: %w", err)
	}

	base := settlementPrefix(userID, "")
	out := make(map[string]map[string]settle.Entry)
	for _, path := range paths {
		gid, counterpartyID, ok := splitSettlementPath(strings.TrimPrefix(path, base))
		if !ok {
			continue
		}
		entry, err := store.Load[settle.Entry](ctx, s.Store, path)
		if store.IsNotFound(err) {
			// Deleted between List and Read; skip.
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("reading settlement %s: %w", path, err)
		}
		if out[gid] == nil {
			out[gid] = make(map[string]settle.Entry)
		}
		out[gid][counterpartyID] = entry
	}
	return out, nil
}

// SettlementDelta returns the current user's net position across the given
// group (or all groups when groupID is empty): total to receive minus
// total to pay. Positive means the user is owed money overall.
func (s *Service) SettlementDelta(ctx context.Context, groupID string) (money.Money, error) {
	entries, err := s.Settlements(ctx, groupID)
	if err != nil {
		return 0, err
	}

	var delta money.Money
	for _, group := range entries {
		for _, entry := range group {
			delta = delta.Add(entry.ToReceive).Sub(entry.ToPay)
		}
	}
	return delta, nil
}

// Transactions returns the current user's transaction history, newest
// first. Index entries whose transaction record has since been removed
// are skipped.
func (s *Service) Transactions(ctx context.Context) ([]Transaction, error) {
	userID, err := s.Identity.CurrentUserID(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolving current user: %w", err)
	}

	paths, err := s.Store.List(ctx, txIndexPrefix(userID))
	if err != nil {
		return nil, fmt.Errorf("listing transaction index: %w", err)
	}

	txs := make([]Transaction, 0, len(paths))
	for _, path := range paths {
		ref, err := store.Load[TxRef](ctx, s.Store, path)
		if store.IsNotFound(err) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("reading index entry %s: %w", path, err)
		}
		tx, err := store.Load[Transaction](ctx, s.Store, txPath(ref.TransactionID))
		if store.IsNotFound(err) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("reading transaction %s: %w", ref.TransactionID, err)
		}
		txs = append(txs, tx)
	}

	sort.Slice(txs, func(i, j int) bool {
		if txs[i].CreatedAt != txs[j].CreatedAt {
			return txs[i].CreatedAt > txs[j].CreatedAt
		}
		return txs[i].ID > txs[j].ID
	})
	return txs, nil
}
