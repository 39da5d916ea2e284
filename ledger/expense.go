/*
expense.go - RecordExpense workflow

PURPOSE:
  Turns "payer covered amount for these participants" into a committed set
  of store mutations: one settlement entry update per affected viewer, the
  transaction record, and the per-user index fan-out, all under one saga.

VIEW FAN-OUT:
  Splits become global debtor→creditor updates, then each affected user
  (payer first, participants in input order) gets their projected entry
  deltas applied to their own settlement paths. Every user's view is
  written independently; the saga is what keeps them consistent.
*/
package ledger

import (
	"context"
	"fmt"

	"github.com/warp/split-ledger/metrics"
	"github.com/warp/split-ledger/money"
	"github.com/warp/split-ledger/saga"
	"github.com/warp/split-ledger/settle"
	"github.com/warp/split-ledger/split"
	"github.com/warp/split-ledger/store"
)

// ExpenseInput is the caller-supplied description of one shared expense.
type ExpenseInput struct {
	GroupID      string
	Amount       money.Money
	PayerID      string
	Participants []split.Participant
	Description  string

	// IdempotencyKey, when non-empty, makes the workflow safe to retry:
	// a second invocation with the same key fails with
	// ErrDuplicateIdempotencyKey instead of double-recording.
	IdempotencyKey string
}

// RecordExpense splits the amount across participants, updates every
// affected user's settlement entries, and persists the transaction record
// as one saga. On failure every partial write is compensated and the
// returned error carries the saga detail.
func (s *Service) RecordExpense(ctx context.Context, in ExpenseInput) (*Transaction, error) {
	userID, err := s.Identity.CurrentUserID(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolving current user: %w", err)
	}

	if err := validateExpenseInput(in); err != nil {
		return nil, err
	}

	// Pure computation first: shares, then the global debtor→creditor
	// updates they imply. Any error here happens before a single write.
	splits, err := split.Split(in.Amount, in.Participants, in.PayerID)
	if err != nil {
		return nil, err
	}
	updates, err := settle.ComputeGlobalUpdates(splits, in.PayerID, in.GroupID)
	if err != nil {
		return nil, err
	}

	// The recording user's wallet is untouched by an expense; the record
	// still snapshots it so history renders a consistent running balance.
	balance, err := s.walletBalance(ctx, userID)
	if err != nil {
		return nil, err
	}

	tx := Transaction{
		ID:             newTransactionID(),
		Type:           TxExpense,
		GroupID:        in.GroupID,
		Amount:         in.Amount,
		CreatedAt:      nowUnix(),
		CreatedBy:      userID,
		WalletBefore:   balance,
		WalletAfter:    balance,
		IdempotencyKey: in.IdempotencyKey,
		Expense: &ExpenseDetail{
			PayerID:     in.PayerID,
			Description: in.Description,
			Splits:      splits,
		},
	}

	coordinator := s.newSaga()
	if in.IdempotencyKey != "" {
		if err := coordinator.AddOperation(s.claimIdempotencyOp(in.IdempotencyKey, tx.ID)); err != nil {
			return nil, err
		}
	}

	for _, viewerID := range expenseViewers(in.PayerID, in.Participants) {
		deltas, err := settle.ApplyUpdatesForViewer(updates, viewerID)
		if err != nil {
			return nil, err
		}
		for _, delta := range deltas {
			if err := coordinator.AddOperation(s.settlementUpdateOp(viewerID, in.GroupID, delta)); err != nil {
				return nil, err
			}
		}
	}

	if err := coordinator.AddOperation(s.persistTransactionOp(tx)); err != nil {
		return nil, err
	}
	if err := coordinator.AddOperation(s.indexFanoutOp(tx)); err != nil {
		return nil, err
	}

	return s.runSaga(ctx, coordinator, tx)
}

// expenseViewers returns the users whose settlement entries an expense can
// touch: payer first, then participants in input order, deduplicated.
func expenseViewers(payerID string, participants []split.Participant) []string {
	seen := map[string]bool{payerID: true}
	viewers := []string{payerID}
	for _, p := range participants {
		if seen[p.ID] {
			continue
		}
		seen[p.ID] = true
		viewers = append(viewers, p.ID)
	}
	return viewers
}

func validateExpenseInput(in ExpenseInput) error {
	if in.GroupID == "" {
		return &InputError{Field: "groupId", Reason: "must not be empty"}
	}
	if !in.Amount.IsPositive() {
		return &InputError{Field: "amount", Reason: "must be positive"}
	}
	if len(in.Participants) == 0 {
		return &InputError{Field: "participants", Reason: "must not be empty"}
	}
	if in.PayerID == "" {
		return &InputError{Field: "payerId", Reason: "must not be empty"}
	}
	for _, p := range in.Participants {
		if p.ID == in.PayerID {
			return nil
		}
	}
	return &InputError{Field: "payerId", Reason: "payer must be a participant"}
}

// walletBalance reads a user's wallet balance, treating an absent wallet
// as zero.
func (s *Service) walletBalance(ctx context.Context, userID string) (money.Money, error) {
	w, err := store.Load[Wallet](ctx, s.Store, walletPath(userID))
	if store.IsNotFound(err) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("reading wallet for %s: %w", userID, err)
	}
	return w.Balance, nil
}

// runSaga executes a fully-built coordinator and translates the outcome:
// commit bumps metrics and notifies, rollback surfaces the saga error.
func (s *Service) runSaga(ctx context.Context, coordinator *saga.Coordinator, tx Transaction) (*Transaction, error) {
	result := coordinator.Execute(ctx)
	if !result.Success {
		metrics.WorkflowRollbacks.WithLabelValues(string(tx.Type)).Inc()
		metrics.CompensationFailures.WithLabelValues(string(tx.Type)).
			Add(float64(len(result.Err.CompensationFailures)))
		return nil, result.Err
	}

	metrics.WorkflowCommits.WithLabelValues(string(tx.Type)).Inc()
	s.logger().Info("transaction committed",
		"tx_id", tx.ID, "type", tx.Type, "amount", tx.Amount.String())
	s.notifyCommitted(tx)
	return &tx, nil
}
