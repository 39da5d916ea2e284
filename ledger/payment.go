/*
payment.go - RecordPayment workflow

PURPOSE:
  Records a settlement payment from one member to another: the payer's
  ToPay and the recipient's ToReceive both drop by the amount, the current
  user's wallet moves, and the transaction record is written - one saga.

OVERPAYMENT:
  Paying more than the recorded debt is rejected before the saga starts.
  An overpayment would drive the payer's ToPay negative, which the entry
  arithmetic treats as an invariant violation; catching it here keeps it a
  plain client error.
*/
package ledger

import (
	"context"
	"fmt"

	"github.com/warp/split-ledger/money"
	"github.com/warp/split-ledger/settle"
	"github.com/warp/split-ledger/store"
)

// PaymentInput describes one settlement payment between two members.
type PaymentInput struct {
	GroupID string
	FromID  string
	ToID    string
	Amount  money.Money
	Method  string
	Note    string

	IdempotencyKey string
}

// RecordPayment applies a payment from FromID to ToID against their
// recorded debt. The current user must be one of the two parties; their
// wallet is debited (payer) or credited (recipient) as part of the saga.
func (s *Service) RecordPayment(ctx context.Context, in PaymentInput) (*Transaction, error) {
	userID, err := s.Identity.CurrentUserID(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolving current user: %w", err)
	}

	if err := validatePaymentInput(in, userID); err != nil {
		return nil, err
	}

	// Overpayment check against the payer's recorded debt. Read outside
	// the saga: a stale read here fails inside the saga anyway when the
	// entry arithmetic goes negative.
	entry, err := store.Load[settle.Entry](ctx, s.Store, settlementPath(in.FromID, in.GroupID, in.ToID))
	if store.IsNotFound(err) {
		entry = settle.Entry{}
	} else if err != nil {
		return nil, fmt.Errorf("reading settlement entry: %w", err)
	}
	if in.Amount.Cents() > entry.ToPay.Cents() {
		return nil, &InputError{
			Field:  "amount",
			Reason: fmt.Sprintf("payment %s exceeds recorded debt %s", in.Amount, entry.ToPay),
		}
	}

	// The current user's wallet moves: out for the payer, in for the
	// recipient. Insufficient funds is a client error, caught pre-saga.
	walletDelta := in.Amount
	if userID == in.FromID {
		walletDelta = in.Amount.Neg()
	}
	balance, err := s.walletBalance(ctx, userID)
	if err != nil {
		return nil, err
	}
	after := balance.Add(walletDelta)
	if after.IsNegative() {
		return nil, &InputError{
			Field:  "amount",
			Reason: fmt.Sprintf("wallet balance %s is insufficient for %s", balance, in.Amount),
		}
	}

	tx := Transaction{
		ID:             newTransactionID(),
		Type:           TxPayment,
		GroupID:        in.GroupID,
		Amount:         in.Amount,
		CreatedAt:      nowUnix(),
		CreatedBy:      userID,
		WalletBefore:   balance,
		WalletAfter:    after,
		IdempotencyKey: in.IdempotencyKey,
		Payment: &PaymentDetail{
			FromID: in.FromID,
			ToID:   in.ToID,
			Method: in.Method,
			Note:   in.Note,
		},
	}

	coordinator := s.newSaga()
	if in.IdempotencyKey != "" {
		if err := coordinator.AddOperation(s.claimIdempotencyOp(in.IdempotencyKey, tx.ID)); err != nil {
			return nil, err
		}
	}

	// Both parties' entries shrink by the paid amount.
	ops := []struct {
		viewerID string
		delta    settle.EntryDelta
	}{
		{in.FromID, settle.EntryDelta{CounterpartyID: in.ToID, ToPay: in.Amount.Neg()}},
		{in.ToID, settle.EntryDelta{CounterpartyID: in.FromID, ToReceive: in.Amount.Neg()}},
	}
	for _, o := range ops {
		if err := coordinator.AddOperation(s.settlementUpdateOp(o.viewerID, in.GroupID, o.delta)); err != nil {
			return nil, err
		}
	}

	if err := coordinator.AddOperation(s.walletUpdateOp(userID, walletDelta)); err != nil {
		return nil, err
	}
	if err := coordinator.AddOperation(s.persistTransactionOp(tx)); err != nil {
		return nil, err
	}
	if err := coordinator.AddOperation(s.indexFanoutOp(tx)); err != nil {
		return nil, err
	}

	return s.runSaga(ctx, coordinator, tx)
}

func validatePaymentInput(in PaymentInput, userID string) error {
	if in.GroupID == "" {
		return &InputError{Field: "groupId", Reason: "must not be empty"}
	}
	if in.FromID == "" || in.ToID == "" {
		return &InputError{Field: "fromId/toId", Reason: "must not be empty"}
	}
	if in.FromID == in.ToID {
		return &InputError{Field: "toId", Reason: "cannot pay yourself"}
	}
	if !in.Amount.IsPositive() {
		return &InputError{Field: "amount", Reason: "must be positive"}
	}
	if userID != in.FromID && userID != in.ToID {
		return &InputError{Field: "fromId/toId", Reason: "current user must be a party to the payment"}
	}
	return nil
}
