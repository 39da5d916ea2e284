/*
wallet.go - Standalone wallet adjustments

PURPOSE:
  Top-ups and deductions outside any payment: adding funds, cashing out.
  Small sagas (wallet op + record + index) so history and balance can
  never disagree after a partial failure.
*/
package ledger

import (
	"context"
	"fmt"

	"github.com/warp/split-ledger/money"
)

// WalletInput describes a standalone wallet adjustment.
type WalletInput struct {
	Amount money.Money
	Reason string

	IdempotencyKey string
}

// WalletAdd credits the current user's wallet.
func (s *Service) WalletAdd(ctx context.Context, in WalletInput) (*Transaction, error) {
	return s.walletAdjust(ctx, in, TxWalletAdd)
}

// WalletDeduct debits the current user's wallet. Fails with a client error
// when the balance is insufficient.
func (s *Service) WalletDeduct(ctx context.Context, in WalletInput) (*Transaction, error) {
	return s.walletAdjust(ctx, in, TxWalletDeduct)
}

func (s *Service) walletAdjust(ctx context.Context, in WalletInput, txType TransactionType) (*Transaction, error) {
	userID, err := s.Identity.CurrentUserID(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolving current user: %w", err)
	}
	if !in.Amount.IsPositive() {
		return nil, &InputError{Field: "amount", Reason: "must be positive"}
	}

	delta := in.Amount
	if txType == TxWalletDeduct {
		delta = in.Amount.Neg()
	}

	balance, err := s.walletBalance(ctx, userID)
	if err != nil {
		return nil, err
	}
	after := balance.Add(delta)
	if after.IsNegative() {
		return nil, &InputError{
			Field:  "amount",
			Reason: fmt.Sprintf("wallet balance %s is insufficient for %s", balance, in.Amount),
		}
	}

	tx := Transaction{
		ID:             newTransactionID(),
		Type:           txType,
		Amount:         in.Amount,
		CreatedAt:      nowUnix(),
		CreatedBy:      userID,
		WalletBefore:   balance,
		WalletAfter:    after,
		IdempotencyKey: in.IdempotencyKey,
		Wallet:         &WalletDetail{Reason: in.Reason},
	}

	coordinator := s.newSaga()
	if in.IdempotencyKey != "" {
		if err := coordinator.AddOperation(s.claimIdempotencyOp(in.IdempotencyKey, tx.ID)); err != nil {
			return nil, err
		}
	}
	if err := coordinator.AddOperation(s.walletUpdateOp(userID, delta)); err != nil {
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

// WalletBalance returns the current user's wallet balance. An absent
// wallet reads as zero.
func (s *Service) WalletBalance(ctx context.Context) (money.Money, error) {
	userID, err := s.Identity.CurrentUserID(ctx)
	if err != nil {
		return 0, fmt.Errorf("resolving current user: %w", err)
	}
	return s.walletBalance(ctx, userID)
}
