/*
transaction.go - Immutable record of one completed business event

PURPOSE:
  Every successful workflow leaves exactly one Transaction behind. The
  record is a closed set of tagged variants sharing one envelope: common
  fields live on Transaction, type-specific detail lives in exactly one of
  the detail structs. A Transaction is written once by a committed saga,
  never mutated, and deleted only by saga rollback when the enclosing
  workflow fails.
*/
package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/warp/split-ledger/money"
	"github.com/warp/split-ledger/split"
)

// =============================================================================
// TRANSACTION ENVELOPE
// =============================================================================

type TransactionType string

const (
	TxExpense      TransactionType = "expense"
	TxPayment      TransactionType = "payment"
	TxWalletAdd    TransactionType = "wallet_add"
	TxWalletDeduct TransactionType = "wallet_deduct"
)

// Transaction is the immutable envelope for one completed business event.
// Exactly one of the detail pointers is set, matching Type.
type Transaction struct {
	ID        string          `json:"id"`
	Type      TransactionType `json:"type"`
	GroupID   string          `json:"groupId,omitempty"`
	Amount    money.Money     `json:"amount"`
	CreatedAt int64           `json:"createdAt"` // Unix seconds
	CreatedBy string          `json:"createdBy"`

	// Wallet balance of the recording user around this event.
	WalletBefore money.Money `json:"walletBalanceBefore"`
	WalletAfter  money.Money `json:"walletBalanceAfter"`

	IdempotencyKey string `json:"idempotencyKey,omitempty"`

	Expense *ExpenseDetail `json:"expense,omitempty"`
	Payment *PaymentDetail `json:"payment,omitempty"`
	Wallet  *WalletDetail  `json:"wallet,omitempty"`
}

// ExpenseDetail records who paid and how the amount was split.
type ExpenseDetail struct {
	PayerID     string               `json:"payerId"`
	Description string               `json:"description,omitempty"`
	Splits      []split.ExpenseSplit `json:"splits"`
}

// PaymentDetail records a settlement payment between two members.
type PaymentDetail struct {
	FromID string `json:"fromId"`
	ToID   string `json:"toId"`
	Method string `json:"method,omitempty"`
	Note   string `json:"note,omitempty"`
}

// WalletDetail records a standalone wallet adjustment.
type WalletDetail struct {
	Reason string `json:"reason,omitempty"`
}

// Participants returns the user ids whose per-user index should reference
// this transaction.
func (t Transaction) Participants() []string {
	switch t.Type {
	case TxExpense:
		if t.Expense == nil {
			return nil
		}
		ids := make([]string, 0, len(t.Expense.Splits))
		for _, s := range t.Expense.Splits {
			ids = append(ids, s.ParticipantID)
		}
		return ids
	case TxPayment:
		if t.Payment == nil {
			return nil
		}
		return []string{t.Payment.FromID, t.Payment.ToID}
	default:
		return []string{t.CreatedBy}
	}
}

// TxRef is the per-user index value pointing at a transaction.
type TxRef struct {
	TransactionID string          `json:"transactionId"`
	Type          TransactionType `json:"type"`
	GroupID       string          `json:"groupId,omitempty"`
	CreatedAt     int64           `json:"createdAt"`
}

// idempotencyClaim is stored at idempotency/{key} by the first saga
// operation of a keyed workflow.
type idempotencyClaim struct {
	TransactionID string `json:"transactionId"`
	ClaimedAt     int64  `json:"claimedAt"`
}

func newTransactionID() string { return uuid.New().String() }

func nowUnix() int64 { return time.Now().Unix() }
