/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract.

NAMING CONVENTION:
  - *Request: Request body types from clients
  - *DTO: Response types returned to clients

AMOUNTS:
  Amounts cross the wire as integer cents (amountCents). Display strings
  are provided alongside where clients render directly.

VALIDATION:
  Validation is done in the ledger workflows, not in DTOs. DTOs are pure
  data carriers.

SEE ALSO:
  - handlers.go: Uses these types
  - ledger/: The domain types these map onto
*/
package api

import (
	"sort"

	"github.com/warp/split-ledger/ledger"
	"github.com/warp/split-ledger/money"
	"github.com/warp/split-ledger/settle"
)

// =============================================================================
// REQUEST TYPES
// =============================================================================

// RecordExpenseRequest is the body for POST /api/expenses.
type RecordExpenseRequest struct {
	GroupID        string   `json:"group_id"`
	AmountCents    int64    `json:"amount_cents"`
	PayerID        string   `json:"payer_id"`
	ParticipantIDs []string `json:"participant_ids"`
	Description    string   `json:"description,omitempty"`
	IdempotencyKey string   `json:"idempotency_key,omitempty"`
}

// RecordPaymentRequest is the body for POST /api/payments.
type RecordPaymentRequest struct {
	GroupID        string `json:"group_id"`
	FromID         string `json:"from_id"`
	ToID           string `json:"to_id"`
	AmountCents    int64  `json:"amount_cents"`
	Method         string `json:"method,omitempty"`
	Note           string `json:"note,omitempty"`
	IdempotencyKey string `json:"idempotency_key,omitempty"`
}

// WalletAdjustRequest is the body for POST /api/wallet/add and /deduct.
type WalletAdjustRequest struct {
	AmountCents    int64  `json:"amount_cents"`
	Reason         string `json:"reason,omitempty"`
	IdempotencyKey string `json:"idempotency_key,omitempty"`
}

// =============================================================================
// RESPONSE TYPES
// =============================================================================

// TransactionDTO is a committed transaction in API responses.
type TransactionDTO struct {
	ID          string `json:"id"`
	Type        string `json:"type"`
	GroupID     string `json:"group_id,omitempty"`
	AmountCents int64  `json:"amount_cents"`
	Amount      string `json:"amount"`
	CreatedAt   int64  `json:"created_at"`
	CreatedBy   string `json:"created_by"`

	WalletBalanceBeforeCents int64 `json:"wallet_balance_before_cents"`
	WalletBalanceAfterCents  int64 `json:"wallet_balance_after_cents"`

	Expense *ExpenseDetailDTO `json:"expense,omitempty"`
	Payment *PaymentDetailDTO `json:"payment,omitempty"`
	Wallet  *WalletDetailDTO  `json:"wallet,omitempty"`
}

// ExpenseDetailDTO mirrors ledger.ExpenseDetail.
type ExpenseDetailDTO struct {
	PayerID     string          `json:"payer_id"`
	Description string          `json:"description,omitempty"`
	Splits      []SplitShareDTO `json:"splits"`
}

// SplitShareDTO is one participant's share of an expense.
type SplitShareDTO struct {
	ParticipantID string `json:"participant_id"`
	AmountCents   int64  `json:"amount_cents"`
	ExtraCent     bool   `json:"extra_cent,omitempty"`
}

// PaymentDetailDTO mirrors ledger.PaymentDetail.
type PaymentDetailDTO struct {
	FromID string `json:"from_id"`
	ToID   string `json:"to_id"`
	Method string `json:"method,omitempty"`
	Note   string `json:"note,omitempty"`
}

// WalletDetailDTO mirrors ledger.WalletDetail.
type WalletDetailDTO struct {
	Reason string `json:"reason,omitempty"`
}

// SettlementEntryDTO is one counterparty balance in one group.
type SettlementEntryDTO struct {
	GroupID          string `json:"group_id"`
	CounterpartyID   string `json:"counterparty_id"`
	ToReceiveCents   int64  `json:"to_receive_cents"`
	ToPayCents       int64  `json:"to_pay_cents"`
	ToReceiveDisplay string `json:"to_receive"`
	ToPayDisplay     string `json:"to_pay"`
}

// SettlementDeltaDTO is the viewer's net position.
type SettlementDeltaDTO struct {
	DeltaCents int64  `json:"delta_cents"`
	Delta      string `json:"delta"`
}

// WalletDTO is the viewer's wallet balance.
type WalletDTO struct {
	BalanceCents int64  `json:"balance_cents"`
	Balance      string `json:"balance"`
}

// ErrorResponse is the error envelope.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// MAPPING
// =============================================================================

func toTransactionDTO(tx ledger.Transaction) TransactionDTO {
	dto := TransactionDTO{
		ID:                       tx.ID,
		Type:                     string(tx.Type),
		GroupID:                  tx.GroupID,
		AmountCents:              tx.Amount.Cents(),
		Amount:                   tx.Amount.String(),
		CreatedAt:                tx.CreatedAt,
		CreatedBy:                tx.CreatedBy,
		WalletBalanceBeforeCents: tx.WalletBefore.Cents(),
		WalletBalanceAfterCents:  tx.WalletAfter.Cents(),
	}

	if tx.Expense != nil {
		d := &ExpenseDetailDTO{
			PayerID:     tx.Expense.PayerID,
			Description: tx.Expense.Description,
			Splits:      make([]SplitShareDTO, 0, len(tx.Expense.Splits)),
		}
		for _, s := range tx.Expense.Splits {
			d.Splits = append(d.Splits, SplitShareDTO{
				ParticipantID: s.ParticipantID,
				AmountCents:   s.Amount.Cents(),
				ExtraCent:     s.IsRemainderRecipient,
			})
		}
		dto.Expense = d
	}
	if tx.Payment != nil {
		dto.Payment = &PaymentDetailDTO{
			FromID: tx.Payment.FromID,
			ToID:   tx.Payment.ToID,
			Method: tx.Payment.Method,
			Note:   tx.Payment.Note,
		}
	}
	if tx.Wallet != nil {
		dto.Wallet = &WalletDetailDTO{Reason: tx.Wallet.Reason}
	}
	return dto
}

func toSettlementDTOs(entries map[string]map[string]settle.Entry) []SettlementEntryDTO {
	dtos := []SettlementEntryDTO{}
	for groupID, group := range entries {
		for counterpartyID, e := range group {
			dtos = append(dtos, SettlementEntryDTO{
				GroupID:          groupID,
				CounterpartyID:   counterpartyID,
				ToReceiveCents:   e.ToReceive.Cents(),
				ToPayCents:       e.ToPay.Cents(),
				ToReceiveDisplay: e.ToReceive.String(),
				ToPayDisplay:     e.ToPay.String(),
			})
		}
	}
	sort.Slice(dtos, func(i, j int) bool {
		if dtos[i].GroupID != dtos[j].GroupID {
			return dtos[i].GroupID < dtos[j].GroupID
		}
		return dtos[i].CounterpartyID < dtos[j].CounterpartyID
	})
	return dtos
}

func toWalletDTO(balance money.Money) WalletDTO {
	return WalletDTO{BalanceCents: balance.Cents(), Balance: balance.String()}
}
