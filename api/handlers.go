/*
handlers.go - HTTP API handlers for the expense ledger

PURPOSE:
  Exposes the ledger workflows via REST API. Handles HTTP
  request/response, JSON serialization, and delegates to domain logic.

ENDPOINTS:
  Workflows:
    POST   /api/expenses            Record a shared expense
    POST   /api/payments            Record a settlement payment
    POST   /api/wallet/add          Credit the caller's wallet
    POST   /api/wallet/deduct       Debit the caller's wallet

  Queries:
    GET    /api/wallet              Wallet balance
    GET    /api/settlements         Settlement entries (?group_id= to scope)
    GET    /api/settlements/delta   Net position across entries
    GET    /api/transactions        Transaction history, newest first

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 401: Missing identity header
  - 409: Duplicate idempotency key
  - 500: Saga/internal failures (already compensated)

SEE ALSO:
  - dto.go: Request/response data structures
  - identity.go: X-User-ID middleware
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/warp/split-ledger/ledger"
	"github.com/warp/split-ledger/money"
	"github.com/warp/split-ledger/split"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Ledger *ledger.Service
}

// NewHandler creates a new handler around the ledger service.
func NewHandler(svc *ledger.Service) *Handler {
	return &Handler{Ledger: svc}
}

// =============================================================================
// WORKFLOW HANDLERS
// =============================================================================

// RecordExpense records a shared expense.
// POST /api/expenses
func (h *Handler) RecordExpense(w http.ResponseWriter, r *http.Request) {
	var req RecordExpenseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	participants := make([]split.Participant, 0, len(req.ParticipantIDs))
	for _, id := range req.ParticipantIDs {
		participants = append(participants, split.Participant{ID: id})
	}

	tx, err := h.Ledger.RecordExpense(r.Context(), ledger.ExpenseInput{
		GroupID:        req.GroupID,
		Amount:         money.FromCents(req.AmountCents),
		PayerID:        req.PayerID,
		Participants:   participants,
		Description:    req.Description,
		IdempotencyKey: req.IdempotencyKey,
	})
	if err != nil {
		writeWorkflowError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toTransactionDTO(*tx))
}

// RecordPayment records a settlement payment.
// POST /api/payments
func (h *Handler) RecordPayment(w http.ResponseWriter, r *http.Request) {
	var req RecordPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	tx, err := h.Ledger.RecordPayment(r.Context(), ledger.PaymentInput{
		GroupID:        req.GroupID,
		FromID:         req.FromID,
		ToID:           req.ToID,
		Amount:         money.FromCents(req.AmountCents),
		Method:         req.Method,
		Note:           req.Note,
		IdempotencyKey: req.IdempotencyKey,
	})
	if err != nil {
		writeWorkflowError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toTransactionDTO(*tx))
}

// WalletAdd credits the caller's wallet.
// POST /api/wallet/add
func (h *Handler) WalletAdd(w http.ResponseWriter, r *http.Request) {
	h.walletAdjust(w, r, h.Ledger.WalletAdd)
}

// WalletDeduct debits the caller's wallet.
// POST /api/wallet/deduct
func (h *Handler) WalletDeduct(w http.ResponseWriter, r *http.Request) {
	h.walletAdjust(w, r, h.Ledger.WalletDeduct)
}

func (h *Handler) walletAdjust(w http.ResponseWriter, r *http.Request,
	adjust func(ctx context.Context, in ledger.WalletInput) (*ledger.Transaction, error)) {
	var req WalletAdjustRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	tx, err := adjust(r.Context(), ledger.WalletInput{
		Amount:         money.FromCents(req.AmountCents),
		Reason:         req.Reason,
		IdempotencyKey: req.IdempotencyKey,
	})
	if err != nil {
		writeWorkflowError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toTransactionDTO(*tx))
}

// =============================================================================
// QUERY HANDLERS
// =============================================================================

// GetWallet returns the caller's wallet balance.
// GET /api/wallet
func (h *Handler) GetWallet(w http.ResponseWriter, r *http.Request) {
	balance, err := h.Ledger.WalletBalance(r.Context())
	if err != nil {
		writeWorkflowError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toWalletDTO(balance))
}

// GetSettlements returns the caller's settlement entries, optionally
// scoped to one group.
// GET /api/settlements?group_id=...
func (h *Handler) GetSettlements(w http.ResponseWriter, r *http.Request) {
	entries, err := h.Ledger.Settlements(r.Context(), r.URL.Query().Get("group_id"))
	if err != nil {
		writeWorkflowError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSettlementDTOs(entries))
}

// GetSettlementDelta returns the caller's net position.
// GET /api/settlements/delta?group_id=...
func (h *Handler) GetSettlementDelta(w http.ResponseWriter, r *http.Request) {
	delta, err := h.Ledger.SettlementDelta(r.Context(), r.URL.Query().Get("group_id"))
	if err != nil {
		writeWorkflowError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, SettlementDeltaDTO{
		DeltaCents: delta.Cents(),
		Delta:      delta.String(),
	})
}

// GetTransactions returns the caller's transaction history, newest first.
// GET /api/transactions
func (h *Handler) GetTransactions(w http.ResponseWriter, r *http.Request) {
	txs, err := h.Ledger.Transactions(r.Context())
	if err != nil {
		writeWorkflowError(w, err)
		return
	}
	dtos := make([]TransactionDTO, 0, len(txs))
	for _, tx := range txs {
		dtos = append(dtos, toTransactionDTO(tx))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// Health reports liveness.
// GET /healthz
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// RESPONSE HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeWorkflowError maps ledger errors to HTTP status codes.
func writeWorkflowError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ledger.ErrDuplicateIdempotencyKey):
		writeError(w, http.StatusConflict, "Duplicate idempotency key", err)
	case ledger.IsClientError(err):
		writeError(w, http.StatusBadRequest, "Invalid request", err)
	case errors.Is(err, ErrNoIdentity):
		writeError(w, http.StatusUnauthorized, "Missing identity", err)
	default:
		writeError(w, http.StatusInternalServerError, "Workflow failed", err)
	}
}
