/*
handlers_test.go - HTTP-level tests for the API

Tests drive the full router with an in-memory store: identity middleware,
JSON decoding, workflow delegation, and error status mapping.
*/
package api_test

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/split-ledger/api"
	"github.com/warp/split-ledger/ledger"
	"github.com/warp/split-ledger/saga"
	"github.com/warp/split-ledger/store"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	svc := ledger.NewService(store.NewMemory(), api.ContextIdentity{})
	svc.Retry = saga.RetryPolicy{
		MaxAttempts: 2,
		BaseDelay:   time.Microsecond,
		MaxDelay:    time.Microsecond,
		IsTransient: store.IsTransient,
	}
	svc.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))

	srv := httptest.NewServer(api.NewRouter(api.NewHandler(svc)))
	t.Cleanup(srv.Close)
	return srv
}

func doJSON(t *testing.T, srv *httptest.Server, method, path, userID string, body any) (*http.Response, []byte) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, srv.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		req.Header.Set(api.UserIDHeader, userID)
	}

	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	resp.Body.Close()
	return resp, raw
}

func recordExpense(t *testing.T, srv *httptest.Server, userID string, req api.RecordExpenseRequest) api.TransactionDTO {
	t.Helper()
	resp, raw := doJSON(t, srv, http.MethodPost, "/api/expenses", userID, req)
	require.Equal(t, http.StatusCreated, resp.StatusCode, "body: %s", raw)

	var dto api.TransactionDTO
	require.NoError(t, json.Unmarshal(raw, &dto))
	return dto
}

func TestAPI_RequiresIdentity(t *testing.T) {
	srv := newTestServer(t)

	resp, _ := doJSON(t, srv, http.MethodGet, "/api/wallet", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestAPI_RecordExpenseAndQuerySettlements(t *testing.T) {
	srv := newTestServer(t)

	dto := recordExpense(t, srv, "b", api.RecordExpenseRequest{
		GroupID:        "trip",
		AmountCents:    30000,
		PayerID:        "b",
		ParticipantIDs: []string{"a", "b", "c"},
		Description:    "hotel",
	})
	assert.Equal(t, "expense", dto.Type)
	assert.Equal(t, int64(30000), dto.AmountCents)
	require.NotNil(t, dto.Expense)
	assert.Len(t, dto.Expense.Splits, 3)

	// b's settlements show 100.00 receivable from each of a and c.
	resp, raw := doJSON(t, srv, http.MethodGet, "/api/settlements?group_id=trip", "b", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var entries []api.SettlementEntryDTO
	require.NoError(t, json.Unmarshal(raw, &entries))
	require.Len(t, entries, 2)
	assert.Equal(t, "a", entries[0].CounterpartyID)
	assert.Equal(t, int64(10000), entries[0].ToReceiveCents)
	assert.Equal(t, "c", entries[1].CounterpartyID)
	assert.Equal(t, int64(10000), entries[1].ToReceiveCents)

	// a's net delta is -100.00.
	resp, raw = doJSON(t, srv, http.MethodGet, "/api/settlements/delta", "a", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var delta api.SettlementDeltaDTO
	require.NoError(t, json.Unmarshal(raw, &delta))
	assert.Equal(t, int64(-10000), delta.DeltaCents)
}

func TestAPI_PaymentFlow(t *testing.T) {
	srv := newTestServer(t)

	recordExpense(t, srv, "b", api.RecordExpenseRequest{
		GroupID:        "trip",
		AmountCents:    30000,
		PayerID:        "b",
		ParticipantIDs: []string{"a", "b", "c"},
	})

	// a tops up, then pays part of the debt.
	resp, raw := doJSON(t, srv, http.MethodPost, "/api/wallet/add", "a", api.WalletAdjustRequest{AmountCents: 15000})
	require.Equal(t, http.StatusCreated, resp.StatusCode, "body: %s", raw)

	resp, raw = doJSON(t, srv, http.MethodPost, "/api/payments", "a", api.RecordPaymentRequest{
		GroupID:     "trip",
		FromID:      "a",
		ToID:        "b",
		AmountCents: 4000,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, "body: %s", raw)

	var tx api.TransactionDTO
	require.NoError(t, json.Unmarshal(raw, &tx))
	assert.Equal(t, int64(15000), tx.WalletBalanceBeforeCents)
	assert.Equal(t, int64(11000), tx.WalletBalanceAfterCents)

	// Overpayment of the remaining 60.00 debt is a 400.
	resp, _ = doJSON(t, srv, http.MethodPost, "/api/payments", "a", api.RecordPaymentRequest{
		GroupID:     "trip",
		FromID:      "a",
		ToID:        "b",
		AmountCents: 9000,
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, raw = doJSON(t, srv, http.MethodGet, "/api/wallet", "a", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var wallet api.WalletDTO
	require.NoError(t, json.Unmarshal(raw, &wallet))
	assert.Equal(t, int64(11000), wallet.BalanceCents)
}

func TestAPI_ErrorStatusMapping(t *testing.T) {
	srv := newTestServer(t)

	// Bad input → 400.
	resp, _ := doJSON(t, srv, http.MethodPost, "/api/expenses", "a", api.RecordExpenseRequest{
		GroupID:        "g",
		AmountCents:    -5,
		PayerID:        "a",
		ParticipantIDs: []string{"a"},
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// Duplicate idempotency key → 409.
	req := api.RecordExpenseRequest{
		GroupID:        "g",
		AmountCents:    900,
		PayerID:        "a",
		ParticipantIDs: []string{"a", "b"},
		IdempotencyKey: "once",
	}
	recordExpense(t, srv, "a", req)
	resp, _ = doJSON(t, srv, http.MethodPost, "/api/expenses", "a", req)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	// Malformed body → 400.
	httpReq, err := http.NewRequest(http.MethodPost, srv.URL+"/api/expenses", bytes.NewBufferString("{"))
	require.NoError(t, err)
	httpReq.Header.Set(api.UserIDHeader, "a")
	r, err := srv.Client().Do(httpReq)
	require.NoError(t, err)
	r.Body.Close()
	assert.Equal(t, http.StatusBadRequest, r.StatusCode)
}

func TestAPI_TransactionHistory(t *testing.T) {
	srv := newTestServer(t)

	recordExpense(t, srv, "a", api.RecordExpenseRequest{
		GroupID:        "g",
		AmountCents:    900,
		PayerID:        "a",
		ParticipantIDs: []string{"a", "b", "c"},
	})

	resp, raw := doJSON(t, srv, http.MethodGet, "/api/transactions", "c", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var txs []api.TransactionDTO
	require.NoError(t, json.Unmarshal(raw, &txs))
	require.Len(t, txs, 1)
	assert.Equal(t, "expense", txs[0].Type)
}

func TestAPI_Healthz(t *testing.T) {
	srv := newTestServer(t)

	resp, raw := doJSON(t, srv, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status":"ok"}`, string(raw))
}
