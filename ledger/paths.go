package ledger

import (
	"fmt"
	"strings"
)

// =============================================================================
// PATH LAYOUT - Where workflow state lives in the backing store
// =============================================================================
//
//   users/{uid}/wallet                                 Wallet
//   users/{uid}/settlements/{groupID}/{counterpartyID} settle.Entry
//   users/{uid}/txindex/{txID}                         TxRef
//   transactions/{txID}                                Transaction
//   idempotency/{key}                                  idempotencyClaim
//
// Each path is one atomically-writable unit; everything spanning paths
// goes through the saga.

func walletPath(userID string) string {
	return fmt.Sprintf("users/%s/wallet", userID)
}

func settlementPath(userID, groupID, counterpartyID string) string {
	return fmt.Sprintf("users/%s/settlements/%s/%s", userID, groupID, counterpartyID)
}

func settlementPrefix(userID, groupID string) string {
	if groupID == "" {
		return fmt.Sprintf("users/%s/settlements/", userID)
	}
	return fmt.Sprintf("users/%s/settlements/%s/", userID, groupID)
}

func txPath(txID string) string {
	return fmt.Sprintf("transactions/%s", txID)
}

func txIndexPath(userID, txID string) string {
	return fmt.Sprintf("users/%s/txindex/%s", userID, txID)
}

func txIndexPrefix(userID string) string {
	return fmt.Sprintf("users/%s/txindex/", userID)
}

func idempotencyPath(key string) string {
	return fmt.Sprintf("idempotency/%s", key)
}

// splitSettlementPath recovers (groupID, counterpartyID) from a settlement
// path relative to its per-user prefix.
func splitSettlementPath(rel string) (groupID, counterpartyID string, ok bool) {
	parts := strings.SplitN(rel, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", false
	}
	return parts[0], parts[1], true
}
