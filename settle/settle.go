/*
Package settle tracks and nets per-counterparty receivable/payable balances.

PURPOSE:
  After an expense is split, every non-payer participant owes the payer
  their share. This package turns splits into global debtor→creditor
  updates, projects those updates onto a single viewer's ledger, and nets
  opposing balances between the same two parties down to one direction.

MODEL:
  GlobalUpdate: "debtor owes creditor amount in group" - one per non-payer
  share of an expense. Viewer-independent.

  Entry: the viewer's balance against ONE counterparty in ONE group:
  ToReceive (they owe me) and ToPay (I owe them). Keyed externally by
  (groupID, counterpartyID).

NETTING:
  If I both owe you 40 and am owed 100 by you, the smaller side offsets in
  full: {ToReceive: 60, ToPay: 0}. After netting at most one side is
  nonzero.

INVARIANTS:
  I1: no entry for the owner's own id with nonzero fields (no
      self-settlement).
  I2: after netting, at most one of ToReceive/ToPay is nonzero.
  Amounts are never negative. A negative amount after any computation is a
  programmer error and fails loudly - never a silent clamp to zero.

SEE ALSO:
  - split/split.go: produces the shares consumed here
  - ledger/expense.go: persists entry updates through the saga
*/
package settle

import (
	"errors"
	"fmt"

	"github.com/warp/split-ledger/money"
	"github.com/warp/split-ledger/split"
)

// =============================================================================
// TYPES
// =============================================================================

// GlobalUpdate records that debtor owes creditor amount within a group.
// One instance per non-payer participant of an expense.
type GlobalUpdate struct {
	DebtorID   string
	CreditorID string
	Amount     money.Money
	GroupID    string
}

// Entry is one viewer's settlement balance against a single counterparty
// in a single group. Values are immutable snapshots - computations return
// new entries.
type Entry struct {
	ToReceive money.Money `json:"toReceive"`
	ToPay     money.Money `json:"toPay"`
}

// IsZero reports whether both sides are zero.
func (e Entry) IsZero() bool { return e.ToReceive.IsZero() && e.ToPay.IsZero() }

// EntryDelta is the change to one counterparty entry from a viewer's
// perspective.
type EntryDelta struct {
	CounterpartyID string
	ToReceive      money.Money
	ToPay          money.Money
}

// Violation is a single invariant breach found by Validate.
type Violation struct {
	CounterpartyID string
	Code           string // "self_settlement" or "dual_positive" or "negative_amount"
	Message        string
}

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrPayerNotParticipant is returned when the payer has no split entry.
	ErrPayerNotParticipant = errors.New("payer is not a participant")

	// ErrInvariantViolation indicates a computation produced an impossible
	// state (negative balance, self-settlement). Always a bug.
	ErrInvariantViolation = errors.New("settlement invariant violation")
)

// InvariantViolationError carries detail about an impossible settlement state.
type InvariantViolationError struct {
	Detail string
}

func (e *InvariantViolationError) Error() string {
	return "settlement invariant violation: " + e.Detail
}
func (e *InvariantViolationError) Unwrap() error { return ErrInvariantViolation }

// =============================================================================
// GLOBAL UPDATES
// =============================================================================

// ComputeGlobalUpdates converts expense splits into debtor→creditor updates.
// Every split whose participant is not the payer yields one update; the
// payer's own share produces none (you do not owe yourself).
func ComputeGlobalUpdates(splits []split.ExpenseSplit, payerID, groupID string) ([]GlobalUpdate, error) {
	payerFound := false
	updates := make([]GlobalUpdate, 0, len(splits))

	for _, s := range splits {
		if s.Amount.IsNegative() {
			return nil, &InvariantViolationError{
				Detail: fmt.Sprintf("negative share %s for participant %s", s.Amount, s.ParticipantID),
			}
		}
		if s.ParticipantID == payerID {
			payerFound = true
			continue
		}
		updates = append(updates, GlobalUpdate{
			DebtorID:   s.ParticipantID,
			CreditorID: payerID,
			Amount:     s.Amount,
			GroupID:    groupID,
		})
	}

	if !payerFound {
		return nil, fmt.Errorf("%w: %s has no split entry", ErrPayerNotParticipant, payerID)
	}
	return updates, nil
}

// ApplyUpdatesForViewer projects global updates onto one viewer's ledger.
// Updates where the viewer is the creditor raise ToReceive against the
// debtor; updates where the viewer is the debtor raise ToPay against the
// creditor. Updates not involving the viewer are ignored. Deltas are
// aggregated per counterparty, in first-seen order.
func ApplyUpdatesForViewer(updates []GlobalUpdate, viewerID string) ([]EntryDelta, error) {
	byCounterparty := make(map[string]*EntryDelta)
	var order []string

	add := func(counterpartyID string) *EntryDelta {
		d, ok := byCounterparty[counterpartyID]
		if !ok {
			d = &EntryDelta{CounterpartyID: counterpartyID}
			byCounterparty[counterpartyID] = d
			order = append(order, counterpartyID)
		}
		return d
	}

	for _, u := range updates {
		if u.DebtorID == u.CreditorID {
			return nil, &InvariantViolationError{
				Detail: fmt.Sprintf("self-settlement update for %s", u.DebtorID),
			}
		}
		if u.Amount.IsNegative() {
			return nil, &InvariantViolationError{
				Detail: fmt.Sprintf("negative update amount %s (%s → %s)", u.Amount, u.DebtorID, u.CreditorID),
			}
		}
		switch viewerID {
		case u.CreditorID:
			d := add(u.DebtorID)
			d.ToReceive = d.ToReceive.Add(u.Amount)
		case u.DebtorID:
			d := add(u.CreditorID)
			d.ToPay = d.ToPay.Add(u.Amount)
		}
	}

	deltas := make([]EntryDelta, 0, len(order))
	for _, id := range order {
		deltas = append(deltas, *byCounterparty[id])
	}
	return deltas, nil
}

// =============================================================================
// ENTRY ARITHMETIC
// =============================================================================

// Apply adds a delta to an entry and nets the result. Fails loudly if
// either side would go negative.
func Apply(entry Entry, delta EntryDelta) (Entry, error) {
	next := Entry{
		ToReceive: entry.ToReceive.Add(delta.ToReceive),
		ToPay:     entry.ToPay.Add(delta.ToPay),
	}
	if next.ToReceive.IsNegative() || next.ToPay.IsNegative() {
		return Entry{}, &InvariantViolationError{
			Detail: fmt.Sprintf("entry went negative: toReceive=%s toPay=%s", next.ToReceive, next.ToPay),
		}
	}
	return Net(next), nil
}

// Net offsets opposing balances: the smaller side is subtracted from both,
// leaving at most one side nonzero. Idempotent.
func Net(entry Entry) Entry {
	if !entry.ToReceive.IsPositive() || !entry.ToPay.IsPositive() {
		return entry
	}
	offset := entry.ToReceive.Min(entry.ToPay)
	return Entry{
		ToReceive: entry.ToReceive.Sub(offset),
		ToPay:     entry.ToPay.Sub(offset),
	}
}

// =============================================================================
// VALIDATION
// =============================================================================

// Validate checks entries (keyed by counterparty id) against the settlement
// invariants for the given owner. It returns ALL violations found rather
// than stopping at the first.
func Validate(entries map[string]Entry, ownerID string) []Violation {
	var violations []Violation

	for counterpartyID, entry := range entries {
		if counterpartyID == ownerID && !entry.IsZero() {
			violations = append(violations, Violation{
				CounterpartyID: counterpartyID,
				Code:           "self_settlement",
				Message:        fmt.Sprintf("entry for owner %s has nonzero fields", ownerID),
			})
		}
		if entry.ToReceive.IsNegative() || entry.ToPay.IsNegative() {
			violations = append(violations, Violation{
				CounterpartyID: counterpartyID,
				Code:           "negative_amount",
				Message:        fmt.Sprintf("toReceive=%s toPay=%s", entry.ToReceive, entry.ToPay),
			})
		}
		if entry.ToReceive.IsPositive() && entry.ToPay.IsPositive() {
			violations = append(violations, Violation{
				CounterpartyID: counterpartyID,
				Code:           "dual_positive",
				Message:        fmt.Sprintf("both sides positive: toReceive=%s toPay=%s", entry.ToReceive, entry.ToPay),
			})
		}
	}
	return violations
}
