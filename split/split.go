/*
Package split computes fair per-participant shares of an expense.

PURPOSE:
  Splitting T cents across n participants leaves T mod n cents that cannot
  be divided evenly. Someone has to absorb the extra cent(s). This package
  decides who, deterministically and fairly.

ALGORITHM:
  base      = floor(T / n)
  remainder = T mod n
  The remainder cents are assigned one each to the `remainder` participants
  starting at the payer's position and wrapping around list order. The
  participant at original index i receives base+1 iff
  (i - payerIndex + n) mod n < remainder.

WHY ROTATE FROM THE PAYER?
  A fixed starting point (always index 0) systematically overcharges the
  same people across repeated expenses. Rotating the start with the payer
  spreads the rounding cost across the group as payers alternate.

INVARIANT:
  The shares always sum to the original total, exactly, in cents. The
  function verifies this before returning and fails loudly if arithmetic
  ever breaks it.

SEE ALSO:
  - money/money.go: cent arithmetic
  - settle/settle.go: turning shares into debtor/creditor updates
*/
package split

import (
	"errors"
	"fmt"

	"github.com/warp/split-ledger/money"
)

// =============================================================================
// TYPES
// =============================================================================

// Participant is one person in a split. Identity is opaque and externally
// assigned; ids must be unique within one split.
type Participant struct {
	ID          string
	DisplayName string
}

// ExpenseSplit is one participant's share of a single expense. Immutable
// once produced.
type ExpenseSplit struct {
	ParticipantID string
	Amount        money.Money

	// IsRemainderRecipient marks shares that absorbed an extra cent.
	IsRemainderRecipient bool
}

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrInvalidInput is returned for caller mistakes: no participants,
	// duplicate ids, non-positive total.
	ErrInvalidInput = errors.New("invalid split input")

	// ErrSumMismatch indicates the computed shares did not reproduce the
	// total. This is a bug in the calculator, never a runtime condition.
	ErrSumMismatch = errors.New("split shares do not sum to total")
)

// InputError carries the reason a split input was rejected.
type InputError struct {
	Reason string
}

func (e *InputError) Error() string { return "invalid split input: " + e.Reason }
func (e *InputError) Unwrap() error { return ErrInvalidInput }

// =============================================================================
// CALCULATOR
// =============================================================================

// Split divides total across participants, rotating the rounding remainder
// from the payer's list position. Pure function, no side effects.
//
// The payer not appearing in participants is a caller error that workflows
// reject before calling Split; if it happens anyway the rotation starts at
// index 0.
func Split(total money.Money, participants []Participant, payerID string) ([]ExpenseSplit, error) {
	if len(participants) == 0 {
		return nil, &InputError{Reason: "participants must not be empty"}
	}
	if !total.IsPositive() {
		return nil, &InputError{Reason: fmt.Sprintf("total must be positive, got %s", total)}
	}

	seen := make(map[string]bool, len(participants))
	for _, p := range participants {
		if p.ID == "" {
			return nil, &InputError{Reason: "participant id must not be empty"}
		}
		if seen[p.ID] {
			return nil, &InputError{Reason: fmt.Sprintf("duplicate participant id %q", p.ID)}
		}
		seen[p.ID] = true
	}

	n := int64(len(participants))
	base := total.Cents() / n
	remainder := total.Cents() % n

	startIndex := int64(0)
	for i, p := range participants {
		if p.ID == payerID {
			startIndex = int64(i)
			break
		}
	}

	splits := make([]ExpenseSplit, len(participants))
	for i, p := range participants {
		adjusted := (int64(i) - startIndex + n) % n
		share := base
		extra := adjusted < remainder
		if extra {
			share++
		}
		splits[i] = ExpenseSplit{
			ParticipantID:        p.ID,
			Amount:               money.FromCents(share),
			IsRemainderRecipient: extra,
		}
	}

	// Conservation check. base*n + remainder == T by construction, so a
	// mismatch here means the loop above is broken.
	var sum money.Money
	for _, s := range splits {
		sum = sum.Add(s.Amount)
	}
	if sum != total {
		return nil, fmt.Errorf("%w: total %s, shares %s", ErrSumMismatch, total, sum)
	}

	return splits, nil
}
