package split_test

import (
	"errors"
	"testing"

	"github.com/warp/split-ledger/money"
	"github.com/warp/split-ledger/split"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func people(ids ...string) []split.Participant {
	ps := make([]split.Participant, len(ids))
	for i, id := range ids {
		ps[i] = split.Participant{ID: id, DisplayName: id}
	}
	return ps
}

func shareMap(splits []split.ExpenseSplit) map[string]int64 {
	m := make(map[string]int64, len(splits))
	for _, s := range splits {
		m[s.ParticipantID] = s.Amount.Cents()
	}
	return m
}

// =============================================================================
// SCENARIO TESTS
// =============================================================================

func TestSplit_HundredAcrossThree_PayerTakesRemainder(t *testing.T) {
	// GIVEN: 100.00 split across A, B, C with A paying
	// WHEN: Splitting
	// THEN: A gets 33.34 (the extra cent), B and C get 33.33

	splits, err := split.Split(money.FromCents(10000), people("A", "B", "C"), "A")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got := shareMap(splits)
	want := map[string]int64{"A": 3334, "B": 3333, "C": 3333}
	for id, cents := range want {
		if got[id] != cents {
			t.Errorf("share for %s = %d, want %d", id, got[id], cents)
		}
	}
}

func TestSplit_FiveCentsAcrossThree_RotationStartsAtPayer(t *testing.T) {
	// GIVEN: 0.05 across A, B, C with B paying (remainder 2)
	// WHEN: Splitting
	// THEN: B and C absorb the extra cents, A gets the base

	splits, err := split.Split(money.FromCents(5), people("A", "B", "C"), "B")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got := shareMap(splits)
	want := map[string]int64{"B": 2, "C": 2, "A": 1}
	for id, cents := range want {
		if got[id] != cents {
			t.Errorf("share for %s = %d, want %d", id, got[id], cents)
		}
	}
}

func TestSplit_EvenDivision_NoRemainderRecipients(t *testing.T) {
	splits, err := split.Split(money.FromCents(300), people("A", "B", "C"), "A")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, s := range splits {
		if s.Amount.Cents() != 100 {
			t.Errorf("share for %s = %d, want 100", s.ParticipantID, s.Amount.Cents())
		}
		if s.IsRemainderRecipient {
			t.Errorf("%s flagged as remainder recipient on even division", s.ParticipantID)
		}
	}
}

// =============================================================================
// PROPERTY TESTS
// =============================================================================

func TestSplit_Conservation(t *testing.T) {
	// Shares sum to the total exactly, for many totals and group sizes.
	ids := []string{"A", "B", "C", "D", "E", "F", "G"}

	for n := 1; n <= len(ids); n++ {
		participants := people(ids[:n]...)
		for _, cents := range []int64{1, 2, 5, 99, 100, 101, 9999, 10000, 10007, 123457} {
			splits, err := split.Split(money.FromCents(cents), participants, ids[0])
			if err != nil {
				t.Fatalf("n=%d cents=%d: unexpected error: %v", n, cents, err)
			}
			var sum int64
			for _, s := range splits {
				sum += s.Amount.Cents()
			}
			if sum != cents {
				t.Errorf("n=%d cents=%d: shares sum to %d", n, cents, sum)
			}
		}
	}
}

func TestSplit_RemainderBound(t *testing.T) {
	// Every share is within 1 cent of floor(total/n).
	participants := people("A", "B", "C", "D", "E")
	total := int64(10007)
	base := total / 5

	splits, err := split.Split(money.FromCents(total), participants, "C")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, s := range splits {
		if s.Amount.Cents() != base && s.Amount.Cents() != base+1 {
			t.Errorf("share for %s = %d, want %d or %d", s.ParticipantID, s.Amount.Cents(), base, base+1)
		}
	}
}

func TestSplit_RotationFairness(t *testing.T) {
	// Shifting the payer by one position shifts the remainder-receiving
	// set by exactly one rotation step.
	ids := []string{"A", "B", "C", "D"}
	participants := people(ids...)
	total := money.FromCents(1001) // remainder 1: exactly one recipient

	for i, payer := range ids {
		splits, err := split.Split(total, participants, payer)
		if err != nil {
			t.Fatalf("payer=%s: unexpected error: %v", payer, err)
		}
		for j, s := range splits {
			wantExtra := j == i
			if s.IsRemainderRecipient != wantExtra {
				t.Errorf("payer=%s: recipient flag for %s = %v, want %v",
					payer, s.ParticipantID, s.IsRemainderRecipient, wantExtra)
			}
		}
	}
}

// =============================================================================
// INPUT VALIDATION
// =============================================================================

func TestSplit_RejectsBadInput(t *testing.T) {
	tests := []struct {
		name         string
		total        money.Money
		participants []split.Participant
	}{
		{"empty participants", money.FromCents(100), nil},
		{"zero total", money.Zero, people("A", "B")},
		{"negative total", money.FromCents(-100), people("A", "B")},
		{"duplicate participant", money.FromCents(100), people("A", "A")},
		{"blank id", money.FromCents(100), []split.Participant{{ID: ""}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := split.Split(tt.total, tt.participants, "A")
			if !errors.Is(err, split.ErrInvalidInput) {
				t.Errorf("got %v, want ErrInvalidInput", err)
			}
		})
	}
}

func TestSplit_UnknownPayerFallsBackToIndexZero(t *testing.T) {
	// Workflows reject payer-not-participant before calling Split; the
	// calculator itself degrades to rotation from index 0.
	splits, err := split.Split(money.FromCents(5), people("A", "B", "C"), "ghost")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := shareMap(splits)
	if got["A"] != 2 || got["B"] != 2 || got["C"] != 1 {
		t.Errorf("unexpected shares: %v", got)
	}
}
