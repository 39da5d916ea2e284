/*
Package money provides integer-cent monetary arithmetic.

PURPOSE:
  Every amount in the ledger is a whole number of minor currency units
  (cents). Floating point never appears in internal computation - external
  float or string inputs are rounded to cents exactly once, at the boundary,
  using decimal arithmetic.

WHY INTEGER CENTS?
  Splitting 100.00 three ways in float64 gives 33.333333333333336. Summing
  the shares does not reproduce the original amount, and repeated expenses
  accumulate drift. With integer cents the split algorithm distributes the
  remainder explicitly and the conservation property (shares sum to total)
  holds for every input.

BOUNDARY CONVERSION:
  FromFloat and Parse use shopspring/decimal to round half-up to two
  fractional digits before converting to cents. This is the ONLY place
  rounding happens.

SEE ALSO:
  - split/split.go: remainder distribution across participants
  - settle/settle.go: receivable/payable balances in cents
*/
package money

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// MONEY - Whole number of minor currency units
// =============================================================================

// Money is an amount in minor currency units (cents).
type Money int64

// Zero is the zero amount.
const Zero Money = 0

var centScale = decimal.NewFromInt(100)

// FromCents wraps an integer cent count.
func FromCents(cents int64) Money { return Money(cents) }

// FromFloat converts a major-unit float (e.g. 12.345) to cents,
// rounding half-up to two fractional digits.
func FromFloat(amount float64) Money {
	return FromDecimal(decimal.NewFromFloat(amount))
}

// FromDecimal converts a major-unit decimal to cents, rounding half-up.
func FromDecimal(d decimal.Decimal) Money {
	return Money(d.Mul(centScale).Round(0).IntPart())
}

// Parse converts a major-unit string (e.g. "12.34") to cents.
func Parse(s string) (Money, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	return FromDecimal(d), nil
}

// =============================================================================
// ARITHMETIC
// =============================================================================

func (m Money) Add(o Money) Money { return m + o }
func (m Money) Sub(o Money) Money { return m - o }
func (m Money) Neg() Money        { return -m }
func (m Money) IsZero() bool      { return m == 0 }
func (m Money) IsNegative() bool  { return m < 0 }
func (m Money) IsPositive() bool  { return m > 0 }

func (m Money) Min(o Money) Money {
	if m < o {
		return m
	}
	return o
}

// Cents returns the raw cent count.
func (m Money) Cents() int64 { return int64(m) }

// Decimal returns the amount in major units as an exact decimal.
func (m Money) Decimal() decimal.Decimal {
	return decimal.NewFromInt(int64(m)).Div(centScale)
}

// Float64 returns the amount in major units. Display only - never feed the
// result back into ledger arithmetic.
func (m Money) Float64() float64 {
	f, _ := m.Decimal().Float64()
	return f
}

// String formats the amount in major units, e.g. "12.34".
func (m Money) String() string {
	return m.Decimal().StringFixed(2)
}
