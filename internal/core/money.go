// Package core holds the ledger domain: transactions, budgets, money and the error taxonomy.
//
// Amounts are stored as integer cents and converted to decimal.Decimal for arithmetic,
// so no float ever touches a balance.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Money is an amount in cents. Negative values are never valid.
type Money struct {
	Cents int64
}

var hundred = decimal.NewFromInt(100)

// maxCents keeps amounts well inside int64 after aggregation.
const maxCents = int64(1) << 53

// ParseDecimalToCents converts a decimal string to cents.
//
// Both dot (12.34) and comma (12,34) separators are accepted. Digits past the second
// decimal are rounded half-up. Zero is allowed; signs, exponents and anything that is
// not a plain number are rejected.
//
//	ParseDecimalToCents("12.34")  -> 1234, nil
//	ParseDecimalToCents("12,345") -> 1235, nil
//	ParseDecimalToCents("0")      -> 0, nil
func ParseDecimalToCents(s string) (int64, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", ".")
	if s == "" || strings.Count(s, ".") > 1 {
		return 0, ErrInvalidAmount
	}
	for _, r := range s {
		if r != '.' && (r < '0' || r > '9') {
			return 0, ErrInvalidAmount
		}
	}
	if s == "." {
		return 0, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	cents := d.Mul(hundred).Round(0)
	if cents.GreaterThan(decimal.NewFromInt(maxCents)) {
		return 0, ErrInvalidAmount
	}
	return cents.IntPart(), nil
}

// MoneyFromDecimal rounds d to cents.
func MoneyFromDecimal(d decimal.Decimal) Money {
	return Money{Cents: d.Mul(hundred).Round(0).IntPart()}
}

// MoneyFromFloat converts a JSON number such as 12.5 to cents.
func MoneyFromFloat(f float64) (Money, error) {
	d := decimal.NewFromFloat(f)
	if d.IsNegative() {
		return Money{}, ErrInvalidAmount
	}
	m := MoneyFromDecimal(d)
	if m.Cents > maxCents {
		return Money{}, ErrInvalidAmount
	}
	return m, nil
}

func (m Money) Validate() error {
	if m.Cents < 0 || m.Cents > maxCents {
		return ErrInvalidAmount
	}
	return nil
}

// Decimal returns the amount in currency units.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(m.Cents, -2)
}

// String formats the amount with two decimals.
func (m Money) String() string {
	return m.Decimal().StringFixed(2)
}
