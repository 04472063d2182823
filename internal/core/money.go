// Package core holds the domain model shared by the view handlers, the
// aggregation engine, and the remote API client.
//
// Amounts are decimal currency values: the remote API serializes them as
// decimal strings with two fraction digits, and summation must stay exact,
// so they are carried as decimal.Decimal end to end.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ParseAmount converts user input to a positive decimal amount.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators and
// rounds half-up to two fraction digits. Returns ErrInvalidAmount for
// malformed, negative, or zero input.
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	// Normalize decimal comma to dot
	s = strings.ReplaceAll(s, ",", ".")
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		// Only positive values allowed
		return decimal.Zero, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	d = d.Round(2)
	if !d.IsPositive() {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}

// FormatAmount renders an amount with two fraction digits for display.
func FormatAmount(d decimal.Decimal) string {
	return d.StringFixed(2)
}

// Percent returns part/whole*100 as a float for display, 0 when whole is 0.
// Division by zero degrades to 0 rather than producing Inf or NaN.
func Percent(part, whole decimal.Decimal) float64 {
	if whole.IsZero() {
		return 0
	}
	pct, _ := part.Div(whole).Mul(decimal.NewFromInt(100)).Float64()
	return pct
}
