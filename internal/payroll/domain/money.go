package domain

import "github.com/shopspring/decimal"

// RoundCents rounds a monetary amount to 2 decimal places, half away from
// zero. Applied once per emitted line amount; intermediate bracket and base
// arithmetic stays unrounded.
func RoundCents(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// Cents converts a monetary amount to integer cents, rounding half away
// from zero. Used by the bank export format.
func Cents(d decimal.Decimal) int64 {
	return d.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}
