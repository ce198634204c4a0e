package tax

import "github.com/shopspring/decimal"

// Bracket is one progressive tax bracket. Threshold is the lower bound of
// the bracket; the rate applies to income above the threshold and below
// the next bracket's threshold.
type Bracket struct {
	Threshold decimal.Decimal
	Rate      decimal.Decimal
}

// Progressive evaluates an ordered bracket table on the given amount:
// each bracket taxes only the slice of income above its threshold and
// below the next threshold. Brackets must be in ascending threshold order
// with no gaps. Amounts at or below zero produce zero tax.
func Progressive(brackets []Bracket, amount decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	if amount.Sign() <= 0 {
		return total
	}

	for i, b := range brackets {
		if amount.LessThanOrEqual(b.Threshold) {
			break
		}

		upper := amount
		if i+1 < len(brackets) && brackets[i+1].Threshold.LessThan(amount) {
			upper = brackets[i+1].Threshold
		}

		slice := upper.Sub(b.Threshold)
		total = total.Add(slice.Mul(b.Rate))
	}

	return total
}

// MarginalRate returns the rate of the bracket the amount falls in.
// Used for display on paystub tax lines.
func MarginalRate(brackets []Bracket, amount decimal.Decimal) decimal.Decimal {
	rate := decimal.Zero
	for _, b := range brackets {
		if amount.LessThanOrEqual(b.Threshold) {
			break
		}
		rate = b.Rate
	}
	return rate
}
