package domain

import "github.com/shopspring/decimal"

// AdjustmentKind tags the ad hoc earning a preview adjustment replaces
type AdjustmentKind string

const (
	AdjustmentBonus          AdjustmentKind = "bonus"
	AdjustmentVacationPayout AdjustmentKind = "vacation_payout"
)

// Valid reports whether the kind is a known adjustment kind
func (k AdjustmentKind) Valid() bool {
	return k == AdjustmentBonus || k == AdjustmentVacationPayout
}

// Adjustment replaces one ad hoc earning item on a single employee's
// paystub during preview, without re-running the batch.
type Adjustment struct {
	Kind   AdjustmentKind  `json:"kind"`
	Amount decimal.Decimal `json:"amount"`
}

// Description returns the earning line description for the adjustment
func (a Adjustment) Description() string {
	if a.Kind == AdjustmentVacationPayout {
		return "Vacation Payout"
	}
	return "Bonus"
}
