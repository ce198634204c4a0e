package calc

import (
	"github.com/maplepay/maplepay-backend/internal/payroll/domain"
	"github.com/maplepay/maplepay-backend/pkg/errors"
	"github.com/shopspring/decimal"
)

// Bases are the statutory income bases for one pay period
type Bases struct {
	Taxable     decimal.Decimal `json:"taxable"`
	Pensionable decimal.Decimal `json:"pensionable"`
	Insurable   decimal.Decimal `json:"insurable"`
}

// ResolveBases partitions earning lines into taxable, pensionable and
// insurable bases per the earning code flags, then subtracts pre-tax
// deduction lines whose codes reduce the corresponding base. Earning
// lines without a code (base wages, ad hoc bonus or vacation payout)
// contribute to all three bases. Negative bases clamp to zero.
//
// An earning or deduction line whose code does not resolve against the
// active configuration set is a data-integrity error: the caller must
// fail that employee's calculation rather than silently mis-compute a
// base.
func (c *Calculator) ResolveBases(earnings, deductions []domain.PaystubItem) (Bases, error) {
	var b Bases

	for _, e := range earnings {
		if e.CodeID == "" {
			b.Taxable = b.Taxable.Add(e.Amount)
			b.Pensionable = b.Pensionable.Add(e.Amount)
			b.Insurable = b.Insurable.Add(e.Amount)
			continue
		}

		code := c.settings.EarningCode(e.CodeID)
		if code == nil {
			return Bases{}, errors.DataIntegrity("earning line references unknown code " + e.CodeID)
		}
		if code.IsTaxable {
			b.Taxable = b.Taxable.Add(e.Amount)
		}
		if code.IsPensionable {
			b.Pensionable = b.Pensionable.Add(e.Amount)
		}
		if code.IsInsurable {
			b.Insurable = b.Insurable.Add(e.Amount)
		}
	}

	for _, item := range deductions {
		if item.Type != domain.ItemPreTaxDeduction {
			continue
		}

		code := c.settings.DeductionCode(item.CodeID)
		if code == nil {
			return Bases{}, errors.DataIntegrity("deduction line references unknown code " + item.CodeID)
		}
		if code.ReducesTaxableIncome {
			b.Taxable = b.Taxable.Sub(item.Amount)
		}
		if code.ReducesPensionableEarnings {
			b.Pensionable = b.Pensionable.Sub(item.Amount)
		}
		if code.ReducesInsurableEarnings {
			b.Insurable = b.Insurable.Sub(item.Amount)
		}
	}

	b.Taxable = clampZero(b.Taxable)
	b.Pensionable = clampZero(b.Pensionable)
	b.Insurable = clampZero(b.Insurable)

	return b, nil
}

func clampZero(d decimal.Decimal) decimal.Decimal {
	if d.Sign() < 0 {
		return decimal.Zero
	}
	return d
}
