package calc

import (
	"time"

	"github.com/maplepay/maplepay-backend/internal/payroll/domain"
	"github.com/maplepay/maplepay-backend/internal/payroll/tax"
	"github.com/shopspring/decimal"
)

// Statutory holds the statutory deductions computed for one pay period
type Statutory struct {
	FederalTax    decimal.Decimal `json:"federal_tax"`
	ProvincialTax decimal.Decimal `json:"provincial_tax"`
	CPP           decimal.Decimal `json:"cpp"`
	EI            decimal.Decimal `json:"ei"`
	EmployerCPP   decimal.Decimal `json:"employer_cpp"`
	EmployerEI    decimal.Decimal `json:"employer_ei"`
	Bases         Bases           `json:"bases"`
}

// ComputeStatutory computes federal tax, provincial tax, CPP and EI
// (employee and employer side) for one period from the earning and
// pre-tax deduction lines.
//
// Income tax annualizes the taxable base by the pay-frequency multiplier,
// evaluates the progressive brackets on the annual amount, and prorates
// the result back down by the same multiplier. The same routine runs
// against the federal table and the province's table.
//
// CPP applies the employee rate to the pensionable base less the
// per-period share of the annual basic exemption, floored at zero, and
// clips the contribution to the remaining annual headroom given the
// employee's YTD contributions. The employer matches 1:1. EI applies the
// employee rate to the insurable base with the same headroom clip; the
// employer pays the employee premium times the employer multiplier.
// Quebec employees use QPP/QPIP employee rates.
func (c *Calculator) ComputeStatutory(
	earnings, deductions []domain.PaystubItem,
	ytd domain.YTDTotals,
	birthDate time.Time,
	province domain.Province,
	frequency domain.PayFrequency,
) (Statutory, error) {
	bases, err := c.ResolveBases(earnings, deductions)
	if err != nil {
		return Statutory{}, err
	}

	periods := decimal.NewFromInt(int64(frequency.PeriodsPerYear()))

	annualTaxable := bases.Taxable.Mul(periods)
	federal := tax.Progressive(c.tables.Federal, annualTaxable).Div(periods)
	provincial := tax.Progressive(c.tables.ProvincialBrackets(province), annualTaxable).Div(periods)

	pension := c.tables.Pension(province)
	periodExemption := pension.BasicExemption.Div(periods)
	pensionable := clampZero(bases.Pensionable.Sub(periodExemption))
	cpp := domain.RoundCents(pensionable.Mul(pension.EmployeeRate))
	cpp = clipToHeadroom(cpp, pension.MaxContribution, ytd.CPP)

	ei := c.tables.EmploymentInsurance(province)
	eiPremium := domain.RoundCents(bases.Insurable.Mul(ei.EmployeeRate))
	eiPremium = clipToHeadroom(eiPremium, ei.MaxPremium, ytd.EI)

	return Statutory{
		FederalTax:    domain.RoundCents(federal),
		ProvincialTax: domain.RoundCents(provincial),
		CPP:           cpp,
		EI:            eiPremium,
		EmployerCPP:   cpp,
		EmployerEI:    domain.RoundCents(eiPremium.Mul(ei.EmployerMultiplier)),
		Bases:         bases,
	}, nil
}

// clipToHeadroom caps a period contribution so YTD plus this period never
// exceeds the annual maximum. Headroom below zero (YTD already over the
// max) yields zero.
func clipToHeadroom(amount, annualMax, ytd decimal.Decimal) decimal.Decimal {
	headroom := clampZero(annualMax.Sub(ytd))
	if amount.GreaterThan(headroom) {
		return headroom
	}
	return amount
}
