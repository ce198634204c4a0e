package calc

import (
	"time"

	"github.com/maplepay/maplepay-backend/internal/payroll/domain"
	"github.com/maplepay/maplepay-backend/internal/payroll/tax"
	"github.com/maplepay/maplepay-backend/pkg/errors"
	"github.com/shopspring/decimal"
)

// Calculator computes paystubs against an immutable settings snapshot and
// the statutory tables for one tax year. It holds no mutable state, so
// recalculating an unchanged employee with identical inputs yields an
// identical paystub.
type Calculator struct {
	settings *domain.CompanySettings
	tables   *tax.Tables
}

// New creates a calculator for a settings snapshot and tax-year tables
func New(settings *domain.CompanySettings, tables *tax.Tables) *Calculator {
	return &Calculator{
		settings: settings,
		tables:   tables,
	}
}

// BuildEarnings builds the earning lines for one period: the base pay
// line from the profile, the employee's recurring earnings, and the ad
// hoc adjustment line when present.
func (c *Calculator) BuildEarnings(
	emp *domain.Employee,
	profile *domain.EmployeeProfile,
	adj *domain.Adjustment,
) ([]domain.PaystubItem, error) {
	base := domain.PaystubItem{
		Type:        domain.ItemEarning,
		Description: "Regular Pay",
		Amount:      emp.BasePeriodPay(profile),
	}
	if profile.PayType == domain.Hourly {
		base.Description = "Hourly Pay"
		base.Rate = profile.HourlyRate
		base.Hours = profile.WeeklyHours.
			Mul(decimal.NewFromInt(52)).
			Div(decimal.NewFromInt(int64(emp.PayFrequency.PeriodsPerYear())))
	}

	earnings := []domain.PaystubItem{base}

	for _, re := range emp.RecurringEarnings {
		code := c.settings.EarningCode(re.CodeID)
		if code == nil {
			return nil, errors.DataIntegrity("recurring earning references unknown code " + re.CodeID)
		}
		earnings = append(earnings, domain.PaystubItem{
			Type:        domain.ItemEarning,
			Description: code.Description,
			Amount:      domain.RoundCents(re.Amount),
			CodeID:      re.CodeID,
		})
	}

	if adj != nil && adj.Amount.Sign() > 0 {
		earnings = append(earnings, domain.PaystubItem{
			Type:        domain.ItemEarning,
			Description: adj.Description(),
			Amount:      domain.RoundCents(adj.Amount),
		})
	}

	return earnings, nil
}

// BuildRecurringDeductions resolves the employee's recurring deductions
// into paystub lines. Fixed-amount codes deduct the assigned amount;
// percentage-of-gross codes deduct the assigned percentage of gross pay.
// Lines keep the employee's declaration order.
func (c *Calculator) BuildRecurringDeductions(
	emp *domain.Employee,
	grossPay decimal.Decimal,
) ([]domain.PaystubItem, error) {
	lines := make([]domain.PaystubItem, 0, len(emp.RecurringDeductions))

	for _, rd := range emp.RecurringDeductions {
		code := c.settings.DeductionCode(rd.CodeID)
		if code == nil {
			return nil, errors.DataIntegrity("recurring deduction references unknown code " + rd.CodeID)
		}

		amount := rd.Amount
		if code.CalculationMethod == domain.PercentageOfGross {
			amount = grossPay.Mul(rd.Amount).Div(decimal.NewFromInt(100))
		}

		itemType := domain.ItemPostTaxDeduction
		if code.Type == domain.PreTax {
			itemType = domain.ItemPreTaxDeduction
		}

		lines = append(lines, domain.PaystubItem{
			Type:        itemType,
			Description: code.Description,
			Amount:      domain.RoundCents(amount),
			CodeID:      rd.CodeID,
		})
	}

	return lines, nil
}

// Paystub runs the full calculation pipeline for one employee: profile
// resolution as of an explicit date, earning lines, statutory
// deductions, garnishments, recurring deductions, and assembly. The
// returned warnings carry skipped garnishments; an error fails only this
// employee's calculation.
func (c *Calculator) Paystub(
	emp *domain.Employee,
	payPeriod string,
	asOf time.Time,
	adj *domain.Adjustment,
) (*domain.Paystub, []string, error) {
	profile := emp.ProfileAsOf(asOf)
	if profile == nil {
		return nil, nil, errors.DataIntegrity("employee " + emp.ID + " has no profile history")
	}

	earnings, err := c.BuildEarnings(emp, profile, adj)
	if err != nil {
		return nil, nil, err
	}

	grossPay := sumAmounts(earnings)

	recurring, err := c.BuildRecurringDeductions(emp, grossPay)
	if err != nil {
		return nil, nil, err
	}

	statutory, err := c.ComputeStatutory(
		earnings, recurring, emp.YTD, profile.DateOfBirth, profile.Province, emp.PayFrequency)
	if err != nil {
		return nil, nil, err
	}

	garnishLines, warnings := c.ApplyGarnishments(emp.Garnishments, grossPay)

	var vacationPayout decimal.Decimal
	if adj != nil && adj.Kind == domain.AdjustmentVacationPayout {
		vacationPayout = adj.Amount
	}

	stub := c.Assemble(emp, profile, payPeriod, earnings, statutory, garnishLines, recurring, vacationPayout)
	return stub, warnings, nil
}

func sumAmounts(items []domain.PaystubItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.Amount)
	}
	return total
}
