package calc

import (
	"github.com/maplepay/maplepay-backend/internal/payroll/domain"
	"github.com/shopspring/decimal"
)

// Assemble joins the computed pieces into a paystub. Deduction lines keep
// a fixed order: federal tax, provincial tax, CPP, EI, garnishments,
// then recurring deductions in the employee's declaration order. Net pay
// is gross minus total deductions exactly, with no independent re-rounding.
func (c *Calculator) Assemble(
	emp *domain.Employee,
	profile *domain.EmployeeProfile,
	payPeriod string,
	earnings []domain.PaystubItem,
	statutory Statutory,
	garnishments []domain.PaystubItem,
	recurring []domain.PaystubItem,
	vacationPayout decimal.Decimal,
) *domain.Paystub {
	deductions := []domain.PaystubItem{
		{Type: domain.ItemFederalTax, Description: "Federal Income Tax", Amount: statutory.FederalTax},
		{Type: domain.ItemProvincialTax, Description: "Provincial Income Tax", Amount: statutory.ProvincialTax},
		{Type: domain.ItemCPP, Description: "CPP Contribution", Amount: statutory.CPP},
		{Type: domain.ItemEI, Description: "EI Premium", Amount: statutory.EI},
	}
	deductions = append(deductions, garnishments...)
	deductions = append(deductions, recurring...)

	grossPay := sumAmounts(earnings)
	totalDeductions := sumAmounts(deductions)

	stub := &domain.Paystub{
		EmployeeID:      emp.ID,
		EmployeeName:    profile.Name,
		PayPeriod:       payPeriod,
		GrossPay:        grossPay,
		TotalDeductions: totalDeductions,
		NetPay:          grossPay.Sub(totalDeductions),
		Earnings:        earnings,
		Deductions:      deductions,
		EmployerContributions: domain.EmployerContributions{
			CPP: statutory.EmployerCPP,
			EI:  statutory.EmployerEI,
		},
	}

	// Vacation pay accrues on earnings other than a vacation payout
	// itself; paying out the balance must not grow the balance.
	if c.settings.VacationPolicy.Method == domain.VacationAccrue {
		accrualBase := clampZero(grossPay.Sub(vacationPayout))
		accrued := domain.RoundCents(
			accrualBase.Mul(c.settings.VacationPolicy.AccrualPercent).Div(decimal.NewFromInt(100)))
		stub.AccruedVacationPay = &accrued
	}

	return stub
}
