package calc_test

import (
	"testing"
	"time"

	"github.com/maplepay/maplepay-backend/internal/payroll/calc"
	"github.com/maplepay/maplepay-backend/internal/payroll/domain"
	"github.com/maplepay/maplepay-backend/internal/payroll/tax"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

var asOf = time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)

func testSettings() *domain.CompanySettings {
	return &domain.CompanySettings{
		TenantID: "tenant-1",
		Version:  1,
		Configurations: domain.Configurations{
			EarningCodes: []domain.EarningCode{
				{
					ID: "earn-car", Code: "CAR", Description: "Car Allowance",
					IsTaxable: true, IsPensionable: true, IsInsurable: false,
				},
			},
			DeductionCodes: []domain.DeductionCode{
				{
					ID: "ded-rrsp", Code: "RRSP", Description: "RRSP Contribution",
					Type: domain.PreTax, CalculationMethod: domain.FixedAmount,
					ReducesTaxableIncome: true,
				},
				{
					ID: "ded-social", Code: "SOCIAL", Description: "Social Club",
					Type: domain.PostTax, CalculationMethod: domain.FixedAmount,
				},
				{
					ID: "ded-pension", Code: "PENPCT", Description: "Pension Plan",
					Type: domain.PreTax, CalculationMethod: domain.PercentageOfGross,
					ReducesTaxableIncome: true, ReducesPensionableEarnings: true,
				},
			},
			Garnishments: []domain.GarnishmentConfiguration{
				{ID: "garn-support", Description: "Family Support Order", CalculationType: domain.FixedAmount, Priority: 1},
				{ID: "garn-cra", Description: "CRA Requirement to Pay", CalculationType: domain.FixedAmount, Priority: 2},
				{ID: "garn-pct", Description: "Wage Garnishment", CalculationType: domain.PercentageOfGross, Priority: 3},
			},
		},
		VacationPolicy: domain.VacationPolicy{
			Method:         domain.VacationAccrue,
			AccrualPercent: d("4"),
		},
	}
}

func testCalculator(t *testing.T) *calc.Calculator {
	t.Helper()
	tables, err := tax.ForYear(2024)
	require.NoError(t, err)
	return calc.New(testSettings(), tables)
}

// salariedEmployee is an Ontario salaried employee at $105,000 paid
// semi-monthly, with no year-to-date history.
func salariedEmployee() *domain.Employee {
	return &domain.Employee{
		ID:             "emp-1",
		TenantID:       "tenant-1",
		EmployeeNumber: "1001",
		PayFrequency:   domain.SemiMonthly,
		Profiles: []domain.EmployeeProfile{
			{
				ID:            "prof-1",
				EmployeeID:    "emp-1",
				Name:          "Avery Chen",
				PayType:       domain.Salaried,
				AnnualSalary:  d("105000"),
				Province:      domain.Ontario,
				DateOfBirth:   time.Date(1990, 3, 12, 0, 0, 0, 0, time.UTC),
				EffectiveDate: time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC),
			},
		},
	}
}
