package domain

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// PayType distinguishes salaried from hourly employees
type PayType string

const (
	Salaried PayType = "salaried"
	Hourly   PayType = "hourly"
)

// Province is a two-letter Canadian province code (e.g. "ON", "QC")
type Province string

const (
	Ontario         Province = "ON"
	Quebec          Province = "QC"
	BritishColumbia Province = "BC"
	Alberta         Province = "AB"
)

// EmployeeProfile is a time-stamped snapshot of an employee's pay terms.
// The profile in effect is the latest one whose effective date is on or
// before the evaluation date.
type EmployeeProfile struct {
	ID            string          `db:"id" json:"id"`
	EmployeeID    string          `db:"employee_id" json:"employee_id"`
	Name          string          `db:"name" json:"name"`
	PayType       PayType         `db:"pay_type" json:"pay_type"`
	AnnualSalary  decimal.Decimal `db:"annual_salary" json:"annual_salary"`
	HourlyRate    decimal.Decimal `db:"hourly_rate" json:"hourly_rate"`
	WeeklyHours   decimal.Decimal `db:"weekly_hours" json:"weekly_hours"`
	Province      Province        `db:"province" json:"province"`
	DateOfBirth   time.Time       `db:"date_of_birth" json:"date_of_birth"`
	FederalClaim  decimal.Decimal `db:"federal_claim" json:"federal_claim"`
	ProvinceClaim decimal.Decimal `db:"province_claim" json:"province_claim"`
	EffectiveDate time.Time       `db:"effective_date" json:"effective_date"`
}

// RecurringEarning is an earning applied every pay period
type RecurringEarning struct {
	CodeID string          `db:"code_id" json:"code_id"`
	Amount decimal.Decimal `db:"amount" json:"amount"`
}

// RecurringDeduction is a deduction applied every pay period.
// For percentage-of-gross deduction codes, Amount holds the percentage.
type RecurringDeduction struct {
	CodeID string          `db:"code_id" json:"code_id"`
	Amount decimal.Decimal `db:"amount" json:"amount"`
}

// YTDTotals are the employee's year-to-date accumulations used to enforce
// annual contribution caps and track the vacation balance.
type YTDTotals struct {
	GrossPay    decimal.Decimal `db:"ytd_gross_pay" json:"gross_pay"`
	CPP         decimal.Decimal `db:"ytd_cpp" json:"cpp"`
	EI          decimal.Decimal `db:"ytd_ei" json:"ei"`
	VacationPay decimal.Decimal `db:"ytd_vacation_pay" json:"vacation_pay"`
}

// BankAllocation directs a percentage of net pay to a bank account.
// Percentages across an employee's allocations sum to at most 100.
type BankAllocation struct {
	Institution string          `db:"institution" json:"institution"`
	Transit     string          `db:"transit" json:"transit"`
	Account     string          `db:"account" json:"account"`
	Percent     decimal.Decimal `db:"percent" json:"percent"`
}

// Employee is the aggregate the payroll run operates on
type Employee struct {
	ID                  string                `json:"id"`
	TenantID            string                `json:"tenant_id"`
	EmployeeNumber      string                `json:"employee_number"`
	PayFrequency        PayFrequency          `json:"pay_frequency"`
	Profiles            []EmployeeProfile     `json:"profiles"`
	RecurringEarnings   []RecurringEarning    `json:"recurring_earnings"`
	RecurringDeductions []RecurringDeduction  `json:"recurring_deductions"`
	Garnishments        []EmployeeGarnishment `json:"garnishments"`
	YTD                 YTDTotals             `json:"ytd"`
	BankAllocations     []BankAllocation      `json:"bank_allocations"`
}

// ProfileAsOf returns the profile in effect on the given date: the latest
// profile whose effective date is on or before asOf. If every profile is
// dated after asOf, the earliest profile is returned; profile history is
// never empty, with at least one record dating to hire.
func (e *Employee) ProfileAsOf(asOf time.Time) *EmployeeProfile {
	if len(e.Profiles) == 0 {
		return nil
	}

	sorted := make([]EmployeeProfile, len(e.Profiles))
	copy(sorted, e.Profiles)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].EffectiveDate.Before(sorted[j].EffectiveDate)
	})

	current := sorted[0]
	for _, p := range sorted[1:] {
		if p.EffectiveDate.After(asOf) {
			break
		}
		current = p
	}
	return &current
}

// VacationBalance is the vacation pay available for payout
func (e *Employee) VacationBalance() decimal.Decimal {
	return e.YTD.VacationPay
}

// BasePeriodPay computes the base gross pay for one period from the given
// profile: annual salary divided by periods per year for salaried staff,
// hourly rate times annualized weekly hours for hourly staff.
func (e *Employee) BasePeriodPay(p *EmployeeProfile) decimal.Decimal {
	periods := decimal.NewFromInt(int64(e.PayFrequency.PeriodsPerYear()))

	if p.PayType == Hourly {
		annual := p.HourlyRate.Mul(p.WeeklyHours).Mul(decimal.NewFromInt(52))
		return RoundCents(annual.Div(periods))
	}
	return RoundCents(p.AnnualSalary.Div(periods))
}
