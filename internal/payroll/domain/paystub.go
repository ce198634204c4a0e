package domain

import "github.com/shopspring/decimal"

// ItemType discriminates paystub line categories
type ItemType string

const (
	ItemEarning          ItemType = "earning"
	ItemFederalTax       ItemType = "federal_tax"
	ItemProvincialTax    ItemType = "provincial_tax"
	ItemCPP              ItemType = "cpp"
	ItemEI               ItemType = "ei"
	ItemGarnishment      ItemType = "garnishment"
	ItemPreTaxDeduction  ItemType = "pre_tax_deduction"
	ItemPostTaxDeduction ItemType = "post_tax_deduction"
)

// PaystubItem is one line on a paystub
type PaystubItem struct {
	Type        ItemType        `json:"type"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	CodeID      string          `json:"code_id,omitempty"`
	Rate        decimal.Decimal `json:"rate,omitempty"`
	Hours       decimal.Decimal `json:"hours,omitempty"`
}

// EmployerContributions are the employer-side statutory amounts. They do
// not reduce the employee's net pay but count toward total payroll cost.
type EmployerContributions struct {
	CPP decimal.Decimal `json:"cpp"`
	EI  decimal.Decimal `json:"ei"`
}

// Paystub is one employee's pay statement for one period. It is created
// transiently per run or recalculation and becomes durable only once the
// run is committed.
type Paystub struct {
	EmployeeID            string                `json:"employee_id"`
	EmployeeName          string                `json:"employee_name"`
	PayPeriod             string                `json:"pay_period"`
	GrossPay              decimal.Decimal       `json:"gross_pay"`
	TotalDeductions       decimal.Decimal       `json:"total_deductions"`
	NetPay                decimal.Decimal       `json:"net_pay"`
	Earnings              []PaystubItem         `json:"earnings"`
	Deductions            []PaystubItem         `json:"deductions"`
	EmployerContributions EmployerContributions `json:"employer_contributions"`
	AccruedVacationPay    *decimal.Decimal      `json:"accrued_vacation_pay,omitempty"`
}

// TotalCost is the full employer cost of the paystub: gross pay plus
// employer-side CPP and EI. Used for run variance comparison.
func (p *Paystub) TotalCost() decimal.Decimal {
	return p.GrossPay.
		Add(p.EmployerContributions.CPP).
		Add(p.EmployerContributions.EI)
}
