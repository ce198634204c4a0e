package domain

// DeductionType splits deductions into pre- and post-tax
type DeductionType string

const (
	PreTax  DeductionType = "pre_tax"
	PostTax DeductionType = "post_tax"
)

// CalculationMethod determines how a configured amount is interpreted
type CalculationMethod string

const (
	FixedAmount       CalculationMethod = "fixed_amount"
	PercentageOfGross CalculationMethod = "percentage_of_gross"
)

// EarningCode is a tenant-configurable earning definition. The taxability
// flags decide which statutory bases the earning contributes to.
type EarningCode struct {
	ID            string `db:"id" json:"id"`
	Code          string `db:"code" json:"code"`
	Description   string `db:"description" json:"description"`
	IsTaxable     bool   `db:"is_taxable" json:"is_taxable"`
	IsPensionable bool   `db:"is_pensionable" json:"is_pensionable"`
	IsInsurable   bool   `db:"is_insurable" json:"is_insurable"`
}

// DeductionCode is a tenant-configurable deduction definition. Pre-tax
// deductions may reduce the statutory bases before rates apply.
type DeductionCode struct {
	ID                         string            `db:"id" json:"id"`
	Code                       string            `db:"code" json:"code"`
	Description                string            `db:"description" json:"description"`
	Type                       DeductionType     `db:"type" json:"type"`
	CalculationMethod          CalculationMethod `db:"calculation_method" json:"calculation_method"`
	ReducesTaxableIncome       bool              `db:"reduces_taxable_income" json:"reduces_taxable_income"`
	ReducesPensionableEarnings bool              `db:"reduces_pensionable_earnings" json:"reduces_pensionable_earnings"`
	ReducesInsurableEarnings   bool              `db:"reduces_insurable_earnings" json:"reduces_insurable_earnings"`
}
