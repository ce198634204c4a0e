package domain

import "github.com/shopspring/decimal"

// GarnishmentConfiguration is a tenant-wide garnishment definition.
// Lower priority numbers are deducted first.
type GarnishmentConfiguration struct {
	ID              string            `db:"id" json:"id"`
	Jurisdiction    string            `db:"jurisdiction" json:"jurisdiction"`
	Description     string            `db:"description" json:"description"`
	CalculationType CalculationMethod `db:"calculation_type" json:"calculation_type"`
	Priority        int               `db:"priority" json:"priority"`
}

// EmployeeGarnishment binds a garnishment configuration to an employee
// with a concrete amount. For percentage-of-gross configurations the
// amount holds the percentage.
type EmployeeGarnishment struct {
	ConfigID string          `db:"config_id" json:"config_id"`
	Amount   decimal.Decimal `db:"amount" json:"amount"`
}
