package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// VacationPolicyMethod selects how vacation pay is handled each period
type VacationPolicyMethod string

const (
	// VacationAccrue accumulates vacation pay as an informational balance
	VacationAccrue VacationPolicyMethod = "accrue"
	// VacationPayout pays vacation pay out on every cheque
	VacationPayout VacationPolicyMethod = "payout"
)

// VacationPolicy is the tenant's vacation payout policy
type VacationPolicy struct {
	Method         VacationPolicyMethod `json:"method"`
	AccrualPercent decimal.Decimal      `json:"accrual_percent"`
}

// StatutoryHoliday is one observed holiday in the tenant's calendar
type StatutoryHoliday struct {
	Name string    `json:"name"`
	Date time.Time `json:"date"`
}

// PayrollSchedule is the tenant's run cadence
type PayrollSchedule struct {
	Frequency   PayFrequency `json:"frequency"`
	NextPayDate time.Time    `json:"next_pay_date"`
}

// Configurations is the tenant-wide catalog of codes and garnishment
// definitions referenced by paystub items.
type Configurations struct {
	EarningCodes   []EarningCode              `json:"earning_codes"`
	DeductionCodes []DeductionCode            `json:"deduction_codes"`
	Garnishments   []GarnishmentConfiguration `json:"garnishments"`
}

// CompanySettings is an immutable snapshot of tenant configuration.
// Calculations read the loaded snapshot; changes go through an explicit
// repository save that produces a new version.
type CompanySettings struct {
	TenantID       string             `json:"tenant_id"`
	Version        int                `json:"version"`
	Configurations Configurations     `json:"configurations"`
	Holidays       []StatutoryHoliday `json:"holidays"`
	VacationPolicy VacationPolicy     `json:"vacation_policy"`
	Schedule       PayrollSchedule    `json:"schedule"`
}

// EarningCode resolves an earning code by ID against the snapshot.
// Returns nil if the reference does not resolve.
func (s *CompanySettings) EarningCode(id string) *EarningCode {
	for i := range s.Configurations.EarningCodes {
		if s.Configurations.EarningCodes[i].ID == id {
			return &s.Configurations.EarningCodes[i]
		}
	}
	return nil
}

// DeductionCode resolves a deduction code by ID against the snapshot
func (s *CompanySettings) DeductionCode(id string) *DeductionCode {
	for i := range s.Configurations.DeductionCodes {
		if s.Configurations.DeductionCodes[i].ID == id {
			return &s.Configurations.DeductionCodes[i]
		}
	}
	return nil
}

// Garnishment resolves a garnishment configuration by ID against the snapshot
func (s *CompanySettings) Garnishment(id string) *GarnishmentConfiguration {
	for i := range s.Configurations.Garnishments {
		if s.Configurations.Garnishments[i].ID == id {
			return &s.Configurations.Garnishments[i]
		}
	}
	return nil
}
