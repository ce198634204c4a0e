package tax

import (
	"fmt"

	"github.com/maplepay/maplepay-backend/internal/payroll/domain"
	"github.com/shopspring/decimal"
)

// ContributionParams are the CPP/QPP parameters for a tax year
type ContributionParams struct {
	EmployeeRate    decimal.Decimal
	BasicExemption  decimal.Decimal
	MaxContribution decimal.Decimal
}

// PremiumParams are the EI parameters for a tax year
type PremiumParams struct {
	EmployeeRate       decimal.Decimal
	MaxPremium         decimal.Decimal
	EmployerMultiplier decimal.Decimal
}

// Tables holds the statutory bracket and contribution data for one tax
// year. Provincial coverage is a representative set, not the full tax code.
type Tables struct {
	Year       int
	Federal    []Bracket
	Provincial map[domain.Province][]Bracket
	CPP        ContributionParams
	QPP        ContributionParams
	EI         PremiumParams
	QuebecEI   PremiumParams
}

// ProvincialBrackets returns the bracket table for a province, falling
// back to Ontario when the province is not in the representative set.
func (t *Tables) ProvincialBrackets(p domain.Province) []Bracket {
	if b, ok := t.Provincial[p]; ok {
		return b
	}
	return t.Provincial[domain.Ontario]
}

// Pension returns the pension contribution parameters for a province:
// QPP for Quebec, CPP elsewhere.
func (t *Tables) Pension(p domain.Province) ContributionParams {
	if p == domain.Quebec {
		return t.QPP
	}
	return t.CPP
}

// EmploymentInsurance returns the EI premium parameters for a province.
// Quebec uses its reduced employee rate; the employer multiplier is kept
// at the standard 1.4 for all provinces, a known simplification of the
// QPIP employer-side rules.
func (t *Tables) EmploymentInsurance(p domain.Province) PremiumParams {
	if p == domain.Quebec {
		return t.QuebecEI
	}
	return t.EI
}

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func brackets(pairs ...string) []Bracket {
	if len(pairs)%2 != 0 {
		panic("brackets requires threshold/rate pairs")
	}
	out := make([]Bracket, 0, len(pairs)/2)
	for i := 0; i < len(pairs); i += 2 {
		out = append(out, Bracket{Threshold: d(pairs[i]), Rate: d(pairs[i+1])})
	}
	return out
}

// tables2024 holds the 2024 statutory parameters
var tables2024 = &Tables{
	Year: 2024,
	Federal: brackets(
		"0", "0.15",
		"55867", "0.205",
		"111733", "0.26",
		"173205", "0.29",
		"246752", "0.33",
	),
	Provincial: map[domain.Province][]Bracket{
		domain.Ontario: brackets(
			"0", "0.0505",
			"51446", "0.0915",
			"102894", "0.1116",
			"150000", "0.1216",
			"220000", "0.1316",
		),
		domain.BritishColumbia: brackets(
			"0", "0.0506",
			"47937", "0.077",
			"95875", "0.105",
			"110076", "0.1229",
			"133664", "0.147",
			"181232", "0.168",
			"252752", "0.205",
		),
		domain.Alberta: brackets(
			"0", "0.10",
			"148269", "0.12",
			"177922", "0.13",
			"237230", "0.14",
			"355845", "0.15",
		),
		domain.Quebec: brackets(
			"0", "0.14",
			"51780", "0.19",
			"103545", "0.24",
			"126000", "0.2575",
		),
	},
	CPP: ContributionParams{
		EmployeeRate:    d("0.0595"),
		BasicExemption:  d("3500"),
		MaxContribution: d("3867.50"),
	},
	QPP: ContributionParams{
		EmployeeRate:    d("0.064"),
		BasicExemption:  d("3500"),
		MaxContribution: d("4160.00"),
	},
	EI: PremiumParams{
		EmployeeRate:       d("0.0166"),
		MaxPremium:         d("1049.12"),
		EmployerMultiplier: d("1.4"),
	},
	QuebecEI: PremiumParams{
		EmployeeRate:       d("0.0132"),
		MaxPremium:         d("834.24"),
		EmployerMultiplier: d("1.4"),
	},
}

var byYear = map[int]*Tables{
	2024: tables2024,
}

// ForYear returns the statutory tables for a tax year
func ForYear(year int) (*Tables, error) {
	t, ok := byYear[year]
	if !ok {
		return nil, fmt.Errorf("no statutory tables loaded for tax year %d", year)
	}
	return t, nil
}
