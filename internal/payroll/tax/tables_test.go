package tax_test

import (
	"testing"

	"github.com/maplepay/maplepay-backend/internal/payroll/domain"
	"github.com/maplepay/maplepay-backend/internal/payroll/tax"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestForYear_Known(t *testing.T) {
	tables, err := tax.ForYear(2024)
	require.NoError(t, err)
	assert.Equal(t, 2024, tables.Year)
	assert.NotEmpty(t, tables.Federal)
}

func TestForYear_Unknown(t *testing.T) {
	_, err := tax.ForYear(1999)
	assert.Error(t, err)
}

func TestProgressive_ZeroIncome(t *testing.T) {
	tables, err := tax.ForYear(2024)
	require.NoError(t, err)

	total := tax.Progressive(tables.Federal, decimal.Zero)
	assert.True(t, total.IsZero())
}

func TestProgressive_FirstBracketOnly(t *testing.T) {
	tables, err := tax.ForYear(2024)
	require.NoError(t, err)

	// 50,000 sits entirely in the 15% bracket
	total := tax.Progressive(tables.Federal, d("50000"))
	assert.True(t, total.Equal(d("7500")), "got %s", total)
}

func TestProgressive_SpansBrackets(t *testing.T) {
	tables, err := tax.ForYear(2024)
	require.NoError(t, err)

	// 105,000: 55,867 at 15% plus 49,133 at 20.5%
	total := tax.Progressive(tables.Federal, d("105000"))
	expected := d("55867").Mul(d("0.15")).Add(d("49133").Mul(d("0.205")))
	assert.True(t, total.Equal(expected), "got %s want %s", total, expected)
}

func TestProgressive_ContinuousAtThresholds(t *testing.T) {
	tables, err := tax.ForYear(2024)
	require.NoError(t, err)

	// Tax at a threshold equals the limit of tax just below it: crossing
	// a bracket boundary must never produce a jump.
	for _, threshold := range []string{"55867", "111733", "173205", "246752"} {
		at := tax.Progressive(tables.Federal, d(threshold))
		below := tax.Progressive(tables.Federal, d(threshold).Sub(d("0.01")))
		diff := at.Sub(below)
		assert.True(t, diff.LessThan(d("0.01")),
			"discontinuity at %s: %s", threshold, diff)
	}
}

func TestProgressive_Monotonic(t *testing.T) {
	tables, err := tax.ForYear(2024)
	require.NoError(t, err)

	prev := decimal.Zero
	for _, income := range []string{"1000", "40000", "55867", "80000", "111733", "200000", "300000"} {
		total := tax.Progressive(tables.Federal, d(income))
		assert.True(t, total.GreaterThanOrEqual(prev), "tax decreased at income %s", income)
		prev = total
	}
}

func TestProvincialBrackets_Fallback(t *testing.T) {
	tables, err := tax.ForYear(2024)
	require.NoError(t, err)

	unknown := tables.ProvincialBrackets(domain.Province("YT"))
	ontario := tables.ProvincialBrackets(domain.Ontario)
	assert.Equal(t, ontario, unknown)
}

func TestPension_QuebecUsesQPP(t *testing.T) {
	tables, err := tax.ForYear(2024)
	require.NoError(t, err)

	qpp := tables.Pension(domain.Quebec)
	cpp := tables.Pension(domain.Ontario)

	assert.True(t, qpp.EmployeeRate.Equal(d("0.064")))
	assert.True(t, cpp.EmployeeRate.Equal(d("0.0595")))
	assert.True(t, qpp.BasicExemption.Equal(cpp.BasicExemption))
}

func TestEmploymentInsurance_QuebecReducedRate(t *testing.T) {
	tables, err := tax.ForYear(2024)
	require.NoError(t, err)

	quebec := tables.EmploymentInsurance(domain.Quebec)
	rest := tables.EmploymentInsurance(domain.Alberta)

	assert.True(t, quebec.EmployeeRate.LessThan(rest.EmployeeRate))
	assert.True(t, quebec.EmployerMultiplier.Equal(rest.EmployerMultiplier))
}

func TestMarginalRate(t *testing.T) {
	tables, err := tax.ForYear(2024)
	require.NoError(t, err)

	assert.True(t, tax.MarginalRate(tables.Federal, d("50000")).Equal(d("0.15")))
	assert.True(t, tax.MarginalRate(tables.Federal, d("120000")).Equal(d("0.26")))
	assert.True(t, tax.MarginalRate(tables.Federal, d("300000")).Equal(d("0.33")))
}
