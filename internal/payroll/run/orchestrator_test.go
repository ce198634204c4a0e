package run_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/maplepay/maplepay-backend/internal/payroll/calc"
	"github.com/maplepay/maplepay-backend/internal/payroll/domain"
	"github.com/maplepay/maplepay-backend/internal/payroll/run"
	"github.com/maplepay/maplepay-backend/internal/payroll/tax"
	apperrors "github.com/maplepay/maplepay-backend/pkg/errors"
	"github.com/maplepay/maplepay-backend/pkg/logger"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

var asOf = time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)

func testOrchestrator(t *testing.T) *run.Orchestrator {
	t.Helper()
	tables, err := tax.ForYear(2024)
	require.NoError(t, err)

	settings := &domain.CompanySettings{
		TenantID: "tenant-1",
		Version:  1,
		VacationPolicy: domain.VacationPolicy{
			Method:         domain.VacationAccrue,
			AccrualPercent: d("4"),
		},
	}
	log := logger.New("test", "test")
	return run.New(calc.New(settings, tables), log)
}

func employee(id, salary string) *domain.Employee {
	return &domain.Employee{
		ID:             id,
		TenantID:       "tenant-1",
		EmployeeNumber: id,
		PayFrequency:   domain.SemiMonthly,
		Profiles: []domain.EmployeeProfile{
			{
				ID:            id + "-p1",
				EmployeeID:    id,
				Name:          "Employee " + id,
				PayType:       domain.Salaried,
				AnnualSalary:  d(salary),
				Province:      domain.Ontario,
				EffectiveDate: time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC),
			},
		},
	}
}

func brokenEmployee(id string) *domain.Employee {
	emp := employee(id, "90000")
	emp.RecurringEarnings = []domain.RecurringEarning{
		{CodeID: "earn-missing", Amount: d("100")},
	}
	return emp
}

func calculated(t *testing.T, o *run.Orchestrator, employees ...*domain.Employee) *run.Result {
	t.Helper()
	require.NoError(t, o.Select(employees, "2024-06-A", asOf))
	result, err := o.Calculate(context.Background(), nil)
	require.NoError(t, err)
	return result
}

func TestOrchestrator_InitialState(t *testing.T) {
	o := testOrchestrator(t)
	assert.Equal(t, run.StateSelect, o.State())
	assert.NotEmpty(t, o.ID())
	assert.Nil(t, o.Result())
}

func TestSelect_EmptySelectionRejected(t *testing.T) {
	o := testOrchestrator(t)
	err := o.Select(nil, "2024-06-A", asOf)
	require.Error(t, err)

	var appErr *apperrors.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, 400, appErr.StatusCode)
}

func TestCalculate_HappyPath(t *testing.T) {
	o := testOrchestrator(t)
	result := calculated(t, o, employee("e1", "105000"), employee("e2", "60000"))

	assert.Equal(t, run.StatePreview, o.State())
	assert.Len(t, result.Paystubs, 2)
	assert.Empty(t, result.Failed)
	assert.Equal(t, o.ID(), result.RunID)
}

func TestCalculate_WithoutSelection(t *testing.T) {
	o := testOrchestrator(t)
	_, err := o.Calculate(context.Background(), nil)
	assert.Error(t, err)
	assert.Equal(t, run.StateSelect, o.State())
}

func TestCalculate_PartialFailureContinuesBatch(t *testing.T) {
	o := testOrchestrator(t)
	result := calculated(t, o, employee("e1", "105000"), brokenEmployee("e2"), employee("e3", "60000"))

	assert.Len(t, result.Paystubs, 2)
	require.Len(t, result.Failed, 1)
	assert.Equal(t, "e2", result.Failed[0].EmployeeID)
	assert.NotEmpty(t, result.Failed[0].Reason)
	assert.Equal(t, run.StatePreview, o.State())
}

func TestCalculate_AllFailuresFailsRun(t *testing.T) {
	o := testOrchestrator(t)
	require.NoError(t, o.Select([]*domain.Employee{brokenEmployee("e1"), brokenEmployee("e2")}, "2024-06-A", asOf))

	_, err := o.Calculate(context.Background(), nil)
	assert.Error(t, err)
	assert.Equal(t, run.StateSelect, o.State())
}

func TestCalculate_ProgressMonotonicEndsAtOne(t *testing.T) {
	o := testOrchestrator(t)
	require.NoError(t, o.Select([]*domain.Employee{
		employee("e1", "105000"), employee("e2", "60000"),
		employee("e3", "75000"), employee("e4", "50000"),
	}, "2024-06-A", asOf))

	var fractions []float64
	_, err := o.Calculate(context.Background(), func(f float64) {
		fractions = append(fractions, f)
	})
	require.NoError(t, err)

	require.Len(t, fractions, 4)
	for i := 1; i < len(fractions); i++ {
		assert.GreaterOrEqual(t, fractions[i], fractions[i-1])
	}
	assert.Equal(t, 1.0, fractions[len(fractions)-1])
}

func TestCalculate_CancelledContext(t *testing.T) {
	o := testOrchestrator(t)
	require.NoError(t, o.Select([]*domain.Employee{employee("e1", "105000")}, "2024-06-A", asOf))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := o.Calculate(ctx, nil)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, run.StateSelect, o.State())
}

func TestAdjust_ReplacesPaystub(t *testing.T) {
	o := testOrchestrator(t)
	result := calculated(t, o, employee("e1", "105000"))
	before := result.Paystub("e1").GrossPay

	stub, err := o.Adjust(context.Background(), "e1", domain.Adjustment{
		Kind: domain.AdjustmentBonus, Amount: d("1000"),
	})
	require.NoError(t, err)

	assert.True(t, stub.GrossPay.Equal(before.Add(d("1000"))))
	assert.True(t, o.Result().Paystub("e1").GrossPay.Equal(stub.GrossPay))
}

func TestAdjust_ReplacementNotAccumulation(t *testing.T) {
	o := testOrchestrator(t)
	calculated(t, o, employee("e1", "105000"))

	_, err := o.Adjust(context.Background(), "e1", domain.Adjustment{
		Kind: domain.AdjustmentBonus, Amount: d("1000"),
	})
	require.NoError(t, err)

	// A second adjustment replaces the first, it does not stack
	stub, err := o.Adjust(context.Background(), "e1", domain.Adjustment{
		Kind: domain.AdjustmentBonus, Amount: d("250"),
	})
	require.NoError(t, err)
	assert.True(t, stub.GrossPay.Equal(d("4625.00")), "got %s", stub.GrossPay)
}

func TestAdjust_OnlyInPreview(t *testing.T) {
	o := testOrchestrator(t)
	_, err := o.Adjust(context.Background(), "e1", domain.Adjustment{
		Kind: domain.AdjustmentBonus, Amount: d("100"),
	})
	assert.Error(t, err)
}

func TestAdjust_UnknownEmployee(t *testing.T) {
	o := testOrchestrator(t)
	calculated(t, o, employee("e1", "105000"))

	_, err := o.Adjust(context.Background(), "ghost", domain.Adjustment{
		Kind: domain.AdjustmentBonus, Amount: d("100"),
	})
	assert.Error(t, err)
}

func TestAdjust_VacationPayoutOverBalance(t *testing.T) {
	o := testOrchestrator(t)
	emp := employee("e1", "105000")
	emp.YTD.VacationPay = d("300.00")
	calculated(t, o, emp)

	before := o.Result().Paystub("e1").GrossPay
	_, err := o.Adjust(context.Background(), "e1", domain.Adjustment{
		Kind: domain.AdjustmentVacationPayout, Amount: d("500.00"),
	})
	require.Error(t, err)

	var appErr *apperrors.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, 400, appErr.StatusCode)

	// The rejection left the paystub untouched
	assert.True(t, o.Result().Paystub("e1").GrossPay.Equal(before))
}

func TestAdjust_VacationPayoutWithinBalance(t *testing.T) {
	o := testOrchestrator(t)
	emp := employee("e1", "105000")
	emp.YTD.VacationPay = d("800.00")
	calculated(t, o, emp)

	stub, err := o.Adjust(context.Background(), "e1", domain.Adjustment{
		Kind: domain.AdjustmentVacationPayout, Amount: d("500.00"),
	})
	require.NoError(t, err)
	assert.True(t, stub.GrossPay.Equal(d("4875.00")), "got %s", stub.GrossPay)
}

func TestAdjust_VacationPayoutExactBalance(t *testing.T) {
	o := testOrchestrator(t)
	emp := employee("e1", "105000")
	emp.YTD.VacationPay = d("300.00")
	calculated(t, o, emp)

	stub, err := o.Adjust(context.Background(), "e1", domain.Adjustment{
		Kind: domain.AdjustmentVacationPayout, Amount: d("300.00"),
	})
	require.NoError(t, err)
	assert.True(t, stub.GrossPay.Equal(d("4675.00")), "got %s", stub.GrossPay)
}

func TestAdjust_VacationPayoutOneCentOverBalance(t *testing.T) {
	o := testOrchestrator(t)
	emp := employee("e1", "105000")
	emp.YTD.VacationPay = d("300.00")
	calculated(t, o, emp)

	_, err := o.Adjust(context.Background(), "e1", domain.Adjustment{
		Kind: domain.AdjustmentVacationPayout, Amount: d("300.01"),
	})
	require.Error(t, err)

	var appErr *apperrors.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, 400, appErr.StatusCode)
}

func TestAdjust_MergesRecalculationWarnings(t *testing.T) {
	o := testOrchestrator(t)
	emp := employee("e1", "105000")
	emp.Garnishments = []domain.EmployeeGarnishment{
		{ConfigID: "garn-gone", Amount: d("100.00")},
	}
	result := calculated(t, o, emp)
	require.Len(t, result.Warnings, 1)

	// Recalculating the same employee must not duplicate its warning
	_, err := o.Adjust(context.Background(), "e1", domain.Adjustment{
		Kind: domain.AdjustmentBonus, Amount: d("250.00"),
	})
	require.NoError(t, err)
	assert.Len(t, o.Result().Warnings, 1)

	// A warning first seen during adjustment is kept on the result
	emp.Garnishments = append(emp.Garnishments, domain.EmployeeGarnishment{
		ConfigID: "garn-gone-2", Amount: d("50.00"),
	})
	_, err = o.Adjust(context.Background(), "e1", domain.Adjustment{
		Kind: domain.AdjustmentBonus, Amount: d("250.00"),
	})
	require.NoError(t, err)

	warnings := o.Result().Warnings
	require.Len(t, warnings, 2)
	assert.Contains(t, warnings[1], "garn-gone-2")
}

func TestAdjust_InvalidKind(t *testing.T) {
	o := testOrchestrator(t)
	calculated(t, o, employee("e1", "105000"))

	_, err := o.Adjust(context.Background(), "e1", domain.Adjustment{
		Kind: "overtime", Amount: d("100"),
	})
	assert.Error(t, err)
}

func TestCommit_HappyPath(t *testing.T) {
	o := testOrchestrator(t)
	calculated(t, o, employee("e1", "105000"))

	commits := 0
	result, err := o.Commit(context.Background(), func(ctx context.Context, r *run.Result) error {
		commits++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, commits)
	assert.Equal(t, run.StateCommitted, o.State())
	assert.Len(t, result.Paystubs, 1)
}

func TestCommit_Idempotent(t *testing.T) {
	o := testOrchestrator(t)
	calculated(t, o, employee("e1", "105000"))

	commits := 0
	commit := func(ctx context.Context, r *run.Result) error {
		commits++
		return nil
	}

	first, err := o.Commit(context.Background(), commit)
	require.NoError(t, err)
	second, err := o.Commit(context.Background(), commit)
	require.NoError(t, err)

	assert.Equal(t, 1, commits, "commit function must run once")
	assert.Same(t, first, second)
}

func TestCommit_DownstreamFailureStaysPreview(t *testing.T) {
	o := testOrchestrator(t)
	calculated(t, o, employee("e1", "105000"))

	_, err := o.Commit(context.Background(), func(ctx context.Context, r *run.Result) error {
		return errors.New("ledger unavailable")
	})
	require.Error(t, err)

	var appErr *apperrors.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, 502, appErr.StatusCode)
	assert.Equal(t, run.StatePreview, o.State())

	// Retry succeeds once downstream recovers
	_, err = o.Commit(context.Background(), func(ctx context.Context, r *run.Result) error {
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, run.StateCommitted, o.State())
}

func TestCommit_BeforePreview(t *testing.T) {
	o := testOrchestrator(t)
	_, err := o.Commit(context.Background(), func(ctx context.Context, r *run.Result) error {
		return nil
	})
	assert.Error(t, err)
}

func TestDiscard_ReturnsToSelect(t *testing.T) {
	o := testOrchestrator(t)
	calculated(t, o, employee("e1", "105000"))

	require.NoError(t, o.Discard())
	assert.Equal(t, run.StateSelect, o.State())
	assert.Nil(t, o.Result())

	// The selection survives: the run can be recalculated
	result, err := o.Calculate(context.Background(), nil)
	require.NoError(t, err)
	assert.Len(t, result.Paystubs, 1)
}

func TestDiscard_OnlyInPreview(t *testing.T) {
	o := testOrchestrator(t)
	assert.Error(t, o.Discard())
}

func TestResult_TotalCost(t *testing.T) {
	o := testOrchestrator(t)
	result := calculated(t, o, employee("e1", "105000"))

	stub := result.Paystubs[0]
	expected := stub.GrossPay.
		Add(stub.EmployerContributions.CPP).
		Add(stub.EmployerContributions.EI)
	assert.True(t, result.TotalCost().Equal(expected))
}

func TestCompareVariance_NoPrevious(t *testing.T) {
	o := testOrchestrator(t)
	result := calculated(t, o, employee("e1", "105000"))

	v := result.CompareVariance(decimal.Zero)
	assert.True(t, v.Delta.IsZero())
	assert.True(t, v.Percent.IsZero())
	assert.True(t, v.CurrentTotal.Equal(result.TotalCost()))
}

func TestCompareVariance_AgainstPrevious(t *testing.T) {
	o := testOrchestrator(t)
	result := calculated(t, o, employee("e1", "105000"))

	previous := result.TotalCost().Sub(d("100.00"))
	v := result.CompareVariance(previous)

	assert.True(t, v.Delta.Equal(d("100.00")), "got %s", v.Delta)
	assert.True(t, v.Percent.GreaterThan(decimal.Zero))
	assert.True(t, v.PreviousTotal.Equal(previous))
}
