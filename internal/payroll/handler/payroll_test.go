package handler_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/maplepay/maplepay-backend/internal/payroll/domain"
	"github.com/maplepay/maplepay-backend/internal/payroll/handler"
	"github.com/maplepay/maplepay-backend/internal/payroll/repository"
	"github.com/maplepay/maplepay-backend/internal/payroll/run"
	"github.com/maplepay/maplepay-backend/internal/payroll/service"
	"github.com/maplepay/maplepay-backend/pkg/config"
	"github.com/maplepay/maplepay-backend/pkg/httputil"
	"github.com/maplepay/maplepay-backend/pkg/logger"
	"github.com/maplepay/maplepay-backend/pkg/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tenantID = "7a1c2e34-0db6-4f76-9c20-1a2b3c4d5e6f"

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

type stubEmployees struct{ employees []*domain.Employee }

func (s *stubEmployees) FetchEmployees(ctx context.Context, tenantID string, limit int) ([]*domain.Employee, error) {
	return s.employees, nil
}

type stubSettings struct{ settings *domain.CompanySettings }

func (s *stubSettings) FetchCompanySettings(ctx context.Context, tenantID string) (*domain.CompanySettings, error) {
	return s.settings, nil
}

func (s *stubSettings) SaveCompanySettings(ctx context.Context, in *domain.CompanySettings) (*domain.CompanySettings, error) {
	saved := *in
	saved.Version = in.Version + 1
	return &saved, nil
}

type stubHistory struct{}

func (s *stubHistory) FetchPayrollHistory(ctx context.Context, tenantID string, limit int) ([]repository.CommittedRun, error) {
	return nil, nil
}

func (s *stubHistory) CommitPayrollRun(ctx context.Context, tenantID string, result *run.Result, committedBy string) error {
	return nil
}

func (s *stubHistory) LatestRunTotal(ctx context.Context, tenantID string) (decimal.Decimal, error) {
	return decimal.Zero, nil
}

type stubExplainer struct{}

func (s *stubExplainer) ExplainVariance(ctx context.Context, payPeriod string, v run.Variance) string {
	return ""
}

type stubPublisher struct{}

func (s *stubPublisher) RunCalculated(ctx context.Context, tenantID string, result *run.Result) {}
func (s *stubPublisher) RunCommitted(ctx context.Context, tenantID string, result *run.Result, committedBy string) {
}
func (s *stubPublisher) RunDiscarded(ctx context.Context, tenantID, runID string)        {}
func (s *stubPublisher) SettingsSaved(ctx context.Context, tenantID string, version int) {}

func testRouter(t *testing.T) http.Handler {
	t.Helper()
	log := logger.New("test", "test")

	svc := service.NewPayrollService(
		&stubEmployees{employees: []*domain.Employee{
			{
				ID:             "e1",
				TenantID:       tenantID,
				EmployeeNumber: "1001",
				PayFrequency:   domain.SemiMonthly,
				YTD:            domain.YTDTotals{VacationPay: d("800.00")},
				Profiles: []domain.EmployeeProfile{
					{
						ID:            "p1",
						EmployeeID:    "e1",
						Name:          "Avery Chen",
						PayType:       domain.Salaried,
						AnnualSalary:  d("105000"),
						Province:      domain.Ontario,
						EffectiveDate: time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC),
					},
				},
			},
		}},
		&stubSettings{settings: &domain.CompanySettings{
			TenantID: tenantID,
			Version:  1,
			VacationPolicy: domain.VacationPolicy{
				Method:         domain.VacationAccrue,
				AccrualPercent: d("4"),
			},
			Schedule: domain.PayrollSchedule{Frequency: domain.SemiMonthly},
		}},
		&stubHistory{},
		&stubExplainer{},
		&stubPublisher{},
		config.PayrollConfig{TaxYear: 2024, PayorName: "Maple Widgets Inc", EmployeeFetchLimit: 500},
		log,
	)

	r := chi.NewRouter()
	r.Use(httputil.TenantMiddleware)
	r.Route("/api/v1", func(r chi.Router) {
		handler.NewPayrollHandler(svc, log).RegisterRoutes(r)
		handler.NewSettingsHandler(svc, log).RegisterRoutes(r)
	})
	return r
}

func startRun(t *testing.T, router http.Handler) string {
	t.Helper()
	req := testutil.WithTenantHeaders(
		testutil.NewHTTPRequest(http.MethodPost, "/api/v1/payroll/runs",
			map[string]interface{}{"pay_period": "2024-06-A"}),
		tenantID, "maple-widgets")
	rr := testutil.ExecuteRequest(router, req)
	testutil.AssertStatus(t, rr, http.StatusCreated)

	var body struct {
		Data struct {
			RunID string `json:"run_id"`
		} `json:"data"`
	}
	testutil.ParseJSONBody(t, rr, &body)
	require.NotEmpty(t, body.Data.RunID)
	return body.Data.RunID
}

func TestStartRun_Created(t *testing.T) {
	router := testRouter(t)
	runID := startRun(t, router)
	assert.NotEmpty(t, runID)
}

func TestStartRun_MissingTenantHeader(t *testing.T) {
	router := testRouter(t)

	req := testutil.NewHTTPRequest(http.MethodPost, "/api/v1/payroll/runs",
		map[string]interface{}{"pay_period": "2024-06-A"})
	rr := testutil.ExecuteRequest(router, req)
	testutil.AssertStatus(t, rr, http.StatusForbidden)
}

func TestStartRun_MissingPayPeriod(t *testing.T) {
	router := testRouter(t)

	req := testutil.WithTenantHeaders(
		testutil.NewHTTPRequest(http.MethodPost, "/api/v1/payroll/runs", map[string]interface{}{}),
		tenantID, "maple-widgets")
	rr := testutil.ExecuteRequest(router, req)
	testutil.AssertStatus(t, rr, http.StatusBadRequest)
}

func TestGetRun(t *testing.T) {
	router := testRouter(t)
	runID := startRun(t, router)

	req := testutil.WithTenantHeaders(
		testutil.NewHTTPRequest(http.MethodGet, "/api/v1/payroll/runs/"+runID, nil),
		tenantID, "maple-widgets")
	rr := testutil.ExecuteRequest(router, req)
	testutil.AssertStatus(t, rr, http.StatusOK)
	testutil.AssertBodyContains(t, rr, "preview")
	testutil.AssertBodyContains(t, rr, `"progress_percent":100`)
}

func TestGetRun_NotFound(t *testing.T) {
	router := testRouter(t)

	req := testutil.WithTenantHeaders(
		testutil.NewHTTPRequest(http.MethodGet, "/api/v1/payroll/runs/nope", nil),
		tenantID, "maple-widgets")
	rr := testutil.ExecuteRequest(router, req)
	testutil.AssertStatus(t, rr, http.StatusNotFound)
}

func TestAdjustRun(t *testing.T) {
	router := testRouter(t)
	runID := startRun(t, router)

	req := testutil.WithTenantHeaders(
		testutil.NewHTTPRequest(http.MethodPost, "/api/v1/payroll/runs/"+runID+"/adjust",
			map[string]interface{}{"employee_id": "e1", "kind": "bonus", "amount": "1000.00"}),
		tenantID, "maple-widgets")
	rr := testutil.ExecuteRequest(router, req)
	testutil.AssertStatus(t, rr, http.StatusOK)
	testutil.AssertBodyContains(t, rr, "Bonus")
}

func TestAdjustRun_InvalidKind(t *testing.T) {
	router := testRouter(t)
	runID := startRun(t, router)

	req := testutil.WithTenantHeaders(
		testutil.NewHTTPRequest(http.MethodPost, "/api/v1/payroll/runs/"+runID+"/adjust",
			map[string]interface{}{"employee_id": "e1", "kind": "overtime", "amount": "100"}),
		tenantID, "maple-widgets")
	rr := testutil.ExecuteRequest(router, req)
	testutil.AssertStatus(t, rr, http.StatusBadRequest)
}

func TestAdjustRun_VacationPayoutOverBalance(t *testing.T) {
	router := testRouter(t)
	runID := startRun(t, router)

	req := testutil.WithTenantHeaders(
		testutil.NewHTTPRequest(http.MethodPost, "/api/v1/payroll/runs/"+runID+"/adjust",
			map[string]interface{}{"employee_id": "e1", "kind": "vacation_payout", "amount": "5000.00"}),
		tenantID, "maple-widgets")
	rr := testutil.ExecuteRequest(router, req)
	testutil.AssertStatus(t, rr, http.StatusBadRequest)
	testutil.AssertBodyContains(t, rr, "balance")
}

func TestCommitAndBankFile(t *testing.T) {
	router := testRouter(t)
	runID := startRun(t, router)

	req := testutil.WithTenantHeaders(
		testutil.NewHTTPRequest(http.MethodPost, "/api/v1/payroll/runs/"+runID+"/commit", nil),
		tenantID, "maple-widgets")
	rr := testutil.ExecuteRequest(router, req)
	testutil.AssertStatus(t, rr, http.StatusOK)

	req = testutil.WithTenantHeaders(
		testutil.NewHTTPRequest(http.MethodGet, "/api/v1/payroll/runs/"+runID+"/bank-file", nil),
		tenantID, "maple-widgets")
	rr = testutil.ExecuteRequest(router, req)
	testutil.AssertStatus(t, rr, http.StatusOK)
	testutil.AssertBodyContains(t, rr, "Maple Widgets Inc")
}

func TestDiscardRun(t *testing.T) {
	router := testRouter(t)
	runID := startRun(t, router)

	req := testutil.WithTenantHeaders(
		testutil.NewHTTPRequest(http.MethodPost, "/api/v1/payroll/runs/"+runID+"/discard", nil),
		tenantID, "maple-widgets")
	rr := testutil.ExecuteRequest(router, req)
	testutil.AssertStatus(t, rr, http.StatusNoContent)
}

func TestVarianceEndpoint(t *testing.T) {
	router := testRouter(t)
	runID := startRun(t, router)

	req := testutil.WithTenantHeaders(
		testutil.NewHTTPRequest(http.MethodGet, "/api/v1/payroll/runs/"+runID+"/variance", nil),
		tenantID, "maple-widgets")
	rr := testutil.ExecuteRequest(router, req)
	testutil.AssertStatus(t, rr, http.StatusOK)
	testutil.AssertBodyContains(t, rr, "current_total")
}

func TestSettingsRoundTrip(t *testing.T) {
	router := testRouter(t)

	req := testutil.WithTenantHeaders(
		testutil.NewHTTPRequest(http.MethodGet, "/api/v1/payroll/settings", nil),
		tenantID, "maple-widgets")
	rr := testutil.ExecuteRequest(router, req)
	testutil.AssertStatus(t, rr, http.StatusOK)

	req = testutil.WithTenantHeaders(
		testutil.NewHTTPRequest(http.MethodPut, "/api/v1/payroll/settings",
			map[string]interface{}{
				"version":         1,
				"vacation_policy": map[string]interface{}{"method": "accrue", "accrual_percent": "4"},
				"schedule":        map[string]interface{}{"frequency": "semi_monthly"},
			}),
		tenantID, "maple-widgets")
	rr = testutil.ExecuteRequest(router, req)
	testutil.AssertStatus(t, rr, http.StatusOK)
}

func TestSaveSettings_InvalidFrequency(t *testing.T) {
	router := testRouter(t)

	req := testutil.WithTenantHeaders(
		testutil.NewHTTPRequest(http.MethodPut, "/api/v1/payroll/settings",
			map[string]interface{}{
				"version":         1,
				"vacation_policy": map[string]interface{}{"method": "accrue", "accrual_percent": "4"},
				"schedule":        map[string]interface{}{"frequency": "quarterly"},
			}),
		tenantID, "maple-widgets")
	rr := testutil.ExecuteRequest(router, req)
	testutil.AssertStatus(t, rr, http.StatusBadRequest)
}
