package service

import (
	"context"
	"sync"
	"time"

	"github.com/maplepay/maplepay-backend/internal/payroll/calc"
	"github.com/maplepay/maplepay-backend/internal/payroll/domain"
	"github.com/maplepay/maplepay-backend/internal/payroll/export"
	"github.com/maplepay/maplepay-backend/internal/payroll/repository"
	"github.com/maplepay/maplepay-backend/internal/payroll/run"
	"github.com/maplepay/maplepay-backend/internal/payroll/tax"
	"github.com/maplepay/maplepay-backend/pkg/config"
	"github.com/maplepay/maplepay-backend/pkg/errors"
	"github.com/maplepay/maplepay-backend/pkg/logger"
	"github.com/shopspring/decimal"
)

// EmployeeSource loads employee aggregates for a tenant
type EmployeeSource interface {
	FetchEmployees(ctx context.Context, tenantID string, limit int) ([]*domain.Employee, error)
}

// SettingsSource loads and saves company settings snapshots
type SettingsSource interface {
	FetchCompanySettings(ctx context.Context, tenantID string) (*domain.CompanySettings, error)
	SaveCompanySettings(ctx context.Context, settings *domain.CompanySettings) (*domain.CompanySettings, error)
}

// HistorySource persists committed runs and serves run history
type HistorySource interface {
	FetchPayrollHistory(ctx context.Context, tenantID string, limit int) ([]repository.CommittedRun, error)
	CommitPayrollRun(ctx context.Context, tenantID string, result *run.Result, committedBy string) error
	LatestRunTotal(ctx context.Context, tenantID string) (decimal.Decimal, error)
}

// Explainer turns a variance into advisory narrative text
type Explainer interface {
	ExplainVariance(ctx context.Context, payPeriod string, v run.Variance) string
}

// EventPublisher announces payroll lifecycle events
type EventPublisher interface {
	RunCalculated(ctx context.Context, tenantID string, result *run.Result)
	RunCommitted(ctx context.Context, tenantID string, result *run.Result, committedBy string)
	RunDiscarded(ctx context.Context, tenantID, runID string)
	SettingsSaved(ctx context.Context, tenantID string, version int)
}

// activeRun is one in-flight payroll run held in memory until it is
// committed or discarded.
type activeRun struct {
	tenantID     string
	orchestrator *run.Orchestrator
	employees    []*domain.Employee

	mu       sync.Mutex
	progress float64
}

func (a *activeRun) setProgress(f float64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if f > a.progress {
		a.progress = f
	}
}

func (a *activeRun) Progress() float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.progress
}

// PayrollService coordinates payroll runs: it loads tenant data, drives
// the run orchestrator, persists commits, and publishes events. Runs
// live in memory between calculation and commit.
type PayrollService struct {
	employees EmployeeSource
	settings  SettingsSource
	history   HistorySource
	explainer Explainer
	publisher EventPublisher
	cfg       config.PayrollConfig
	log       *logger.Logger

	mu   sync.RWMutex
	runs map[string]*activeRun
}

// NewPayrollService creates the payroll service
func NewPayrollService(
	employees EmployeeSource,
	settings SettingsSource,
	history HistorySource,
	explainer Explainer,
	publisher EventPublisher,
	cfg config.PayrollConfig,
	log *logger.Logger,
) *PayrollService {
	return &PayrollService{
		employees: employees,
		settings:  settings,
		history:   history,
		explainer: explainer,
		publisher: publisher,
		cfg:       cfg,
		log:       log.WithComponent("payroll_service"),
		runs:      make(map[string]*activeRun),
	}
}

// RunStatus is the externally visible view of an active run. Progress
// is a percentage from 0 to 100; the orchestrator's fractional callback
// is scaled here.
type RunStatus struct {
	RunID    string      `json:"run_id"`
	State    run.State   `json:"state"`
	Progress float64     `json:"progress_percent"`
	Result   *run.Result `json:"result,omitempty"`
}

// StartRun selects employees, calculates the batch, and returns the
// preview. An empty employeeIDs slice selects every active employee.
// The settings snapshot and tax tables are fixed at run start, so
// adjustments and recalculations within the run stay consistent.
func (s *PayrollService) StartRun(ctx context.Context, tenantID, payPeriod string, employeeIDs []string) (*RunStatus, error) {
	if payPeriod == "" {
		return nil, errors.ValidationMessage("pay_period is required")
	}

	settings, err := s.settings.FetchCompanySettings(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	tables, err := tax.ForYear(s.cfg.TaxYear)
	if err != nil {
		return nil, err
	}

	all, err := s.employees.FetchEmployees(ctx, tenantID, s.cfg.EmployeeFetchLimit)
	if err != nil {
		return nil, err
	}

	selected := all
	if len(employeeIDs) > 0 {
		selected = filterEmployees(all, employeeIDs)
	}

	orchestrator := run.New(calc.New(settings, tables), s.log.WithTenantID(tenantID))
	active := &activeRun{
		tenantID:     tenantID,
		orchestrator: orchestrator,
		employees:    selected,
	}

	if err := orchestrator.Select(selected, payPeriod, time.Now()); err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.runs[orchestrator.ID()] = active
	s.mu.Unlock()

	result, err := orchestrator.Calculate(ctx, active.setProgress)
	if err != nil {
		s.mu.Lock()
		delete(s.runs, orchestrator.ID())
		s.mu.Unlock()
		return nil, err
	}

	s.publisher.RunCalculated(ctx, tenantID, result)

	s.log.Info().
		Str("tenant_id", tenantID).
		Str("run_id", result.RunID).
		Int("paystubs", len(result.Paystubs)).
		Int("failed", len(result.Failed)).
		Msg("payroll run calculated")

	return s.status(active), nil
}

// GetRun returns the current state of an active run
func (s *PayrollService) GetRun(ctx context.Context, tenantID, runID string) (*RunStatus, error) {
	active, err := s.findRun(tenantID, runID)
	if err != nil {
		return nil, err
	}
	return s.status(active), nil
}

// AdjustRun applies an ad hoc adjustment to one employee's paystub in
// the preview and returns the recalculated paystub.
func (s *PayrollService) AdjustRun(ctx context.Context, tenantID, runID, employeeID string, adj domain.Adjustment) (*domain.Paystub, error) {
	active, err := s.findRun(tenantID, runID)
	if err != nil {
		return nil, err
	}
	return active.orchestrator.Adjust(ctx, employeeID, adj)
}

// CommitRun finalizes the previewed run: paystubs and the run header
// are persisted atomically and the committed event is published. The
// run stays in memory afterward so repeated commits return the same
// result without touching storage again.
func (s *PayrollService) CommitRun(ctx context.Context, tenantID, runID, committedBy string) (*run.Result, error) {
	active, err := s.findRun(tenantID, runID)
	if err != nil {
		return nil, err
	}

	alreadyCommitted := active.orchestrator.State() == run.StateCommitted

	result, err := active.orchestrator.Commit(ctx, func(ctx context.Context, result *run.Result) error {
		return s.history.CommitPayrollRun(ctx, tenantID, result, committedBy)
	})
	if err != nil {
		return nil, err
	}

	if !alreadyCommitted {
		s.publisher.RunCommitted(ctx, tenantID, result, committedBy)
		s.log.Info().
			Str("tenant_id", tenantID).
			Str("run_id", result.RunID).
			Str("committed_by", committedBy).
			Msg("payroll run committed")
	}

	return result, nil
}

// DiscardRun abandons a previewed run
func (s *PayrollService) DiscardRun(ctx context.Context, tenantID, runID string) error {
	active, err := s.findRun(tenantID, runID)
	if err != nil {
		return err
	}
	if err := active.orchestrator.Discard(); err != nil {
		return err
	}

	s.mu.Lock()
	delete(s.runs, runID)
	s.mu.Unlock()

	s.publisher.RunDiscarded(ctx, tenantID, runID)
	return nil
}

// RunVariance holds the variance numbers plus the advisory narrative
type RunVariance struct {
	run.Variance
	Narrative string `json:"narrative,omitempty"`
}

// Variance compares the run's total cost against the latest committed
// run. With no prior history every delta is zero. The narrative is
// advisory and may be empty when the explainer is unavailable.
func (s *PayrollService) Variance(ctx context.Context, tenantID, runID string) (*RunVariance, error) {
	active, err := s.findRun(tenantID, runID)
	if err != nil {
		return nil, err
	}

	result := active.orchestrator.Result()
	if result == nil {
		return nil, errors.Conflict("run has no calculated result to compare")
	}

	previous, err := s.history.LatestRunTotal(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	variance := result.CompareVariance(previous)
	return &RunVariance{
		Variance:  variance,
		Narrative: s.explainer.ExplainVariance(ctx, result.PayPeriod, variance),
	}, nil
}

// BankFile renders the direct deposit file for a committed run
func (s *PayrollService) BankFile(ctx context.Context, tenantID, runID string, valueDate time.Time) (string, error) {
	active, err := s.findRun(tenantID, runID)
	if err != nil {
		return "", err
	}
	if active.orchestrator.State() != run.StateCommitted {
		return "", errors.Conflict("bank file is only available for committed runs")
	}

	writer := export.NewBankFileWriter(s.cfg.PayorName)
	return writer.Write(active.orchestrator.Result(), active.employees, valueDate), nil
}

// History returns the tenant's committed run history
func (s *PayrollService) History(ctx context.Context, tenantID string, limit int) ([]repository.CommittedRun, error) {
	if limit <= 0 {
		limit = 20
	}
	return s.history.FetchPayrollHistory(ctx, tenantID, limit)
}

// GetSettings returns the tenant's latest settings snapshot
func (s *PayrollService) GetSettings(ctx context.Context, tenantID string) (*domain.CompanySettings, error) {
	return s.settings.FetchCompanySettings(ctx, tenantID)
}

// SaveSettings writes a new settings version and publishes the change
func (s *PayrollService) SaveSettings(ctx context.Context, settings *domain.CompanySettings) (*domain.CompanySettings, error) {
	saved, err := s.settings.SaveCompanySettings(ctx, settings)
	if err != nil {
		return nil, err
	}
	s.publisher.SettingsSaved(ctx, saved.TenantID, saved.Version)
	return saved, nil
}

func (s *PayrollService) findRun(tenantID, runID string) (*activeRun, error) {
	s.mu.RLock()
	active, ok := s.runs[runID]
	s.mu.RUnlock()

	if !ok || active.tenantID != tenantID {
		return nil, errors.NotFound("payroll run")
	}
	return active, nil
}

func (s *PayrollService) status(active *activeRun) *RunStatus {
	return &RunStatus{
		RunID:    active.orchestrator.ID(),
		State:    active.orchestrator.State(),
		Progress: active.Progress() * 100,
		Result:   active.orchestrator.Result(),
	}
}

func filterEmployees(all []*domain.Employee, ids []string) []*domain.Employee {
	wanted := make(map[string]bool, len(ids))
	for _, id := range ids {
		wanted[id] = true
	}
	selected := make([]*domain.Employee, 0, len(ids))
	for _, emp := range all {
		if wanted[emp.ID] {
			selected = append(selected, emp)
		}
	}
	return selected
}
