package run

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/maplepay/maplepay-backend/internal/payroll/calc"
	"github.com/maplepay/maplepay-backend/internal/payroll/domain"
	"github.com/maplepay/maplepay-backend/pkg/errors"
	"github.com/maplepay/maplepay-backend/pkg/logger"
	"github.com/shopspring/decimal"
)

// State is the payroll run lifecycle state
type State string

const (
	StateSelect      State = "select"
	StateCalculating State = "calculating"
	StatePreview     State = "preview"
	StateCommitted   State = "committed"
)

// FailedEmployee records one employee whose calculation failed while the
// rest of the batch continued.
type FailedEmployee struct {
	EmployeeID string `json:"employee_id"`
	Name       string `json:"name"`
	Reason     string `json:"reason"`
}

// Result is the preview output of a run calculation
type Result struct {
	RunID     string            `json:"run_id"`
	PayPeriod string            `json:"pay_period"`
	Paystubs  []*domain.Paystub `json:"paystubs"`
	Failed    []FailedEmployee  `json:"failed,omitempty"`
	Warnings  []string          `json:"warnings,omitempty"`
}

// TotalCost sums gross pay plus employer contributions over every paystub
func (r *Result) TotalCost() decimal.Decimal {
	total := decimal.Zero
	for _, stub := range r.Paystubs {
		total = total.Add(stub.TotalCost())
	}
	return total
}

// Paystub finds one employee's paystub in the result
func (r *Result) Paystub(employeeID string) *domain.Paystub {
	for _, stub := range r.Paystubs {
		if stub.EmployeeID == employeeID {
			return stub
		}
	}
	return nil
}

// Variance compares a run against the previous committed run
type Variance struct {
	CurrentTotal  decimal.Decimal `json:"current_total"`
	PreviousTotal decimal.Decimal `json:"previous_total"`
	Delta         decimal.Decimal `json:"delta"`
	Percent       decimal.Decimal `json:"percent"`
}

// ProgressFunc receives batch completion in [0, 1]. Calls are monotonic
// non-decreasing and end at 1 when the batch finishes.
type ProgressFunc func(fraction float64)

// CommitFunc persists the previewed run. The orchestrator treats any
// error from it as a retryable downstream failure.
type CommitFunc func(ctx context.Context, result *Result) error

// Orchestrator drives one payroll run through its lifecycle:
// selection, batch calculation, preview with adjustments, and commit.
// All methods are safe for concurrent use.
type Orchestrator struct {
	calculator *calc.Calculator
	log        *logger.Logger

	mu        sync.Mutex
	id        string
	state     State
	payPeriod string
	asOf      time.Time
	selected  []*domain.Employee
	result    *Result
	busy      map[string]bool
}

// New creates an orchestrator in the selection state
func New(calculator *calc.Calculator, log *logger.Logger) *Orchestrator {
	id := uuid.NewString()
	return &Orchestrator{
		calculator: calculator,
		log:        log.WithRun(id),
		id:         id,
		state:      StateSelect,
		busy:       make(map[string]bool),
	}
}

// ID returns the run identifier
func (o *Orchestrator) ID() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.id
}

// State returns the current lifecycle state
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Result returns the preview result, or nil before calculation
func (o *Orchestrator) Result() *Result {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.result
}

// Select stores the employee selection for the run. The selection must
// be non-empty; selecting is only valid before calculation starts.
func (o *Orchestrator) Select(employees []*domain.Employee, payPeriod string, asOf time.Time) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.state != StateSelect {
		return errors.Conflict(fmt.Sprintf("cannot select employees in state %s", o.state))
	}
	if len(employees) == 0 {
		return errors.ValidationMessage("at least one employee must be selected")
	}

	o.selected = employees
	o.payPeriod = payPeriod
	o.asOf = asOf
	return nil
}

// Calculate runs the batch over the selected employees. Employees are
// processed one at a time; a single employee's failure is recorded and
// the batch continues. The run only fails outright when every employee
// fails. On success the run moves to preview.
func (o *Orchestrator) Calculate(ctx context.Context, onProgress ProgressFunc) (*Result, error) {
	o.mu.Lock()
	if o.state != StateSelect {
		o.mu.Unlock()
		return nil, errors.Conflict(fmt.Sprintf("cannot calculate in state %s", o.state))
	}
	if len(o.selected) == 0 {
		o.mu.Unlock()
		return nil, errors.ValidationMessage("at least one employee must be selected")
	}
	o.state = StateCalculating
	employees := o.selected
	payPeriod := o.payPeriod
	asOf := o.asOf
	o.mu.Unlock()

	result := &Result{
		RunID:     o.id,
		PayPeriod: payPeriod,
	}

	for i, emp := range employees {
		if err := ctx.Err(); err != nil {
			o.mu.Lock()
			o.state = StateSelect
			o.mu.Unlock()
			return nil, err
		}

		stub, warnings, err := o.calculator.Paystub(emp, payPeriod, asOf, nil)
		if err != nil {
			o.log.WithError(err).Warn().
				Str("employee_id", emp.ID).
				Msg("employee calculation failed, continuing batch")
			result.Failed = append(result.Failed, FailedEmployee{
				EmployeeID: emp.ID,
				Name:       employeeName(emp, asOf),
				Reason:     err.Error(),
			})
		} else {
			result.Paystubs = append(result.Paystubs, stub)
			result.Warnings = append(result.Warnings, warnings...)
		}

		if onProgress != nil {
			onProgress(float64(i+1) / float64(len(employees)))
		}
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	if len(result.Paystubs) == 0 {
		o.state = StateSelect
		return nil, errors.DataIntegrity("all selected employees failed calculation")
	}

	o.result = result
	o.state = StatePreview
	return result, nil
}

// Adjust replaces the ad hoc adjustment on one employee's paystub and
// recalculates only that employee. Valid only in preview. A vacation
// payout above the employee's balance is rejected before any mutation.
// Concurrent adjustments to the same employee are rejected with a
// conflict while the first is in flight.
func (o *Orchestrator) Adjust(ctx context.Context, employeeID string, adj domain.Adjustment) (*domain.Paystub, error) {
	if !adj.Kind.Valid() {
		return nil, errors.ValidationMessage("unknown adjustment kind " + string(adj.Kind))
	}
	if adj.Amount.Sign() < 0 {
		return nil, errors.ValidationMessage("adjustment amount must not be negative")
	}

	o.mu.Lock()
	if o.state != StatePreview {
		o.mu.Unlock()
		return nil, errors.Conflict(fmt.Sprintf("cannot adjust in state %s", o.state))
	}
	if o.busy[employeeID] {
		o.mu.Unlock()
		return nil, errors.Conflict("an adjustment for this employee is already in progress")
	}

	var emp *domain.Employee
	for _, e := range o.selected {
		if e.ID == employeeID {
			emp = e
			break
		}
	}
	if emp == nil || o.result.Paystub(employeeID) == nil {
		o.mu.Unlock()
		return nil, errors.NotFound("paystub")
	}

	if adj.Kind == domain.AdjustmentVacationPayout && adj.Amount.GreaterThan(emp.VacationBalance()) {
		o.mu.Unlock()
		return nil, errors.ValidationMessage(fmt.Sprintf(
			"vacation payout %s exceeds available balance %s",
			adj.Amount.StringFixed(2), emp.VacationBalance().StringFixed(2)))
	}

	o.busy[employeeID] = true
	payPeriod := o.payPeriod
	asOf := o.asOf
	o.mu.Unlock()

	defer func() {
		o.mu.Lock()
		delete(o.busy, employeeID)
		o.mu.Unlock()
	}()

	stub, warnings, err := o.calculator.Paystub(emp, payPeriod, asOf, &adj)
	if err != nil {
		return nil, err
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	if o.state != StatePreview {
		return nil, errors.Conflict("run left preview while adjusting")
	}
	for i, existing := range o.result.Paystubs {
		if existing.EmployeeID == employeeID {
			o.result.Paystubs[i] = stub
			break
		}
	}
	o.result.Warnings = mergeWarnings(o.result.Warnings, warnings)
	return stub, nil
}

// mergeWarnings appends incoming warnings not already present,
// preserving order.
func mergeWarnings(existing, incoming []string) []string {
	seen := make(map[string]bool, len(existing))
	for _, w := range existing {
		seen[w] = true
	}
	for _, w := range incoming {
		if !seen[w] {
			existing = append(existing, w)
			seen[w] = true
		}
	}
	return existing
}

// Commit finalizes the previewed run through the commit function.
// Commit is idempotent: committing an already-committed run returns the
// stored result without re-running the commit function. A downstream
// failure leaves the run in preview so commit can be retried.
func (o *Orchestrator) Commit(ctx context.Context, commit CommitFunc) (*Result, error) {
	o.mu.Lock()
	if o.state == StateCommitted {
		result := o.result
		o.mu.Unlock()
		return result, nil
	}
	if o.state != StatePreview {
		o.mu.Unlock()
		return nil, errors.Conflict(fmt.Sprintf("cannot commit in state %s", o.state))
	}
	result := o.result
	o.mu.Unlock()

	if err := commit(ctx, result); err != nil {
		return nil, errors.CommitFailed(err)
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	o.state = StateCommitted
	return result, nil
}

// Discard abandons the preview and returns to selection. The selection
// itself is kept so the run can be recalculated.
func (o *Orchestrator) Discard() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.state != StatePreview {
		return errors.Conflict(fmt.Sprintf("cannot discard in state %s", o.state))
	}
	o.result = nil
	o.busy = make(map[string]bool)
	o.state = StateSelect
	return nil
}

// CompareVariance compares the run's total employer cost to a previous
// total. With no previous run both delta and percent are zero.
func (r *Result) CompareVariance(previousTotal decimal.Decimal) Variance {
	current := r.TotalCost()
	v := Variance{
		CurrentTotal:  current,
		PreviousTotal: previousTotal,
	}
	if previousTotal.IsZero() {
		return v
	}
	v.Delta = current.Sub(previousTotal)
	v.Percent = domain.RoundCents(v.Delta.Div(previousTotal).Mul(decimal.NewFromInt(100)))
	return v
}

func employeeName(emp *domain.Employee, asOf time.Time) string {
	if p := emp.ProfileAsOf(asOf); p != nil {
		return p.Name
	}
	return emp.EmployeeNumber
}
