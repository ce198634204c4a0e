package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/maplepay/maplepay-backend/internal/payroll/run"
	"github.com/maplepay/maplepay-backend/pkg/database"
	"github.com/maplepay/maplepay-backend/pkg/errors"
	"github.com/maplepay/maplepay-backend/pkg/logger"
	"github.com/shopspring/decimal"
)

// CommittedRun is one finalized payroll run in the tenant's history
type CommittedRun struct {
	RunID       string          `db:"run_id" json:"run_id"`
	PayPeriod   string          `db:"pay_period" json:"pay_period"`
	TotalCost   decimal.Decimal `db:"total_cost" json:"total_cost"`
	CommittedBy string          `db:"committed_by" json:"committed_by"`
	CommittedAt time.Time       `db:"committed_at" json:"committed_at"`
}

// HistoryRepository persists committed payroll runs and serves the
// run history used for variance comparison.
type HistoryRepository struct {
	db  *database.DB
	log *logger.Logger
}

// NewHistoryRepository creates a history repository
func NewHistoryRepository(db *database.DB, log *logger.Logger) *HistoryRepository {
	return &HistoryRepository{
		db:  db,
		log: log.WithComponent("history_repository"),
	}
}

// FetchPayrollHistory returns committed runs, most recent first
func (r *HistoryRepository) FetchPayrollHistory(ctx context.Context, tenantID string, limit int) ([]CommittedRun, error) {
	var history []CommittedRun

	err := r.db.WithTenantRLS(ctx, tenantID, func(ctx context.Context) error {
		query := `
			SELECT run_id, pay_period, total_cost, committed_by, committed_at
			FROM payroll_runs
			WHERE tenant_id = $1
			ORDER BY committed_at DESC
			LIMIT $2`
		if err := r.db.SelectContext(ctx, &history, query, tenantID, limit); err != nil {
			return database.MapPQError(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return history, nil
}

// CommitPayrollRun persists a finalized run atomically: the run header
// and every paystub land in one tenant transaction, and the run row
// carries the full result snapshot for audit. Committing the same run
// ID twice is a no-op so commit retries stay idempotent.
func (r *HistoryRepository) CommitPayrollRun(ctx context.Context, tenantID string, result *run.Result, committedBy string) error {
	snapshot, err := json.Marshal(result)
	if err != nil {
		return errors.Internal("failed to serialize run snapshot")
	}

	return r.db.WithTenantRLS(ctx, tenantID, func(ctx context.Context) error {
		insertRun := `
			INSERT INTO payroll_runs (run_id, tenant_id, pay_period, total_cost, snapshot, committed_by, committed_at)
			VALUES ($1, $2, $3, $4, $5, $6, NOW())
			ON CONFLICT (run_id) DO NOTHING`
		res, err := r.db.ExecContext(ctx, insertRun,
			result.RunID, tenantID, result.PayPeriod, result.TotalCost(), snapshot, committedBy)
		if err != nil {
			return database.MapPQError(err)
		}
		if affected, err := res.RowsAffected(); err == nil && affected == 0 {
			r.log.Info().Str("run_id", result.RunID).Msg("run already committed, skipping")
			return nil
		}

		insertStub := `
			INSERT INTO paystubs (run_id, employee_id, pay_period, gross_pay, total_deductions, net_pay, detail)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`
		for _, stub := range result.Paystubs {
			detail, err := json.Marshal(stub)
			if err != nil {
				return errors.Internal("failed to serialize paystub")
			}
			if _, err := r.db.ExecContext(ctx, insertStub,
				result.RunID, stub.EmployeeID, stub.PayPeriod,
				stub.GrossPay, stub.TotalDeductions, stub.NetPay, detail); err != nil {
				return database.MapPQError(err)
			}
		}
		return nil
	})
}

// LatestRunTotal returns the total cost of the most recent committed
// run, or zero when the tenant has no history.
func (r *HistoryRepository) LatestRunTotal(ctx context.Context, tenantID string) (decimal.Decimal, error) {
	history, err := r.FetchPayrollHistory(ctx, tenantID, 1)
	if err != nil {
		return decimal.Zero, err
	}
	if len(history) == 0 {
		return decimal.Zero, nil
	}
	return history[0].TotalCost, nil
}
