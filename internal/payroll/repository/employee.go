package repository

import (
	"context"

	"github.com/maplepay/maplepay-backend/internal/payroll/domain"
	"github.com/maplepay/maplepay-backend/pkg/database"
	"github.com/maplepay/maplepay-backend/pkg/errors"
	"github.com/maplepay/maplepay-backend/pkg/logger"
)

// EmployeeRepository loads employee aggregates for payroll runs.
// Every query runs inside the tenant's row-level-security transaction.
type EmployeeRepository struct {
	db  *database.DB
	log *logger.Logger
}

// NewEmployeeRepository creates an employee repository
func NewEmployeeRepository(db *database.DB, log *logger.Logger) *EmployeeRepository {
	return &EmployeeRepository{
		db:  db,
		log: log.WithComponent("employee_repository"),
	}
}

// FetchEmployees loads the active employee aggregates for the tenant:
// core record, full profile history, recurring earnings and deductions,
// garnishment assignments, and bank allocations. The limit bounds the
// batch size of a single run.
func (r *EmployeeRepository) FetchEmployees(ctx context.Context, tenantID string, limit int) ([]*domain.Employee, error) {
	var employees []*domain.Employee

	err := r.db.WithTenantRLS(ctx, tenantID, func(ctx context.Context) error {
		var rows []struct {
			ID             string `db:"id"`
			TenantID       string `db:"tenant_id"`
			EmployeeNumber string `db:"employee_number"`
			PayFrequency   string `db:"pay_frequency"`

			domain.YTDTotals
		}

		query := `
			SELECT id, tenant_id, employee_number, pay_frequency,
			       ytd_gross_pay, ytd_cpp, ytd_ei, ytd_vacation_pay
			FROM employees
			WHERE is_active = true
			ORDER BY employee_number
			LIMIT $1`
		if err := r.db.SelectContext(ctx, &rows, query, limit); err != nil {
			return database.MapPQError(err)
		}

		employees = make([]*domain.Employee, 0, len(rows))
		for _, row := range rows {
			emp := &domain.Employee{
				ID:             row.ID,
				TenantID:       row.TenantID,
				EmployeeNumber: row.EmployeeNumber,
				PayFrequency:   domain.PayFrequency(row.PayFrequency),
				YTD:            row.YTDTotals,
			}

			if err := r.loadProfiles(ctx, emp); err != nil {
				return err
			}
			if err := r.loadRecurring(ctx, emp); err != nil {
				return err
			}
			if err := r.loadGarnishments(ctx, emp); err != nil {
				return err
			}
			if err := r.loadBankAllocations(ctx, emp); err != nil {
				return err
			}

			employees = append(employees, emp)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return employees, nil
}

// FetchEmployee loads a single employee aggregate by ID
func (r *EmployeeRepository) FetchEmployee(ctx context.Context, tenantID, employeeID string) (*domain.Employee, error) {
	var emp *domain.Employee

	err := r.db.WithTenantRLS(ctx, tenantID, func(ctx context.Context) error {
		var row struct {
			ID             string `db:"id"`
			TenantID       string `db:"tenant_id"`
			EmployeeNumber string `db:"employee_number"`
			PayFrequency   string `db:"pay_frequency"`

			domain.YTDTotals
		}

		query := `
			SELECT id, tenant_id, employee_number, pay_frequency,
			       ytd_gross_pay, ytd_cpp, ytd_ei, ytd_vacation_pay
			FROM employees
			WHERE id = $1`
		if err := r.db.GetContext(ctx, &row, query, employeeID); err != nil {
			return database.MapPQError(err)
		}

		emp = &domain.Employee{
			ID:             row.ID,
			TenantID:       row.TenantID,
			EmployeeNumber: row.EmployeeNumber,
			PayFrequency:   domain.PayFrequency(row.PayFrequency),
			YTD:            row.YTDTotals,
		}

		if err := r.loadProfiles(ctx, emp); err != nil {
			return err
		}
		if err := r.loadRecurring(ctx, emp); err != nil {
			return err
		}
		if err := r.loadGarnishments(ctx, emp); err != nil {
			return err
		}
		return r.loadBankAllocations(ctx, emp)
	})
	if err != nil {
		return nil, err
	}

	return emp, nil
}

func (r *EmployeeRepository) loadProfiles(ctx context.Context, emp *domain.Employee) error {
	query := `
		SELECT id, employee_id, name, pay_type, annual_salary, hourly_rate,
		       weekly_hours, province, date_of_birth, federal_claim,
		       province_claim, effective_date
		FROM employee_profiles
		WHERE employee_id = $1
		ORDER BY effective_date`
	if err := r.db.SelectContext(ctx, &emp.Profiles, query, emp.ID); err != nil {
		return database.MapPQError(err)
	}
	if len(emp.Profiles) == 0 {
		return errors.DataIntegrity("employee " + emp.ID + " has no profile history")
	}
	return nil
}

func (r *EmployeeRepository) loadRecurring(ctx context.Context, emp *domain.Employee) error {
	earningsQuery := `
		SELECT code_id, amount
		FROM employee_recurring_earnings
		WHERE employee_id = $1
		ORDER BY position`
	if err := r.db.SelectContext(ctx, &emp.RecurringEarnings, earningsQuery, emp.ID); err != nil {
		return database.MapPQError(err)
	}

	deductionsQuery := `
		SELECT code_id, amount
		FROM employee_recurring_deductions
		WHERE employee_id = $1
		ORDER BY position`
	if err := r.db.SelectContext(ctx, &emp.RecurringDeductions, deductionsQuery, emp.ID); err != nil {
		return database.MapPQError(err)
	}
	return nil
}

func (r *EmployeeRepository) loadGarnishments(ctx context.Context, emp *domain.Employee) error {
	query := `
		SELECT config_id, amount
		FROM employee_garnishments
		WHERE employee_id = $1`
	if err := r.db.SelectContext(ctx, &emp.Garnishments, query, emp.ID); err != nil {
		return database.MapPQError(err)
	}
	return nil
}

func (r *EmployeeRepository) loadBankAllocations(ctx context.Context, emp *domain.Employee) error {
	query := `
		SELECT institution, transit, account, percent
		FROM employee_bank_allocations
		WHERE employee_id = $1
		ORDER BY position`
	if err := r.db.SelectContext(ctx, &emp.BankAllocations, query, emp.ID); err != nil {
		return database.MapPQError(err)
	}
	return nil
}
