package database

import (
	"strings"

	"github.com/lib/pq"
	"github.com/maplepay/maplepay-backend/pkg/errors"
)

// MapPQError converts a PostgreSQL error to an AppError with meaningful messages.
// Returns nil if the error is not a pq.Error.
func MapPQError(err error) *errors.AppError {
	pqErr, ok := err.(*pq.Error)
	if !ok {
		return nil
	}

	switch pqErr.Code {
	// Check constraint violation (23514)
	case "23514":
		return mapCheckConstraint(pqErr)

	// Unique constraint violation (23505)
	case "23505":
		return errors.Conflict(formatConstraintMessage(pqErr))

	// Foreign key violation (23503)
	case "23503":
		return errors.BadRequest("referenced record does not exist")

	// Not null violation (23502)
	case "23502":
		col := pqErr.Column
		if col == "" {
			col = "required field"
		}
		return errors.Validation(map[string]string{
			col: "must not be empty",
		})

	default:
		return nil
	}
}

// mapCheckConstraint maps specific CHECK constraint names to user-friendly messages.
func mapCheckConstraint(pqErr *pq.Error) *errors.AppError {
	constraint := pqErr.Constraint

	switch {
	case strings.Contains(constraint, "pay_frequency_valid"):
		return errors.Validation(map[string]string{
			"pay_frequency": "must be one of: weekly, bi_weekly, semi_monthly, monthly",
		})

	case strings.Contains(constraint, "pay_type_valid"):
		return errors.Validation(map[string]string{
			"pay_type": "must be one of: salaried, hourly",
		})

	case strings.Contains(constraint, "allocation_percent"):
		return errors.Validation(map[string]string{
			"bank_allocations": "allocation percentages must sum to at most 100",
		})

	case strings.Contains(constraint, "amount_non_negative"):
		return errors.Validation(map[string]string{
			"amount": "must not be negative",
		})

	default:
		return errors.BadRequest("data validation failed: " + constraint)
	}
}

// formatConstraintMessage creates a user-friendly message for unique constraint violations.
func formatConstraintMessage(pqErr *pq.Error) string {
	constraint := pqErr.Constraint

	switch {
	case strings.Contains(constraint, "employee_number"):
		return "an employee with this employee number already exists"
	case strings.Contains(constraint, "settings_version"):
		return "company settings were updated concurrently, reload and retry"
	case strings.Contains(constraint, "pay_period"):
		return "a committed run already exists for this pay period"
	default:
		return "a record with these values already exists"
	}
}
