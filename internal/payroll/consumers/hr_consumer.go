package consumers

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/maplepay/maplepay-backend/pkg/database"
	"github.com/maplepay/maplepay-backend/pkg/logger"
	"github.com/maplepay/maplepay-backend/pkg/messaging"
)

// HRConsumer keeps the local employee snapshot current from HR service
// events. Profile changes arrive as new effective-dated profile rows,
// never as updates to history; terminations deactivate the employee so
// future runs skip them.
type HRConsumer struct {
	consumer *messaging.Consumer
	db       *database.DB
	log      *logger.Logger
}

// NewHRConsumer creates an HR event consumer bound to the HR exchange
func NewHRConsumer(rmq *messaging.RabbitMQ, db *database.DB, log *logger.Logger) (*HRConsumer, error) {
	consumer, err := messaging.NewConsumer(rmq, "payroll-service.hr-events", log)
	if err != nil {
		return nil, err
	}
	if err := consumer.Subscribe(messaging.ExchangeHREvents, "hr.employee.*"); err != nil {
		return nil, err
	}

	c := &HRConsumer{
		consumer: consumer,
		db:       db,
		log:      log.WithComponent("hr_consumer"),
	}
	consumer.RegisterHandler(messaging.EventHREmployeeUpdated, c.handleEmployeeUpdated)
	consumer.RegisterHandler(messaging.EventHREmployeeTerminated, c.handleEmployeeTerminated)
	return c, nil
}

// Start begins consuming until the context is cancelled
func (c *HRConsumer) Start(ctx context.Context) error {
	return c.consumer.Start(ctx)
}

func (c *HRConsumer) handleEmployeeUpdated(ctx context.Context, event *messaging.Event) error {
	var payload messaging.HREmployeeUpdatedEvent
	if err := event.UnmarshalData(&payload); err != nil {
		return err
	}

	effectiveDate, err := time.Parse("2006-01-02", payload.EffectiveDate)
	if err != nil {
		c.log.Warn().
			Str("employee_id", payload.EmployeeID).
			Str("effective_date", payload.EffectiveDate).
			Msg("dropping employee update with unparseable effective date")
		return nil
	}

	return c.db.WithTenantRLS(ctx, payload.TenantID, func(ctx context.Context) error {
		// The new profile copies the latest one and overlays the
		// changed fields, preserving everything HR did not send.
		insert := `
			INSERT INTO employee_profiles
				(id, employee_id, name, pay_type, annual_salary, hourly_rate,
				 weekly_hours, province, date_of_birth, federal_claim,
				 province_claim, effective_date)
			SELECT $1, employee_id, $2, pay_type,
			       COALESCE($3::numeric, annual_salary),
			       COALESCE($4::numeric, hourly_rate),
			       COALESCE($5::numeric, weekly_hours),
			       COALESCE(NULLIF($6, ''), province::text)::text,
			       date_of_birth, federal_claim, province_claim, $7
			FROM employee_profiles
			WHERE employee_id = $8
			ORDER BY effective_date DESC
			LIMIT 1`
		_, err := c.db.ExecContext(ctx, insert,
			uuid.NewString(), payload.Name,
			payload.AnnualSalary, payload.HourlyRate, payload.WeeklyHours,
			payload.Province, effectiveDate, payload.EmployeeID)
		if err != nil {
			return database.MapPQError(err)
		}

		c.log.Info().
			Str("employee_id", payload.EmployeeID).
			Str("effective_date", payload.EffectiveDate).
			Msg("applied employee profile update")
		return nil
	})
}

func (c *HRConsumer) handleEmployeeTerminated(ctx context.Context, event *messaging.Event) error {
	var payload messaging.HREmployeeTerminatedEvent
	if err := event.UnmarshalData(&payload); err != nil {
		return err
	}

	return c.db.WithTenantRLS(ctx, payload.TenantID, func(ctx context.Context) error {
		update := `
			UPDATE employees
			SET is_active = false, terminated_at = $1
			WHERE id = $2`
		if _, err := c.db.ExecContext(ctx, update, payload.TerminationDate, payload.EmployeeID); err != nil {
			return database.MapPQError(err)
		}

		c.log.Info().
			Str("employee_id", payload.EmployeeID).
			Msg("deactivated terminated employee")
		return nil
	})
}
