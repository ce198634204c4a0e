package messaging

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event types
const (
	// Payroll run lifecycle events
	EventRunCalculated = "payroll.run.calculated"
	EventRunCommitted  = "payroll.run.committed"
	EventRunDiscarded  = "payroll.run.discarded"

	// Settings events
	EventSettingsSaved = "payroll.settings.saved"

	// HR events consumed from the HR service to keep the employee
	// snapshot current
	EventHREmployeeUpdated    = "hr.employee.updated"
	EventHREmployeeTerminated = "hr.employee.terminated"
)

// Exchange names
const (
	ExchangePayrollEvents = "payroll.events"
	ExchangeHREvents      = "hr.events"
)

// Event is the base event structure
type Event struct {
	ID            string          `json:"id"`
	Type          string          `json:"type"`
	Source        string          `json:"source"`
	Timestamp     time.Time       `json:"timestamp"`
	CorrelationID string          `json:"correlation_id"`
	Data          json.RawMessage `json:"data"`
}

// NewEvent creates a new event with the given type and data
func NewEvent(eventType, source, correlationID string, data interface{}) (*Event, error) {
	dataBytes, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	return &Event{
		ID:            GenerateEventID(),
		Type:          eventType,
		Source:        source,
		Timestamp:     time.Now().UTC(),
		CorrelationID: correlationID,
		Data:          dataBytes,
	}, nil
}

// UnmarshalData unmarshals the event data into the provided struct
func (e *Event) UnmarshalData(v interface{}) error {
	return json.Unmarshal(e.Data, v)
}

// GenerateEventID generates a unique event ID
func GenerateEventID() string {
	return uuid.New().String()
}

// Payroll events

// RunCalculatedEvent is published when a payroll run finishes calculating
type RunCalculatedEvent struct {
	RunID         string `json:"run_id"`
	TenantID      string `json:"tenant_id"`
	PayPeriod     string `json:"pay_period"`
	EmployeeCount int    `json:"employee_count"`
	FailedCount   int    `json:"failed_count"`
	WarningCount  int    `json:"warning_count"`
	TotalGross    string `json:"total_gross"`
	TotalNet      string `json:"total_net"`
}

// RunCommittedEvent is published when a payroll run is committed
type RunCommittedEvent struct {
	RunID         string `json:"run_id"`
	TenantID      string `json:"tenant_id"`
	PayPeriod     string `json:"pay_period"`
	EmployeeCount int    `json:"employee_count"`
	TotalGross    string `json:"total_gross"`
	TotalNet      string `json:"total_net"`
	TotalCost     string `json:"total_cost"`
	CommittedBy   string `json:"committed_by,omitempty"`
}

// SettingsSavedEvent is published when company settings are saved
type SettingsSavedEvent struct {
	TenantID string `json:"tenant_id"`
	Version  int    `json:"version"`
}

// HR events (consumed)

// HREmployeeUpdatedEvent carries an employee profile change from the HR service
type HREmployeeUpdatedEvent struct {
	EmployeeID    string  `json:"employee_id"`
	TenantID      string  `json:"tenant_id"`
	Name          string  `json:"name"`
	Province      string  `json:"province,omitempty"`
	AnnualSalary  *string `json:"annual_salary,omitempty"`
	HourlyRate    *string `json:"hourly_rate,omitempty"`
	WeeklyHours   *string `json:"weekly_hours,omitempty"`
	EffectiveDate string  `json:"effective_date"` // YYYY-MM-DD
}

// HREmployeeTerminatedEvent carries a termination from the HR service
type HREmployeeTerminatedEvent struct {
	EmployeeID      string `json:"employee_id"`
	TenantID        string `json:"tenant_id"`
	TerminationDate string `json:"termination_date"` // YYYY-MM-DD
}
