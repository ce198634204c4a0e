package events

import (
	"context"

	"github.com/maplepay/maplepay-backend/internal/payroll/run"
	"github.com/maplepay/maplepay-backend/pkg/logger"
	"github.com/maplepay/maplepay-backend/pkg/messaging"
	"github.com/shopspring/decimal"
)

// Publisher publishes payroll lifecycle events. Publishing is best
// effort: a broker failure is logged and never fails the operation
// that triggered the event.
type Publisher struct {
	publisher *messaging.Publisher
	log       *logger.Logger
}

// NewPublisher creates a payroll event publisher on the payroll exchange
func NewPublisher(rmq *messaging.RabbitMQ, log *logger.Logger) (*Publisher, error) {
	p, err := messaging.NewPublisher(rmq, messaging.ExchangePayrollEvents, "payroll-service", log)
	if err != nil {
		return nil, err
	}
	return &Publisher{
		publisher: p,
		log:       log.WithComponent("payroll_events"),
	}, nil
}

// RunCalculated announces that a run finished its batch calculation
func (p *Publisher) RunCalculated(ctx context.Context, tenantID string, result *run.Result) {
	gross, net := runTotals(result)
	event := messaging.RunCalculatedEvent{
		RunID:         result.RunID,
		TenantID:      tenantID,
		PayPeriod:     result.PayPeriod,
		EmployeeCount: len(result.Paystubs),
		FailedCount:   len(result.Failed),
		WarningCount:  len(result.Warnings),
		TotalGross:    gross.StringFixed(2),
		TotalNet:      net.StringFixed(2),
	}
	if err := p.publisher.Publish(ctx, messaging.EventRunCalculated, event); err != nil {
		p.log.WithError(err).Warn().Str("run_id", result.RunID).Msg("failed to publish run calculated event")
	}
}

// RunCommitted announces that a run was finalized
func (p *Publisher) RunCommitted(ctx context.Context, tenantID string, result *run.Result, committedBy string) {
	gross, net := runTotals(result)
	event := messaging.RunCommittedEvent{
		RunID:         result.RunID,
		TenantID:      tenantID,
		PayPeriod:     result.PayPeriod,
		EmployeeCount: len(result.Paystubs),
		TotalGross:    gross.StringFixed(2),
		TotalNet:      net.StringFixed(2),
		TotalCost:     result.TotalCost().StringFixed(2),
		CommittedBy:   committedBy,
	}
	if err := p.publisher.Publish(ctx, messaging.EventRunCommitted, event); err != nil {
		p.log.WithError(err).Warn().Str("run_id", result.RunID).Msg("failed to publish run committed event")
	}
}

// RunDiscarded announces that a previewed run was abandoned
func (p *Publisher) RunDiscarded(ctx context.Context, tenantID, runID string) {
	event := map[string]string{"run_id": runID, "tenant_id": tenantID}
	if err := p.publisher.Publish(ctx, messaging.EventRunDiscarded, event); err != nil {
		p.log.WithError(err).Warn().Str("run_id", runID).Msg("failed to publish run discarded event")
	}
}

// SettingsSaved announces a new company settings version
func (p *Publisher) SettingsSaved(ctx context.Context, tenantID string, version int) {
	event := messaging.SettingsSavedEvent{TenantID: tenantID, Version: version}
	if err := p.publisher.Publish(ctx, messaging.EventSettingsSaved, event); err != nil {
		p.log.WithError(err).Warn().Str("tenant_id", tenantID).Msg("failed to publish settings saved event")
	}
}

func runTotals(result *run.Result) (gross, net decimal.Decimal) {
	for _, stub := range result.Paystubs {
		gross = gross.Add(stub.GrossPay)
		net = net.Add(stub.NetPay)
	}
	return gross, net
}
