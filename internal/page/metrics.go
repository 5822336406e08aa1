package page

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics counts page operations by op and outcome. One instance is shared by every page.
type Metrics struct {
	operations metric.Int64Counter
}

// NewMetrics creates carddesk_page_operations_total on meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	operations, err := meter.Int64Counter(
		"carddesk_page_operations_total",
		metric.WithDescription("Client list page operations by outcome"),
		metric.WithUnit("{operation}"),
	)
	if err != nil {
		return nil, err
	}
	return &Metrics{operations: operations}, nil
}

func (m *Metrics) record(ctx context.Context, op string, outcome Outcome) {
	m.operations.Add(ctx, 1, metric.WithAttributes(
		attribute.String("op", op),
		attribute.String("outcome", string(outcome)),
	))
}
