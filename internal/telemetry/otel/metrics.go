package otel

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"authledger/internal/telemetry"
)

// MetricsEmitter counts auth events by type on an OTel meter.
type MetricsEmitter struct {
	events metric.Int64Counter
}

// NewMetricsEmitter registers the authledger.auth.events counter on provider.
func NewMetricsEmitter(provider metric.MeterProvider) (*MetricsEmitter, error) {
	meter := provider.Meter(instrumentationName)
	events, err := meter.Int64Counter("authledger.auth.events",
		metric.WithDescription("Authentication events by type"),
		metric.WithUnit("{event}"))
	if err != nil {
		return nil, err
	}
	return &MetricsEmitter{events: events}, nil
}

func (m *MetricsEmitter) Emit(ctx context.Context, event *telemetry.Event) error {
	if event == nil {
		return nil
	}
	m.events.Add(ctx, 1, metric.WithAttributes(
		attribute.String("event_type", event.Type),
		attribute.String("source", event.Source),
	))
	return nil
}
