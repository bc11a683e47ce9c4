package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Meter returns the module meter from the global provider.
func Meter() metric.Meter {
	return otel.Meter(instrumentationName)
}

// Metrics holds the instruments recorded by the pipeline.
type Metrics struct {
	transcriptions metric.Int64Counter
	stageDuration  metric.Float64Histogram
	operations     metric.Int64Counter
	opDuration     metric.Float64Histogram
	costCents      metric.Int64Counter
	errors         metric.Int64Counter
}

// NewMetrics creates metric instruments on the given meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	var m Metrics
	var err error
	if m.transcriptions, err = meter.Int64Counter("transcription.total",
		metric.WithDescription("Transcriptions by backend and outcome")); err != nil {
		return nil, fmt.Errorf("creating transcription.total: %w", err)
	}
	if m.stageDuration, err = meter.Float64Histogram("transcription.stage.duration",
		metric.WithDescription("Pipeline stage duration"), metric.WithUnit("s")); err != nil {
		return nil, fmt.Errorf("creating transcription.stage.duration: %w", err)
	}
	if m.operations, err = meter.Int64Counter("provider.operation.total",
		metric.WithDescription("Provider operations by outcome")); err != nil {
		return nil, fmt.Errorf("creating provider.operation.total: %w", err)
	}
	if m.opDuration, err = meter.Float64Histogram("provider.operation.duration",
		metric.WithDescription("Provider operation duration"), metric.WithUnit("s")); err != nil {
		return nil, fmt.Errorf("creating provider.operation.duration: %w", err)
	}
	if m.costCents, err = meter.Int64Counter("provider.cost",
		metric.WithDescription("Spend on external APIs"), metric.WithUnit("{cent}")); err != nil {
		return nil, fmt.Errorf("creating provider.cost: %w", err)
	}
	if m.errors, err = meter.Int64Counter("error.total",
		metric.WithDescription("Errors by type and component")); err != nil {
		return nil, fmt.Errorf("creating error.total: %w", err)
	}
	return &m, nil
}

// RecordTranscription records a finished transcription.
func (m *Metrics) RecordTranscription(ctx context.Context, backend, status string) {
	if m == nil {
		return
	}
	m.transcriptions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("backend", backend),
		attribute.String("status", status),
	))
}

// RecordStage records the duration of one pipeline stage.
func (m *Metrics) RecordStage(ctx context.Context, stage string, d time.Duration) {
	if m == nil {
		return
	}
	m.stageDuration.Record(ctx, d.Seconds(), metric.WithAttributes(attribute.String("stage", stage)))
}

// RecordOperation records a provider operation.
func (m *Metrics) RecordOperation(ctx context.Context, provider, operation, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.operations.Add(ctx, 1, metric.WithAttributes(
		attribute.String("provider", provider),
		attribute.String("operation", operation),
		attribute.String("status", status),
	))
	m.opDuration.Record(ctx, d.Seconds(), metric.WithAttributes(
		attribute.String("provider", provider),
		attribute.String("operation", operation),
	))
}

// RecordCost adds spend attributed to a provider and call type.
func (m *Metrics) RecordCost(ctx context.Context, provider, callType string, cents int) {
	if m == nil || cents <= 0 {
		return
	}
	m.costCents.Add(ctx, int64(cents), metric.WithAttributes(
		attribute.String("provider", provider),
		attribute.String("call_type", callType),
	))
}

// RecordError records an error by type and component.
func (m *Metrics) RecordError(ctx context.Context, errType, component string) {
	if m == nil {
		return
	}
	m.errors.Add(ctx, 1, metric.WithAttributes(
		attribute.String("type", errType),
		attribute.String("component", component),
	))
}
