package provider

import (
	"context"
	"time"

	goerrors "github.com/kbukum/meetscribe/errors"
	"github.com/kbukum/meetscribe/observability"
)

// Priced is implemented by outputs that carry the cost of the call.
type Priced interface {
	Cents() int
}

// WithMetrics records call count and latency per provider. Failed calls are
// counted under their error code, and outputs implementing Priced add to the
// cost counter.
func WithMetrics[I, O any](metrics *observability.Metrics) Middleware[I, O] {
	return func(inner RequestResponse[I, O]) RequestResponse[I, O] {
		return &metricsRR[I, O]{inner: inner, metrics: metrics}
	}
}

type metricsRR[I, O any] struct {
	inner   RequestResponse[I, O]
	metrics *observability.Metrics
}

func (m *metricsRR[I, O]) Name() string                         { return m.inner.Name() }
func (m *metricsRR[I, O]) IsAvailable(ctx context.Context) bool { return m.inner.IsAvailable(ctx) }

func (m *metricsRR[I, O]) Execute(ctx context.Context, input I) (O, error) {
	start := time.Now()
	output, err := m.inner.Execute(ctx, input)
	name := m.inner.Name()

	status := "ok"
	if err != nil {
		status = string(goerrors.ErrCodeInternal)
		if ae, ok := goerrors.AsAppError(err); ok {
			status = string(ae.Code)
		}
		m.metrics.RecordError(ctx, status, name)
	}
	m.metrics.RecordOperation(ctx, name, "execute", status, time.Since(start))

	// Failed calls can still be billed.
	if p, ok := any(output).(Priced); ok && p.Cents() > 0 {
		m.metrics.RecordCost(ctx, name, "completion", p.Cents())
	}
	return output, err
}
