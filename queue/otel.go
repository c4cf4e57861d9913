package queue

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// otelMetrics holds the OpenTelemetry instruments for queue operations.
// Created once in New when a meter is configured; a nil receiver records
// nothing, so call sites need no guards.
type otelMetrics struct {
	// enqueued counts messages admitted to a queue
	enqueued metric.Int64Counter

	// dequeued counts messages removed from a queue
	dequeued metric.Int64Counter

	// rejected counts messages refused by backpressure
	rejected metric.Int64Counter
}

// initOTelMetrics creates all queue metric instruments.
func initOTelMetrics(meter metric.Meter) (*otelMetrics, error) {
	m := &otelMetrics{}
	var err error

	m.enqueued, err = meter.Int64Counter(
		"queue.enqueued",
		metric.WithDescription("Messages admitted to a queue"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, fmt.Errorf("create enqueued counter: %w", err)
	}

	m.dequeued, err = meter.Int64Counter(
		"queue.dequeued",
		metric.WithDescription("Messages removed from a queue"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, fmt.Errorf("create dequeued counter: %w", err)
	}

	m.rejected, err = meter.Int64Counter(
		"queue.rejected",
		metric.WithDescription("Messages refused by backpressure"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, fmt.Errorf("create rejected counter: %w", err)
	}

	return m, nil
}

func (m *otelMetrics) recordEnqueued(ctx context.Context, queue string, n int64) {
	if m == nil {
		return
	}
	m.enqueued.Add(ctx, n, metric.WithAttributes(attribute.String("queue.name", queue)))
}

func (m *otelMetrics) recordDequeued(ctx context.Context, queue string, n int64) {
	if m == nil {
		return
	}
	m.dequeued.Add(ctx, n, metric.WithAttributes(attribute.String("queue.name", queue)))
}

func (m *otelMetrics) recordRejected(ctx context.Context, queue string, n int64) {
	if m == nil {
		return
	}
	m.rejected.Add(ctx, n, metric.WithAttributes(attribute.String("queue.name", queue)))
}
