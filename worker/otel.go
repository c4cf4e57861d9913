package worker

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// otelMetrics holds the OpenTelemetry instruments for worker activity.
// Created once in New when a meter is configured; a nil receiver records
// nothing, so call sites need no guards.
type otelMetrics struct {
	// processed counts items handled successfully
	processed metric.Int64Counter

	// retried counts repeated handler attempts beyond the first
	retried metric.Int64Counter

	// deadLettered counts items escalated after their retry budget
	deadLettered metric.Int64Counter
}

// initOTelMetrics creates all worker metric instruments.
func initOTelMetrics(meter metric.Meter) (*otelMetrics, error) {
	m := &otelMetrics{}
	var err error

	m.processed, err = meter.Int64Counter(
		"worker.processed",
		metric.WithDescription("Items handled successfully"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, fmt.Errorf("create processed counter: %w", err)
	}

	m.retried, err = meter.Int64Counter(
		"worker.retried",
		metric.WithDescription("Handler attempts beyond the first"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, fmt.Errorf("create retried counter: %w", err)
	}

	m.deadLettered, err = meter.Int64Counter(
		"worker.dead_lettered",
		metric.WithDescription("Items escalated to the dead-letter sink"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, fmt.Errorf("create dead_lettered counter: %w", err)
	}

	return m, nil
}

func (m *otelMetrics) recordProcessed(ctx context.Context, queue string, n int64) {
	if m == nil {
		return
	}
	m.processed.Add(ctx, n, metric.WithAttributes(attribute.String("queue.name", queue)))
}

func (m *otelMetrics) recordRetries(ctx context.Context, queue string, n int64) {
	if m == nil {
		return
	}
	m.retried.Add(ctx, n, metric.WithAttributes(attribute.String("queue.name", queue)))
}

func (m *otelMetrics) recordDeadLettered(ctx context.Context, queue string, n int64) {
	if m == nil {
		return
	}
	m.deadLettered.Add(ctx, n, metric.WithAttributes(attribute.String("queue.name", queue)))
}
