package coordination

import (
	"log/slog"

	"go.opentelemetry.io/otel/metric"
)

// Option configures a Core.
type Option func(*coreConfig)

// coreConfig holds construction-time settings for a Core instance.
type coreConfig struct {
	logger *slog.Logger
	meter  metric.Meter
}

// WithLogger sets a custom logger for the core and every primitive it
// creates. If not provided, a JSON logger writing to stdout is used.
func WithLogger(logger *slog.Logger) Option {
	return func(c *coreConfig) {
		c.logger = logger
	}
}

// WithMeter sets an OpenTelemetry meter for queue and worker metrics.
// If not provided, metrics are disabled.
func WithMeter(meter metric.Meter) Option {
	return func(c *coreConfig) {
		c.meter = meter
	}
}
