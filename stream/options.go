package stream

import (
	"log/slog"

	"github.com/almightycouch/twittex/metric"
)

// Option is a functional option for configuring the Consumer
type Option func(*Consumer)

// WithLogger sets a custom logger for the consumer
func WithLogger(logger *slog.Logger) Option {
	return func(c *Consumer) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithMetrics registers consumer metrics under name on the given
// registry. A nil registry disables metrics.
func WithMetrics(registry *metric.MetricsRegistry, name string) Option {
	return func(c *Consumer) {
		c.metrics = newMetrics(registry, name)
	}
}
