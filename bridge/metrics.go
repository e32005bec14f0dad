package bridge

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/almightycouch/twittex/metric"
)

// bridgeMetrics tracks republishing activity. Methods are nil-safe.
type bridgeMetrics struct {
	received  prometheus.Counter
	published prometheus.Counter
	errors    prometheus.Counter
	demand    prometheus.Gauge
}

func newBridgeMetrics(registry *metric.MetricsRegistry, name string) *bridgeMetrics {
	if registry == nil {
		return nil
	}

	labels := prometheus.Labels{"bridge": name}
	m := &bridgeMetrics{
		received: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   metric.Namespace,
			Subsystem:   "bridge",
			Name:        "messages_received_total",
			Help:        "Messages received from the firehose stream.",
			ConstLabels: labels,
		}),
		published: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   metric.Namespace,
			Subsystem:   "bridge",
			Name:        "messages_published_total",
			Help:        "Messages republished to NATS.",
			ConstLabels: labels,
		}),
		errors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   metric.Namespace,
			Subsystem:   "bridge",
			Name:        "publish_errors_total",
			Help:        "Failed publish attempts.",
			ConstLabels: labels,
		}),
		demand: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   metric.Namespace,
			Subsystem:   "bridge",
			Name:        "demand_window",
			Help:        "Configured demand window on the stream consumer.",
			ConstLabels: labels,
		}),
	}

	_ = registry.RegisterCounter(name, "messages_received_total", m.received)
	_ = registry.RegisterCounter(name, "messages_published_total", m.published)
	_ = registry.RegisterCounter(name, "publish_errors_total", m.errors)
	_ = registry.RegisterGauge(name, "demand_window", m.demand)

	return m
}

func (m *bridgeMetrics) incReceived() {
	if m != nil {
		m.received.Inc()
	}
}

func (m *bridgeMetrics) incPublished() {
	if m != nil {
		m.published.Inc()
	}
}

func (m *bridgeMetrics) incErrors() {
	if m != nil {
		m.errors.Inc()
	}
}

func (m *bridgeMetrics) setDemand(n int) {
	if m != nil {
		m.demand.Set(float64(n))
	}
}
