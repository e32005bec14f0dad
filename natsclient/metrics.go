package natsclient

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/almightycouch/twittex/metric"
)

// clientMetrics tracks connection and publish activity. All methods are
// nil-safe so the client works without a registry.
type clientMetrics struct {
	published      prometheus.Counter
	publishedBytes prometheus.Counter
	failures       prometheus.Counter
	status         prometheus.Gauge
}

func newClientMetrics(registry *metric.MetricsRegistry) *clientMetrics {
	if registry == nil {
		return nil
	}

	m := &clientMetrics{
		published: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metric.Namespace,
			Subsystem: "nats",
			Name:      "messages_published_total",
			Help:      "Total number of messages published to NATS.",
		}),
		publishedBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metric.Namespace,
			Subsystem: "nats",
			Name:      "published_bytes_total",
			Help:      "Total bytes published to NATS.",
		}),
		failures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metric.Namespace,
			Subsystem: "nats",
			Name:      "connection_failures_total",
			Help:      "Total number of connection or publish failures.",
		}),
		status: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metric.Namespace,
			Subsystem: "nats",
			Name:      "connection_status",
			Help:      "Current connection status (0=disconnected, 1=connecting, 2=connected, 3=reconnecting).",
		}),
	}

	_ = registry.RegisterCounter("nats", "messages_published_total", m.published)
	_ = registry.RegisterCounter("nats", "published_bytes_total", m.publishedBytes)
	_ = registry.RegisterCounter("nats", "connection_failures_total", m.failures)
	_ = registry.RegisterGauge("nats", "connection_status", m.status)

	return m
}

func (m *clientMetrics) incPublished(bytes int) {
	if m == nil {
		return
	}
	m.published.Inc()
	m.publishedBytes.Add(float64(bytes))
}

func (m *clientMetrics) incFailures() {
	if m == nil {
		return
	}
	m.failures.Inc()
}

func (m *clientMetrics) setStatus(status ConnectionStatus) {
	if m == nil {
		return
	}
	m.status.Set(float64(status))
}
