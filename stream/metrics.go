package stream

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/almightycouch/twittex/metric"
)

// Metrics holds Prometheus metrics for a stream consumer. Methods are
// nil-safe so a consumer without a registry skips instrumentation.
type Metrics struct {
	messagesEmitted prometheus.Counter
	keepAlives      prometheus.Counter
	chunksReceived  prometheus.Counter
	bytesReceived   prometheus.Counter
	pullsIssued     prometheus.Counter
	pendingDemand   prometheus.Gauge
	terminations    *prometheus.CounterVec
}

// newMetrics creates and registers consumer metrics
func newMetrics(registry *metric.MetricsRegistry, name string) *Metrics {
	if registry == nil {
		return nil
	}

	labels := prometheus.Labels{"consumer": name}

	metrics := &Metrics{
		messagesEmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   metric.Namespace,
			Subsystem:   "stream",
			Name:        "messages_emitted_total",
			Help:        "Total messages emitted to the subscriber",
			ConstLabels: labels,
		}),

		keepAlives: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   metric.Namespace,
			Subsystem:   "stream",
			Name:        "keep_alives_total",
			Help:        "Total zero-length keep-alive frames received",
			ConstLabels: labels,
		}),

		chunksReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   metric.Namespace,
			Subsystem:   "stream",
			Name:        "chunks_received_total",
			Help:        "Total raw chunks received from the transport",
			ConstLabels: labels,
		}),

		bytesReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   metric.Namespace,
			Subsystem:   "stream",
			Name:        "bytes_received_total",
			Help:        "Total raw bytes received from the transport",
			ConstLabels: labels,
		}),

		pullsIssued: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   metric.Namespace,
			Subsystem:   "stream",
			Name:        "pulls_issued_total",
			Help:        "Total pull instructions issued to the transport",
			ConstLabels: labels,
		}),

		pendingDemand: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   metric.Namespace,
			Subsystem:   "stream",
			Name:        "pending_demand",
			Help:        "Messages requested by the subscriber but not yet delivered",
			ConstLabels: labels,
		}),

		terminations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   metric.Namespace,
			Subsystem:   "stream",
			Name:        "terminations_total",
			Help:        "Stream terminations by reason",
			ConstLabels: labels,
		}, []string{"reason"}),
	}

	registry.RegisterCounter(name, "messages_emitted", metrics.messagesEmitted)
	registry.RegisterCounter(name, "keep_alives", metrics.keepAlives)
	registry.RegisterCounter(name, "chunks_received", metrics.chunksReceived)
	registry.RegisterCounter(name, "bytes_received", metrics.bytesReceived)
	registry.RegisterCounter(name, "pulls_issued", metrics.pullsIssued)
	registry.RegisterGauge(name, "pending_demand", metrics.pendingDemand)
	registry.RegisterCounterVec(name, "terminations", metrics.terminations)

	return metrics
}

func (m *Metrics) incChunk(bytes int) {
	if m != nil {
		m.chunksReceived.Inc()
		m.bytesReceived.Add(float64(bytes))
	}
}

func (m *Metrics) addKeepAlives(n int) {
	if m != nil && n > 0 {
		m.keepAlives.Add(float64(n))
	}
}

func (m *Metrics) incEmitted() {
	if m != nil {
		m.messagesEmitted.Inc()
	}
}

func (m *Metrics) setPendingDemand(n int) {
	if m != nil {
		m.pendingDemand.Set(float64(n))
	}
}

func (m *Metrics) incPull() {
	if m != nil {
		m.pullsIssued.Inc()
	}
}

func (m *Metrics) incTermination(reason string) {
	if m != nil {
		m.terminations.WithLabelValues(reason).Inc()
	}
}
