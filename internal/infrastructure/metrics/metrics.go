package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "nodeline"

// Metrics holds the pool and messaging collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	nodesTotal      prometheus.Gauge
	nodesOccupied   prometheus.Gauge
	acquires        *prometheus.CounterVec
	releases        *prometheus.CounterVec
	growths         prometheus.Counter
	reaped          prometheus.Counter
	sweepDuration   prometheus.Histogram
	messages        *prometheus.CounterVec
	auditFailures   prometheus.Counter
	httpRequests    *prometheus.CounterVec
	httpDuration    *prometheus.HistogramVec
	liveSubscribers prometheus.Gauge
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		nodesTotal: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "nodes_total",
			Help:      "Number of nodes in the pool",
		}),
		nodesOccupied: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "nodes_occupied",
			Help:      "Number of nodes with an occupant",
		}),
		acquires: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "acquires_total",
			Help:      "Node acquisitions by outcome",
		}, []string{"outcome"}),
		releases: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "releases_total",
			Help:      "Node releases by action",
		}, []string{"action"}),
		growths: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pool_growths_total",
			Help:      "Nodes minted because the pool was exhausted",
		}),
		reaped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reaped_total",
			Help:      "Nodes reclaimed by the idle reaper",
		}),
		sweepDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "sweep_duration_seconds",
			Help:      "Duration of reaper sweeps",
			Buckets:   []float64{0.0005, 0.001, 0.01, 0.1, 0.5, 1},
		}),
		messages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_total",
			Help:      "Messages accepted by kind",
		}, []string{"kind"}),
		auditFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audit_failures_total",
			Help:      "Activity events that could not be recorded",
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "path", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{0.001, 0.01, 0.1, 0.5, 1, 2, 5, 10},
		}, []string{"method", "path"}),
		liveSubscribers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "live_subscribers",
			Help:      "Open websocket subscriptions",
		}),
	}

	reg.MustRegister(
		m.nodesTotal,
		m.nodesOccupied,
		m.acquires,
		m.releases,
		m.growths,
		m.reaped,
		m.sweepDuration,
		m.messages,
		m.auditFailures,
		m.httpRequests,
		m.httpDuration,
		m.liveSubscribers,
	)

	return m
}

func (m *Metrics) ObservePool(total, occupied int) {
	if m == nil {
		return
	}
	m.nodesTotal.Set(float64(total))
	m.nodesOccupied.Set(float64(occupied))
}

func (m *Metrics) Acquired(outcome string) {
	if m == nil {
		return
	}
	m.acquires.WithLabelValues(outcome).Inc()
}

func (m *Metrics) Released(action string) {
	if m == nil {
		return
	}
	m.releases.WithLabelValues(action).Inc()
}

func (m *Metrics) Grew() {
	if m == nil {
		return
	}
	m.growths.Inc()
}

func (m *Metrics) Swept(reclaimed int, seconds float64) {
	if m == nil {
		return
	}
	m.reaped.Add(float64(reclaimed))
	m.sweepDuration.Observe(seconds)
}

func (m *Metrics) MessageSent(kind string) {
	if m == nil {
		return
	}
	m.messages.WithLabelValues(kind).Inc()
}

func (m *Metrics) AuditFailed() {
	if m == nil {
		return
	}
	m.auditFailures.Inc()
}

func (m *Metrics) ObserveRequest(method, path, status string, seconds float64) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, path, status).Inc()
	m.httpDuration.WithLabelValues(method, path).Observe(seconds)
}

func (m *Metrics) SubscriberDelta(delta int) {
	if m == nil {
		return
	}
	m.liveSubscribers.Add(float64(delta))
}
