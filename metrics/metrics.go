// Package metrics exposes Prometheus collectors for node processing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "nodeflow"

// Processing outcomes used as the status label.
const (
	StatusSuccess = "success"
	StatusError   = "error"
	StatusSkipped = "skipped"
	StatusBusy    = "busy"
)

// Directive outcomes used as the result label.
const (
	DirectiveAccepted = "accepted"
	DirectiveFailed   = "failed"
)

// Metrics groups the engine collectors. A nil *Metrics is a no-op.
type Metrics struct {
	runs        *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	inFlight    prometheus.Gauge
	directives  *prometheus.CounterVec
	aggregation *prometheus.CounterVec
	paused      prometheus.Counter
}

// New creates the collectors and registers them with registerer; a nil
// registerer leaves them unregistered.
func New(registerer prometheus.Registerer) *Metrics {
	factory := promauto.With(registerer)
	return &Metrics{
		runs: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "node",
			Name:      "runs_total",
			Help:      "Node processing runs by outcome",
		}, []string{"status"}),
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "node",
			Name:      "processing_seconds",
			Help:      "Node processing time by plugin",
			Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}, []string{"plugin", "status"}),
		inFlight: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "node",
			Name:      "in_flight",
			Help:      "Nodes currently processing",
		}),
		directives: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "directive",
			Name:      "applied_total",
			Help:      "Directives handled by result",
		}, []string{"result"}),
		aggregation: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "aggregation",
			Name:      "runs_total",
			Help:      "Aggregation runs by strategy",
		}, []string{"strategy"}),
		paused: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "execution",
			Name:      "paused_total",
			Help:      "Propagations suppressed by the execute flag",
		}),
	}
}

// Started marks a run as in flight.
func (m *Metrics) Started() {
	if m == nil {
		return
	}
	m.inFlight.Inc()
}

// Finished records a completed run started with Started.
func (m *Metrics) Finished(plugin, status string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.inFlight.Dec()
	m.runs.WithLabelValues(status).Inc()
	m.duration.WithLabelValues(plugin, status).Observe(elapsed.Seconds())
}

// Skipped records a run that did not start.
func (m *Metrics) Skipped(status string) {
	if m == nil {
		return
	}
	m.runs.WithLabelValues(status).Inc()
}

// Aggregated records an aggregation run.
func (m *Metrics) Aggregated(strategy string) {
	if m == nil {
		return
	}
	m.aggregation.WithLabelValues(strategy).Inc()
}

// Directive records count directives with the given outcome.
func (m *Metrics) Directive(result string, count int) {
	if m == nil || count <= 0 {
		return
	}
	m.directives.WithLabelValues(result).Add(float64(count))
}

// Paused records a suppressed propagation.
func (m *Metrics) Paused() {
	if m == nil {
		return
	}
	m.paused.Inc()
}
