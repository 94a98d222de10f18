package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics collects the planning pipeline's Prometheus metrics.
type Metrics struct {
	registry *prometheus.Registry

	SubmitsTotal    *prometheus.CounterVec
	CacheHitsTotal  *prometheus.CounterVec
	TasksTotal      *prometheus.CounterVec
	LocksTotal      *prometheus.CounterVec
	OptimizeSeconds prometheus.Histogram
	InFlightTasks   prometheus.Gauge
}

// NewMetrics creates and registers the metric set under the given
// namespace.
func NewMetrics(namespace string) *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		SubmitsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "submits_total",
			Help:      "Plan submissions by outcome (pending, cached, rejected).",
		}, []string{"outcome"}),
		CacheHitsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_lookups_total",
			Help:      "Fingerprint cache lookups by result (result, lock, miss, malformed).",
		}, []string{"result"}),
		TasksTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tasks_total",
			Help:      "Background tasks by terminal status (success, failed).",
		}, []string{"status"}),
		LocksTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "locks_total",
			Help:      "Lock attempts by result (acquired, lost, conflict).",
		}, []string{"result"}),
		OptimizeSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "optimize_duration_seconds",
			Help:      "Wall time of optimizer runs.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
		}),
		InFlightTasks: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "in_flight_tasks",
			Help:      "Background planning tasks currently running.",
		}),
	}

	registry.MustRegister(
		m.SubmitsTotal,
		m.CacheHitsTotal,
		m.TasksTotal,
		m.LocksTotal,
		m.OptimizeSeconds,
		m.InFlightTasks,
	)

	return m
}

// Handler returns the HTTP handler serving the registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
