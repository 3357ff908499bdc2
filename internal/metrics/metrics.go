// Package metrics exposes engine self-metrics in Prometheus exposition
// format. These describe the engine itself (tick counts, probe failures,
// series sizes), not the tracked processes; those live in the store.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry bundles the engine's Prometheus instruments behind one registry so
// tests can create isolated instances.
type Registry struct {
	registry *prometheus.Registry

	// SamplerTicks counts completed sampler ticks.
	SamplerTicks prometheus.Counter

	// SamplesCollected counts samples appended to the store, per tag.
	SamplesCollected *prometheus.CounterVec

	// ProbeFailures counts per-tag probe failures (process not found,
	// permission errors).
	ProbeFailures *prometheus.CounterVec

	// SeriesPoints tracks the retained sample count per tag.
	SeriesPoints *prometheus.GaugeVec

	// MonitoringActive is 1 while an advanced-monitoring session is running.
	MonitoringActive prometheus.Gauge

	// HTTPRequests counts API requests by path and status code.
	HTTPRequests *prometheus.CounterVec
}

// NewRegistry creates a Registry with all instruments registered.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Registry{
		registry: reg,
		SamplerTicks: factory.NewCounter(prometheus.CounterOpts{
			Name: "leakwatch_sampler_ticks_total",
			Help: "Completed sampler ticks.",
		}),
		SamplesCollected: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "leakwatch_samples_collected_total",
			Help: "Samples appended to the store.",
		}, []string{"tag"}),
		ProbeFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "leakwatch_probe_failures_total",
			Help: "Per-tag probe failures (tag skipped for the tick).",
		}, []string{"tag"}),
		SeriesPoints: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "leakwatch_series_points",
			Help: "Retained samples per tag.",
		}, []string{"tag"}),
		MonitoringActive: factory.NewGauge(prometheus.GaugeOpts{
			Name: "leakwatch_monitoring_active",
			Help: "1 while an advanced-monitoring session is active.",
		}),
		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "leakwatch_http_requests_total",
			Help: "API requests by path and status code.",
		}, []string{"path", "code"}),
	}
}

// Handler returns the exposition handler for GET /metrics.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
