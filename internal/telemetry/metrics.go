package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics collects pipeline counters and durations.
type Metrics struct {
	registry *prometheus.Registry

	RunsTotal          *prometheus.CounterVec
	ProductsListed     prometheus.Counter
	RegistrationsTotal *prometheus.CounterVec
	RunDuration        prometheus.Histogram
}

// NewMetrics creates and registers all pipeline collectors.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		RunsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sentinel_stac_runs_total",
			Help: "Pipeline runs by outcome.",
		}, []string{"status"}),
		ProductsListed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sentinel_stac_products_listed_total",
			Help: "Product ids emitted by the lister.",
		}),
		RegistrationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sentinel_stac_registrations_total",
			Help: "Per-product registration attempts by outcome.",
		}, []string{"status"}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "sentinel_stac_run_duration_seconds",
			Help:    "Wall-clock duration of a full pipeline run.",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800},
		}),
	}
	reg.MustRegister(m.RunsTotal, m.ProductsListed, m.RegistrationsTotal, m.RunDuration)
	return m
}

// Handler returns an HTTP handler serving the metrics in Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
