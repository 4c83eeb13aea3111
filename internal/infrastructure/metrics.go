package infrastructure

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus instruments for the dashboard service.
type Metrics struct {
	UploadsTotal       prometheus.Counter
	LoadFailuresTotal  *prometheus.CounterVec
	LoansLoaded        prometheus.Gauge
	MetricComputations prometheus.Counter

	registry *prometheus.Registry
}

// NewMetrics creates and registers the dashboard metrics on a fresh registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		UploadsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "loanlens",
			Name:      "uploads_total",
			Help:      "Number of workbook uploads accepted.",
		}),
		LoadFailuresTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "loanlens",
			Name:      "load_failures_total",
			Help:      "Number of workbook loads rejected, by failure kind.",
		}, []string{"kind"}),
		LoansLoaded: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "loanlens",
			Name:      "loans_loaded",
			Help:      "Row count of the currently loaded loan table.",
		}),
		MetricComputations: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "loanlens",
			Name:      "metric_computations_total",
			Help:      "Number of per-loan metric computations served.",
		}),
		registry: registry,
	}
}

// Handler returns the HTTP handler serving the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
