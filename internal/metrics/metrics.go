package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the service counters on a private registry
type Metrics struct {
	registry *prometheus.Registry

	ReadingsIngested *prometheus.CounterVec
	FilterDecisions  *prometheus.CounterVec
	DistanceReports  prometheus.Counter
	StalePairs       prometheus.Counter
	IngestFailures   *prometheus.CounterVec
}

// New registers all collectors on a fresh registry
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		ReadingsIngested: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "proximity",
			Name:      "records_ingested_total",
			Help:      "Records persisted by the ingest handler, by shape.",
		}, []string{"shape"}),
		FilterDecisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "proximity",
			Name:      "filter_decisions_total",
			Help:      "Windowed filter decisions, by outcome.",
		}, []string{"outcome"}),
		DistanceReports: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "proximity",
			Name:      "distance_reports_upserted_total",
			Help:      "Distance reports written.",
		}),
		StalePairs: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "proximity",
			Name:      "stale_pairs_total",
			Help:      "Machine/tracked pairs skipped because the tracked position was stale.",
		}),
		IngestFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "proximity",
			Name:      "ingest_failures_total",
			Help:      "Rejected or failed ingest requests, by error kind.",
		}, []string{"kind"}),
	}
	reg.MustRegister(
		m.ReadingsIngested,
		m.FilterDecisions,
		m.DistanceReports,
		m.StalePairs,
		m.IngestFailures,
		collectors.NewGoCollector(),
	)
	return m
}

// Handler serves the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
