package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the zoning pipeline.
type Metrics struct {
	RecordsRead    prometheus.Counter
	RecordsDropped *prometheus.CounterVec // labels: reason={incomplete,below_magnitude}
	EventsKept     prometheus.Counter
	GridCells      prometheus.Gauge
	ClusterCells   *prometheus.GaugeVec // labels: cluster
	Runs           *prometheus.CounterVec // labels: outcome={success,fallback,error}
	RunDuration    prometheus.Histogram
	PipelineReady  prometheus.Gauge

	// Geocoding metrics.
	GeocodeRequests    *prometheus.CounterVec // labels: outcome={success,error,empty}
	GeocodeCache       *prometheus.CounterVec // labels: result={hit,miss}
	GeocodeAPIDuration prometheus.Histogram
}

// NewMetrics creates and registers all pipeline metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(m.collectors()...)
	return m
}

// NewMetricsForTesting creates Metrics that are not registered anywhere, so tests can
// build as many as they like.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		RecordsRead: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "quakemap",
			Name:      "records_read_total",
			Help:      "Catalog rows read from the source.",
		}),
		RecordsDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "quakemap",
			Name:      "records_dropped_total",
			Help:      "Catalog rows dropped by the filter, by reason.",
		}, []string{"reason"}),
		EventsKept: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "quakemap",
			Name:      "events_kept_total",
			Help:      "Events that passed the completeness and magnitude filter.",
		}),
		GridCells: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "quakemap",
			Name:      "grid_cells",
			Help:      "Grid cells produced by the last run.",
		}),
		ClusterCells: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "quakemap",
			Name:      "cluster_cells",
			Help:      "Grid cells per depth cluster in the last run.",
		}, []string{"cluster"}),
		Runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "quakemap",
			Name:      "runs_total",
			Help:      "Pipeline runs by outcome.",
		}, []string{"outcome"}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "quakemap",
			Name:      "run_duration_seconds",
			Help:      "Duration of a complete load-aggregate-cluster-present run.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30},
		}),
		PipelineReady: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "quakemap",
			Name:      "pipeline_ready",
			Help:      "1 once a run has completed successfully.",
		}),
		GeocodeRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "quakemap",
			Name:      "geocode_requests_total",
			Help:      "Reverse geocoding API requests by outcome.",
		}, []string{"outcome"}),
		GeocodeCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "quakemap",
			Name:      "geocode_cache_total",
			Help:      "Reverse geocoding cache lookups by result.",
		}, []string{"result"}),
		GeocodeAPIDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "quakemap",
			Name:      "geocode_api_duration_seconds",
			Help:      "Mapbox API request duration in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),
	}
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.RecordsRead,
		m.RecordsDropped,
		m.EventsKept,
		m.GridCells,
		m.ClusterCells,
		m.Runs,
		m.RunDuration,
		m.PipelineReady,
		m.GeocodeRequests,
		m.GeocodeCache,
		m.GeocodeAPIDuration,
	}
}
