package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "swathpoint"

// Metrics holds the Prometheus collectors for point queries and upstream calls.
type Metrics struct {
	// Query metrics.
	GranuleOutcomes *prometheus.CounterVec // labels: outcome
	SamplesRecorded prometheus.Counter
	QueryDuration   prometheus.Histogram
	QueryGranules   prometheus.Histogram

	// Upstream metrics.
	UpstreamRequests *prometheus.CounterVec   // labels: service, outcome={success,error,rejected}
	UpstreamDuration *prometheus.HistogramVec // labels: service
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.GranuleOutcomes,
		m.SamplesRecorded,
		m.QueryDuration,
		m.QueryGranules,
		m.UpstreamRequests,
		m.UpstreamDuration,
	)
	return m
}

// NewMetricsForTesting creates unregistered Metrics so that tests can build
// as many as they need without "already registered" panics.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		GranuleOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "granule_outcomes_total",
			Help:      "Granules processed by point queries, by outcome.",
		}, []string{"outcome"}),
		SamplesRecorded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "samples_recorded_total",
			Help:      "Point estimates recorded into time series.",
		}),
		QueryDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "query_duration_seconds",
			Help:      "Duration of a complete time series query.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15, 60, 300},
		}),
		QueryGranules: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "query_granules",
			Help:      "Number of granules considered per query.",
			Buckets:   []float64{1, 5, 10, 25, 50, 100, 250, 500},
		}),
		UpstreamRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_requests_total",
			Help:      "Requests to external services by service and outcome.",
		}, []string{"service", "outcome"}),
		UpstreamDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "upstream_duration_seconds",
			Help:      "External service request duration in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"service"}),
	}
}
