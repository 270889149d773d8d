// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Market metrics
	MarketFetchesTotal  *prometheus.CounterVec
	MarketFetchLatency  *prometheus.HistogramVec
	SnapshotsArchived   prometheus.Counter
	SnapshotWriteErrors prometheus.Counter

	// Generation metrics
	GenerationsTotal      *prometheus.CounterVec
	GenerationLatency     *prometheus.HistogramVec
	ReferenceFetchesTotal *prometheus.CounterVec

	// Upload metrics
	UploadsTotal  *prometheus.CounterVec
	UploadLatency prometheus.Histogram

	// Mint metrics
	MintsTotal  *prometheus.CounterVec
	MintLatency prometheus.Histogram

	// Session metrics
	ActiveSessions      prometheus.Gauge
	PhaseTransitions    *prometheus.CounterVec
	StaleResultsDropped prometheus.Counter
	WSClients           prometheus.Gauge

	// API metrics
	APIRequestLatency *prometheus.HistogramVec

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "vibemint"
	}

	return &Metrics{
		// Market metrics
		MarketFetchesTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "market",
			Name:      "fetches_total",
			Help:      "Total number of market ranking fetches by criterion and status",
		}, []string{"criterion", "status"}),
		MarketFetchLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "market",
			Name:      "fetch_latency_seconds",
			Help:      "Market ranking fetch latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"criterion"}),
		SnapshotsArchived: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "market",
			Name:      "snapshots_archived_total",
			Help:      "Total number of coin snapshots archived",
		}),
		SnapshotWriteErrors: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "market",
			Name:      "snapshot_write_errors_total",
			Help:      "Total number of failed snapshot archive writes",
		}),

		// Generation metrics
		GenerationsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "generation",
			Name:      "attempts_total",
			Help:      "Total number of generation attempts by provider, path and status",
		}, []string{"provider", "path", "status"}),
		GenerationLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "generation",
			Name:      "latency_seconds",
			Help:      "Image generation latency in seconds",
			Buckets:   []float64{1, 2, 5, 10, 20, 30, 60, 120},
		}, []string{"provider"}),
		ReferenceFetchesTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "generation",
			Name:      "reference_fetches_total",
			Help:      "Total number of reference image fetches by outcome",
		}, []string{"outcome"}),

		// Upload metrics
		UploadsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "upload",
			Name:      "uploads_total",
			Help:      "Total number of metadata uploads by status",
		}, []string{"status"}),
		UploadLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "upload",
			Name:      "latency_seconds",
			Help:      "Metadata upload latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}),

		// Mint metrics
		MintsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "mint",
			Name:      "mints_total",
			Help:      "Total number of mint submissions by status",
		}, []string{"status"}),
		MintLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "mint",
			Name:      "latency_seconds",
			Help:      "Mint submission latency in seconds",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60},
		}),

		// Session metrics
		ActiveSessions: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "active",
			Help:      "Current number of open dialog sessions",
		}),
		PhaseTransitions: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "phase_transitions_total",
			Help:      "Total number of pipeline phase transitions",
		}, []string{"to"}),
		StaleResultsDropped: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "stale_results_dropped_total",
			Help:      "Total number of async results dropped for belonging to a superseded attempt",
		}),
		WSClients: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "ws_clients",
			Help:      "Current number of connected websocket event subscribers",
		}),

		// API metrics
		APIRequestLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "request_latency_seconds",
			Help:      "HTTP API request latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method"}),

		// Database metrics
		DBQueryDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordMarketFetch records one ranking fetch.
func RecordMarketFetch(criterion, status string, seconds float64) {
	DefaultMetrics.MarketFetchesTotal.WithLabelValues(criterion, status).Inc()
	DefaultMetrics.MarketFetchLatency.WithLabelValues(criterion).Observe(seconds)
}

// RecordSnapshotsArchived records an archive write of n snapshots.
func RecordSnapshotsArchived(n int, err error) {
	if err != nil {
		DefaultMetrics.SnapshotWriteErrors.Inc()
		return
	}
	DefaultMetrics.SnapshotsArchived.Add(float64(n))
}

// RecordGeneration records one provider generation attempt.
func RecordGeneration(provider, path, status string, seconds float64) {
	DefaultMetrics.GenerationsTotal.WithLabelValues(provider, path, status).Inc()
	DefaultMetrics.GenerationLatency.WithLabelValues(provider).Observe(seconds)
}

// RecordReferenceFetch records a reference image fetch outcome:
// direct, proxy or skipped.
func RecordReferenceFetch(outcome string) {
	DefaultMetrics.ReferenceFetchesTotal.WithLabelValues(outcome).Inc()
}

// RecordUpload records one metadata upload.
func RecordUpload(status string, seconds float64) {
	DefaultMetrics.UploadsTotal.WithLabelValues(status).Inc()
	DefaultMetrics.UploadLatency.Observe(seconds)
}

// RecordMint records one mint submission.
func RecordMint(status string, seconds float64) {
	DefaultMetrics.MintsTotal.WithLabelValues(status).Inc()
	DefaultMetrics.MintLatency.Observe(seconds)
}

// RecordPhaseTransition records a pipeline transition into a phase.
func RecordPhaseTransition(to string) {
	DefaultMetrics.PhaseTransitions.WithLabelValues(to).Inc()
}

// RecordStaleResultDropped records a dropped result from a superseded attempt.
func RecordStaleResultDropped() {
	DefaultMetrics.StaleResultsDropped.Inc()
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}
