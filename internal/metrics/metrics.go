package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Physio engine metrics for production monitoring
var (
	// Analysis metrics
	AnalysesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "physio_analyses_total",
			Help: "Total number of analyses run",
		},
		[]string{"kind", "status"}, // kind: trust/anomaly/correlation/simulation/security/federated
	)

	AnalysisDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "physio_analysis_duration_seconds",
			Help:    "Analysis duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12), // 0.5ms to ~1s
		},
		[]string{"kind"},
	)

	RecordsAnalyzed = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "physio_records_analyzed",
			Help:    "Number of records in each analyzed history",
			Buckets: prometheus.ExponentialBuckets(4, 2, 10),
		},
	)

	// Detection metrics
	AnomaliesDetected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "physio_anomalies_detected_total",
			Help: "Total number of dates flagged as anomalous",
		},
		[]string{"source"}, // source: live/simulation
	)

	InsufficientHistoryTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "physio_insufficient_history_total",
			Help: "Total number of dates that could not be evaluated",
		},
	)

	// Simulation metrics
	SimulationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "physio_simulations_total",
			Help: "Total number of adversarial simulations",
		},
		[]string{"mode"},
	)

	SimulationRecall = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "physio_simulation_recall",
			Help:    "Share of injected corruptions flagged by detection",
			Buckets: prometheus.LinearBuckets(0, 0.1, 11),
		},
		[]string{"mode"},
	)

	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "physio_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"route", "method", "code"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "physio_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method"},
	)

	RateLimitedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "physio_rate_limited_total",
			Help: "Total number of requests rejected by the rate limiter",
		},
		[]string{"route"},
	)

	// Storage metrics
	StoreOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "physio_store_operations_total",
			Help: "Total number of storage operations",
		},
		[]string{"op", "status"},
	)

	// Config metrics
	ConfigReloadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "physio_config_reloads_total",
			Help: "Total number of configuration reloads",
		},
		[]string{"status"},
	)
)

// Status returns the status label for err.
func Status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
