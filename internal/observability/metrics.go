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
	// Harvest metrics
	PagesFetched    prometheus.Counter
	SwapsHarvested  prometheus.Counter
	ShardsWritten   *prometheus.CounterVec
	BatchRetries    prometheus.Counter
	DaysInFlight    prometheus.Gauge
	FetchErrors     *prometheus.CounterVec
	PageFetchLatency prometheus.Histogram
	DayDuration     prometheus.Histogram

	// Live tail metrics
	LiveSwapsReceived prometheus.Counter
	LiveReconnects    prometheus.Counter

	// Estimator metrics
	EstimationsRun    *prometheus.CounterVec
	CellsDropped      prometheus.Counter
	EstimationLatency prometheus.Histogram

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec

	// Health metrics
	LastSuccessfulHarvest prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "uniswap_econ_lab"
	}

	return &Metrics{
		// Harvest metrics
		PagesFetched: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "harvest",
			Name:      "pages_fetched_total",
			Help:      "Total number of subgraph pages fetched",
		}),
		SwapsHarvested: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "harvest",
			Name:      "swaps_total",
			Help:      "Total number of swaps harvested",
		}),
		ShardsWritten: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "harvest",
			Name:      "shards_total",
			Help:      "Total number of day shards finished by state",
		}, []string{"state"}),
		BatchRetries: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "harvest",
			Name:      "batch_retries_total",
			Help:      "Total number of page fetch retries",
		}),
		DaysInFlight: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "harvest",
			Name:      "days_in_flight",
			Help:      "Number of day windows currently being harvested",
		}),
		FetchErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "harvest",
			Name:      "fetch_errors_total",
			Help:      "Total number of subgraph fetch errors by type",
		}, []string{"error_type"}),
		PageFetchLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "harvest",
			Name:      "page_fetch_latency_seconds",
			Help:      "Subgraph page fetch latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}),
		DayDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "harvest",
			Name:      "day_duration_seconds",
			Help:      "Duration of harvesting one day window in seconds",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600},
		}),

		// Live tail metrics
		LiveSwapsReceived: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "live",
			Name:      "swaps_received_total",
			Help:      "Total number of swaps received over the live subscription",
		}),
		LiveReconnects: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "live",
			Name:      "reconnects_total",
			Help:      "Total number of live subscription reconnects",
		}),

		// Estimator metrics
		EstimationsRun: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "estimator",
			Name:      "runs_total",
			Help:      "Total number of event-study estimations by status",
		}, []string{"status"}),
		CellsDropped: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "estimator",
			Name:      "cells_dropped_total",
			Help:      "Total number of cohort-time cells dropped as collinear",
		}),
		EstimationLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "estimator",
			Name:      "latency_seconds",
			Help:      "Event-study estimation latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}),

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

		// Health metrics
		LastSuccessfulHarvest: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_harvest_timestamp",
			Help:      "Unix timestamp of the last day shard written successfully",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordPageFetched increments the pages fetched counter and adds the swaps on it.
func RecordPageFetched(swaps int) {
	DefaultMetrics.PagesFetched.Inc()
	DefaultMetrics.SwapsHarvested.Add(float64(swaps))
}

// RecordShardFinished records a finished day shard by state.
func RecordShardFinished(state string) {
	DefaultMetrics.ShardsWritten.WithLabelValues(state).Inc()
}

// RecordBatchRetry increments the retry counter.
func RecordBatchRetry() {
	DefaultMetrics.BatchRetries.Inc()
}

// RecordFetchError records a fetch error by type.
func RecordFetchError(errorType string) {
	DefaultMetrics.FetchErrors.WithLabelValues(errorType).Inc()
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}

// RecordEstimation records an estimation run.
func RecordEstimation(status string, seconds float64, droppedCells int) {
	DefaultMetrics.EstimationsRun.WithLabelValues(status).Inc()
	DefaultMetrics.EstimationLatency.Observe(seconds)
	DefaultMetrics.CellsDropped.Add(float64(droppedCells))
}
