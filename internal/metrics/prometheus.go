package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for the reconciliation engine

var (
	// Remote provider metrics
	RemoteCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reconcile_remote_calls_total",
			Help: "Total number of stats provider API calls",
		},
		[]string{"endpoint", "status"},
	)

	RemoteCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "reconcile_remote_call_duration_seconds",
			Help:    "Duration of stats provider API calls in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	RetriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reconcile_remote_retries_total",
			Help: "Total number of retried provider calls",
		},
		[]string{"op"},
	)

	// Cache metrics
	CacheHitsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "reconcile_cache_hits_total",
			Help: "Total number of cache hits",
		},
	)

	CacheMissesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "reconcile_cache_misses_total",
			Help: "Total number of cache misses",
		},
	)

	// Reconciliation metrics
	PlayersReconciled = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reconcile_players_total",
			Help: "Total number of players reconciled",
		},
		[]string{"status"},
	)

	OverridesUpserted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "reconcile_overrides_upserted_total",
			Help: "Total number of season override rows upserted",
		},
	)

	DiscrepanciesDetected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reconcile_discrepancies_detected_total",
			Help: "Total number of non-zero deltas detected during validation",
		},
		[]string{"metric"},
	)

	RunDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "reconcile_run_duration_seconds",
			Help:    "Duration of reconciliation runs in seconds",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600},
		},
		[]string{"type"},
	)

	LastSuccessfulRun = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "reconcile_last_successful_run_timestamp",
			Help: "Timestamp of the last successful reconciliation run",
		},
	)

	// System metrics
	SystemUptime = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "reconcile_uptime_seconds",
			Help: "Worker uptime in seconds",
		},
	)

	// Database metrics
	DBQueriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reconcile_db_queries_total",
			Help: "Total number of database queries",
		},
		[]string{"operation", "table", "status"},
	)
)

// RecordRemoteCall records a provider API call metric
func RecordRemoteCall(endpoint, status string, duration float64) {
	RemoteCallsTotal.WithLabelValues(endpoint, status).Inc()
	RemoteCallDuration.WithLabelValues(endpoint).Observe(duration)
}

// RecordRetry records a retried provider call
func RecordRetry(op string) {
	RetriesTotal.WithLabelValues(op).Inc()
}

// RecordCacheHit records a cache hit
func RecordCacheHit() {
	CacheHitsTotal.Inc()
}

// RecordCacheMiss records a cache miss
func RecordCacheMiss() {
	CacheMissesTotal.Inc()
}

// RecordPlayerReconciled records the outcome of one player's reconciliation
func RecordPlayerReconciled(status string) {
	PlayersReconciled.WithLabelValues(status).Inc()
}

// RecordOverrideUpsert records an override row write
func RecordOverrideUpsert() {
	OverridesUpserted.Inc()
}

// RecordDiscrepancy records a non-zero delta found during validation
func RecordDiscrepancy(metric string) {
	DiscrepanciesDetected.WithLabelValues(metric).Inc()
}

// RecordRun records a reconciliation run
func RecordRun(runType string, success bool, duration float64) {
	RunDuration.WithLabelValues(runType).Observe(duration)
	if success {
		LastSuccessfulRun.SetToCurrentTime()
	}
}

// RecordDBQuery records a database query metric
func RecordDBQuery(operation, table, status string) {
	DBQueriesTotal.WithLabelValues(operation, table, status).Inc()
}
