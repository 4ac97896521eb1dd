package logger

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// WorkflowTransitionTotal counts workflow transitions by operation and outcome
	WorkflowTransitionTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assettrack_workflow_transition_total",
			Help: "Total number of workflow transitions",
		},
		[]string{"operation", "result"},
	)

	// WorkflowTransitionDuration measures transition latency including lock wait
	WorkflowTransitionDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "assettrack_workflow_transition_duration_seconds",
			Help:    "Workflow transition duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	// AccessDeniedTotal counts authorization failures
	AccessDeniedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assettrack_access_denied_total",
			Help: "Total number of denied operations",
		},
		[]string{"operation", "role"},
	)

	// VersionConflictRetryTotal counts retried optimistic concurrency conflicts
	VersionConflictRetryTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assettrack_version_conflict_retry_total",
			Help: "Total number of transitions retried after a version conflict",
		},
		[]string{"operation"},
	)

	// DatabaseQueryDuration measures database query latency
	DatabaseQueryDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "assettrack_database_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"backend", "operation"},
	)

	// OverduePlans tracks the number of overdue plans seen by the last sweep
	OverduePlans = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "assettrack_overdue_plans",
			Help: "Number of overdue maintenance plans at the last sweep",
		},
	)

	// SweepNoticeTotal counts overdue notices handed to the notifier
	SweepNoticeTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assettrack_sweep_notice_total",
			Help: "Total number of overdue notices published",
		},
		[]string{"notifier", "result"},
	)
)

var registerOnce sync.Once

// InitMetrics registers Prometheus metrics
func InitMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(WorkflowTransitionTotal)
		prometheus.MustRegister(WorkflowTransitionDuration)
		prometheus.MustRegister(AccessDeniedTotal)
		prometheus.MustRegister(VersionConflictRetryTotal)
		prometheus.MustRegister(DatabaseQueryDuration)
		prometheus.MustRegister(OverduePlans)
		prometheus.MustRegister(SweepNoticeTotal)
	})
}

// MetricsHandler returns HTTP handler for Prometheus metrics
func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
