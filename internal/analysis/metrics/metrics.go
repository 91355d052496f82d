package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AttemptsTotal tracks attempt outcomes (success, reschedule, terminal failure).
	AttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "snapcal_attempts_total",
			Help: "Total number of analysis attempts by outcome",
		},
		[]string{"outcome"},
	)

	// ClassificationsTotal tracks how failures were classified.
	ClassificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "snapcal_classifications_total",
			Help: "Total number of failure classifications by kind",
		},
		[]string{"kind"},
	)

	// ServiceLatency tracks analysis service call latency.
	ServiceLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "snapcal_service_latency_seconds",
			Help:    "Analysis service call latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// JobsTerminal tracks finished jobs by terminal status.
	JobsTerminal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "snapcal_jobs_terminal_total",
			Help: "Total number of jobs reaching a terminal state",
		},
		[]string{"status"},
	)

	// QueueDepth tracks jobs currently waiting in the durable scheduler.
	QueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "snapcal_queue_depth",
			Help: "Jobs currently queued or scheduled for retry",
		},
	)

	// DBConnectionPoolUsage tracks database connection pool usage percent.
	DBConnectionPoolUsage = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "snapcal_db_pool_usage_percent",
			Help: "Database connection pool usage percentage",
		},
	)
)
