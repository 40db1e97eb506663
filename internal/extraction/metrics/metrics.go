package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PagesProcessed tracks total pages reported as processed
	PagesProcessed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "extraction_pages_processed_total",
			Help: "Total number of pages reported as processed",
		},
	)

	// ErrorsRecorded tracks errors recorded per category
	ErrorsRecorded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "extraction_errors_recorded_total",
			Help: "Total number of extraction errors recorded",
		},
		[]string{"category"},
	)

	// RecoveryAttempts tracks recovery attempts per category and result
	RecoveryAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "extraction_recovery_attempts_total",
			Help: "Total number of recovery attempts",
		},
		[]string{"category", "result"},
	)

	// JobsCompleted tracks terminal transitions per catalog sync status
	JobsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "extraction_jobs_completed_total",
			Help: "Total number of jobs reaching a terminal state",
		},
		[]string{"status"},
	)

	// ActiveJobs tracks the number of incomplete jobs in the store
	ActiveJobs = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "extraction_active_jobs",
			Help: "Number of incomplete extraction jobs",
		},
	)

	// RetryPassDuration tracks how long a retry worker pass takes
	RetryPassDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "extraction_retry_pass_duration_seconds",
			Help:    "Duration of retry worker passes in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// CatalogSyncFailures tracks failed terminal sync deliveries
	CatalogSyncFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "extraction_catalog_sync_failures_total",
			Help: "Total number of failed catalog sync deliveries",
		},
	)

	// DeadLetters tracks outcomes parked on the dead-letter queue
	DeadLetters = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "extraction_dead_letters_total",
			Help: "Total number of catalog sync outcomes dead-lettered",
		},
	)

	// JobsPurged tracks completed records removed by the retention sweep
	JobsPurged = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "extraction_jobs_purged_total",
			Help: "Total number of completed jobs purged",
		},
	)
)
