// Package health provides system health monitoring and status reporting.
package health

import "time"

// SystemStatus represents the overall health state of the subsystem.
type SystemStatus string

const (
	StatusHealthy  SystemStatus = "healthy"
	StatusDegraded SystemStatus = "degraded"
	StatusCritical SystemStatus = "critical"
)

// Report contains the full recovery subsystem health report.
type Report struct {
	Status       SystemStatus `json:"status"`
	ActiveJobs   int          `json:"active_jobs"`
	RetryingJobs int          `json:"retrying_jobs"`
	DueJobs      int          `json:"due_jobs"`
	DeadLetters  int64        `json:"dead_letters"`
	LastPass     *time.Time   `json:"last_worker_pass,omitempty"`
	StoreError   string       `json:"store_error,omitempty"`
}
