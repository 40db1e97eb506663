package health

import (
	"context"
	"time"

	"github.com/Basilakis/kai-sub013/internal/core/domain"
)

// StatusLister is the slice of the tracker the monitor needs.
type StatusLister interface {
	ListActive(ctx context.Context) ([]*domain.ExtractionStatus, error)
}

// WorkerProbe exposes the retry worker's liveness.
type WorkerProbe interface {
	LastPass() time.Time
	Interval() time.Duration
}

// DeadLetterCounter reports how many catalog sync outcomes are parked.
type DeadLetterCounter interface {
	Count(ctx context.Context) (int64, error)
}

// Monitor aggregates tracker, worker, and dead-letter state into one report.
type Monitor struct {
	lister      StatusLister
	worker      WorkerProbe
	deadLetters DeadLetterCounter // may be nil when redis is not configured
	started     time.Time
	now         func() time.Time
}

// NewMonitor creates a health monitor. deadLetters may be nil.
func NewMonitor(lister StatusLister, worker WorkerProbe, deadLetters DeadLetterCounter) *Monitor {
	return &Monitor{
		lister:      lister,
		worker:      worker,
		deadLetters: deadLetters,
		started:     time.Now(),
		now:         time.Now,
	}
}

// CheckHealth builds the current health report. The store being unreachable
// is critical; a stalled worker or parked dead letters degrade the system.
func (m *Monitor) CheckHealth(ctx context.Context) Report {
	report := Report{Status: StatusHealthy}

	active, err := m.lister.ListActive(ctx)
	if err != nil {
		report.Status = StatusCritical
		report.StoreError = err.Error()
		return report
	}

	now := m.now()
	report.ActiveJobs = len(active)
	for _, s := range active {
		if s.IsRetrying {
			report.RetryingJobs++
		}
		if s.DueForRetry(now) {
			report.DueJobs++
		}
	}

	if m.worker != nil {
		last := m.worker.LastPass()
		if !last.IsZero() {
			report.LastPass = &last
		}
		// Three missed intervals means the loop is stuck or starved.
		grace := 3 * m.worker.Interval()
		switch {
		case last.IsZero() && now.Sub(m.started) > grace:
			report.Status = StatusCritical
		case !last.IsZero() && now.Sub(last) > grace:
			report.Status = StatusDegraded
		}
	}

	if m.deadLetters != nil {
		count, err := m.deadLetters.Count(ctx)
		if err == nil {
			report.DeadLetters = count
			if count > 0 && report.Status == StatusHealthy {
				report.Status = StatusDegraded
			}
		}
	}

	return report
}
