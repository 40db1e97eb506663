// Package retry runs the background loop that drives failure recovery: scan
// the status store for jobs due for retry, dispatch remediation, and fold
// the outcomes back in until every job reaches a terminal state.
package retry

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/Basilakis/kai-sub013/internal/core/domain"
	"github.com/Basilakis/kai-sub013/internal/core/status"
	"github.com/Basilakis/kai-sub013/internal/extraction/metrics"
	"github.com/Basilakis/kai-sub013/internal/extraction/recovery"
)

// Config holds retry worker settings.
type Config struct {
	Interval    time.Duration `yaml:"interval"`    // time between passes
	Retention   time.Duration `yaml:"retention"`   // completed-job retention
	Concurrency int           `yaml:"concurrency"` // jobs recovered in parallel
}

// DefaultConfig returns the stock worker settings: a pass every minute,
// completed jobs kept for 30 days, four jobs recovered in parallel.
func DefaultConfig() Config {
	return Config{
		Interval:    60 * time.Second,
		Retention:   30 * 24 * time.Hour,
		Concurrency: 4,
	}
}

// Worker is the single scheduling loop. Recovery attempts for different
// jobs run concurrently over a bounded pool; mutations of any single job
// still go through the tracker's serialized update.
type Worker struct {
	cfg        Config
	tracker    *status.Tracker
	dispatcher *recovery.Dispatcher
	log        *slog.Logger
	now        func() time.Time

	mu       sync.Mutex
	lastPass time.Time
}

// NewWorker creates a retry worker over the given tracker and dispatcher.
func NewWorker(
	cfg Config,
	tracker *status.Tracker,
	dispatcher *recovery.Dispatcher,
	log *slog.Logger,
) *Worker {
	if cfg.Interval <= 0 {
		cfg.Interval = 60 * time.Second
	}
	if cfg.Retention <= 0 {
		cfg.Retention = 30 * 24 * time.Hour
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	if log == nil {
		log = slog.Default()
	}
	return &Worker{
		cfg:        cfg,
		tracker:    tracker,
		dispatcher: dispatcher,
		log:        log.With("component", "retry-worker"),
		now:        time.Now,
	}
}

// SetClock overrides the time source. Tests only.
func (w *Worker) SetClock(now func() time.Time) { w.now = now }

// Run executes one pass immediately, then one per interval until the
// context is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	w.log.Info("Retry worker started",
		"interval", w.cfg.Interval, "retention", w.cfg.Retention)

	w.RunPass(ctx)

	ticker := time.NewTicker(w.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info("Retry worker stopped")
			return ctx.Err()
		case <-ticker.C:
			w.RunPass(ctx)
		}
	}
}

// RunPass processes every due job once, then runs the retention sweep.
func (w *Worker) RunPass(ctx context.Context) {
	start := w.now()
	due, err := w.tracker.ListDueForRetry(ctx, start)
	if err != nil {
		w.log.Error("Failed to list jobs due for retry", "error", err)
		return
	}

	if len(due) > 0 {
		w.log.Debug("Processing due jobs", "count", len(due))
		sem := make(chan struct{}, w.cfg.Concurrency)
		var wg sync.WaitGroup
		for _, s := range due {
			wg.Add(1)
			sem <- struct{}{}
			go func(s *domain.ExtractionStatus) {
				defer wg.Done()
				defer func() { <-sem }()
				w.recoverJob(ctx, s)
			}(s)
		}
		wg.Wait()
	}

	if _, err := w.tracker.PurgeOlderThan(ctx, w.cfg.Retention); err != nil {
		w.log.Error("Retention sweep failed", "error", err)
	}

	elapsed := w.now().Sub(start)
	metrics.RetryPassDuration.Observe(elapsed.Seconds())
	w.mu.Lock()
	w.lastPass = w.now()
	w.mu.Unlock()
}

// LastPass reports when the worker last finished a pass (zero before the
// first one). Consumed by the health monitor.
func (w *Worker) LastPass() time.Time {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastPass
}

// Interval exposes the configured pass interval for staleness checks.
func (w *Worker) Interval() time.Duration { return w.cfg.Interval }

// recoverJob attempts every retryable error of one job and folds the
// verdicts back into the tracker as a single atomic update.
func (w *Worker) recoverJob(ctx context.Context, s *domain.ExtractionStatus) {
	outcomes := make([]status.RecoveryOutcome, 0, len(s.Errors))
	for i := range s.Errors {
		e := s.Errors[i]
		if !e.Retryable() {
			continue
		}
		recovered := w.dispatcher.AttemptRecovery(ctx, s.CatalogID, e)
		outcomes = append(outcomes, status.RecoveryOutcome{
			Category:  e.Category,
			Page:      e.Page,
			Recovered: recovered,
		})
	}
	// Applying even an empty batch re-normalizes a stale snapshot: a due
	// job with nothing left to retry gets finalized here.
	if _, err := w.tracker.ApplyRecovery(ctx, s.CatalogID, outcomes); err != nil {
		w.log.Error("Failed to apply recovery outcomes",
			"catalog_id", s.CatalogID, "error", err)
	}
}
