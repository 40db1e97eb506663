// Package status implements the durable per-job status tracker: the single
// source of truth for extraction progress, accumulated errors, and retry
// state.
package status

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Basilakis/kai-sub013/internal/core/domain"
	"github.com/Basilakis/kai-sub013/internal/extraction/metrics"
	"github.com/Basilakis/kai-sub013/internal/infra/storage"
)

// CatalogSync receives terminal status transitions. Delivery failure is
// logged (and possibly dead-lettered by the implementation) but never
// re-opens a job.
type CatalogSync interface {
	Publish(ctx context.Context, outcome domain.CatalogOutcome) error
}

// RecoveryOutcome is one dispatcher verdict folded back by the retry worker.
type RecoveryOutcome struct {
	Category  domain.ErrorCategory
	Page      *int
	Recovered bool
}

// Tracker is the status store. Every mutation goes through Update, which
// holds a per-catalog lock across read-mutate-persist so concurrent page
// reports and recovery outcomes never interleave on the same job.
type Tracker struct {
	repo  storage.StatusRepository
	sync  CatalogSync
	log   *slog.Logger
	now   func() time.Time
	locks keyedMutex
}

// NewTracker creates a tracker over the given repository. sync may be nil
// (terminal transitions are then only logged).
func NewTracker(repo storage.StatusRepository, sync CatalogSync, log *slog.Logger) *Tracker {
	if log == nil {
		log = slog.Default()
	}
	return &Tracker{
		repo: repo,
		sync: sync,
		log:  log.With("component", "status-tracker"),
		now:  time.Now,
	}
}

// SetClock overrides the time source. Tests only.
func (t *Tracker) SetClock(now func() time.Time) { t.now = now }

// Initialize starts tracking a new job with zero progress.
func (t *Tracker) Initialize(
	ctx context.Context,
	catalogID string,
	totalPages int,
) (*domain.ExtractionStatus, error) {
	unlock := t.locks.lock(catalogID)
	defer unlock()

	s := domain.NewExtractionStatus(catalogID, totalPages, t.now().UTC())
	if err := t.repo.Create(ctx, s); err != nil {
		return nil, err
	}
	t.log.Info("Tracking extraction job", "catalog_id", catalogID, "total_pages", totalPages)
	return s, nil
}

// Get returns the current status of a job without mutating it.
func (t *Tracker) Get(ctx context.Context, catalogID string) (*domain.ExtractionStatus, error) {
	return t.repo.Get(ctx, catalogID)
}

// Update applies an atomic read-modify-write against one job. The mutation
// is committed only once the repository has persisted it; invariants are
// re-normalized after every mutation. A false->true flip of IsComplete
// publishes the terminal outcome to the catalog sync exactly once.
func (t *Tracker) Update(
	ctx context.Context,
	catalogID string,
	mutate func(*domain.ExtractionStatus) error,
) (*domain.ExtractionStatus, error) {
	unlock := t.locks.lock(catalogID)
	defer unlock()

	s, err := t.repo.Get(ctx, catalogID)
	if err != nil {
		return nil, err
	}
	wasComplete := s.IsComplete

	if err := mutate(s); err != nil {
		return nil, fmt.Errorf("failed to mutate status %s: %w", catalogID, err)
	}

	nowUTC := t.now().UTC()
	normalize(s)
	s.UpdatedAt = nowUTC

	if err := t.repo.Save(ctx, s); err != nil {
		return nil, err
	}

	if !wasComplete && s.IsComplete {
		t.publish(ctx, s)
	}
	return s, nil
}

// RecordError records a failure reported by the ingestion pipeline. A repeat
// of an unresolved error on the same (category, page) slot increments its
// retry count instead of appending; the job's next retry is scheduled with
// exponential backoff (2^retryCount minutes, so the first attempt waits one
// minute).
func (t *Tracker) RecordError(
	ctx context.Context,
	catalogID string,
	category domain.ErrorCategory,
	message string,
	page *int,
	recoverable bool,
	maxRetries int,
) (*domain.ExtractionStatus, error) {
	return t.Update(ctx, catalogID, func(s *domain.ExtractionStatus) error {
		if s.IsComplete {
			t.log.Warn("Dropping error report for completed job",
				"catalog_id", catalogID, "category", category)
			return nil
		}
		now := t.now().UTC()
		metrics.ErrorsRecorded.WithLabelValues(string(category)).Inc()

		var target *domain.ExtractionError
		for i := range s.Errors {
			e := &s.Errors[i]
			if e.Category == category && e.SamePage(page) && e.Retryable() {
				target = e
				break
			}
		}

		if target == nil {
			s.Errors = append(s.Errors, domain.ExtractionError{
				Category:    category,
				Message:     message,
				Page:        page,
				OccurredAt:  now,
				RetryCount:  0,
				MaxRetries:  maxRetries,
				Recoverable: recoverable && maxRetries > 0,
			})
			target = &s.Errors[len(s.Errors)-1]
		} else {
			target.RetryCount++
			target.Message = message
			target.OccurredAt = now
			if target.RetryCount >= target.MaxRetries {
				target.Recoverable = false
			}
		}

		if target.Retryable() {
			t.scheduleRetry(s, now, backoffFor(target.RetryCount))
		}
		t.completeIfPagesDone(s)
		return nil
	})
}

// RecordPageProcessed marks one page done. Duplicate reports for the same
// page and reports against a completed job are no-ops.
func (t *Tracker) RecordPageProcessed(
	ctx context.Context,
	catalogID string,
	pageNumber int,
) (*domain.ExtractionStatus, error) {
	return t.Update(ctx, catalogID, func(s *domain.ExtractionStatus) error {
		if s.IsComplete {
			return nil
		}
		if s.PagesSeen == nil {
			s.PagesSeen = make(map[int]bool)
		}
		if s.PagesSeen[pageNumber] {
			return nil
		}
		s.PagesSeen[pageNumber] = true
		s.ProcessedPages++
		metrics.PagesProcessed.Inc()

		t.completeIfPagesDone(s)
		return nil
	})
}

// CompleteWithFatalError force-terminates a job as failed, appending a
// non-recoverable error and suppressing further retries.
func (t *Tracker) CompleteWithFatalError(
	ctx context.Context,
	catalogID string,
	cause error,
) (*domain.ExtractionStatus, error) {
	return t.Update(ctx, catalogID, func(s *domain.ExtractionStatus) error {
		if s.IsComplete {
			return nil
		}
		category := domain.Classify(cause)
		metrics.ErrorsRecorded.WithLabelValues(string(category)).Inc()
		s.Errors = append(s.Errors, domain.ExtractionError{
			Category:    category,
			Message:     cause.Error(),
			OccurredAt:  t.now().UTC(),
			RetryCount:  0,
			MaxRetries:  0,
			Recoverable: false,
		})
		s.IsComplete = true
		s.IsSuccess = false
		s.IsFatal = true
		s.IsRetrying = false
		s.NextRetryTime = nil
		return nil
	})
}

// ApplyRecovery folds a batch of dispatcher outcomes for one job into a
// single atomic update. Recovered errors are removed; failed attempts burn
// retry budget. When no retryable error remains the job is finalized,
// successful iff the error list is now empty.
func (t *Tracker) ApplyRecovery(
	ctx context.Context,
	catalogID string,
	outcomes []RecoveryOutcome,
) (*domain.ExtractionStatus, error) {
	return t.Update(ctx, catalogID, func(s *domain.ExtractionStatus) error {
		if s.IsComplete {
			return nil
		}
		now := t.now().UTC()

		for _, o := range outcomes {
			idx := -1
			for i := range s.Errors {
				e := &s.Errors[i]
				if e.Category == o.Category && e.SamePage(o.Page) && e.Retryable() {
					idx = i
					break
				}
			}
			if idx < 0 {
				continue
			}
			if o.Recovered {
				s.Errors = append(s.Errors[:idx], s.Errors[idx+1:]...)
				continue
			}
			e := &s.Errors[idx]
			e.RetryCount++
			if e.RetryCount >= e.MaxRetries {
				e.Recoverable = false
			}
		}

		if !s.HasRetryableErrors() {
			s.IsComplete = true
			s.IsSuccess = len(s.Errors) == 0
			s.IsRetrying = false
			s.NextRetryTime = nil
			return nil
		}

		// Earliest due among the surviving errors wins.
		var next time.Time
		for i := range s.Errors {
			e := &s.Errors[i]
			if !e.Retryable() {
				continue
			}
			due := now.Add(backoffFor(e.RetryCount))
			if next.IsZero() || due.Before(next) {
				next = due
			}
		}
		s.IsRetrying = true
		s.NextRetryTime = &next
		return nil
	})
}

// ListActive returns all jobs that have not reached a terminal state.
func (t *Tracker) ListActive(ctx context.Context) ([]*domain.ExtractionStatus, error) {
	active, err := t.repo.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	metrics.ActiveJobs.Set(float64(len(active)))
	return active, nil
}

// ListDueForRetry returns all jobs whose next retry time has elapsed.
func (t *Tracker) ListDueForRetry(
	ctx context.Context,
	now time.Time,
) ([]*domain.ExtractionStatus, error) {
	return t.repo.ListDueForRetry(ctx, now)
}

// PurgeOlderThan removes completed jobs whose reference timestamp is older
// than maxAge. Returns the number of records removed.
func (t *Tracker) PurgeOlderThan(ctx context.Context, maxAge time.Duration) (int, error) {
	cutoff := t.now().UTC().Add(-maxAge)
	complete, err := t.repo.ListComplete(ctx)
	if err != nil {
		return 0, err
	}

	purged := 0
	for _, s := range complete {
		if !s.ReferenceTime().Before(cutoff) {
			continue
		}
		unlock := t.locks.lock(s.CatalogID)
		err := t.repo.Delete(ctx, s.CatalogID)
		unlock()
		if err != nil {
			return purged, err
		}
		metrics.JobsPurged.Inc()
		purged++
	}
	return purged, nil
}

// completeIfPagesDone finalizes a job once every page is processed and no
// error is still retryable. The worker has its own finalization path that
// does not consult page counts.
func (t *Tracker) completeIfPagesDone(s *domain.ExtractionStatus) {
	if s.IsComplete || s.TotalPages <= 0 {
		return
	}
	if s.ProcessedPages >= s.TotalPages && !s.HasRetryableErrors() {
		s.IsComplete = true
		s.IsSuccess = len(s.Errors) == 0
		s.IsRetrying = false
		s.NextRetryTime = nil
	}
}

// scheduleRetry moves the job's next retry to now+backoff, unless an earlier
// retry for a different error is still pending.
func (t *Tracker) scheduleRetry(s *domain.ExtractionStatus, now time.Time, backoff time.Duration) {
	due := now.Add(backoff)
	keep := s.NextRetryTime != nil && s.NextRetryTime.After(now) &&
		s.NextRetryTime.Before(due) && retryableCount(s) > 1
	if !keep {
		s.NextRetryTime = &due
	}
	s.IsRetrying = true
}

func (t *Tracker) publish(ctx context.Context, s *domain.ExtractionStatus) {
	out := domain.OutcomeFor(s, t.now().UTC())
	metrics.JobsCompleted.WithLabelValues(string(out.Status)).Inc()
	t.log.Info("Extraction job completed",
		"catalog_id", s.CatalogID,
		"status", out.Status,
		"processed_pages", s.ProcessedPages,
		"errors", len(s.Errors))

	if t.sync == nil {
		return
	}
	if err := t.sync.Publish(ctx, out); err != nil {
		metrics.CatalogSyncFailures.Inc()
		t.log.Error("Catalog sync failed", "catalog_id", s.CatalogID, "error", err)
	}
}

// backoffFor is the domain retry delay: 2^retryCount minutes.
func backoffFor(retryCount int) time.Duration {
	return time.Duration(1<<uint(retryCount)) * time.Minute
}

func retryableCount(s *domain.ExtractionStatus) int {
	n := 0
	for i := range s.Errors {
		if s.Errors[i].Retryable() {
			n++
		}
	}
	return n
}

// normalize re-establishes the store invariants after any mutation:
// retryCount never exceeds maxRetries, an error at its cap is no longer
// recoverable, page progress never exceeds the page total, and a job that
// is complete or has nothing left to retry is not retrying.
func normalize(s *domain.ExtractionStatus) {
	for i := range s.Errors {
		e := &s.Errors[i]
		if e.MaxRetries < 0 {
			e.MaxRetries = 0
		}
		if e.RetryCount > e.MaxRetries {
			e.RetryCount = e.MaxRetries
		}
		if e.RetryCount >= e.MaxRetries {
			e.Recoverable = false
		}
	}
	if s.TotalPages > 0 && s.ProcessedPages > s.TotalPages {
		s.ProcessedPages = s.TotalPages
	}
	if s.IsComplete || !s.HasRetryableErrors() {
		s.IsRetrying = false
	}
	if !s.IsRetrying {
		s.NextRetryTime = nil
	}
}
