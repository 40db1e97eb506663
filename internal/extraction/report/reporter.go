// Package report is the facade the ingestion pipeline holds: it converts
// page completions and stage failures into classified status-store updates.
package report

import (
	"context"
	"log/slog"

	"github.com/Basilakis/kai-sub013/internal/core/domain"
	"github.com/Basilakis/kai-sub013/internal/core/status"
	"github.com/Basilakis/kai-sub013/internal/extraction/recovery"
)

// Reporter records pipeline events against the status tracker.
type Reporter struct {
	tracker *status.Tracker
	log     *slog.Logger
}

// NewReporter creates a reporter over the tracker.
func NewReporter(tracker *status.Tracker, log *slog.Logger) *Reporter {
	if log == nil {
		log = slog.Default()
	}
	return &Reporter{
		tracker: tracker,
		log:     log.With("component", "reporter"),
	}
}

// StartJob begins tracking an extraction run. totalPages may be zero when
// the page count is not yet known.
func (r *Reporter) StartJob(ctx context.Context, catalogID string, totalPages int) error {
	_, err := r.tracker.Initialize(ctx, catalogID, totalPages)
	return err
}

// PageDone reports one page as successfully processed.
func (r *Reporter) PageDone(ctx context.Context, catalogID string, page int) error {
	_, err := r.tracker.RecordPageProcessed(ctx, catalogID, page)
	return err
}

// PageFailed classifies a page-level failure and records it with the
// category's default recoverability and retry budget.
func (r *Reporter) PageFailed(ctx context.Context, catalogID string, page int, cause error) error {
	return r.record(ctx, catalogID, &page, cause)
}

// JobError classifies a job-level failure and records it; the job keeps
// running and the error enters the retry cycle if its category allows.
func (r *Reporter) JobError(ctx context.Context, catalogID string, cause error) error {
	return r.record(ctx, catalogID, nil, cause)
}

// JobFailed force-terminates the job as failed. No retries follow.
func (r *Reporter) JobFailed(ctx context.Context, catalogID string, cause error) error {
	_, err := r.tracker.CompleteWithFatalError(ctx, catalogID, cause)
	return err
}

func (r *Reporter) record(ctx context.Context, catalogID string, page *int, cause error) error {
	category := domain.Classify(cause)
	_, err := r.tracker.RecordError(
		ctx,
		catalogID,
		category,
		cause.Error(),
		page,
		category.RecoverableByDefault(),
		recovery.DefaultMaxRetries(category),
	)
	return err
}

// Stage is one unit of extraction work producing a T.
type Stage[T any] func(context.Context) (T, error)

// Do runs one pipeline stage and, when it fails, records the classified
// error before returning it. page may be nil for job-level stages. This is
// the wrapper every stage of the extraction pipeline goes through, so no
// failure escapes unrecorded.
func Do[T any](
	ctx context.Context,
	r *Reporter,
	catalogID string,
	page *int,
	stage Stage[T],
) (T, error) {
	result, err := stage(ctx)
	if err == nil {
		return result, nil
	}

	var recordErr error
	if page != nil {
		recordErr = r.PageFailed(ctx, catalogID, *page, err)
	} else {
		recordErr = r.JobError(ctx, catalogID, err)
	}
	if recordErr != nil {
		r.log.Error("Failed to record stage error",
			"catalog_id", catalogID, "error", recordErr)
	}
	return result, err
}
