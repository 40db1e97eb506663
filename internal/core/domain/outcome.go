package domain

import "time"

// SyncStatus is the terminal outcome reported to the owning catalog record.
type SyncStatus string

const (
	SyncCompleted           SyncStatus = "completed"
	SyncCompletedWithErrors SyncStatus = "completed_with_errors"
	SyncFailed              SyncStatus = "failed"
)

// SyncError is the diagnostic view of an ExtractionError carried in the
// terminal catalog sync payload.
type SyncError struct {
	Category   ErrorCategory `json:"category"`
	Message    string        `json:"message"`
	Page       *int          `json:"page,omitempty"`
	OccurredAt time.Time     `json:"occurred_at"`
}

// CatalogOutcome is published exactly once, when a job transitions to
// complete.
type CatalogOutcome struct {
	CatalogID   string      `json:"catalog_id"`
	Status      SyncStatus  `json:"status"`
	Errors      []SyncError `json:"errors"`
	CompletedAt time.Time   `json:"completed_at"`
}

// OutcomeFor derives the terminal catalog payload from a completed status.
// Fatal termination always reports failed; otherwise the job completed, with
// errors when any remain, and counts as failed outright when nothing was
// processed at all.
func OutcomeFor(s *ExtractionStatus, now time.Time) CatalogOutcome {
	out := CatalogOutcome{
		CatalogID:   s.CatalogID,
		Errors:      make([]SyncError, 0, len(s.Errors)),
		CompletedAt: now,
	}
	for i := range s.Errors {
		e := &s.Errors[i]
		out.Errors = append(out.Errors, SyncError{
			Category:   e.Category,
			Message:    e.Message,
			Page:       e.Page,
			OccurredAt: e.OccurredAt,
		})
	}

	switch {
	case s.IsFatal:
		out.Status = SyncFailed
	case s.IsSuccess:
		out.Status = SyncCompleted
	case s.ProcessedPages > 0:
		out.Status = SyncCompletedWithErrors
	default:
		out.Status = SyncFailed
	}
	return out
}
