package domain

import "time"

// ExtractionStatus tracks the progress of one catalog extraction job.
// It is the unit of persistence: the status store serializes the whole
// struct on every mutation.
type ExtractionStatus struct {
	CatalogID      string            `json:"catalog_id"`
	TotalPages     int               `json:"total_pages"`
	ProcessedPages int               `json:"processed_pages"`
	PagesSeen      map[int]bool      `json:"pages_seen,omitempty"` // dedupes page reports
	Errors         []ExtractionError `json:"errors"`
	IsComplete     bool              `json:"is_complete"`
	IsSuccess      bool              `json:"is_success"`
	IsFatal        bool              `json:"is_fatal,omitempty"` // terminated by a job-fatal error
	IsRetrying     bool              `json:"is_retrying"`
	NextRetryTime  *time.Time        `json:"next_retry_time,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at"`
}

// NewExtractionStatus creates a fresh status record with zero progress.
func NewExtractionStatus(catalogID string, totalPages int, now time.Time) *ExtractionStatus {
	return &ExtractionStatus{
		CatalogID:  catalogID,
		TotalPages: totalPages,
		PagesSeen:  make(map[int]bool),
		Errors:     []ExtractionError{},
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// HasRetryableErrors reports whether any recorded error still has retry
// budget left.
func (s *ExtractionStatus) HasRetryableErrors() bool {
	for i := range s.Errors {
		if s.Errors[i].Retryable() {
			return true
		}
	}
	return false
}

// DueForRetry reports whether the job should be picked up by the retry
// worker at the given time.
func (s *ExtractionStatus) DueForRetry(now time.Time) bool {
	return s.IsRetrying && s.NextRetryTime != nil && !s.NextRetryTime.After(now)
}

// ReferenceTime is the timestamp used by the purge sweep: the most recent
// error occurrence, or the creation time when the job never errored.
func (s *ExtractionStatus) ReferenceTime() time.Time {
	ref := s.CreatedAt
	for i := range s.Errors {
		if s.Errors[i].OccurredAt.After(ref) {
			ref = s.Errors[i].OccurredAt
		}
	}
	return ref
}

// Clone returns a deep copy. Stores hand out copies so callers can never
// mutate a record outside the tracker's update primitive.
func (s *ExtractionStatus) Clone() *ExtractionStatus {
	c := *s
	c.Errors = make([]ExtractionError, len(s.Errors))
	copy(c.Errors, s.Errors)
	if s.PagesSeen != nil {
		c.PagesSeen = make(map[int]bool, len(s.PagesSeen))
		for k, v := range s.PagesSeen {
			c.PagesSeen[k] = v
		}
	}
	if s.NextRetryTime != nil {
		t := *s.NextRetryTime
		c.NextRetryTime = &t
	}
	for i := range c.Errors {
		if p := s.Errors[i].Page; p != nil {
			v := *p
			c.Errors[i].Page = &v
		}
	}
	return &c
}
