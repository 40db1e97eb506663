package domain

import (
	"errors"
	"strings"
	"time"
)

// ExtractionError is one recorded failure within an extraction job.
type ExtractionError struct {
	Category    ErrorCategory `json:"category"`
	Message     string        `json:"message"`
	StackTrace  string        `json:"stack_trace,omitempty"`
	Page        *int          `json:"page,omitempty"` // nil for job-level errors
	OccurredAt  time.Time     `json:"occurred_at"`
	RetryCount  int           `json:"retry_count"`
	MaxRetries  int           `json:"max_retries"`
	Recoverable bool          `json:"recoverable"`
}

// Retryable reports whether this error still has retry budget left.
func (e *ExtractionError) Retryable() bool {
	return e.Recoverable && e.RetryCount < e.MaxRetries
}

// SamePage reports whether the error occurred on the given page
// (both nil counts as the same job-level slot).
func (e *ExtractionError) SamePage(page *int) bool {
	if e.Page == nil || page == nil {
		return e.Page == nil && page == nil
	}
	return *e.Page == *page
}

// CategoryError carries an explicit category through an error chain so the
// reporter does not have to guess from the message.
type CategoryError struct {
	Category ErrorCategory
	Err      error
}

func (e *CategoryError) Error() string { return string(e.Category) + ": " + e.Err.Error() }
func (e *CategoryError) Unwrap() error { return e.Err }

// WithCategory wraps err with an explicit extraction error category.
func WithCategory(category ErrorCategory, err error) error {
	if err == nil {
		return nil
	}
	return &CategoryError{Category: category, Err: err}
}

// Classify maps an error from a pipeline stage to a category. A typed
// CategoryError anywhere in the chain wins; otherwise the message is matched
// against known failure signatures, falling back to Unknown.
func Classify(err error) ErrorCategory {
	if err == nil {
		return CategoryUnknown
	}

	var ce *CategoryError
	if errors.As(err, &ce) && ce.Category.Valid() {
		return ce.Category
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "ocr") || strings.Contains(msg, "tesseract") ||
		strings.Contains(msg, "confidence"):
		return CategoryOcrProcessing
	case strings.Contains(msg, "pdf") || strings.Contains(msg, "parse") ||
		strings.Contains(msg, "malformed"):
		return CategoryPdfParsing
	case strings.Contains(msg, "image") || strings.Contains(msg, "extract") ||
		strings.Contains(msg, "render"):
		return CategoryImageExtraction
	case strings.Contains(msg, "associat") || strings.Contains(msg, "caption"):
		return CategoryTextAssociation
	case strings.Contains(msg, "upload") || strings.Contains(msg, "storage") ||
		strings.Contains(msg, "bucket") || strings.Contains(msg, "timeout") ||
		strings.Contains(msg, "connection"):
		return CategoryStorage
	default:
		return CategoryUnknown
	}
}
