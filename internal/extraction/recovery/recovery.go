// Package recovery selects and invokes type-specific remediation actions for
// extraction failures. It decides only WHICH remediation to run for a given
// category and attempt number; folding the outcome back into the status
// store is the retry worker's job.
package recovery

import (
	"context"

	"github.com/Basilakis/kai-sub013/internal/core/domain"
)

// RemediationFunc is one concrete remediation action supplied by the
// ingestion pipeline, e.g. "re-parse with the alternate PDF backend".
type RemediationFunc func(ctx context.Context, catalogID string) error

// Funcs carries the remediation actions the pipeline registers. An unset
// action counts as a failed attempt.
type Funcs struct {
	// PdfParsing ladder
	SwitchPdfBackend   RemediationFunc
	RepairPdfStructure RemediationFunc

	// ImageExtraction ladder
	AlternateImageMethod  RemediationFunc
	ReducedQualityExtract RemediationFunc

	// OcrProcessing ladder
	AlternateOcrEngine  RemediationFunc
	AlternatePreprocess RemediationFunc
	LowerOcrResolution  RemediationFunc

	// Storage
	RetryUpload RemediationFunc
}

// Strategy attempts recovery for one error category. Attempt returns nil
// when the remediation succeeded; any error (including an exhausted ladder)
// is a failed attempt.
type Strategy interface {
	Attempt(ctx context.Context, catalogID string, retryCount int) error
	MaxRetries() int
}

// DefaultMaxRetries is the ladder depth per category, used by callers
// recording errors into the tracker.
func DefaultMaxRetries(category domain.ErrorCategory) int {
	switch category {
	case domain.CategoryPdfParsing, domain.CategoryImageExtraction:
		return 2
	case domain.CategoryOcrProcessing, domain.CategoryStorage:
		return 3
	default:
		return 0
	}
}
