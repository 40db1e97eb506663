package domain

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestCategory_RecoverableByDefault(t *testing.T) {
	recoverable := []ErrorCategory{
		CategoryPdfParsing,
		CategoryImageExtraction,
		CategoryOcrProcessing,
		CategoryStorage,
	}
	for _, c := range recoverable {
		if !c.RecoverableByDefault() {
			t.Errorf("%s should be recoverable by default", c)
		}
	}

	if CategoryTextAssociation.RecoverableByDefault() {
		t.Error("text_association should not be recoverable")
	}
	if CategoryUnknown.RecoverableByDefault() {
		t.Error("unknown should not be recoverable")
	}
}

func TestError_Retryable(t *testing.T) {
	e := ExtractionError{Recoverable: true, RetryCount: 1, MaxRetries: 2}
	if !e.Retryable() {
		t.Error("below budget should be retryable")
	}

	e.RetryCount = 2
	if e.Retryable() {
		t.Error("at budget should not be retryable")
	}

	e = ExtractionError{Recoverable: false, RetryCount: 0, MaxRetries: 2}
	if e.Retryable() {
		t.Error("non-recoverable should never be retryable")
	}
}

func TestError_SamePage(t *testing.T) {
	one, two := 1, 2

	e := ExtractionError{Page: &one}
	if !e.SamePage(&one) {
		t.Error("same page number should match")
	}
	if e.SamePage(&two) {
		t.Error("different page number should not match")
	}
	if e.SamePage(nil) {
		t.Error("page error should not match job-level slot")
	}

	jobLevel := ExtractionError{}
	if !jobLevel.SamePage(nil) {
		t.Error("two job-level slots should match")
	}
	if jobLevel.SamePage(&one) {
		t.Error("job-level slot should not match a page")
	}
}

func TestClassify(t *testing.T) {
	cases := []struct {
		err  error
		want ErrorCategory
	}{
		{WithCategory(CategoryStorage, errors.New("boom")), CategoryStorage},
		{fmt.Errorf("wrapped: %w", WithCategory(CategoryOcrProcessing, errors.New("x"))), CategoryOcrProcessing},
		{errors.New("ocr returned low confidence"), CategoryOcrProcessing},
		{errors.New("malformed PDF header"), CategoryPdfParsing},
		{errors.New("image render failed"), CategoryImageExtraction},
		{errors.New("caption association mismatch"), CategoryTextAssociation},
		{errors.New("upload to bucket rejected"), CategoryStorage},
		{errors.New("something odd"), CategoryUnknown},
		{nil, CategoryUnknown},
	}

	for _, tc := range cases {
		if got := Classify(tc.err); got != tc.want {
			t.Errorf("Classify(%v) = %s, want %s", tc.err, got, tc.want)
		}
	}
}

func TestStatus_ReferenceTime(t *testing.T) {
	created := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s := NewExtractionStatus("cat-1", 3, created)

	if got := s.ReferenceTime(); !got.Equal(created) {
		t.Errorf("expected creation time, got %v", got)
	}

	later := created.Add(2 * time.Hour)
	s.Errors = append(s.Errors,
		ExtractionError{OccurredAt: created.Add(time.Hour)},
		ExtractionError{OccurredAt: later},
	)
	if got := s.ReferenceTime(); !got.Equal(later) {
		t.Errorf("expected latest error time, got %v", got)
	}
}

func TestStatus_Clone(t *testing.T) {
	page := 3
	next := time.Now()
	s := NewExtractionStatus("cat-1", 5, time.Now())
	s.PagesSeen[1] = true
	s.Errors = append(s.Errors, ExtractionError{Category: CategoryStorage, Page: &page})
	s.NextRetryTime = &next

	c := s.Clone()
	c.PagesSeen[2] = true
	c.Errors[0].RetryCount = 9
	*c.Errors[0].Page = 7
	*c.NextRetryTime = next.Add(time.Hour)

	if s.PagesSeen[2] {
		t.Error("clone shares PagesSeen map")
	}
	if s.Errors[0].RetryCount == 9 {
		t.Error("clone shares Errors slice")
	}
	if *s.Errors[0].Page == 7 {
		t.Error("clone shares error page pointer")
	}
	if !s.NextRetryTime.Equal(next) {
		t.Error("clone shares NextRetryTime pointer")
	}
}

func TestOutcomeFor(t *testing.T) {
	now := time.Now()

	success := &ExtractionStatus{CatalogID: "a", IsComplete: true, IsSuccess: true}
	if out := OutcomeFor(success, now); out.Status != SyncCompleted {
		t.Errorf("expected completed, got %s", out.Status)
	}

	partial := &ExtractionStatus{
		CatalogID:      "b",
		IsComplete:     true,
		ProcessedPages: 2,
		Errors:         []ExtractionError{{Category: CategoryStorage, Message: "x"}},
	}
	if out := OutcomeFor(partial, now); out.Status != SyncCompletedWithErrors {
		t.Errorf("expected completed_with_errors, got %s", out.Status)
	}

	nothing := &ExtractionStatus{
		CatalogID:  "c",
		IsComplete: true,
		Errors:     []ExtractionError{{Category: CategoryOcrProcessing}},
	}
	if out := OutcomeFor(nothing, now); out.Status != SyncFailed {
		t.Errorf("expected failed for zero progress, got %s", out.Status)
	}

	fatal := &ExtractionStatus{
		CatalogID:      "d",
		IsComplete:     true,
		IsFatal:        true,
		ProcessedPages: 5,
		Errors:         []ExtractionError{{Category: CategoryUnknown}},
	}
	if out := OutcomeFor(fatal, now); out.Status != SyncFailed {
		t.Errorf("fatal termination must report failed, got %s", out.Status)
	}
}
