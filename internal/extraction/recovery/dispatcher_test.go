package recovery

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Basilakis/kai-sub013/internal/core/domain"
)

func errOf(category domain.ErrorCategory, retryCount int) domain.ExtractionError {
	return domain.ExtractionError{
		Category:    category,
		RetryCount:  retryCount,
		MaxRetries:  DefaultMaxRetries(category),
		Recoverable: true,
	}
}

func TestDispatcher_PdfLadderSelection(t *testing.T) {
	var called []string
	record := func(name string, err error) RemediationFunc {
		return func(ctx context.Context, catalogID string) error {
			called = append(called, name)
			return err
		}
	}

	d := NewDispatcher(Funcs{
		SwitchPdfBackend:   record("switch", nil),
		RepairPdfStructure: record("repair", nil),
	}, time.Second, nil)

	ctx := context.Background()
	if !d.AttemptRecovery(ctx, "cat-1", errOf(domain.CategoryPdfParsing, 0)) {
		t.Error("attempt 0 should recover")
	}
	if !d.AttemptRecovery(ctx, "cat-1", errOf(domain.CategoryPdfParsing, 1)) {
		t.Error("attempt 1 should recover")
	}
	if d.AttemptRecovery(ctx, "cat-1", errOf(domain.CategoryPdfParsing, 2)) {
		t.Error("attempt 2 is past the ladder and must fail")
	}

	if len(called) != 2 || called[0] != "switch" || called[1] != "repair" {
		t.Errorf("wrong rung selection: %v", called)
	}
}

func TestDispatcher_OcrLadderDepth(t *testing.T) {
	ok := func(ctx context.Context, catalogID string) error { return nil }
	d := NewDispatcher(Funcs{
		AlternateOcrEngine:  ok,
		AlternatePreprocess: ok,
		LowerOcrResolution:  ok,
	}, time.Second, nil)

	ctx := context.Background()
	for attempt := 0; attempt < 3; attempt++ {
		if !d.AttemptRecovery(ctx, "cat-1", errOf(domain.CategoryOcrProcessing, attempt)) {
			t.Errorf("ocr attempt %d should recover", attempt)
		}
	}
	if d.AttemptRecovery(ctx, "cat-1", errOf(domain.CategoryOcrProcessing, 3)) {
		t.Error("ocr attempt 3 must fail")
	}
}

func TestDispatcher_StorageTransient(t *testing.T) {
	d := NewDispatcher(Funcs{
		RetryUpload: func(ctx context.Context, catalogID string) error { return nil },
	}, time.Second, nil)

	ctx := context.Background()
	for attempt := 0; attempt < 3; attempt++ {
		if !d.AttemptRecovery(ctx, "cat-1", errOf(domain.CategoryStorage, attempt)) {
			t.Errorf("storage attempt %d should recover", attempt)
		}
	}
	if d.AttemptRecovery(ctx, "cat-1", errOf(domain.CategoryStorage, 3)) {
		t.Error("storage attempt 3 must fail")
	}
}

func TestDispatcher_NoRetryCategories(t *testing.T) {
	d := NewDispatcher(Funcs{}, time.Second, nil)
	ctx := context.Background()

	if d.AttemptRecovery(ctx, "cat-1", errOf(domain.CategoryTextAssociation, 0)) {
		t.Error("text association is never recoverable")
	}
	if d.AttemptRecovery(ctx, "cat-1", errOf(domain.CategoryUnknown, 0)) {
		t.Error("unknown is never recoverable")
	}
}

func TestDispatcher_UnsetActionFails(t *testing.T) {
	d := NewDispatcher(Funcs{}, time.Second, nil)

	if d.AttemptRecovery(context.Background(), "cat-1", errOf(domain.CategoryPdfParsing, 0)) {
		t.Error("unregistered remediation must count as a failed attempt")
	}
}

func TestDispatcher_RemediationError(t *testing.T) {
	d := NewDispatcher(Funcs{
		SwitchPdfBackend: func(ctx context.Context, catalogID string) error {
			return errors.New("backend also choked")
		},
	}, time.Second, nil)

	if d.AttemptRecovery(context.Background(), "cat-1", errOf(domain.CategoryPdfParsing, 0)) {
		t.Error("remediation error must count as a failed attempt")
	}
}

func TestDispatcher_TimeoutIsFailedAttempt(t *testing.T) {
	d := NewDispatcher(Funcs{
		RetryUpload: func(ctx context.Context, catalogID string) error {
			select {
			case <-time.After(5 * time.Second):
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		},
	}, 20*time.Millisecond, nil)

	start := time.Now()
	if d.AttemptRecovery(context.Background(), "cat-1", errOf(domain.CategoryStorage, 0)) {
		t.Error("timed-out remediation must count as a failed attempt")
	}
	if time.Since(start) > time.Second {
		t.Error("dispatcher did not honor the timeout")
	}
}

func TestDispatcher_PanicIsFailedAttempt(t *testing.T) {
	d := NewDispatcher(Funcs{
		AlternateImageMethod: func(ctx context.Context, catalogID string) error {
			panic("remediation bug")
		},
	}, time.Second, nil)

	if d.AttemptRecovery(context.Background(), "cat-1", errOf(domain.CategoryImageExtraction, 0)) {
		t.Error("panicking remediation must count as a failed attempt")
	}
}

func TestDefaultMaxRetries(t *testing.T) {
	cases := map[domain.ErrorCategory]int{
		domain.CategoryPdfParsing:      2,
		domain.CategoryImageExtraction: 2,
		domain.CategoryOcrProcessing:   3,
		domain.CategoryStorage:         3,
		domain.CategoryTextAssociation: 0,
		domain.CategoryUnknown:         0,
	}
	for category, want := range cases {
		if got := DefaultMaxRetries(category); got != want {
			t.Errorf("DefaultMaxRetries(%s) = %d, want %d", category, got, want)
		}
	}
}
