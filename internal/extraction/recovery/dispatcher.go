package recovery

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Basilakis/kai-sub013/internal/core/domain"
	"github.com/Basilakis/kai-sub013/internal/extraction/metrics"
)

// DefaultRemediationTimeout bounds a single remediation call.
const DefaultRemediationTimeout = 30 * time.Second

// Dispatcher routes an error to its category strategy and reports whether
// the attempt recovered it. It never mutates the status store.
type Dispatcher struct {
	strategies map[domain.ErrorCategory]Strategy
	timeout    time.Duration
	log        *slog.Logger
}

// NewDispatcher builds the category -> strategy table from the remediation
// actions the ingestion pipeline registered.
func NewDispatcher(funcs Funcs, timeout time.Duration, log *slog.Logger) *Dispatcher {
	if timeout <= 0 {
		timeout = DefaultRemediationTimeout
	}
	if log == nil {
		log = slog.Default()
	}
	return &Dispatcher{
		strategies: map[domain.ErrorCategory]Strategy{
			domain.CategoryPdfParsing: &ladderStrategy{rungs: []RemediationFunc{
				funcs.SwitchPdfBackend,
				funcs.RepairPdfStructure,
			}},
			domain.CategoryImageExtraction: &ladderStrategy{rungs: []RemediationFunc{
				funcs.AlternateImageMethod,
				funcs.ReducedQualityExtract,
			}},
			domain.CategoryOcrProcessing: &ladderStrategy{rungs: []RemediationFunc{
				funcs.AlternateOcrEngine,
				funcs.AlternatePreprocess,
				funcs.LowerOcrResolution,
			}},
			domain.CategoryStorage:         &storageStrategy{retry: funcs.RetryUpload, maxRetries: 3},
			domain.CategoryTextAssociation: noRetryStrategy{},
			domain.CategoryUnknown:         noRetryStrategy{},
		},
		timeout: timeout,
		log:     log.With("component", "recovery-dispatcher"),
	}
}

// AttemptRecovery runs the remediation selected by the error's category and
// retry count. Timeouts and panics inside the remediation are failed
// attempts; the worker loop must never crash because of one.
func (d *Dispatcher) AttemptRecovery(
	ctx context.Context,
	catalogID string,
	e domain.ExtractionError,
) bool {
	strategy, ok := d.strategies[e.Category]
	if !ok {
		strategy = noRetryStrategy{}
	}

	err := d.attempt(ctx, strategy, catalogID, e.RetryCount)
	result := "recovered"
	if err != nil {
		result = "failed"
		d.log.Warn("Recovery attempt failed",
			"catalog_id", catalogID,
			"category", e.Category,
			"retry_count", e.RetryCount,
			"error", err)
	} else {
		d.log.Info("Recovery attempt succeeded",
			"catalog_id", catalogID,
			"category", e.Category,
			"retry_count", e.RetryCount)
	}
	metrics.RecoveryAttempts.WithLabelValues(string(e.Category), result).Inc()
	return err == nil
}

func (d *Dispatcher) attempt(
	ctx context.Context,
	strategy Strategy,
	catalogID string,
	retryCount int,
) (err error) {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("remediation panicked: %v", r)
		}
	}()

	done := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- fmt.Errorf("remediation panicked: %v", r)
			}
		}()
		done <- strategy.Attempt(ctx, catalogID, retryCount)
	}()

	select {
	case err = <-done:
		return err
	case <-ctx.Done():
		return fmt.Errorf("remediation timed out: %w", ctx.Err())
	}
}
