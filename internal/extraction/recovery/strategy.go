package recovery

import (
	"context"
	"errors"
	"fmt"
)

var (
	errExhausted  = errors.New("recovery ladder exhausted")
	errNoStrategy = errors.New("no recovery strategy for category")
	errUnset      = errors.New("remediation action not registered")
)

// invoke runs one remediation action, treating an unregistered action as a
// failed attempt.
func invoke(ctx context.Context, fn RemediationFunc, catalogID string) error {
	if fn == nil {
		return errUnset
	}
	return fn(ctx, catalogID)
}

// ladderStrategy walks a fixed sequence of remediation actions, one per
// attempt number.
type ladderStrategy struct {
	rungs []RemediationFunc
}

func (s *ladderStrategy) Attempt(ctx context.Context, catalogID string, retryCount int) error {
	if retryCount < 0 || retryCount >= len(s.rungs) {
		return fmt.Errorf("%w: attempt %d", errExhausted, retryCount)
	}
	return invoke(ctx, s.rungs[retryCount], catalogID)
}

func (s *ladderStrategy) MaxRetries() int { return len(s.rungs) }

// storageStrategy retries the upload while budget remains; storage faults
// are assumed transient so the same action is repeated.
type storageStrategy struct {
	retry      RemediationFunc
	maxRetries int
}

func (s *storageStrategy) Attempt(ctx context.Context, catalogID string, retryCount int) error {
	if retryCount >= s.maxRetries {
		return fmt.Errorf("%w: attempt %d", errExhausted, retryCount)
	}
	return invoke(ctx, s.retry, catalogID)
}

func (s *storageStrategy) MaxRetries() int { return s.maxRetries }

// noRetryStrategy always fails: no remediation improves the outcome.
type noRetryStrategy struct{}

func (noRetryStrategy) Attempt(ctx context.Context, catalogID string, retryCount int) error {
	return errNoStrategy
}

func (noRetryStrategy) MaxRetries() int { return 0 }
