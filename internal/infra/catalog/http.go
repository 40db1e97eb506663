// Package catalog delivers terminal extraction outcomes to the owning
// catalog record.
package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/Basilakis/kai-sub013/internal/core/domain"
)

// HTTPSync posts the terminal outcome to the external catalog record
// updater. Transport-level retries here are small and bounded; they are
// unrelated to the domain retry policy, which lives in the tracker.
type HTTPSync struct {
	url    string
	client *http.Client
}

// NewHTTPSync creates a sync that POSTs outcomes to url.
func NewHTTPSync(url string, timeout time.Duration) *HTTPSync {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPSync{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

// Publish delivers one outcome, retrying transient failures with a short
// exponential backoff (3 retries starting at 500ms).
func (s *HTTPSync) Publish(ctx context.Context, outcome domain.CatalogOutcome) error {
	body, err := json.Marshal(outcome)
	if err != nil {
		return fmt.Errorf("failed to marshal outcome: %w", err)
	}

	backoff := retry.WithMaxRetries(3, retry.NewExponential(500*time.Millisecond))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("failed to build sync request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := s.client.Do(req)
		if err != nil {
			return retry.RetryableError(fmt.Errorf("sync request failed: %w", err))
		}
		defer resp.Body.Close()
		_, _ = io.Copy(io.Discard, resp.Body)

		switch {
		case resp.StatusCode >= 200 && resp.StatusCode < 300:
			return nil
		case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
			return retry.RetryableError(fmt.Errorf("catalog updater returned %d", resp.StatusCode))
		default:
			return fmt.Errorf("catalog updater rejected outcome: %d", resp.StatusCode)
		}
	})
}
