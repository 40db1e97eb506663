package e2e

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/Basilakis/kai-sub013/internal/control"
	"github.com/Basilakis/kai-sub013/internal/core/config"
	"github.com/Basilakis/kai-sub013/internal/core/domain"
	"github.com/Basilakis/kai-sub013/internal/extraction/retry"
)

type captureSync struct {
	mu       sync.Mutex
	outcomes []domain.CatalogOutcome
}

func (c *captureSync) Publish(ctx context.Context, outcome domain.CatalogOutcome) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.outcomes = append(c.outcomes, outcome)
	return nil
}

func (c *captureSync) all() []domain.CatalogOutcome {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]domain.CatalogOutcome(nil), c.outcomes...)
}

func testConfig() *config.AppConfig {
	return &config.AppConfig{
		Server:  config.ServerConfig{Port: 0},
		Storage: config.StorageConfig{Backend: "memory"},
		Retry: retry.Config{
			Interval:    50 * time.Millisecond,
			Retention:   time.Hour,
			Concurrency: 2,
		},
	}
}

func TestGracefulShutdown(t *testing.T) {
	svc, err := control.New(testConfig(), control.Deps{CatalogSync: &captureSync{}})
	if err != nil {
		t.Fatalf("Failed to create service: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	if err := svc.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	// Let the worker take a few passes before shutting down.
	time.Sleep(200 * time.Millisecond)
	cancel()

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer stopCancel()

	if err := svc.Stop(stopCtx); err != nil {
		t.Errorf("Stop failed: %v", err)
	}
}

func TestJobLifecycle(t *testing.T) {
	sink := &captureSync{}
	svc, err := control.New(testConfig(), control.Deps{CatalogSync: sink})
	if err != nil {
		t.Fatalf("Failed to create service: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := svc.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	reporter := svc.Reporter()
	if err := reporter.StartJob(ctx, "cat-e2e", 2); err != nil {
		t.Fatalf("StartJob failed: %v", err)
	}
	if err := reporter.PageDone(ctx, "cat-e2e", 1); err != nil {
		t.Fatalf("PageDone failed: %v", err)
	}
	if err := reporter.PageDone(ctx, "cat-e2e", 2); err != nil {
		t.Fatalf("PageDone failed: %v", err)
	}

	status, err := svc.Tracker().Get(ctx, "cat-e2e")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !status.IsComplete || !status.IsSuccess || status.ProcessedPages != 2 {
		t.Errorf("expected completed successful job, got %+v", status)
	}

	outcomes := sink.all()
	if len(outcomes) != 1 {
		t.Fatalf("expected exactly one catalog sync, got %d", len(outcomes))
	}
	if outcomes[0].Status != domain.SyncCompleted || len(outcomes[0].Errors) != 0 {
		t.Errorf("unexpected outcome: %+v", outcomes[0])
	}

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer stopCancel()
	if err := svc.Stop(stopCtx); err != nil {
		t.Errorf("Stop failed: %v", err)
	}
}
