package catalog

import (
	"context"
	"log/slog"

	"github.com/Basilakis/kai-sub013/internal/core/domain"
)

// LogSync writes terminal outcomes to the log. Dev-mode sink for running
// without a catalog updater.
type LogSync struct {
	log *slog.Logger
}

// NewLogSync creates a log-only catalog sync.
func NewLogSync(log *slog.Logger) *LogSync {
	if log == nil {
		log = slog.Default()
	}
	return &LogSync{log: log.With("component", "catalog-sync")}
}

func (s *LogSync) Publish(ctx context.Context, outcome domain.CatalogOutcome) error {
	s.log.Info("Catalog outcome",
		"catalog_id", outcome.CatalogID,
		"status", outcome.Status,
		"errors", len(outcome.Errors))
	return nil
}
