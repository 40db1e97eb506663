package catalog

import (
	"context"
	"log/slog"

	"github.com/Basilakis/kai-sub013/internal/core/domain"
	"github.com/Basilakis/kai-sub013/internal/core/status"
	"github.com/Basilakis/kai-sub013/internal/extraction/metrics"
)

// Parker stores outcomes that could not be delivered for later requeue.
type Parker interface {
	Push(ctx context.Context, outcome domain.CatalogOutcome) (string, error)
}

// DeadLetter decorates a catalog sync: when delivery fails, the outcome is
// parked for the admin tool to requeue and the failure is swallowed; the
// job must never re-open because of a sync problem.
type DeadLetter struct {
	next  status.CatalogSync
	queue Parker
	log   *slog.Logger
}

// NewDeadLetter wraps next with dead-lettering via queue.
func NewDeadLetter(next status.CatalogSync, queue Parker, log *slog.Logger) *DeadLetter {
	if log == nil {
		log = slog.Default()
	}
	return &DeadLetter{
		next:  next,
		queue: queue,
		log:   log.With("component", "catalog-sync"),
	}
}

func (d *DeadLetter) Publish(ctx context.Context, outcome domain.CatalogOutcome) error {
	err := d.next.Publish(ctx, outcome)
	if err == nil {
		return nil
	}

	id, pushErr := d.queue.Push(ctx, outcome)
	if pushErr != nil {
		d.log.Error("Failed to dead-letter catalog outcome",
			"catalog_id", outcome.CatalogID, "sync_error", err, "error", pushErr)
		return err
	}

	metrics.DeadLetters.Inc()
	d.log.Warn("Catalog outcome dead-lettered",
		"catalog_id", outcome.CatalogID, "dead_letter_id", id, "error", err)
	return nil
}
