package storage

import (
	"context"
	"errors"
	"time"

	"github.com/Basilakis/kai-sub013/internal/core/domain"
)

var (
	// ErrNotFound is returned when no status exists for a catalog id.
	ErrNotFound = errors.New("extraction status not found")

	// ErrAlreadyExists is returned when initializing an already-tracked job.
	ErrAlreadyExists = errors.New("extraction status already exists")
)

// StatusRepository persists extraction job statuses keyed by catalog id.
// Implementations guarantee durable, torn-write-free persistence of records;
// per-job mutation ordering is enforced above this interface by the tracker.
type StatusRepository interface {
	// Create inserts a new record. Returns ErrAlreadyExists if tracked.
	Create(ctx context.Context, status *domain.ExtractionStatus) error

	// Get retrieves a record by catalog id. Returns ErrNotFound if absent.
	Get(ctx context.Context, catalogID string) (*domain.ExtractionStatus, error)

	// Save overwrites an existing record. Returns ErrNotFound if absent.
	Save(ctx context.Context, status *domain.ExtractionStatus) error

	// Delete removes a record. Deleting an absent record is not an error.
	Delete(ctx context.Context, catalogID string) error

	// ListActive returns all records with IsComplete == false.
	ListActive(ctx context.Context) ([]*domain.ExtractionStatus, error)

	// ListDueForRetry returns all retrying records with NextRetryTime <= now.
	ListDueForRetry(ctx context.Context, now time.Time) ([]*domain.ExtractionStatus, error)

	// ListComplete returns all records with IsComplete == true.
	ListComplete(ctx context.Context) ([]*domain.ExtractionStatus, error)

	// Close releases the backing resources.
	Close() error
}
