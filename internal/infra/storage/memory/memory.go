package memory

import (
	"context"
	"sync"
	"time"

	"github.com/Basilakis/kai-sub013/internal/core/domain"
	"github.com/Basilakis/kai-sub013/internal/infra/storage"
)

// StatusRepo is an in-memory StatusRepository used by tests and dev mode.
type StatusRepo struct {
	mu       sync.RWMutex
	statuses map[string]*domain.ExtractionStatus
}

// NewStatusRepo creates an empty in-memory repository.
func NewStatusRepo() *StatusRepo {
	return &StatusRepo{statuses: make(map[string]*domain.ExtractionStatus)}
}

func (r *StatusRepo) Create(ctx context.Context, status *domain.ExtractionStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.statuses[status.CatalogID]; ok {
		return storage.ErrAlreadyExists
	}
	r.statuses[status.CatalogID] = status.Clone()
	return nil
}

func (r *StatusRepo) Get(ctx context.Context, catalogID string) (*domain.ExtractionStatus, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.statuses[catalogID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return s.Clone(), nil
}

func (r *StatusRepo) Save(ctx context.Context, status *domain.ExtractionStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.statuses[status.CatalogID]; !ok {
		return storage.ErrNotFound
	}
	r.statuses[status.CatalogID] = status.Clone()
	return nil
}

func (r *StatusRepo) Delete(ctx context.Context, catalogID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.statuses, catalogID)
	return nil
}

func (r *StatusRepo) ListActive(ctx context.Context) ([]*domain.ExtractionStatus, error) {
	return r.list(func(s *domain.ExtractionStatus) bool { return !s.IsComplete }), nil
}

func (r *StatusRepo) ListDueForRetry(
	ctx context.Context,
	now time.Time,
) ([]*domain.ExtractionStatus, error) {
	return r.list(func(s *domain.ExtractionStatus) bool { return s.DueForRetry(now) }), nil
}

func (r *StatusRepo) ListComplete(ctx context.Context) ([]*domain.ExtractionStatus, error) {
	return r.list(func(s *domain.ExtractionStatus) bool { return s.IsComplete }), nil
}

func (r *StatusRepo) Close() error { return nil }

func (r *StatusRepo) list(keep func(*domain.ExtractionStatus) bool) []*domain.ExtractionStatus {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*domain.ExtractionStatus, 0)
	for _, s := range r.statuses {
		if keep(s) {
			out = append(out, s.Clone())
		}
	}
	return out
}
