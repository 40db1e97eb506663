// Package file implements the default whole-file JSON status store: the full
// catalogId -> status map is loaded at open and rewritten on every save.
// Write amplification is acceptable at expected job volumes (tens to low
// hundreds of concurrent jobs) and buys crash-restart recovery for free.
package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/Basilakis/kai-sub013/internal/core/domain"
	"github.com/Basilakis/kai-sub013/internal/infra/storage"
)

// StatusRepo persists all statuses into a single JSON file.
type StatusRepo struct {
	path     string
	mu       sync.RWMutex
	statuses map[string]*domain.ExtractionStatus
}

// Open loads the store from path, creating the parent directory if needed.
// A missing file yields an empty store.
func Open(path string) (*StatusRepo, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}

	r := &StatusRepo{
		path:     path,
		statuses: make(map[string]*domain.ExtractionStatus),
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return r, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read status store: %w", err)
	}
	if len(data) == 0 {
		return r, nil
	}
	if err := json.Unmarshal(data, &r.statuses); err != nil {
		return nil, fmt.Errorf("failed to parse status store: %w", err)
	}
	return r, nil
}

func (r *StatusRepo) Create(ctx context.Context, status *domain.ExtractionStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.statuses[status.CatalogID]; ok {
		return storage.ErrAlreadyExists
	}
	r.statuses[status.CatalogID] = status.Clone()
	return r.flushLocked()
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
	return r.flushLocked()
}

func (r *StatusRepo) Delete(ctx context.Context, catalogID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.statuses[catalogID]; !ok {
		return nil
	}
	delete(r.statuses, catalogID)
	return r.flushLocked()
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

// flushLocked rewrites the whole store via temp file + rename so a crash
// mid-write never leaves a torn file behind. Caller must hold the write lock.
func (r *StatusRepo) flushLocked() error {
	data, err := json.MarshalIndent(r.statuses, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal status store: %w", err)
	}

	tmp := r.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write status store: %w", err)
	}
	if err := os.Rename(tmp, r.path); err != nil {
		return fmt.Errorf("failed to replace status store: %w", err)
	}
	return nil
}
