package file

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/Basilakis/kai-sub013/internal/core/domain"
	"github.com/Basilakis/kai-sub013/internal/infra/storage"
)

func TestFileStore_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "status.json")

	repo, err := Open(path)
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}

	now := time.Now().UTC()
	s := domain.NewExtractionStatus("cat-1", 5, now)
	s.ProcessedPages = 2
	s.PagesSeen[1] = true
	s.PagesSeen[2] = true
	page := 3
	next := now.Add(time.Minute)
	s.Errors = append(s.Errors, domain.ExtractionError{
		Category:    domain.CategoryOcrProcessing,
		Message:     "low confidence",
		Page:        &page,
		OccurredAt:  now,
		MaxRetries:  3,
		Recoverable: true,
	})
	s.IsRetrying = true
	s.NextRetryTime = &next

	if err := repo.Create(ctx, s); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	// Reopen from disk and verify the full record survived.
	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	got, err := reopened.Get(ctx, "cat-1")
	if err != nil {
		t.Fatalf("get after reopen failed: %v", err)
	}
	if got.ProcessedPages != 2 || !got.PagesSeen[2] {
		t.Errorf("page progress lost: %+v", got)
	}
	if len(got.Errors) != 1 || got.Errors[0].Page == nil || *got.Errors[0].Page != 3 {
		t.Errorf("errors lost: %+v", got.Errors)
	}
	if !got.IsRetrying || got.NextRetryTime == nil || !got.NextRetryTime.Equal(next) {
		t.Errorf("retry state lost: %+v", got)
	}
}

func TestFileStore_CreateDuplicate(t *testing.T) {
	ctx := context.Background()
	repo, _ := Open(filepath.Join(t.TempDir(), "status.json"))

	s := domain.NewExtractionStatus("cat-1", 1, time.Now())
	if err := repo.Create(ctx, s); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if err := repo.Create(ctx, s); !errors.Is(err, storage.ErrAlreadyExists) {
		t.Errorf("expected ErrAlreadyExists, got %v", err)
	}
}

func TestFileStore_SaveMissing(t *testing.T) {
	ctx := context.Background()
	repo, _ := Open(filepath.Join(t.TempDir(), "status.json"))

	s := domain.NewExtractionStatus("ghost", 1, time.Now())
	if err := repo.Save(ctx, s); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestFileStore_DeleteAndListing(t *testing.T) {
	ctx := context.Background()
	repo, _ := Open(filepath.Join(t.TempDir(), "status.json"))
	now := time.Now().UTC()

	active := domain.NewExtractionStatus("active", 3, now)
	repo.Create(ctx, active)

	done := domain.NewExtractionStatus("done", 1, now)
	done.IsComplete = true
	repo.Create(ctx, done)

	due := domain.NewExtractionStatus("due", 1, now)
	past := now.Add(-time.Minute)
	due.IsRetrying = true
	due.NextRetryTime = &past
	repo.Create(ctx, due)

	activeList, _ := repo.ListActive(ctx)
	if len(activeList) != 2 {
		t.Errorf("expected 2 active, got %d", len(activeList))
	}

	dueList, _ := repo.ListDueForRetry(ctx, now)
	if len(dueList) != 1 || dueList[0].CatalogID != "due" {
		t.Errorf("expected only the due record, got %+v", dueList)
	}

	completeList, _ := repo.ListComplete(ctx)
	if len(completeList) != 1 || completeList[0].CatalogID != "done" {
		t.Errorf("expected only the complete record, got %+v", completeList)
	}

	if err := repo.Delete(ctx, "done"); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if _, err := repo.Get(ctx, "done"); !errors.Is(err, storage.ErrNotFound) {
		t.Error("deleted record still readable")
	}

	// Deleting an absent record is not an error.
	if err := repo.Delete(ctx, "done"); err != nil {
		t.Errorf("double delete errored: %v", err)
	}
}

func TestFileStore_HandsOutCopies(t *testing.T) {
	ctx := context.Background()
	repo, _ := Open(filepath.Join(t.TempDir(), "status.json"))

	s := domain.NewExtractionStatus("cat-1", 3, time.Now())
	repo.Create(ctx, s)

	got, _ := repo.Get(ctx, "cat-1")
	got.ProcessedPages = 99

	again, _ := repo.Get(ctx, "cat-1")
	if again.ProcessedPages == 99 {
		t.Error("store handed out a shared reference")
	}
}
