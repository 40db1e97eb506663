// Package sqlite implements the status store on an embedded SQLite database
// using the pure-Go driver. Suited to single-node deployments that want
// durability without running PostgreSQL.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/Basilakis/kai-sub013/internal/core/domain"
	"github.com/Basilakis/kai-sub013/internal/infra/storage"
)

const schema = `
CREATE TABLE IF NOT EXISTS extraction_status (
	catalog_id      TEXT PRIMARY KEY,
	payload         TEXT NOT NULL,
	is_complete     INTEGER NOT NULL DEFAULT 0,
	is_retrying     INTEGER NOT NULL DEFAULT 0,
	next_retry_time INTEGER,
	ref_time        INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_extraction_status_due
	ON extraction_status (is_retrying, next_retry_time);
`

// StatusRepo is a SQLite-backed StatusRepository.
type StatusRepo struct {
	db *sqlx.DB
}

// Open opens (and, if needed, creates) the database at path and applies the
// schema.
func Open(path string) (*StatusRepo, error) {
	db, err := sqlx.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite store: %w", err)
	}
	// The driver is not safe for concurrent writes on multiple conns.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply sqlite schema: %w", err)
	}
	return &StatusRepo{db: db}, nil
}

type row struct {
	CatalogID     string        `db:"catalog_id"`
	Payload       string        `db:"payload"`
	IsComplete    bool          `db:"is_complete"`
	IsRetrying    bool          `db:"is_retrying"`
	NextRetryTime sql.NullInt64 `db:"next_retry_time"`
	RefTime       int64         `db:"ref_time"`
}

func toRow(s *domain.ExtractionStatus) (*row, error) {
	payload, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal status: %w", err)
	}
	r := &row{
		CatalogID:  s.CatalogID,
		Payload:    string(payload),
		IsComplete: s.IsComplete,
		IsRetrying: s.IsRetrying,
		RefTime:    s.ReferenceTime().Unix(),
	}
	if s.NextRetryTime != nil {
		r.NextRetryTime = sql.NullInt64{Int64: s.NextRetryTime.Unix(), Valid: true}
	}
	return r, nil
}

func (r *row) toStatus() (*domain.ExtractionStatus, error) {
	var s domain.ExtractionStatus
	if err := json.Unmarshal([]byte(r.Payload), &s); err != nil {
		return nil, fmt.Errorf("failed to unmarshal status %s: %w", r.CatalogID, err)
	}
	return &s, nil
}

func (r *StatusRepo) Create(ctx context.Context, status *domain.ExtractionStatus) error {
	var exists int
	err := r.db.GetContext(ctx, &exists,
		`SELECT COUNT(*) FROM extraction_status WHERE catalog_id = ?`, status.CatalogID)
	if err != nil {
		return fmt.Errorf("failed to check status existence: %w", err)
	}
	if exists > 0 {
		return storage.ErrAlreadyExists
	}

	rw, err := toRow(status)
	if err != nil {
		return err
	}
	_, err = r.db.NamedExecContext(ctx, `
		INSERT INTO extraction_status (catalog_id, payload, is_complete, is_retrying, next_retry_time, ref_time)
		VALUES (:catalog_id, :payload, :is_complete, :is_retrying, :next_retry_time, :ref_time)`, rw)
	if err != nil {
		return fmt.Errorf("failed to insert status: %w", err)
	}
	return nil
}

func (r *StatusRepo) Get(ctx context.Context, catalogID string) (*domain.ExtractionStatus, error) {
	var rw row
	err := r.db.GetContext(ctx, &rw,
		`SELECT catalog_id, payload, is_complete, is_retrying, next_retry_time, ref_time
		 FROM extraction_status WHERE catalog_id = ?`, catalogID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get status: %w", err)
	}
	return rw.toStatus()
}

func (r *StatusRepo) Save(ctx context.Context, status *domain.ExtractionStatus) error {
	rw, err := toRow(status)
	if err != nil {
		return err
	}
	res, err := r.db.NamedExecContext(ctx, `
		UPDATE extraction_status
		SET payload = :payload, is_complete = :is_complete, is_retrying = :is_retrying,
		    next_retry_time = :next_retry_time, ref_time = :ref_time
		WHERE catalog_id = :catalog_id`, rw)
	if err != nil {
		return fmt.Errorf("failed to update status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read update result: %w", err)
	}
	if n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (r *StatusRepo) Delete(ctx context.Context, catalogID string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM extraction_status WHERE catalog_id = ?`, catalogID)
	if err != nil {
		return fmt.Errorf("failed to delete status: %w", err)
	}
	return nil
}

func (r *StatusRepo) ListActive(ctx context.Context) ([]*domain.ExtractionStatus, error) {
	return r.query(ctx,
		`SELECT catalog_id, payload, is_complete, is_retrying, next_retry_time, ref_time
		 FROM extraction_status WHERE is_complete = 0`)
}

func (r *StatusRepo) ListDueForRetry(
	ctx context.Context,
	now time.Time,
) ([]*domain.ExtractionStatus, error) {
	return r.query(ctx,
		`SELECT catalog_id, payload, is_complete, is_retrying, next_retry_time, ref_time
		 FROM extraction_status
		 WHERE is_retrying = 1 AND next_retry_time IS NOT NULL AND next_retry_time <= ?`,
		now.Unix())
}

func (r *StatusRepo) ListComplete(ctx context.Context) ([]*domain.ExtractionStatus, error) {
	return r.query(ctx,
		`SELECT catalog_id, payload, is_complete, is_retrying, next_retry_time, ref_time
		 FROM extraction_status WHERE is_complete = 1`)
}

func (r *StatusRepo) Close() error { return r.db.Close() }

func (r *StatusRepo) query(
	ctx context.Context,
	query string,
	args ...any,
) ([]*domain.ExtractionStatus, error) {
	var rows []row
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list statuses: %w", err)
	}
	out := make([]*domain.ExtractionStatus, 0, len(rows))
	for i := range rows {
		s, err := rows[i].toStatus()
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}
