package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"

	"github.com/Basilakis/kai-sub013/internal/core/domain"
	"github.com/Basilakis/kai-sub013/internal/infra/storage"
)

// StatusRepo implements storage.StatusRepository on PostgreSQL.
type StatusRepo struct {
	db *DB
}

// NewStatusRepo creates a PostgreSQL-backed status repository.
func NewStatusRepo(db *DB) *StatusRepo {
	return &StatusRepo{db: db}
}

type row struct {
	CatalogID     string       `db:"catalog_id"`
	Payload       []byte       `db:"payload"`
	IsComplete    bool         `db:"is_complete"`
	IsRetrying    bool         `db:"is_retrying"`
	NextRetryTime sql.NullTime `db:"next_retry_time"`
	RefTime       time.Time    `db:"ref_time"`
}

func toRow(s *domain.ExtractionStatus) (*row, error) {
	payload, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal status: %w", err)
	}
	r := &row{
		CatalogID:  s.CatalogID,
		Payload:    payload,
		IsComplete: s.IsComplete,
		IsRetrying: s.IsRetrying,
		RefTime:    s.ReferenceTime(),
	}
	if s.NextRetryTime != nil {
		r.NextRetryTime = sql.NullTime{Time: *s.NextRetryTime, Valid: true}
	}
	return r, nil
}

func (r *row) toStatus() (*domain.ExtractionStatus, error) {
	var s domain.ExtractionStatus
	if err := json.Unmarshal(r.Payload, &s); err != nil {
		return nil, fmt.Errorf("failed to unmarshal status %s: %w", r.CatalogID, err)
	}
	return &s, nil
}

func (r *StatusRepo) Create(ctx context.Context, status *domain.ExtractionStatus) error {
	rw, err := toRow(status)
	if err != nil {
		return err
	}
	_, err = r.db.NamedExecContext(ctx, `
		INSERT INTO extraction_status (catalog_id, payload, is_complete, is_retrying, next_retry_time, ref_time)
		VALUES (:catalog_id, :payload, :is_complete, :is_retrying, :next_retry_time, :ref_time)`, rw)
	if err != nil {
		if isUniqueViolation(err) {
			return storage.ErrAlreadyExists
		}
		return fmt.Errorf("failed to insert status: %w", err)
	}
	return nil
}

// isUniqueViolation detects a duplicate key error from either driver.
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

func (r *StatusRepo) Get(ctx context.Context, catalogID string) (*domain.ExtractionStatus, error) {
	var rw row
	err := r.db.GetContext(ctx, &rw, `
		SELECT catalog_id, payload, is_complete, is_retrying, next_retry_time, ref_time
		FROM extraction_status WHERE catalog_id = $1`, catalogID)
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
		`DELETE FROM extraction_status WHERE catalog_id = $1`, catalogID)
	if err != nil {
		return fmt.Errorf("failed to delete status: %w", err)
	}
	return nil
}

func (r *StatusRepo) ListActive(ctx context.Context) ([]*domain.ExtractionStatus, error) {
	return r.query(ctx, `
		SELECT catalog_id, payload, is_complete, is_retrying, next_retry_time, ref_time
		FROM extraction_status WHERE NOT is_complete`)
}

func (r *StatusRepo) ListDueForRetry(
	ctx context.Context,
	now time.Time,
) ([]*domain.ExtractionStatus, error) {
	return r.query(ctx, `
		SELECT catalog_id, payload, is_complete, is_retrying, next_retry_time, ref_time
		FROM extraction_status
		WHERE is_retrying AND next_retry_time IS NOT NULL AND next_retry_time <= $1`, now)
}

func (r *StatusRepo) ListComplete(ctx context.Context) ([]*domain.ExtractionStatus, error) {
	return r.query(ctx, `
		SELECT catalog_id, payload, is_complete, is_retrying, next_retry_time, ref_time
		FROM extraction_status WHERE is_complete`)
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
