package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/Basilakis/kai-sub013/internal/core/domain"
)

// DeadLetterQueue holds catalog sync outcomes that could not be delivered.
// Entries live in a sorted set keyed by enqueue time plus one JSON value per
// entry, so the admin tool can list and requeue them in order.
type DeadLetterQueue struct {
	rdb *redis.Client
}

// DeadLetter is one parked catalog sync outcome.
type DeadLetter struct {
	ID         string                `json:"id"`
	Outcome    domain.CatalogOutcome `json:"outcome"`
	EnqueuedAt time.Time             `json:"enqueued_at"`
}

// NewDeadLetterQueue creates a Redis-backed dead-letter queue.
func NewDeadLetterQueue(client *Client) *DeadLetterQueue {
	return &DeadLetterQueue{rdb: client.conn}
}

// Key helpers
func queueKey() string {
	return "catalog_sync:dead_letters"
}

func entryKey(id string) string {
	return fmt.Sprintf("catalog_sync:dead_letter:%s", id)
}

// Push parks an undeliverable outcome and returns its generated id.
func (q *DeadLetterQueue) Push(ctx context.Context, outcome domain.CatalogOutcome) (string, error) {
	entry := DeadLetter{
		ID:         uuid.New().String(),
		Outcome:    outcome,
		EnqueuedAt: time.Now().UTC(),
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return "", fmt.Errorf("failed to marshal dead letter: %w", err)
	}

	if err := q.rdb.Set(ctx, entryKey(entry.ID), data, 0).Err(); err != nil {
		return "", fmt.Errorf("failed to set dead letter: %w", err)
	}

	if err := q.rdb.ZAdd(ctx, queueKey(), redis.Z{
		Score:  float64(entry.EnqueuedAt.Unix()),
		Member: entry.ID,
	}).Err(); err != nil {
		return "", fmt.Errorf("failed to add to dead-letter queue: %w", err)
	}

	return entry.ID, nil
}

// Get retrieves a parked entry by id.
func (q *DeadLetterQueue) Get(ctx context.Context, id string) (*DeadLetter, error) {
	data, err := q.rdb.Get(ctx, entryKey(id)).Bytes()
	if err == redis.Nil {
		return nil, fmt.Errorf("dead letter %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get dead letter: %w", err)
	}

	var entry DeadLetter
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("failed to unmarshal dead letter: %w", err)
	}
	return &entry, nil
}

// List returns all parked entries, oldest first.
func (q *DeadLetterQueue) List(ctx context.Context) ([]*DeadLetter, error) {
	ids, err := q.rdb.ZRange(ctx, queueKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("zrange failed: %w", err)
	}

	entries := make([]*DeadLetter, 0, len(ids))
	for _, id := range ids {
		data, err := q.rdb.Get(ctx, entryKey(id)).Bytes()
		if err == redis.Nil {
			// Value gone but id still queued, drop the orphan.
			q.rdb.ZRem(ctx, queueKey(), id)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to get dead letter: %w", err)
		}

		var entry DeadLetter
		if err := json.Unmarshal(data, &entry); err != nil {
			continue
		}
		entries = append(entries, &entry)
	}
	return entries, nil
}

// Remove deletes a parked entry (after successful requeue).
func (q *DeadLetterQueue) Remove(ctx context.Context, id string) error {
	if err := q.rdb.ZRem(ctx, queueKey(), id).Err(); err != nil {
		return fmt.Errorf("failed to remove from dead-letter queue: %w", err)
	}
	if err := q.rdb.Del(ctx, entryKey(id)).Err(); err != nil {
		return fmt.Errorf("failed to delete dead letter: %w", err)
	}
	return nil
}

// Count returns the number of parked entries.
func (q *DeadLetterQueue) Count(ctx context.Context) (int64, error) {
	count, err := q.rdb.ZCard(ctx, queueKey()).Result()
	if err != nil {
		return 0, fmt.Errorf("zcard failed: %w", err)
	}
	return count, nil
}
