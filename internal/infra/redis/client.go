// Package redis holds the dead-letter queue for catalog outcomes that could
// not be delivered, plus the thin connection wrapper it runs on.
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const connectTimeout = 5 * time.Second

// Config holds Redis connection settings. Password, when set, overrides any
// credential embedded in the URL.
type Config struct {
	URL      string `yaml:"url"`
	Password string `yaml:"password"`
}

// Client is the shared Redis handle.
type Client struct {
	conn *redis.Client
}

// NewClient connects and verifies the server is reachable before returning.
func NewClient(cfg Config) (*Client, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}
	if cfg.Password != "" {
		opts.Password = cfg.Password
	}

	conn := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	if err := conn.Ping(ctx).Err(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &Client{conn: conn}, nil
}

// Close releases the connection pool.
func (c *Client) Close() error {
	return c.conn.Close()
}
