// Package cache provides the Redis access layer: ledger caching and rate limiting.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Options tunes the Redis client. Zero fields fall back to DefaultOptions.
type Options struct {
	PoolSize    int
	DialTimeout time.Duration
	// OpTimeout bounds each read and write; the ledger cache is an
	// optimization, so a slow Redis should fail fast to the store.
	OpTimeout time.Duration
}

// DefaultOptions returns the pool settings used when none are configured.
func DefaultOptions() Options {
	return Options{
		PoolSize:    10,
		DialTimeout: 2 * time.Second,
		OpTimeout:   500 * time.Millisecond,
	}
}

// Cache holds the Redis client shared by the ledger cache, the rate limiter
// and the event stream.
type Cache struct {
	client *redis.Client
}

// New connects to redisURL and verifies it with a PING.
func New(ctx context.Context, redisURL string, opts Options) (*Cache, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	applyOptions(opt, opts)

	client := redis.NewClient(opt)

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}

	return &Cache{client: client}, nil
}

func applyOptions(opt *redis.Options, opts Options) {
	def := DefaultOptions()
	if opts.PoolSize <= 0 {
		opts.PoolSize = def.PoolSize
	}
	if opts.DialTimeout <= 0 {
		opts.DialTimeout = def.DialTimeout
	}
	if opts.OpTimeout <= 0 {
		opts.OpTimeout = def.OpTimeout
	}

	opt.PoolSize = opts.PoolSize
	opt.MinIdleConns = max(1, opts.PoolSize/5)
	opt.DialTimeout = opts.DialTimeout
	opt.ReadTimeout = opts.OpTimeout
	opt.WriteTimeout = opts.OpTimeout
	opt.PoolTimeout = opts.OpTimeout + time.Second
	opt.ConnMaxIdleTime = 5 * time.Minute
}

// Ping checks Redis connectivity.
func (c *Cache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close closes the Redis client.
func (c *Cache) Close() error {
	return c.client.Close()
}

// Client returns the underlying Redis client for the event stream.
func (c *Cache) Client() *redis.Client {
	return c.client
}
