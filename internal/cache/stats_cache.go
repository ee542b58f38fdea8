package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// StatsCache is a short-TTL read-side cache for stats responses. The store
// stays authoritative: any cache failure is logged and treated as a miss, and
// writes are best-effort. A nil *StatsCache is valid and caches nothing.
type StatsCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

func NewStatsCache(client *redis.Client, ttl time.Duration, logger *slog.Logger) *StatsCache {
	if logger == nil {
		logger = slog.Default()
	}
	return &StatsCache{
		client: client,
		ttl:    ttl,
		logger: logger,
	}
}

// Get unmarshals the cached value for key into dest and reports whether it
// was a hit.
func (c *StatsCache) Get(ctx context.Context, key string, dest any) bool {
	if c == nil {
		return false
	}
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.WarnContext(ctx, "stats cache read failed", "key", key, "error", err)
		}
		return false
	}
	if err := json.Unmarshal(data, dest); err != nil {
		c.logger.WarnContext(ctx, "stats cache entry corrupt", "key", key, "error", err)
		return false
	}
	return true
}

// Set stores value under key for the configured TTL.
func (c *StatsCache) Set(ctx context.Context, key string, value any) {
	if c == nil {
		return
	}
	data, err := json.Marshal(value)
	if err != nil {
		c.logger.WarnContext(ctx, "stats cache marshal failed", "key", key, "error", err)
		return
	}
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.logger.WarnContext(ctx, "stats cache write failed", "key", key, "error", err)
	}
}
