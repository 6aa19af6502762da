// Package cache provides a short-TTL redis cache for verification responses.
// The cache is strictly optional: a nil cache is a no-op, and cache failures
// degrade to registry calls, never to errors.
package cache

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "attestor:verify:"

// VerifyCache caches authoritative verification responses by record id.
type VerifyCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// New constructs a VerifyCache. Returns nil when client is nil so callers can
// wire it unconditionally.
func New(client *redis.Client, ttl time.Duration, logger *slog.Logger) *VerifyCache {
	if client == nil {
		return nil
	}
	return &VerifyCache{client: client, ttl: ttl, logger: logger}
}

func key(id uint64) string {
	return keyPrefix + strconv.FormatUint(id, 10)
}

// Get loads a cached response into out. Returns false on miss, nil cache, or
// any redis failure.
func (c *VerifyCache) Get(ctx context.Context, id uint64, out any) bool {
	if c == nil {
		return false
	}
	raw, err := c.client.Get(ctx, key(id)).Bytes()
	if err != nil {
		if err != redis.Nil && c.logger != nil {
			c.logger.WarnContext(ctx, "verify cache read failed", "id", id, "error", err)
		}
		return false
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return false
	}
	return true
}

// Set stores a response. Failures are logged and dropped.
func (c *VerifyCache) Set(ctx context.Context, id uint64, v any) {
	if c == nil {
		return
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, key(id), raw, c.ttl).Err(); err != nil && c.logger != nil {
		c.logger.WarnContext(ctx, "verify cache write failed", "id", id, "error", err)
	}
}

// Invalidate drops a cached response.
func (c *VerifyCache) Invalidate(ctx context.Context, id uint64) {
	if c == nil {
		return
	}
	if err := c.client.Del(ctx, key(id)).Err(); err != nil && c.logger != nil {
		c.logger.WarnContext(ctx, "verify cache invalidation failed", "id", id, "error", err)
	}
}
