// Package metricscache caches aggregated metric payloads in Redis. Cache keys
// embed a per-user write version that is bumped on every call-log insert, so a
// write invalidates all of that user's cached series at once; superseded
// entries simply age out by TTL.
package metricscache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mrmushfiq/llm0-observability/internal/shared/redis"
)

type Cache struct {
	redis *redis.Client
	ttl   time.Duration
}

// New creates a new cache instance
func New(redisClient *redis.Client, ttl time.Duration) *Cache {
	return &Cache{redis: redisClient, ttl: ttl}
}

// Key builds the cache key for one user's series at one window size, bound to
// the user's current write version and the UTC date the window ends on. The
// date keeps a cached series from surviving a UTC day rollover, where the same
// days window covers a different set of calendar days.
func Key(userID, version int64, series string, days int, windowEnd time.Time) string {
	return fmt.Sprintf("metrics:%d:v%d:%s:%d:%s",
		userID, version, series, days, windowEnd.UTC().Format("2006-01-02"))
}

// Version returns the user's current write version (0 if none recorded yet).
func (c *Cache) Version(ctx context.Context, userID int64) int64 {
	val, err := c.redis.Get(ctx, versionKey(userID))
	if err != nil {
		return 0
	}
	var v int64
	if _, err := fmt.Sscanf(val, "%d", &v); err != nil {
		return 0
	}
	return v
}

// Bump invalidates the user's cached series by incrementing the write version
func (c *Cache) Bump(ctx context.Context, userID int64) error {
	_, err := c.redis.Incr(ctx, versionKey(userID))
	return err
}

// Get retrieves a cached payload into dst; the bool reports a hit
func (c *Cache) Get(ctx context.Context, key string, dst interface{}) bool {
	val, err := c.redis.Get(ctx, key)
	if err != nil {
		return false
	}
	return json.Unmarshal([]byte(val), dst) == nil
}

// Set stores a payload under the key. Errors are returned for logging only;
// callers always fall back to the database.
func (c *Cache) Set(ctx context.Context, key string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to serialize cached metrics: %w", err)
	}
	return c.redis.Set(ctx, key, string(data), c.ttl)
}

func versionKey(userID int64) string {
	return fmt.Sprintf("metrics:ver:%d", userID)
}
