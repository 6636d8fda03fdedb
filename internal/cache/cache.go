package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// AvailabilityCache caches computed day availability in Redis. A nil cache
// (or one built without a client) disables caching; all methods are no-ops.
type AvailabilityCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// New creates a cache backed by the given Redis client.
func New(rdb *redis.Client, ttl time.Duration) *AvailabilityCache {
	return &AvailabilityCache{rdb: rdb, ttl: ttl}
}

func (c *AvailabilityCache) enabled() bool {
	return c != nil && c.rdb != nil && c.ttl > 0
}

func dayKey(date time.Time, durationMinutes int) string {
	return fmt.Sprintf("slots:%s:%d", date.Format("2006-01-02"), durationMinutes)
}

// Get reads a cached evaluation into out. Returns false on miss or when
// caching is disabled.
func (c *AvailabilityCache) Get(ctx context.Context, date time.Time, durationMinutes int, out any) bool {
	if !c.enabled() {
		return false
	}
	val, err := c.rdb.Get(ctx, dayKey(date, durationMinutes)).Result()
	if err != nil {
		return false
	}
	if err := json.Unmarshal([]byte(val), out); err != nil {
		return false
	}
	return true
}

// Set stores a computed evaluation. Failures are ignored; the cache is
// best-effort.
func (c *AvailabilityCache) Set(ctx context.Context, date time.Time, durationMinutes int, val any) {
	if !c.enabled() {
		return
	}
	data, err := json.Marshal(val)
	if err != nil {
		return
	}
	_ = c.rdb.Set(ctx, dayKey(date, durationMinutes), data, c.ttl).Err()
}

// InvalidateDate drops all cached evaluations for a calendar day, for every
// requested duration. Called after any booking write on that day.
func (c *AvailabilityCache) InvalidateDate(ctx context.Context, date time.Time) {
	if !c.enabled() {
		return
	}
	pattern := fmt.Sprintf("slots:%s:*", date.Format("2006-01-02"))
	keys, err := c.rdb.Keys(ctx, pattern).Result()
	if err != nil || len(keys) == 0 {
		return
	}
	_ = c.rdb.Del(ctx, keys...).Err()
}
