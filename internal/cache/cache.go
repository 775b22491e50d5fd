package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"timegrid/internal/metrics"
	"timegrid/internal/model"

	"github.com/redis/go-redis/v9"
)

// ScheduleCache is an optional Redis cache for daily schedule payloads.
// The aggregator itself never caches; this wraps it at the transport
// boundary, keyed on (location, date, timezone).
type ScheduleCache struct {
	redis *redis.Client
	ttl   time.Duration
}

// New creates a cache. A nil client or non-positive TTL yields a disabled
// cache whose lookups always miss.
func New(client *redis.Client, ttl time.Duration) *ScheduleCache {
	return &ScheduleCache{redis: client, ttl: ttl}
}

// Enabled reports whether the cache will store anything.
func (c *ScheduleCache) Enabled() bool {
	return c != nil && c.redis != nil && c.ttl > 0
}

// Key builds the cache key for a location's day in a display timezone.
func Key(locationID int64, date time.Time, tz string) string {
	return fmt.Sprintf("schedule:%d:%s:%s", locationID, date.Format("2006-01-02"), tz)
}

// Get loads a cached schedule. Misses and decode failures return false.
func (c *ScheduleCache) Get(ctx context.Context, key string) (*model.DailySchedule, bool) {
	if !c.Enabled() {
		return nil, false
	}
	val, err := c.redis.Get(ctx, key).Result()
	if err != nil {
		metrics.IncCacheMiss()
		return nil, false
	}
	var sched model.DailySchedule
	if err := json.Unmarshal([]byte(val), &sched); err != nil {
		metrics.IncCacheMiss()
		return nil, false
	}
	metrics.IncCacheHit()
	return &sched, true
}

// Set stores a schedule; failures are ignored, the cache is best effort.
func (c *ScheduleCache) Set(ctx context.Context, key string, sched *model.DailySchedule) {
	if !c.Enabled() || sched == nil {
		return
	}
	data, err := json.Marshal(sched)
	if err != nil {
		return
	}
	_ = c.redis.Set(ctx, key, data, c.ttl).Err()
}

// Invalidate drops the cached day for a location across display timezones
// by deleting keys matching the location and date prefix.
func (c *ScheduleCache) Invalidate(ctx context.Context, locationID int64, date time.Time) {
	if !c.Enabled() {
		return
	}
	pattern := fmt.Sprintf("schedule:%d:%s:*", locationID, date.Format("2006-01-02"))
	iter := c.redis.Scan(ctx, 0, pattern, 0).Iterator()
	for iter.Next(ctx) {
		_ = c.redis.Del(ctx, iter.Val()).Err()
	}
}
