// Package cache provides the Redis-backed fast counter used to short-circuit
// registration attempts against obviously-full events. The counter is an
// optimization hint only: it may drift from the registration store, and the
// lock-guarded store count always wins for the final admission decision.
package cache

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/go-redis/redis/v8"
)

// tryReserve atomically decrements the slot counter if it is still positive.
// Returns the remaining count, -1 when the counter is exhausted, or -2 when
// no counter exists for the key.
var tryReserve = redis.NewScript(`
local v = redis.call('GET', KEYS[1])
if not v then
  return -2
end
if tonumber(v) <= 0 then
  return -1
end
return redis.call('DECR', KEYS[1])
`)

// Counter is a per-event free-slot counter backed by Redis.
type Counter struct {
	rdb *redis.Client
}

// NewCounter wraps an existing Redis client.
func NewCounter(rdb *redis.Client) *Counter {
	return &Counter{rdb: rdb}
}

// NewClientFromEnv builds a Redis client from REDIS_ADDR, REDIS_PASSWORD and
// REDIS_DB. It returns nil when REDIS_ADDR is unset, in which case the
// service runs without the fast-path counter.
func NewClientFromEnv(ctx context.Context) (*redis.Client, error) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		return nil, nil
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: os.Getenv("REDIS_PASSWORD"),
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return rdb, nil
}

func slotKey(eventID string) string {
	return "event:slots:" + eventID
}

// TryReserve attempts an atomic decrement-if-positive on the event's slot
// counter. It returns false only when an initialized counter reports no
// remaining slots. A missing or expired counter returns true: the fast path
// cannot prove the event full, so the caller falls through to the
// authoritative count.
func (c *Counter) TryReserve(ctx context.Context, eventID string) (bool, error) {
	n, err := tryReserve.Run(ctx, c.rdb, []string{slotKey(eventID)}).Int64()
	if err != nil {
		return false, fmt.Errorf("reserve slot counter: %w", err)
	}
	return n != -1, nil
}

// Initialize seeds the event's slot counter. A TTL keeps stale counters from
// outliving their usefulness; an expired counter simply disables the fast
// path until the next refresh.
func (c *Counter) Initialize(ctx context.Context, eventID string, count int, ttl time.Duration) error {
	if err := c.rdb.Set(ctx, slotKey(eventID), count, ttl).Err(); err != nil {
		return fmt.Errorf("initialize slot counter: %w", err)
	}
	return nil
}
