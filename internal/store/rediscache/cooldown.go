package rediscache

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/pulsedeck/scanner/internal/store"
)

// CooldownCache is a Redis read-through cache of last-signal timestamps.
// Keys expire with the strategy's cooldown window, so a hit always means
// the cooldown is still live. Misses and errors fall back to the signal
// repository; the cache is never authoritative.
type CooldownCache struct {
	client *redis.Client
}

// New creates a cooldown cache on the given Redis client.
func New(client *redis.Client) *CooldownCache {
	return &CooldownCache{client: client}
}

var _ store.CooldownCache = (*CooldownCache)(nil)

func key(owner, strategyID, symbol string) string {
	return fmt.Sprintf("cooldown:%s:%s:%s", owner, strategyID, symbol)
}

// LastSignalTime returns the cached last-signal instant for the tuple.
func (c *CooldownCache) LastSignalTime(ctx context.Context, owner, strategyID, symbol string) (time.Time, bool, error) {
	val, err := c.client.Get(ctx, key(owner, strategyID, symbol)).Result()
	if err == redis.Nil {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("cooldown cache get: %w", err)
	}
	unix, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("cooldown cache parse %q: %w", val, err)
	}
	return time.Unix(unix, 0).UTC(), true, nil
}

// SetLastSignalTime records a signal emission with the cooldown TTL.
func (c *CooldownCache) SetLastSignalTime(ctx context.Context, owner, strategyID, symbol string, at time.Time, ttl time.Duration) error {
	if ttl <= 0 {
		return nil // no cooldown, nothing worth caching
	}
	err := c.client.Set(ctx, key(owner, strategyID, symbol), strconv.FormatInt(at.Unix(), 10), ttl).Err()
	if err != nil {
		return fmt.Errorf("cooldown cache set: %w", err)
	}
	return nil
}
