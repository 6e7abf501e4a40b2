package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Counting and expiry must happen atomically or concurrent requests from
// the same client could both slip under the limit.
var incrScript = redis.NewScript(`
local count = redis.call('INCR', KEYS[1])
if count == 1 then
	redis.call('PEXPIRE', KEYS[1], ARGV[1])
end
return count`)

// RedisLimiter counts requests per key in a shared Redis window so the
// limit holds across multiple service instances.
type RedisLimiter struct {
	client    *redis.Client
	limit     int
	window    time.Duration
	keyPrefix string
}

// NewRedisLimiter creates a redis-backed limiter allowing limit requests
// per window.
func NewRedisLimiter(client *redis.Client, limit int, window time.Duration) *RedisLimiter {
	return &RedisLimiter{
		client:    client,
		limit:     limit,
		window:    window,
		keyPrefix: "ratelimit:",
	}
}

// Allow increments the key's window counter and rejects once it exceeds
// the limit.
func (l *RedisLimiter) Allow(ctx context.Context, key string) (int, bool, error) {
	result, err := incrScript.Run(ctx, l.client, []string{l.keyPrefix + key}, l.window.Milliseconds()).Int()
	if err != nil {
		return 0, false, fmt.Errorf("ratelimit incr: %w", err)
	}
	if result > l.limit {
		return 0, false, nil
	}
	return l.limit - result, true, nil
}

// Limit returns the configured per-window request budget.
func (l *RedisLimiter) Limit() int {
	return l.limit
}
