package ratelimit

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisLimiter enforces the per-key interval across instances using a
// SET NX claim with the interval as its TTL.
type RedisLimiter struct {
	client      *redis.Client
	prefix      string
	minInterval time.Duration
}

// NewRedis creates a Redis-backed limiter. An empty prefix defaults to
// "veriscope:ratelimit:".
func NewRedis(client *redis.Client, prefix string, minInterval time.Duration) *RedisLimiter {
	if prefix == "" {
		prefix = "veriscope:ratelimit:"
	}
	return &RedisLimiter{
		client:      client,
		prefix:      prefix,
		minInterval: minInterval,
	}
}

// Allow reports whether a request for key may proceed now. Redis errors
// fail open: an unreachable limiter must not block analyses.
func (l *RedisLimiter) Allow(key string) bool {
	if l.minInterval <= 0 {
		return true
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	ok, err := l.client.SetNX(ctx, l.prefix+key, 1, l.minInterval).Result()
	if err != nil {
		return true
	}
	return ok
}

// Reset clears the window for one key.
func (l *RedisLimiter) Reset(key string) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	l.client.Del(ctx, l.prefix+key)
}

var _ Limiter = (*RedisLimiter)(nil)
