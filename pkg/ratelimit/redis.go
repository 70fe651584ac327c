package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisLimiter is a fixed-window counter shared by every instance that talks
// to the same Redis.
type RedisLimiter struct {
	redis  redis.UniversalClient
	prefix string
	limit  int
	window time.Duration
}

// NewRedisLimiter allows limit actions per window for each key
func NewRedisLimiter(client redis.UniversalClient, prefix string, limit int, window time.Duration) *RedisLimiter {
	return &RedisLimiter{
		redis:  client,
		prefix: prefix,
		limit:  limit,
		window: window,
	}
}

// Allow implements Limiter. Redis errors are returned, not treated as allowed.
func (l *RedisLimiter) Allow(ctx context.Context, key string) error {
	k := l.prefix + key
	count, err := l.redis.Incr(ctx, k).Result()
	if err != nil {
		return fmt.Errorf("rate limit redis unavailable: %w", err)
	}

	if count == 1 {
		if err := l.redis.Expire(ctx, k, l.window).Err(); err != nil {
			return fmt.Errorf("rate limit redis unavailable: %w", err)
		}
	}

	if count > int64(l.limit) {
		return ErrRateLimited
	}
	return nil
}
