package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RateLimiter provides fixed-window request limits backed by Redis.
// Key format: ratelimit:<action>:<key>
type RateLimiter struct {
	client *redis.Client
}

// NewRateLimiter creates a RateLimiter wrapping the given Redis client.
func NewRateLimiter(client *redis.Client) *RateLimiter {
	return &RateLimiter{client: client}
}

// Allow increments the counter for (action, key) and reports whether the
// request stays within limit. The window starts on the first request and the
// key expires with it.
func (l *RateLimiter) Allow(ctx context.Context, action, key string, limit int, window time.Duration) (bool, error) {
	k := l.key(action, key)

	n, err := l.client.Incr(ctx, k).Result()
	if err != nil {
		return false, fmt.Errorf("rate limit incr: %w", err)
	}
	if n == 1 {
		if err := l.client.Expire(ctx, k, window).Err(); err != nil {
			return false, fmt.Errorf("rate limit expire: %w", err)
		}
	}

	return n <= int64(limit), nil
}

func (l *RateLimiter) key(action, key string) string {
	return fmt.Sprintf("ratelimit:%s:%s", action, key)
}
