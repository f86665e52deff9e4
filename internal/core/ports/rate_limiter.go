package ports

import (
	"context"
	"time"
)

// RateLimiter bounds how often an action may be attempted for a given key
// within a fixed window.
type RateLimiter interface {
	Allow(ctx context.Context, action, key string, limit int, window time.Duration) (bool, error)
}
