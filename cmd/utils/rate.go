package utils

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RateLimiter counts attempts per (principal, action) in redis. A nil client
// disables limiting so the API stays available when the cache is down.
type RateLimiter struct {
	client *redis.Client
}

func NewRateLimiter(client *redis.Client) *RateLimiter {
	return &RateLimiter{client: client}
}

// Allow records one attempt and reports whether it is within the ceiling.
// The counter expires after the window, so the limit rolls.
func (l *RateLimiter) Allow(ctx context.Context, principal, action string, limit int64, window time.Duration) bool {
	if l == nil || l.client == nil {
		return true
	}

	key := fmt.Sprintf("rate_limit:%s:%s", principal, action)

	count, err := l.client.Incr(ctx, key).Result()
	if err != nil {
		return true
	}
	if count == 1 {
		l.client.Expire(ctx, key, window)
	}

	return count <= limit
}
