package utils

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Without a cache the limiter fails open rather than blocking logins.
func TestRateLimiterAllowsWithoutRedis(t *testing.T) {
	limiter := NewRateLimiter(nil)

	for i := 0; i < 20; i++ {
		assert.True(t, limiter.Allow(context.Background(), "1.2.3.4", "login", 5, time.Minute))
	}

	var nilLimiter *RateLimiter
	assert.True(t, nilLimiter.Allow(context.Background(), "1.2.3.4", "login", 5, time.Minute))
}

func TestHotPostsWithoutRedis(t *testing.T) {
	hot := NewHotPosts(nil)

	hot.Bump(context.Background(), 1, 1)
	hot.Remove(context.Background(), 1)

	entries, err := hot.Top(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, entries)

	var nilHot *HotPosts
	nilHot.Bump(context.Background(), 1, 1)
	entries, err = nilHot.Top(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
