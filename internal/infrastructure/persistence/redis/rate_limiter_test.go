package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLimiter(t *testing.T) *RateLimiter {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewRateLimiter(NewClientFromRedis(rdb))
}

func TestRateLimiterAllowsUnderLimit(t *testing.T) {
	limiter := newTestLimiter(t)
	ctx := context.Background()
	key := BuildRateLimitKey("user-1", "/v1/generations/stream")

	for i := 0; i < 3; i++ {
		allowed, err := limiter.Allow(ctx, key, 3, time.Minute)
		require.NoError(t, err)
		assert.True(t, allowed, "request %d should pass", i)
	}

	allowed, err := limiter.Allow(ctx, key, 3, time.Minute)
	require.NoError(t, err)
	assert.False(t, allowed, "request over limit should be rejected")
}

func TestRateLimiterRemaining(t *testing.T) {
	limiter := newTestLimiter(t)
	ctx := context.Background()
	key := BuildRateLimitKey("user-2", "/v1/generations/stream")

	remaining, err := limiter.Remaining(ctx, key, 5, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 5, remaining)

	_, err = limiter.Allow(ctx, key, 5, time.Minute)
	require.NoError(t, err)

	remaining, err = limiter.Remaining(ctx, key, 5, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 4, remaining)
}
