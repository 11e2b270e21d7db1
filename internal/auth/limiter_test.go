package auth

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLimiter(t *testing.T, max int) (*LoginLimiter, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewLoginLimiter(client, max, time.Minute, nil), mr
}

func TestLoginLimiterBlocksAfterMaxFailures(t *testing.T) {
	ctx := context.Background()
	limiter, mr := newTestLimiter(t, 3)

	for i := 0; i < 3; i++ {
		require.True(t, limiter.Allow(ctx, "ana@example.com"))
		limiter.RecordFailure(ctx, "ana@example.com")
	}
	assert.False(t, limiter.Allow(ctx, "ana@example.com"))
	assert.False(t, limiter.Allow(ctx, "  ANA@example.com "), "keys are normalised")
	assert.True(t, limiter.Allow(ctx, "bia@example.com"))

	ttl := mr.TTL(loginFailureKey("ana@example.com"))
	assert.Equal(t, time.Minute, ttl)

	mr.FastForward(time.Minute + time.Second)
	assert.True(t, limiter.Allow(ctx, "ana@example.com"))
}

func TestLoginLimiterReset(t *testing.T) {
	ctx := context.Background()
	limiter, mr := newTestLimiter(t, 1)

	limiter.RecordFailure(ctx, "ana@example.com")
	require.False(t, limiter.Allow(ctx, "ana@example.com"))

	limiter.Reset(ctx, "ana@example.com")
	assert.True(t, limiter.Allow(ctx, "ana@example.com"))
	assert.False(t, mr.Exists(loginFailureKey("ana@example.com")))
}

func TestLoginLimiterFailsOpen(t *testing.T) {
	ctx := context.Background()
	limiter, mr := newTestLimiter(t, 1)
	mr.Close()

	limiter.RecordFailure(ctx, "ana@example.com")
	assert.True(t, limiter.Allow(ctx, "ana@example.com"))
}

func TestNilLoginLimiterAllows(t *testing.T) {
	var limiter *LoginLimiter
	ctx := context.Background()

	limiter.RecordFailure(ctx, "ana@example.com")
	limiter.Reset(ctx, "ana@example.com")
	assert.True(t, limiter.Allow(ctx, "ana@example.com"))

	disabled := NewLoginLimiter(nil, 5, time.Minute, nil)
	assert.True(t, disabled.Allow(ctx, "ana@example.com"))
}
