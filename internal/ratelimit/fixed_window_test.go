package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relgov/gateway/internal/ratelimit/store"
)

func TestFixedWindowAllowsUpToLimit(t *testing.T) {
	t.Parallel()

	s := store.NewMemoryStore()
	t.Cleanup(func() { _ = s.Close() })

	limiter := NewFixedWindowLimiter(s, 3, time.Minute)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		result, err := limiter.Allow(ctx, "ip:10.0.0.1")
		require.NoError(t, err)
		assert.True(t, result.Allowed, "request %d should be allowed", i+1)
		assert.Equal(t, 3, result.Limit)
		assert.Equal(t, 3-(i+1), result.Remaining)
	}

	result, err := limiter.Allow(ctx, "ip:10.0.0.1")
	require.NoError(t, err)
	assert.False(t, result.Allowed)
	assert.Equal(t, 0, result.Remaining)
	assert.Greater(t, result.RetryAfter, time.Duration(0))
}

func TestFixedWindowKeysAreIndependent(t *testing.T) {
	t.Parallel()

	s := store.NewMemoryStore()
	t.Cleanup(func() { _ = s.Close() })

	limiter := NewFixedWindowLimiter(s, 1, time.Minute)
	ctx := context.Background()

	first, err := limiter.Allow(ctx, "ip:10.0.0.1")
	require.NoError(t, err)
	assert.True(t, first.Allowed)

	blocked, err := limiter.Allow(ctx, "ip:10.0.0.1")
	require.NoError(t, err)
	assert.False(t, blocked.Allowed)

	other, err := limiter.Allow(ctx, "ip:10.0.0.2")
	require.NoError(t, err)
	assert.True(t, other.Allowed)
}

func TestFixedWindowExpiry(t *testing.T) {
	t.Parallel()

	s := store.NewMemoryStore()
	t.Cleanup(func() { _ = s.Close() })

	window := 50 * time.Millisecond
	limiter := NewFixedWindowLimiter(s, 1, window)
	ctx := context.Background()

	result, err := limiter.Allow(ctx, "ip:10.0.0.1")
	require.NoError(t, err)
	require.True(t, result.Allowed)

	// After the window rolls over the counter starts from zero again.
	time.Sleep(window + 10*time.Millisecond)

	result, err = limiter.Allow(ctx, "ip:10.0.0.1")
	require.NoError(t, err)
	assert.True(t, result.Allowed)
}

func TestFixedWindowRejectedRequestsStillCount(t *testing.T) {
	t.Parallel()

	s := store.NewMemoryStore()
	t.Cleanup(func() { _ = s.Close() })

	limiter := NewFixedWindowLimiter(s, 2, time.Minute)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		_, err := limiter.Allow(ctx, "ip:10.0.0.1")
		require.NoError(t, err)
	}

	result, err := limiter.Allow(ctx, "ip:10.0.0.1")
	require.NoError(t, err)
	assert.False(t, result.Allowed)
}

func TestFixedWindowReset(t *testing.T) {
	t.Parallel()

	s := store.NewMemoryStore()
	t.Cleanup(func() { _ = s.Close() })

	limiter := NewFixedWindowLimiter(s, 1, time.Minute)
	ctx := context.Background()

	_, err := limiter.Allow(ctx, "user:u1")
	require.NoError(t, err)

	blocked, err := limiter.Allow(ctx, "user:u1")
	require.NoError(t, err)
	require.False(t, blocked.Allowed)

	require.NoError(t, limiter.Reset(ctx, "user:u1"))

	result, err := limiter.Allow(ctx, "user:u1")
	require.NoError(t, err)
	assert.True(t, result.Allowed)
}

func TestFixedWindowLimit(t *testing.T) {
	t.Parallel()

	limiter := NewFixedWindowLimiter(store.NewMemoryStore(), 100, 15*time.Minute)
	limit := limiter.Limit()
	assert.Equal(t, 100, limit.Requests)
	assert.Equal(t, 15*time.Minute, limit.Window)
}
