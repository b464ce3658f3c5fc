package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/relgov/gateway/internal/ratelimit/store"
)

// FixedWindowLimiter divides time into fixed windows and counts requests per
// key within each window. Rejected requests still consume the counter, so a
// client hammering past the ceiling does not creep back in mid-window.
type FixedWindowLimiter struct {
	store  store.Store
	limit  int
	window time.Duration
}

// NewFixedWindowLimiter creates a fixed window limiter over the given store.
func NewFixedWindowLimiter(s store.Store, limit int, window time.Duration) *FixedWindowLimiter {
	return &FixedWindowLimiter{
		store:  s,
		limit:  limit,
		window: window,
	}
}

// Allow implements Limiter. The increment-then-compare runs as one atomic
// store operation so concurrent requests for the same key never undercount.
func (l *FixedWindowLimiter) Allow(ctx context.Context, key string) (*Result, error) {
	now := time.Now()
	windowStart := l.windowStart(now)
	windowKey := fmt.Sprintf("%s:fw:%d", key, windowStart.UnixNano())

	// Expiration gets a one-second buffer for clock skew.
	count, err := l.store.IncrementWithExpiry(ctx, windowKey, 1, l.window+time.Second)
	if err != nil {
		return nil, err
	}

	allowed := count <= int64(l.limit)

	remaining := l.limit - int(count)
	if remaining < 0 {
		remaining = 0
	}

	resetAfter := windowStart.Add(l.window).Sub(now)
	if resetAfter < 0 {
		resetAfter = 0
	}

	var retryAfter time.Duration
	if !allowed {
		retryAfter = resetAfter
	}

	return &Result{
		Allowed:    allowed,
		Limit:      l.limit,
		Remaining:  remaining,
		ResetAfter: resetAfter,
		RetryAfter: retryAfter,
	}, nil
}

// Limit implements Limiter.
func (l *FixedWindowLimiter) Limit() Limit {
	return Limit{Requests: l.limit, Window: l.window}
}

// Reset implements Limiter.
func (l *FixedWindowLimiter) Reset(ctx context.Context, key string) error {
	windowStart := l.windowStart(time.Now())
	windowKey := fmt.Sprintf("%s:fw:%d", key, windowStart.UnixNano())
	return l.store.Delete(ctx, windowKey)
}

func (l *FixedWindowLimiter) windowStart(t time.Time) time.Time {
	windowNanos := l.window.Nanoseconds()
	return time.Unix(0, (t.UnixNano()/windowNanos)*windowNanos)
}
