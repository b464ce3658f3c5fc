// Package ratelimit provides rate limiting for the gateway. Counters live in
// a pluggable store so a single-process map can be swapped for Redis without
// touching middleware logic.
package ratelimit

import (
	"context"
	"time"
)

// Limiter checks whether requests are allowed for a key.
type Limiter interface {
	// Allow checks if a single request is allowed for the given key.
	Allow(ctx context.Context, key string) (*Result, error)

	// Limit returns the limiter's configuration.
	Limit() Limit

	// Reset clears the rate limit state for the given key.
	Reset(ctx context.Context, key string) error
}

// Limit is a rate limit configuration.
type Limit struct {
	// Requests is the maximum number of requests allowed per window.
	Requests int

	// Window is the time window.
	Window time.Duration
}

// Result is the outcome of a rate limit check.
type Result struct {
	// Allowed indicates whether the request may proceed.
	Allowed bool

	// Limit is the configured ceiling.
	Limit int

	// Remaining is the number of requests left in the current window.
	Remaining int

	// ResetAfter is the duration until the window resets.
	ResetAfter time.Duration

	// RetryAfter is the suggested wait before retrying, zero when allowed.
	RetryAfter time.Duration
}

// NoopLimiter always allows requests.
type NoopLimiter struct{}

// Allow implements Limiter.
func (NoopLimiter) Allow(ctx context.Context, key string) (*Result, error) {
	return &Result{Allowed: true}, nil
}

// Limit implements Limiter.
func (NoopLimiter) Limit() Limit { return Limit{} }

// Reset implements Limiter.
func (NoopLimiter) Reset(ctx context.Context, key string) error { return nil }
