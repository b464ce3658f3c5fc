package ratelimit

import (
	"fmt"
	"time"

	"github.com/relgov/gateway/internal/ratelimit/store"
)

// Limiter algorithm names, selectable per tier at startup.
const (
	// AlgorithmFixedWindow counts requests in fixed windows over the
	// shared counter store.
	AlgorithmFixedWindow = "fixed_window"

	// AlgorithmTokenBucket smooths bursts with per-key token buckets.
	// State is process-local, so counters are not shared across replicas.
	AlgorithmTokenBucket = "token_bucket"

	// AlgorithmNone disables limiting for the tier.
	AlgorithmNone = "none"
)

// New creates a limiter for the named algorithm. An empty name selects the
// fixed window.
func New(algorithm string, s store.Store, limit int, window time.Duration) (Limiter, error) {
	switch algorithm {
	case "", AlgorithmFixedWindow:
		return NewFixedWindowLimiter(s, limit, window), nil
	case AlgorithmTokenBucket:
		return NewTokenBucketLimiter(limit, window), nil
	case AlgorithmNone:
		return NoopLimiter{}, nil
	default:
		return nil, fmt.Errorf("unknown rate limit algorithm: %q", algorithm)
	}
}
