package ratelimit

import (
	"context"
	"math"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// bucketTTL is how long an idle per-key bucket survives before cleanup.
const bucketTTL = 10 * time.Minute

// TokenBucketLimiter smooths bursts with a per-key token bucket. It is an
// alternative to the fixed window for the identity tier, where authenticated
// clients benefit from burst absorption. State is local to the process.
type TokenBucketLimiter struct {
	limit   int
	window  time.Duration
	buckets sync.Map
	done    chan struct{}
	once    sync.Once
}

type bucketEntry struct {
	limiter    *rate.Limiter
	lastAccess time.Time
	mu         sync.Mutex
}

// NewTokenBucketLimiter creates a token bucket limiter refilled at
// limit/window tokens per second with a burst of limit.
func NewTokenBucketLimiter(limit int, window time.Duration) *TokenBucketLimiter {
	l := &TokenBucketLimiter{
		limit:  limit,
		window: window,
		done:   make(chan struct{}),
	}
	go l.runCleanup()
	return l
}

// Allow implements Limiter.
func (l *TokenBucketLimiter) Allow(ctx context.Context, key string) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	entry := l.bucket(key)

	entry.mu.Lock()
	entry.lastAccess = time.Now()
	limiter := entry.limiter
	entry.mu.Unlock()

	allowed := limiter.Allow()
	remaining := int(math.Floor(limiter.Tokens()))
	if remaining < 0 {
		remaining = 0
	}

	var retryAfter time.Duration
	if !allowed {
		// Time until one token refills.
		retryAfter = time.Duration(float64(time.Second) / float64(limiter.Limit()))
	}

	return &Result{
		Allowed:    allowed,
		Limit:      l.limit,
		Remaining:  remaining,
		ResetAfter: retryAfter,
		RetryAfter: retryAfter,
	}, nil
}

// Limit implements Limiter.
func (l *TokenBucketLimiter) Limit() Limit {
	return Limit{Requests: l.limit, Window: l.window}
}

// Reset implements Limiter.
func (l *TokenBucketLimiter) Reset(ctx context.Context, key string) error {
	l.buckets.Delete(key)
	return nil
}

// Close stops the background cleanup goroutine.
func (l *TokenBucketLimiter) Close() error {
	l.once.Do(func() { close(l.done) })
	return nil
}

func (l *TokenBucketLimiter) bucket(key string) *bucketEntry {
	if value, ok := l.buckets.Load(key); ok {
		return value.(*bucketEntry)
	}

	perSecond := rate.Limit(float64(l.limit) / l.window.Seconds())
	fresh := &bucketEntry{
		limiter:    rate.NewLimiter(perSecond, l.limit),
		lastAccess: time.Now(),
	}
	value, _ := l.buckets.LoadOrStore(key, fresh)
	return value.(*bucketEntry)
}

func (l *TokenBucketLimiter) runCleanup() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			now := time.Now()
			l.buckets.Range(func(key, value interface{}) bool {
				entry := value.(*bucketEntry)
				entry.mu.Lock()
				stale := now.Sub(entry.lastAccess) > bucketTTL
				entry.mu.Unlock()
				if stale {
					l.buckets.Delete(key)
				}
				return true
			})
		case <-l.done:
			return
		}
	}
}
