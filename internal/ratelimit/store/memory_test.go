package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreIncrementWithExpiry(t *testing.T) {
	t.Parallel()

	s := NewMemoryStore()
	t.Cleanup(func() { _ = s.Close() })
	ctx := context.Background()

	count, err := s.IncrementWithExpiry(ctx, "k1", 1, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	count, err = s.IncrementWithExpiry(ctx, "k1", 2, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)

	got, err := s.Get(ctx, "k1")
	require.NoError(t, err)
	assert.Equal(t, int64(3), got)
}

func TestMemoryStoreExpiration(t *testing.T) {
	t.Parallel()

	s := NewMemoryStore()
	t.Cleanup(func() { _ = s.Close() })
	ctx := context.Background()

	_, err := s.IncrementWithExpiry(ctx, "k1", 1, 20*time.Millisecond)
	require.NoError(t, err)

	time.Sleep(40 * time.Millisecond)

	_, err = s.Get(ctx, "k1")
	assert.True(t, IsKeyNotFound(err))

	// The next increment restarts the counter.
	count, err := s.IncrementWithExpiry(ctx, "k1", 1, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestMemoryStoreGetMissing(t *testing.T) {
	t.Parallel()

	s := NewMemoryStore()
	t.Cleanup(func() { _ = s.Close() })

	_, err := s.Get(context.Background(), "absent")
	assert.True(t, IsKeyNotFound(err))
}

func TestMemoryStoreDelete(t *testing.T) {
	t.Parallel()

	s := NewMemoryStore()
	t.Cleanup(func() { _ = s.Close() })
	ctx := context.Background()

	_, err := s.IncrementWithExpiry(ctx, "k1", 1, time.Minute)
	require.NoError(t, err)

	require.NoError(t, s.Delete(ctx, "k1"))

	_, err = s.Get(ctx, "k1")
	assert.True(t, IsKeyNotFound(err))
}

func TestMemoryStoreConcurrentIncrements(t *testing.T) {
	t.Parallel()

	s := NewMemoryStore()
	t.Cleanup(func() { _ = s.Close() })
	ctx := context.Background()

	const goroutines = 50
	const perGoroutine = 20

	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perGoroutine; j++ {
				_, err := s.IncrementWithExpiry(ctx, "contended", 1, time.Minute)
				assert.NoError(t, err)
			}
		}()
	}
	wg.Wait()

	count, err := s.Get(ctx, "contended")
	require.NoError(t, err)
	assert.Equal(t, int64(goroutines*perGoroutine), count)
}

func TestMemoryStoreCleanup(t *testing.T) {
	t.Parallel()

	s := NewMemoryStoreWithCleanupInterval(20 * time.Millisecond)
	t.Cleanup(func() { _ = s.Close() })
	ctx := context.Background()

	_, err := s.IncrementWithExpiry(ctx, "short", 1, 10*time.Millisecond)
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		return s.Size() == 0
	}, time.Second, 10*time.Millisecond)
}

func TestMemoryStoreCloseIdempotent(t *testing.T) {
	t.Parallel()

	s := NewMemoryStore()
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())
}

func TestMemoryStoreCancelledContext(t *testing.T) {
	t.Parallel()

	s := NewMemoryStore()
	t.Cleanup(func() { _ = s.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.IncrementWithExpiry(ctx, "k1", 1, time.Minute)
	assert.ErrorIs(t, err, context.Canceled)
}
