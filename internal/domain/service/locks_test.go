package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hsdfat8/assettrack/internal/domain/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyedLock_Exclusive(t *testing.T) {
	l := NewKeyedLock()
	ctx := context.Background()

	var inside, maxInside int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := l.Lock(ctx, "TR-001")
			if !assert.NoError(t, err) {
				return
			}
			n := atomic.AddInt32(&inside, 1)
			for {
				m := atomic.LoadInt32(&maxInside)
				if n <= m || atomic.CompareAndSwapInt32(&maxInside, m, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			atomic.AddInt32(&inside, -1)
			unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), maxInside)
	assert.Equal(t, 0, l.size())
}

func TestKeyedLock_IndependentKeys(t *testing.T) {
	l := NewKeyedLock()
	ctx := context.Background()

	unlockA, err := l.Lock(ctx, "TR-001")
	require.NoError(t, err)
	defer unlockA()

	done := make(chan struct{})
	go func() {
		unlockB, err := l.Lock(ctx, "TR-002")
		if err == nil {
			unlockB()
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("lock on a different key blocked")
	}
}

func TestKeyedLock_ContextCancel(t *testing.T) {
	l := NewKeyedLock()
	unlock, err := l.Lock(context.Background(), "TR-001")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = l.Lock(ctx, "TR-001")
	assert.True(t, errors.Is(err, context.DeadlineExceeded))

	unlock()
	// releasing twice is harmless
	unlock()
	assert.Equal(t, 0, l.size())
}

func TestWithRetry(t *testing.T) {
	ctx := context.Background()
	conflict := models.VersionConflict(models.EntityTransformer, "TR-001", 1)

	t.Run("succeeds after conflicts", func(t *testing.T) {
		calls := 0
		err := withRetry(ctx, "test", 3, time.Millisecond, func() error {
			calls++
			if calls < 3 {
				return conflict
			}
			return nil
		})
		assert.NoError(t, err)
		assert.Equal(t, 3, calls)
	})

	t.Run("surfaces conflict after attempts", func(t *testing.T) {
		calls := 0
		err := withRetry(ctx, "test", 3, time.Millisecond, func() error {
			calls++
			return conflict
		})
		assert.True(t, errors.Is(err, models.ErrVersionConflict))
		assert.Equal(t, 3, calls)
	})

	t.Run("does not retry other kinds", func(t *testing.T) {
		calls := 0
		err := withRetry(ctx, "test", 3, time.Millisecond, func() error {
			calls++
			return models.Validation("bad input")
		})
		assert.True(t, errors.Is(err, models.ErrValidation))
		assert.Equal(t, 1, calls)
	})

	t.Run("does not retry stale caller versions", func(t *testing.T) {
		calls := 0
		err := withRetry(ctx, "test", 3, time.Millisecond, func() error {
			calls++
			return checkVersion(models.EntityUser, "1", 1, 2)
		})
		assert.True(t, errors.Is(err, models.ErrVersionConflict))
		assert.Equal(t, 1, calls)
	})

	t.Run("stops when context is done", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		calls := 0
		err := withRetry(cctx, "test", 3, time.Hour, func() error {
			calls++
			cancel()
			return conflict
		})
		assert.True(t, errors.Is(err, context.Canceled))
		assert.Equal(t, 1, calls)
	})
}
