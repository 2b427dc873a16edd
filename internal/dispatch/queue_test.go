package dispatch

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueuePreservesOrderPerKey(t *testing.T) {
	q := NewQueue(4, 16)
	ctx := context.Background()

	var mu sync.Mutex
	seen := map[int64][]int{}

	for i := 0; i < 50; i++ {
		for key := int64(1); key <= 3; key++ {
			key, i := key, i
			require.NoError(t, q.Submit(ctx, key, func(ctx context.Context) {
				mu.Lock()
				seen[key] = append(seen[key], i)
				mu.Unlock()
			}))
		}
	}
	require.NoError(t, q.Stop(ctx))

	for key := int64(1); key <= 3; key++ {
		require.Len(t, seen[key], 50)
		for i, v := range seen[key] {
			assert.Equal(t, i, v, "key %d ran out of order", key)
		}
	}
}

func TestQueueSerializesSameKey(t *testing.T) {
	q := NewQueue(8, 8)
	ctx := context.Background()

	var running, maxRunning int32
	for i := 0; i < 20; i++ {
		require.NoError(t, q.Submit(ctx, 42, func(ctx context.Context) {
			n := atomic.AddInt32(&running, 1)
			for {
				m := atomic.LoadInt32(&maxRunning)
				if n <= m || atomic.CompareAndSwapInt32(&maxRunning, m, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			atomic.AddInt32(&running, -1)
		}))
	}
	require.NoError(t, q.Stop(ctx))
	assert.Equal(t, int32(1), maxRunning)
}

func TestQueueStopDrainsAndRejects(t *testing.T) {
	q := NewQueue(2, 10)
	ctx := context.Background()

	var ran int32
	for i := 0; i < 10; i++ {
		require.NoError(t, q.Submit(ctx, int64(i), func(ctx context.Context) {
			atomic.AddInt32(&ran, 1)
		}))
	}
	require.NoError(t, q.Stop(ctx))
	assert.Equal(t, int32(10), atomic.LoadInt32(&ran))

	assert.ErrorIs(t, q.Submit(ctx, 1, func(ctx context.Context) {}), ErrClosed)
	assert.NoError(t, q.Close(), "second stop is a no-op")
}

func TestQueueTaskOutlivesSubmitContext(t *testing.T) {
	q := NewQueue(1, 1)
	ctx, cancel := context.WithCancel(context.Background())

	errCh := make(chan error, 1)
	require.NoError(t, q.Submit(ctx, 1, func(taskCtx context.Context) {
		time.Sleep(5 * time.Millisecond)
		errCh <- taskCtx.Err()
	}))
	cancel()

	require.NoError(t, q.Stop(context.Background()))
	assert.NoError(t, <-errCh)
}

func TestQueueSurvivesPanics(t *testing.T) {
	q := NewQueue(1, 4)
	ctx := context.Background()

	var ran int32
	require.NoError(t, q.Submit(ctx, 1, func(ctx context.Context) { panic("boom") }))
	require.NoError(t, q.Submit(ctx, 1, func(ctx context.Context) { atomic.AddInt32(&ran, 1) }))
	require.NoError(t, q.Stop(ctx))
	assert.Equal(t, int32(1), atomic.LoadInt32(&ran))
}

func TestShardForNegativeKeys(t *testing.T) {
	q := NewQueue(3, 0)
	defer q.Close()

	for _, key := range []int64{-1, -100, 0, 7} {
		s := q.shardFor(key)
		assert.GreaterOrEqual(t, s, 0)
		assert.Less(t, s, 3)
	}
}
