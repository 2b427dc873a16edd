// Package dispatch runs chat updates on a fixed pool of workers, keeping the
// updates of one user in arrival order.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/dvloznov/ledger-bot/internal/logger"
)

// ErrClosed is returned by Submit after Stop.
var ErrClosed = errors.New("dispatch: queue is closed")

// Task is one unit of work.
type Task func(ctx context.Context)

// Queue shards tasks by key onto workers. Tasks with the same key run one at
// a time in submission order; tasks with different keys may run concurrently.
// Failed tasks are not retried.
type Queue struct {
	shards []chan func()
	wg     sync.WaitGroup
	mu     sync.RWMutex
	closed bool
}

// NewQueue starts workers goroutines, each with a buffer of bufferSize tasks.
// Submit blocks while the target worker's buffer is full.
func NewQueue(workers, bufferSize int) *Queue {
	if workers < 1 {
		workers = 1
	}
	if bufferSize < 0 {
		bufferSize = 0
	}
	q := &Queue{shards: make([]chan func(), workers)}
	for i := range q.shards {
		q.shards[i] = make(chan func(), bufferSize)
		q.wg.Add(1)
		go q.worker(q.shards[i])
	}
	return q
}

// Submit enqueues task for key. The task runs with a context that keeps the
// values of ctx but not its cancellation, so it outlives the request that
// delivered it.
func (q *Queue) Submit(ctx context.Context, key int64, task Task) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		return ErrClosed
	}

	taskCtx := context.WithoutCancel(ctx)
	run := func() { runTask(taskCtx, task) }

	select {
	case q.shards[q.shardFor(key)] <- run:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("Queue.Submit: %w", ctx.Err())
	}
}

func (q *Queue) shardFor(key int64) int {
	return int(uint64(key) % uint64(len(q.shards)))
}

func (q *Queue) worker(tasks <-chan func()) {
	defer q.wg.Done()
	for run := range tasks {
		run()
	}
}

// runTask isolates panics so one bad update cannot stop the worker.
func runTask(ctx context.Context, task Task) {
	defer func() {
		if r := recover(); r != nil {
			log := logger.FromContext(ctx)
			log.Error().Interface("panic", r).Msg("Dispatch task panicked")
		}
	}()
	task(ctx)
}

// Stop rejects new tasks and waits until every queued task has run or ctx
// is done.
func (q *Queue) Stop(ctx context.Context) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	for _, ch := range q.shards {
		close(ch)
	}
	q.mu.Unlock()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops the queue without a deadline.
func (q *Queue) Close() error {
	return q.Stop(context.Background())
}
