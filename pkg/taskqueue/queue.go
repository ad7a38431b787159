// Package taskqueue provides an unbounded FIFO queue with a single consumer
package taskqueue

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/larsvanarragon/axini-matrix-skeleton/metric"
)

// Queue is an unbounded FIFO queue processed by a single consumer goroutine.
// Items are handled strictly in enqueue order, one at a time. Enqueue never
// blocks and never drops: the queue grows as needed until Drain or Stop.
type Queue[T any] struct {
	// Configuration
	name    string
	process func(context.Context, T) error

	// Backing store and lifecycle, all guarded by mu
	mu      sync.Mutex
	cond    *sync.Cond
	items   []T
	started bool
	stopped bool // Stop called: backlog finishes, then the consumer exits
	aborted bool // context cancelled: the consumer exits after the in-flight item
	done    chan struct{}

	wg sync.WaitGroup

	// Statistics (atomic)
	enqueued  int64
	processed int64
	failed    int64
	dropped   int64

	// Metrics configuration
	metrics *metric.Metrics
}

// Option represents a configuration option for the queue
type Option[T any] func(*Queue[T])

// WithMetrics reports queue depth and throughput through the adapter's core metrics
func WithMetrics[T any](m *metric.Metrics) Option[T] {
	return func(q *Queue[T]) {
		q.metrics = m
	}
}

// New creates a queue whose consumer applies process to every item in order.
// The name labels the queue in metrics and statistics.
func New[T any](name string, process func(context.Context, T) error, opts ...Option[T]) *Queue[T] {
	if process == nil {
		panic(ErrNilProcessor)
	}

	q := &Queue[T]{
		name:    name,
		process: process,
		done:    make(chan struct{}),
	}
	q.cond = sync.NewCond(&q.mu)

	// Apply options
	for _, opt := range opts {
		opt(q)
	}

	return q
}

// Start launches the consumer goroutine. The queue accepts work until Stop is
// called or ctx is cancelled.
func (q *Queue[T]) Start(ctx context.Context) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.started {
		return ErrAlreadyStarted
	}
	q.started = true

	q.wg.Add(1)
	go q.consume(ctx)

	// Wake the consumer when the context ends so it can exit promptly
	// instead of staying parked on the condition variable.
	go func() {
		select {
		case <-ctx.Done():
			q.mu.Lock()
			q.aborted = true
			q.cond.Broadcast()
			q.mu.Unlock()
		case <-q.done:
		}
	}()

	return nil
}

// Enqueue appends an item for the consumer. It never blocks.
// Returns ErrNotStarted before Start and ErrStopped after Stop or
// context cancellation.
func (q *Queue[T]) Enqueue(item T) error {
	q.mu.Lock()
	if !q.started {
		q.mu.Unlock()
		return ErrNotStarted
	}
	if q.stopped || q.aborted {
		q.mu.Unlock()
		return ErrStopped
	}

	q.items = append(q.items, item)
	depth := len(q.items)
	q.cond.Signal()
	q.mu.Unlock()

	atomic.AddInt64(&q.enqueued, 1)
	if q.metrics != nil {
		q.metrics.RecordEnqueue(q.name)
		q.metrics.RecordQueueDepth(q.name, depth)
	}
	return nil
}

// Drain discards every queued item. The item the consumer is currently
// processing is not interrupted. Returns the number of items removed.
func (q *Queue[T]) Drain() int {
	q.mu.Lock()
	count := len(q.items)
	q.items = nil
	q.mu.Unlock()

	if count > 0 {
		atomic.AddInt64(&q.dropped, int64(count))
	}
	if q.metrics != nil {
		if count > 0 {
			q.metrics.RecordQueueDrop(q.name, count)
		}
		q.metrics.RecordQueueDepth(q.name, 0)
	}
	return count
}

// Stop prevents further enqueues and waits for the consumer to finish the
// remaining backlog. Returns ErrStopTimeout when the consumer does not exit
// within the timeout. Stop is idempotent.
func (q *Queue[T]) Stop(timeout time.Duration) error {
	q.mu.Lock()
	if !q.started || q.stopped {
		q.mu.Unlock()
		return nil
	}
	q.stopped = true
	close(q.done)
	q.cond.Broadcast()
	q.mu.Unlock()

	finished := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(finished)
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-finished:
		return nil
	case <-timer.C:
		return ErrStopTimeout
	}
}

// Depth returns the number of queued items, excluding any in-flight item.
func (q *Queue[T]) Depth() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Name returns the queue name used for metrics and statistics.
func (q *Queue[T]) Name() string {
	return q.name
}

// Stats returns current queue statistics
func (q *Queue[T]) Stats() Stats {
	return Stats{
		Name:      q.name,
		Depth:     q.Depth(),
		Enqueued:  atomic.LoadInt64(&q.enqueued),
		Processed: atomic.LoadInt64(&q.processed),
		Failed:    atomic.LoadInt64(&q.failed),
		Dropped:   atomic.LoadInt64(&q.dropped),
	}
}

// Stats represents queue statistics
type Stats struct {
	Name      string `json:"name"`
	Depth     int    `json:"depth"`
	Enqueued  int64  `json:"enqueued"`
	Processed int64  `json:"processed"`
	Failed    int64  `json:"failed"`
	Dropped   int64  `json:"dropped"`
}

// consume processes items from the queue in FIFO order
func (q *Queue[T]) consume(ctx context.Context) {
	defer q.wg.Done()

	for {
		q.mu.Lock()
		for len(q.items) == 0 && !q.stopped && !q.aborted {
			q.cond.Wait()
		}
		if q.aborted || (q.stopped && len(q.items) == 0) {
			q.mu.Unlock()
			return
		}

		var zero T
		item := q.items[0]
		q.items[0] = zero // Clear for GC
		q.items = q.items[1:]
		if len(q.items) == 0 {
			// Release the grown backing array once the consumer catches up.
			q.items = nil
		}
		depth := len(q.items)
		q.mu.Unlock()

		if q.metrics != nil {
			q.metrics.RecordQueueDepth(q.name, depth)
		}

		// Process one item. Errors are counted but never stop the consumer.
		err := q.process(ctx, item)
		atomic.AddInt64(&q.processed, 1)
		if err != nil {
			atomic.AddInt64(&q.failed, 1)
		}
	}
}
