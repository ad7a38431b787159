package taskqueue

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// Test item for queue tests
type testTask struct {
	id   int
	fail bool
}

// waitForInt64 polls an atomic counter until it reaches want or the deadline expires
func waitForInt64(t *testing.T, counter *int64, want int64) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if atomic.LoadInt64(counter) >= want {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("Counter stuck at %d, want %d", atomic.LoadInt64(counter), want)
}

func TestNew(t *testing.T) {
	q := New("outbound", func(_ context.Context, _ testTask) error {
		return nil
	})

	if q.Name() != "outbound" {
		t.Errorf("Expected name outbound, got %s", q.Name())
	}
	if q.Depth() != 0 {
		t.Errorf("Expected empty queue, got depth %d", q.Depth())
	}
}

func TestNew_NilProcessor(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Errorf("Expected panic for nil processor")
		}
	}()
	New[testTask]("outbound", nil)
}

func TestQueue_StartStop(t *testing.T) {
	var processedCount int64
	q := New("outbound", func(_ context.Context, _ testTask) error {
		atomic.AddInt64(&processedCount, 1)
		return nil
	})

	ctx := context.Background()
	if err := q.Start(ctx); err != nil {
		t.Fatalf("Failed to start queue: %v", err)
	}

	// Test that we can't start twice
	if err := q.Start(ctx); !errors.Is(err, ErrAlreadyStarted) {
		t.Errorf("Expected ErrAlreadyStarted, got %v", err)
	}

	for i := 0; i < 5; i++ {
		if err := q.Enqueue(testTask{id: i}); err != nil {
			t.Errorf("Failed to enqueue task %d: %v", i, err)
		}
	}

	waitForInt64(t, &processedCount, 5)

	if err := q.Stop(5 * time.Second); err != nil {
		t.Fatalf("Failed to stop queue: %v", err)
	}

	// Test that we can't enqueue after stopping
	if err := q.Enqueue(testTask{id: 999}); !errors.Is(err, ErrStopped) {
		t.Errorf("Expected ErrStopped, got %v", err)
	}
}

func TestQueue_EnqueueBeforeStart(t *testing.T) {
	q := New("outbound", func(_ context.Context, _ testTask) error {
		return nil
	})

	if err := q.Enqueue(testTask{id: 1}); !errors.Is(err, ErrNotStarted) {
		t.Errorf("Expected ErrNotStarted, got %v", err)
	}
}

func TestQueue_FIFOOrder(t *testing.T) {
	var mu sync.Mutex
	var order []int
	var processedCount int64

	q := New("inbound", func(_ context.Context, task testTask) error {
		mu.Lock()
		order = append(order, task.id)
		mu.Unlock()
		atomic.AddInt64(&processedCount, 1)
		return nil
	})

	ctx := context.Background()
	if err := q.Start(ctx); err != nil {
		t.Fatalf("Failed to start queue: %v", err)
	}
	defer q.Stop(5 * time.Second)

	const count = 200
	for i := 0; i < count; i++ {
		if err := q.Enqueue(testTask{id: i}); err != nil {
			t.Fatalf("Failed to enqueue task %d: %v", i, err)
		}
	}

	waitForInt64(t, &processedCount, count)

	mu.Lock()
	defer mu.Unlock()
	if len(order) != count {
		t.Fatalf("Expected %d processed tasks, got %d", count, len(order))
	}
	for i, id := range order {
		if id != i {
			t.Fatalf("Task %d processed out of order: got id %d", i, id)
		}
	}
}

func TestQueue_EnqueueNeverBlocks(t *testing.T) {
	gate := make(chan struct{})
	var started int64

	q := New("outbound", func(_ context.Context, _ testTask) error {
		atomic.AddInt64(&started, 1)
		<-gate
		return nil
	})

	ctx := context.Background()
	if err := q.Start(ctx); err != nil {
		t.Fatalf("Failed to start queue: %v", err)
	}
	defer q.Stop(5 * time.Second)

	// Block the consumer on the first item, then pile on work. Every
	// enqueue must succeed immediately regardless of backlog size.
	if err := q.Enqueue(testTask{id: 0}); err != nil {
		t.Fatalf("Failed to enqueue first task: %v", err)
	}
	waitForInt64(t, &started, 1)

	const backlog = 10000
	for i := 1; i <= backlog; i++ {
		if err := q.Enqueue(testTask{id: i}); err != nil {
			t.Fatalf("Enqueue %d failed: %v", i, err)
		}
	}

	if depth := q.Depth(); depth != backlog {
		t.Errorf("Expected depth %d, got %d", backlog, depth)
	}

	close(gate)
	stats := q.Stats()
	if stats.Enqueued != backlog+1 {
		t.Errorf("Expected %d enqueued, got %d", backlog+1, stats.Enqueued)
	}
}

func TestQueue_DrainDoesNotInterruptInFlight(t *testing.T) {
	gate := make(chan struct{})
	var started, processedCount int64

	q := New("inbound", func(_ context.Context, _ testTask) error {
		atomic.AddInt64(&started, 1)
		<-gate
		atomic.AddInt64(&processedCount, 1)
		return nil
	})

	ctx := context.Background()
	if err := q.Start(ctx); err != nil {
		t.Fatalf("Failed to start queue: %v", err)
	}
	defer q.Stop(5 * time.Second)

	if err := q.Enqueue(testTask{id: 0}); err != nil {
		t.Fatalf("Failed to enqueue task: %v", err)
	}
	waitForInt64(t, &started, 1)

	for i := 1; i <= 5; i++ {
		if err := q.Enqueue(testTask{id: i}); err != nil {
			t.Fatalf("Failed to enqueue task %d: %v", i, err)
		}
	}

	// Drain while the first item is still being processed
	if drained := q.Drain(); drained != 5 {
		t.Errorf("Expected 5 drained items, got %d", drained)
	}
	if depth := q.Depth(); depth != 0 {
		t.Errorf("Expected empty queue after drain, got depth %d", depth)
	}

	// The in-flight item must complete normally
	close(gate)
	waitForInt64(t, &processedCount, 1)

	stats := q.Stats()
	if stats.Processed != 1 {
		t.Errorf("Expected 1 processed, got %d", stats.Processed)
	}
	if stats.Dropped != 5 {
		t.Errorf("Expected 5 dropped, got %d", stats.Dropped)
	}
}

func TestQueue_DrainEmpty(t *testing.T) {
	q := New("outbound", func(_ context.Context, _ testTask) error {
		return nil
	})

	if drained := q.Drain(); drained != 0 {
		t.Errorf("Expected 0 drained from empty queue, got %d", drained)
	}
}

func TestQueue_StopProcessesBacklog(t *testing.T) {
	var processedCount int64
	q := New("outbound", func(_ context.Context, _ testTask) error {
		time.Sleep(time.Millisecond)
		atomic.AddInt64(&processedCount, 1)
		return nil
	})

	ctx := context.Background()
	if err := q.Start(ctx); err != nil {
		t.Fatalf("Failed to start queue: %v", err)
	}

	const count = 20
	for i := 0; i < count; i++ {
		if err := q.Enqueue(testTask{id: i}); err != nil {
			t.Fatalf("Failed to enqueue task %d: %v", i, err)
		}
	}

	// Stop must let the consumer work off the backlog
	if err := q.Stop(5 * time.Second); err != nil {
		t.Fatalf("Failed to stop queue: %v", err)
	}

	if processed := atomic.LoadInt64(&processedCount); processed != count {
		t.Errorf("Expected %d processed after stop, got %d", count, processed)
	}
}

func TestQueue_StopTimeout(t *testing.T) {
	gate := make(chan struct{})
	defer close(gate)

	var started int64
	q := New("outbound", func(_ context.Context, _ testTask) error {
		atomic.AddInt64(&started, 1)
		<-gate
		return nil
	})

	ctx := context.Background()
	if err := q.Start(ctx); err != nil {
		t.Fatalf("Failed to start queue: %v", err)
	}

	if err := q.Enqueue(testTask{id: 0}); err != nil {
		t.Fatalf("Failed to enqueue task: %v", err)
	}
	waitForInt64(t, &started, 1)

	if err := q.Stop(50 * time.Millisecond); !errors.Is(err, ErrStopTimeout) {
		t.Errorf("Expected ErrStopTimeout, got %v", err)
	}
}

func TestQueue_StopIdempotent(t *testing.T) {
	q := New("outbound", func(_ context.Context, _ testTask) error {
		return nil
	})

	// Stop before start is a no-op
	if err := q.Stop(time.Second); err != nil {
		t.Errorf("Expected nil from stop before start, got %v", err)
	}

	if err := q.Start(context.Background()); err != nil {
		t.Fatalf("Failed to start queue: %v", err)
	}
	if err := q.Stop(time.Second); err != nil {
		t.Errorf("First stop failed: %v", err)
	}
	if err := q.Stop(time.Second); err != nil {
		t.Errorf("Second stop failed: %v", err)
	}
}

func TestQueue_ContextCancellation(t *testing.T) {
	var processedCount int64
	q := New("inbound", func(_ context.Context, _ testTask) error {
		atomic.AddInt64(&processedCount, 1)
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	if err := q.Start(ctx); err != nil {
		t.Fatalf("Failed to start queue: %v", err)
	}

	if err := q.Enqueue(testTask{id: 0}); err != nil {
		t.Fatalf("Failed to enqueue task: %v", err)
	}
	waitForInt64(t, &processedCount, 1)

	cancel()

	// The abort flag is set asynchronously; wait until enqueues are refused
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if err := q.Enqueue(testTask{id: 1}); errors.Is(err, ErrStopped) {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("Enqueue still accepted after context cancellation")
}

func TestQueue_ProcessingErrors(t *testing.T) {
	var processedCount int64
	q := New("inbound", func(_ context.Context, task testTask) error {
		atomic.AddInt64(&processedCount, 1)
		if task.fail {
			return errors.New("simulated error")
		}
		return nil
	})

	ctx := context.Background()
	if err := q.Start(ctx); err != nil {
		t.Fatalf("Failed to start queue: %v", err)
	}
	defer q.Stop(5 * time.Second)

	// Half the tasks fail; the consumer must keep going
	for i := 0; i < 10; i++ {
		if err := q.Enqueue(testTask{id: i, fail: i%2 == 0}); err != nil {
			t.Fatalf("Failed to enqueue task %d: %v", i, err)
		}
	}

	waitForInt64(t, &processedCount, 10)

	stats := q.Stats()
	if stats.Processed != 10 {
		t.Errorf("Expected 10 processed, got %d", stats.Processed)
	}
	if stats.Failed != 5 {
		t.Errorf("Expected 5 failed, got %d", stats.Failed)
	}
}

func TestQueue_ConcurrentEnqueue(t *testing.T) {
	var processedCount int64
	q := New("outbound", func(_ context.Context, _ testTask) error {
		atomic.AddInt64(&processedCount, 1)
		return nil
	})

	ctx := context.Background()
	if err := q.Start(ctx); err != nil {
		t.Fatalf("Failed to start queue: %v", err)
	}
	defer q.Stop(5 * time.Second)

	const producers = 10
	const perProducer = 100

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				if err := q.Enqueue(testTask{id: p*perProducer + i}); err != nil {
					t.Errorf("Enqueue failed: %v", err)
					return
				}
			}
		}(p)
	}
	wg.Wait()

	waitForInt64(t, &processedCount, producers*perProducer)

	stats := q.Stats()
	if stats.Enqueued != producers*perProducer {
		t.Errorf("Expected %d enqueued, got %d", producers*perProducer, stats.Enqueued)
	}
}
