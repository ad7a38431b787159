// Package taskqueue provides an unbounded, single-consumer FIFO queue for
// strictly ordered task processing.
//
// # Overview
//
// The taskqueue package exists for workloads where ordering matters more than
// parallelism. The adapter runs two of these queues: one carries messages
// bound for AMP, the other carries messages received from AMP. Each queue
// guarantees:
//   - Strict FIFO processing by exactly one consumer goroutine
//   - Non-blocking, never-dropping Enqueue (the queue grows as needed)
//   - Drain that discards the backlog without interrupting in-flight work
//   - Context-aware cancellation and graceful shutdown
//   - Always-on statistics plus optional Prometheus metrics
//
// # Architecture Decisions
//
// Unbounded Backing Store:
//
// The queue is a mutex-guarded slice with a condition variable, not a
// buffered channel. A channel's capacity is fixed at creation, which forces
// a choice between blocking producers and dropping work when it fills.
// Neither is acceptable here: producers are connection callbacks that must
// return quickly, and a dropped message desynchronizes the session. Memory
// is bounded in practice by Drain, which runs on every disconnect.
//
// Single Consumer:
//
// Exactly one goroutine processes items. Adding workers would reorder
// messages, and message order is the whole point of the session protocol.
//
// Drain Semantics:
//
// Drain removes every queued item and returns the count. An item already
// handed to the processor is not interrupted; the consumer finishes it and
// then finds the queue empty. This is what makes disconnect handling safe:
// the connection teardown path can flush both queues without racing the
// consumers.
//
// # Usage
//
//	queue := taskqueue.New[protocol.Message]("outbound",
//	    func(ctx context.Context, msg protocol.Message) error {
//	        return conn.Send(ctx, msg)
//	    },
//	    taskqueue.WithMetrics[protocol.Message](registry.CoreMetrics()),
//	)
//
//	if err := queue.Start(ctx); err != nil {
//	    return err
//	}
//	defer queue.Stop(5 * time.Second)
//
//	if err := queue.Enqueue(msg); err != nil {
//	    // ErrNotStarted or ErrStopped; both indicate a lifecycle bug
//	}
//
//	// On disconnect:
//	discarded := queue.Drain()
//
// # Shutdown
//
// Stop prevents further enqueues, lets the consumer work off the remaining
// backlog, and waits up to the given timeout for it to exit. Cancelling the
// Start context is the faster path: the consumer finishes only its in-flight
// item and exits, leaving the backlog unprocessed.
//
// # Thread Safety
//
// All public methods are safe for concurrent use. Enqueue and Drain may be
// called from any goroutine, including from inside the processor function.
// Statistics use atomic counters and can be read at any time.
//
// Processor errors are counted in Stats().Failed and reported through the
// optional metrics, but they never stop the consumer. Classified errors from
// the errors package pass through uninterpreted.
package taskqueue
