package taskqueue

import "errors"

// Sentinel errors for queue operations
var (
	// ErrNotStarted indicates the queue hasn't been started yet
	ErrNotStarted = errors.New("task queue not started")

	// ErrStopped indicates the queue has been stopped
	ErrStopped = errors.New("task queue stopped")

	// ErrAlreadyStarted indicates Start() was called on an already-started queue
	ErrAlreadyStarted = errors.New("task queue already started")

	// ErrNilProcessor indicates a nil processor function was provided
	ErrNilProcessor = errors.New("processor function cannot be nil")

	// ErrStopTimeout indicates the consumer didn't exit within the timeout
	ErrStopTimeout = errors.New("timeout waiting for consumer to stop")
)
