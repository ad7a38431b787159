// Package retry provides simple exponential backoff retry logic for transient failures.
//
// # Overview
//
// This package offers a minimal retry mechanism with exponential backoff, used for
// network dials, resource initialization, and SUT connection establishment.
//
// # Core Functions
//
//   - Do: Execute function with retry and exponential backoff
//   - DoWithResult: Execute function with retry, returns both result and error
//
// # Configuration Presets
//
//   - DefaultConfig(): 3 attempts, 100ms-5s delay (normal operations)
//   - Quick(): 10 attempts, 50ms-1s delay (startup)
//   - Persistent(): 30 attempts, 200ms-10s delay (critical resources)
//
// # Usage Examples
//
// Basic retry with defaults:
//
//	err := retry.Do(ctx, retry.DefaultConfig(), func() error {
//	    return conn.Dial()
//	})
//
// Retry with result:
//
//	ws, err := retry.DoWithResult(ctx, retry.Quick(), func() (*websocket.Conn, error) {
//	    c, _, err := dialer.Dial(endpoint, nil)
//	    return c, err
//	})
//
// Marking an error as not worth retrying:
//
//	return retry.NonRetryable(fmt.Errorf("bad endpoint %q", endpoint))
//
// # Design Philosophy
//
// This package is intentionally minimal:
//
//   - No circuit breakers
//   - No metrics collection (instrument at the call site)
//   - No error classification (the errors package owns that; callers decide)
//   - Just exponential backoff with jitter
//
// # Context Cancellation
//
// All retry operations respect context cancellation and stop immediately when
// the context is cancelled, during execution or during backoff delay.
//
// # Thread Safety
//
// All functions are safe for concurrent use.
package retry
