// Package errors provides standardized error handling patterns for the adapter.
//
// # Overview
//
// The errors package implements a three-class error classification system:
// Transient (temporary, retryable), Invalid (bad input, non-retryable), and
// Fatal (unrecoverable, stop processing).
//
// Classification lets callers decide between retrying, reporting a protocol
// error to the broker, and shutting down, without hardcoded error string
// matching. It integrates with Go's standard error handling, supporting
// errors.Is(), errors.As(), and wrapping chains.
//
// # Quick Start
//
// Use standard error variables for known conditions:
//
//	if conn == nil {
//	    return errors.ErrNoConnection
//	}
//
// Wrap errors with context when crossing a package boundary:
//
//	if err := handler.Start(); err != nil {
//	    return errors.Wrap(err, "Core", "onConfiguration", "handler start")
//	}
//
// Check classification for retry logic:
//
//	if err := dial(); err != nil {
//	    if errors.IsTransient(err) {
//	        cfg := errors.DefaultRetryConfig()
//	        if cfg.ShouldRetry(err, attempt) {
//	            time.Sleep(cfg.BackoffDelay(attempt))
//	        }
//	    }
//	}
//
// # Error Wrapping Pattern
//
// All error wrapping follows the standardized format:
//
//	"component.method: action failed: %w"
//
// Three wrapper functions provide classification-aware wrapping:
//
//	errors.WrapTransient(err, "Component", "Method", "action")
//	errors.WrapInvalid(err, "Component", "Method", "action")
//	errors.WrapFatal(err, "Component", "Method", "action")
//
// The generic Wrap() preserves the original error's classification.
//
// # Retry Integration
//
// RetryConfig carries retry policy alongside classification and converts to
// the retry package's Config via ToRetryConfig for use with retry.Do:
//
//	cfg := errors.DefaultRetryConfig()
//	err := retry.Do(ctx, cfg.ToRetryConfig(), func() error {
//	    return sut.Dial(endpoint)
//	})
package errors
