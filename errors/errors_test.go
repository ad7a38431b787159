package errors

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"
)

func TestErrorClass_String(t *testing.T) {
	tests := []struct {
		class    ErrorClass
		expected string
	}{
		{ErrorTransient, "transient"},
		{ErrorInvalid, "invalid"},
		{ErrorFatal, "fatal"},
		{ErrorClass(999), "unknown"},
	}

	for _, test := range tests {
		t.Run(test.expected, func(t *testing.T) {
			result := test.class.String()
			if result != test.expected {
				t.Errorf("expected %s, got %s", test.expected, result)
			}
		})
	}
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil error", nil, false},
		{"connection timeout", ErrConnectionTimeout, true},
		{"connection lost", ErrConnectionLost, true},
		{"no connection", ErrNoConnection, true},
		{"SUT unreachable", ErrSUTUnreachable, true},
		{"context deadline exceeded", context.DeadlineExceeded, true},
		{"invalid message", ErrInvalidMessage, false},
		{"invalid config", ErrInvalidConfig, false},
		{"timeout in message", fmt.Errorf("operation timeout occurred"), true},
		{"refused in message", fmt.Errorf("dial tcp: connection refused"), true},
		{"classified transient", &ClassifiedError{Class: ErrorTransient, Err: fmt.Errorf("test")}, true},
		{"classified fatal", &ClassifiedError{Class: ErrorFatal, Err: fmt.Errorf("test")}, false},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			result := IsTransient(test.err)
			if result != test.expected {
				t.Errorf("expected %v, got %v for error: %v", test.expected, result, test.err)
			}
		})
	}
}

func TestIsFatal(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil error", nil, false},
		{"invalid config", ErrInvalidConfig, true},
		{"missing config", ErrMissingConfig, true},
		{"connection lost", ErrConnectionLost, false},
		{"classified fatal", &ClassifiedError{Class: ErrorFatal, Err: fmt.Errorf("test")}, true},
		{"classified transient", &ClassifiedError{Class: ErrorTransient, Err: fmt.Errorf("test")}, false},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			result := IsFatal(test.err)
			if result != test.expected {
				t.Errorf("expected %v, got %v for error: %v", test.expected, result, test.err)
			}
		})
	}
}

func TestIsInvalid(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil error", nil, false},
		{"invalid message", ErrInvalidMessage, true},
		{"decode failed", ErrDecodeFailed, true},
		{"wrong sort", ErrWrongSort, true},
		{"connection lost", ErrConnectionLost, false},
		{"classified invalid", &ClassifiedError{Class: ErrorInvalid, Err: fmt.Errorf("test")}, true},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			result := IsInvalid(test.err)
			if result != test.expected {
				t.Errorf("expected %v, got %v for error: %v", test.expected, result, test.err)
			}
		})
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected ErrorClass
	}{
		{"nil error", nil, ErrorTransient},
		{"transient", ErrConnectionLost, ErrorTransient},
		{"fatal", ErrInvalidConfig, ErrorFatal},
		{"invalid", ErrDecodeFailed, ErrorInvalid},
		{"unknown defaults to transient", fmt.Errorf("some opaque failure"), ErrorTransient},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			result := Classify(test.err)
			if result != test.expected {
				t.Errorf("expected %v, got %v", test.expected, result)
			}
		})
	}
}

func TestWrap(t *testing.T) {
	base := fmt.Errorf("underlying problem")
	wrapped := Wrap(base, "Core", "startSession", "transport connect")

	expected := "Core.startSession: transport connect failed: underlying problem"
	if wrapped.Error() != expected {
		t.Errorf("expected %q, got %q", expected, wrapped.Error())
	}

	if !errors.Is(wrapped, base) {
		t.Error("wrapped error should match base via errors.Is")
	}

	if Wrap(nil, "Core", "startSession", "transport connect") != nil {
		t.Error("wrapping nil should return nil")
	}
}

func TestWrapClassified(t *testing.T) {
	base := fmt.Errorf("dial failed")

	tests := []struct {
		name     string
		wrap     func(error, string, string, string) error
		expected ErrorClass
	}{
		{"transient", WrapTransient, ErrorTransient},
		{"invalid", WrapInvalid, ErrorInvalid},
		{"fatal", WrapFatal, ErrorFatal},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			wrapped := test.wrap(base, "WebSocketConnection", "Connect", "dial")
			if wrapped == nil {
				t.Fatal("expected non-nil wrapped error")
			}

			var ce *ClassifiedError
			if !errors.As(wrapped, &ce) {
				t.Fatal("expected ClassifiedError in chain")
			}
			if ce.Class != test.expected {
				t.Errorf("expected class %v, got %v", test.expected, ce.Class)
			}
			if ce.Component != "WebSocketConnection" {
				t.Errorf("expected component preserved, got %q", ce.Component)
			}
			if !errors.Is(wrapped, base) {
				t.Error("base error lost from chain")
			}
			if !strings.Contains(wrapped.Error(), "WebSocketConnection.Connect: dial failed") {
				t.Errorf("unexpected message format: %q", wrapped.Error())
			}

			if test.wrap(nil, "c", "m", "a") != nil {
				t.Error("wrapping nil should return nil")
			}
		})
	}
}

func TestRetryConfig_ShouldRetry(t *testing.T) {
	cfg := DefaultRetryConfig()

	if cfg.ShouldRetry(nil, 0) {
		t.Error("nil error should not retry")
	}
	if cfg.ShouldRetry(ErrConnectionLost, cfg.MaxRetries) {
		t.Error("should not retry past MaxRetries")
	}
	if !cfg.ShouldRetry(ErrConnectionLost, 0) {
		t.Error("transient error should retry")
	}
	if cfg.ShouldRetry(ErrInvalidConfig, 0) {
		t.Error("fatal error should not retry")
	}

	scoped := cfg
	scoped.RetryableErrors = []error{ErrConnectionTimeout}
	if scoped.ShouldRetry(ErrConnectionLost, 0) {
		t.Error("error outside RetryableErrors should not retry")
	}
	if !scoped.ShouldRetry(ErrConnectionTimeout, 0) {
		t.Error("error inside RetryableErrors should retry")
	}
}

func TestRetryConfig_BackoffDelay(t *testing.T) {
	cfg := RetryConfig{
		InitialDelay:  100 * time.Millisecond,
		MaxDelay:      1 * time.Second,
		BackoffFactor: 2.0,
	}

	tests := []struct {
		attempt  int
		expected time.Duration
	}{
		{0, 100 * time.Millisecond},
		{1, 200 * time.Millisecond},
		{2, 400 * time.Millisecond},
		{3, 800 * time.Millisecond},
		{4, 1 * time.Second}, // capped
		{10, 1 * time.Second},
	}

	for _, test := range tests {
		if got := cfg.BackoffDelay(test.attempt); got != test.expected {
			t.Errorf("attempt %d: expected %v, got %v", test.attempt, test.expected, got)
		}
	}
}

func TestRetryConfig_ToRetryConfig(t *testing.T) {
	cfg := DefaultRetryConfig()
	rc := cfg.ToRetryConfig()

	if rc.MaxAttempts != cfg.MaxRetries+1 {
		t.Errorf("expected MaxAttempts %d, got %d", cfg.MaxRetries+1, rc.MaxAttempts)
	}
	if rc.InitialDelay != cfg.InitialDelay {
		t.Errorf("InitialDelay not carried over")
	}
	if rc.Multiplier != cfg.BackoffFactor {
		t.Errorf("Multiplier not carried over")
	}
	if !rc.AddJitter {
		t.Error("jitter should be enabled")
	}
}
