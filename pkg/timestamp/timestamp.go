// Package timestamp provides standardized Unix timestamp handling utilities.
//
// This package uses int64 nanoseconds as the canonical timestamp format,
// matching the resolution labels carry on the wire. All timestamps are
// nanoseconds since Unix epoch (UTC).
//
// Zero Value Semantics:
//   - A timestamp value of 0 means "not set" or "unknown"
//   - Functions handle zero values gracefully, returning appropriate defaults
//
// Usage Examples:
//
//	// Current time
//	now := timestamp.Now()
//
//	// Convert from time.Time
//	ts := timestamp.FromTime(time.Now())
//
//	// Convert to time.Time
//	t := timestamp.ToTime(ts)
//
//	// Format for display
//	display := timestamp.Format(ts)
//
//	// Parse various formats
//	ts := timestamp.Parse("2023-01-01T12:00:00Z")
//	ts := timestamp.Parse(1672574400)
package timestamp

import (
	"fmt"
	"strconv"
	"time"
)

// Now returns the current time as Unix nanoseconds.
func Now() int64 {
	return time.Now().UnixNano()
}

// FromTime converts a time.Time to Unix nanoseconds.
func FromTime(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}

// ToTime converts Unix nanoseconds to time.Time.
// Returns zero time if timestamp is 0.
func ToTime(ns int64) time.Time {
	if ns == 0 {
		return time.Time{}
	}
	return time.Unix(0, ns)
}

// Format converts Unix nanoseconds to an RFC3339Nano string for display.
// Returns empty string if timestamp is 0.
func Format(ns int64) string {
	if ns == 0 {
		return ""
	}
	return time.Unix(0, ns).UTC().Format(time.RFC3339Nano)
}

// Parse converts various timestamp formats to Unix nanoseconds.
// Supports:
//   - int64 / int / int32 (unit inferred: >1e15 nanoseconds, >1e12
//     milliseconds, otherwise seconds)
//   - float64 (same unit inference)
//   - string (RFC3339 or a numeric string with the inference above)
//   - time.Time / *time.Time
//   - nil/zero values (returns 0)
//
// Returns 0 for invalid input or parsing errors.
func Parse(input any) int64 {
	if input == nil {
		return 0
	}

	switch v := input.(type) {
	case int64:
		return fromNumeric(v)

	case float64:
		return fromNumeric(int64(v))

	case int:
		return fromNumeric(int64(v))

	case int32:
		return fromNumeric(int64(v))

	case string:
		if v == "" {
			return 0
		}

		if t, err := time.Parse(time.RFC3339, v); err == nil {
			return FromTime(t)
		}

		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return fromNumeric(n)
		}

		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return fromNumeric(int64(f))
		}

		return 0

	case time.Time:
		return FromTime(v)

	case *time.Time:
		if v == nil {
			return 0
		}
		return FromTime(*v)

	default:
		return 0
	}
}

// fromNumeric infers the unit of a numeric timestamp and normalizes to
// nanoseconds. Values above 1e15 are nanoseconds, above 1e12 milliseconds,
// the rest seconds.
func fromNumeric(v int64) int64 {
	switch {
	case v == 0:
		return 0
	case v > 1e15:
		return v
	case v > 1e12:
		return v * int64(time.Millisecond)
	default:
		return v * int64(time.Second)
	}
}

// IsZero checks if a timestamp is unset (zero).
func IsZero(ns int64) bool {
	return ns == 0
}

// Since returns the duration since the given timestamp.
// Returns 0 if timestamp is zero.
func Since(ns int64) time.Duration {
	if ns == 0 {
		return 0
	}
	return time.Since(time.Unix(0, ns))
}

// Between returns the duration between two timestamps.
// Returns 0 if either timestamp is zero.
func Between(start, end int64) time.Duration {
	if start == 0 || end == 0 {
		return 0
	}
	return time.Duration(end - start)
}

// Validate checks if a timestamp is valid. Negative values are rejected;
// any non-negative int64 nanosecond value is within the representable
// range (up to the year 2262).
func Validate(ns int64) error {
	if ns < 0 {
		return fmt.Errorf("timestamp cannot be negative: %d", ns)
	}
	return nil
}
