package timestamp_test

import (
	"fmt"
	"time"

	"github.com/larsvanarragon/axini-matrix-skeleton/pkg/timestamp"
)

// ExampleParse demonstrates parsing various timestamp formats
func ExampleParse() {
	// Parse RFC3339 string
	ts1 := timestamp.Parse("2023-01-15T12:30:45Z")
	fmt.Printf("RFC3339 parsed: %d\n", ts1)

	// Parse Unix seconds
	ts2 := timestamp.Parse(int64(1673784645))
	fmt.Printf("Unix seconds parsed: %d\n", ts2)

	// Parse Unix milliseconds
	ts3 := timestamp.Parse(int64(1673784645123))
	fmt.Printf("Unix milliseconds parsed: %d\n", ts3)

	// Output:
	// RFC3339 parsed: 1673785845000000000
	// Unix seconds parsed: 1673784645000000000
	// Unix milliseconds parsed: 1673784645123000000
}

// ExampleFormat demonstrates formatting timestamps for display
func ExampleFormat() {
	ts := int64(1673785845123000000)
	fmt.Printf("Formatted: %s\n", timestamp.Format(ts))

	// Zero timestamp returns empty string
	fmt.Printf("Zero formatted: '%s'\n", timestamp.Format(0))

	// Output:
	// Formatted: 2023-01-15T12:30:45.123Z
	// Zero formatted: ''
}

// ExampleBetween demonstrates calculating duration between timestamps
func ExampleBetween() {
	start := int64(1673785845123000000)
	end := start + int64(30*time.Minute)

	fmt.Printf("Duration: %v\n", timestamp.Between(start, end))

	// Zero timestamps return zero duration
	fmt.Printf("With zero: %v\n", timestamp.Between(0, end))

	// Output:
	// Duration: 30m0s
	// With zero: 0s
}
