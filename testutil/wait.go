package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/larsvanarragon/axini-matrix-skeleton/adapter"
	"github.com/larsvanarragon/axini-matrix-skeleton/protocol"
)

// WaitFor polls cond every 10ms until it holds or the timeout elapses,
// failing the test on timeout.
func WaitFor(t testing.TB, timeout time.Duration, what string, cond func() bool) {
	t.Helper()
	if cond() {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			t.Fatalf("timeout waiting for %s", what)
		case <-ticker.C:
			if cond() {
				return
			}
		}
	}
}

// WaitForFrames waits until the mock connection has sent at least n frames.
func WaitForFrames(t testing.TB, conn *MockConnection, n int, timeout time.Duration) {
	t.Helper()
	WaitFor(t, timeout, "sent frames", func() bool {
		return conn.SentCount() >= n
	})
}

// WaitForState waits until the core reaches the wanted session state.
func WaitForState(t testing.TB, core *adapter.Core, want adapter.SessionState, timeout time.Duration) {
	t.Helper()
	WaitFor(t, timeout, "session state "+want.String(), func() bool {
		return core.State() == want
	})
}

// SentMessages decodes every frame the mock connection has sent so far.
func SentMessages(t testing.TB, conn *MockConnection) []protocol.Message {
	t.Helper()
	frames := conn.SentFrames()
	msgs := make([]protocol.Message, 0, len(frames))
	for _, frame := range frames {
		msg, err := protocol.Decode(frame)
		if err != nil {
			t.Fatalf("could not decode sent frame %q: %v", frame, err)
		}
		msgs = append(msgs, msg)
	}
	return msgs
}
