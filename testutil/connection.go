package testutil

import (
	"context"
	"sync"

	"github.com/larsvanarragon/axini-matrix-skeleton/broker"
	"github.com/larsvanarragon/axini-matrix-skeleton/errors"
)

// MockConnection is an in-memory broker.Connection for testing the
// adapter core without a real transport. By default a Connect attempt
// stays pending until the test establishes the session with Open; set
// AutoOpen to have Connect succeed on its own, or script failures with
// FailConnects.
//
// Callbacks fire outside the mock's lock, so tests and the code under
// test may call back into the connection from inside a callback.
type MockConnection struct {
	mu sync.Mutex

	// AutoOpen makes Connect establish the session asynchronously,
	// like a transport whose dial succeeded.
	AutoOpen bool

	// ConnectFunc, SendFunc and CloseFunc override the default
	// behavior entirely when set.
	ConnectFunc func(ctx context.Context) error
	SendFunc    func(data []byte) error
	CloseFunc   func(reason string) error

	cb           broker.Callbacks
	connected    bool
	failConnects int

	connectCalls int
	sent         [][]byte
	closeReasons []string
}

var _ broker.Connection = (*MockConnection)(nil)

// NewMockConnection returns a disconnected mock connection.
func NewMockConnection() *MockConnection {
	return &MockConnection{}
}

// SetCallbacks stores the session callbacks.
func (m *MockConnection) SetCallbacks(cb broker.Callbacks) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cb = cb
}

// Connect records the attempt. Scripted failures report a closed
// session through the close callback, mirroring a failed dial.
func (m *MockConnection) Connect(ctx context.Context) error {
	m.mu.Lock()
	m.connectCalls++
	if m.ConnectFunc != nil {
		fn := m.ConnectFunc
		m.mu.Unlock()
		return fn(ctx)
	}
	if m.connected {
		m.mu.Unlock()
		return broker.ErrAlreadyConnected
	}
	fail := m.failConnects > 0
	if fail {
		m.failConnects--
	}
	autoOpen := m.AutoOpen
	cb := m.cb
	m.mu.Unlock()

	if fail {
		go func() {
			if cb.OnClose != nil {
				cb.OnClose()
			}
		}()
		return nil
	}
	if autoOpen {
		go m.Open()
	}
	return nil
}

// Send records the frame in order. Sending without an established
// session fails like a real transport would.
func (m *MockConnection) Send(data []byte) error {
	m.mu.Lock()
	if m.SendFunc != nil {
		fn := m.SendFunc
		m.mu.Unlock()
		return fn(data)
	}
	if !m.connected {
		m.mu.Unlock()
		return errors.WrapTransient(errors.ErrNoConnection, "MockConnection", "Send", "send message")
	}
	frame := make([]byte, len(data))
	copy(frame, data)
	m.sent = append(m.sent, frame)
	m.mu.Unlock()
	return nil
}

// Close records the reason and, if a session was established, reports
// it closed. Closing a disconnected connection is a no-op beyond the
// recorded reason.
func (m *MockConnection) Close(reason string) error {
	m.mu.Lock()
	if m.CloseFunc != nil {
		fn := m.CloseFunc
		m.mu.Unlock()
		return fn(reason)
	}
	m.closeReasons = append(m.closeReasons, reason)
	if !m.connected {
		m.mu.Unlock()
		return nil
	}
	m.connected = false
	cb := m.cb
	m.mu.Unlock()
	if cb.OnClose != nil {
		cb.OnClose()
	}
	return nil
}

// Connected reports whether the mock session is established.
func (m *MockConnection) Connected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connected
}

// Open establishes the session and fires the open callback from the
// calling goroutine. Opening an already established session is a no-op.
func (m *MockConnection) Open() {
	m.mu.Lock()
	if m.connected {
		m.mu.Unlock()
		return
	}
	m.connected = true
	cb := m.cb
	m.mu.Unlock()
	if cb.OnOpen != nil {
		cb.OnOpen()
	}
}

// Deliver hands an inbound frame to the message callback, like a frame
// arriving from the broker.
func (m *MockConnection) Deliver(data []byte) {
	m.mu.Lock()
	cb := m.cb
	m.mu.Unlock()
	if cb.OnMessage != nil {
		cb.OnMessage(data)
	}
}

// Drop tears the session down as if the peer closed it.
func (m *MockConnection) Drop() {
	m.mu.Lock()
	if !m.connected {
		m.mu.Unlock()
		return
	}
	m.connected = false
	cb := m.cb
	m.mu.Unlock()
	if cb.OnClose != nil {
		cb.OnClose()
	}
}

// FailConnects scripts the next n Connect attempts to fail.
func (m *MockConnection) FailConnects(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failConnects = n
}

// ConnectCalls returns how many times Connect was called.
func (m *MockConnection) ConnectCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connectCalls
}

// SentCount returns how many frames were sent.
func (m *MockConnection) SentCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

// SentFrames returns a copy of every frame sent, in order.
func (m *MockConnection) SentFrames() [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	frames := make([][]byte, len(m.sent))
	copy(frames, m.sent)
	return frames
}

// CloseReasons returns a copy of every reason passed to Close, in order.
func (m *MockConnection) CloseReasons() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	reasons := make([]string, len(m.closeReasons))
	copy(reasons, m.closeReasons)
	return reasons
}
