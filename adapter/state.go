package adapter

// SessionState is the adapter's position in the broker session lifecycle.
// It never travels on the wire; only the core mutates it, behind the state
// mutex.
type SessionState int

const (
	// StateDisconnected means no broker session exists. The initial state,
	// and the state after every close.
	StateDisconnected SessionState = iota

	// StateConnected means the transport reported open and the announcement
	// is about to be sent.
	StateConnected

	// StateAnnounced means the announcement went out and the broker's
	// configuration is awaited.
	StateAnnounced

	// StateConfigured means the configuration was accepted and handed to
	// the handler, which has not yet reported readiness.
	StateConfigured

	// StateReady means the session is live and stimuli flow.
	StateReady

	// StateError means a received Error message ended the session.
	StateError
)

// String returns the string representation of the state.
func (s SessionState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnected:
		return "connected"
	case StateAnnounced:
		return "announced"
	case StateConfigured:
		return "configured"
	case StateReady:
		return "ready"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// IsValid checks if the state is one of the defined values.
func (s SessionState) IsValid() bool {
	switch s {
	case StateDisconnected, StateConnected, StateAnnounced, StateConfigured, StateReady, StateError:
		return true
	default:
		return false
	}
}
