package adapter

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSessionState_String(t *testing.T) {
	tests := []struct {
		state SessionState
		want  string
	}{
		{StateDisconnected, "disconnected"},
		{StateConnected, "connected"},
		{StateAnnounced, "announced"},
		{StateConfigured, "configured"},
		{StateReady, "ready"},
		{StateError, "error"},
		{SessionState(42), "unknown"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.state.String())
	}
}

func TestSessionState_IsValid(t *testing.T) {
	valid := []SessionState{
		StateDisconnected, StateConnected, StateAnnounced,
		StateConfigured, StateReady, StateError,
	}
	for _, s := range valid {
		assert.True(t, s.IsValid(), "state %s should be valid", s)
	}

	assert.False(t, SessionState(-1).IsValid())
	assert.False(t, SessionState(42).IsValid())
}
