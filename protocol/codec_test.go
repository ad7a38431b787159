package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/larsvanarragon/axini-matrix-skeleton/errors"
)

func TestEncode_EmptyVariants(t *testing.T) {
	data, err := Encode(NewResetMessage())
	require.NoError(t, err)
	assert.JSONEq(t, `{"reset": {}}`, string(data))

	data, err = Encode(NewReadyMessage())
	require.NoError(t, err)
	assert.JSONEq(t, `{"ready": {}}`, string(data))
}

func TestEncode_Error(t *testing.T) {
	data, err := Encode(NewErrorMessage("Label is not a stimulus"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"error": {"message": "Label is not a stimulus"}}`, string(data))
}

func TestEncode_Label(t *testing.T) {
	label := NewStimulus("lock", "matrix", IntegerParameter("passcode", 9999)).
		WithTimestamp(1673785845123000000).
		WithPhysicalPayload([]byte("LOCK:9999")).
		WithCorrelationID("req-1")

	data, err := Encode(NewLabelMessage(label))
	require.NoError(t, err)

	assert.JSONEq(t, `{
		"label": {
			"sort": "stimulus",
			"name": "lock",
			"channel": "matrix",
			"parameters": [{"name": "passcode", "type": "integer", "value": 9999}],
			"timestamp": 1673785845123000000,
			"physical_payload": "TE9DSzo5OTk5",
			"correlation_id": "req-1"
		}
	}`, string(data))
}

func TestEncode_ZeroMessage(t *testing.T) {
	_, err := Encode(Message{})
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrInvalidMessage)
}

func TestRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		msg  Message
	}{
		{name: "announcement", msg: NewAnnouncementMessage(testAnnouncement())},
		{name: "configuration", msg: NewConfigurationMessage(NewConfiguration(
			ConfigurationItem{Name: "endpoint", Type: TypeString, Value: "ws://localhost:3001"},
		))},
		{name: "label", msg: NewLabelMessage(
			NewResponse("opened", "matrix").
				WithTimestamp(1673785845123000000).
				WithPhysicalPayload([]byte("OPENED")),
		)},
		{name: "reset", msg: NewResetMessage()},
		{name: "ready", msg: NewReadyMessage()},
		{name: "error", msg: NewErrorMessage("Resetting the SUT failed due to: timeout")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := Encode(tt.msg)
			require.NoError(t, err)

			decoded, err := Decode(data)
			require.NoError(t, err)
			assert.Equal(t, tt.msg.Kind(), decoded.Kind())
			assert.Equal(t, tt.msg.String(), decoded.String())
		})
	}
}

func TestRoundTrip_LabelPayload(t *testing.T) {
	original := NewResponse("opened", "matrix").WithPhysicalPayload([]byte("OPENED"))

	data, err := Encode(NewLabelMessage(original))
	require.NoError(t, err)

	decoded, err := Decode(data)
	require.NoError(t, err)

	label, ok := decoded.Label()
	require.True(t, ok)
	assert.Equal(t, []byte("OPENED"), label.PhysicalPayload)
}

func TestDecode_BrokerLabel(t *testing.T) {
	// A stimulus as the broker sends it. Parameter values arrive as JSON
	// numbers, which unmarshal to float64.
	wire := `{
		"label": {
			"sort": "stimulus",
			"name": "unlock",
			"channel": "matrix",
			"parameters": [{"name": "passcode", "type": "integer", "value": 9999}],
			"correlation_id": "amp-17"
		}
	}`

	msg, err := Decode([]byte(wire))
	require.NoError(t, err)
	require.Equal(t, KindLabel, msg.Kind())

	label, ok := msg.Label()
	require.True(t, ok)
	assert.Equal(t, "unlock", label.Name)
	assert.Equal(t, "amp-17", label.CorrelationID)

	p, ok := label.Parameter("passcode")
	require.True(t, ok)
	code, err := p.IntegerValue()
	require.NoError(t, err)
	assert.Equal(t, int64(9999), code)
}

func TestDecode_BrokerConfiguration(t *testing.T) {
	wire := `{
		"configuration": {
			"items": [
				{"name": "endpoint", "type": "string", "value": "ws://localhost:3001"}
			]
		}
	}`

	msg, err := Decode([]byte(wire))
	require.NoError(t, err)
	require.Equal(t, KindConfiguration, msg.Kind())

	cfg, ok := msg.Configuration()
	require.True(t, ok)
	endpoint, err := cfg.String("endpoint")
	require.NoError(t, err)
	assert.Equal(t, "ws://localhost:3001", endpoint)
}

func TestDecode_Empty(t *testing.T) {
	_, err := Decode(nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrEmptyMessage)

	_, err = Decode([]byte{})
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrEmptyMessage)
}

func TestDecode_InvalidJSON(t *testing.T) {
	_, err := Decode([]byte(`{"label": `))
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrDecodeFailed)
}

func TestDecode_NoKind(t *testing.T) {
	_, err := Decode([]byte(`{}`))
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrDecodeFailed)

	// Unknown keys are ignored, so an unrecognized kind decodes to nothing.
	_, err = Decode([]byte(`{"heartbeat": {}}`))
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrDecodeFailed)
}

func TestDecode_MultipleKinds(t *testing.T) {
	_, err := Decode([]byte(`{"ready": {}, "reset": {}}`))
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrDecodeFailed)
	assert.Contains(t, err.Error(), "exactly 1")
}
