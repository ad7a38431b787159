package protocol

import (
	"encoding/json"
	"fmt"

	"github.com/larsvanarragon/axini-matrix-skeleton/errors"
)

// The wire format is a JSON object with exactly one key naming the message
// kind. Empty variants carry an empty object:
//
//	{"announcement": {"name": "...", "labels": [...], "configuration": {...}}}
//	{"configuration": {"items": [...]}}
//	{"label": {"sort": "stimulus", "name": "open", "channel": "matrix", ...}}
//	{"reset": {}}
//	{"ready": {}}
//	{"error": {"message": "..."}}
//
// Label physical payloads are base64 strings on the wire, the standard
// encoding/json treatment of []byte.

// wireEnvelope is the single-key JSON wire representation of a Message.
type wireEnvelope struct {
	Announcement  *Announcement  `json:"announcement,omitempty"`
	Configuration *Configuration `json:"configuration,omitempty"`
	Label         *Label         `json:"label,omitempty"`
	Reset         *wireEmpty     `json:"reset,omitempty"`
	Ready         *wireEmpty     `json:"ready,omitempty"`
	Error         *wireError     `json:"error,omitempty"`
}

// wireEmpty is the payload of kinds that carry no data.
type wireEmpty struct{}

// wireError is the payload of the error kind.
type wireError struct {
	Message string `json:"message"`
}

// MarshalJSON implements json.Marshaler for Message. This allows Message to
// be serialized to JSON even though its fields are private.
func (m Message) MarshalJSON() ([]byte, error) {
	var wire wireEnvelope

	switch m.kind {
	case KindAnnouncement:
		wire.Announcement = m.announcement
	case KindConfiguration:
		wire.Configuration = m.configuration
	case KindLabel:
		wire.Label = m.label
	case KindReset:
		wire.Reset = &wireEmpty{}
	case KindReady:
		wire.Ready = &wireEmpty{}
	case KindError:
		wire.Error = &wireError{Message: m.errorText}
	default:
		return nil, errors.WrapInvalid(errors.ErrInvalidMessage, "Message", "MarshalJSON",
			fmt.Sprintf("cannot encode message of kind %q", m.kind))
	}

	return json.Marshal(wire)
}

// UnmarshalJSON implements json.Unmarshaler for Message. Exactly one wire
// key must be present.
func (m *Message) UnmarshalJSON(data []byte) error {
	var wire wireEnvelope
	if err := json.Unmarshal(data, &wire); err != nil {
		return errors.WrapInvalid(err, "Message", "UnmarshalJSON", "failed to unmarshal wire format")
	}

	var decoded Message
	kinds := 0

	if wire.Announcement != nil {
		decoded = Message{kind: KindAnnouncement, announcement: wire.Announcement}
		kinds++
	}
	if wire.Configuration != nil {
		decoded = Message{kind: KindConfiguration, configuration: wire.Configuration}
		kinds++
	}
	if wire.Label != nil {
		decoded = Message{kind: KindLabel, label: wire.Label}
		kinds++
	}
	if wire.Reset != nil {
		decoded = Message{kind: KindReset}
		kinds++
	}
	if wire.Ready != nil {
		decoded = Message{kind: KindReady}
		kinds++
	}
	if wire.Error != nil {
		decoded = Message{kind: KindError, errorText: wire.Error.Message}
		kinds++
	}

	switch kinds {
	case 1:
		*m = decoded
		return nil
	case 0:
		return errors.WrapInvalid(errors.ErrInvalidMessage, "Message", "UnmarshalJSON",
			"message sets no kind")
	default:
		return errors.WrapInvalid(errors.ErrInvalidMessage, "Message", "UnmarshalJSON",
			fmt.Sprintf("message sets %d kinds, want exactly 1", kinds))
	}
}

// Encode serializes a message to its wire bytes.
func Encode(m Message) ([]byte, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return nil, errors.WrapInvalid(err, "protocol", "Encode", "encode message")
	}
	return data, nil
}

// Decode parses wire bytes into a message.
func Decode(data []byte) (Message, error) {
	if len(data) == 0 {
		return Message{}, errors.WrapInvalid(errors.ErrEmptyMessage, "protocol", "Decode",
			"empty wire data")
	}

	var m Message
	if err := json.Unmarshal(data, &m); err != nil {
		return Message{}, errors.WrapInvalid(
			fmt.Errorf("%w: %v", errors.ErrDecodeFailed, err),
			"protocol", "Decode", "decode message")
	}
	return m, nil
}
