// Package protocol defines the messages exchanged between the adapter and
// AMP, the Axini Modeling Platform broker that drives model-based tests
// against a system under test.
//
// # Message Kinds
//
// A Message is a tagged union with exactly one of six kinds:
//
//   - Announcement: adapter -> AMP, declares the adapter name, its label
//     catalogue, and the configuration items it accepts
//   - Configuration: AMP -> adapter, chosen values for the announced items
//   - Label: both directions, a stimulus to inject or a response observed
//   - Reset: AMP -> adapter, return the system under test to its initial state
//   - Ready: adapter -> AMP, the adapter can accept the next stimulus
//   - Error: both directions, an unrecoverable session fault
//
// Construct messages with the New*Message constructors and inspect them with
// Kind plus the comma-ok accessors:
//
//	msg, err := protocol.Decode(data)
//	if err != nil {
//	    return err
//	}
//	if label, ok := msg.Label(); ok {
//	    // dispatch the label
//	}
//
// # Wire Format
//
// Messages travel as JSON objects with exactly one key naming the kind:
//
//	{"label": {"sort": "stimulus", "name": "lock", "channel": "matrix",
//	           "parameters": [{"name": "passcode", "type": "integer", "value": 9999}]}}
//	{"ready": {}}
//	{"error": {"message": "Label is not a stimulus"}}
//
// Encode and Decode convert between Message values and wire bytes. Decode
// rejects payloads that set zero or multiple kinds.
//
// # Labels
//
// A Label is a named event on a channel. Stimuli flow from AMP into the
// system under test, responses flow back. Labels carry typed parameters,
// a nanosecond timestamp recording when the adapter handled the event, an
// optional physical payload with the raw bytes exchanged with the system
// under test, and a correlation ID used to confirm stimuli back to AMP.
//
// Labels are value types. The With* helpers return stamped copies so a
// catalogue label can be reused across events:
//
//	observed := catalogue.WithTimestamp(timestamp.Now()).
//	    WithPhysicalPayload(raw)
//
// # Configuration
//
// An Announcement carries the configuration items the adapter understands,
// each with a name, a value type, and a default. AMP responds with a
// Configuration holding the values to use for the session. The typed getters
// tolerate the numeric widening JSON decoding introduces, so an integer item
// reads back as int64 whether it was set natively or arrived as a JSON
// number.
package protocol
