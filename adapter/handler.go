package adapter

import (
	"github.com/larsvanarragon/axini-matrix-skeleton/protocol"
)

// Handler connects one SUT to the session core. The core calls every method
// except Bind from its inbound worker, one call at a time; a blocking
// handler stalls inbound dispatch but never outbound sending.
type Handler interface {
	// Start brings up the SUT connection. Called when the broker's
	// configuration has been accepted. The handler signals readiness later,
	// through Responder.SendReady, once the SUT confirms its reset.
	Start() error

	// Stop tears the SUT connection down. Called when the broker session
	// ends, and on adapter shutdown.
	Stop() error

	// Reset returns the SUT to its initial state without restarting it.
	// A nil return means the reset was issued cleanly; readiness is again
	// signalled through Responder.SendReady.
	Reset() error

	// Stimulate applies one stimulus label to the SUT. The handler confirms
	// the stimulus through Responder.SendStimulusConfirmation before
	// touching the SUT, and reports SUT responses asynchronously through
	// Responder.SendResponse.
	Stimulate(label protocol.Label) error

	// SupportedLabels returns the full label catalogue, both sorts, for the
	// announcement.
	SupportedLabels() []protocol.Label

	// DefaultConfiguration returns the configuration offered to the broker
	// in the announcement.
	DefaultConfiguration() protocol.Configuration

	// SetConfiguration replaces the handler's configuration wholesale with
	// the broker's. Unknown items are rejected.
	SetConfiguration(cfg protocol.Configuration) error

	// Configuration returns the current configuration.
	Configuration() protocol.Configuration

	// Bind injects the core's callback surface. Called once, during
	// adapter initialization, before any other method.
	Bind(responder Responder)
}

// Responder is the narrow surface a handler uses to talk back to the
// broker. All methods are safe to call from any goroutine, including SUT
// read loops.
type Responder interface {
	// SendResponse forwards one SUT response label to the broker. Labels
	// of any other sort escalate to a session error.
	SendResponse(label protocol.Label)

	// SendReady tells the broker the SUT is ready for the next test step.
	SendReady()

	// SendStimulusConfirmation echoes a stimulus label back to the broker
	// as acknowledgment, with its assigned timestamp and physical payload.
	SendStimulusConfirmation(label protocol.Label)
}
