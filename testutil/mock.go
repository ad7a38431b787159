package testutil

import (
	"sync"

	"github.com/larsvanarragon/axini-matrix-skeleton/adapter"
	"github.com/larsvanarragon/axini-matrix-skeleton/protocol"
)

// RecordingHandler is a scriptable adapter.Handler that records every
// call made to it. Override the exported Func fields to inject errors;
// set Labels and Defaults before wiring it into a core to change what
// it announces.
type RecordingHandler struct {
	mu sync.Mutex

	// Labels is the catalogue returned by SupportedLabels.
	Labels []protocol.Label
	// Defaults is the configuration returned by DefaultConfiguration.
	Defaults protocol.Configuration

	StartFunc            func() error
	StopFunc             func() error
	ResetFunc            func() error
	StimulateFunc        func(label protocol.Label) error
	SetConfigurationFunc func(cfg protocol.Configuration) error

	responder adapter.Responder
	config    protocol.Configuration

	startCalls     int
	stopCalls      int
	resetCalls     int
	setConfigCalls int
	stimulated     []protocol.Label
	calls          []string
}

var _ adapter.Handler = (*RecordingHandler)(nil)

// NewRecordingHandler returns a handler announcing a minimal catalogue
// of one stimulus and one response on channel "test".
func NewRecordingHandler() *RecordingHandler {
	return &RecordingHandler{
		Labels: []protocol.Label{
			protocol.NewStimulus("ping", "test"),
			protocol.NewResponse("pong", "test"),
		},
		Defaults: protocol.NewConfiguration(protocol.ConfigurationItem{
			Name:        "endpoint",
			Type:        protocol.TypeString,
			Description: "Base URL of the system under test",
			Value:       "ws://sut.local",
		}),
	}
}

// Bind stores the responder for later inspection via Responder.
func (h *RecordingHandler) Bind(responder adapter.Responder) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.responder = responder
	h.calls = append(h.calls, "Bind")
}

// Start records the call and runs StartFunc when set.
func (h *RecordingHandler) Start() error {
	h.mu.Lock()
	h.startCalls++
	h.calls = append(h.calls, "Start")
	fn := h.StartFunc
	h.mu.Unlock()
	if fn != nil {
		return fn()
	}
	return nil
}

// Stop records the call and runs StopFunc when set.
func (h *RecordingHandler) Stop() error {
	h.mu.Lock()
	h.stopCalls++
	h.calls = append(h.calls, "Stop")
	fn := h.StopFunc
	h.mu.Unlock()
	if fn != nil {
		return fn()
	}
	return nil
}

// Reset records the call and runs ResetFunc when set.
func (h *RecordingHandler) Reset() error {
	h.mu.Lock()
	h.resetCalls++
	h.calls = append(h.calls, "Reset")
	fn := h.ResetFunc
	h.mu.Unlock()
	if fn != nil {
		return fn()
	}
	return nil
}

// Stimulate records the label and runs StimulateFunc when set.
func (h *RecordingHandler) Stimulate(label protocol.Label) error {
	h.mu.Lock()
	h.stimulated = append(h.stimulated, label)
	h.calls = append(h.calls, "Stimulate")
	fn := h.StimulateFunc
	h.mu.Unlock()
	if fn != nil {
		return fn(label)
	}
	return nil
}

// SupportedLabels returns a copy of the configured catalogue.
func (h *RecordingHandler) SupportedLabels() []protocol.Label {
	h.mu.Lock()
	defer h.mu.Unlock()
	labels := make([]protocol.Label, len(h.Labels))
	copy(labels, h.Labels)
	return labels
}

// DefaultConfiguration returns the configured defaults.
func (h *RecordingHandler) DefaultConfiguration() protocol.Configuration {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.Defaults
}

// SetConfiguration records the call, runs SetConfigurationFunc when
// set, and stores the configuration on success.
func (h *RecordingHandler) SetConfiguration(cfg protocol.Configuration) error {
	h.mu.Lock()
	h.setConfigCalls++
	h.calls = append(h.calls, "SetConfiguration")
	fn := h.SetConfigurationFunc
	h.mu.Unlock()
	if fn != nil {
		if err := fn(cfg); err != nil {
			return err
		}
	}
	h.mu.Lock()
	h.config = cfg
	h.mu.Unlock()
	return nil
}

// Configuration returns the configuration most recently applied through
// SetConfiguration.
func (h *RecordingHandler) Configuration() protocol.Configuration {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.config
}

// Responder returns the responder captured by Bind, or nil before Bind.
func (h *RecordingHandler) Responder() adapter.Responder {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.responder
}

// StartCalls returns how many times Start was called.
func (h *RecordingHandler) StartCalls() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.startCalls
}

// StopCalls returns how many times Stop was called.
func (h *RecordingHandler) StopCalls() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.stopCalls
}

// ResetCalls returns how many times Reset was called.
func (h *RecordingHandler) ResetCalls() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.resetCalls
}

// SetConfigurationCalls returns how many times SetConfiguration was called.
func (h *RecordingHandler) SetConfigurationCalls() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.setConfigCalls
}

// Stimulated returns a copy of every label passed to Stimulate, in order.
func (h *RecordingHandler) Stimulated() []protocol.Label {
	h.mu.Lock()
	defer h.mu.Unlock()
	labels := make([]protocol.Label, len(h.stimulated))
	copy(labels, h.stimulated)
	return labels
}

// Calls returns a copy of the ordered method call log.
func (h *RecordingHandler) Calls() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	calls := make([]string, len(h.calls))
	copy(calls, h.calls)
	return calls
}

// RecordingResponder is an adapter.Responder that records everything a
// handler sends towards the broker.
type RecordingResponder struct {
	mu            sync.Mutex
	responses     []protocol.Label
	confirmations []protocol.Label
	readyCalls    int
}

var _ adapter.Responder = (*RecordingResponder)(nil)

// NewRecordingResponder returns an empty recorder.
func NewRecordingResponder() *RecordingResponder {
	return &RecordingResponder{}
}

// SendResponse records the response label.
func (r *RecordingResponder) SendResponse(label protocol.Label) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.responses = append(r.responses, label)
}

// SendReady counts the readiness signal.
func (r *RecordingResponder) SendReady() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.readyCalls++
}

// SendStimulusConfirmation records the confirmation label.
func (r *RecordingResponder) SendStimulusConfirmation(label protocol.Label) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.confirmations = append(r.confirmations, label)
}

// Responses returns a copy of every response sent, in order.
func (r *RecordingResponder) Responses() []protocol.Label {
	r.mu.Lock()
	defer r.mu.Unlock()
	labels := make([]protocol.Label, len(r.responses))
	copy(labels, r.responses)
	return labels
}

// Confirmations returns a copy of every confirmation sent, in order.
func (r *RecordingResponder) Confirmations() []protocol.Label {
	r.mu.Lock()
	defer r.mu.Unlock()
	labels := make([]protocol.Label, len(r.confirmations))
	copy(labels, r.confirmations)
	return labels
}

// ReadyCalls returns how many times SendReady was called.
func (r *RecordingResponder) ReadyCalls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.readyCalls
}
