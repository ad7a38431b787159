package smartdoor

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/larsvanarragon/axini-matrix-skeleton/adapter"
	"github.com/larsvanarragon/axini-matrix-skeleton/errors"
	"github.com/larsvanarragon/axini-matrix-skeleton/metric"
	"github.com/larsvanarragon/axini-matrix-skeleton/pkg/retry"
	"github.com/larsvanarragon/axini-matrix-skeleton/pkg/timestamp"
	"github.com/larsvanarragon/axini-matrix-skeleton/protocol"
)

// Channel is the label channel all SmartDoor labels use.
const Channel = "matrix"

// resetPerformed is the SUT's acknowledgment that a reset completed. It
// maps to readiness, not to a response label.
const resetPerformed = "RESET_PERFORMED"

const (
	configItemEndpoint = "endpoint"
	defaultEndpoint    = "ws://localhost:3001"
)

// Handler drives the SmartDoor SUT over its WebSocket API. Stimuli become
// upper-cased commands ("open" sends OPEN, "lock" with passcode 1234 sends
// LOCK:1234); SUT replies come back as lower-cased response labels carrying
// the raw message as physical payload.
type Handler struct {
	logger   *slog.Logger
	retryCfg retry.Config
	metrics  *metric.Metrics

	mu              sync.Mutex
	responder       adapter.Responder
	config          protocol.Configuration
	conn            *Connection
	endpointDefault string
}

var _ adapter.Handler = (*Handler)(nil)

// Option represents a configuration option for the handler
type Option func(*Handler)

// WithMetrics reports SUT connectivity through the adapter's core metrics
func WithMetrics(m *metric.Metrics) Option {
	return func(h *Handler) {
		h.metrics = m
	}
}

// NewHandler builds a SmartDoor handler. The logger may be nil.
func NewHandler(logger *slog.Logger, opts ...Option) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handler{
		logger:          logger.With("component", "smartdoor_handler"),
		retryCfg:        retry.Quick(),
		endpointDefault: defaultEndpoint,
	}

	// Apply options
	for _, opt := range opts {
		opt(h)
	}

	return h
}

// SetDefaultEndpoint replaces the endpoint offered in the default
// configuration, typically with a value from the adapter's own config.
// AMP may still send a different endpoint in the session configuration.
func (h *Handler) SetDefaultEndpoint(url string) {
	if url == "" {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.endpointDefault = url
}

// Bind stores the responder used to reach the broker.
func (h *Handler) Bind(responder adapter.Responder) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.responder = responder
}

// SupportedLabels returns the SmartDoor catalogue.
func (h *Handler) SupportedLabels() []protocol.Label {
	passcode := protocol.Parameter{Name: "passcode", Type: protocol.TypeInteger}
	return []protocol.Label{
		protocol.NewStimulus("open", Channel),
		protocol.NewResponse("opened", Channel),
		protocol.NewStimulus("close", Channel),
		protocol.NewResponse("closed", Channel),
		protocol.NewStimulus("lock", Channel, passcode),
		protocol.NewResponse("locked", Channel),
		protocol.NewStimulus("unlock", Channel, passcode),
		protocol.NewResponse("unlocked", Channel),
		protocol.NewStimulus("reset", Channel),
		protocol.NewResponse("invalid_command", Channel),
		protocol.NewResponse("invalid_passcode", Channel),
		protocol.NewResponse("incorrect_passcode", Channel),
		protocol.NewResponse("shut_off", Channel),
	}
}

// DefaultConfiguration declares the single endpoint item.
func (h *Handler) DefaultConfiguration() protocol.Configuration {
	h.mu.Lock()
	endpoint := h.endpointDefault
	h.mu.Unlock()

	return protocol.NewConfiguration(protocol.ConfigurationItem{
		Name:        configItemEndpoint,
		Type:        protocol.TypeString,
		Description: "Base websocket URL of the SmartDoor API",
		Value:       endpoint,
	})
}

// SetConfiguration replaces the configuration wholesale. Items the handler
// never announced are rejected; an endpoint, when present, must be a
// string.
func (h *Handler) SetConfiguration(cfg protocol.Configuration) error {
	for _, item := range cfg.Items {
		if item.Name != configItemEndpoint {
			return errors.WrapInvalid(errors.ErrInvalidConfig, "Handler", "SetConfiguration",
				fmt.Sprintf("unknown configuration item %q", item.Name))
		}
	}
	if _, ok := cfg.Item(configItemEndpoint); ok {
		if _, err := cfg.String(configItemEndpoint); err != nil {
			return err
		}
	}

	h.mu.Lock()
	h.config = cfg
	h.mu.Unlock()
	return nil
}

// Configuration returns the currently applied configuration.
func (h *Handler) Configuration() protocol.Configuration {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.config
}

// endpoint returns the configured SmartDoor URL, falling back to the
// default when the configuration does not carry one.
func (h *Handler) endpoint() string {
	h.mu.Lock()
	cfg := h.config
	fallback := h.endpointDefault
	h.mu.Unlock()

	if value, err := cfg.String(configItemEndpoint); err == nil && value != "" {
		return value
	}
	return fallback
}

// Start dials the SmartDoor API and asks it for a clean start. Readiness
// is not signalled here: it follows once the SUT confirms the reset.
func (h *Handler) Start() error {
	if h.currentConn() != nil {
		return errors.WrapInvalid(errors.ErrAlreadyStarted, "Handler", "Start",
			"SUT connection already open")
	}

	conn := NewConnection(h.endpoint(), h.handleSUTMessage, h.logger)
	conn.retryCfg = h.retryCfg
	if err := conn.Connect(context.Background()); err != nil {
		return err
	}
	if err := conn.Send("RESET"); err != nil {
		_ = conn.Close()
		return err
	}

	h.mu.Lock()
	h.conn = conn
	h.mu.Unlock()

	if h.metrics != nil {
		h.metrics.RecordSUTStatus(true)
	}
	return nil
}

// Stop closes the SUT connection and joins its read loop. Stopping a
// handler that never started is a no-op: the broker session may end
// before any configuration arrived.
func (h *Handler) Stop() error {
	h.mu.Lock()
	conn := h.conn
	h.conn = nil
	h.mu.Unlock()

	if conn == nil {
		return nil
	}
	h.logger.Info("Stopping SmartDoor handler")
	if h.metrics != nil {
		h.metrics.RecordSUTStatus(false)
	}
	return conn.Close()
}

// Reset asks the SUT to return to its initial state. The RESET_PERFORMED
// reply signals readiness for the next test case.
func (h *Handler) Reset() error {
	conn := h.currentConn()
	if conn == nil {
		return errors.WrapInvalid(errors.ErrNotStarted, "Handler", "Reset",
			"SUT connection not open")
	}

	h.logger.Info("Resetting the SUT for a new test case")
	return conn.Send("RESET")
}

// Stimulate converts the label to its SUT command, confirms it to the
// broker, then injects it. The confirmation carries the injection
// timestamp and the raw command as physical payload.
func (h *Handler) Stimulate(label protocol.Label) error {
	conn := h.currentConn()
	if conn == nil {
		return errors.WrapInvalid(errors.ErrNotStarted, "Handler", "Stimulate",
			"SUT connection not open")
	}

	sutMsg, err := labelToMessage(label)
	if err != nil {
		return err
	}

	confirmation := label.
		WithTimestamp(timestamp.Now()).
		WithPhysicalPayload([]byte(sutMsg))
	if responder := h.currentResponder(); responder != nil {
		responder.SendStimulusConfirmation(confirmation)
	}

	h.logger.Info("Injecting stimulus at SUT", "name", label.Name)
	return conn.Send(sutMsg)
}

// handleSUTMessage turns one SUT message into broker traffic.
func (h *Handler) handleSUTMessage(message string) {
	responder := h.currentResponder()
	if responder == nil {
		h.logger.Warn("SUT message received before the handler was bound", "message", message)
		return
	}

	if message == resetPerformed {
		responder.SendReady()
		return
	}
	responder.SendResponse(messageToLabel(message))
}

func (h *Handler) currentConn() *Connection {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.conn
}

func (h *Handler) currentResponder() adapter.Responder {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.responder
}

// labelToMessage derives the SUT command for a stimulus: the upper-cased
// label name, with the passcode appended for lock and unlock.
func labelToMessage(label protocol.Label) (string, error) {
	command := strings.ToUpper(label.Name)
	if label.Name != "lock" && label.Name != "unlock" {
		return command, nil
	}

	param, ok := label.Parameter("passcode")
	if !ok {
		return "", errors.WrapInvalid(errors.ErrInvalidMessage, "Handler", "Stimulate",
			fmt.Sprintf("stimulus %s is missing its passcode parameter", label.Name))
	}
	passcode, err := param.IntegerValue()
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s:%d", command, passcode), nil
}

// messageToLabel maps a SUT reply to its response label: the lower-cased
// message as name, the raw message as physical payload, stamped with the
// observation time.
func messageToLabel(message string) protocol.Label {
	return protocol.NewResponse(strings.ToLower(message), Channel).
		WithTimestamp(timestamp.Now()).
		WithPhysicalPayload([]byte(message))
}
