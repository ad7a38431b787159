// Package broker provides transports for the adapter's connection to AMP
package broker

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/larsvanarragon/axini-matrix-skeleton/errors"
	"github.com/larsvanarragon/axini-matrix-skeleton/metric"
	"github.com/larsvanarragon/axini-matrix-skeleton/pkg/security"
)

// Error messages
var (
	ErrAlreadyConnected  = stderrors.New("already connected to broker")
	ErrConnectInProgress = stderrors.New("connection attempt already in progress")
)

// Callbacks carries the session callbacks the core registers with a
// transport. All three fire from transport goroutines.
type Callbacks struct {
	// OnOpen fires once per established session, before any OnMessage.
	OnOpen func()

	// OnClose fires exactly once per established session, and once per
	// failed connection attempt.
	OnClose func()

	// OnMessage delivers one received wire message. Messages are delivered
	// in arrival order from a single goroutine.
	OnMessage func(data []byte)
}

// Connection is one bidirectional message link to AMP. Implementations own
// the reconnect backoff; callers own the retry loop.
type Connection interface {
	// SetCallbacks registers the session callbacks. Must be called once,
	// before the first Connect.
	SetCallbacks(cb Callbacks)

	// Connect begins one asynchronous session-establishment attempt.
	// Completion is reported through OnOpen, failure through OnClose.
	Connect(ctx context.Context) error

	// Send transmits one serialized message. Send order is preserved
	// end-to-end.
	Send(data []byte) error

	// Close terminates the current session, carrying a diagnostic reason.
	// Closing an unconnected transport is a no-op.
	Close(reason string) error

	// Connected reports whether a session is currently established.
	Connected() bool
}

// ReconnectConfig holds the exponential backoff applied before each
// connection attempt after a failure.
type ReconnectConfig struct {
	InitialInterval time.Duration `json:"initial_interval" yaml:"initial_interval"`
	MaxInterval     time.Duration `json:"max_interval" yaml:"max_interval"`
	Multiplier      float64       `json:"multiplier" yaml:"multiplier"`
}

// Config holds configuration shared by the broker transports.
type Config struct {
	// URL selects the transport by scheme: ws/wss or nats.
	URL string `json:"url" yaml:"url"`

	// Token authenticates the adapter: Authorization bearer header on
	// WebSocket, token auth on NATS.
	Token string `json:"token" yaml:"token"`

	// Name identifies the adapter to the broker (NATS connection name).
	Name string `json:"name" yaml:"name"`

	HandshakeTimeout time.Duration `json:"handshake_timeout" yaml:"handshake_timeout"`
	PingInterval     time.Duration `json:"ping_interval" yaml:"ping_interval"`
	PongTimeout      time.Duration `json:"pong_timeout" yaml:"pong_timeout"`
	WriteTimeout     time.Duration `json:"write_timeout" yaml:"write_timeout"`

	Reconnect ReconnectConfig `json:"reconnect" yaml:"reconnect"`

	// TLS configures certificate verification and optional client
	// certificates for wss:// and TLS-enabled NATS endpoints.
	TLS security.ClientTLSConfig `json:"tls,omitempty" yaml:"tls,omitempty"`

	// NATS subjects for the two message directions.
	InboundSubject  string `json:"inbound_subject" yaml:"inbound_subject"`
	OutboundSubject string `json:"outbound_subject" yaml:"outbound_subject"`
}

// DefaultConfig returns the default transport configuration.
func DefaultConfig() Config {
	return Config{
		HandshakeTimeout: 45 * time.Second,
		PingInterval:     30 * time.Second,
		PongTimeout:      60 * time.Second,
		WriteTimeout:     10 * time.Second,
		Reconnect: ReconnectConfig{
			InitialInterval: time.Second,
			MaxInterval:     30 * time.Second,
			Multiplier:      2.0,
		},
		InboundSubject:  "amp.adapter.inbound",
		OutboundSubject: "amp.adapter.outbound",
	}
}

// withDefaults fills zero-valued tuning fields from DefaultConfig.
func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.HandshakeTimeout <= 0 {
		c.HandshakeTimeout = def.HandshakeTimeout
	}
	if c.PingInterval <= 0 {
		c.PingInterval = def.PingInterval
	}
	if c.PongTimeout <= 0 {
		c.PongTimeout = def.PongTimeout
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = def.WriteTimeout
	}
	if c.Reconnect.InitialInterval <= 0 {
		c.Reconnect.InitialInterval = def.Reconnect.InitialInterval
	}
	if c.Reconnect.MaxInterval <= 0 {
		c.Reconnect.MaxInterval = def.Reconnect.MaxInterval
	}
	if c.Reconnect.Multiplier <= 1 {
		c.Reconnect.Multiplier = def.Reconnect.Multiplier
	}
	if c.InboundSubject == "" {
		c.InboundSubject = def.InboundSubject
	}
	if c.OutboundSubject == "" {
		c.OutboundSubject = def.OutboundSubject
	}
	return c
}

// backoffDelay computes the wait before a connection attempt. The first
// attempt connects immediately; retries wait
// initial * multiplier^(attempts-1), capped at the maximum.
func backoffDelay(cfg ReconnectConfig, attempts int32) time.Duration {
	if attempts == 0 {
		return 0
	}

	delay := cfg.InitialInterval
	for j := int32(1); j < attempts; j++ {
		delay = time.Duration(float64(delay) * cfg.Multiplier)
		if delay > cfg.MaxInterval {
			return cfg.MaxInterval
		}
	}
	return delay
}

// NewConnection selects a transport by URL scheme: ws/wss for WebSocket,
// nats for NATS.
func NewConnection(cfg Config, logger *slog.Logger, registry *metric.MetricsRegistry) (Connection, error) {
	u, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, errors.WrapInvalid(err, "broker", "NewConnection", "parse broker URL")
	}

	switch u.Scheme {
	case "ws", "wss":
		return NewWebSocketConnection(cfg, logger, registry)
	case "nats":
		return NewNATSConnection(cfg, logger, registry)
	default:
		return nil, errors.WrapInvalid(
			fmt.Errorf("unsupported broker URL scheme %q", u.Scheme),
			"broker",
			"NewConnection",
			"select transport",
		)
	}
}

// transportMetrics holds Prometheus metrics shared by the broker transports.
// Each transport registers under its own subsystem so both can coexist in
// one process.
type transportMetrics struct {
	connects        prometheus.Counter
	connectFailures prometheus.Counter
	messagesSent    prometheus.Counter
	messagesRecv    prometheus.Counter
	bytesSent       prometheus.Counter
	bytesRecv       prometheus.Counter
	connected       prometheus.Gauge
}

// newTransportMetrics creates and registers transport metrics. The transport
// name becomes the subsystem: matrix_adapter_broker_<transport>_*.
func newTransportMetrics(registry *metric.MetricsRegistry, transport string) (*transportMetrics, error) {
	if registry == nil {
		return nil, nil
	}

	subsystem := "broker_" + transport
	componentName := subsystem

	m := &transportMetrics{
		connects: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "matrix_adapter",
			Subsystem: subsystem,
			Name:      "connects_total",
			Help:      "Total successful broker connections",
		}),
		connectFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "matrix_adapter",
			Subsystem: subsystem,
			Name:      "connect_failures_total",
			Help:      "Total failed broker connection attempts",
		}),
		messagesSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "matrix_adapter",
			Subsystem: subsystem,
			Name:      "messages_sent_total",
			Help:      "Total messages sent to the broker",
		}),
		messagesRecv: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "matrix_adapter",
			Subsystem: subsystem,
			Name:      "messages_received_total",
			Help:      "Total messages received from the broker",
		}),
		bytesSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "matrix_adapter",
			Subsystem: subsystem,
			Name:      "bytes_sent_total",
			Help:      "Total bytes sent to the broker",
		}),
		bytesRecv: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "matrix_adapter",
			Subsystem: subsystem,
			Name:      "bytes_received_total",
			Help:      "Total bytes received from the broker",
		}),
		connected: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "matrix_adapter",
			Subsystem: subsystem,
			Name:      "connected",
			Help:      "Whether a broker session is established (1) or not (0)",
		}),
	}

	registrations := []struct {
		name string
		err  error
	}{
		{"connects_total", registry.RegisterCounter(componentName, "connects_total", m.connects)},
		{"connect_failures_total", registry.RegisterCounter(componentName, "connect_failures_total", m.connectFailures)},
		{"messages_sent_total", registry.RegisterCounter(componentName, "messages_sent_total", m.messagesSent)},
		{"messages_received_total", registry.RegisterCounter(componentName, "messages_received_total", m.messagesRecv)},
		{"bytes_sent_total", registry.RegisterCounter(componentName, "bytes_sent_total", m.bytesSent)},
		{"bytes_received_total", registry.RegisterCounter(componentName, "bytes_received_total", m.bytesRecv)},
		{"connected", registry.RegisterGauge(componentName, "connected", m.connected)},
	}
	for _, reg := range registrations {
		if reg.err != nil {
			return nil, errors.WrapTransient(reg.err, "broker", "newTransportMetrics",
				fmt.Sprintf("register %s", reg.name))
		}
	}

	return m, nil
}

// recordSent tracks one outbound message.
func (m *transportMetrics) recordSent(bytes int) {
	if m == nil {
		return
	}
	m.messagesSent.Inc()
	m.bytesSent.Add(float64(bytes))
}

// recordReceived tracks one inbound message.
func (m *transportMetrics) recordReceived(bytes int) {
	if m == nil {
		return
	}
	m.messagesRecv.Inc()
	m.bytesRecv.Add(float64(bytes))
}
