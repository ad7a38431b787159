package broker

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"github.com/larsvanarragon/axini-matrix-skeleton/errors"
	"github.com/larsvanarragon/axini-matrix-skeleton/metric"
	"github.com/larsvanarragon/axini-matrix-skeleton/pkg/security"
	"github.com/larsvanarragon/axini-matrix-skeleton/pkg/tlsutil"
)

// natsSession is one established NATS connection plus its inbound
// subscription. closeOnce guarantees teardown and OnClose run exactly once
// whether we close it or the server does.
type natsSession struct {
	id        string
	conn      *nats.Conn
	sub       *nats.Subscription
	closeOnce sync.Once
}

// NATSConnection is the NATS transport to AMP. Inbound messages arrive on
// the configured inbound subject, outbound messages are published to the
// outbound subject. It implements Connection.
//
// The nats.go client's own reconnect machinery is disabled; the session
// owner drives reconnection through Connect, so both transports behave the
// same way.
type NATSConnection struct {
	cfg     Config
	logger  *slog.Logger
	metrics *transportMetrics
	cb      Callbacks

	connMu  sync.Mutex
	session *natsSession

	connecting atomic.Bool
	attempts   atomic.Int32
}

var _ Connection = (*NATSConnection)(nil)

// NewNATSConnection creates a NATS transport for a nats:// broker URL. The
// registry may be nil to disable metrics.
func NewNATSConnection(cfg Config, logger *slog.Logger, registry *metric.MetricsRegistry) (*NATSConnection, error) {
	if logger == nil {
		logger = slog.Default()
	}

	m, err := newTransportMetrics(registry, "nats")
	if err != nil {
		return nil, err
	}

	return &NATSConnection{
		cfg:     cfg.withDefaults(),
		logger:  logger.With("component", "broker_nats"),
		metrics: m,
	}, nil
}

// SetCallbacks registers the session callbacks. Must be called before the
// first Connect.
func (c *NATSConnection) SetCallbacks(cb Callbacks) {
	c.cb = cb
}

// Connect starts one asynchronous connection attempt. The attempt waits the
// backoff for the current failure count, then dials. Success is reported via
// OnOpen, failure via OnClose.
func (c *NATSConnection) Connect(ctx context.Context) error {
	if c.Connected() {
		return ErrAlreadyConnected
	}
	if !c.connecting.CompareAndSwap(false, true) {
		return ErrConnectInProgress
	}

	go c.attempt(ctx)
	return nil
}

func (c *NATSConnection) attempt(ctx context.Context) {
	defer c.connecting.Store(false)

	if delay := backoffDelay(c.cfg.Reconnect, c.attempts.Load()); delay > 0 {
		c.logger.Info("waiting before reconnect attempt",
			"delay", delay,
			"attempts", c.attempts.Load())
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}

	connID := uuid.NewString()
	logger := c.logger.With("connection_id", connID, "url", c.cfg.URL)

	opts, err := c.buildConnectionOptions(logger)
	if err != nil {
		logger.Error("failed to build connection options", "error", err)
		c.reportFailure()
		return
	}

	logger.Info("connecting to broker")

	conn, err := nats.Connect(c.cfg.URL, opts...)
	if err != nil {
		logger.Error("broker connection failed", "error", err)
		c.reportFailure()
		return
	}

	s := &natsSession{id: connID, conn: conn}

	sub, err := conn.Subscribe(c.cfg.InboundSubject, func(msg *nats.Msg) {
		c.metrics.recordReceived(len(msg.Data))
		if c.cb.OnMessage != nil {
			c.cb.OnMessage(msg.Data)
		}
	})
	if err != nil {
		logger.Error("failed to subscribe to inbound subject",
			"subject", c.cfg.InboundSubject,
			"error", err)
		conn.Close()
		c.reportFailure()
		return
	}
	s.sub = sub

	c.attempts.Store(0)
	if c.metrics != nil {
		c.metrics.connects.Inc()
		c.metrics.connected.Set(1)
	}

	c.connMu.Lock()
	c.session = s
	c.connMu.Unlock()

	logger.Info("connected to broker", "inbound_subject", c.cfg.InboundSubject,
		"outbound_subject", c.cfg.OutboundSubject)

	if c.cb.OnOpen != nil {
		c.cb.OnOpen()
	}

	// Register the close handler after OnOpen so OnClose can never precede
	// it. The IsClosed check covers a connection that died in between.
	conn.SetClosedHandler(func(_ *nats.Conn) {
		c.finalize(s, logger)
	})
	if conn.IsClosed() {
		c.finalize(s, logger)
	}
}

// buildConnectionOptions assembles the nats.go connection options.
func (c *NATSConnection) buildConnectionOptions(logger *slog.Logger) ([]nats.Option, error) {
	name := c.cfg.Name
	if name == "" {
		name = "matrix-adapter"
	}

	opts := []nats.Option{
		nats.Name(name),
		nats.Timeout(c.cfg.HandshakeTimeout),
		nats.PingInterval(c.cfg.PingInterval),
		nats.DrainTimeout(c.cfg.WriteTimeout),
		// Reconnection is owned by the session supervisor, not the client.
		nats.NoReconnect(),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn("broker connection lost", "error", err)
		}),
	}

	if c.cfg.Token != "" {
		opts = append(opts, nats.Token(c.cfg.Token))
	}

	if tlsConfigured(c.cfg.TLS) {
		tlsConfig, err := tlsutil.LoadClientTLSConfig(c.cfg.TLS)
		if err != nil {
			return nil, errors.WrapInvalid(err, "NATSConnection", "buildConnectionOptions", "load TLS configuration")
		}
		opts = append(opts, nats.Secure(tlsConfig))
	}

	return opts, nil
}

// tlsConfigured reports whether the client TLS configuration customizes
// anything beyond the defaults.
func tlsConfigured(cfg security.ClientTLSConfig) bool {
	return len(cfg.CAFiles) > 0 || cfg.InsecureSkipVerify || cfg.MinVersion != "" || cfg.MTLS.Enabled
}

// reportFailure counts one failed attempt and notifies the session owner.
func (c *NATSConnection) reportFailure() {
	c.attempts.Add(1)
	if c.metrics != nil {
		c.metrics.connectFailures.Inc()
	}
	if c.cb.OnClose != nil {
		c.cb.OnClose()
	}
}

// Send publishes one message to the outbound subject. Publish order on a
// single connection is preserved.
func (c *NATSConnection) Send(data []byte) error {
	s := c.currentSession()
	if s == nil {
		return errors.WrapTransient(errors.ErrNoConnection, "NATSConnection", "Send", "send message")
	}

	if err := s.conn.Publish(c.cfg.OutboundSubject, data); err != nil {
		return errors.WrapTransient(err, "NATSConnection", "Send", "publish message")
	}

	c.metrics.recordSent(len(data))
	return nil
}

// Close drains the connection so queued publishes flush before teardown.
// The close handler finishes the session, so OnClose still fires exactly
// once. Closing an unconnected transport is a no-op.
func (c *NATSConnection) Close(reason string) error {
	s := c.currentSession()
	if s == nil {
		return nil
	}

	logger := c.logger.With("connection_id", s.id)
	logger.Info("closing broker connection", "reason", reason)

	if s.sub != nil {
		if err := s.sub.Unsubscribe(); err != nil {
			logger.Debug("failed to unsubscribe", "error", err)
		}
	}

	if err := s.conn.Drain(); err != nil {
		logger.Debug("drain failed, closing directly", "error", err)
		s.conn.Close()
	}

	return nil
}

// Connected reports whether a session is established.
func (c *NATSConnection) Connected() bool {
	return c.currentSession() != nil
}

func (c *NATSConnection) currentSession() *natsSession {
	c.connMu.Lock()
	defer c.connMu.Unlock()
	return c.session
}

// finalize tears a session down exactly once: closes the connection, clears
// the current session and fires OnClose.
func (c *NATSConnection) finalize(s *natsSession, logger *slog.Logger) {
	s.closeOnce.Do(func() {
		s.conn.Close()

		c.connMu.Lock()
		if c.session == s {
			c.session = nil
		}
		c.connMu.Unlock()

		if c.metrics != nil {
			c.metrics.connected.Set(0)
		}

		logger.Info("broker session closed")

		if c.cb.OnClose != nil {
			c.cb.OnClose()
		}
	})
}
