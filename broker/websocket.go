package broker

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/larsvanarragon/axini-matrix-skeleton/errors"
	"github.com/larsvanarragon/axini-matrix-skeleton/metric"
	"github.com/larsvanarragon/axini-matrix-skeleton/pkg/tlsutil"
)

// Close control frames carry at most 125 payload bytes, 2 of which hold the
// status code.
const maxCloseReasonBytes = 123

// wsSession is one established WebSocket connection. The read loop, the ping
// loop, Close and write failures can all race to tear it down; closeOnce
// guarantees the teardown (and the OnClose callback) runs exactly once.
type wsSession struct {
	id        string
	conn      *websocket.Conn
	done      chan struct{}
	closeOnce sync.Once
}

// WebSocketConnection is the WebSocket transport to AMP. It implements
// Connection.
type WebSocketConnection struct {
	cfg     Config
	logger  *slog.Logger
	metrics *transportMetrics
	cb      Callbacks

	connMu  sync.Mutex
	session *wsSession

	// writeMu serializes data writes; gorilla panics on concurrent writes
	// to the same connection.
	writeMu sync.Mutex

	connecting atomic.Bool
	attempts   atomic.Int32
}

var _ Connection = (*WebSocketConnection)(nil)

// NewWebSocketConnection creates a WebSocket transport for a ws:// or wss://
// broker URL. The registry may be nil to disable metrics.
func NewWebSocketConnection(cfg Config, logger *slog.Logger, registry *metric.MetricsRegistry) (*WebSocketConnection, error) {
	if logger == nil {
		logger = slog.Default()
	}

	m, err := newTransportMetrics(registry, "websocket")
	if err != nil {
		return nil, err
	}

	return &WebSocketConnection{
		cfg:     cfg.withDefaults(),
		logger:  logger.With("component", "broker_websocket"),
		metrics: m,
	}, nil
}

// SetCallbacks registers the session callbacks. Must be called before the
// first Connect.
func (c *WebSocketConnection) SetCallbacks(cb Callbacks) {
	c.cb = cb
}

// Connect starts one asynchronous connection attempt. The attempt waits the
// backoff for the current failure count, then dials. Success is reported via
// OnOpen, failure via OnClose.
func (c *WebSocketConnection) Connect(ctx context.Context) error {
	if c.Connected() {
		return ErrAlreadyConnected
	}
	if !c.connecting.CompareAndSwap(false, true) {
		return ErrConnectInProgress
	}

	go c.attempt(ctx)
	return nil
}

func (c *WebSocketConnection) attempt(ctx context.Context) {
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

	tlsConfig, err := tlsutil.LoadClientTLSConfig(c.cfg.TLS)
	if err != nil {
		logger.Error("failed to load TLS configuration", "error", err)
		c.reportFailure()
		return
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: c.cfg.HandshakeTimeout,
		TLSClientConfig:  tlsConfig,
	}

	header := http.Header{}
	if c.cfg.Token != "" {
		header.Set("Authorization", "Bearer "+c.cfg.Token)
	}

	logger.Info("connecting to broker")

	conn, resp, err := dialer.DialContext(ctx, c.cfg.URL, header)
	if err != nil {
		status := 0
		if resp != nil {
			status = resp.StatusCode
			resp.Body.Close()
		}
		logger.Error("broker connection failed", "error", err, "http_status", status)
		c.reportFailure()
		return
	}

	c.attempts.Store(0)
	if c.metrics != nil {
		c.metrics.connects.Inc()
		c.metrics.connected.Set(1)
	}

	s := &wsSession{
		id:   connID,
		conn: conn,
		done: make(chan struct{}),
	}

	conn.SetReadDeadline(time.Now().Add(c.cfg.PongTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(c.cfg.PongTimeout))
	})

	c.connMu.Lock()
	c.session = s
	c.connMu.Unlock()

	logger.Info("connected to broker")

	go c.readLoop(s, logger)
	go c.pingLoop(s, logger)

	if c.cb.OnOpen != nil {
		c.cb.OnOpen()
	}
}

// reportFailure counts one failed attempt and notifies the session owner.
func (c *WebSocketConnection) reportFailure() {
	c.attempts.Add(1)
	if c.metrics != nil {
		c.metrics.connectFailures.Inc()
	}
	if c.cb.OnClose != nil {
		c.cb.OnClose()
	}
}

// readLoop delivers received frames until the connection fails or closes.
func (c *WebSocketConnection) readLoop(s *wsSession, logger *slog.Logger) {
	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Info("broker closed the connection", "error", err)
			} else {
				logger.Warn("broker read failed", "error", err)
			}
			c.finalize(s, logger)
			return
		}

		c.metrics.recordReceived(len(data))
		if c.cb.OnMessage != nil {
			c.cb.OnMessage(data)
		}
	}
}

// pingLoop keeps the connection alive. A failed ping tears the session down;
// a peer that stops answering trips the read deadline instead.
func (c *WebSocketConnection) pingLoop(s *wsSession, logger *slog.Logger) {
	ticker := time.NewTicker(c.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			c.writeMu.Lock()
			s.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
			err := s.conn.WriteMessage(websocket.PingMessage, nil)
			c.writeMu.Unlock()
			if err != nil {
				logger.Warn("broker ping failed", "error", err)
				c.finalize(s, logger)
				return
			}
		}
	}
}

// Send transmits one text frame. A write failure tears the session down so
// the owner sees OnClose and can reconnect.
func (c *WebSocketConnection) Send(data []byte) error {
	s := c.currentSession()
	if s == nil {
		return errors.WrapTransient(errors.ErrNoConnection, "WebSocketConnection", "Send", "send message")
	}

	c.writeMu.Lock()
	s.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
	err := s.conn.WriteMessage(websocket.TextMessage, data)
	c.writeMu.Unlock()

	if err != nil {
		c.finalize(s, c.logger.With("connection_id", s.id))
		return errors.WrapTransient(err, "WebSocketConnection", "Send", "write message")
	}

	c.metrics.recordSent(len(data))
	return nil
}

// Close sends a close control frame carrying the reason, then tears the
// session down. Closing an unconnected transport is a no-op.
func (c *WebSocketConnection) Close(reason string) error {
	s := c.currentSession()
	if s == nil {
		return nil
	}

	logger := c.logger.With("connection_id", s.id)
	logger.Info("closing broker connection", "reason", reason)

	if len(reason) > maxCloseReasonBytes {
		reason = reason[:maxCloseReasonBytes]
	}
	frame := websocket.FormatCloseMessage(websocket.CloseNormalClosure, reason)
	deadline := time.Now().Add(c.cfg.WriteTimeout)
	if err := s.conn.WriteControl(websocket.CloseMessage, frame, deadline); err != nil {
		logger.Debug("failed to send close frame", "error", err)
	}

	c.finalize(s, logger)
	return nil
}

// Connected reports whether a session is established.
func (c *WebSocketConnection) Connected() bool {
	return c.currentSession() != nil
}

func (c *WebSocketConnection) currentSession() *wsSession {
	c.connMu.Lock()
	defer c.connMu.Unlock()
	return c.session
}

// finalize tears a session down exactly once: stops the ping loop, closes
// the socket, clears the current session and fires OnClose.
func (c *WebSocketConnection) finalize(s *wsSession, logger *slog.Logger) {
	s.closeOnce.Do(func() {
		close(s.done)
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
