package smartdoor

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/larsvanarragon/axini-matrix-skeleton/errors"
	"github.com/larsvanarragon/axini-matrix-skeleton/pkg/retry"
)

const (
	handshakeTimeout = 10 * time.Second
	writeTimeout     = 10 * time.Second
)

// Connection is the handler's WebSocket link to the SmartDoor API. One
// connection serves one broker session: dialed by Start, closed by Stop,
// with no reconnection in between. A session whose SUT link dies ends and
// the core establishes a fresh one.
type Connection struct {
	endpoint  string
	onMessage func(message string)
	logger    *slog.Logger
	retryCfg  retry.Config

	conn *websocket.Conn
	done chan struct{}
	wg   sync.WaitGroup

	// writeMu serializes writes, gorilla allows only one concurrent writer
	writeMu   sync.Mutex
	closeOnce sync.Once
}

// NewConnection prepares a connection to the SmartDoor API at endpoint.
// Every received text message is handed to onMessage from the read loop.
func NewConnection(endpoint string, onMessage func(string), logger *slog.Logger) *Connection {
	if logger == nil {
		logger = slog.Default()
	}
	return &Connection{
		endpoint:  endpoint,
		onMessage: onMessage,
		logger:    logger.With("component", "smartdoor_connection"),
		retryCfg:  retry.Quick(),
		done:      make(chan struct{}),
	}
}

// Connect dials the SmartDoor API, retrying failed attempts, and starts
// the read loop.
func (c *Connection) Connect(ctx context.Context) error {
	c.logger.Info("Connecting to SmartDoor", "endpoint", c.endpoint)

	conn, err := retry.DoWithResult(ctx, c.retryCfg, func() (*websocket.Conn, error) {
		dialer := websocket.Dialer{HandshakeTimeout: handshakeTimeout}
		conn, resp, err := dialer.DialContext(ctx, c.endpoint, nil)
		if resp != nil && resp.Body != nil {
			resp.Body.Close()
		}
		return conn, err
	})
	if err != nil {
		return errors.WrapTransient(err, "Connection", "Connect", "dial SmartDoor API")
	}

	c.conn = conn
	c.logger.Info("Connected to SUT")

	c.wg.Add(1)
	go c.readLoop()
	return nil
}

// Send writes one text message to the SUT.
func (c *Connection) Send(message string) error {
	if c.conn == nil {
		return errors.WrapInvalid(errors.ErrNoConnection, "Connection", "Send", "send message to SUT")
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := c.conn.WriteMessage(websocket.TextMessage, []byte(message)); err != nil {
		return errors.WrapTransient(err, "Connection", "Send", "send message to SUT")
	}

	c.logger.Debug("Sent message to SUT", "message", message)
	return nil
}

// readLoop delivers SUT messages until the connection dies.
func (c *Connection) readLoop() {
	defer c.wg.Done()

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			select {
			case <-c.done:
				// Closed locally.
			default:
				if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					c.logger.Info("SUT closed the connection")
				} else {
					c.logger.Warn("SUT connection lost", "error", err)
				}
			}
			return
		}

		message := string(data)
		c.logger.Debug("Received message from SUT", "message", message)
		c.onMessage(message)
	}
}

// Close ends the connection and joins the read loop. Calling Close more
// than once, or on a connection that never dialed, is a no-op.
func (c *Connection) Close() error {
	if c.conn == nil {
		return nil
	}

	c.closeOnce.Do(func() {
		close(c.done)

		c.writeMu.Lock()
		deadline := time.Now().Add(writeTimeout)
		err := c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
		c.writeMu.Unlock()
		if err != nil {
			c.logger.Debug("Close frame not delivered", "error", err)
		}

		_ = c.conn.Close()
		c.wg.Wait()
		c.logger.Debug("Closed connection to SUT")
	})
	return nil
}
