package adapter

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/larsvanarragon/axini-matrix-skeleton/broker"
	"github.com/larsvanarragon/axini-matrix-skeleton/errors"
	"github.com/larsvanarragon/axini-matrix-skeleton/health"
	"github.com/larsvanarragon/axini-matrix-skeleton/metric"
	"github.com/larsvanarragon/axini-matrix-skeleton/pkg/taskqueue"
	"github.com/larsvanarragon/axini-matrix-skeleton/protocol"
)

// Deps carries the collaborators the session core needs.
type Deps struct {
	// Name is the identity announced to the broker, e.g. "Matrix@host".
	Name string

	// Connection is the broker transport. The core registers its callbacks
	// on it and owns the reconnect loop.
	Connection broker.Connection

	// Handler drives the SUT.
	Handler Handler

	// Logger may be nil; slog.Default is used then.
	Logger *slog.Logger

	// Registry may be nil; metrics are disabled then.
	Registry *metric.MetricsRegistry

	// Health may be nil; health reporting is disabled then.
	Health *health.Monitor
}

// Core runs one broker session at a time: it announces the adapter when the
// transport opens, accepts the broker's configuration, relays stimuli to
// the handler and responses back, and reconnects after every close until
// stopped.
//
// Two single-consumer queues decouple the session from the transport: the
// inbound worker decodes and drives the state machine, the outbound worker
// encodes and transmits. Handler calls run on the inbound worker and may
// block it; outbound sending never stalls behind them.
type Core struct {
	name    string
	conn    broker.Connection
	handler Handler
	logger  *slog.Logger
	metrics *metric.Metrics
	health  *health.Monitor

	mu    sync.Mutex
	state SessionState

	inbound  *taskqueue.Queue[[]byte]
	outbound *taskqueue.Queue[protocol.Message]

	// reconnect carries at most one pending connect request to the
	// supervisor; requests collapse.
	reconnect chan struct{}
	done      chan struct{}

	lifecycleMu sync.Mutex
	initialized bool
	started     bool
	stopped     bool

	stopping atomic.Bool

	wg sync.WaitGroup

	// decodeLog throttles decode-failure logging so a malformed flood
	// cannot saturate the log.
	decodeLog *rate.Limiter

	sessionMu sync.Mutex
	sessionID string
}

var _ Responder = (*Core)(nil)

// New builds a session core from its dependencies. The queue workers and
// the supervisor are launched by Start.
func New(deps Deps) (*Core, error) {
	if deps.Name == "" {
		return nil, errors.WrapInvalid(errors.ErrInvalidConfig, "Core", "New", "adapter name is required")
	}
	if deps.Connection == nil {
		return nil, errors.WrapInvalid(errors.ErrInvalidConfig, "Core", "New", "broker connection is required")
	}
	if deps.Handler == nil {
		return nil, errors.WrapInvalid(errors.ErrInvalidConfig, "Core", "New", "handler is required")
	}

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "adapter_core", "adapter", deps.Name)

	var coreMetrics *metric.Metrics
	if deps.Registry != nil {
		coreMetrics = deps.Registry.CoreMetrics()
	}

	c := &Core{
		name:      deps.Name,
		conn:      deps.Connection,
		handler:   deps.Handler,
		logger:    logger,
		metrics:   coreMetrics,
		health:    deps.Health,
		state:     StateDisconnected,
		reconnect: make(chan struct{}, 1),
		done:      make(chan struct{}),
		decodeLog: rate.NewLimiter(rate.Every(time.Second), 5),
	}

	var inOpts []taskqueue.Option[[]byte]
	var outOpts []taskqueue.Option[protocol.Message]
	if coreMetrics != nil {
		inOpts = append(inOpts, taskqueue.WithMetrics[[]byte](coreMetrics))
		outOpts = append(outOpts, taskqueue.WithMetrics[protocol.Message](coreMetrics))
	}
	c.inbound = taskqueue.New("inbound", c.processInbound, inOpts...)
	c.outbound = taskqueue.New("outbound", c.processOutbound, outOpts...)

	return c, nil
}

// Initialize binds the handler to the core and registers the transport
// callbacks. Must be called once, before Start.
func (c *Core) Initialize() error {
	c.lifecycleMu.Lock()
	defer c.lifecycleMu.Unlock()

	if c.initialized {
		return errors.WrapInvalid(errors.ErrAlreadyStarted, "Core", "Initialize", "core already initialized")
	}
	c.initialized = true

	c.handler.Bind(c)
	c.conn.SetCallbacks(broker.Callbacks{
		OnOpen:    c.handleOpen,
		OnClose:   c.handleClose,
		OnMessage: c.handleMessage,
	})

	if c.metrics != nil {
		c.metrics.RecordSessionState(c.name, int(StateDisconnected))
	}

	return nil
}

// Start launches the queue workers and the reconnect supervisor, then makes
// the first connection attempt. The context bounds the whole run.
func (c *Core) Start(ctx context.Context) error {
	c.lifecycleMu.Lock()
	if !c.initialized {
		c.lifecycleMu.Unlock()
		return errors.WrapInvalid(errors.ErrNotStarted, "Core", "Start", "core not initialized")
	}
	if c.started {
		c.lifecycleMu.Unlock()
		return errors.WrapInvalid(errors.ErrAlreadyStarted, "Core", "Start", "core already started")
	}
	c.started = true
	c.lifecycleMu.Unlock()

	if err := c.inbound.Start(ctx); err != nil {
		return errors.WrapTransient(err, "Core", "Start", "start inbound worker")
	}
	if err := c.outbound.Start(ctx); err != nil {
		return errors.WrapTransient(err, "Core", "Start", "start outbound worker")
	}

	c.wg.Add(1)
	go c.supervise(ctx)

	c.logger.Info("Adapter core started")

	// The first connection runs through the supervisor like every later one
	c.requestReconnect()
	return nil
}

// Stop ends the adapter for good: closes the broker session, stops the
// supervisor and both workers. Calling Stop before Start, or twice, is a
// no-op.
func (c *Core) Stop(timeout time.Duration) error {
	c.lifecycleMu.Lock()
	if !c.started || c.stopped {
		c.lifecycleMu.Unlock()
		return nil
	}
	c.stopped = true
	c.lifecycleMu.Unlock()

	c.logger.Info("Stopping adapter core")

	// Set before closing so the close callback does not schedule a
	// reconnect.
	c.stopping.Store(true)
	close(c.done)

	if err := c.conn.Close("adapter stopped"); err != nil {
		c.logger.Warn("Broker close failed", "error", err)
	}

	var firstErr error
	if err := c.inbound.Stop(timeout); err != nil {
		firstErr = errors.WrapTransient(err, "Core", "Stop", "stop inbound worker")
	}
	if err := c.outbound.Stop(timeout); err != nil && firstErr == nil {
		firstErr = errors.WrapTransient(err, "Core", "Stop", "stop outbound worker")
	}

	c.wg.Wait()

	c.logger.Info("Adapter core stopped")
	return firstErr
}

// State returns the current session state.
func (c *Core) State() SessionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// setState moves the session to a new state and records the transition.
func (c *Core) setState(to SessionState) {
	c.mu.Lock()
	from := c.state
	c.state = to
	c.mu.Unlock()

	if from == to {
		return
	}

	c.logger.Debug("Session state changed", "from", from.String(), "to", to.String())
	if c.metrics != nil {
		c.metrics.RecordStateTransition(from.String(), to.String())
		c.metrics.RecordSessionState(c.name, int(to))
	}
}

// Stats is a point-in-time snapshot of the core.
type Stats struct {
	State    string          `json:"state"`
	Inbound  taskqueue.Stats `json:"inbound"`
	Outbound taskqueue.Stats `json:"outbound"`
}

// Stats returns a snapshot of the session state and both queues.
func (c *Core) Stats() Stats {
	return Stats{
		State:    c.State().String(),
		Inbound:  c.inbound.Stats(),
		Outbound: c.outbound.Stats(),
	}
}

// supervise owns the connect loop. Every request re-runs the session start
// sequence; the loop ends only when the core stops.
func (c *Core) supervise(ctx context.Context) {
	defer c.wg.Done()

	for {
		select {
		case <-c.done:
			return
		case <-ctx.Done():
			return
		case <-c.reconnect:
			c.startSession(ctx)
		}
	}
}

// requestReconnect schedules a (re)connect without blocking. A request
// already queued covers this one.
func (c *Core) requestReconnect() {
	select {
	case c.reconnect <- struct{}{}:
	default:
	}
}

// startSession drains stale work from both queues, then asks the transport
// for a session. Outside Disconnected it only logs; the transport is not
// touched.
func (c *Core) startSession(ctx context.Context) {
	c.inbound.Drain()
	c.outbound.Drain()

	if state := c.State(); state != StateDisconnected {
		c.logger.Warn("Connection started while already connected", "state", state.String())
		return
	}

	c.logger.Info("Connecting to AMP")
	if err := c.conn.Connect(ctx); err != nil {
		// A synchronous error means a session or attempt already exists;
		// its completion will arrive through the callbacks.
		c.logger.Warn("Connect request not accepted", "error", err)
	}
}

// handleOpen runs on the transport goroutine when a session is established.
func (c *Core) handleOpen() {
	if state := c.State(); state != StateDisconnected {
		c.logger.Warn("Connection opened while already connected", "state", state.String())
		return
	}

	sessionID := uuid.NewString()
	c.sessionMu.Lock()
	c.sessionID = sessionID
	c.sessionMu.Unlock()

	c.setState(StateConnected)
	if c.metrics != nil {
		c.metrics.RecordBrokerStatus(true)
	}
	if c.health != nil {
		c.health.UpdateHealthy("broker", "Connected to AMP")
	}
	c.logger.Info("Connected to AMP", "session_id", sessionID)

	c.sendAnnouncement()
	c.setState(StateAnnounced)
}

// handleClose runs on the transport goroutine when a session ends or a
// connection attempt fails. It resets the session and, unless the adapter
// is stopping, schedules a reconnect.
func (c *Core) handleClose() {
	if c.metrics != nil {
		c.metrics.RecordBrokerStatus(false)
	}
	if c.health != nil {
		c.health.UpdateDegraded("broker", "Disconnected from AMP")
	}

	hadSession := c.State() != StateDisconnected
	c.setState(StateDisconnected)

	in := c.inbound.Drain()
	out := c.outbound.Drain()
	if in > 0 || out > 0 {
		c.logger.Info("Dropped queued work on close", "inbound", in, "outbound", out)
	}

	if hadSession {
		c.sessionMu.Lock()
		sessionID := c.sessionID
		c.sessionMu.Unlock()
		c.logger.Info("Connection to AMP closed", "session_id", sessionID)

		if err := c.handler.Stop(); err != nil {
			c.logger.Error("Handler stop failed", "error", err)
			if c.metrics != nil {
				c.metrics.RecordError("handler", "stop")
			}
		}
	}

	if !c.stopping.Load() {
		if c.metrics != nil {
			c.metrics.RecordBrokerReconnect()
		}
		c.requestReconnect()
	}
}

// handleMessage runs on the transport goroutine for every received wire
// message; the inbound worker does the decoding.
func (c *Core) handleMessage(data []byte) {
	if err := c.inbound.Enqueue(data); err != nil {
		c.logger.Warn("Dropped inbound message", "error", err)
	}
}
