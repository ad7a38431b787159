package adapter

import (
	"context"
	"fmt"
	"time"

	"github.com/larsvanarragon/axini-matrix-skeleton/protocol"
)

// processInbound is the inbound worker: decode one wire message and route
// it through the session state machine. All state-machine callbacks run
// here, one at a time, so the transition table is a sequential automaton.
func (c *Core) processInbound(_ context.Context, data []byte) error {
	msg, err := protocol.Decode(data)
	if err != nil {
		if c.metrics != nil {
			c.metrics.RecordDecodeFailure()
		}
		if c.decodeLog.Allow() {
			c.logger.Warn("Could not decode message", "error", err)
		}
		return err
	}

	if c.metrics != nil {
		c.metrics.RecordMessageReceived(msg.Kind().String())
	}
	c.logger.Debug("Received message", "message", msg.String())

	switch msg.Kind() {
	case protocol.KindConfiguration:
		cfg, _ := msg.Configuration()
		c.onConfiguration(cfg)
	case protocol.KindLabel:
		label, _ := msg.Label()
		c.onLabel(label)
	case protocol.KindReset:
		c.onReset()
	case protocol.KindError:
		text, _ := msg.ErrorText()
		c.onError(text)
	case protocol.KindReady:
		// The broker never sends Ready; readiness flows the other way
		c.logger.Warn("Ignoring Ready received from AMP")
	default:
		c.logger.Warn("Ignoring unexpected message", "kind", msg.Kind().String())
	}

	return nil
}

// onConfiguration accepts the broker's configuration, exactly once per
// session, while Announced. The session counts as configured before the
// handler runs, even if SUT startup then fails.
func (c *Core) onConfiguration(cfg protocol.Configuration) {
	switch c.State() {
	case StateAnnounced:
		c.setState(StateConfigured)

		if err := c.handler.SetConfiguration(cfg); err != nil {
			c.handlerFailure("configure", err)
			return
		}
		if err := c.handler.Start(); err != nil {
			c.handlerFailure("start", err)
			return
		}
		c.logger.Info("Configuration accepted, starting SUT")
	case StateConnected:
		c.sendError("Configuration received while not yet announced")
	default:
		c.sendError("Configuration received while already configured")
	}
}

// onLabel applies a stimulus to the SUT. Only stimulus labels in the Ready
// state reach the handler; everything else is a protocol violation.
func (c *Core) onLabel(label protocol.Label) {
	if c.State() != StateReady {
		c.sendError("Label received from AMP while not ready")
		return
	}

	if !label.IsStimulus() {
		// The handler is not invoked for a non-stimulus label
		c.sendError("Label is not a stimulus")
		return
	}

	start := time.Now()
	err := c.handler.Stimulate(label)
	if err != nil {
		if c.metrics != nil {
			c.metrics.RecordStimulus(label.Name, "error")
		}
		c.sendError(fmt.Sprintf("error while stimulating the SUT: %v", err))
		return
	}

	if c.metrics != nil {
		c.metrics.RecordStimulus(label.Name, "ok")
		c.metrics.RecordStimulusDuration(label.Name, time.Since(start))
	}
}

// onReset returns the SUT to its initial state between test runs. Queued
// work from the previous run is stale and dropped first.
func (c *Core) onReset() {
	if c.State() != StateReady {
		c.sendError("Reset received while not ready")
		return
	}

	in := c.inbound.Drain()
	out := c.outbound.Drain()
	if in > 0 || out > 0 {
		c.logger.Debug("Dropped queued work on reset", "inbound", in, "outbound", out)
	}

	if err := c.handler.Reset(); err != nil {
		c.sendError(fmt.Sprintf("Resetting the SUT failed due to: %v", err))
	}
}

// onError handles a broker-sent Error: terminal for the session, no reply.
func (c *Core) onError(text string) {
	c.logger.Error("Error message received", "text", text)
	c.setState(StateError)
	if c.metrics != nil {
		c.metrics.RecordError("broker", "received")
	}
	if c.health != nil {
		c.health.UpdateUnhealthy("broker", "AMP reported an error")
	}

	if err := c.conn.Close(text); err != nil {
		c.logger.Warn("Broker close failed", "error", err)
	}
}

// handlerFailure surfaces a handler error to the broker and ends the
// session.
func (c *Core) handlerFailure(action string, err error) {
	c.logger.Error("Handler failed", "action", action, "error", err)
	if c.metrics != nil {
		c.metrics.RecordError("handler", action)
	}
	if c.health != nil {
		c.health.UpdateFromError("handler", err)
	}
	c.sendError(err.Error())
}
