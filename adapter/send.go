package adapter

import (
	"context"

	"github.com/larsvanarragon/axini-matrix-skeleton/protocol"
)

// processOutbound is the outbound worker: encode one message and hand it to
// the transport. Production order is transmit order.
func (c *Core) processOutbound(_ context.Context, msg protocol.Message) error {
	data, err := protocol.Encode(msg)
	if err != nil {
		c.logger.Error("Could not encode outbound message", "message", msg.String(), "error", err)
		return err
	}

	if err := c.conn.Send(data); err != nil {
		c.logger.Warn("Could not send message to AMP", "message", msg.String(), "error", err)
		return err
	}

	if c.metrics != nil {
		c.metrics.RecordMessageSent(msg.Kind().String())
	}
	c.logger.Debug("Sent message", "message", msg.String())
	return nil
}

// enqueueOutbound queues one message for transmission.
func (c *Core) enqueueOutbound(msg protocol.Message) {
	if err := c.outbound.Enqueue(msg); err != nil {
		c.logger.Warn("Dropped outbound message", "message", msg.String(), "error", err)
	}
}

// sendAnnouncement announces the adapter to the broker: its name, the full
// label catalogue and the default configuration.
func (c *Core) sendAnnouncement() {
	a := protocol.Announcement{
		Name:          c.name,
		Labels:        c.handler.SupportedLabels(),
		Configuration: c.handler.DefaultConfiguration(),
	}
	c.enqueueOutbound(protocol.NewAnnouncementMessage(a))
	c.logger.Info("Announced adapter", "labels", len(a.Labels))
}

// sendError reports a session-fatal problem: the Error message is queued,
// then the transport is asked to close with the same text as the reason.
func (c *Core) sendError(text string) {
	c.logger.Error("Session error", "error", text)
	c.enqueueOutbound(protocol.NewErrorMessage(text))

	if err := c.conn.Close(text); err != nil {
		c.logger.Warn("Broker close failed", "error", err)
	}
}

// SendResponse forwards a SUT response label to the broker. A label of any
// other sort escalates to a session error. Implements Responder.
func (c *Core) SendResponse(label protocol.Label) {
	if !label.IsResponse() {
		c.sendError("Label is not of type Response")
		return
	}

	if c.metrics != nil {
		c.metrics.RecordResponse(label.Name)
	}
	c.enqueueOutbound(protocol.NewLabelMessage(label))
}

// SendReady signals that the SUT is ready for the next test step. The
// Ready message is queued before the state change becomes observable.
// Implements Responder.
func (c *Core) SendReady() {
	c.enqueueOutbound(protocol.NewReadyMessage())
	c.setState(StateReady)
	c.logger.Info("SUT ready")
}

// SendStimulusConfirmation echoes a stimulus label back to the broker as
// acknowledgment, ahead of any asynchronous SUT response. Implements
// Responder.
func (c *Core) SendStimulusConfirmation(label protocol.Label) {
	c.enqueueOutbound(protocol.NewLabelMessage(label))
}
