// Package adapter contains the session core bridging AMP and a SUT handler.
//
// AMP (the Axini Modeling Platform) drives model-based tests by sending
// stimuli to an adapter and observing the responses the adapter reports
// back. The core owns everything between the broker transport and the
// handler: the session lifecycle, message routing and the outbound
// pipeline. The handler owns everything between the core and the SUT.
//
// # Session Lifecycle
//
// A session walks a fixed handshake:
//
//	Disconnected → Connected  transport reports open
//	Connected    → Announced  announcement sent (name, labels, defaults)
//	Announced    → Configured broker configuration accepted, handler started
//	Configured   → Ready      handler signals readiness via SendReady
//
// In Ready, stimulus labels flow to the handler and responses flow back.
// A Reset returns the SUT to its initial state without leaving Ready. A
// received Error message is terminal: the state becomes Error and the
// transport is closed with the error text as the reason.
//
// Every close, expected or not, resets the session: both queues are
// drained, the handler is stopped, the state returns to Disconnected and
// the supervisor schedules a reconnect. The loop runs until Stop.
//
// # Concurrency Model
//
// Two single-consumer queues carry all session work:
//
//   - The inbound worker decodes wire messages and runs the state machine.
//     Handler calls (Start, Stop, Reset, Stimulate) happen here,
//     synchronously; a slow handler stalls dispatch but nothing else.
//   - The outbound worker encodes and transmits. Production order is
//     transmit order, so replies never reorder.
//
// Transport callbacks arrive on transport goroutines and only enqueue or
// flip the state cell; Responder methods are safe from any goroutine,
// including SUT read loops.
//
// # Protocol Violations
//
// Wrong-state messages are answered with an Error message and the session
// is closed; the texts are fixed protocol strings (for example "Label
// received from AMP while not ready"). A label that is not a stimulus is
// rejected without touching the handler. Messages that fail to decode are
// dropped with rate-limited logging.
//
// # Usage
//
//	core, err := adapter.New(adapter.Deps{
//	    Name:       "Matrix@" + hostname,
//	    Connection: conn,
//	    Handler:    handler,
//	    Logger:     logger,
//	    Registry:   registry,
//	})
//	if err != nil {
//	    return err
//	}
//	if err := core.Initialize(); err != nil {
//	    return err
//	}
//	if err := core.Start(ctx); err != nil {
//	    return err
//	}
//	defer core.Stop(5 * time.Second)
package adapter
