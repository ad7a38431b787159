// Package broker connects the adapter to AMP over WebSocket or NATS.
//
// Both transports implement the Connection interface: a single
// bidirectional message link with order-preserving delivery in both
// directions. The transport is selected by URL scheme through
// NewConnection: ws:// and wss:// build a WebSocket client, nats:// a NATS
// client.
//
// # Session Callbacks
//
// A Connection reports its lifecycle through Callbacks, registered once
// before the first Connect:
//
//   - OnOpen fires once per established session, before any OnMessage.
//   - OnMessage delivers inbound messages one at a time, in arrival order.
//   - OnClose fires exactly once per established session, however it ends:
//     peer close, network failure, failed ping or a local Close. A failed
//     connection attempt also reports OnClose, so the owner can treat
//     "attempt finished without a session" and "session ended" uniformly.
//
// # Reconnection
//
// Reconnection is split between the transport and its owner. The owner
// drives the retry loop: every OnClose is an invitation to call Connect
// again. The transport owns the backoff: each Connect waits
// initial * multiplier^(attempts-1) before dialing, counting consecutive
// failures and resetting the count on success. The first attempt connects
// immediately.
//
// Connect is asynchronous. It returns once the attempt is scheduled;
// completion arrives via OnOpen or OnClose. Cancelling the context while an
// attempt waits in backoff abandons the attempt without a callback.
//
// # Usage
//
//	cfg := broker.DefaultConfig()
//	cfg.URL = "wss://amp.example.com/adapters"
//	cfg.Token = token
//
//	conn, err := broker.NewConnection(cfg, logger, registry)
//	if err != nil {
//	    return err
//	}
//
//	conn.SetCallbacks(broker.Callbacks{
//	    OnOpen:    func() { /* start the session */ },
//	    OnClose:   func() { /* tear down, schedule reconnect */ },
//	    OnMessage: func(data []byte) { /* decode and dispatch */ },
//	})
//
//	if err := conn.Connect(ctx); err != nil {
//	    return err
//	}
//
// # Transport Notes
//
// The WebSocket transport authenticates with a bearer token in the
// Authorization header, keeps the link alive with pings and enforces a pong
// deadline on reads. Close sends a close control frame carrying the reason,
// truncated to fit the 125-byte control frame limit.
//
// The NATS transport maps the link onto two subjects: it subscribes to the
// inbound subject and publishes to the outbound subject. The nats.go
// client's own reconnection is disabled so both transports present the same
// single-attempt Connect contract. Close drains the connection first so
// queued publishes flush before teardown.
//
// # Metrics
//
// Each transport registers Prometheus metrics under its own subsystem
// (broker_websocket, broker_nats): connection counts, connect failures,
// messages and bytes in both directions, and a connected gauge.
package broker
