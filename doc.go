// Package matrix is a test adapter connecting the Axini Modeling Platform
// (AMP) to a system under test (SUT).
//
// AMP drives model-based tests: it derives stimuli from a model, sends them
// to an adapter, and checks the responses the adapter reports back against
// the model. The adapter sits between the two worlds. Toward AMP it speaks
// the broker protocol over a persistent connection; toward the SUT it
// speaks whatever the SUT speaks. This module ships the broker side
// complete and one SUT binding, the SmartDoor reference system.
//
// # Architecture
//
// One session core mediates between a broker transport and a SUT handler:
//
//	┌─────────┐   WebSocket / NATS   ┌──────────────┐            ┌──────────────┐
//	│   AMP   │ ◄──────────────────► │    broker    │            │     sut      │
//	│ broker  │    broker protocol   │  Connection  │            │   Handler    │
//	└─────────┘                      └──────┬───────┘            └──────┬───────┘
//	                                        │  callbacks / Send        │
//	                                        ▼                          ▼
//	                                 ┌─────────────────────────────────────┐
//	                                 │            adapter.Core             │
//	                                 │  session state machine, two queues  │
//	                                 │  (inbound dispatch, outbound send)  │
//	                                 └─────────────────────────────────────┘
//
// The core owns the session lifecycle: it announces the adapter's label
// catalogue, accepts the broker's configuration, starts the handler, and
// then relays stimuli inward and responses outward until the session ends.
// Every connection loss resets the session and the core reconnects with
// exponential backoff. Two single-consumer queues decouple the transport
// from the handler: inbound dispatch runs handler calls one at a time, the
// outbound sender preserves production order on the wire.
//
// # Packages
//
// Session layer:
//   - protocol: broker message types, labels, configuration, JSON codec
//   - broker: Connection interface with WebSocket and NATS transports
//   - adapter: session core, state machine, dispatch and send workers
//   - sut/smartdoor: Handler for the SmartDoor reference SUT
//
// Infrastructure:
//   - config: file, environment and flag configuration with schema validation
//   - errors: structured errors with severity and sentinel values
//   - health: component health registry with an HTTP aggregate
//   - metric: Prometheus registry and the metrics/health HTTP server
//   - pkg/taskqueue: unbounded single-consumer FIFO work queue
//   - pkg/retry: backoff policies for reconnect loops
//   - pkg/security, pkg/tlsutil: TLS configuration and loading
//   - pkg/timestamp: nanosecond timestamps for label attribution
//   - testutil: in-memory Connection and wait helpers for tests
//
// # Binary
//
// cmd/matrix-adapter wires the pieces into a runnable adapter:
//
//	# connect the SmartDoor adapter to an AMP instance
//	matrix-adapter --url=wss://course.axini.com:443/adapters --token=$TOKEN
//
//	# local development against a standalone SmartDoor
//	matrix-adapter --config=config.yaml --log-level=debug
//
// Configuration layers stack in fixed precedence: defaults, then the
// config file, then MATRIX_* environment variables, then flags.
//
// # Adapting Another SUT
//
// A new SUT needs only a type implementing adapter.Handler: translate
// stimulus labels into SUT input, report SUT output through the bound
// adapter.Responder, and describe the label catalogue for the
// announcement. Construct the core with adapter.New, passing the handler
// and a broker Connection; the session layer stays untouched.
package matrix
