// Testcontainers-based NATS infrastructure for broker integration tests.
package broker

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// TestServer runs a NATS server in a container for integration tests.
type TestServer struct {
	container testcontainers.Container
	URL       string
	cleanup   func()
}

// testServerConfig holds configuration for the test server
type testServerConfig struct {
	natsVersion  string
	startTimeout time.Duration
}

// TestServerOption for configuring the test server
type TestServerOption func(*testServerConfig)

// WithNATSVersion specifies a specific NATS server version to use
func WithNATSVersion(version string) TestServerOption {
	return func(cfg *testServerConfig) {
		cfg.natsVersion = version
	}
}

// WithStartTimeout sets the container startup timeout
func WithStartTimeout(timeout time.Duration) TestServerOption {
	return func(cfg *testServerConfig) {
		cfg.startTimeout = timeout
	}
}

// NewTestServer creates a new NATS test container.
// Accepts testing.TB so it works with both *testing.T and *testing.B.
func NewTestServer(t testing.TB, opts ...TestServerOption) *TestServer {
	t.Helper()

	cfg := &testServerConfig{
		natsVersion:  "2.11.7-alpine",
		startTimeout: 30 * time.Second,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "nats:" + cfg.natsVersion,
		ExposedPorts: []string{"4222/tcp", "8222/tcp"},
		Cmd:          []string{"--port", "4222", "--http_port", "8222"},
		WaitingFor: wait.ForAll(
			wait.ForListeningPort("4222/tcp"),
			wait.ForHTTP("/").WithPort("8222/tcp").WithStartupTimeout(cfg.startTimeout),
		),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("Failed to start NATS container: %v", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		container.Terminate(ctx)
		t.Fatalf("Failed to get container host: %v", err)
	}

	port, err := container.MappedPort(ctx, "4222")
	if err != nil {
		container.Terminate(ctx)
		t.Fatalf("Failed to get mapped port: %v", err)
	}

	ts := &TestServer{
		container: container,
		URL:       fmt.Sprintf("nats://%s:%s", host, port.Port()),
		cleanup: func() {
			_ = container.Terminate(context.Background()) // Best effort test cleanup
		},
	}

	t.Cleanup(ts.cleanup)

	return ts
}

// Terminate manually terminates the container (usually handled by t.Cleanup)
func (ts *TestServer) Terminate() error {
	if ts.cleanup != nil {
		ts.cleanup()
		ts.cleanup = nil
	}
	return nil
}

// PeerConn opens a raw NATS connection so a test can act as the broker side
// of the link: subscribe to the adapter's outbound subject and publish to
// its inbound subject.
func (ts *TestServer) PeerConn(t testing.TB) *nats.Conn {
	t.Helper()

	conn, err := nats.Connect(ts.URL, nats.Timeout(5*time.Second))
	if err != nil {
		t.Fatalf("Failed to connect test NATS client: %v", err)
	}
	t.Cleanup(conn.Close)

	return conn
}
