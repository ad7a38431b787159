// Package health provides health monitoring for adapter components
// with thread-safe status tracking and aggregation.
//
// The health package tracks the health of the broker connection, the SUT
// connection, and the adapter core, and aggregates them into a single
// adapter-wide health indicator served over HTTP.
//
// # Health States
//
// The package supports three health states:
//   - Healthy: component operating normally
//   - Degraded: component operating with reduced functionality
//   - Unhealthy: component not functioning properly
//
// A reconnecting broker link is degraded rather than unhealthy: the session
// recovers on its own, no operator action is needed yet.
//
// # Core Components
//
// Status: Individual component health state containing status level,
// descriptive message, timestamp, optional metrics, and hierarchical
// sub-statuses.
//
// Monitor: Thread-safe centralized tracking for multiple component health
// statuses with concurrent read/write access and automatic timestamp
// management.
//
// # Basic Usage
//
// Creating and tracking component health:
//
//	monitor := health.NewMonitor()
//
//	// Update component health
//	monitor.UpdateHealthy("broker", "connected to AMP")
//	monitor.UpdateDegraded("core", "reconnecting")
//	monitor.UpdateFromError("sut", err) // error text is sanitized
//
//	// Check individual component health
//	if status, exists := monitor.Get("broker"); exists {
//	    if status.IsHealthy() {
//	        log.Println("broker link is healthy")
//	    }
//	}
//
// # Aggregation and HTTP Exposure
//
// Combining component statuses into an adapter-wide indicator:
//
//	adapterHealth := monitor.AggregateHealth("adapter")
//	if adapterHealth.IsUnhealthy() {
//	    log.Printf("adapter unhealthy: %s", adapterHealth.Message)
//	}
//
//	// Aggregation rules:
//	// - Any unhealthy component → adapter unhealthy
//	// - Any degraded component (with no unhealthy) → adapter degraded
//	// - All healthy → adapter healthy
//
// The aggregate is served as JSON by Monitor.Handler, typically mounted at
// /health on the metrics server. The response code is 200 unless any
// component is unhealthy, then 503, so load balancers and probes can act on
// it directly.
//
// # Sanitization
//
// Status messages built from errors via FromError or UpdateFromError are
// sanitized before exposure: URLs, file paths, IP addresses, ports and
// credential-shaped fragments are replaced with placeholders. Broker tokens
// and SUT endpoints never leave the process through the health endpoint.
package health
