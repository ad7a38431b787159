// Package metric provides Prometheus-based metrics collection and an HTTP
// server for adapter monitoring and observability.
//
// The package offers a centralized metrics registry managing both core adapter
// metrics (session state, queue depths, broker and SUT connectivity) and
// custom handler-specific metrics. It includes an HTTP server exposing metrics
// in Prometheus format for monitoring system integration.
//
// # Architecture
//
// The package follows a three-layer design:
//
//  1. Core Metrics: Adapter-level metrics automatically registered (Metrics type)
//  2. Handler Registry: Extensible registration for handler-specific metrics (MetricsRegistrar interface)
//  3. HTTP Server: Metrics endpoint with health checks (Server type)
//
// This separates infrastructure concerns (session, queues, connections) from
// SUT concerns (whatever a particular handler wants to count) while providing
// a unified metrics endpoint for monitoring systems.
//
// # Basic Usage
//
// Setting up metrics collection and HTTP server:
//
//	registry := metric.NewMetricsRegistry()
//	securityCfg := security.Config{}
//	server := metric.NewServer(9090, "/metrics", registry, securityCfg)
//
//	go func() {
//	    if err := server.Start(); err != nil && err != http.ErrServerClosed {
//	        log.Printf("Metrics server error: %v", err)
//	    }
//	}()
//
//	// Record core adapter metrics
//	coreMetrics := registry.CoreMetrics()
//	coreMetrics.RecordSessionState("smartdoor", 4)
//	coreMetrics.RecordStimulus("open", "ok")
//	coreMetrics.RecordBrokerStatus(true)
//
// The metrics server exposes Prometheus-formatted metrics at
// http://localhost:9090/metrics and a health check at
// http://localhost:9090/health. Install a richer health handler with
// SetHealthHandler before Start.
//
// # Core Metrics
//
// The package automatically registers core adapter metrics tracking:
//
//   - Session lifecycle: session_state, session_transitions_total
//   - Broker traffic: messages_received_total, messages_sent_total, messages_decode_failures_total
//   - Task queues: queue_depth, queue_enqueued_total, queue_dropped_total
//   - Labels: labels_stimuli_total, labels_responses_total, labels_stimulus_duration_seconds
//   - Connectivity: broker_connected, broker_reconnects_total, sut_connected
//   - Error tracking: errors_total
//
// All core metrics use the namespace "matrix_adapter":
//   - matrix_adapter_session_state{adapter="..."}
//   - matrix_adapter_queue_depth{queue="broker"|"sut"}
//   - matrix_adapter_broker_connected
//
// # Handler-Specific Metrics
//
// SUT handlers can register custom metrics through the MetricsRegistrar
// interface:
//
//	cycles := prometheus.NewCounter(prometheus.CounterOpts{
//	    Namespace: "matrix_adapter",
//	    Subsystem: "smartdoor",
//	    Name:      "door_cycles_total",
//	    Help:      "Total number of open/close cycles observed",
//	})
//	err := registry.RegisterCounter("smartdoor", "door_cycles_total", cycles)
//
// Registration rejects duplicates both at the registry level (same component
// and metric name) and at the Prometheus level (same fully qualified name).
// This enables testing with mock registrars and keeps handlers loosely
// coupled to the registry implementation.
//
// # Thread Safety
//
// All registry operations are thread-safe:
//   - Registration methods use mutex protection
//   - Metric recording is lock-free (Prometheus guarantee)
//   - CoreMetrics() returns a thread-safe shared instance
package metric
