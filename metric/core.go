package metric

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics contains all adapter-level metrics (not SUT-specific)
type Metrics struct {
	// Session metrics
	SessionState     *prometheus.GaugeVec
	StateTransitions *prometheus.CounterVec
	MessagesReceived *prometheus.CounterVec
	MessagesSent     *prometheus.CounterVec
	DecodeFailures   prometheus.Counter
	ErrorsTotal      *prometheus.CounterVec

	// Queue metrics
	QueueDepth    *prometheus.GaugeVec
	QueueEnqueued *prometheus.CounterVec
	QueueDropped  *prometheus.CounterVec

	// Label metrics
	StimuliTotal     *prometheus.CounterVec
	ResponsesTotal   *prometheus.CounterVec
	StimulusDuration *prometheus.HistogramVec

	// Connection metrics
	BrokerConnected  prometheus.Gauge
	BrokerReconnects prometheus.Counter
	SUTConnected     prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with all adapter metrics
func NewMetrics() *Metrics {
	return &Metrics{
		// Session metrics
		SessionState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "matrix_adapter",
				Subsystem: "session",
				Name:      "state",
				Help:      "Session state (0=disconnected, 1=connected, 2=announced, 3=configured, 4=ready, 5=error)",
			},
			[]string{"adapter"},
		),

		StateTransitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "matrix_adapter",
				Subsystem: "session",
				Name:      "transitions_total",
				Help:      "Total number of session state transitions",
			},
			[]string{"from", "to"},
		),

		MessagesReceived: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "matrix_adapter",
				Subsystem: "messages",
				Name:      "received_total",
				Help:      "Total number of broker messages received",
			},
			[]string{"type"},
		),

		MessagesSent: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "matrix_adapter",
				Subsystem: "messages",
				Name:      "sent_total",
				Help:      "Total number of messages sent to the broker",
			},
			[]string{"type"},
		),

		DecodeFailures: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "matrix_adapter",
				Subsystem: "messages",
				Name:      "decode_failures_total",
				Help:      "Total number of broker messages that failed to decode",
			},
		),

		ErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "matrix_adapter",
				Subsystem: "errors",
				Name:      "total",
				Help:      "Total number of errors",
			},
			[]string{"component", "type"},
		),

		// Queue metrics
		QueueDepth: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "matrix_adapter",
				Subsystem: "queue",
				Name:      "depth",
				Help:      "Current number of items waiting in a task queue",
			},
			[]string{"queue"},
		),

		QueueEnqueued: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "matrix_adapter",
				Subsystem: "queue",
				Name:      "enqueued_total",
				Help:      "Total number of items enqueued per task queue",
			},
			[]string{"queue"},
		),

		QueueDropped: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "matrix_adapter",
				Subsystem: "queue",
				Name:      "dropped_total",
				Help:      "Total number of pending items discarded by queue drains",
			},
			[]string{"queue"},
		),

		// Label metrics
		StimuliTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "matrix_adapter",
				Subsystem: "labels",
				Name:      "stimuli_total",
				Help:      "Total number of stimuli offered to the SUT",
			},
			[]string{"name", "status"},
		),

		ResponsesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "matrix_adapter",
				Subsystem: "labels",
				Name:      "responses_total",
				Help:      "Total number of SUT responses forwarded to the broker",
			},
			[]string{"name"},
		),

		StimulusDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "matrix_adapter",
				Subsystem: "labels",
				Name:      "stimulus_duration_seconds",
				Help:      "Time spent offering a stimulus to the SUT in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"name"},
		),

		// Connection metrics
		BrokerConnected: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "matrix_adapter",
				Subsystem: "broker",
				Name:      "connected",
				Help:      "Broker connection status (0=disconnected, 1=connected)",
			},
		),

		BrokerReconnects: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "matrix_adapter",
				Subsystem: "broker",
				Name:      "reconnects_total",
				Help:      "Total number of broker reconnections",
			},
		),

		SUTConnected: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "matrix_adapter",
				Subsystem: "sut",
				Name:      "connected",
				Help:      "SUT connection status (0=disconnected, 1=connected)",
			},
		),
	}
}

// RecordSessionState updates the session state gauge
func (c *Metrics) RecordSessionState(adapter string, state int) {
	c.SessionState.WithLabelValues(adapter).Set(float64(state))
}

// RecordStateTransition increments the transition counter
func (c *Metrics) RecordStateTransition(from, to string) {
	c.StateTransitions.WithLabelValues(from, to).Inc()
}

// RecordMessageReceived increments received message counter
func (c *Metrics) RecordMessageReceived(messageType string) {
	c.MessagesReceived.WithLabelValues(messageType).Inc()
}

// RecordMessageSent increments sent message counter
func (c *Metrics) RecordMessageSent(messageType string) {
	c.MessagesSent.WithLabelValues(messageType).Inc()
}

// RecordDecodeFailure increments the decode failure counter
func (c *Metrics) RecordDecodeFailure() {
	c.DecodeFailures.Inc()
}

// RecordError increments error counter
func (c *Metrics) RecordError(component, errorType string) {
	c.ErrorsTotal.WithLabelValues(component, errorType).Inc()
}

// RecordQueueDepth updates the depth gauge for a queue
func (c *Metrics) RecordQueueDepth(queue string, depth int) {
	c.QueueDepth.WithLabelValues(queue).Set(float64(depth))
}

// RecordEnqueue increments the enqueue counter for a queue
func (c *Metrics) RecordEnqueue(queue string) {
	c.QueueEnqueued.WithLabelValues(queue).Inc()
}

// RecordQueueDrop adds discarded items to the drop counter for a queue
func (c *Metrics) RecordQueueDrop(queue string, count int) {
	c.QueueDropped.WithLabelValues(queue).Add(float64(count))
}

// RecordStimulus increments the stimulus counter
func (c *Metrics) RecordStimulus(name, status string) {
	c.StimuliTotal.WithLabelValues(name, status).Inc()
}

// RecordResponse increments the response counter
func (c *Metrics) RecordResponse(name string) {
	c.ResponsesTotal.WithLabelValues(name).Inc()
}

// RecordStimulusDuration records the time spent offering a stimulus
func (c *Metrics) RecordStimulusDuration(name string, duration time.Duration) {
	c.StimulusDuration.WithLabelValues(name).Observe(duration.Seconds())
}

// RecordBrokerStatus updates broker connection status
func (c *Metrics) RecordBrokerStatus(connected bool) {
	value := 0.0
	if connected {
		value = 1.0
	}
	c.BrokerConnected.Set(value)
}

// RecordBrokerReconnect increments reconnection counter
func (c *Metrics) RecordBrokerReconnect() {
	c.BrokerReconnects.Inc()
}

// RecordSUTStatus updates SUT connection status
func (c *Metrics) RecordSUTStatus(connected bool) {
	value := 0.0
	if connected {
		value = 1.0
	}
	c.SUTConnected.Set(value)
}
