package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the voice bridge
type Metrics struct {
	registry *prometheus.Registry

	// HTTP Request Metrics
	httpRequestsTotal    *prometheus.CounterVec
	httpRequestDuration  *prometheus.HistogramVec
	httpRequestsInFlight prometheus.Gauge

	// WebSocket Metrics (ACS media streaming connections)
	websocketConnections   prometheus.Gauge
	websocketMessagesTotal *prometheus.CounterVec
	websocketErrorsTotal   prometheus.Counter

	// Call Metrics
	callsAnsweredTotal   prometheus.Counter
	callsActive          prometheus.Gauge
	callbackEventsTotal  *prometheus.CounterVec
	endCallFailuresTotal prometheus.Counter

	// Realtime Model Metrics
	realtimeEventsTotal *prometheus.CounterVec
	toolCallsTotal      *prometheus.CounterVec
	bargeInsTotal       prometheus.Counter
}

// NewMetrics creates all metrics on a dedicated registry so multiple
// instances (e.g. in tests) never collide.
func NewMetrics(serviceName string) *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)
	constLabels := prometheus.Labels{"service": serviceName}

	return &Metrics{
		registry: registry,

		httpRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name:        "http_requests_total",
				Help:        "Total number of HTTP requests",
				ConstLabels: constLabels,
			},
			[]string{"method", "endpoint", "status"},
		),
		httpRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:        "http_request_duration_seconds",
				Help:        "HTTP request latency in seconds",
				ConstLabels: constLabels,
				Buckets:     prometheus.DefBuckets,
			},
			[]string{"method", "endpoint"},
		),
		httpRequestsInFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Name:        "http_requests_in_flight",
				Help:        "Number of HTTP requests currently being processed",
				ConstLabels: constLabels,
			},
		),

		websocketConnections: factory.NewGauge(
			prometheus.GaugeOpts{
				Name:        "websocket_connections",
				Help:        "Number of open media streaming websocket connections",
				ConstLabels: constLabels,
			},
		),
		websocketMessagesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name:        "websocket_messages_total",
				Help:        "Total number of websocket frames relayed",
				ConstLabels: constLabels,
			},
			[]string{"direction"}, // inbound, outbound
		),
		websocketErrorsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name:        "websocket_errors_total",
				Help:        "Total number of websocket transport errors",
				ConstLabels: constLabels,
			},
		),

		callsAnsweredTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name:        "calls_answered_total",
				Help:        "Total number of inbound calls answered",
				ConstLabels: constLabels,
			},
		),
		callsActive: factory.NewGauge(
			prometheus.GaugeOpts{
				Name:        "calls_active",
				Help:        "Number of currently connected calls",
				ConstLabels: constLabels,
			},
		),
		callbackEventsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name:        "callback_events_total",
				Help:        "Total number of call lifecycle callback events received",
				ConstLabels: constLabels,
			},
			[]string{"type"},
		),
		endCallFailuresTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name:        "end_call_failures_total",
				Help:        "Total number of failed hang-up attempts",
				ConstLabels: constLabels,
			},
		),

		realtimeEventsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name:        "realtime_events_total",
				Help:        "Total number of events received from the speech model",
				ConstLabels: constLabels,
			},
			[]string{"type"},
		),
		toolCallsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name:        "tool_calls_total",
				Help:        "Total number of model-invoked tool calls dispatched",
				ConstLabels: constLabels,
			},
			[]string{"function"},
		),
		bargeInsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name:        "barge_ins_total",
				Help:        "Total number of caller barge-ins that interrupted model audio",
				ConstLabels: constLabels,
			},
		),
	}
}

// GetRegistry returns the dedicated registry backing these metrics
func (m *Metrics) GetRegistry() *prometheus.Registry {
	return m.registry
}

// RecordHTTPRequest records a completed HTTP request
func (m *Metrics) RecordHTTPRequest(method, endpoint string, statusCode int, duration time.Duration) {
	m.httpRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(statusCode)).Inc()
	m.httpRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// IncrementHTTPRequestsInFlight increments the in-flight gauge
func (m *Metrics) IncrementHTTPRequestsInFlight() {
	m.httpRequestsInFlight.Inc()
}

// DecrementHTTPRequestsInFlight decrements the in-flight gauge
func (m *Metrics) DecrementHTTPRequestsInFlight() {
	m.httpRequestsInFlight.Dec()
}

// WebSocketConnected records an opened media websocket
func (m *Metrics) WebSocketConnected() {
	m.websocketConnections.Inc()
}

// WebSocketDisconnected records a closed media websocket
func (m *Metrics) WebSocketDisconnected() {
	m.websocketConnections.Dec()
}

// RecordWebSocketMessage counts a relayed frame in the given direction
func (m *Metrics) RecordWebSocketMessage(direction string) {
	m.websocketMessagesTotal.WithLabelValues(direction).Inc()
}

// RecordWebSocketError counts a websocket transport error
func (m *Metrics) RecordWebSocketError() {
	m.websocketErrorsTotal.Inc()
}

// RecordCallAnswered counts an answered inbound call
func (m *Metrics) RecordCallAnswered() {
	m.callsAnsweredTotal.Inc()
}

// CallConnected records a call entering the connected state
func (m *Metrics) CallConnected() {
	m.callsActive.Inc()
}

// CallDisconnected records a call leaving the connected state
func (m *Metrics) CallDisconnected() {
	m.callsActive.Dec()
}

// RecordCallbackEvent counts a lifecycle callback event by type
func (m *Metrics) RecordCallbackEvent(eventType string) {
	m.callbackEventsTotal.WithLabelValues(eventType).Inc()
}

// RecordEndCallFailure counts a failed hang-up attempt
func (m *Metrics) RecordEndCallFailure() {
	m.endCallFailuresTotal.Inc()
}

// RecordRealtimeEvent counts a speech model event by type
func (m *Metrics) RecordRealtimeEvent(eventType string) {
	m.realtimeEventsTotal.WithLabelValues(eventType).Inc()
}

// RecordToolCall counts a dispatched tool call by function name
func (m *Metrics) RecordToolCall(function string) {
	m.toolCallsTotal.WithLabelValues(function).Inc()
}

// RecordBargeIn counts a caller interruption of model audio
func (m *Metrics) RecordBargeIn() {
	m.bargeInsTotal.Inc()
}
