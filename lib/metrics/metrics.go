package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "fakedis"

// Metrics holds the collectors of one server. Every server owns a registry so that servers created by
// tests do not collide. A nil *Metrics is valid and records nothing
type Metrics struct {
	registry *prometheus.Registry

	commands         *prometheus.CounterVec
	commandErrors    *prometheus.CounterVec
	commandDuration  *prometheus.HistogramVec
	blockedClients   prometheus.Gauge
	connectedClients prometheus.Gauge
	pubsubMessages   prometheus.Counter
}

// New creates and registers collectors
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_processed_total",
			Help:      "Number of commands processed, by command name.",
		}, []string{"command"}),
		commandErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "command_errors_total",
			Help:      "Number of commands answered with an error, by command name.",
		}, []string{"command"}),
		commandDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "command_duration_seconds",
			Help:      "Command execution latency, blocking time included.",
			Buckets:   prometheus.ExponentialBuckets(0.00001, 4, 10),
		}, []string{"command"}),
		blockedClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "blocked_clients",
			Help:      "Number of clients waiting in blocking commands.",
		}),
		connectedClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "connected_clients",
			Help:      "Number of open connections.",
		}),
		pubsubMessages: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pubsub_messages_delivered_total",
			Help:      "Number of messages pushed to subscribers.",
		}),
	}
	m.registry.MustRegister(
		m.commands,
		m.commandErrors,
		m.commandDuration,
		m.blockedClients,
		m.connectedClients,
		m.pubsubMessages,
	)
	return m
}

// Registry returns the registry holding the collectors
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the collectors in the prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveCommand records a processed command
func (m *Metrics) ObserveCommand(name string, elapsed time.Duration, failed bool) {
	if m == nil {
		return
	}
	m.commands.WithLabelValues(name).Inc()
	m.commandDuration.WithLabelValues(name).Observe(elapsed.Seconds())
	if failed {
		m.commandErrors.WithLabelValues(name).Inc()
	}
}

// BlockedDelta adjusts the blocked clients gauge
func (m *Metrics) BlockedDelta(delta int) {
	if m == nil {
		return
	}
	m.blockedClients.Add(float64(delta))
}

// ConnectedDelta adjusts the connected clients gauge
func (m *Metrics) ConnectedDelta(delta int) {
	if m == nil {
		return
	}
	m.connectedClients.Add(float64(delta))
}

// Delivered records messages pushed to subscribers
func (m *Metrics) Delivered(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.pubsubMessages.Add(float64(n))
}
