package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/saker-ai/realtime-assistant/pkg/realtime"
)

const defaultNamespace = "assistant"

// Metrics holds the gateway collectors on a private registry. It implements
// realtime.Observer so one value can be shared by every client.
type Metrics struct {
	registry *prometheus.Registry

	FramesSent        *prometheus.CounterVec
	FramesReceived    *prometheus.CounterVec
	ToolCalls         *prometheus.CounterVec
	ConnectionsActive prometheus.Gauge
	ConnectFailures   prometheus.Counter
	BrowserSessions   prometheus.Gauge
}

var _ realtime.Observer = (*Metrics)(nil)

// New registers the collectors under namespace ("assistant" when empty).
func New(namespace string) *Metrics {
	if namespace == "" {
		namespace = defaultNamespace
	}
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		FramesSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_sent_total",
			Help:      "Commands written to the realtime service",
		}, []string{"type"}),
		FramesReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_received_total",
			Help:      "Events read from the realtime service",
		}, []string{"type"}),
		ToolCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tool_calls_total",
			Help:      "Function calls requested by the model",
		}, []string{"tool", "outcome"}),
		ConnectionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "connections_active",
			Help:      "Open realtime connections",
		}),
		ConnectFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "connect_failures_total",
			Help:      "Failed realtime handshakes",
		}),
		BrowserSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "browser_sessions_active",
			Help:      "Connected browser websocket sessions",
		}),
	}

	registry.MustRegister(
		m.FramesSent,
		m.FramesReceived,
		m.ToolCalls,
		m.ConnectionsActive,
		m.ConnectFailures,
		m.BrowserSessions,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry exposes the private registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) FrameSent(commandType string) { m.FramesSent.WithLabelValues(commandType).Inc() }

func (m *Metrics) FrameReceived(eventType string) {
	m.FramesReceived.WithLabelValues(eventType).Inc()
}

func (m *Metrics) ToolCall(tool, outcome string) {
	m.ToolCalls.WithLabelValues(tool, outcome).Inc()
}

func (m *Metrics) Connected()     { m.ConnectionsActive.Inc() }
func (m *Metrics) Disconnected()  { m.ConnectionsActive.Dec() }
func (m *Metrics) ConnectFailed() { m.ConnectFailures.Inc() }

// SessionOpened and SessionClosed track browser sessions.
func (m *Metrics) SessionOpened() { m.BrowserSessions.Inc() }
func (m *Metrics) SessionClosed() { m.BrowserSessions.Dec() }
