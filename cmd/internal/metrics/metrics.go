// Package metrics defines the Prometheus instruments shared by the API and
// realtime layers. All methods are nil-safe so tests can pass a nil *Metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles the server's Prometheus instruments.
type Metrics struct {
	authFailures        prometheus.Counter
	sessionsEstablished prometheus.Counter
	heartbeats          prometheus.Counter
	eventsPublished     *prometheus.CounterVec
	connectedClients    prometheus.Gauge
}

// New registers the pulse instruments on reg and returns them.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		authFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pulse_auth_failures_total",
			Help: "Calls rejected because the shared passphrase did not match.",
		}),
		sessionsEstablished: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pulse_sessions_established_total",
			Help: "Session records created or replaced.",
		}),
		heartbeats: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pulse_heartbeats_total",
			Help: "Session validity refreshes.",
		}),
		eventsPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pulse_events_published_total",
			Help: "Presence events handed to the realtime transport.",
		}, []string{"kind"}),
		connectedClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "pulse_connected_clients",
			Help: "Currently connected realtime clients.",
		}),
	}

	if reg != nil {
		reg.MustRegister(
			m.authFailures,
			m.sessionsEstablished,
			m.heartbeats,
			m.eventsPublished,
			m.connectedClients,
		)
	}
	return m
}

// AuthFailure counts a passphrase rejection.
func (m *Metrics) AuthFailure() {
	if m != nil {
		m.authFailures.Inc()
	}
}

// SessionEstablished counts a session create/replace.
func (m *Metrics) SessionEstablished() {
	if m != nil {
		m.sessionsEstablished.Inc()
	}
}

// Heartbeat counts a validity refresh.
func (m *Metrics) Heartbeat() {
	if m != nil {
		m.heartbeats.Inc()
	}
}

// EventPublished counts a presence event by kind.
func (m *Metrics) EventPublished(kind string) {
	if m != nil {
		m.eventsPublished.WithLabelValues(kind).Inc()
	}
}

// ClientConnected moves the connected-clients gauge.
func (m *Metrics) ClientConnected(delta int) {
	if m != nil {
		m.connectedClients.Add(float64(delta))
	}
}
