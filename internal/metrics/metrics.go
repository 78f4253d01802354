package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"crossborder/internal/sequencer"
)

// Metrics holds the demo's Prometheus collectors.
type Metrics struct {
	ControlPresses *prometheus.CounterVec
	Events         *prometheus.CounterVec
	StreamClients  prometheus.Gauge
	StreamDropped  prometheus.Counter
}

// New creates the collectors and registers them on reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		ControlPresses: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "negotiation_control_presses_total",
			Help: "Control presses by control and outcome (accepted, disabled)",
		}, []string{"control", "outcome"}),
		Events: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "negotiation_events_total",
			Help: "Sequencer events emitted, by kind",
		}, []string{"kind"}),
		StreamClients: factory.NewGauge(prometheus.GaugeOpts{
			Name: "negotiation_stream_clients",
			Help: "Connected websocket event-stream clients",
		}),
		StreamDropped: factory.NewCounter(prometheus.CounterOpts{
			Name: "negotiation_stream_dropped_total",
			Help: "Events dropped for slow stream clients",
		}),
	}
}

// Sink counts every sequencer event it sees.
func (m *Metrics) Sink() sequencer.Sink {
	return sequencer.SinkFunc(func(e sequencer.Event) {
		m.Events.WithLabelValues(string(e.Kind)).Inc()
	})
}

// RecordPress counts a control press.
func (m *Metrics) RecordPress(c sequencer.Control, accepted bool) {
	outcome := "accepted"
	if !accepted {
		outcome = "disabled"
	}
	m.ControlPresses.WithLabelValues(string(c), outcome).Inc()
}
