package infra

import (
	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	Registry *prometheus.Registry

	ActiveSessions prometheus.Gauge
	SessionErrors  *prometheus.CounterVec
	UpdatesApplied prometheus.Counter
	ActiveViewers  prometheus.Gauge
}

func ProvideMetrics() *Metrics {
	return NewMetrics(prometheus.NewRegistry())
}

func NewMetrics(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		Registry: registry,
		ActiveSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "queue_tracker_active_sessions",
			Help: "Number of started and not yet closed tracking sessions.",
		}),
		SessionErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "queue_tracker_session_errors_total",
			Help: "Errors recorded by tracking sessions, by kind.",
		}, []string{"kind"}),
		UpdatesApplied: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "queue_tracker_updates_applied_total",
			Help: "Partial updates merged into a ticket snapshot.",
		}),
		ActiveViewers: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "queue_tracker_active_viewers",
			Help: "Number of connected browser viewers.",
		}),
	}

	registry.MustRegister(m.ActiveSessions, m.SessionErrors, m.UpdatesApplied, m.ActiveViewers)
	return m
}
