// Package metrics owns the process Prometheus registry.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "blotto"

type Metrics struct {
	Registry *prometheus.Registry

	Connections   prometheus.Gauge
	Players       prometheus.Gauge
	Actions       *prometheus.CounterVec // by action and outcome
	Notifications *prometheus.CounterVec // by kind
	Dropped       prometheus.Counter
	RateLimited   prometheus.Counter
	Rounds        prometheus.Counter
	Sessions      prometheus.Counter
	ResolveTime   prometheus.Histogram
	SinkErrors    *prometheus.CounterVec // by sink
}

// New builds a private registry with Go and process collectors attached.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		Registry: reg,
		Connections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "ws_connections",
			Help: "Open websocket connections.",
		}),
		Players: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "session_players",
			Help: "Registered players in the active session.",
		}),
		Actions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "actions_total",
			Help: "Inbound actions by kind and outcome.",
		}, []string{"action", "outcome"}),
		Notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "notifications_total",
			Help: "Outbound notifications by kind.",
		}, []string{"kind"}),
		Dropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "frames_dropped_total",
			Help: "Outbound frames dropped because a client queue was full or closed.",
		}),
		RateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "actions_rate_limited_total",
			Help: "Inbound actions refused by the per-connection limiter.",
		}),
		Rounds: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "rounds_resolved_total",
			Help: "Resolved rounds.",
		}),
		Sessions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "sessions_ended_total",
			Help: "Ended sessions.",
		}),
		ResolveTime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Name: "apply_duration_seconds",
			Help:    "Time spent applying one action to the engine.",
			Buckets: prometheus.ExponentialBuckets(0.00005, 4, 8),
		}),
		SinkErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "sink_errors_total",
			Help: "Failures writing to side sinks (eventbus, archive, webhook).",
		}, []string{"sink"}),
	}
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.Connections, m.Players, m.Actions, m.Notifications, m.Dropped,
		m.RateLimited, m.Rounds, m.Sessions, m.ResolveTime, m.SinkErrors,
	)
	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{Registry: m.Registry})
}
