// Package metrics exposes the Timer Pump and Game Engine's Prometheus
// surface, grounded on the gauge/histogram shape of a sibling werewolf-style
// repo's observability package (this teacher has no metrics surface of its
// own). Only the prometheus portion is carried; that repo's OpenTelemetry
// tracing and zap logging are not — this repo keeps the teacher's
// log.Printf convention instead, per DESIGN.md.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics is the gauge/histogram/counter set the Timer Pump, the broadcast
// hub and the Request Adapter update on every tick, delivery and mutation.
type Metrics struct {
	ActiveGames       prometheus.Gauge
	TickLatency       prometheus.Histogram
	PhaseTransitions  *prometheus.CounterVec
	BroadcastFailures prometheus.Counter
	ActionsRejected   *prometheus.CounterVec
	ActiveConnections prometheus.Gauge
}

func New(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer.(*prometheus.Registry)
	}
	return &Metrics{
		ActiveGames: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "hollowvale_active_games",
			Help: "Number of games currently in the active-games set",
		}),
		TickLatency: promauto.With(reg).NewHistogram(prometheus.HistogramOpts{
			Name:    "hollowvale_tick_latency_ms",
			Help:    "Time to enumerate and advance all active games in one tick",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12),
		}),
		PhaseTransitions: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "hollowvale_phase_transitions_total",
			Help: "Phase transitions driven by advanceGameOnTimeout",
		}, []string{"phase"}),
		BroadcastFailures: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "hollowvale_broadcast_failures_total",
			Help: "Broadcaster emits dropped by the hub (marshal failure or full queue/client buffer)",
		}),
		ActionsRejected: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "hollowvale_actions_rejected_total",
			Help: "submitAction calls rejected by error code",
		}, []string{"code"}),
		ActiveConnections: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "hollowvale_ws_active_connections",
			Help: "Number of active websocket connections",
		}),
	}
}
