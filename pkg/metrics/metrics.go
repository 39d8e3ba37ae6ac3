// Package metrics holds the Prometheus collectors shared by the pool, the
// orchestrator and the notification hub.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "jbtest"

type Metrics struct {
	SessionsActive        prometheus.Gauge
	SessionsCreated       prometheus.Counter
	SessionCreateFailures prometheus.Counter
	SessionsReaped        prometheus.Counter
	Screenshots           prometheus.Counter

	ExecutionsQueued prometheus.Counter
	ExecutionsActive prometheus.Gauge
	ExecutionsTotal  *prometheus.CounterVec
	StepDuration     *prometheus.HistogramVec

	Connections   prometheus.Gauge
	Notifications *prometheus.CounterVec

	VisionAnalyses *prometheus.CounterVec
}

// New registers every collector on reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		SessionsActive: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "browser",
			Name:      "sessions_active",
			Help:      "Number of open WebDriver sessions.",
		}),
		SessionsCreated: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "browser",
			Name:      "sessions_created_total",
			Help:      "WebDriver sessions created.",
		}),
		SessionCreateFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "browser",
			Name:      "session_create_failures_total",
			Help:      "Session creations rejected or failed, including pool exhaustion.",
		}),
		SessionsReaped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "browser",
			Name:      "sessions_reaped_total",
			Help:      "Idle sessions closed by the reaper.",
		}),
		Screenshots: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "browser",
			Name:      "screenshots_total",
			Help:      "Screenshots written to disk.",
		}),
		ExecutionsQueued: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "orchestrator",
			Name:      "executions_queued_total",
			Help:      "Executions accepted onto the queue.",
		}),
		ExecutionsActive: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "orchestrator",
			Name:      "executions_active",
			Help:      "Executions currently running.",
		}),
		ExecutionsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "orchestrator",
			Name:      "executions_total",
			Help:      "Executions that reached a terminal state, by status.",
		}, []string{"status"}),
		StepDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "orchestrator",
			Name:      "step_duration_seconds",
			Help:      "Step execution time by step type and outcome.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
		}, []string{"step_type", "outcome"}),
		Connections: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "notify",
			Name:      "connections",
			Help:      "Open WebSocket connections.",
		}),
		Notifications: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notify",
			Name:      "messages_total",
			Help:      "Messages sent to connections, by result.",
		}, []string{"result"}),
		VisionAnalyses: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "vision",
			Name:      "analyses_total",
			Help:      "Vision analyses by kind and result.",
		}, []string{"kind", "result"}),
	}
}

// NewUnregistered returns collectors that are not exported anywhere.
func NewUnregistered() *Metrics {
	return New(prometheus.NewRegistry())
}

func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
