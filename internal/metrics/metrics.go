// Package metrics exposes Prometheus collectors for intake turns.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "intake"

// Metrics holds the intake collectors.
type Metrics struct {
	turns          *prometheus.CounterVec
	turnDuration   prometheus.Histogram
	toolDispatches *prometheus.CounterVec
	middlewareStop *prometheus.CounterVec
	aiLatency      *prometheus.HistogramVec
	storeFailures  prometheus.Counter

	gatherer prometheus.Gatherer
}

// New creates the collectors and registers them with reg. A nil reg gets a
// fresh registry, which keeps tests independent. Registration errors panic.
func New(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	m := &Metrics{
		turns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "turns_total",
			Help:      "Conversational turns handled, by how they were answered.",
		}, []string{"outcome"}),
		turnDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "turn_duration_seconds",
			Help:      "End-to-end duration of a turn.",
			Buckets:   prometheus.DefBuckets,
		}),
		toolDispatches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tool_dispatches_total",
			Help:      "Tool invocations, by tool and result.",
		}, []string{"tool", "result"}),
		middlewareStop: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "middleware_short_circuits_total",
			Help:      "Turns answered by a middleware unit without the assistant.",
		}, []string{"unit"}),
		aiLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "ai_request_duration_seconds",
			Help:      "Latency of assistant completions.",
			Buckets:   []float64{0.25, 0.5, 1, 2, 4, 8, 16, 32},
		}, []string{"provider", "status"}),
		storeFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "context_save_failures_total",
			Help:      "Context saves that failed or timed out.",
		}),
		gatherer: reg,
	}
	reg.MustRegister(m.turns, m.turnDuration, m.toolDispatches, m.middlewareStop, m.aiLatency, m.storeFailures)
	return m
}

// Turn records a finished turn. outcome is one of "middleware", "bypass",
// "assistant", "tool" or "error".
func (m *Metrics) Turn(outcome string, d time.Duration) {
	m.turns.WithLabelValues(outcome).Inc()
	m.turnDuration.Observe(d.Seconds())
}

// ToolDispatch records a dispatch result.
func (m *Metrics) ToolDispatch(tool, result string) {
	m.toolDispatches.WithLabelValues(tool, result).Inc()
}

// MiddlewareStop records a middleware short-circuit.
func (m *Metrics) MiddlewareStop(unit string) {
	m.middlewareStop.WithLabelValues(unit).Inc()
}

// AICall records one provider call.
func (m *Metrics) AICall(provider string, d time.Duration, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.aiLatency.WithLabelValues(provider, status).Observe(d.Seconds())
}

// StoreSaveFailed records a failed context save.
func (m *Metrics) StoreSaveFailed() {
	m.storeFailures.Inc()
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
