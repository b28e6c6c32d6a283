// Package metrics provides Prometheus metrics for the goal service.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// GoalMetrics contains the Prometheus metrics recorded by goal sessions.
// A nil *GoalMetrics is valid and records nothing.
type GoalMetrics struct {
	Mutations   *prometheus.CounterVec
	Saves       *prometheus.CounterVec
	Loads       *prometheus.CounterVec
	SaveLatency prometheus.Histogram
	Sessions    prometheus.Gauge
	Suggestions *prometheus.CounterVec
	collectors  []prometheus.Collector
}

// NewGoalMetrics creates the metrics and registers them on registry.
func NewGoalMetrics(registry prometheus.Registerer) (*GoalMetrics, error) {
	m := &GoalMetrics{}
	m.initMetrics()
	for _, c := range m.collectors {
		if err := registry.Register(c); err != nil {
			return nil, fmt.Errorf("failed to register goal metrics: %w", err)
		}
	}
	return m, nil
}

func (m *GoalMetrics) initMetrics() {
	m.Mutations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "goally_mutations_total",
		Help: "Total number of applied mutations by entity and operation",
	}, []string{"entity", "operation"})

	m.Saves = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "goally_snapshot_saves_total",
		Help: "Total number of snapshot save attempts by result",
	}, []string{"result"})

	m.Loads = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "goally_snapshot_loads_total",
		Help: "Total number of snapshot load attempts by result",
	}, []string{"result"})

	m.SaveLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "goally_snapshot_save_latency_seconds",
		Help:    "Latency of snapshot saves in seconds",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
	})

	m.Sessions = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "goally_sessions",
		Help: "Number of principal sessions held in memory",
	})

	m.Suggestions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "goally_title_suggestions_total",
		Help: "Total number of goal title suggestion requests by result",
	}, []string{"result"})

	m.collectors = []prometheus.Collector{m.Mutations, m.Saves, m.Loads, m.SaveLatency, m.Sessions, m.Suggestions}
}

func (m *GoalMetrics) RecordMutation(entity, operation string) {
	if m == nil {
		return
	}
	m.Mutations.WithLabelValues(entity, operation).Inc()
}

func (m *GoalMetrics) RecordSave(err error, took time.Duration) {
	if m == nil {
		return
	}
	m.Saves.WithLabelValues(result(err)).Inc()
	m.SaveLatency.Observe(took.Seconds())
}

func (m *GoalMetrics) RecordLoad(err error) {
	if m == nil {
		return
	}
	m.Loads.WithLabelValues(result(err)).Inc()
}

func (m *GoalMetrics) SetSessions(n int) {
	if m == nil {
		return
	}
	m.Sessions.Set(float64(n))
}

// RecordSuggestion counts a suggestion outcome: "hit", "miss" or "error".
func (m *GoalMetrics) RecordSuggestion(outcome string) {
	if m == nil {
		return
	}
	m.Suggestions.WithLabelValues(outcome).Inc()
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
