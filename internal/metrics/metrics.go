// Package metrics exposes Prometheus counters for planning runs and model
// acquisition.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/yubzen/tripweaver/internal/llm"
	"github.com/yubzen/tripweaver/internal/workflow"
)

const namespace = "tripweaver"

// Metrics owns its registry, so several instances can coexist in tests.
type Metrics struct {
	registry   *prometheus.Registry
	candidates *prometheus.CounterVec
	steps      *prometheus.HistogramVec
	runs       *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		candidates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "model_candidate_outcomes_total",
			Help:      "Outcome of each model candidate tried during acquisition.",
		}, []string{"provider", "model", "outcome"}),
		steps: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "node_duration_seconds",
			Help:      "Duration of workflow node executions.",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 20, 40, 80, 160},
		}, []string{"node", "status"}),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Planning runs by result.",
		}, []string{"result"}),
	}
	m.registry.MustRegister(
		m.candidates,
		m.steps,
		m.runs,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// CandidateOutcome counts one candidate outcome.
func (m *Metrics) CandidateOutcome(c llm.Candidate, o llm.Outcome) {
	m.candidates.WithLabelValues(c.Provider, c.Model, string(o)).Inc()
}

// ObserveStep records finished node executions; it is a workflow.Observer.
func (m *Metrics) ObserveStep(ev workflow.StepEvent) {
	if ev.Status == workflow.StepRunning {
		return
	}
	m.steps.WithLabelValues(string(ev.Node), string(ev.Status)).Observe(ev.Duration.Seconds())
}

// RunFinished counts a completed or failed run.
func (m *Metrics) RunFinished(err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.runs.WithLabelValues(result).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
