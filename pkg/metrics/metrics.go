// Package metrics exposes prometheus collectors for workflow and automation activity.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "lifecycle"

// Metrics groups the collectors recorded by the lifecycle service. A nil
// *Metrics records nothing.
type Metrics struct {
	workflowsStarted  *prometheus.CounterVec
	workflowsFinished *prometheus.CounterVec
	taskExecutions    *prometheus.CounterVec
	automationLatency *prometheus.HistogramVec
	manualDecisions   *prometheus.CounterVec
}

// New registers the collectors with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		workflowsStarted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "workflows_started_total",
				Help:      "Workflows created, by kind and whether they started immediately",
			},
			[]string{"kind", "mode"},
		),
		workflowsFinished: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "workflows_finished_total",
				Help:      "Workflows that reached COMPLETED, FAILED or CANCELLED",
			},
			[]string{"kind", "status"},
		),
		taskExecutions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "task_executions_total",
				Help:      "Automated task executions, by handler and outcome",
			},
			[]string{"handler", "outcome"},
		),
		automationLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "automation_duration_seconds",
				Help:      "Time spent inside automation handlers",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"handler"},
		),
		manualDecisions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "task_decisions_total",
				Help:      "Operator decisions on tasks, by decision",
			},
			[]string{"decision"},
		),
	}
}

func (m *Metrics) WorkflowStarted(kind string, immediate bool) {
	if m == nil {
		return
	}

	mode := "scheduled"
	if immediate {
		mode = "immediate"
	}

	m.workflowsStarted.WithLabelValues(kind, mode).Inc()
}

func (m *Metrics) WorkflowFinished(kind, status string) {
	if m == nil {
		return
	}

	m.workflowsFinished.WithLabelValues(kind, status).Inc()
}

// TaskExecuted records one automation attempt and how long it took.
func (m *Metrics) TaskExecuted(handler string, success bool, elapsed time.Duration) {
	if m == nil {
		return
	}

	outcome := "failure"
	if success {
		outcome = "success"
	}

	m.taskExecutions.WithLabelValues(handler, outcome).Inc()
	m.automationLatency.WithLabelValues(handler).Observe(elapsed.Seconds())
}

// TaskDecided records a manual completion or a skip.
func (m *Metrics) TaskDecided(decision string) {
	if m == nil {
		return
	}

	m.manualDecisions.WithLabelValues(decision).Inc()
}
