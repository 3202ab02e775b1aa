package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_Record(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.WorkflowStarted("ONBOARDING", true)
	m.WorkflowStarted("ONBOARDING", true)
	m.WorkflowStarted("OFFBOARDING", false)
	m.WorkflowFinished("ONBOARDING", "COMPLETED")
	m.TaskExecuted("apps.provision", true, 20*time.Millisecond)
	m.TaskExecuted("apps.provision", false, 5*time.Millisecond)
	m.TaskDecided("skipped")

	assert.InDelta(t, 2, testutil.ToFloat64(m.workflowsStarted.WithLabelValues("ONBOARDING", "immediate")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.workflowsStarted.WithLabelValues("OFFBOARDING", "scheduled")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.workflowsFinished.WithLabelValues("ONBOARDING", "COMPLETED")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.taskExecutions.WithLabelValues("apps.provision", "failure")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.manualDecisions.WithLabelValues("skipped")), 0)
	assert.Equal(t, 1, testutil.CollectAndCount(m.automationLatency))

	count, err := testutil.GatherAndCount(reg, "lifecycle_task_executions_total")
	assert.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.WorkflowStarted("ONBOARDING", true)
		m.WorkflowFinished("ONBOARDING", "FAILED")
		m.TaskExecuted("apps.provision", true, time.Second)
		m.TaskDecided("completed")
	})
}
