package events

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrdash/lifecycle/pkg/models"
)

func testWorkflow(status models.WorkflowStatus, tasks ...*models.Task) *models.Workflow {
	started := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	completed := started.Add(90 * time.Minute)

	return &models.Workflow{
		ID:          "wf-1",
		EmployeeID:  "emp-1",
		Kind:        models.WorkflowKindOnboarding,
		Status:      status,
		Tasks:       tasks,
		StartedAt:   &started,
		CompletedAt: &completed,
	}
}

func TestNew_CoversEveryEventType(t *testing.T) {
	types := []EventType{
		WorkflowStartedEvent, WorkflowScheduledEvent, WorkflowActivatedEvent,
		WorkflowCompletedEvent, WorkflowFailedEvent, WorkflowCancelledEvent,
		TaskSucceededEvent, TaskFailedEvent, TaskCompletedEvent, TaskSkippedEvent,
	}

	for _, eventType := range types {
		t.Run(string(eventType), func(t *testing.T) {
			event := New(eventType)
			require.NotNil(t, event)
			assert.Equal(t, eventType, event.GetType())
		})
	}

	assert.Nil(t, New("workflow.unknown"))
}

func TestStatusChanged(t *testing.T) {
	failedTask := &models.Task{ID: "task-2", Status: models.TaskStatusFailed}
	doneTask := &models.Task{ID: "task-1", Status: models.TaskStatusSuccess}

	tests := []struct {
		name     string
		workflow *models.Workflow
		previous models.WorkflowStatus
		want     EventType
	}{
		{"completed", testWorkflow(models.WorkflowStatusCompleted, doneTask), models.WorkflowStatusInProgress, WorkflowCompletedEvent},
		{"failed", testWorkflow(models.WorkflowStatusFailed, doneTask, failedTask), models.WorkflowStatusInProgress, WorkflowFailedEvent},
		{"unchanged", testWorkflow(models.WorkflowStatusFailed, failedTask), models.WorkflowStatusFailed, ""},
		{"recovered", testWorkflow(models.WorkflowStatusInProgress, doneTask), models.WorkflowStatusFailed, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			event := StatusChanged(tt.workflow, tt.previous)
			if tt.want == "" {
				assert.Nil(t, event)

				return
			}

			require.NotNil(t, event)
			assert.Equal(t, tt.want, event.GetType())
		})
	}

	completed, ok := StatusChanged(testWorkflow(models.WorkflowStatusCompleted), models.WorkflowStatusInProgress).(WorkflowCompleted)
	require.True(t, ok)
	assert.Equal(t, 90*time.Minute, completed.Duration)

	failed, ok := StatusChanged(testWorkflow(models.WorkflowStatusFailed, doneTask, failedTask), models.WorkflowStatusInProgress).(WorkflowFailed)
	require.True(t, ok)
	assert.Equal(t, []string{"task-2"}, failed.FailedTasks)
}

func TestTaskOutcome(t *testing.T) {
	attempted := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	task := &models.Task{
		ID:            "task-1",
		Handler:       models.HandlerCreateAccount,
		Status:        models.TaskStatusFailed,
		StatusMessage: "quota exceeded",
		Attempts:      2,
		LastAttemptAt: &attempted,
	}
	wf := testWorkflow(models.WorkflowStatusFailed, task)

	failed, ok := TaskOutcome(wf, task).(TaskFailed)
	require.True(t, ok)
	assert.Equal(t, "quota exceeded", failed.Error)
	assert.Equal(t, 2, failed.Attempt)
	assert.Equal(t, attempted, failed.Timestamp)
	assert.Equal(t, "emp-1", failed.Key())

	task.Status = models.TaskStatusSuccess
	task.StatusMessage = "account created"

	succeeded, ok := TaskOutcome(wf, task).(TaskSucceeded)
	require.True(t, ok)
	assert.Equal(t, "account created", succeeded.Message)
}

func TestWorkflowScheduled_JSON(t *testing.T) {
	scheduled := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)
	wf := testWorkflow(models.WorkflowStatusPending)
	wf.ScheduledFor = &scheduled

	data, err := json.Marshal(NewWorkflowScheduled(wf))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"type":"workflow.scheduled"`)
	assert.Contains(t, string(data), `"employee_id":"emp-1"`)
	assert.Contains(t, string(data), `"scheduled_for":"2026-04-01T09:00:00Z"`)

	var decoded WorkflowScheduled
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, scheduled, decoded.ScheduledFor)
	assert.Equal(t, models.WorkflowKindOnboarding, decoded.Kind)
}
