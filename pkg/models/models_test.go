package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tasksWith(statuses ...TaskStatus) []*Task {
	tasks := make([]*Task, 0, len(statuses))
	for i, status := range statuses {
		tasks = append(tasks, &Task{ID: string(rune('a' + i)), Status: status, Type: TaskTypeManual})
	}

	return tasks
}

func TestDeriveWorkflowStatus(t *testing.T) {
	tests := []struct {
		name     string
		statuses []TaskStatus
		want     WorkflowStatus
	}{
		{"all pending", []TaskStatus{TaskStatusPending, TaskStatusPending}, WorkflowStatusInProgress},
		{"failed with pending", []TaskStatus{TaskStatusFailed, TaskStatusPending}, WorkflowStatusInProgress},
		{"failed without pending", []TaskStatus{TaskStatusFailed, TaskStatusSuccess}, WorkflowStatusFailed},
		{"success and skipped", []TaskStatus{TaskStatusSuccess, TaskStatusSkipped}, WorkflowStatusCompleted},
		{"all skipped", []TaskStatus{TaskStatusSkipped}, WorkflowStatusCompleted},
		{"no tasks", nil, WorkflowStatusCompleted},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DeriveWorkflowStatus(tasksWith(tt.statuses...)))
		})
	}
}

func TestWorkflow_Recompute(t *testing.T) {
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	t.Run("stamps completion", func(t *testing.T) {
		wf := &Workflow{Status: WorkflowStatusInProgress, Tasks: tasksWith(TaskStatusSuccess, TaskStatusSkipped)}
		wf.Recompute(now)

		assert.Equal(t, WorkflowStatusCompleted, wf.Status)
		require.NotNil(t, wf.CompletedAt)
		assert.Equal(t, now, *wf.CompletedAt)
	})

	t.Run("failed workflow completes after retry", func(t *testing.T) {
		wf := &Workflow{Status: WorkflowStatusFailed, Tasks: tasksWith(TaskStatusSuccess, TaskStatusSuccess)}
		wf.Recompute(now)

		assert.Equal(t, WorkflowStatusCompleted, wf.Status)
	})

	t.Run("cancelled workflow is never revived", func(t *testing.T) {
		wf := &Workflow{Status: WorkflowStatusCancelled, Tasks: tasksWith(TaskStatusSuccess)}
		wf.Recompute(now)

		assert.Equal(t, WorkflowStatusCancelled, wf.Status)
		assert.Nil(t, wf.CompletedAt)
	})
}

func TestWorkflow_Start(t *testing.T) {
	now := time.Now()

	wf := &Workflow{Status: WorkflowStatusPending, Tasks: tasksWith(TaskStatusPending)}
	wf.Start(now)
	assert.Equal(t, WorkflowStatusInProgress, wf.Status)
	require.NotNil(t, wf.StartedAt)

	empty := &Workflow{Status: WorkflowStatusPending}
	empty.Start(now)
	assert.Equal(t, WorkflowStatusCompleted, empty.Status)
	assert.NotNil(t, empty.CompletedAt)
}

func TestValidWorkflowTransition(t *testing.T) {
	assert.True(t, ValidWorkflowTransition(WorkflowStatusPending, WorkflowStatusInProgress))
	assert.True(t, ValidWorkflowTransition(WorkflowStatusFailed, WorkflowStatusCancelled))
	assert.True(t, ValidWorkflowTransition(WorkflowStatusInProgress, WorkflowStatusInProgress))
	assert.False(t, ValidWorkflowTransition(WorkflowStatusCompleted, WorkflowStatusInProgress))
	assert.False(t, ValidWorkflowTransition(WorkflowStatusCancelled, WorkflowStatusCompleted))
	assert.False(t, ValidWorkflowTransition(WorkflowStatusFailed, WorkflowStatusInProgress))
}

func TestComputeProgress(t *testing.T) {
	tests := []struct {
		name     string
		statuses []TaskStatus
		want     Progress
	}{
		{"empty", nil, Progress{}},
		{
			"mixed",
			[]TaskStatus{
				TaskStatusSuccess, TaskStatusSuccess, TaskStatusSuccess, TaskStatusSkipped,
				TaskStatusFailed, TaskStatusPending, TaskStatusPending,
			},
			Progress{Percent: 57, Completed: 4, Total: 7},
		},
		{"rounds half up", []TaskStatus{TaskStatusSuccess, TaskStatusPending, TaskStatusPending, TaskStatusPending, TaskStatusPending, TaskStatusPending, TaskStatusPending, TaskStatusPending}, Progress{Percent: 13, Completed: 1, Total: 8}},
		{"done", []TaskStatus{TaskStatusSkipped, TaskStatusSuccess}, Progress{Percent: 100, Completed: 2, Total: 2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ComputeProgress(tasksWith(tt.statuses...)))
		})
	}
}

func TestEmployeeProfile_Lookup(t *testing.T) {
	profile := &EmployeeProfile{
		Department: "Engineering",
		Meta:       map[string]any{"department": "ignored", "level": 3, "remote": true, "team": nil},
	}

	v, ok := profile.Lookup("department")
	assert.True(t, ok)
	assert.Equal(t, "Engineering", v)

	v, ok = profile.Lookup("level")
	assert.True(t, ok)
	assert.Equal(t, 3, v)

	v, ok = profile.Lookup("location")
	assert.True(t, ok, "an empty direct field is present")
	assert.Equal(t, "", v)

	_, ok = profile.Lookup("start_date")
	assert.False(t, ok)

	_, ok = profile.Lookup("team")
	assert.False(t, ok)
}

func TestWorkflow_BlockedBy(t *testing.T) {
	step := func(id, handler string, status TaskStatus) *Task {
		return &Task{ID: id, Type: TaskTypeAutomated, Handler: handler, Status: status}
	}

	suspend := step("suspend", HandlerSuspendAccount, TaskStatusPending)
	transfer := step("transfer", HandlerTransferOwnership, TaskStatusFailed)
	remove := step("delete", HandlerDeleteAccount, TaskStatusPending)
	alias := step("alias", HandlerCreateAlias, TaskStatusPending)
	w := &Workflow{Tasks: []*Task{alias, suspend, remove, transfer}}

	assert.Nil(t, w.BlockedBy(suspend))
	assert.Nil(t, w.BlockedBy(transfer))
	assert.Equal(t, transfer, w.BlockedBy(remove))
	assert.NotNil(t, w.BlockedBy(alias))

	transfer.Status = TaskStatusSkipped
	assert.Nil(t, w.BlockedBy(remove))
	assert.Equal(t, remove, w.BlockedBy(alias))

	remove.Status = TaskStatusSuccess
	assert.Nil(t, w.BlockedBy(alias))

	manual := &Task{ID: "m", Type: TaskTypeManual, Handler: HandlerCreateAlias}
	assert.Zero(t, manual.AccountStep())
}

func TestLifecycleStatusAfter(t *testing.T) {
	assert.Equal(t, LifecycleStatusActive, LifecycleStatusAfter(WorkflowKindOnboarding))
	assert.Equal(t, LifecycleStatusOffboarded, LifecycleStatusAfter(WorkflowKindOffboarding))
}

func TestTask_StringsParam(t *testing.T) {
	task := &Task{Params: map[string]any{"scopes": []any{"drive", 3, "calendar"}, "to": "a@b.c"}}

	assert.Equal(t, []string{"drive", "calendar"}, task.StringsParam("scopes"))
	assert.Equal(t, "a@b.c", task.StringParam("to"))
	assert.Empty(t, task.StringParam("missing"))
}
