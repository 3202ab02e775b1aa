// Package testutil provides test data builders shared across package tests.
package testutil

import (
	"time"

	"github.com/google/uuid"

	"github.com/hrdash/lifecycle/pkg/models"
)

// CreateTestProfile creates an employee profile with default values that can be overridden.
func CreateTestProfile(overrides ...func(*models.EmployeeProfile)) *models.EmployeeProfile {
	profile := &models.EmployeeProfile{
		ID:             "emp-" + uuid.New().String()[:8],
		Email:          "ada.lovelace@example.com",
		FirstName:      "Ada",
		LastName:       "Lovelace",
		Department:     "Engineering",
		JobTitle:       "Software Engineer",
		Location:       "London",
		EmploymentType: "FULL_TIME",
		Meta:           map[string]any{},
	}

	for _, override := range overrides {
		override(profile)
	}

	return profile
}

// CreateTestTask creates a pending manual task.
func CreateTestTask(overrides ...func(*models.Task)) *models.Task {
	now := time.Now().UTC()
	task := &models.Task{
		ID:        uuid.New().String(),
		Name:      "Test Task",
		Type:      models.TaskTypeManual,
		Status:    models.TaskStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}

	for _, override := range overrides {
		override(task)
	}

	return task
}

// WithAutomation turns the task into an automated task bound to handler.
func WithAutomation(handler string, params map[string]any) func(*models.Task) {
	return func(t *models.Task) {
		t.Type = models.TaskTypeAutomated
		t.Handler = handler
		t.Params = params
	}
}

// WithTaskStatus sets the task status.
func WithTaskStatus(status models.TaskStatus) func(*models.Task) {
	return func(t *models.Task) {
		t.Status = status
	}
}

// CreateTestWorkflow creates an in-progress onboarding workflow. Tasks get
// their workflow id and positions assigned.
func CreateTestWorkflow(overrides ...func(*models.Workflow)) *models.Workflow {
	now := time.Now().UTC()
	wf := &models.Workflow{
		ID:          uuid.New().String(),
		EmployeeID:  "emp-" + uuid.New().String()[:8],
		Kind:        models.WorkflowKindOnboarding,
		Status:      models.WorkflowStatusInProgress,
		IsImmediate: true,
		StartedAt:   &now,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	for _, override := range overrides {
		override(wf)
	}

	for i, task := range wf.Tasks {
		task.WorkflowID = wf.ID
		task.Position = i
	}

	return wf
}

// WithTasks sets the workflow's tasks.
func WithTasks(tasks ...*models.Task) func(*models.Workflow) {
	return func(w *models.Workflow) {
		w.Tasks = tasks
	}
}

// WithEmployee sets the employee the workflow belongs to.
func WithEmployee(employeeID string) func(*models.Workflow) {
	return func(w *models.Workflow) {
		w.EmployeeID = employeeID
	}
}

// WithKind sets the workflow kind.
func WithKind(kind models.WorkflowKind) func(*models.Workflow) {
	return func(w *models.Workflow) {
		w.Kind = kind
	}
}

// WithStatus sets the workflow status.
func WithStatus(status models.WorkflowStatus) func(*models.Workflow) {
	return func(w *models.Workflow) {
		w.Status = status
	}
}
