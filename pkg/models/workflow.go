// Package models defines the domain models of the employee lifecycle engine.
package models

import "time"

// WorkflowKind distinguishes the two lifecycle directions.
type WorkflowKind string

const (
	WorkflowKindOnboarding  WorkflowKind = "ONBOARDING"
	WorkflowKindOffboarding WorkflowKind = "OFFBOARDING"
)

func (k WorkflowKind) IsValid() bool {
	return k == WorkflowKindOnboarding || k == WorkflowKindOffboarding
}

// WorkflowStatus represents the lifecycle state of a workflow.
type WorkflowStatus string

const (
	WorkflowStatusPending    WorkflowStatus = "PENDING"     // Scheduled, not yet started
	WorkflowStatusInProgress WorkflowStatus = "IN_PROGRESS" // Started, tasks outstanding
	WorkflowStatusCompleted  WorkflowStatus = "COMPLETED"   // Every task succeeded or was skipped
	WorkflowStatusFailed     WorkflowStatus = "FAILED"      // A task failed and nothing is pending
	WorkflowStatusCancelled  WorkflowStatus = "CANCELLED"   // Stopped by an operator
)

func (s WorkflowStatus) IsValid() bool {
	switch s {
	case WorkflowStatusPending, WorkflowStatusInProgress, WorkflowStatusCompleted,
		WorkflowStatusFailed, WorkflowStatusCancelled:
		return true
	}

	return false
}

// IsTerminal reports whether no further transition can leave the status.
// FAILED is not terminal: failed tasks can still be retried or skipped.
func (s WorkflowStatus) IsTerminal() bool {
	return s == WorkflowStatusCompleted || s == WorkflowStatusCancelled
}

// IsStarted reports whether task operations are allowed in this status.
func (s WorkflowStatus) IsStarted() bool {
	return s == WorkflowStatusInProgress || s == WorkflowStatusFailed
}

var workflowTransitions = map[WorkflowStatus][]WorkflowStatus{
	WorkflowStatusPending:    {WorkflowStatusInProgress, WorkflowStatusCompleted, WorkflowStatusCancelled},
	WorkflowStatusInProgress: {WorkflowStatusCompleted, WorkflowStatusFailed, WorkflowStatusCancelled},
	WorkflowStatusFailed:     {WorkflowStatusCompleted, WorkflowStatusCancelled},
}

// ValidWorkflowTransition reports whether a workflow may move from one status to another.
// Staying in the same status is always allowed.
func ValidWorkflowTransition(from, to WorkflowStatus) bool {
	if from == to {
		return true
	}

	for _, next := range workflowTransitions[from] {
		if next == to {
			return true
		}
	}

	return false
}

// Workflow is a single onboarding or offboarding run for one employee.
type Workflow struct {
	ID          string           `json:"id"`
	EmployeeID  string           `json:"employee_id"            validate:"required"`
	Kind        WorkflowKind     `json:"kind"                   validate:"required,oneof=ONBOARDING OFFBOARDING"`
	Status      WorkflowStatus   `json:"status"`
	IsImmediate bool             `json:"is_immediate"`
	Reason      string           `json:"reason,omitempty"`
	Notes       string           `json:"notes,omitempty"`
	Workspace   *WorkspaceConfig `json:"workspace,omitempty"`

	// MatchedApps records the applications selected by provisioning rules at start time.
	MatchedApps []string `json:"matched_apps,omitempty"`
	Tasks       []*Task  `json:"tasks"`

	ScheduledFor *time.Time `json:"scheduled_for,omitempty"`
	StartedAt    *time.Time `json:"started_at,omitempty"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
	CancelledAt  *time.Time `json:"cancelled_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// Task returns the task with the given id, or nil.
func (w *Workflow) Task(taskID string) *Task {
	for _, task := range w.Tasks {
		if task.ID == taskID {
			return task
		}
	}

	return nil
}

// AutomatedTasks returns the automated tasks still waiting to be run.
func (w *Workflow) AutomatedTasks() []*Task {
	var tasks []*Task

	for _, task := range w.Tasks {
		if task.Type == TaskTypeAutomated && task.Status == TaskStatusPending {
			tasks = append(tasks, task)
		}
	}

	return tasks
}

// BlockedBy returns the earlier account step that has neither succeeded nor
// been skipped, or nil when task may run now.
func (w *Workflow) BlockedBy(task *Task) *Task {
	step := task.AccountStep()
	if step == 0 {
		return nil
	}

	for _, other := range w.Tasks {
		if other.ID == task.ID {
			continue
		}

		if s := other.AccountStep(); s > 0 && s < step && !other.Status.IsFinal() {
			return other
		}
	}

	return nil
}

// Start moves a pending workflow into IN_PROGRESS, or straight to COMPLETED
// when it carries no tasks at all.
func (w *Workflow) Start(now time.Time) {
	w.StartedAt = &now
	w.Status = WorkflowStatusInProgress
	w.UpdatedAt = now

	if len(w.Tasks) == 0 {
		w.Recompute(now)
	}
}

// Recompute derives the workflow status from its tasks after a task transition.
// A cancelled workflow keeps its status; late task outcomes never revive it.
func (w *Workflow) Recompute(now time.Time) {
	w.UpdatedAt = now

	if w.Status == WorkflowStatusCancelled || w.Status == WorkflowStatusCompleted {
		return
	}

	next := DeriveWorkflowStatus(w.Tasks)
	if !ValidWorkflowTransition(w.Status, next) {
		return
	}

	w.Status = next
	if next == WorkflowStatusCompleted && w.CompletedAt == nil {
		w.CompletedAt = &now
	}
}

// DeriveWorkflowStatus maps a task set onto the workflow status it implies:
// FAILED when a task failed and nothing is pending, COMPLETED when every task
// succeeded or was skipped, IN_PROGRESS otherwise.
func DeriveWorkflowStatus(tasks []*Task) WorkflowStatus {
	var pending, failed bool

	for _, task := range tasks {
		switch task.Status {
		case TaskStatusPending:
			pending = true
		case TaskStatusFailed:
			failed = true
		case TaskStatusSuccess, TaskStatusSkipped:
		}
	}

	switch {
	case failed && !pending:
		return WorkflowStatusFailed
	case !failed && !pending:
		return WorkflowStatusCompleted
	default:
		return WorkflowStatusInProgress
	}
}
