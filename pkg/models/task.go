package models

import "time"

// TaskType tells whether the engine or a person performs the task.
type TaskType string

const (
	TaskTypeAutomated TaskType = "AUTOMATED"
	TaskTypeManual    TaskType = "MANUAL"
)

func (t TaskType) IsValid() bool {
	return t == TaskTypeAutomated || t == TaskTypeManual
}

// TaskStatus represents the state of a single task.
type TaskStatus string

const (
	TaskStatusPending TaskStatus = "PENDING"
	TaskStatusSuccess TaskStatus = "SUCCESS"
	TaskStatusFailed  TaskStatus = "FAILED"
	TaskStatusSkipped TaskStatus = "SKIPPED"
)

func (s TaskStatus) IsValid() bool {
	switch s {
	case TaskStatusPending, TaskStatusSuccess, TaskStatusFailed, TaskStatusSkipped:
		return true
	}

	return false
}

// IsFinal reports whether the status can no longer change.
func (s TaskStatus) IsFinal() bool {
	return s == TaskStatusSuccess || s == TaskStatusSkipped
}

// IsActionable reports whether the task may be run, completed or skipped.
func (s TaskStatus) IsActionable() bool {
	return s == TaskStatusPending || s == TaskStatusFailed
}

// Task is one unit of work inside a workflow.
type Task struct {
	ID         string     `json:"id"`
	WorkflowID string     `json:"workflow_id"`
	Name       string     `json:"name"`
	Type       TaskType   `json:"type"`
	Status     TaskStatus `json:"status"`
	Position   int        `json:"position"`

	// Handler names the automation the executor dispatches to. Empty for manual tasks.
	Handler string         `json:"handler,omitempty"`
	Params  map[string]any `json:"params,omitempty"`

	StatusMessage string     `json:"status_message,omitempty"`
	Attempts      int        `json:"attempts"`
	LastAttemptAt *time.Time `json:"last_attempt_at,omitempty"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// StringParam returns a string parameter bound at creation time.
func (t *Task) StringParam(key string) string {
	if v, ok := t.Params[key].(string); ok {
		return v
	}

	return ""
}

// StringsParam returns a list parameter. Lists decoded from JSON arrive as []any.
func (t *Task) StringsParam(key string) []string {
	switch v := t.Params[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}

		return out
	}

	return nil
}

// AccountStep returns the task's rank among the ordered account steps, or 0
// when the task may run alongside any other.
func (t *Task) AccountStep() int {
	if t.Type != TaskTypeAutomated {
		return 0
	}

	return accountSteps[t.Handler]
}

// Succeed records a successful outcome.
func (t *Task) Succeed(now time.Time, message string) {
	t.Status = TaskStatusSuccess
	t.StatusMessage = message
	t.CompletedAt = &now
	t.UpdatedAt = now
}

// Fail records a failed attempt. The task stays actionable.
func (t *Task) Fail(now time.Time, message string) {
	t.Status = TaskStatusFailed
	t.StatusMessage = message
	t.UpdatedAt = now
}

// Skip records an operator decision to bypass the task.
func (t *Task) Skip(now time.Time, reason string) {
	t.Status = TaskStatusSkipped
	t.StatusMessage = reason
	t.CompletedAt = &now
	t.UpdatedAt = now
}
