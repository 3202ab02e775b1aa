package events

import (
	"github.com/hrdash/lifecycle/pkg/models"
)

func NewWorkflowStarted(workflow *models.Workflow) WorkflowStarted {
	return WorkflowStarted{
		BaseEvent:   NewBaseEvent(WorkflowStartedEvent, workflow),
		TaskCount:   len(workflow.Tasks),
		MatchedApps: workflow.MatchedApps,
		IsImmediate: workflow.IsImmediate,
	}
}

func NewWorkflowScheduled(workflow *models.Workflow) WorkflowScheduled {
	event := WorkflowScheduled{
		BaseEvent: NewBaseEvent(WorkflowScheduledEvent, workflow),
		TaskCount: len(workflow.Tasks),
	}

	if workflow.ScheduledFor != nil {
		event.ScheduledFor = *workflow.ScheduledFor
	}

	return event
}

func NewWorkflowActivated(workflow *models.Workflow) WorkflowActivated {
	return WorkflowActivated{
		BaseEvent:    NewBaseEvent(WorkflowActivatedEvent, workflow),
		ScheduledFor: workflow.ScheduledFor,
	}
}

func NewWorkflowCancelled(workflow *models.Workflow, previous models.WorkflowStatus) WorkflowCancelled {
	return WorkflowCancelled{
		BaseEvent:      NewBaseEvent(WorkflowCancelledEvent, workflow),
		PreviousStatus: previous,
	}
}

// StatusChanged returns the workflow.completed or workflow.failed event for
// a workflow whose status moved away from previous, or nil when the move
// does not warrant one.
func StatusChanged(workflow *models.Workflow, previous models.WorkflowStatus) Event {
	if workflow.Status == previous {
		return nil
	}

	switch workflow.Status {
	case models.WorkflowStatusCompleted:
		event := WorkflowCompleted{BaseEvent: NewBaseEvent(WorkflowCompletedEvent, workflow)}
		if workflow.StartedAt != nil && workflow.CompletedAt != nil {
			event.Duration = workflow.CompletedAt.Sub(*workflow.StartedAt)
		}

		return event
	case models.WorkflowStatusFailed:
		event := WorkflowFailed{BaseEvent: NewBaseEvent(WorkflowFailedEvent, workflow)}

		for _, task := range workflow.Tasks {
			if task.Status == models.TaskStatusFailed {
				event.FailedTasks = append(event.FailedTasks, task.ID)
			}
		}

		return event
	default:
		return nil
	}
}

// TaskOutcome returns the event describing the automation result stored on task.
func TaskOutcome(workflow *models.Workflow, task *models.Task) Event {
	base := func(t EventType) BaseEvent {
		event := NewBaseEvent(t, workflow)
		if task.LastAttemptAt != nil {
			event.Timestamp = task.LastAttemptAt.UTC()
		}

		return event
	}

	if task.Status == models.TaskStatusSuccess {
		return TaskSucceeded{
			BaseEvent: base(TaskSucceededEvent),
			TaskID:    task.ID,
			Handler:   task.Handler,
			Message:   task.StatusMessage,
			Attempt:   task.Attempts,
		}
	}

	return TaskFailed{
		BaseEvent: base(TaskFailedEvent),
		TaskID:    task.ID,
		Handler:   task.Handler,
		Error:     task.StatusMessage,
		Attempt:   task.Attempts,
	}
}

func NewTaskCompleted(workflow *models.Workflow, task *models.Task, notes string) TaskCompleted {
	return TaskCompleted{
		BaseEvent: NewBaseEvent(TaskCompletedEvent, workflow),
		TaskID:    task.ID,
		Notes:     notes,
	}
}

func NewTaskSkipped(workflow *models.Workflow, task *models.Task, reason string) TaskSkipped {
	return TaskSkipped{
		BaseEvent: NewBaseEvent(TaskSkippedEvent, workflow),
		TaskID:    task.ID,
		Reason:    reason,
	}
}
