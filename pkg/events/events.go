// Package events defines the notifications emitted as lifecycle workflows and their tasks change state.
package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/hrdash/lifecycle/pkg/models"
)

type EventType string

// Event is implemented by every lifecycle notification.
type Event interface {
	GetType() EventType
}

// Topic all lifecycle events are published to.
const Topic = "lifecycle.events"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	// Workflow events.
	WorkflowStartedEvent   EventType = "workflow.started"
	WorkflowScheduledEvent EventType = "workflow.scheduled"
	WorkflowActivatedEvent EventType = "workflow.activated"
	WorkflowCompletedEvent EventType = "workflow.completed"
	WorkflowFailedEvent    EventType = "workflow.failed"
	WorkflowCancelledEvent EventType = "workflow.cancelled"

	// Task events.
	TaskSucceededEvent EventType = "task.succeeded"
	TaskFailedEvent    EventType = "task.failed"
	TaskCompletedEvent EventType = "task.completed"
	TaskSkippedEvent   EventType = "task.skipped"
)

// Types lists every event type in publication order of a typical workflow.
func Types() []EventType {
	return []EventType{
		WorkflowScheduledEvent,
		WorkflowActivatedEvent,
		WorkflowStartedEvent,
		TaskSucceededEvent,
		TaskFailedEvent,
		TaskCompletedEvent,
		TaskSkippedEvent,
		WorkflowCompletedEvent,
		WorkflowFailedEvent,
		WorkflowCancelledEvent,
	}
}

type BaseEvent struct {
	ID         string              `json:"id"`
	Type       EventType           `json:"type"`
	Timestamp  time.Time           `json:"timestamp"`
	WorkflowID string              `json:"workflow_id"`
	EmployeeID string              `json:"employee_id"`
	Kind       models.WorkflowKind `json:"kind"`
	Metadata   map[string]any      `json:"metadata,omitempty"`
}

// Header returns the fields shared by every event.
func (b BaseEvent) Header() BaseEvent {
	return b
}

// Key partitions events per employee so a consumer sees one employee's
// lifecycle in order.
func (b BaseEvent) Key() string {
	return b.EmployeeID
}

type WorkflowStarted struct {
	BaseEvent

	TaskCount   int      `json:"task_count"`
	MatchedApps []string `json:"matched_apps,omitempty"`
	IsImmediate bool     `json:"is_immediate"`
}

func (w WorkflowStarted) GetType() EventType {
	return WorkflowStartedEvent
}

type WorkflowScheduled struct {
	BaseEvent

	ScheduledFor time.Time `json:"scheduled_for"`
	TaskCount    int       `json:"task_count"`
}

func (w WorkflowScheduled) GetType() EventType {
	return WorkflowScheduledEvent
}

type WorkflowActivated struct {
	BaseEvent

	ScheduledFor *time.Time `json:"scheduled_for,omitempty"`
}

func (w WorkflowActivated) GetType() EventType {
	return WorkflowActivatedEvent
}

type WorkflowCompleted struct {
	BaseEvent

	Duration time.Duration `json:"duration"`
}

func (w WorkflowCompleted) GetType() EventType {
	return WorkflowCompletedEvent
}

type WorkflowFailed struct {
	BaseEvent

	FailedTasks []string `json:"failed_tasks"`
}

func (w WorkflowFailed) GetType() EventType {
	return WorkflowFailedEvent
}

type WorkflowCancelled struct {
	BaseEvent

	PreviousStatus models.WorkflowStatus `json:"previous_status"`
}

func (w WorkflowCancelled) GetType() EventType {
	return WorkflowCancelledEvent
}

type TaskSucceeded struct {
	BaseEvent

	TaskID  string `json:"task_id"`
	Handler string `json:"handler"`
	Message string `json:"message,omitempty"`
	Attempt int    `json:"attempt"`
}

func (t TaskSucceeded) GetType() EventType {
	return TaskSucceededEvent
}

type TaskFailed struct {
	BaseEvent

	TaskID  string `json:"task_id"`
	Handler string `json:"handler"`
	Error   string `json:"error"`
	Attempt int    `json:"attempt"`
}

func (t TaskFailed) GetType() EventType {
	return TaskFailedEvent
}

type TaskCompleted struct {
	BaseEvent

	TaskID string `json:"task_id"`
	Notes  string `json:"notes,omitempty"`
}

func (t TaskCompleted) GetType() EventType {
	return TaskCompletedEvent
}

type TaskSkipped struct {
	BaseEvent

	TaskID string `json:"task_id"`
	Reason string `json:"reason,omitempty"`
}

func (t TaskSkipped) GetType() EventType {
	return TaskSkippedEvent
}

func NewBaseEvent(eventType EventType, workflow *models.Workflow) BaseEvent {
	return BaseEvent{
		ID:         uuid.New().String(),
		Type:       eventType,
		Timestamp:  time.Now().UTC(),
		WorkflowID: workflow.ID,
		EmployeeID: workflow.EmployeeID,
		Kind:       workflow.Kind,
		Metadata:   make(map[string]any),
	}
}

// New returns an empty event value for eventType, ready to be unmarshalled
// into. It returns nil for unknown types.
func New(eventType EventType) Event {
	switch eventType {
	case WorkflowStartedEvent:
		return &WorkflowStarted{}
	case WorkflowScheduledEvent:
		return &WorkflowScheduled{}
	case WorkflowActivatedEvent:
		return &WorkflowActivated{}
	case WorkflowCompletedEvent:
		return &WorkflowCompleted{}
	case WorkflowFailedEvent:
		return &WorkflowFailed{}
	case WorkflowCancelledEvent:
		return &WorkflowCancelled{}
	case TaskSucceededEvent:
		return &TaskSucceeded{}
	case TaskFailedEvent:
		return &TaskFailed{}
	case TaskCompletedEvent:
		return &TaskCompleted{}
	case TaskSkippedEvent:
		return &TaskSkipped{}
	default:
		return nil
	}
}
