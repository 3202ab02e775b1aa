// Package web provides HTTP request and response types for the lifecycle API.
package web

import (
	"time"

	"github.com/hrdash/lifecycle/pkg/models"
	"github.com/hrdash/lifecycle/pkg/services"
)

// StartWorkflowRequest represents the request body for starting an onboarding or offboarding.
type StartWorkflowRequest struct {
	EmployeeID   string                  `json:"employee_id"             validate:"required,max=255"`
	Kind         models.WorkflowKind     `json:"kind"                    validate:"required,oneof=ONBOARDING OFFBOARDING"`
	IsImmediate  bool                    `json:"is_immediate"`
	ScheduledFor *time.Time              `json:"scheduled_for,omitempty"`
	Reason       string                  `json:"reason,omitempty"        validate:"max=1000"`
	Notes        string                  `json:"notes,omitempty"         validate:"max=4000"`
	Workspace    *models.WorkspaceConfig `json:"workspace,omitempty"`
}

func (r StartWorkflowRequest) toService() services.StartRequest {
	return services.StartRequest{
		EmployeeID:   r.EmployeeID,
		Kind:         r.Kind,
		IsImmediate:  r.IsImmediate,
		ScheduledFor: r.ScheduledFor,
		Reason:       r.Reason,
		Notes:        r.Notes,
		Workspace:    r.Workspace,
	}
}

// CancelWorkflowRequest must carry confirm=true.
type CancelWorkflowRequest struct {
	Confirm bool `json:"confirm"`
}

type CompleteTaskRequest struct {
	Notes string `json:"notes" validate:"max=4000"`
}

type SkipTaskRequest struct {
	Reason string `json:"reason" validate:"required,max=1000"`
}

type SaveAppRequest struct {
	ID          string `json:"id"          validate:"required,max=100"`
	Name        string `json:"name"        validate:"required,max=255"`
	Description string `json:"description" validate:"max=2000"`
}

type SaveRuleRequest struct {
	ID        string         `json:"id,omitempty"        validate:"omitempty,uuid"`
	AppID     string         `json:"app_id"              validate:"required"`
	Condition map[string]any `json:"condition"`
	IsActive  *bool          `json:"is_active,omitempty"`
}

// TaskResponse is returned by the task operations together with the
// progress of the task's workflow.
type TaskResponse struct {
	Task     *models.Task    `json:"task"`
	Workflow WorkflowSummary `json:"workflow"`
}

type WorkflowSummary struct {
	ID       string                `json:"id"`
	Status   models.WorkflowStatus `json:"status"`
	Progress models.Progress       `json:"progress"`
}
