// Package persistence provides the storage abstraction for workflows and provisioning rules.
package persistence

import (
	"context"
	"time"

	"github.com/hrdash/lifecycle/pkg/models"
)

type Persistence interface {
	WorkflowRepository() WorkflowRepository
	ProvisioningRepository() ProvisioningRepository

	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}

// UpdateFunc mutates a workflow inside Update. Returning an error aborts the
// update and nothing is written.
type UpdateFunc func(workflow *models.Workflow) error

// WorkflowRepository stores workflows together with their tasks.
type WorkflowRepository interface {
	// Create stores a new workflow and its task snapshot.
	Create(ctx context.Context, workflow *models.Workflow) error

	// GetByID returns nil when the workflow does not exist.
	GetByID(ctx context.Context, id string) (*models.Workflow, error)

	// GetByTaskID returns the workflow owning the task, or nil.
	GetByTaskID(ctx context.Context, taskID string) (*models.Workflow, error)

	// FindActive returns the employee's non-terminal workflow of the given kind, or nil.
	FindActive(ctx context.Context, employeeID string, kind models.WorkflowKind) (*models.Workflow, error)

	// DueScheduled returns PENDING workflows scheduled at or before now.
	DueScheduled(ctx context.Context, now time.Time) ([]*models.Workflow, error)

	ListWorkflows(ctx context.Context, opts ListWorkflowsOptions) (*WorkflowListResult, error)

	// Update loads the workflow, applies fn and stores the result as one
	// atomic unit. Concurrent updates of the same workflow are serialised.
	Update(ctx context.Context, id string, fn UpdateFunc) (*models.Workflow, error)
}

// ListWorkflowsOptions filters and pages ListWorkflows.
type ListWorkflowsOptions struct {
	EmployeeID string
	Kind       *models.WorkflowKind
	Status     *models.WorkflowStatus
	Limit      int
	Offset     int
	SortBy     string
	SortOrder  string
}

// SortFields are the workflow columns lists can be ordered by.
var SortFields = map[string]bool{
	"created_at": true,
	"updated_at": true,
	"status":     true,
}

// WorkflowListResult is one page of workflows.
type WorkflowListResult struct {
	Workflows   []*models.Workflow
	TotalCount  int64
	HasNextPage bool
}

// ActiveStatuses are the statuses that block a second workflow of the same kind.
var ActiveStatuses = []models.WorkflowStatus{
	models.WorkflowStatusPending,
	models.WorkflowStatusInProgress,
	models.WorkflowStatusFailed,
}

// ProvisioningRepository stores applications and their provisioning rules.
type ProvisioningRepository interface {
	Apps(ctx context.Context) ([]*models.App, error)
	// AppByID returns nil when the app does not exist.
	AppByID(ctx context.Context, id string) (*models.App, error)
	SaveApp(ctx context.Context, app *models.App) error

	Rules(ctx context.Context) ([]*models.ProvisioningRule, error)
	SaveRule(ctx context.Context, rule *models.ProvisioningRule) error
	DeleteRule(ctx context.Context, id string) error
}
