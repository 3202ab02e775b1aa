package file

import (
	"context"
	"fmt"
	"path/filepath"
	"slices"
	"sort"
	"time"

	"github.com/hrdash/lifecycle/pkg/models"
	"github.com/hrdash/lifecycle/pkg/persistence"
)

// WorkflowRepository handles workflow-related file operations. Tasks are
// embedded in the workflow document, so every update rewrites one file.
type WorkflowRepository struct {
	store *store
}

// NewWorkflowRepository creates a new workflow repository.
func NewWorkflowRepository(root string) *WorkflowRepository {
	return &WorkflowRepository{store: &store{dir: filepath.Join(root, "workflows")}}
}

func (wr *WorkflowRepository) Create(_ context.Context, workflow *models.Workflow) error {
	wr.store.mu.Lock()
	defer wr.store.mu.Unlock()

	var existing models.Workflow

	found, err := wr.store.read(workflow.ID, &existing)
	if err != nil {
		return persistence.NewWorkflowError("Create", workflow.ID, err)
	}

	if found {
		return persistence.NewWorkflowError("Create", workflow.ID, persistence.ErrWorkflowAlreadyExists)
	}

	others, err := readAll[models.Workflow](wr.store)
	if err != nil {
		return persistence.NewWorkflowError("Create", workflow.ID, err)
	}

	for _, other := range others {
		if other.EmployeeID == workflow.EmployeeID && other.Kind == workflow.Kind &&
			slices.Contains(persistence.ActiveStatuses, other.Status) {
			return persistence.NewWorkflowError("Create", workflow.ID, persistence.ErrActiveWorkflowExists)
		}
	}

	if err := wr.store.write(workflow.ID, workflow); err != nil {
		return persistence.NewWorkflowError("Create", workflow.ID, err)
	}

	return nil
}

// GetByID retrieves a workflow by its ID from the file system.
func (wr *WorkflowRepository) GetByID(_ context.Context, id string) (*models.Workflow, error) {
	var workflow models.Workflow

	found, err := wr.store.read(id, &workflow)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch workflow %s: %w", id, err)
	}

	if !found {
		return nil, nil
	}

	return &workflow, nil
}

func (wr *WorkflowRepository) GetByTaskID(_ context.Context, taskID string) (*models.Workflow, error) {
	workflows, err := readAll[models.Workflow](wr.store)
	if err != nil {
		return nil, err
	}

	for _, workflow := range workflows {
		if workflow.Task(taskID) != nil {
			return workflow, nil
		}
	}

	return nil, nil
}

func (wr *WorkflowRepository) FindActive(_ context.Context, employeeID string, kind models.WorkflowKind) (*models.Workflow, error) {
	workflows, err := readAll[models.Workflow](wr.store)
	if err != nil {
		return nil, err
	}

	for _, workflow := range workflows {
		if workflow.EmployeeID == employeeID && workflow.Kind == kind &&
			slices.Contains(persistence.ActiveStatuses, workflow.Status) {
			return workflow, nil
		}
	}

	return nil, nil
}

func (wr *WorkflowRepository) DueScheduled(_ context.Context, now time.Time) ([]*models.Workflow, error) {
	workflows, err := readAll[models.Workflow](wr.store)
	if err != nil {
		return nil, err
	}

	due := make([]*models.Workflow, 0)

	for _, workflow := range workflows {
		if workflow.Status == models.WorkflowStatusPending &&
			workflow.ScheduledFor != nil && !workflow.ScheduledFor.After(now) {
			due = append(due, workflow)
		}
	}

	sort.Slice(due, func(i, j int) bool { return due[i].ScheduledFor.Before(*due[j].ScheduledFor) })

	return due, nil
}

// ListWorkflows returns paginated and filtered workflows with in-memory operations.
func (wr *WorkflowRepository) ListWorkflows(_ context.Context, opts persistence.ListWorkflowsOptions) (*persistence.WorkflowListResult, error) {
	if opts.Limit <= 0 {
		opts.Limit = 20
	}

	if opts.SortBy != "" && !persistence.SortFields[opts.SortBy] {
		return nil, fmt.Errorf("%w: %s", persistence.ErrInvalidSortField, opts.SortBy)
	}

	all, err := readAll[models.Workflow](wr.store)
	if err != nil {
		return nil, fmt.Errorf("failed to list workflows: %w", err)
	}

	filtered := make([]*models.Workflow, 0, len(all))

	for _, workflow := range all {
		if opts.EmployeeID != "" && workflow.EmployeeID != opts.EmployeeID {
			continue
		}

		if opts.Kind != nil && workflow.Kind != *opts.Kind {
			continue
		}

		if opts.Status != nil && workflow.Status != *opts.Status {
			continue
		}

		filtered = append(filtered, workflow)
	}

	sortWorkflows(filtered, opts.SortBy, opts.SortOrder)

	totalCount := int64(len(filtered))
	if opts.Offset >= len(filtered) {
		return &persistence.WorkflowListResult{
			Workflows:  make([]*models.Workflow, 0),
			TotalCount: totalCount,
		}, nil
	}

	end := min(opts.Offset+opts.Limit, len(filtered))

	return &persistence.WorkflowListResult{
		Workflows:   filtered[opts.Offset:end],
		TotalCount:  totalCount,
		HasNextPage: end < len(filtered),
	}, nil
}

// sortWorkflows sorts workflows in-place based on the specified field and order.
func sortWorkflows(workflows []*models.Workflow, sortBy, sortOrder string) {
	less := func(a, b *models.Workflow) bool {
		switch sortBy {
		case "updated_at":
			return a.UpdatedAt.Before(b.UpdatedAt)
		case "status":
			return a.Status < b.Status
		default:
			return a.CreatedAt.Before(b.CreatedAt)
		}
	}

	sort.SliceStable(workflows, func(i, j int) bool {
		if sortOrder == "asc" {
			return less(workflows[i], workflows[j])
		}

		return less(workflows[j], workflows[i])
	})
}

func (wr *WorkflowRepository) Update(_ context.Context, id string, fn persistence.UpdateFunc) (*models.Workflow, error) {
	wr.store.mu.Lock()
	defer wr.store.mu.Unlock()

	var workflow models.Workflow

	found, err := wr.store.read(id, &workflow)
	if err != nil {
		return nil, persistence.NewWorkflowError("Update", id, err)
	}

	if !found {
		return nil, persistence.NewWorkflowError("Update", id, persistence.ErrWorkflowNotFound)
	}

	if err := fn(&workflow); err != nil {
		return nil, err
	}

	if err := wr.store.write(id, &workflow); err != nil {
		return nil, persistence.NewWorkflowError("Update", id, err)
	}

	return &workflow, nil
}
