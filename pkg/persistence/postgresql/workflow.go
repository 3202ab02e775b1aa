package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/hrdash/lifecycle/pkg/models"
	"github.com/hrdash/lifecycle/pkg/persistence"
)

const workflowColumns = `
	id
  , employee_id
  , kind
  , status
  , is_immediate
  , reason
  , notes
  , workspace
  , matched_apps
  , scheduled_for
  , started_at
  , completed_at
  , cancelled_at
  , created_at
  , updated_at
`

const taskColumns = `
	id
  , workflow_id
  , position
  , name
  , type
  , status
  , handler
  , params
  , status_message
  , attempts
  , last_attempt_at
  , completed_at
  , created_at
  , updated_at
`

// WorkflowRepository handles workflow-related database operations.
type WorkflowRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewWorkflowRepository creates a new workflow repository.
func NewWorkflowRepository(db *sql.DB, logger *slog.Logger) *WorkflowRepository {
	return &WorkflowRepository{db: db, logger: logger}
}

// Create inserts the workflow and its tasks in one transaction.
func (r *WorkflowRepository) Create(ctx context.Context, workflow *models.Workflow) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	workspaceJSON, matchedJSON, err := marshalWorkflowJSON(workflow)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO workflows (`+workflowColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`,
		workflow.ID,
		workflow.EmployeeID,
		workflow.Kind,
		workflow.Status,
		workflow.IsImmediate,
		workflow.Reason,
		workflow.Notes,
		workspaceJSON,
		matchedJSON,
		nullTime(workflow.ScheduledFor),
		nullTime(workflow.StartedAt),
		nullTime(workflow.CompletedAt),
		nullTime(workflow.CancelledAt),
		workflow.CreatedAt,
		workflow.UpdatedAt,
	)
	if err != nil {
		err = mapInsertError(workflow.ID, err)

		return err
	}

	if err = r.saveTasks(ctx, tx, workflow); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// isUUID reports whether id fits the UUID key columns. Anything else cannot
// name a stored row and is treated as unknown.
func isUUID(id string) bool {
	_, err := uuid.Parse(id)

	return err == nil
}

func mapInsertError(workflowID string, err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		if pqErr.Constraint == "idx_workflows_one_active" {
			return persistence.NewWorkflowError("Create", workflowID, persistence.ErrActiveWorkflowExists)
		}

		return persistence.NewWorkflowError("Create", workflowID, persistence.ErrWorkflowAlreadyExists)
	}

	return fmt.Errorf("failed to insert workflow: %w", err)
}

func (r *WorkflowRepository) GetByID(ctx context.Context, id string) (*models.Workflow, error) {
	return r.getByID(ctx, r.db, id, false)
}

func (r *WorkflowRepository) getByID(ctx context.Context, q querier, id string, forUpdate bool) (*models.Workflow, error) {
	if !isUUID(id) {
		return nil, nil
	}

	query := `SELECT ` + workflowColumns + ` FROM workflows WHERE id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	workflow, err := scanWorkflow(q.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}

		return nil, fmt.Errorf("failed to scan workflow: %w", err)
	}

	if err := r.loadTasks(ctx, q, []*models.Workflow{workflow}); err != nil {
		return nil, err
	}

	return workflow, nil
}

func (r *WorkflowRepository) GetByTaskID(ctx context.Context, taskID string) (*models.Workflow, error) {
	if !isUUID(taskID) {
		return nil, nil
	}

	var workflowID string

	err := r.db.QueryRowContext(ctx, `SELECT workflow_id FROM workflow_tasks WHERE id = $1`, taskID).Scan(&workflowID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}

		return nil, fmt.Errorf("failed to look up task %s: %w", taskID, err)
	}

	return r.GetByID(ctx, workflowID)
}

func (r *WorkflowRepository) FindActive(ctx context.Context, employeeID string, kind models.WorkflowKind) (*models.Workflow, error) {
	statuses := make([]string, 0, len(persistence.ActiveStatuses))
	for _, status := range persistence.ActiveStatuses {
		statuses = append(statuses, string(status))
	}

	workflows, err := r.query(ctx, `
		SELECT `+workflowColumns+` FROM workflows
		WHERE employee_id = $1 AND kind = $2 AND status = ANY($3)
		ORDER BY created_at DESC
		LIMIT 1
	`, employeeID, kind, pq.Array(statuses))
	if err != nil {
		return nil, err
	}

	if len(workflows) == 0 {
		return nil, nil
	}

	return workflows[0], nil
}

func (r *WorkflowRepository) DueScheduled(ctx context.Context, now time.Time) ([]*models.Workflow, error) {
	return r.query(ctx, `
		SELECT `+workflowColumns+` FROM workflows
		WHERE status = 'PENDING' AND scheduled_for IS NOT NULL AND scheduled_for <= $1
		ORDER BY scheduled_for
	`, now)
}

// ListWorkflows returns one filtered page of workflows.
func (r *WorkflowRepository) ListWorkflows(ctx context.Context, opts persistence.ListWorkflowsOptions) (*persistence.WorkflowListResult, error) {
	if opts.Limit <= 0 {
		opts.Limit = 20
	}

	if opts.SortBy == "" {
		opts.SortBy = "created_at"
	}

	if !persistence.SortFields[opts.SortBy] {
		return nil, fmt.Errorf("%w: %s", persistence.ErrInvalidSortField, opts.SortBy)
	}

	order := "DESC"
	if opts.SortOrder == "asc" {
		order = "ASC"
	}

	var (
		conditions []string
		args       []any
	)

	if opts.EmployeeID != "" {
		args = append(args, opts.EmployeeID)
		conditions = append(conditions, fmt.Sprintf("employee_id = $%d", len(args)))
	}

	if opts.Kind != nil {
		args = append(args, *opts.Kind)
		conditions = append(conditions, fmt.Sprintf("kind = $%d", len(args)))
	}

	if opts.Status != nil {
		args = append(args, *opts.Status)
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	var total int64

	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM workflows "+where, args...).Scan(&total)
	if err != nil {
		return nil, fmt.Errorf("failed to count workflows: %w", err)
	}

	pageArgs := append(args, opts.Limit, opts.Offset)
	query := fmt.Sprintf(`SELECT %s FROM workflows %s ORDER BY %s %s, id LIMIT $%d OFFSET $%d`,
		workflowColumns, where, opts.SortBy, order, len(args)+1, len(args)+2)

	workflows, err := r.query(ctx, query, pageArgs...)
	if err != nil {
		return nil, err
	}

	return &persistence.WorkflowListResult{
		Workflows:   workflows,
		TotalCount:  total,
		HasNextPage: int64(opts.Offset+len(workflows)) < total,
	}, nil
}

// Update locks the workflow row for the duration of fn so concurrent
// operations on the same workflow are serialised.
func (r *WorkflowRepository) Update(ctx context.Context, id string, fn persistence.UpdateFunc) (_ *models.Workflow, err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	workflow, err := r.getByID(ctx, tx, id, true)
	if err != nil {
		return nil, persistence.NewWorkflowError("Update", id, err)
	}

	if workflow == nil {
		err = persistence.NewWorkflowError("Update", id, persistence.ErrWorkflowNotFound)

		return nil, err
	}

	if err = fn(workflow); err != nil {
		return nil, err
	}

	workspaceJSON, matchedJSON, err := marshalWorkflowJSON(workflow)
	if err != nil {
		return nil, err
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE workflows SET
			status = $2,
			reason = $3,
			notes = $4,
			workspace = $5,
			matched_apps = $6,
			scheduled_for = $7,
			started_at = $8,
			completed_at = $9,
			cancelled_at = $10,
			updated_at = $11
		WHERE id = $1
	`,
		workflow.ID,
		workflow.Status,
		workflow.Reason,
		workflow.Notes,
		workspaceJSON,
		matchedJSON,
		nullTime(workflow.ScheduledFor),
		nullTime(workflow.StartedAt),
		nullTime(workflow.CompletedAt),
		nullTime(workflow.CancelledAt),
		workflow.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update workflow %s: %w", id, err)
	}

	if err = r.saveTasks(ctx, tx, workflow); err != nil {
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return workflow, nil
}

func (r *WorkflowRepository) query(ctx context.Context, query string, args ...any) ([]*models.Workflow, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query workflows: %w", err)
	}

	defer func() {
		if err := rows.Close(); err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	workflows := make([]*models.Workflow, 0)

	for rows.Next() {
		workflow, err := scanWorkflow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan workflow: %w", err)
		}

		workflows = append(workflows, workflow)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating workflows: %w", err)
	}

	if err := r.loadTasks(ctx, r.db, workflows); err != nil {
		return nil, err
	}

	return workflows, nil
}

// loadTasks fills the task list of every workflow with a single query.
func (r *WorkflowRepository) loadTasks(ctx context.Context, q querier, workflows []*models.Workflow) error {
	if len(workflows) == 0 {
		return nil
	}

	byID := make(map[string]*models.Workflow, len(workflows))
	ids := make([]string, 0, len(workflows))

	for _, workflow := range workflows {
		workflow.Tasks = make([]*models.Task, 0)
		byID[workflow.ID] = workflow
		ids = append(ids, workflow.ID)
	}

	rows, err := q.QueryContext(ctx, `
		SELECT `+taskColumns+` FROM workflow_tasks
		WHERE workflow_id = ANY($1::uuid[])
		ORDER BY workflow_id, position
	`, pq.Array(ids))
	if err != nil {
		return fmt.Errorf("failed to query workflow tasks: %w", err)
	}

	defer func() {
		if err := rows.Close(); err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return fmt.Errorf("failed to scan task: %w", err)
		}

		if workflow := byID[task.WorkflowID]; workflow != nil {
			workflow.Tasks = append(workflow.Tasks, task)
		}
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating tasks: %w", err)
	}

	return nil
}

// saveTasks upserts every task of the workflow. Identity columns never change
// after creation, so conflicts only refresh the mutable state.
func (r *WorkflowRepository) saveTasks(ctx context.Context, tx *sql.Tx, workflow *models.Workflow) error {
	for _, task := range workflow.Tasks {
		paramsJSON, err := json.Marshal(task.Params)
		if err != nil {
			return fmt.Errorf("failed to marshal task params: %w", err)
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO workflow_tasks (`+taskColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
			ON CONFLICT (id) DO UPDATE SET
				status = EXCLUDED.status,
				status_message = EXCLUDED.status_message,
				attempts = EXCLUDED.attempts,
				last_attempt_at = EXCLUDED.last_attempt_at,
				completed_at = EXCLUDED.completed_at,
				updated_at = EXCLUDED.updated_at
		`,
			task.ID,
			workflow.ID,
			task.Position,
			task.Name,
			task.Type,
			task.Status,
			task.Handler,
			paramsJSON,
			task.StatusMessage,
			task.Attempts,
			nullTime(task.LastAttemptAt),
			nullTime(task.CompletedAt),
			task.CreatedAt,
			task.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to save task %s: %w", task.ID, err)
		}
	}

	return nil
}

func marshalWorkflowJSON(workflow *models.Workflow) ([]byte, []byte, error) {
	var workspaceJSON []byte

	if workflow.Workspace != nil {
		data, err := json.Marshal(workflow.Workspace)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to marshal workspace config: %w", err)
		}

		workspaceJSON = data
	}

	matchedJSON, err := json.Marshal(workflow.MatchedApps)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal matched apps: %w", err)
	}

	return workspaceJSON, matchedJSON, nil
}

func scanWorkflow(row scanner) (*models.Workflow, error) {
	var (
		workflow                                        models.Workflow
		workspaceJSON, matchedJSON                      []byte
		scheduledFor, startedAt, completedAt, cancelled sql.NullTime
	)

	err := row.Scan(
		&workflow.ID,
		&workflow.EmployeeID,
		&workflow.Kind,
		&workflow.Status,
		&workflow.IsImmediate,
		&workflow.Reason,
		&workflow.Notes,
		&workspaceJSON,
		&matchedJSON,
		&scheduledFor,
		&startedAt,
		&completedAt,
		&cancelled,
		&workflow.CreatedAt,
		&workflow.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if workspaceJSON != nil {
		workflow.Workspace = &models.WorkspaceConfig{}
		if err := json.Unmarshal(workspaceJSON, workflow.Workspace); err != nil {
			return nil, fmt.Errorf("failed to unmarshal workspace config: %w", err)
		}
	}

	if matchedJSON != nil {
		if err := json.Unmarshal(matchedJSON, &workflow.MatchedApps); err != nil {
			return nil, fmt.Errorf("failed to unmarshal matched apps: %w", err)
		}
	}

	workflow.ScheduledFor = timePtr(scheduledFor)
	workflow.StartedAt = timePtr(startedAt)
	workflow.CompletedAt = timePtr(completedAt)
	workflow.CancelledAt = timePtr(cancelled)
	workflow.CreatedAt = workflow.CreatedAt.UTC()
	workflow.UpdatedAt = workflow.UpdatedAt.UTC()

	return &workflow, nil
}

func scanTask(row scanner) (*models.Task, error) {
	var (
		task                       models.Task
		paramsJSON                 []byte
		lastAttemptAt, completedAt sql.NullTime
	)

	err := row.Scan(
		&task.ID,
		&task.WorkflowID,
		&task.Position,
		&task.Name,
		&task.Type,
		&task.Status,
		&task.Handler,
		&paramsJSON,
		&task.StatusMessage,
		&task.Attempts,
		&lastAttemptAt,
		&completedAt,
		&task.CreatedAt,
		&task.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if paramsJSON != nil {
		if err := json.Unmarshal(paramsJSON, &task.Params); err != nil {
			return nil, fmt.Errorf("failed to unmarshal task params: %w", err)
		}
	}

	task.LastAttemptAt = timePtr(lastAttemptAt)
	task.CompletedAt = timePtr(completedAt)
	task.CreatedAt = task.CreatedAt.UTC()
	task.UpdatedAt = task.UpdatedAt.UTC()

	return &task, nil
}
