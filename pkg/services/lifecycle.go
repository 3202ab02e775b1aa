package services

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/hrdash/lifecycle/pkg/automation"
	"github.com/hrdash/lifecycle/pkg/catalog"
	"github.com/hrdash/lifecycle/pkg/eventbus"
	"github.com/hrdash/lifecycle/pkg/events"
	"github.com/hrdash/lifecycle/pkg/locking"
	"github.com/hrdash/lifecycle/pkg/metrics"
	"github.com/hrdash/lifecycle/pkg/models"
	"github.com/hrdash/lifecycle/pkg/otelhelper"
	"github.com/hrdash/lifecycle/pkg/persistence"
	"github.com/hrdash/lifecycle/pkg/protocol"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// TaskExecutor runs the automation bound to an AUTOMATED task.
type TaskExecutor interface {
	Execute(ctx context.Context, workflow *models.Workflow, task *models.Task) (string, error)
}

// Lifecycle owns every state transition of onboarding and offboarding
// workflows. Each operation validates, transitions, recomputes the workflow
// status and persists as one atomic unit.
type Lifecycle struct {
	persistence persistence.Persistence
	directory   protocol.EmployeeDirectory
	executor    TaskExecutor
	catalog     *catalog.Catalog
	locker      locking.Locker
	publisher   eventbus.EventPublisher
	metrics     *metrics.Metrics
	tracer      trace.Tracer
	logger      *slog.Logger
	clock       func() time.Time

	maxAttempts int
	async       bool
	inflight    sync.WaitGroup
}

type Option func(*Lifecycle)

// WithMaxAttempts caps how often an automated task may be executed. Zero
// means no cap.
func WithMaxAttempts(n int) Option {
	return func(l *Lifecycle) {
		l.maxAttempts = max(n, 0)
	}
}

// WithAsyncAutomation makes Start and Activate return before the automated
// tasks they trigger have finished. Wait blocks until they have.
func WithAsyncAutomation(async bool) Option {
	return func(l *Lifecycle) {
		l.async = async
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(l *Lifecycle) {
		l.metrics = m
	}
}

func WithTracer(tracer trace.Tracer) Option {
	return func(l *Lifecycle) {
		l.tracer = tracer
	}
}

func WithClock(clock func() time.Time) Option {
	return func(l *Lifecycle) {
		l.clock = clock
	}
}

// NewLifecycle creates the workflow orchestrator. publisher may be nil when no
// event consumers exist.
func NewLifecycle(
	persistence persistence.Persistence,
	directory protocol.EmployeeDirectory,
	executor TaskExecutor,
	taskCatalog *catalog.Catalog,
	locker locking.Locker,
	publisher eventbus.EventPublisher,
	logger *slog.Logger,
	opts ...Option,
) *Lifecycle {
	l := &Lifecycle{
		persistence: persistence,
		directory:   directory,
		executor:    executor,
		catalog:     taskCatalog,
		locker:      locker,
		publisher:   publisher,
		tracer:      otelhelper.NoopTracer(),
		logger:      logger.With("module", "lifecycle_service"),
		clock:       time.Now,
	}

	for _, opt := range opts {
		opt(l)
	}

	return l
}

// HealthCheck checks the health of the persistence layer.
func (l *Lifecycle) HealthCheck(ctx context.Context) (string, bool) {
	if l.persistence == nil {
		return "Persistence layer not initialized", false
	}

	err := l.persistence.HealthCheck(ctx)
	if err != nil {
		return "Persistence layer is unhealthy: " + err.Error(), false
	}

	return "Persistence layer is healthy", true
}

// Wait blocks until automations started in the background have finished.
func (l *Lifecycle) Wait() {
	l.inflight.Wait()
}

// WorkflowDetails is a workflow together with its projected progress.
type WorkflowDetails struct {
	*models.Workflow

	Progress models.Progress `json:"progress"`
}

func newWorkflowDetails(workflow *models.Workflow) *WorkflowDetails {
	return &WorkflowDetails{Workflow: workflow, Progress: models.ComputeProgress(workflow.Tasks)}
}

// StartRequest describes a new workflow.
type StartRequest struct {
	EmployeeID   string                  `json:"employee_id"`
	Kind         models.WorkflowKind     `json:"kind"`
	IsImmediate  bool                    `json:"is_immediate"`
	ScheduledFor *time.Time              `json:"scheduled_for,omitempty"`
	Reason       string                  `json:"reason,omitempty"`
	Notes        string                  `json:"notes,omitempty"`
	Workspace    *models.WorkspaceConfig `json:"workspace,omitempty"`
}

// Start creates the employee's workflow of the requested kind with its task
// snapshot. The workflow starts right away when it is immediate, has no
// start date or the start date has passed; otherwise it waits in PENDING
// until Activate. Starting triggers every automated task.
func (l *Lifecycle) Start(ctx context.Context, req StartRequest) (*WorkflowDetails, error) {
	err := l.validateStartRequest(&req)
	if err != nil {
		return nil, err
	}

	ctx, span := otelhelper.StartSpan(ctx, l.tracer, "lifecycle.start",
		attribute.String(otelhelper.EmployeeIDKey, req.EmployeeID),
		attribute.String(otelhelper.WorkflowKindKey, string(req.Kind)))
	defer span.End()

	workflow, err := l.start(ctx, req)
	if err != nil {
		otelhelper.SetError(span, err)

		return nil, err
	}

	span.SetAttributes(attribute.String(otelhelper.WorkflowIDKey, workflow.ID))

	if workflow.Status.IsStarted() {
		l.runAutomations(ctx, workflow)

		if !l.async {
			return l.GetWorkflow(ctx, workflow.ID)
		}
	}

	return newWorkflowDetails(workflow), nil
}

func (l *Lifecycle) start(ctx context.Context, req StartRequest) (*models.Workflow, error) {
	release, err := l.locker.TryLock(ctx, locking.EmployeeKey(req.EmployeeID, string(req.Kind)))
	if err != nil {
		if errors.Is(err, locking.ErrLocked) {
			return nil, NewConflictError("Start", "WORKFLOW_BUSY",
				fmt.Sprintf("a %s workflow for employee %s is being started", req.Kind, req.EmployeeID), ErrWorkflowBusy)
		}

		return nil, fmt.Errorf("failed to acquire employee lock: %w", err)
	}
	defer l.release(ctx, release)

	repo := l.persistence.WorkflowRepository()

	active, err := repo.FindActive(ctx, req.EmployeeID, req.Kind)
	if err != nil {
		return nil, fmt.Errorf("failed to look up active workflows: %w", err)
	}

	if active != nil {
		return nil, NewConflictError("Start", "ACTIVE_WORKFLOW_EXISTS",
			fmt.Sprintf("employee %s already has %s workflow %s in status %s", req.EmployeeID, req.Kind, active.ID, active.Status),
			ErrActiveWorkflowExists)
	}

	profile, err := l.directory.GetProfile(ctx, req.EmployeeID)
	if err != nil {
		return nil, fmt.Errorf("failed to load employee %s: %w", req.EmployeeID, err)
	}

	in := catalog.BuildInput{
		WorkflowID: uuid.New().String(),
		Kind:       req.Kind,
		Profile:    profile,
		Now:        l.now(),
	}

	if req.Kind == models.WorkflowKindOnboarding {
		in.Apps, in.Rules, err = l.provisioningData(ctx)
		if err != nil {
			return nil, err
		}
	} else {
		in.Workspace = req.Workspace
	}

	build := l.catalog.BuildTaskSet(in)

	workflow := &models.Workflow{
		ID:           in.WorkflowID,
		EmployeeID:   req.EmployeeID,
		Kind:         req.Kind,
		Status:       models.WorkflowStatusPending,
		IsImmediate:  req.IsImmediate,
		ScheduledFor: req.ScheduledFor,
		Reason:       req.Reason,
		Notes:        req.Notes,
		Workspace:    in.Workspace,
		MatchedApps:  build.Selection.MatchedIDs(),
		Tasks:        build.Tasks,
		CreatedAt:    in.Now,
		UpdatedAt:    in.Now,
	}

	if req.IsImmediate || req.ScheduledFor == nil || !req.ScheduledFor.After(in.Now) {
		workflow.Start(in.Now)
	}

	err = l.directory.SetLifecycleStatus(ctx, req.EmployeeID, models.LifecycleStatusFor(req.Kind))
	if err != nil {
		return nil, fmt.Errorf("failed to update lifecycle status of employee %s: %w", req.EmployeeID, err)
	}

	err = repo.Create(ctx, workflow)
	if err != nil {
		l.revertLifecycleStatus(ctx, req.EmployeeID)

		if errors.Is(err, persistence.ErrActiveWorkflowExists) {
			return nil, NewConflictError("Start", "ACTIVE_WORKFLOW_EXISTS",
				fmt.Sprintf("employee %s already has an active %s workflow", req.EmployeeID, req.Kind), err)
		}

		return nil, fmt.Errorf("failed to create workflow: %w", err)
	}

	l.logger.InfoContext(ctx, "workflow created",
		"workflow_id", workflow.ID,
		"employee_id", workflow.EmployeeID,
		"kind", workflow.Kind,
		"status", workflow.Status,
		"tasks", len(workflow.Tasks),
		"matched_apps", workflow.MatchedApps)

	l.metrics.WorkflowStarted(string(workflow.Kind), workflow.Status.IsStarted())

	if workflow.Status.IsStarted() {
		l.publish(ctx, workflow, events.NewWorkflowStarted(workflow))
		l.finished(ctx, workflow, models.WorkflowStatusInProgress)
	} else {
		l.publish(ctx, workflow, events.NewWorkflowScheduled(workflow))
	}

	return workflow, nil
}

func (l *Lifecycle) validateStartRequest(req *StartRequest) error {
	req.EmployeeID = strings.TrimSpace(req.EmployeeID)
	if req.EmployeeID == "" {
		return NewValidationError("Start", "EMPLOYEE_REQUIRED", "employee id is required", ErrInvalidRequest)
	}

	if !req.Kind.IsValid() {
		return NewValidationError("Start", "INVALID_KIND",
			fmt.Sprintf("invalid workflow kind '%s', allowed: ONBOARDING, OFFBOARDING", req.Kind), ErrInvalidKind)
	}

	if req.Workspace.IsEmpty() && (req.Workspace == nil || len(req.Workspace.TransferScopes) == 0) {
		req.Workspace = nil

		return nil
	}

	if req.Kind != models.WorkflowKindOffboarding {
		return NewValidationError("Start", "INVALID_WORKSPACE_CONFIG",
			"workspace settings only apply to offboarding", ErrInvalidWorkspaceConfig)
	}

	err := validate.Struct(req.Workspace)
	if err != nil {
		return NewValidationError("Start", "INVALID_WORKSPACE_CONFIG", err.Error(), ErrInvalidWorkspaceConfig)
	}

	if (req.Workspace.TransferToEmail == "") != (len(req.Workspace.TransferScopes) == 0) {
		return NewValidationError("Start", "INVALID_WORKSPACE_CONFIG",
			"a data transfer needs both a target email and at least one scope", ErrInvalidWorkspaceConfig)
	}

	return nil
}

func (l *Lifecycle) provisioningData(ctx context.Context) ([]*models.App, []*models.ProvisioningRule, error) {
	repo := l.persistence.ProvisioningRepository()

	apps, err := repo.Apps(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load applications: %w", err)
	}

	rules, err := repo.Rules(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load provisioning rules: %w", err)
	}

	return apps, rules, nil
}

// Activate starts a scheduled workflow ahead of, or at, its start date.
func (l *Lifecycle) Activate(ctx context.Context, workflowID string) (*WorkflowDetails, error) {
	ctx, span := otelhelper.StartSpan(ctx, l.tracer, "lifecycle.activate",
		attribute.String(otelhelper.WorkflowIDKey, workflowID))
	defer span.End()

	workflow, err := l.persistence.WorkflowRepository().Update(ctx, workflowID, func(w *models.Workflow) error {
		switch {
		case w.Status == models.WorkflowStatusCancelled || w.Status == models.WorkflowStatusCompleted:
			return NewConflictError("Activate", "WORKFLOW_CLOSED",
				fmt.Sprintf("workflow %s is %s", w.ID, w.Status), ErrWorkflowClosed)
		case w.Status != models.WorkflowStatusPending:
			return NewConflictError("Activate", "WORKFLOW_NOT_SCHEDULED",
				fmt.Sprintf("workflow %s is already %s", w.ID, w.Status), ErrWorkflowNotScheduled)
		}

		w.Start(l.now())

		return nil
	})
	if err != nil {
		otelhelper.SetError(span, err)

		return nil, err
	}

	l.logger.InfoContext(ctx, "workflow activated", "workflow_id", workflow.ID, "employee_id", workflow.EmployeeID)

	l.publish(ctx, workflow, events.NewWorkflowActivated(workflow))
	l.finished(ctx, workflow, models.WorkflowStatusInProgress)

	l.runAutomations(ctx, workflow)

	if l.async {
		return newWorkflowDetails(workflow), nil
	}

	return l.GetWorkflow(ctx, workflow.ID)
}

// ActivateDue activates every scheduled workflow whose start date has
// passed and reports how many were activated.
func (l *Lifecycle) ActivateDue(ctx context.Context) (int, error) {
	due, err := l.persistence.WorkflowRepository().DueScheduled(ctx, l.now())
	if err != nil {
		return 0, fmt.Errorf("failed to load due workflows: %w", err)
	}

	var (
		activated int
		errs      []error
	)

	for _, workflow := range due {
		_, err := l.Activate(ctx, workflow.ID)

		switch {
		case err == nil:
			activated++
		case IsConflictError(err):
			l.logger.DebugContext(ctx, "due workflow was handled elsewhere", "workflow_id", workflow.ID, "error", err)
		default:
			l.logger.ErrorContext(ctx, "failed to activate due workflow", "workflow_id", workflow.ID, "error", err)
			errs = append(errs, err)
		}
	}

	return activated, errors.Join(errs...)
}

// runAutomations executes the pending automated tasks of a freshly started
// workflow. Independent tasks run concurrently while the account steps run
// one after another next to them. Failures are recorded on the tasks
// themselves.
func (l *Lifecycle) runAutomations(ctx context.Context, workflow *models.Workflow) {
	tasks := workflow.AutomatedTasks()
	if len(tasks) == 0 {
		return
	}

	var independent, steps []*models.Task

	for _, task := range tasks {
		if task.AccountStep() > 0 {
			steps = append(steps, task)
		} else {
			independent = append(independent, task)
		}
	}

	slices.SortStableFunc(steps, func(a, b *models.Task) int {
		return cmp.Compare(a.AccountStep(), b.AccountStep())
	})

	run := func(ctx context.Context) {
		var wg sync.WaitGroup

		for _, task := range independent {
			wg.Add(1)

			go func(taskID string) {
				defer wg.Done()

				l.runAutomatedTask(ctx, workflow.ID, taskID)
			}(task.ID)
		}

		if len(steps) > 0 {
			wg.Add(1)

			go func() {
				defer wg.Done()

				l.runAccountSteps(ctx, workflow.ID, steps)
			}()
		}

		wg.Wait()
	}

	if !l.async {
		run(ctx)

		return
	}

	l.inflight.Add(1)

	go func() {
		defer l.inflight.Done()

		run(context.WithoutCancel(ctx))
	}()
}

// runAccountSteps stops at the first step that does not succeed. The steps
// after it stay PENDING until an operator retries or skips the blocker.
func (l *Lifecycle) runAccountSteps(ctx context.Context, workflowID string, steps []*models.Task) {
	for i, step := range steps {
		task := l.runAutomatedTask(ctx, workflowID, step.ID)
		if task != nil && task.Status == models.TaskStatusSuccess {
			continue
		}

		if waiting := len(steps) - i - 1; waiting > 0 {
			l.logger.WarnContext(ctx, "account steps halted",
				"workflow_id", workflowID, "task_id", step.ID, "waiting", waiting)
		}

		return
	}
}

func (l *Lifecycle) runAutomatedTask(ctx context.Context, workflowID, taskID string) *models.Task {
	task, err := l.RunTask(ctx, taskID)
	if err != nil {
		l.logger.WarnContext(ctx, "automated task was not run", "workflow_id", workflowID, "task_id", taskID, "error", err)

		return nil
	}

	return task
}

// RunTask executes or retries an automated task and records the outcome. A
// failed automation is stored on the task as FAILED with the adapter's
// message and is not returned as an error.
func (l *Lifecycle) RunTask(ctx context.Context, taskID string) (*models.Task, error) {
	ctx, span := otelhelper.StartSpan(ctx, l.tracer, "lifecycle.run_task",
		attribute.String(otelhelper.TaskIDKey, taskID))
	defer span.End()

	task, err := l.runTask(ctx, taskID)
	if err != nil {
		otelhelper.SetError(span, err)

		return nil, err
	}

	span.SetAttributes(attribute.String(otelhelper.TaskStatusKey, string(task.Status)))

	return task, nil
}

func (l *Lifecycle) runTask(ctx context.Context, taskID string) (*models.Task, error) {
	release, err := l.lockTask(ctx, "RunTask", taskID)
	if err != nil {
		return nil, err
	}
	defer l.release(ctx, release)

	workflow, task, err := l.loadTask(ctx, taskID)
	if err != nil {
		return nil, err
	}

	err = l.checkRunnable(workflow, task)
	if err != nil {
		return nil, err
	}

	started := time.Now()
	message, execErr := l.executor.Execute(ctx, workflow, task)
	l.metrics.TaskExecuted(task.Handler, execErr == nil, time.Since(started))

	// The outcome is recorded even when the caller went away meanwhile.
	recordCtx := context.WithoutCancel(ctx)

	var previous models.WorkflowStatus

	updated, err := l.persistence.WorkflowRepository().Update(recordCtx, workflow.ID, func(w *models.Workflow) error {
		t := w.Task(taskID)
		if t == nil {
			return ErrTaskNotFound
		}

		if !t.Status.IsActionable() {
			return NewConflictError("RunTask", "INVALID_STATE",
				fmt.Sprintf("task %s is already %s", t.ID, t.Status), ErrInvalidState)
		}

		previous = w.Status
		now := l.now()
		t.Attempts++
		t.LastAttemptAt = &now

		if execErr != nil {
			t.Fail(now, failureMessage(execErr))
		} else {
			t.Succeed(now, message)
		}

		w.Recompute(now)

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to record outcome of task %s: %w", taskID, err)
	}

	result := updated.Task(taskID)

	if execErr != nil {
		l.logger.WarnContext(ctx, "automated task failed",
			"workflow_id", updated.ID, "task_id", taskID, "handler", result.Handler,
			"attempt", result.Attempts, "error", result.StatusMessage)
	} else {
		l.logger.InfoContext(ctx, "automated task succeeded",
			"workflow_id", updated.ID, "task_id", taskID, "handler", result.Handler, "attempt", result.Attempts)
	}

	l.publish(recordCtx, updated, events.TaskOutcome(updated, result))
	l.finished(recordCtx, updated, previous)

	return result, nil
}

func (l *Lifecycle) checkRunnable(workflow *models.Workflow, task *models.Task) error {
	err := checkWorkflowOpen("RunTask", workflow)
	if err != nil {
		return err
	}

	if task.Type != models.TaskTypeAutomated {
		return NewConflictError("RunTask", "INVALID_STATE",
			fmt.Sprintf("task %s is %s and cannot be run", task.ID, task.Type), ErrInvalidState)
	}

	if !task.Status.IsActionable() {
		return NewConflictError("RunTask", "INVALID_STATE",
			fmt.Sprintf("task %s is already %s", task.ID, task.Status), ErrInvalidState)
	}

	if blocker := workflow.BlockedBy(task); blocker != nil {
		return NewConflictError("RunTask", "TASK_BLOCKED",
			fmt.Sprintf("task %s waits for %q to succeed or be skipped", task.ID, blocker.Name), ErrTaskBlocked)
	}

	if l.maxAttempts > 0 && task.Attempts >= l.maxAttempts {
		return NewConflictError("RunTask", "ATTEMPTS_EXHAUSTED",
			fmt.Sprintf("task %s failed %d times; skip it or cancel the workflow", task.ID, task.Attempts), ErrAttemptsExhausted)
	}

	return nil
}

func failureMessage(err error) string {
	if automationErr, ok := automation.AsAutomationError(err); ok {
		return automationErr.Error()
	}

	return err.Error()
}

// CompleteManualTask marks a manual task as done. notes become the task's
// status message.
func (l *Lifecycle) CompleteManualTask(ctx context.Context, taskID, notes string) (*models.Task, error) {
	var result *models.Task

	updated, previous, err := l.decideTask(ctx, "CompleteManualTask", taskID, func(w *models.Workflow, t *models.Task) error {
		if t.Type != models.TaskTypeManual {
			return NewConflictError("CompleteManualTask", "INVALID_STATE",
				fmt.Sprintf("task %s is %s; run it instead", t.ID, t.Type), ErrInvalidState)
		}

		t.Succeed(l.now(), strings.TrimSpace(notes))
		result = t

		return nil
	})
	if err != nil {
		return nil, err
	}

	l.logger.InfoContext(ctx, "manual task completed", "workflow_id", updated.ID, "task_id", taskID)
	l.metrics.TaskDecided("completed")
	l.publish(ctx, updated, events.NewTaskCompleted(updated, result, result.StatusMessage))
	l.finished(ctx, updated, previous)

	return updated.Task(taskID), nil
}

// SkipTask bypasses a pending or failed task of either type. The reason is
// mandatory and stored verbatim as the task's status message.
func (l *Lifecycle) SkipTask(ctx context.Context, taskID, reason string) (*models.Task, error) {
	if strings.TrimSpace(reason) == "" {
		return nil, NewValidationError("SkipTask", "REASON_REQUIRED", "a reason is required to skip a task", ErrReasonRequired)
	}

	updated, previous, err := l.decideTask(ctx, "SkipTask", taskID, func(_ *models.Workflow, t *models.Task) error {
		t.Skip(l.now(), reason)

		return nil
	})
	if err != nil {
		return nil, err
	}

	result := updated.Task(taskID)

	l.logger.InfoContext(ctx, "task skipped", "workflow_id", updated.ID, "task_id", taskID, "reason", reason)
	l.metrics.TaskDecided("skipped")
	l.publish(ctx, updated, events.NewTaskSkipped(updated, result, reason))
	l.finished(ctx, updated, previous)

	return result, nil
}

// decideTask applies an operator decision to a task under its lock and
// recomputes the workflow in the same update.
func (l *Lifecycle) decideTask(
	ctx context.Context,
	op, taskID string,
	apply func(*models.Workflow, *models.Task) error,
) (*models.Workflow, models.WorkflowStatus, error) {
	release, err := l.lockTask(ctx, op, taskID)
	if err != nil {
		return nil, "", err
	}
	defer l.release(ctx, release)

	workflow, _, err := l.loadTask(ctx, taskID)
	if err != nil {
		return nil, "", err
	}

	var previous models.WorkflowStatus

	updated, err := l.persistence.WorkflowRepository().Update(ctx, workflow.ID, func(w *models.Workflow) error {
		err := checkWorkflowOpen(op, w)
		if err != nil {
			return err
		}

		t := w.Task(taskID)
		if t == nil {
			return ErrTaskNotFound
		}

		if !t.Status.IsActionable() {
			return NewConflictError(op, "INVALID_STATE",
				fmt.Sprintf("task %s is already %s", t.ID, t.Status), ErrInvalidState)
		}

		err = apply(w, t)
		if err != nil {
			return err
		}

		previous = w.Status
		w.Recompute(l.now())

		return nil
	})
	if err != nil {
		return nil, "", err
	}

	return updated, previous, nil
}

// Cancel stops a workflow that has not completed. Finished tasks keep their
// status and the employee's lifecycle status returns to ACTIVE. confirmed
// must be set since cancellation cannot be undone.
func (l *Lifecycle) Cancel(ctx context.Context, workflowID string, confirmed bool) (*WorkflowDetails, error) {
	if !confirmed {
		return nil, NewValidationError("Cancel", "CONFIRMATION_REQUIRED",
			"cancelling a workflow cannot be undone and must be confirmed", ErrConfirmationRequired)
	}

	ctx, span := otelhelper.StartSpan(ctx, l.tracer, "lifecycle.cancel",
		attribute.String(otelhelper.WorkflowIDKey, workflowID))
	defer span.End()

	var previous models.WorkflowStatus

	workflow, err := l.persistence.WorkflowRepository().Update(ctx, workflowID, func(w *models.Workflow) error {
		if w.Status == models.WorkflowStatusCompleted || w.Status == models.WorkflowStatusCancelled {
			return NewConflictError("Cancel", "WORKFLOW_CLOSED",
				fmt.Sprintf("workflow %s is already %s", w.ID, w.Status), ErrWorkflowClosed)
		}

		previous = w.Status
		now := l.now()
		w.Status = models.WorkflowStatusCancelled
		w.CancelledAt = &now
		w.UpdatedAt = now

		err := l.directory.SetLifecycleStatus(ctx, w.EmployeeID, models.LifecycleStatusActive)
		if err != nil {
			return fmt.Errorf("failed to revert lifecycle status of employee %s: %w", w.EmployeeID, err)
		}

		return nil
	})
	if err != nil {
		otelhelper.SetError(span, err)

		return nil, err
	}

	l.logger.InfoContext(ctx, "workflow cancelled",
		"workflow_id", workflow.ID, "employee_id", workflow.EmployeeID, "previous_status", previous)

	l.metrics.WorkflowFinished(string(workflow.Kind), string(workflow.Status))
	l.publish(ctx, workflow, events.NewWorkflowCancelled(workflow, previous))

	return newWorkflowDetails(workflow), nil
}

// GetWorkflow returns the workflow with its tasks and current progress.
func (l *Lifecycle) GetWorkflow(ctx context.Context, workflowID string) (*WorkflowDetails, error) {
	workflow, err := l.persistence.WorkflowRepository().GetByID(ctx, workflowID)
	if err != nil {
		return nil, fmt.Errorf("failed to get workflow: %w", err)
	}

	if workflow == nil {
		return nil, ErrWorkflowNotFound
	}

	return newWorkflowDetails(workflow), nil
}

func (l *Lifecycle) loadTask(ctx context.Context, taskID string) (*models.Workflow, *models.Task, error) {
	workflow, err := l.persistence.WorkflowRepository().GetByTaskID(ctx, taskID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load task %s: %w", taskID, err)
	}

	if workflow == nil {
		return nil, nil, ErrTaskNotFound
	}

	task := workflow.Task(taskID)
	if task == nil {
		return nil, nil, ErrTaskNotFound
	}

	return workflow, task, nil
}

func checkWorkflowOpen(op string, workflow *models.Workflow) error {
	switch workflow.Status {
	case models.WorkflowStatusPending:
		return NewConflictError(op, "WORKFLOW_NOT_STARTED",
			fmt.Sprintf("workflow %s has not started yet", workflow.ID), ErrWorkflowNotStarted)
	case models.WorkflowStatusCancelled, models.WorkflowStatusCompleted:
		return NewConflictError(op, "WORKFLOW_CLOSED",
			fmt.Sprintf("workflow %s is %s", workflow.ID, workflow.Status), ErrWorkflowClosed)
	default:
		return nil
	}
}

func (l *Lifecycle) lockTask(ctx context.Context, op, taskID string) (locking.Release, error) {
	release, err := l.locker.TryLock(ctx, locking.TaskKey(taskID))
	if err != nil {
		if errors.Is(err, locking.ErrLocked) {
			return nil, NewConflictError(op, "TASK_RUNNING",
				fmt.Sprintf("task %s is being executed", taskID), ErrTaskRunning)
		}

		return nil, fmt.Errorf("failed to acquire task lock: %w", err)
	}

	return release, nil
}

func (l *Lifecycle) release(ctx context.Context, release locking.Release) {
	err := release(context.WithoutCancel(ctx))
	if err != nil {
		l.logger.WarnContext(ctx, "failed to release lock", "error", err)
	}
}

func (l *Lifecycle) revertLifecycleStatus(ctx context.Context, employeeID string) {
	err := l.directory.SetLifecycleStatus(ctx, employeeID, models.LifecycleStatusActive)
	if err != nil {
		l.logger.ErrorContext(ctx, "failed to revert lifecycle status", "employee_id", employeeID, "error", err)
	}
}

// finished publishes and counts a move into COMPLETED or FAILED. A completed
// workflow also settles the employee's lifecycle status.
func (l *Lifecycle) finished(ctx context.Context, workflow *models.Workflow, previous models.WorkflowStatus) {
	event := events.StatusChanged(workflow, previous)
	if event == nil {
		return
	}

	l.logger.InfoContext(ctx, "workflow status changed",
		"workflow_id", workflow.ID, "from", previous, "to", workflow.Status)
	l.metrics.WorkflowFinished(string(workflow.Kind), string(workflow.Status))

	if workflow.Status == models.WorkflowStatusCompleted {
		status := models.LifecycleStatusAfter(workflow.Kind)

		err := l.directory.SetLifecycleStatus(ctx, workflow.EmployeeID, status)
		if err != nil {
			l.logger.ErrorContext(ctx, "failed to settle lifecycle status",
				"workflow_id", workflow.ID, "employee_id", workflow.EmployeeID, "status", status, "error", err)
		}
	}

	l.publish(ctx, workflow, event)
}

// publish sends events after their transition has been committed. Delivery
// failures are logged and never undo the transition.
func (l *Lifecycle) publish(ctx context.Context, workflow *models.Workflow, event events.Event) {
	if l.publisher == nil || event == nil {
		return
	}

	err := l.publisher.Publish(ctx, workflow.EmployeeID, event)
	if err != nil {
		l.logger.ErrorContext(ctx, "failed to publish event",
			"workflow_id", workflow.ID, "event_type", event.GetType(), "error", err)
	}
}

func (l *Lifecycle) now() time.Time {
	return l.clock().UTC()
}
