// Package automation runs AUTOMATED tasks against external systems.
package automation

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"slices"

	"github.com/hrdash/lifecycle/pkg/models"
	"github.com/hrdash/lifecycle/pkg/protocol"
)

// Request is what a handler receives for one execution.
type Request struct {
	Workflow *models.Workflow
	Task     *models.Task
	Profile  *models.EmployeeProfile
}

// HandlerFunc performs one automation. The returned string becomes the task's
// status message on success.
type HandlerFunc func(ctx context.Context, req Request) (string, error)

// Executor dispatches automated tasks to their handler.
type Executor struct {
	directory protocol.EmployeeDirectory
	identity  protocol.IdentityProvider
	apps      protocol.AppProvisioner
	handlers  map[string]HandlerFunc
	logger    *slog.Logger
}

// NewExecutor creates an executor with the built-in Workspace and app handlers registered.
func NewExecutor(
	directory protocol.EmployeeDirectory,
	identity protocol.IdentityProvider,
	apps protocol.AppProvisioner,
	logger *slog.Logger,
) *Executor {
	e := &Executor{
		directory: directory,
		identity:  identity,
		apps:      apps,
		handlers:  make(map[string]HandlerFunc),
		logger:    logger.With("module", "automation_executor"),
	}

	e.Register(models.HandlerCreateAccount, e.createAccount)
	e.Register(models.HandlerSuspendAccount, e.suspendAccount)
	e.Register(models.HandlerSignOutDevices, e.signOut)
	e.Register(models.HandlerDeleteAccount, e.deleteAccount)
	e.Register(models.HandlerTransferOwnership, e.transferOwnership)
	e.Register(models.HandlerCreateAlias, e.createAlias)
	e.Register(models.HandlerProvisionApp, e.provisionApp)
	e.Register(models.HandlerRevokeAllApps, e.revokeAllApps)

	return e
}

// Register binds a handler reference to a function, replacing any previous binding.
func (e *Executor) Register(handler string, fn HandlerFunc) {
	e.handlers[handler] = fn
}

// Handlers returns the registered handler references in sorted order.
func (e *Executor) Handlers() []string {
	return slices.Sorted(maps.Keys(e.handlers))
}

// Execute runs the automation bound to task. It returns the success message,
// or an *AutomationError. Panics inside handlers are converted into errors.
func (e *Executor) Execute(ctx context.Context, workflow *models.Workflow, task *models.Task) (message string, err error) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.ErrorContext(ctx, "automation handler panicked", "task_id", task.ID, "handler", task.Handler, "panic", r)
			message = ""
			err = &AutomationError{
				Handler: task.Handler,
				TaskID:  task.ID,
				Message: fmt.Sprintf("%s crashed: %v", task.Handler, r),
				Err:     ErrHandlerPanic,
			}
		}
	}()

	fn, ok := e.handlers[task.Handler]
	if !ok {
		return "", &AutomationError{
			Handler: task.Handler,
			TaskID:  task.ID,
			Message: fmt.Sprintf("no automation is registered for %q", task.Handler),
			Err:     ErrUnknownHandler,
		}
	}

	profile, err := e.directory.GetProfile(ctx, workflow.EmployeeID)
	if err != nil {
		return "", &AutomationError{
			Handler: task.Handler,
			TaskID:  task.ID,
			Message: "could not load employee profile: " + err.Error(),
			Err:     err,
		}
	}

	logger := e.logger.With("task_id", task.ID, "handler", task.Handler, "employee_id", workflow.EmployeeID)
	logger.DebugContext(ctx, "executing automation")

	message, err = fn(ctx, Request{Workflow: workflow, Task: task, Profile: profile})
	if err != nil {
		logger.WarnContext(ctx, "automation failed", "error", err)

		if automationErr, ok := AsAutomationError(err); ok {
			return "", automationErr
		}

		return "", &AutomationError{
			Handler: task.Handler,
			TaskID:  task.ID,
			Message: err.Error(),
			Err:     err,
		}
	}

	logger.InfoContext(ctx, "automation succeeded")

	return message, nil
}

func (e *Executor) createAccount(ctx context.Context, req Request) (string, error) {
	if err := e.identity.CreateAccount(ctx, req.Profile); err != nil {
		return "", err
	}

	return "Account " + req.Profile.Email + " created", nil
}

func (e *Executor) suspendAccount(ctx context.Context, req Request) (string, error) {
	if err := e.identity.SuspendAccount(ctx, req.Profile.Email); err != nil {
		return "", err
	}

	return "Account " + req.Profile.Email + " suspended", nil
}

func (e *Executor) signOut(ctx context.Context, req Request) (string, error) {
	if err := e.identity.SignOut(ctx, req.Profile.Email); err != nil {
		return "", err
	}

	return "Signed out of all sessions", nil
}

func (e *Executor) deleteAccount(ctx context.Context, req Request) (string, error) {
	if err := e.identity.DeleteAccount(ctx, req.Profile.Email); err != nil {
		return "", err
	}

	return "Account " + req.Profile.Email + " deleted", nil
}

func (e *Executor) transferOwnership(ctx context.Context, req Request) (string, error) {
	to := req.Task.StringParam(models.ParamToEmail)
	if to == "" {
		return "", fmt.Errorf("%w: %s", ErrMissingParam, models.ParamToEmail)
	}

	raw := req.Task.StringsParam(models.ParamScopes)
	if len(raw) == 0 {
		return "", fmt.Errorf("%w: %s", ErrMissingParam, models.ParamScopes)
	}

	scopes := make([]models.TransferScope, 0, len(raw))
	for _, s := range raw {
		scopes = append(scopes, models.TransferScope(s))
	}

	if err := e.identity.TransferOwnership(ctx, req.Profile.Email, to, scopes); err != nil {
		return "", err
	}

	return fmt.Sprintf("Data transferred to %s (%d scopes)", to, len(scopes)), nil
}

func (e *Executor) createAlias(ctx context.Context, req Request) (string, error) {
	to := req.Task.StringParam(models.ParamToEmail)
	if to == "" {
		return "", fmt.Errorf("%w: %s", ErrMissingParam, models.ParamToEmail)
	}

	if err := e.identity.CreateAlias(ctx, req.Profile.Email, to); err != nil {
		return "", err
	}

	return req.Profile.Email + " now delivers to " + to, nil
}

func (e *Executor) provisionApp(ctx context.Context, req Request) (string, error) {
	appID := req.Task.StringParam(models.ParamAppID)
	if appID == "" {
		return "", fmt.Errorf("%w: %s", ErrMissingParam, models.ParamAppID)
	}

	if err := e.apps.ProvisionAccess(ctx, appID, req.Profile); err != nil {
		return "", err
	}

	name := req.Task.StringParam(models.ParamAppName)
	if name == "" {
		name = appID
	}

	return "Access to " + name + " granted", nil
}

func (e *Executor) revokeAllApps(ctx context.Context, req Request) (string, error) {
	if err := e.apps.RevokeAll(ctx, req.Profile.Email); err != nil {
		return "", err
	}

	return "Application access revoked", nil
}
