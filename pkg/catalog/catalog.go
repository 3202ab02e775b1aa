// Package catalog builds the task set a workflow is started with.
package catalog

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/hrdash/lifecycle/pkg/models"
	"github.com/hrdash/lifecycle/pkg/rules"
)

var ErrInvalidCatalog = errors.New("invalid task catalog")

// Definition describes a static task of the catalog.
type Definition struct {
	Name    string          `yaml:"name"              json:"name"`
	Type    models.TaskType `yaml:"type"              json:"type"`
	Handler string          `yaml:"handler,omitempty" json:"handler,omitempty"`
	Params  map[string]any  `yaml:"params,omitempty"  json:"params,omitempty"`
}

// Catalog holds the ordered static tasks of each workflow kind.
type Catalog struct {
	Onboarding  []Definition `yaml:"onboarding"  json:"onboarding"`
	Offboarding []Definition `yaml:"offboarding" json:"offboarding"`
}

// Default returns the built-in catalog.
func Default() *Catalog {
	return &Catalog{
		Onboarding: []Definition{
			{Name: "Create Workspace account", Type: models.TaskTypeAutomated, Handler: models.HandlerCreateAccount},
			{Name: "Send welcome email", Type: models.TaskTypeManual},
			{Name: "Prepare equipment", Type: models.TaskTypeManual},
		},
		Offboarding: []Definition{
			{Name: "Suspend Workspace account", Type: models.TaskTypeAutomated, Handler: models.HandlerSuspendAccount},
			{Name: "Revoke application access", Type: models.TaskTypeAutomated, Handler: models.HandlerRevokeAllApps},
			{Name: "Sign out of all devices", Type: models.TaskTypeAutomated, Handler: models.HandlerSignOutDevices},
			{Name: "Hand off final pay and benefits", Type: models.TaskTypeManual},
		},
	}
}

// Load reads a catalog from a YAML file.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog %s: %w", path, err)
	}

	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to parse catalog %s: %w", path, err)
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}

	return &c, nil
}

// Validate checks that every definition is well formed.
func (c *Catalog) Validate() error {
	for kind, defs := range map[models.WorkflowKind][]Definition{
		models.WorkflowKindOnboarding:  c.Onboarding,
		models.WorkflowKindOffboarding: c.Offboarding,
	} {
		seen := make(map[string]bool, len(defs))

		for i, def := range defs {
			name := strings.TrimSpace(def.Name)

			switch {
			case name == "":
				return fmt.Errorf("%w: %s task %d has no name", ErrInvalidCatalog, kind, i)
			case seen[name]:
				return fmt.Errorf("%w: %s task %q is defined twice", ErrInvalidCatalog, kind, name)
			case !def.Type.IsValid():
				return fmt.Errorf("%w: %s task %q has unknown type %q", ErrInvalidCatalog, kind, name, def.Type)
			case def.Type == models.TaskTypeAutomated && def.Handler == "":
				return fmt.Errorf("%w: automated task %q needs a handler", ErrInvalidCatalog, name)
			case def.Type == models.TaskTypeManual && def.Handler != "":
				return fmt.Errorf("%w: manual task %q cannot have a handler", ErrInvalidCatalog, name)
			}

			seen[name] = true
		}
	}

	return nil
}

// Definitions returns the static tasks of a workflow kind.
func (c *Catalog) Definitions(kind models.WorkflowKind) []Definition {
	if kind == models.WorkflowKindOffboarding {
		return c.Offboarding
	}

	return c.Onboarding
}

// BuildInput carries everything needed to derive a task set.
type BuildInput struct {
	WorkflowID string
	Kind       models.WorkflowKind
	Profile    *models.EmployeeProfile
	Apps       []*models.App
	Rules      []*models.ProvisioningRule
	Workspace  *models.WorkspaceConfig
	Now        time.Time
}

// Build is the outcome of BuildTaskSet.
type Build struct {
	Tasks     []*models.Task
	Selection rules.Selection
}

// BuildTaskSet derives the ordered tasks of a new workflow. Onboarding gets
// the static tasks followed by one provisioning task per matched app.
// Offboarding gets the static tasks followed by the Workspace tasks the
// workflow's configuration asks for.
func (c *Catalog) BuildTaskSet(in BuildInput) Build {
	var build Build

	for _, def := range c.Definitions(in.Kind) {
		build.Tasks = append(build.Tasks, newTask(in, def.Name, def.Type, def.Handler, cloneParams(def.Params)))
	}

	switch in.Kind {
	case models.WorkflowKindOnboarding:
		build.Selection = rules.SelectApplicableApps(in.Profile, in.Apps, in.Rules)
		for _, app := range build.Selection.Matched {
			build.Tasks = append(build.Tasks, newTask(in, "Provision "+app.Name, models.TaskTypeAutomated,
				models.HandlerProvisionApp, map[string]any{models.ParamAppID: app.ID, models.ParamAppName: app.Name}))
		}
	case models.WorkflowKindOffboarding:
		build.Tasks = append(build.Tasks, workspaceTasks(in)...)
	}

	for i, task := range build.Tasks {
		task.Position = i
	}

	return build
}

// workspaceTasks orders data transfer first and the alias last, since an
// alias can only take over the address once the account is gone.
func workspaceTasks(in BuildInput) []*models.Task {
	cfg := in.Workspace
	if cfg.IsEmpty() {
		return nil
	}

	var tasks []*models.Task

	if cfg.TransferToEmail != "" && len(cfg.TransferScopes) > 0 {
		scopes := make([]string, 0, len(cfg.TransferScopes))
		for _, scope := range cfg.TransferScopes {
			scopes = append(scopes, string(scope))
		}

		tasks = append(tasks, newTask(in, "Transfer data to "+cfg.TransferToEmail, models.TaskTypeAutomated,
			models.HandlerTransferOwnership, map[string]any{models.ParamToEmail: cfg.TransferToEmail, models.ParamScopes: scopes}))
	}

	if cfg.DeleteAccount {
		tasks = append(tasks, newTask(in, "Delete Workspace account", models.TaskTypeAutomated, models.HandlerDeleteAccount, nil))
	}

	if cfg.AliasTargetEmail != "" {
		tasks = append(tasks, newTask(in, "Add email alias to "+cfg.AliasTargetEmail, models.TaskTypeAutomated,
			models.HandlerCreateAlias, map[string]any{models.ParamToEmail: cfg.AliasTargetEmail}))
	}

	return tasks
}

func newTask(in BuildInput, name string, taskType models.TaskType, handler string, params map[string]any) *models.Task {
	return &models.Task{
		ID:         uuid.New().String(),
		WorkflowID: in.WorkflowID,
		Name:       name,
		Type:       taskType,
		Status:     models.TaskStatusPending,
		Handler:    handler,
		Params:     params,
		CreatedAt:  in.Now,
		UpdatedAt:  in.Now,
	}
}

func cloneParams(params map[string]any) map[string]any {
	if len(params) == 0 {
		return nil
	}

	out := make(map[string]any, len(params))
	for k, v := range params {
		out[k] = v
	}

	return out
}
