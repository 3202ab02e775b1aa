package catalog

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrdash/lifecycle/pkg/models"
)

func profile() *models.EmployeeProfile {
	return &models.EmployeeProfile{ID: "emp-1", Email: "ada@example.com", Department: "Engineering"}
}

func names(tasks []*models.Task) []string {
	out := make([]string, 0, len(tasks))
	for _, task := range tasks {
		out = append(out, task.Name)
	}

	return out
}

func TestDefault_IsValid(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestBuildTaskSet_Onboarding(t *testing.T) {
	now := time.Now()
	slack := &models.App{ID: "slack", Name: "Slack"}
	github := &models.App{ID: "github", Name: "GitHub"}

	build := Default().BuildTaskSet(BuildInput{
		WorkflowID: "wf-1",
		Kind:       models.WorkflowKindOnboarding,
		Profile:    profile(),
		Apps:       []*models.App{slack, github},
		Rules: []*models.ProvisioningRule{
			{AppID: "slack", Condition: map[string]any{"department": "engineering"}, IsActive: true},
			{AppID: "github", Condition: map[string]any{"department": "Sales"}, IsActive: true},
		},
		Now: now,
	})

	assert.Equal(t, []string{"Create Workspace account", "Send welcome email", "Prepare equipment", "Provision Slack"}, names(build.Tasks))
	assert.Equal(t, []string{"slack"}, build.Selection.MatchedIDs())

	provision := build.Tasks[3]
	assert.Equal(t, models.TaskTypeAutomated, provision.Type)
	assert.Equal(t, models.HandlerProvisionApp, provision.Handler)
	assert.Equal(t, "slack", provision.StringParam(models.ParamAppID))

	for i, task := range build.Tasks {
		assert.Equal(t, i, task.Position)
		assert.Equal(t, "wf-1", task.WorkflowID)
		assert.Equal(t, models.TaskStatusPending, task.Status)
		assert.NotEmpty(t, task.ID)
		assert.Equal(t, now, task.CreatedAt)
	}
}

func TestBuildTaskSet_Offboarding(t *testing.T) {
	tests := []struct {
		name      string
		workspace *models.WorkspaceConfig
		want      []string
	}{
		{
			name: "no workspace config",
			want: []string{"Suspend Workspace account", "Revoke application access", "Sign out of all devices", "Hand off final pay and benefits"},
		},
		{
			name: "transfer delete and alias",
			workspace: &models.WorkspaceConfig{
				DeleteAccount:    true,
				TransferToEmail:  "lead@example.com",
				TransferScopes:   []models.TransferScope{models.TransferScopeDrive, models.TransferScopeCalendar},
				AliasTargetEmail: "lead@example.com",
			},
			want: []string{
				"Suspend Workspace account", "Revoke application access", "Sign out of all devices", "Hand off final pay and benefits",
				"Transfer data to lead@example.com", "Delete Workspace account", "Add email alias to lead@example.com",
			},
		},
		{
			name:      "transfer without scopes is ignored",
			workspace: &models.WorkspaceConfig{TransferToEmail: "lead@example.com"},
			want:      []string{"Suspend Workspace account", "Revoke application access", "Sign out of all devices", "Hand off final pay and benefits"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			build := Default().BuildTaskSet(BuildInput{
				Kind:      models.WorkflowKindOffboarding,
				Profile:   profile(),
				Workspace: tt.workspace,
				Now:       time.Now(),
			})

			assert.Equal(t, tt.want, names(build.Tasks))
			assert.Empty(t, build.Selection.Matched)
		})
	}
}

func TestBuildTaskSet_TransferParams(t *testing.T) {
	build := Default().BuildTaskSet(BuildInput{
		Kind:    models.WorkflowKindOffboarding,
		Profile: profile(),
		Workspace: &models.WorkspaceConfig{
			TransferToEmail: "lead@example.com",
			TransferScopes:  []models.TransferScope{models.TransferScopeDrive},
		},
	})

	transfer := build.Tasks[len(build.Tasks)-1]
	assert.Equal(t, models.HandlerTransferOwnership, transfer.Handler)
	assert.Equal(t, "lead@example.com", transfer.StringParam(models.ParamToEmail))
	assert.Equal(t, []string{"drive"}, transfer.StringsParam(models.ParamScopes))
}

func TestBuildTaskSet_StaticParamsAreCopied(t *testing.T) {
	c := &Catalog{Onboarding: []Definition{
		{Name: "Provision payroll", Type: models.TaskTypeAutomated, Handler: models.HandlerProvisionApp, Params: map[string]any{"app_id": "payroll"}},
	}}

	first := c.BuildTaskSet(BuildInput{Kind: models.WorkflowKindOnboarding, Profile: profile()})
	first.Tasks[0].Params["app_id"] = "changed"

	second := c.BuildTaskSet(BuildInput{Kind: models.WorkflowKindOnboarding, Profile: profile()})
	assert.Equal(t, "payroll", second.Tasks[0].StringParam("app_id"))
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "catalog.yaml")

	content := `
onboarding:
  - name: Create Workspace account
    type: AUTOMATED
    handler: workspace.create_account
  - name: Book desk
    type: MANUAL
offboarding:
  - name: Exit interview
    type: MANUAL
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	c, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, c.Onboarding, 2)
	assert.Equal(t, models.TaskTypeManual, c.Offboarding[0].Type)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		c    Catalog
	}{
		{"missing name", Catalog{Onboarding: []Definition{{Type: models.TaskTypeManual}}}},
		{"duplicate name", Catalog{Offboarding: []Definition{{Name: "a", Type: models.TaskTypeManual}, {Name: "a", Type: models.TaskTypeManual}}}},
		{"unknown type", Catalog{Onboarding: []Definition{{Name: "a", Type: "ROBOT"}}}},
		{"automated without handler", Catalog{Onboarding: []Definition{{Name: "a", Type: models.TaskTypeAutomated}}}},
		{"manual with handler", Catalog{Onboarding: []Definition{{Name: "a", Type: models.TaskTypeManual, Handler: "x"}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.c.Validate(), ErrInvalidCatalog)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}
