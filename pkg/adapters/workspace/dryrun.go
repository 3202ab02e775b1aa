package workspace

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/hrdash/lifecycle/pkg/models"
)

// DryRun logs the changes it would make instead of making them. It is used
// when no bridge is configured.
type DryRun struct {
	logger *slog.Logger

	mu      sync.Mutex
	actions []string
}

func NewDryRun(logger *slog.Logger) *DryRun {
	return &DryRun{logger: logger.With("module", "workspace_dry_run")}
}

// Actions returns what has been requested so far, oldest first.
func (d *DryRun) Actions() []string {
	d.mu.Lock()
	defer d.mu.Unlock()

	return append([]string(nil), d.actions...)
}

func (d *DryRun) record(ctx context.Context, action string, args ...any) {
	d.mu.Lock()
	d.actions = append(d.actions, action)
	d.mu.Unlock()

	d.logger.InfoContext(ctx, "dry run: "+action, args...)
}

func (d *DryRun) CreateAccount(ctx context.Context, profile *models.EmployeeProfile) error {
	d.record(ctx, "create_account "+profile.Email, "name", profile.FullName())

	return nil
}

func (d *DryRun) SuspendAccount(ctx context.Context, email string) error {
	d.record(ctx, "suspend_account "+email)

	return nil
}

func (d *DryRun) SignOut(ctx context.Context, email string) error {
	d.record(ctx, "sign_out "+email)

	return nil
}

func (d *DryRun) DeleteAccount(ctx context.Context, email string) error {
	d.record(ctx, "delete_account "+email)

	return nil
}

func (d *DryRun) TransferOwnership(ctx context.Context, fromEmail, toEmail string, scopes []models.TransferScope) error {
	names := make([]string, 0, len(scopes))
	for _, scope := range scopes {
		names = append(names, string(scope))
	}

	d.record(ctx, "transfer "+fromEmail+" -> "+toEmail, "scopes", strings.Join(names, ","))

	return nil
}

func (d *DryRun) CreateAlias(ctx context.Context, fromEmail, toEmail string) error {
	d.record(ctx, "alias "+fromEmail+" -> "+toEmail)

	return nil
}

func (d *DryRun) ProvisionAccess(ctx context.Context, appID string, profile *models.EmployeeProfile) error {
	d.record(ctx, "provision "+appID+" "+profile.Email)

	return nil
}

func (d *DryRun) RevokeAll(ctx context.Context, email string) error {
	d.record(ctx, "revoke_all "+email)

	return nil
}
