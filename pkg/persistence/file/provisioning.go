package file

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"

	"github.com/hrdash/lifecycle/pkg/models"
	"github.com/hrdash/lifecycle/pkg/persistence"
)

// ProvisioningRepository stores apps and rules as one JSON file each.
type ProvisioningRepository struct {
	apps  *store
	rules *store
}

func NewProvisioningRepository(root string) *ProvisioningRepository {
	return &ProvisioningRepository{
		apps:  &store{dir: filepath.Join(root, "apps")},
		rules: &store{dir: filepath.Join(root, "rules")},
	}
}

func (pr *ProvisioningRepository) Apps(_ context.Context) ([]*models.App, error) {
	apps, err := readAll[models.App](pr.apps)
	if err != nil {
		return nil, fmt.Errorf("failed to list apps: %w", err)
	}

	sort.Slice(apps, func(i, j int) bool { return apps[i].Name < apps[j].Name })

	return apps, nil
}

func (pr *ProvisioningRepository) AppByID(_ context.Context, id string) (*models.App, error) {
	var app models.App

	found, err := pr.apps.read(id, &app)
	if err != nil || !found {
		return nil, err
	}

	return &app, nil
}

func (pr *ProvisioningRepository) SaveApp(_ context.Context, app *models.App) error {
	pr.apps.mu.Lock()
	defer pr.apps.mu.Unlock()

	return pr.apps.write(app.ID, app)
}

func (pr *ProvisioningRepository) Rules(_ context.Context) ([]*models.ProvisioningRule, error) {
	rules, err := readAll[models.ProvisioningRule](pr.rules)
	if err != nil {
		return nil, fmt.Errorf("failed to list rules: %w", err)
	}

	sort.Slice(rules, func(i, j int) bool { return rules[i].CreatedAt.Before(rules[j].CreatedAt) })

	return rules, nil
}

func (pr *ProvisioningRepository) SaveRule(_ context.Context, rule *models.ProvisioningRule) error {
	pr.rules.mu.Lock()
	defer pr.rules.mu.Unlock()

	return pr.rules.write(rule.ID, rule)
}

func (pr *ProvisioningRepository) DeleteRule(_ context.Context, id string) error {
	pr.rules.mu.Lock()
	defer pr.rules.mu.Unlock()

	found, err := pr.rules.remove(id)
	if err != nil {
		return err
	}

	if !found {
		return persistence.ErrRuleNotFound
	}

	return nil
}
