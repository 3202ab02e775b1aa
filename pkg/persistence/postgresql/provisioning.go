package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hrdash/lifecycle/pkg/models"
	"github.com/hrdash/lifecycle/pkg/persistence"
)

// ProvisioningRepository handles applications and provisioning rules.
type ProvisioningRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewProvisioningRepository(db *sql.DB, logger *slog.Logger) *ProvisioningRepository {
	return &ProvisioningRepository{db: db, logger: logger}
}

func (r *ProvisioningRepository) Apps(ctx context.Context) ([]*models.App, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, description, created_at, updated_at
		FROM applications
		ORDER BY name
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query applications: %w", err)
	}

	defer func() {
		if err := rows.Close(); err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	apps := make([]*models.App, 0)

	for rows.Next() {
		var app models.App
		if err := rows.Scan(&app.ID, &app.Name, &app.Description, &app.CreatedAt, &app.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan application: %w", err)
		}

		apps = append(apps, &app)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating applications: %w", err)
	}

	return apps, nil
}

func (r *ProvisioningRepository) AppByID(ctx context.Context, id string) (*models.App, error) {
	var app models.App

	err := r.db.QueryRowContext(ctx, `
		SELECT id, name, description, created_at, updated_at
		FROM applications
		WHERE id = $1
	`, id).Scan(&app.ID, &app.Name, &app.Description, &app.CreatedAt, &app.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}

		return nil, fmt.Errorf("failed to query application %s: %w", id, err)
	}

	return &app, nil
}

func (r *ProvisioningRepository) SaveApp(ctx context.Context, app *models.App) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO applications (id, name, description, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			updated_at = EXCLUDED.updated_at
	`, app.ID, app.Name, app.Description, app.CreatedAt, app.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save application %s: %w", app.ID, err)
	}

	return nil
}

func (r *ProvisioningRepository) Rules(ctx context.Context) ([]*models.ProvisioningRule, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, app_id, condition, is_active, created_at, updated_at
		FROM provisioning_rules
		ORDER BY created_at
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query provisioning rules: %w", err)
	}

	defer func() {
		if err := rows.Close(); err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	rules := make([]*models.ProvisioningRule, 0)

	for rows.Next() {
		var (
			rule          models.ProvisioningRule
			conditionJSON []byte
		)

		err := rows.Scan(&rule.ID, &rule.AppID, &conditionJSON, &rule.IsActive, &rule.CreatedAt, &rule.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan provisioning rule: %w", err)
		}

		if err := json.Unmarshal(conditionJSON, &rule.Condition); err != nil {
			return nil, fmt.Errorf("failed to unmarshal rule condition: %w", err)
		}

		rules = append(rules, &rule)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating provisioning rules: %w", err)
	}

	return rules, nil
}

func (r *ProvisioningRepository) SaveRule(ctx context.Context, rule *models.ProvisioningRule) error {
	condition := rule.Condition
	if condition == nil {
		condition = map[string]any{}
	}

	conditionJSON, err := json.Marshal(condition)
	if err != nil {
		return fmt.Errorf("failed to marshal rule condition: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO provisioning_rules (id, app_id, condition, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			app_id = EXCLUDED.app_id,
			condition = EXCLUDED.condition,
			is_active = EXCLUDED.is_active,
			updated_at = EXCLUDED.updated_at
	`, rule.ID, rule.AppID, conditionJSON, rule.IsActive, rule.CreatedAt, rule.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save provisioning rule %s: %w", rule.ID, err)
	}

	return nil
}

func (r *ProvisioningRepository) DeleteRule(ctx context.Context, id string) error {
	if !isUUID(id) {
		return persistence.ErrRuleNotFound
	}

	result, err := r.db.ExecContext(ctx, `DELETE FROM provisioning_rules WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete provisioning rule %s: %w", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if affected == 0 {
		return persistence.ErrRuleNotFound
	}

	return nil
}
