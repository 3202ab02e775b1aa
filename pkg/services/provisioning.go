package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hrdash/lifecycle/pkg/models"
	"github.com/hrdash/lifecycle/pkg/persistence"
	"github.com/hrdash/lifecycle/pkg/protocol"
	"github.com/hrdash/lifecycle/pkg/rules"
)

// Provisioning manages the application catalog and the rules that decide
// which applications a new hire receives.
type Provisioning struct {
	persistence persistence.Persistence
	directory   protocol.EmployeeDirectory
	logger      *slog.Logger
	clock       func() time.Time
}

func NewProvisioning(persistence persistence.Persistence, directory protocol.EmployeeDirectory, logger *slog.Logger) *Provisioning {
	return &Provisioning{
		persistence: persistence,
		directory:   directory,
		logger:      logger.With("module", "provisioning_service"),
		clock:       time.Now,
	}
}

func (p *Provisioning) ListApps(ctx context.Context) ([]*models.App, error) {
	apps, err := p.persistence.ProvisioningRepository().Apps(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list applications: %w", err)
	}

	return apps, nil
}

type SaveAppRequest struct {
	ID          string `json:"id"          validate:"required,max=100"`
	Name        string `json:"name"        validate:"required,max=255"`
	Description string `json:"description"`
}

// SaveApp creates or replaces an application.
func (p *Provisioning) SaveApp(ctx context.Context, req SaveAppRequest) (*models.App, error) {
	req.ID = strings.TrimSpace(req.ID)
	req.Name = strings.TrimSpace(req.Name)

	if err := validate.Struct(req); err != nil {
		return nil, NewValidationError("SaveApp", "INVALID_APP", err.Error(), ErrInvalidRequest)
	}

	repo := p.persistence.ProvisioningRepository()

	existing, err := repo.AppByID(ctx, req.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load application: %w", err)
	}

	now := p.clock().UTC()
	app := &models.App{
		ID:          req.ID,
		Name:        req.Name,
		Description: req.Description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if existing != nil {
		app.CreatedAt = existing.CreatedAt
	}

	if err := repo.SaveApp(ctx, app); err != nil {
		return nil, fmt.Errorf("failed to save application: %w", err)
	}

	p.logger.InfoContext(ctx, "application saved", "app_id", app.ID)

	return app, nil
}

func (p *Provisioning) ListRules(ctx context.Context) ([]*models.ProvisioningRule, error) {
	list, err := p.persistence.ProvisioningRepository().Rules(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list provisioning rules: %w", err)
	}

	return list, nil
}

type SaveRuleRequest struct {
	ID        string         `json:"id,omitempty"`
	AppID     string         `json:"app_id"`
	Condition map[string]any `json:"condition"`
	IsActive  *bool          `json:"is_active,omitempty"`
}

// SaveRule creates a rule, or replaces the rule with the given id. The
// condition must be a flat object of strings, numbers and booleans, and the
// application must exist. New rules are active unless stated otherwise.
func (p *Provisioning) SaveRule(ctx context.Context, req SaveRuleRequest) (*models.ProvisioningRule, error) {
	req.AppID = strings.TrimSpace(req.AppID)
	if req.AppID == "" {
		return nil, NewValidationError("SaveRule", "APP_REQUIRED", "app_id is required", ErrInvalidRequest)
	}

	if req.ID != "" {
		if _, err := uuid.Parse(req.ID); err != nil {
			return nil, NewValidationError("SaveRule", "INVALID_RULE_ID", "rule id must be a UUID", ErrInvalidRequest)
		}
	}

	if err := rules.ValidateCondition(req.Condition); err != nil {
		return nil, NewValidationError("SaveRule", "INVALID_CONDITION", err.Error(), err)
	}

	repo := p.persistence.ProvisioningRepository()

	app, err := repo.AppByID(ctx, req.AppID)
	if err != nil {
		return nil, fmt.Errorf("failed to load application: %w", err)
	}

	if app == nil {
		return nil, fmt.Errorf("application %s: %w", req.AppID, ErrAppNotFound)
	}

	now := p.clock().UTC()
	rule := &models.ProvisioningRule{
		ID:        req.ID,
		AppID:     req.AppID,
		Condition: req.Condition,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if req.IsActive != nil {
		rule.IsActive = *req.IsActive
	}

	if rule.Condition == nil {
		rule.Condition = map[string]any{}
	}

	if rule.ID == "" {
		rule.ID = uuid.New().String()
	} else {
		existing, err := p.findRule(ctx, rule.ID)
		if err != nil {
			return nil, err
		}

		if existing != nil {
			rule.CreatedAt = existing.CreatedAt
		}
	}

	if err := repo.SaveRule(ctx, rule); err != nil {
		return nil, fmt.Errorf("failed to save provisioning rule: %w", err)
	}

	p.logger.InfoContext(ctx, "provisioning rule saved", "rule_id", rule.ID, "app_id", rule.AppID, "active", rule.IsActive)

	return rule, nil
}

func (p *Provisioning) findRule(ctx context.Context, id string) (*models.ProvisioningRule, error) {
	list, err := p.ListRules(ctx)
	if err != nil {
		return nil, err
	}

	for _, rule := range list {
		if rule.ID == id {
			return rule, nil
		}
	}

	return nil, nil
}

func (p *Provisioning) DeleteRule(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("rule %s: %w", id, ErrRuleNotFound)
	}

	err := p.persistence.ProvisioningRepository().DeleteRule(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to delete provisioning rule: %w", err)
	}

	p.logger.InfoContext(ctx, "provisioning rule deleted", "rule_id", id)

	return nil
}

// PreviewApplicableApps shows which applications an onboarding started now
// would provision for the employee.
func (p *Provisioning) PreviewApplicableApps(ctx context.Context, employeeID string) (rules.Selection, error) {
	profile, err := p.directory.GetProfile(ctx, employeeID)
	if err != nil {
		return rules.Selection{}, fmt.Errorf("failed to load employee %s: %w", employeeID, err)
	}

	repo := p.persistence.ProvisioningRepository()

	apps, err := repo.Apps(ctx)
	if err != nil {
		return rules.Selection{}, fmt.Errorf("failed to load applications: %w", err)
	}

	list, err := repo.Rules(ctx)
	if err != nil {
		return rules.Selection{}, fmt.Errorf("failed to load provisioning rules: %w", err)
	}

	return rules.SelectApplicableApps(profile, apps, list), nil
}
