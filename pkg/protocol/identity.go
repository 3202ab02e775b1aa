package protocol

import (
	"context"

	"github.com/hrdash/lifecycle/pkg/models"
)

// IdentityProvider manages accounts in the organisation's identity provider.
// Implementations must be safe to call again after a partial failure.
type IdentityProvider interface {
	CreateAccount(ctx context.Context, profile *models.EmployeeProfile) error
	SuspendAccount(ctx context.Context, email string) error
	SignOut(ctx context.Context, email string) error
	DeleteAccount(ctx context.Context, email string) error
	TransferOwnership(ctx context.Context, fromEmail, toEmail string, scopes []models.TransferScope) error
	// CreateAlias makes fromEmail an alias of the toEmail account.
	CreateAlias(ctx context.Context, fromEmail, toEmail string) error
}

// AppProvisioner grants and revokes access to SaaS applications.
type AppProvisioner interface {
	ProvisionAccess(ctx context.Context, appID string, profile *models.EmployeeProfile) error
	RevokeAll(ctx context.Context, email string) error
}
