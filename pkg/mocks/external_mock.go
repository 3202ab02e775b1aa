package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/hrdash/lifecycle/pkg/models"
)

// MockEmployeeDirectory is a mock implementation of protocol.EmployeeDirectory.
type MockEmployeeDirectory struct {
	mock.Mock
}

func (m *MockEmployeeDirectory) GetProfile(ctx context.Context, employeeID string) (*models.EmployeeProfile, error) {
	args := m.Called(ctx, employeeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.EmployeeProfile), args.Error(1)
}

func (m *MockEmployeeDirectory) SetLifecycleStatus(ctx context.Context, employeeID string, status models.LifecycleStatus) error {
	args := m.Called(ctx, employeeID, status)

	return args.Error(0)
}

// MockIdentityProvider is a mock implementation of protocol.IdentityProvider.
type MockIdentityProvider struct {
	mock.Mock
}

func (m *MockIdentityProvider) CreateAccount(ctx context.Context, profile *models.EmployeeProfile) error {
	return m.Called(ctx, profile).Error(0)
}

func (m *MockIdentityProvider) SuspendAccount(ctx context.Context, email string) error {
	return m.Called(ctx, email).Error(0)
}

func (m *MockIdentityProvider) SignOut(ctx context.Context, email string) error {
	return m.Called(ctx, email).Error(0)
}

func (m *MockIdentityProvider) DeleteAccount(ctx context.Context, email string) error {
	return m.Called(ctx, email).Error(0)
}

func (m *MockIdentityProvider) TransferOwnership(ctx context.Context, fromEmail, toEmail string, scopes []models.TransferScope) error {
	return m.Called(ctx, fromEmail, toEmail, scopes).Error(0)
}

func (m *MockIdentityProvider) CreateAlias(ctx context.Context, fromEmail, toEmail string) error {
	return m.Called(ctx, fromEmail, toEmail).Error(0)
}

// MockAppProvisioner is a mock implementation of protocol.AppProvisioner.
type MockAppProvisioner struct {
	mock.Mock
}

func (m *MockAppProvisioner) ProvisionAccess(ctx context.Context, appID string, profile *models.EmployeeProfile) error {
	return m.Called(ctx, appID, profile).Error(0)
}

func (m *MockAppProvisioner) RevokeAll(ctx context.Context, email string) error {
	return m.Called(ctx, email).Error(0)
}
