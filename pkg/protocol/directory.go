// Package protocol defines the contracts between the lifecycle engine and the
// external systems it drives.
package protocol

import (
	"context"
	"errors"

	"github.com/hrdash/lifecycle/pkg/models"
)

var ErrEmployeeNotFound = errors.New("employee not found")

// EmployeeDirectory is the system of record for employee data.
type EmployeeDirectory interface {
	// GetProfile returns the employee's profile or ErrEmployeeNotFound.
	GetProfile(ctx context.Context, employeeID string) (*models.EmployeeProfile, error)

	// SetLifecycleStatus updates the lifecycle status shown on the employee record.
	SetLifecycleStatus(ctx context.Context, employeeID string, status models.LifecycleStatus) error
}
