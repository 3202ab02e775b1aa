// Package services provides standardized error types for service layer operations.
package services

import (
	"errors"
	"fmt"

	"github.com/hrdash/lifecycle/pkg/persistence"
	"github.com/hrdash/lifecycle/pkg/protocol"
	"github.com/hrdash/lifecycle/pkg/rules"
)

// Business Logic Errors - These indicate client errors (4xx responses).
var (
	// Validation Errors (400 Bad Request).
	ErrInvalidRequest         = errors.New("invalid request")
	ErrInvalidSortField       = errors.New("invalid sort field")
	ErrInvalidSortOrder       = errors.New("invalid sort order")
	ErrInvalidStatus          = errors.New("invalid workflow status")
	ErrInvalidKind            = errors.New("invalid workflow kind")
	ErrReasonRequired         = errors.New("skip reason is required")
	ErrConfirmationRequired   = errors.New("cancellation must be confirmed")
	ErrInvalidWorkspaceConfig = errors.New("invalid workspace configuration")
	ErrInvalidCondition       = rules.ErrInvalidCondition

	// Not Found Errors (404 Not Found).
	ErrWorkflowNotFound = persistence.ErrWorkflowNotFound
	ErrTaskNotFound     = errors.New("task not found")
	ErrEmployeeNotFound = protocol.ErrEmployeeNotFound
	ErrAppNotFound      = errors.New("application not found")
	ErrRuleNotFound     = persistence.ErrRuleNotFound

	// Business Logic Conflicts (409 Conflict).
	ErrActiveWorkflowExists = persistence.ErrActiveWorkflowExists
	ErrInvalidState         = errors.New("task is not in a state that allows this operation")
	ErrWorkflowNotStarted   = errors.New("workflow has not started yet")
	ErrWorkflowNotScheduled = errors.New("workflow is not waiting for its start date")
	ErrWorkflowClosed       = errors.New("workflow is completed or cancelled")
	ErrTaskRunning          = errors.New("task is already being executed")
	ErrTaskBlocked          = errors.New("task waits for an earlier account step")
	ErrAttemptsExhausted    = errors.New("task has used all of its attempts")
	ErrWorkflowBusy         = errors.New("another workflow operation for this employee is in progress")
)

// ServiceError wraps service-level errors with additional context.
type ServiceError struct {
	Op      string // Operation name
	Code    string // Error code for API responses
	Message string // Human-readable message
	Err     error  // Underlying error
}

func (e *ServiceError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}

	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

// ErrorCode returns the code reported to API clients.
func (e *ServiceError) ErrorCode() string {
	return e.Code
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

func (e *ServiceError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// IsValidationError checks if an error is a validation error that should return HTTP 400.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidRequest) ||
		errors.Is(err, ErrInvalidSortField) ||
		errors.Is(err, ErrInvalidSortOrder) ||
		errors.Is(err, ErrInvalidStatus) ||
		errors.Is(err, ErrInvalidKind) ||
		errors.Is(err, ErrReasonRequired) ||
		errors.Is(err, ErrConfirmationRequired) ||
		errors.Is(err, ErrInvalidWorkspaceConfig) ||
		errors.Is(err, ErrInvalidCondition)
}

// IsNotFoundError checks if an error should return HTTP 404.
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrWorkflowNotFound) ||
		errors.Is(err, ErrTaskNotFound) ||
		errors.Is(err, ErrEmployeeNotFound) ||
		errors.Is(err, ErrAppNotFound) ||
		errors.Is(err, ErrRuleNotFound)
}

// IsConflictError checks if an error is a business logic conflict that should return HTTP 409.
func IsConflictError(err error) bool {
	return errors.Is(err, ErrActiveWorkflowExists) ||
		errors.Is(err, ErrInvalidState) ||
		errors.Is(err, ErrWorkflowNotStarted) ||
		errors.Is(err, ErrWorkflowNotScheduled) ||
		errors.Is(err, ErrWorkflowClosed) ||
		errors.Is(err, ErrTaskRunning) ||
		errors.Is(err, ErrTaskBlocked) ||
		errors.Is(err, ErrAttemptsExhausted) ||
		errors.Is(err, ErrWorkflowBusy)
}

// NewValidationError creates a new validation error with context.
func NewValidationError(op, code, message string, err error) *ServiceError {
	return &ServiceError{
		Op:      op,
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// NewConflictError describes why the current state rejects an operation.
func NewConflictError(op, code, message string, err error) *ServiceError {
	return &ServiceError{
		Op:      op,
		Code:    code,
		Message: message,
		Err:     err,
	}
}
