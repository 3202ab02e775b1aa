// Package directory provides EmployeeDirectory implementations.
package directory

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/hrdash/lifecycle/pkg/httpclient"
	"github.com/hrdash/lifecycle/pkg/models"
	"github.com/hrdash/lifecycle/pkg/protocol"
)

// HTTPDirectory reads employee records from the HR system's REST API.
//
//	GET /employees/{id}                    -> EmployeeProfile
//	PUT /employees/{id}/lifecycle-status   <- {"status": "..."}
type HTTPDirectory struct {
	client *httpclient.Client
	logger *slog.Logger
}

func NewHTTPDirectory(client *httpclient.Client, logger *slog.Logger) *HTTPDirectory {
	return &HTTPDirectory{
		client: client,
		logger: logger.With("module", "http_directory"),
	}
}

func (d *HTTPDirectory) GetProfile(ctx context.Context, employeeID string) (*models.EmployeeProfile, error) {
	var profile models.EmployeeProfile

	err := d.client.Do(ctx, http.MethodGet, "/employees/"+url.PathEscape(employeeID), nil, &profile)
	if err != nil {
		if httpclient.IsStatus(err, http.StatusNotFound) {
			return nil, fmt.Errorf("%w: %s", protocol.ErrEmployeeNotFound, employeeID)
		}

		return nil, fmt.Errorf("failed to fetch employee %s: %w", employeeID, err)
	}

	if profile.ID == "" {
		profile.ID = employeeID
	}

	return &profile, nil
}

type lifecycleStatusRequest struct {
	Status models.LifecycleStatus `json:"status"`
}

func (d *HTTPDirectory) SetLifecycleStatus(ctx context.Context, employeeID string, status models.LifecycleStatus) error {
	path := "/employees/" + url.PathEscape(employeeID) + "/lifecycle-status"

	err := d.client.Do(ctx, http.MethodPut, path, lifecycleStatusRequest{Status: status}, nil)
	if err != nil {
		if httpclient.IsStatus(err, http.StatusNotFound) {
			return fmt.Errorf("%w: %s", protocol.ErrEmployeeNotFound, employeeID)
		}

		return fmt.Errorf("failed to set lifecycle status of employee %s: %w", employeeID, err)
	}

	d.logger.InfoContext(ctx, "lifecycle status updated", "employee_id", employeeID, "status", status)

	return nil
}
