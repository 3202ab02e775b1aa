// Package web provides HTTP handlers and REST API endpoints for employee lifecycle management.
package web

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"

	"github.com/hrdash/lifecycle/pkg/models"
	"github.com/hrdash/lifecycle/pkg/services"
)

type APIHandlers struct {
	lifecycle    *services.Lifecycle
	provisioning *services.Provisioning
	validator    *validator.Validate
}

func NewAPIHandlers(
	lifecycle *services.Lifecycle,
	provisioning *services.Provisioning,
	validator *validator.Validate,
) *APIHandlers {
	return &APIHandlers{
		lifecycle:    lifecycle,
		provisioning: provisioning,
		validator:    validator,
	}
}

// Register mounts every endpoint on router.
func (h *APIHandlers) Register(router fiber.Router) {
	w := router.Group("/workflows")
	w.Get("/", h.GetWorkflows)
	w.Post("/", h.StartWorkflow)
	w.Get("/:id", h.GetWorkflow)
	w.Post("/:id/activate", h.ActivateWorkflow)
	w.Post("/:id/cancel", h.CancelWorkflow)

	t := router.Group("/tasks")
	t.Post("/:id/run", h.RunTask)
	t.Post("/:id/complete", h.CompleteTask)
	t.Post("/:id/skip", h.SkipTask)

	router.Get("/apps", h.ListApps)
	router.Post("/apps", h.SaveApp)
	router.Get("/rules", h.ListRules)
	router.Post("/rules", h.SaveRule)
	router.Delete("/rules/:id", h.DeleteRule)

	router.Get("/employees/:id/applicable-apps", h.GetApplicableApps)

	router.Get("/health", h.HealthCheck)
}

func (h *APIHandlers) GetWorkflows(c fiber.Ctx) error {
	req, err := h.parseListWorkflowsRequest(c)
	if err != nil {
		return badRequest(c, "Invalid query parameters: "+err.Error())
	}

	result, err := h.lifecycle.ListWorkflows(c.Context(), *req)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{
		"workflows":     result.Workflows,
		"total_count":   result.TotalCount,
		"has_next_page": result.HasNextPage,
		"pagination": fiber.Map{
			"limit":  req.Limit,
			"offset": req.Offset,
		},
		"sorting": fiber.Map{
			"sort_by":    req.SortBy,
			"sort_order": req.SortOrder,
		},
	})
}

// parseListWorkflowsRequest parses query parameters for listing workflows.
func (h *APIHandlers) parseListWorkflowsRequest(c fiber.Ctx) (*services.ListWorkflowsRequest, error) {
	req := &services.ListWorkflowsRequest{}

	if limitStr := c.Query("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil {
			return nil, err
		}

		req.Limit = limit
	}

	if offsetStr := c.Query("offset"); offsetStr != "" {
		offset, err := strconv.Atoi(offsetStr)
		if err != nil {
			return nil, err
		}

		req.Offset = offset
	}

	req.EmployeeID = c.Query("employee_id")

	if kindStr := c.Query("kind"); kindStr != "" {
		kind := models.WorkflowKind(kindStr)
		req.Kind = &kind
	}

	if statusStr := c.Query("status"); statusStr != "" {
		status := models.WorkflowStatus(statusStr)
		req.Status = &status
	}

	req.SortBy = c.Query("sort_by")
	req.SortOrder = c.Query("sort_order")

	return req, nil
}

func (h *APIHandlers) StartWorkflow(c fiber.Ctx) error {
	var req StartWorkflowRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	workflow, err := h.lifecycle.Start(c.Context(), req.toService())
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(workflow)
}

func (h *APIHandlers) GetWorkflow(c fiber.Ctx) error {
	workflow, err := h.lifecycle.GetWorkflow(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(workflow)
}

func (h *APIHandlers) ActivateWorkflow(c fiber.Ctx) error {
	workflow, err := h.lifecycle.Activate(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(workflow)
}

func (h *APIHandlers) CancelWorkflow(c fiber.Ctx) error {
	var req CancelWorkflowRequest
	if len(c.Body()) > 0 {
		if err := c.Bind().JSON(&req); err != nil {
			return badRequest(c, "Invalid JSON format")
		}
	}

	workflow, err := h.lifecycle.Cancel(c.Context(), c.Params("id"), req.Confirm)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(workflow)
}

func (h *APIHandlers) RunTask(c fiber.Ctx) error {
	task, err := h.lifecycle.RunTask(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return h.taskResponse(c, task)
}

func (h *APIHandlers) CompleteTask(c fiber.Ctx) error {
	var req CompleteTaskRequest
	if len(c.Body()) > 0 {
		if err := c.Bind().JSON(&req); err != nil {
			return badRequest(c, "Invalid JSON format")
		}
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	task, err := h.lifecycle.CompleteManualTask(c.Context(), c.Params("id"), req.Notes)
	if err != nil {
		return handleServiceError(c, err)
	}

	return h.taskResponse(c, task)
}

func (h *APIHandlers) SkipTask(c fiber.Ctx) error {
	var req SkipTaskRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	task, err := h.lifecycle.SkipTask(c.Context(), c.Params("id"), req.Reason)
	if err != nil {
		return handleServiceError(c, err)
	}

	return h.taskResponse(c, task)
}

func (h *APIHandlers) taskResponse(c fiber.Ctx, task *models.Task) error {
	workflow, err := h.lifecycle.GetWorkflow(c.Context(), task.WorkflowID)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(TaskResponse{
		Task: task,
		Workflow: WorkflowSummary{
			ID:       workflow.ID,
			Status:   workflow.Status,
			Progress: workflow.Progress,
		},
	})
}

func (h *APIHandlers) ListApps(c fiber.Ctx) error {
	apps, err := h.provisioning.ListApps(c.Context())
	if err != nil {
		return internalError(c, err)
	}

	return c.JSON(fiber.Map{"apps": apps})
}

func (h *APIHandlers) SaveApp(c fiber.Ctx) error {
	var req SaveAppRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	app, err := h.provisioning.SaveApp(c.Context(), services.SaveAppRequest{
		ID:          req.ID,
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(app)
}

func (h *APIHandlers) ListRules(c fiber.Ctx) error {
	rules, err := h.provisioning.ListRules(c.Context())
	if err != nil {
		return internalError(c, err)
	}

	return c.JSON(fiber.Map{"rules": rules})
}

func (h *APIHandlers) SaveRule(c fiber.Ctx) error {
	var req SaveRuleRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	rule, err := h.provisioning.SaveRule(c.Context(), services.SaveRuleRequest{
		ID:        req.ID,
		AppID:     req.AppID,
		Condition: req.Condition,
		IsActive:  req.IsActive,
	})
	if err != nil {
		return handleServiceError(c, err)
	}

	status := fiber.StatusOK
	if req.ID == "" {
		status = fiber.StatusCreated
	}

	return c.Status(status).JSON(rule)
}

func (h *APIHandlers) DeleteRule(c fiber.Ctx) error {
	err := h.provisioning.DeleteRule(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) GetApplicableApps(c fiber.Ctx) error {
	selection, err := h.provisioning.PreviewApplicableApps(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{
		"employee_id": c.Params("id"),
		"matched":     nonNil(selection.Matched),
		"unmatched":   nonNil(selection.Unmatched),
	})
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	repositoryCheck, ok := h.lifecycle.HealthCheck(c.Context())

	status := "unhealthy"
	message := "Lifecycle API is unhealthy"
	httpStatus := http.StatusInternalServerError

	if ok {
		status = "healthy"
		message = "Lifecycle API is healthy"
		httpStatus = http.StatusOK
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status":  status,
		"message": message,
		"checkers": fiber.Map{
			"repository": repositoryCheck,
		},
		"timestamp": time.Now().UTC(),
	})
}

func nonNil(apps []*models.App) []*models.App {
	if apps == nil {
		return []*models.App{}
	}

	return apps
}
