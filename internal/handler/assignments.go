package handler

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/rolodex/rolodex/api/internal/domain"
	"github.com/rolodex/rolodex/api/internal/dto"
	"github.com/rolodex/rolodex/api/internal/service"
)

// AssignmentsHandler handles assignment endpoints
type AssignmentsHandler struct {
	assignmentService *service.AssignmentService
	logger            *zap.Logger
}

// NewAssignmentsHandler creates a new assignments handler
func NewAssignmentsHandler(assignmentService *service.AssignmentService, logger *zap.Logger) *AssignmentsHandler {
	return &AssignmentsHandler{
		assignmentService: assignmentService,
		logger:            logger.Named("assignments_handler"),
	}
}

// List handles GET /v1/assignments
func (h *AssignmentsHandler) List(c *fiber.Ctx) error {
	ownerID, err := RequireUserID(c)
	if err != nil {
		return err
	}

	p := ParsePagination(c, service.MaxPageSize)
	list, err := h.assignmentService.List(c.UserContext(), ownerID, p.Limit, p.Offset)
	if err != nil {
		return handleError(c, h.logger, err)
	}

	return c.JSON(list)
}

// Create handles POST /v1/assignments
func (h *AssignmentsHandler) Create(c *fiber.Ctx) error {
	ownerID, err := RequireUserID(c)
	if err != nil {
		return err
	}

	var input domain.AssignmentInput
	if err := dto.ParseBody(c, &input); err != nil {
		return err
	}

	a, err := h.assignmentService.Create(c.UserContext(), ownerID, &input)
	if err != nil {
		return handleError(c, h.logger, err)
	}

	return c.Status(fiber.StatusCreated).JSON(a)
}

// Get handles GET /v1/assignments/:id
func (h *AssignmentsHandler) Get(c *fiber.Ctx) error {
	ownerID, err := RequireUserID(c)
	if err != nil {
		return err
	}

	id, err := parseID(c)
	if err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Invalid assignment ID")
	}

	a, err := h.assignmentService.Get(c.UserContext(), ownerID, id)
	if err != nil {
		return handleError(c, h.logger, err)
	}

	return c.JSON(a)
}

// Update handles PATCH /v1/assignments/:id
func (h *AssignmentsHandler) Update(c *fiber.Ctx) error {
	ownerID, err := RequireUserID(c)
	if err != nil {
		return err
	}

	id, err := parseID(c)
	if err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Invalid assignment ID")
	}

	var input domain.AssignmentUpdateInput
	if err := dto.ParseBody(c, &input); err != nil {
		return err
	}

	a, err := h.assignmentService.Update(c.UserContext(), ownerID, id, &input)
	if err != nil {
		return handleError(c, h.logger, err)
	}

	return c.JSON(a)
}

// Delete handles DELETE /v1/assignments/:id
func (h *AssignmentsHandler) Delete(c *fiber.Ctx) error {
	ownerID, err := RequireUserID(c)
	if err != nil {
		return err
	}

	id, err := parseID(c)
	if err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Invalid assignment ID")
	}

	if err := h.assignmentService.Delete(c.UserContext(), ownerID, id); err != nil {
		return handleError(c, h.logger, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// RegisterRoutes registers assignment routes on an authenticated router
func (h *AssignmentsHandler) RegisterRoutes(r fiber.Router) {
	assignments := r.Group("/assignments")
	assignments.Get("/", h.List)
	assignments.Post("/", h.Create)
	assignments.Get("/:id", h.Get)
	assignments.Patch("/:id", h.Update)
	assignments.Delete("/:id", h.Delete)
}
