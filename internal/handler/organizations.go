package handler

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/rolodex/rolodex/api/internal/domain"
	"github.com/rolodex/rolodex/api/internal/dto"
	"github.com/rolodex/rolodex/api/internal/service"
)

// OrganizationsHandler handles organization endpoints
type OrganizationsHandler struct {
	orgService        *service.OrganizationService
	assignmentService *service.AssignmentService
	logger            *zap.Logger
}

// NewOrganizationsHandler creates a new organizations handler
func NewOrganizationsHandler(
	orgService *service.OrganizationService,
	assignmentService *service.AssignmentService,
	logger *zap.Logger,
) *OrganizationsHandler {
	return &OrganizationsHandler{
		orgService:        orgService,
		assignmentService: assignmentService,
		logger:            logger.Named("organizations_handler"),
	}
}

// List handles GET /v1/organizations
func (h *OrganizationsHandler) List(c *fiber.Ctx) error {
	ownerID, err := RequireUserID(c)
	if err != nil {
		return err
	}

	p := ParsePagination(c, service.MaxPageSize)
	list, err := h.orgService.List(c.UserContext(), ownerID, p.Limit, p.Offset)
	if err != nil {
		return handleError(c, h.logger, err)
	}

	return c.JSON(list)
}

// Create handles POST /v1/organizations
func (h *OrganizationsHandler) Create(c *fiber.Ctx) error {
	ownerID, err := RequireUserID(c)
	if err != nil {
		return err
	}

	var input domain.OrganizationInput
	if err := dto.ParseBody(c, &input); err != nil {
		return err
	}

	org, failures, err := h.orgService.Create(c.UserContext(), ownerID, &input)
	if err != nil {
		return handleError(c, h.logger, err)
	}

	return respondSynced(c, fiber.StatusCreated, org, failures)
}

// Get handles GET /v1/organizations/:id
func (h *OrganizationsHandler) Get(c *fiber.Ctx) error {
	ownerID, err := RequireUserID(c)
	if err != nil {
		return err
	}

	id, err := parseID(c)
	if err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Invalid organization ID")
	}

	org, err := h.orgService.Get(c.UserContext(), ownerID, id)
	if err != nil {
		return handleError(c, h.logger, err)
	}

	return c.JSON(org)
}

// Update handles PATCH /v1/organizations/:id
func (h *OrganizationsHandler) Update(c *fiber.Ctx) error {
	ownerID, err := RequireUserID(c)
	if err != nil {
		return err
	}

	id, err := parseID(c)
	if err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Invalid organization ID")
	}

	var input domain.OrganizationUpdateInput
	if err := dto.ParseBody(c, &input); err != nil {
		return err
	}

	org, failures, err := h.orgService.Update(c.UserContext(), ownerID, id, &input)
	if err != nil {
		return handleError(c, h.logger, err)
	}

	return respondSynced(c, fiber.StatusOK, org, failures)
}

// Delete handles DELETE /v1/organizations/:id
func (h *OrganizationsHandler) Delete(c *fiber.Ctx) error {
	ownerID, err := RequireUserID(c)
	if err != nil {
		return err
	}

	id, err := parseID(c)
	if err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Invalid organization ID")
	}

	cascaded, err := h.orgService.Delete(c.UserContext(), ownerID, id)
	return respondDeleted(c, h.logger, "Organization", cascaded, err)
}

// SyncRelationships handles PUT /v1/organizations/:id/relationships
func (h *OrganizationsHandler) SyncRelationships(c *fiber.Ctx) error {
	ownerID, err := RequireUserID(c)
	if err != nil {
		return err
	}

	id, err := parseID(c)
	if err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Invalid organization ID")
	}

	var req dto.SyncRelationshipsRequest
	if err := dto.ParseAndValidate(c, &req); err != nil {
		return err
	}

	org, failures, err := h.orgService.SyncRelationships(c.UserContext(), ownerID, id, req.Edges, req.Version)
	if err != nil {
		return handleError(c, h.logger, err)
	}

	return respondSynced(c, fiber.StatusOK, org, failures)
}

// Reconcile handles POST /v1/organizations/:id/relationships/reconcile
func (h *OrganizationsHandler) Reconcile(c *fiber.Ctx) error {
	ownerID, err := RequireUserID(c)
	if err != nil {
		return err
	}

	id, err := parseID(c)
	if err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Invalid organization ID")
	}

	result, err := h.orgService.Reconcile(c.UserContext(), ownerID, id)
	if err != nil {
		return handleError(c, h.logger, err)
	}

	return reconcileResponse(c, result)
}

// Assignments handles GET /v1/organizations/:id/assignments
func (h *OrganizationsHandler) Assignments(c *fiber.Ctx) error {
	ownerID, err := RequireUserID(c)
	if err != nil {
		return err
	}

	id, err := parseID(c)
	if err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Invalid organization ID")
	}

	rows, err := h.assignmentService.ListByOrganization(c.UserContext(), ownerID, id)
	if err != nil {
		return handleError(c, h.logger, err)
	}

	return c.JSON(dto.ListResponse[domain.AssignmentWithPerson]{Data: rows, Count: len(rows)})
}

// RegisterRoutes registers organization routes on an authenticated router
func (h *OrganizationsHandler) RegisterRoutes(r fiber.Router) {
	orgs := r.Group("/organizations")
	orgs.Get("/", h.List)
	orgs.Post("/", h.Create)
	orgs.Get("/:id", h.Get)
	orgs.Patch("/:id", h.Update)
	orgs.Delete("/:id", h.Delete)
	orgs.Put("/:id/relationships", h.SyncRelationships)
	orgs.Post("/:id/relationships/reconcile", h.Reconcile)
	orgs.Get("/:id/assignments", h.Assignments)
}

func reconcileResponse(c *fiber.Ctx, result *domain.SyncResult) error {
	resp := dto.ReconcileResponse{
		Data:         result.Node,
		Diff:         result.Diff,
		SyncFailures: result.Failures,
	}
	if result.HasFailures() {
		return c.Status(fiber.StatusMultiStatus).JSON(resp)
	}
	return c.JSON(resp)
}
