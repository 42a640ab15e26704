package handler

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/rolodex/rolodex/api/internal/domain"
	"github.com/rolodex/rolodex/api/internal/dto"
	"github.com/rolodex/rolodex/api/internal/service"
)

// PeopleHandler handles person endpoints
type PeopleHandler struct {
	personService     *service.PersonService
	assignmentService *service.AssignmentService
	logger            *zap.Logger
}

// NewPeopleHandler creates a new people handler
func NewPeopleHandler(
	personService *service.PersonService,
	assignmentService *service.AssignmentService,
	logger *zap.Logger,
) *PeopleHandler {
	return &PeopleHandler{
		personService:     personService,
		assignmentService: assignmentService,
		logger:            logger.Named("people_handler"),
	}
}

// List handles GET /v1/people
func (h *PeopleHandler) List(c *fiber.Ctx) error {
	ownerID, err := RequireUserID(c)
	if err != nil {
		return err
	}

	p := ParsePagination(c, service.MaxPageSize)
	list, err := h.personService.List(c.UserContext(), ownerID, p.Limit, p.Offset)
	if err != nil {
		return handleError(c, h.logger, err)
	}

	return c.JSON(list)
}

// Create handles POST /v1/people
func (h *PeopleHandler) Create(c *fiber.Ctx) error {
	ownerID, err := RequireUserID(c)
	if err != nil {
		return err
	}

	var input domain.PersonInput
	if err := dto.ParseBody(c, &input); err != nil {
		return err
	}

	person, failures, err := h.personService.Create(c.UserContext(), ownerID, &input)
	if err != nil {
		return handleError(c, h.logger, err)
	}

	return respondSynced(c, fiber.StatusCreated, person, failures)
}

// Get handles GET /v1/people/:id
func (h *PeopleHandler) Get(c *fiber.Ctx) error {
	ownerID, err := RequireUserID(c)
	if err != nil {
		return err
	}

	id, err := parseID(c)
	if err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Invalid person ID")
	}

	person, err := h.personService.Get(c.UserContext(), ownerID, id)
	if err != nil {
		return handleError(c, h.logger, err)
	}

	return c.JSON(person)
}

// Update handles PATCH /v1/people/:id
func (h *PeopleHandler) Update(c *fiber.Ctx) error {
	ownerID, err := RequireUserID(c)
	if err != nil {
		return err
	}

	id, err := parseID(c)
	if err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Invalid person ID")
	}

	var input domain.PersonUpdateInput
	if err := dto.ParseBody(c, &input); err != nil {
		return err
	}

	person, failures, err := h.personService.Update(c.UserContext(), ownerID, id, &input)
	if err != nil {
		return handleError(c, h.logger, err)
	}

	return respondSynced(c, fiber.StatusOK, person, failures)
}

// Delete handles DELETE /v1/people/:id
func (h *PeopleHandler) Delete(c *fiber.Ctx) error {
	ownerID, err := RequireUserID(c)
	if err != nil {
		return err
	}

	id, err := parseID(c)
	if err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Invalid person ID")
	}

	cascaded, err := h.personService.Delete(c.UserContext(), ownerID, id)
	return respondDeleted(c, h.logger, "Person", cascaded, err)
}

// SyncRelationships handles PUT /v1/people/:id/relationships
func (h *PeopleHandler) SyncRelationships(c *fiber.Ctx) error {
	ownerID, err := RequireUserID(c)
	if err != nil {
		return err
	}

	id, err := parseID(c)
	if err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Invalid person ID")
	}

	var req dto.SyncRelationshipsRequest
	if err := dto.ParseAndValidate(c, &req); err != nil {
		return err
	}

	person, failures, err := h.personService.SyncRelationships(c.UserContext(), ownerID, id, req.Edges, req.Version)
	if err != nil {
		return handleError(c, h.logger, err)
	}

	return respondSynced(c, fiber.StatusOK, person, failures)
}

// Reconcile handles POST /v1/people/:id/relationships/reconcile
func (h *PeopleHandler) Reconcile(c *fiber.Ctx) error {
	ownerID, err := RequireUserID(c)
	if err != nil {
		return err
	}

	id, err := parseID(c)
	if err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Invalid person ID")
	}

	result, err := h.personService.Reconcile(c.UserContext(), ownerID, id)
	if err != nil {
		return handleError(c, h.logger, err)
	}

	return reconcileResponse(c, result)
}

// Assignments handles GET /v1/people/:id/assignments
func (h *PeopleHandler) Assignments(c *fiber.Ctx) error {
	ownerID, err := RequireUserID(c)
	if err != nil {
		return err
	}

	id, err := parseID(c)
	if err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Invalid person ID")
	}

	rows, err := h.assignmentService.ListByPerson(c.UserContext(), ownerID, id)
	if err != nil {
		return handleError(c, h.logger, err)
	}

	return c.JSON(dto.ListResponse[domain.AssignmentWithOrganization]{Data: rows, Count: len(rows)})
}

// RegisterRoutes registers person routes on an authenticated router
func (h *PeopleHandler) RegisterRoutes(r fiber.Router) {
	people := r.Group("/people")
	people.Get("/", h.List)
	people.Post("/", h.Create)
	people.Get("/:id", h.Get)
	people.Patch("/:id", h.Update)
	people.Delete("/:id", h.Delete)
	people.Put("/:id/relationships", h.SyncRelationships)
	people.Post("/:id/relationships/reconcile", h.Reconcile)
	people.Get("/:id/assignments", h.Assignments)
}
