package handler

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/rolodex/rolodex/api/internal/service"
)

// ExportsHandler handles snapshot export endpoints
type ExportsHandler struct {
	exportService *service.ExportService
	logger        *zap.Logger
}

// NewExportsHandler creates a new exports handler
func NewExportsHandler(exportService *service.ExportService, logger *zap.Logger) *ExportsHandler {
	return &ExportsHandler{
		exportService: exportService,
		logger:        logger.Named("exports_handler"),
	}
}

// Create handles POST /v1/exports. The snapshot is written in the
// background; poll GET /v1/exports/:id for the download link.
func (h *ExportsHandler) Create(c *fiber.Ctx) error {
	ownerID, err := RequireUserID(c)
	if err != nil {
		return err
	}

	status, err := h.exportService.RequestExport(c.UserContext(), ownerID)
	if err != nil {
		return handleError(c, h.logger, err)
	}

	h.logger.Info("export requested",
		zap.String("owner_id", ownerID),
		zap.String("export_id", status.ID.String()),
		zap.String("status", status.Status),
	)

	return c.Status(fiber.StatusAccepted).JSON(status)
}

// Get handles GET /v1/exports/:id
func (h *ExportsHandler) Get(c *fiber.Ctx) error {
	ownerID, err := RequireUserID(c)
	if err != nil {
		return err
	}

	id, err := parseID(c)
	if err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Invalid export ID")
	}

	status, err := h.exportService.GetExport(c.UserContext(), ownerID, id)
	if err != nil {
		return handleError(c, h.logger, err)
	}

	return c.JSON(status)
}

// RegisterRoutes registers export routes on an authenticated router
func (h *ExportsHandler) RegisterRoutes(r fiber.Router) {
	r.Post("/exports", h.Create)
	r.Get("/exports/:id", h.Get)
}
