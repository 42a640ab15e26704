package handler

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rolodex/rolodex/api/internal/domain"
	"github.com/rolodex/rolodex/api/internal/dto"
	"github.com/rolodex/rolodex/api/internal/middleware"
	apperrors "github.com/rolodex/rolodex/api/internal/pkg/errors"
	"github.com/rolodex/rolodex/api/internal/service"
	"github.com/rolodex/rolodex/api/internal/validator"
)

// Pagination represents pagination parameters for list operations.
type Pagination struct {
	Limit  int
	Offset int
}

// DefaultPagination provides default pagination values.
var DefaultPagination = Pagination{Limit: service.DefaultPageSize, Offset: 0}

// RequireUserID extracts the owner id from the request context.
// If it is not found, it sends an unauthorized response and returns an error.
func RequireUserID(c *fiber.Ctx) (string, error) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		return "", c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error":   "Unauthorized",
			"message": "User ID not found",
		})
	}
	return userID, nil
}

// ParsePagination extracts limit and offset query parameters with validation.
// maxLimit specifies the maximum allowed limit (0 for no maximum).
func ParsePagination(c *fiber.Ctx, maxLimit int) Pagination {
	p := Pagination{
		Limit:  parseQueryInt(c, "limit", DefaultPagination.Limit),
		Offset: parseQueryInt(c, "offset", DefaultPagination.Offset),
	}

	if p.Limit <= 0 {
		p.Limit = DefaultPagination.Limit
	}
	if maxLimit > 0 && p.Limit > maxLimit {
		p.Limit = maxLimit
	}
	if p.Offset < 0 {
		p.Offset = 0
	}

	return p
}

// parseQueryInt parses an integer query parameter with a default value.
func parseQueryInt(c *fiber.Ctx, key string, defaultValue int) int {
	val := c.Query(key)
	if val == "" {
		return defaultValue
	}
	intVal, err := strconv.Atoi(val)
	if err != nil {
		return defaultValue
	}
	return intVal
}

// parseID parses the :id route parameter.
func parseID(c *fiber.Ctx) (uuid.UUID, error) {
	return uuid.Parse(c.Params("id"))
}

// ErrorResponse represents a standardized error response.
type ErrorResponse struct {
	Error   string                     `json:"error"`
	Message string                     `json:"message"`
	Code    string                     `json:"code,omitempty"`
	Details map[string]string          `json:"details,omitempty"`
	Errors  validator.ValidationErrors `json:"errors,omitempty"`
}

func statusName(statusCode int) string {
	switch statusCode {
	case fiber.StatusBadRequest:
		return "Bad Request"
	case fiber.StatusUnauthorized:
		return "Unauthorized"
	case fiber.StatusForbidden:
		return "Forbidden"
	case fiber.StatusNotFound:
		return "Not Found"
	case fiber.StatusConflict:
		return "Conflict"
	case fiber.StatusMultiStatus:
		return "Multi-Status"
	case fiber.StatusInternalServerError:
		return "Internal Server Error"
	}
	return "Error"
}

// errorResponse creates a standardized JSON error response.
func errorResponse(c *fiber.Ctx, statusCode int, message string) error {
	return c.Status(statusCode).JSON(ErrorResponse{
		Error:   statusName(statusCode),
		Message: message,
	})
}

// handleError translates service errors into responses. Application errors
// keep their status and message; anything else is logged, reported and
// answered with a generic 500.
func handleError(c *fiber.Ctx, logger *zap.Logger, err error) error {
	appErr := apperrors.GetAppError(err)
	if appErr == nil || appErr.StatusCode >= fiber.StatusInternalServerError {
		logger.Error("request failed",
			zap.String("path", c.Path()),
			zap.String("method", c.Method()),
			zap.String("request_id", middleware.GetRequestID(c)),
			zap.Error(err),
		)
		middleware.CaptureError(c, err)
		return errorResponse(c, fiber.StatusInternalServerError, "An unexpected error occurred")
	}

	resp := ErrorResponse{
		Error:   statusName(appErr.StatusCode),
		Message: appErr.Message,
		Code:    appErr.Code,
		Details: appErr.Details,
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		resp.Errors = verrs
	}
	return c.Status(appErr.StatusCode).JSON(resp)
}

// respondSynced writes entity with status, or 207 with the failures when some
// counterpart writes did not apply.
func respondSynced(c *fiber.Ctx, status int, entity any, failures []domain.SyncFailure) error {
	if len(failures) > 0 {
		return c.Status(fiber.StatusMultiStatus).JSON(dto.SyncResponse{
			Data:         entity,
			SyncFailures: failures,
		})
	}
	return c.Status(status).JSON(entity)
}

// respondDeleted writes the result of a cascade delete. A partially applied
// cascade is reported as 207 with the references left behind.
func respondDeleted(c *fiber.Ctx, logger *zap.Logger, what string, cascaded int64, err error) error {
	if err != nil && !apperrors.IsPartialSyncFailure(err) {
		return handleError(c, logger, err)
	}
	resp := dto.DeleteResponse{
		Message:        what + " deleted",
		CascadeDeleted: cascaded,
	}
	if err != nil {
		resp.Unsynced = apperrors.UnsyncedRefs(err)
		return c.Status(fiber.StatusMultiStatus).JSON(resp)
	}
	return c.JSON(resp)
}
