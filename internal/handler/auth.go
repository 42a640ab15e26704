package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rolodex/rolodex/api/internal/domain"
	"github.com/rolodex/rolodex/api/internal/dto"
	"github.com/rolodex/rolodex/api/internal/service"
)

// AuthHandler handles authentication endpoints
type AuthHandler struct {
	authService *service.AuthService
	logger      *zap.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService *service.AuthService, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		logger:      logger.Named("auth_handler"),
	}
}

// Login handles POST /v1/auth/login
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var input domain.LoginInput
	if err := dto.ParseBody(c, &input); err != nil {
		return err
	}

	result, err := h.authService.Login(c.UserContext(), &input)
	if err != nil {
		return handleError(c, h.logger, err)
	}

	return c.JSON(result)
}

// Register handles POST /v1/auth/register
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var input domain.RegisterInput
	if err := dto.ParseBody(c, &input); err != nil {
		return err
	}

	result, err := h.authService.Register(c.UserContext(), &input)
	if err != nil {
		return handleError(c, h.logger, err)
	}

	h.logger.Info("user registered", zap.String("user_id", result.User.ID.String()))
	return c.Status(fiber.StatusCreated).JSON(result)
}

// Me handles GET /v1/auth/me
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	userID, err := RequireUserID(c)
	if err != nil {
		return err
	}

	id, err := uuid.Parse(userID)
	if err != nil {
		return errorResponse(c, fiber.StatusUnauthorized, "Invalid user ID in token")
	}

	user, err := h.authService.GetUserByID(c.UserContext(), id)
	if err != nil {
		return handleError(c, h.logger, err)
	}

	return c.JSON(user)
}

// RegisterPublicRoutes registers the routes that issue tokens
func (h *AuthHandler) RegisterPublicRoutes(r fiber.Router) {
	auth := r.Group("/auth")
	auth.Post("/register", h.Register)
	auth.Post("/login", h.Login)
}

// RegisterRoutes registers auth routes on an authenticated router
func (h *AuthHandler) RegisterRoutes(r fiber.Router) {
	r.Get("/auth/me", h.Me)
}
