package middleware

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/rolodex/rolodex/api/internal/domain"
)

// ContextKey type for context keys
type ContextKey string

const (
	// Context keys
	ContextKeyUserID ContextKey = "userID"
	ContextKeyEmail  ContextKey = "email"
)

// TokenValidator validates access tokens. *service.AuthService satisfies it.
type TokenValidator interface {
	ValidateJWT(ctx context.Context, token string) (*domain.JWTClaims, error)
}

// AuthMiddleware handles authentication
type AuthMiddleware struct {
	validator TokenValidator
}

// NewAuthMiddleware creates a new auth middleware
func NewAuthMiddleware(validator TokenValidator) *AuthMiddleware {
	return &AuthMiddleware{
		validator: validator,
	}
}

// RequireJWT validates JWT authentication and stores the user id, which is
// also the owner id of every record the request touches.
func (m *AuthMiddleware) RequireJWT() fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := extractBearerToken(c)
		if token == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error":   "Unauthorized",
				"message": "Authorization header required",
			})
		}

		claims, err := m.validator.ValidateJWT(c.UserContext(), token)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error":   "Unauthorized",
				"message": "Invalid or expired token",
			})
		}

		if strings.TrimSpace(claims.UserID) == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error":   "Unauthorized",
				"message": "Invalid user ID in token",
			})
		}

		c.Locals(string(ContextKeyUserID), claims.UserID)
		c.Locals(string(ContextKeyEmail), claims.Email)

		return c.Next()
	}
}

// OptionalAuth tries to authenticate but continues even if it fails
func (m *AuthMiddleware) OptionalAuth() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if token := extractBearerToken(c); token != "" {
			if claims, err := m.validator.ValidateJWT(c.UserContext(), token); err == nil && claims.UserID != "" {
				c.Locals(string(ContextKeyUserID), claims.UserID)
				c.Locals(string(ContextKeyEmail), claims.Email)
			}
		}
		return c.Next()
	}
}

// extractBearerToken extracts JWT from Authorization header
func extractBearerToken(c *fiber.Ctx) string {
	auth := c.Get("Authorization")
	if len(auth) > 7 && strings.EqualFold(auth[:7], "Bearer ") {
		return strings.TrimSpace(auth[7:])
	}
	return ""
}

// GetUserID gets the authenticated user id from context
func GetUserID(c *fiber.Ctx) (string, bool) {
	userID, ok := c.Locals(string(ContextKeyUserID)).(string)
	return userID, ok && userID != ""
}

// GetEmail gets the authenticated user's email from context
func GetEmail(c *fiber.Ctx) (string, bool) {
	email, ok := c.Locals(string(ContextKeyEmail)).(string)
	return email, ok
}
