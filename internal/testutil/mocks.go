// Package testutil provides shared test utilities for the Rolodex API.
package testutil

import (
	"github.com/gofiber/fiber/v2"

	"github.com/rolodex/rolodex/api/internal/middleware"
)

// TestUserMiddleware creates a middleware that sets the owner id in context.
// Use this in tests to simulate authenticated requests.
func TestUserMiddleware(ownerID string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Locals(string(middleware.ContextKeyUserID), ownerID)
		return c.Next()
	}
}

// TestOwnerHeaderMiddleware reads the owner id from the X-Test-Owner header,
// so a single app can serve requests from several owners.
func TestOwnerHeaderMiddleware(fallback string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		owner := c.Get("X-Test-Owner")
		if owner == "" {
			owner = fallback
		}
		c.Locals(string(middleware.ContextKeyUserID), owner)
		return c.Next()
	}
}
