package middleware

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestCORS(t *testing.T) {
	tests := []struct {
		name       string
		origins    []string
		origin     string
		wantOrigin string
	}{
		{name: "any origin", origin: "https://app.example.com", wantOrigin: "*"},
		{name: "listed origin", origins: []string{"https://app.example.com"}, origin: "https://app.example.com", wantOrigin: "https://app.example.com"},
		{name: "wildcard subdomain", origins: []string{"*.example.com"}, origin: "https://crm.example.com", wantOrigin: "https://crm.example.com"},
		{name: "unlisted origin", origins: []string{"https://app.example.com"}, origin: "https://evil.test"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := fiber.New()
			app.Use(CORS(DefaultCORSConfig(tt.origins)))
			app.Get("/test", func(c *fiber.Ctx) error { return c.SendStatus(200) })

			req := httptest.NewRequest("GET", "/test", nil)
			req.Header.Set("Origin", tt.origin)
			resp, err := app.Test(req)
			require.NoError(t, err)

			assert.Equal(t, tt.wantOrigin, resp.Header.Get("Access-Control-Allow-Origin"))
			assert.Empty(t, resp.Header.Get("Access-Control-Allow-Credentials"))
		})
	}

	t.Run("preflight", func(t *testing.T) {
		app := fiber.New()
		app.Use(CORS(DefaultCORSConfig(nil)))

		req := httptest.NewRequest("OPTIONS", "/v1/people", nil)
		req.Header.Set("Origin", "https://app.example.com")
		resp, err := app.Test(req)
		require.NoError(t, err)

		assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)
		assert.Equal(t, "86400", resp.Header.Get("Access-Control-Max-Age"))
		assert.Contains(t, resp.Header.Get("Access-Control-Allow-Methods"), "PATCH")
	})
}

func TestOwnerKey(t *testing.T) {
	app := fiber.New()
	var anonymous, authed string
	app.Get("/anon", func(c *fiber.Ctx) error {
		anonymous = OwnerKey(c)
		return nil
	})
	app.Get("/authed", func(c *fiber.Ctx) error {
		c.Locals(string(ContextKeyUserID), "owner-1")
		authed = OwnerKey(c)
		return nil
	})

	_, err := app.Test(httptest.NewRequest("GET", "/anon", nil))
	require.NoError(t, err)
	_, err = app.Test(httptest.NewRequest("GET", "/authed", nil))
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(anonymous, "ip:"))
	assert.Equal(t, "owner:owner-1", authed)
}

func TestRateLimit_DisabledPassesThrough(t *testing.T) {
	cfg := DefaultRateLimitConfig()
	cfg.Max = 0

	app := fiber.New()
	app.Use(NewRateLimitMiddleware(nil, zap.NewNop(), cfg).Handler())
	app.Get("/test", func(c *fiber.Ctx) error { return c.SendStatus(200) })

	resp, err := app.Test(httptest.NewRequest("GET", "/test", nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
	assert.Empty(t, resp.Header.Get("X-RateLimit-Limit"))
}

func TestRoutePathLabel(t *testing.T) {
	app := fiber.New()
	var label string
	app.Get("/v1/people/:id", func(c *fiber.Ctx) error {
		label = RoutePathLabel(c)
		return nil
	})

	_, err := app.Test(httptest.NewRequest("GET", "/v1/people/123", nil))
	require.NoError(t, err)
	assert.Equal(t, "/v1/people/:id", label)
}
