package middleware

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/rolodex/rolodex/api/internal/domain"
)

// MockTokenValidator mocks the AuthService for testing
type MockTokenValidator struct {
	mock.Mock
}

func (m *MockTokenValidator) ValidateJWT(ctx context.Context, token string) (*domain.JWTClaims, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.JWTClaims), args.Error(1)
}

func TestExtractBearerToken(t *testing.T) {
	tests := []struct {
		name          string
		header        string
		expectedToken string
	}{
		{
			name:          "JWT token from Bearer header",
			header:        "Bearer eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9.eyJzdWIiOiIxIn0.sig",
			expectedToken: "eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9.eyJzdWIiOiIxIn0.sig",
		},
		{
			name:          "lowercase scheme",
			header:        "bearer abc.def.ghi",
			expectedToken: "abc.def.ghi",
		},
		{
			name:   "basic auth is ignored",
			header: "Basic dXNlcjpwYXNz",
		},
		{
			name:   "empty bearer",
			header: "Bearer ",
		},
		{
			name: "no Authorization header",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := fiber.New()

			var extracted string
			app.Get("/test", func(c *fiber.Ctx) error {
				extracted = extractBearerToken(c)
				return c.SendStatus(200)
			})

			req := httptest.NewRequest("GET", "/test", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}

			_, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.expectedToken, extracted)
		})
	}
}

func TestGetUserID(t *testing.T) {
	t.Run("returns user ID from context", func(t *testing.T) {
		app := fiber.New()

		app.Get("/test", func(c *fiber.Ctx) error {
			c.Locals(string(ContextKeyUserID), "user-1")
			id, ok := GetUserID(c)
			assert.True(t, ok)
			assert.Equal(t, "user-1", id)
			return c.SendStatus(200)
		})

		_, err := app.Test(httptest.NewRequest("GET", "/test", nil))
		require.NoError(t, err)
	})

	t.Run("returns false when user ID not in context", func(t *testing.T) {
		app := fiber.New()

		app.Get("/test", func(c *fiber.Ctx) error {
			id, ok := GetUserID(c)
			assert.False(t, ok)
			assert.Empty(t, id)
			return c.SendStatus(200)
		})

		_, err := app.Test(httptest.NewRequest("GET", "/test", nil))
		require.NoError(t, err)
	})
}

func TestRequireJWTHandler(t *testing.T) {
	newApp := func(v TokenValidator) *fiber.App {
		app := fiber.New()
		app.Use(NewAuthMiddleware(v).RequireJWT())
		app.Get("/test", func(c *fiber.Ctx) error {
			id, _ := GetUserID(c)
			return c.SendString(id)
		})
		return app
	}

	t.Run("returns 401 when no JWT provided", func(t *testing.T) {
		resp, err := newApp(nil).Test(httptest.NewRequest("GET", "/test", nil))
		require.NoError(t, err)

		assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
		body, _ := io.ReadAll(resp.Body)
		assert.Contains(t, string(body), "Authorization header required")
	})

	t.Run("returns 401 for an invalid token", func(t *testing.T) {
		v := new(MockTokenValidator)
		v.On("ValidateJWT", mock.Anything, "bad").Return(nil, errors.New("expired"))

		req := httptest.NewRequest("GET", "/test", nil)
		req.Header.Set("Authorization", "Bearer bad")
		resp, err := newApp(v).Test(req)
		require.NoError(t, err)

		assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
		body, _ := io.ReadAll(resp.Body)
		assert.Contains(t, string(body), "Invalid or expired token")
		v.AssertExpectations(t)
	})

	t.Run("rejects claims without a user id", func(t *testing.T) {
		v := new(MockTokenValidator)
		v.On("ValidateJWT", mock.Anything, "tok").Return(&domain.JWTClaims{}, nil)

		req := httptest.NewRequest("GET", "/test", nil)
		req.Header.Set("Authorization", "Bearer tok")
		resp, err := newApp(v).Test(req)
		require.NoError(t, err)

		assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("stores the user id", func(t *testing.T) {
		v := new(MockTokenValidator)
		v.On("ValidateJWT", mock.Anything, "tok").Return(&domain.JWTClaims{UserID: "user-42", Email: "a@b.c"}, nil)

		req := httptest.NewRequest("GET", "/test", nil)
		req.Header.Set("Authorization", "Bearer tok")
		resp, err := newApp(v).Test(req)
		require.NoError(t, err)

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		body, _ := io.ReadAll(resp.Body)
		assert.Equal(t, "user-42", string(body))
	})
}

func TestOptionalAuthHandler(t *testing.T) {
	t.Run("continues without auth", func(t *testing.T) {
		app := fiber.New()
		app.Use(NewAuthMiddleware(nil).OptionalAuth())
		app.Get("/test", func(c *fiber.Ctx) error {
			return c.SendStatus(200)
		})

		resp, err := app.Test(httptest.NewRequest("GET", "/test", nil))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	})

	t.Run("continues with an invalid token", func(t *testing.T) {
		v := new(MockTokenValidator)
		v.On("ValidateJWT", mock.Anything, "bad").Return(nil, errors.New("nope"))

		app := fiber.New()
		app.Use(NewAuthMiddleware(v).OptionalAuth())
		app.Get("/test", func(c *fiber.Ctx) error {
			_, ok := GetUserID(c)
			assert.False(t, ok)
			return c.SendStatus(200)
		})

		req := httptest.NewRequest("GET", "/test", nil)
		req.Header.Set("Authorization", "Bearer bad")
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	})
}
