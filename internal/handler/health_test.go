package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func okCheck(name string) HealthCheck {
	return HealthCheck{Name: name, Ping: func(context.Context) error { return nil }}
}

func failingCheck(name string) HealthCheck {
	return HealthCheck{Name: name, Ping: func(context.Context) error { return errors.New("connection refused") }}
}

func TestNewHealthHandler(t *testing.T) {
	t.Run("start time is set to creation time", func(t *testing.T) {
		before := time.Now()
		handler := NewHealthHandler("1.0.0")
		after := time.Now()

		assert.Equal(t, "1.0.0", handler.version)
		assert.False(t, handler.startTime.Before(before))
		assert.False(t, handler.startTime.After(after))
	})
}

func TestHealthHandler_Health(t *testing.T) {
	tests := []struct {
		name       string
		checks     []HealthCheck
		wantStatus int
		wantBody   string
	}{
		{name: "no backends", wantStatus: http.StatusOK, wantBody: "healthy"},
		{name: "all healthy", checks: []HealthCheck{okCheck("mongo"), okCheck("redis")}, wantStatus: http.StatusOK, wantBody: "healthy"},
		{name: "one failing", checks: []HealthCheck{okCheck("mongo"), failingCheck("redis")}, wantStatus: http.StatusServiceUnavailable, wantBody: "unhealthy"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := fiber.New()
			NewHealthHandler("1.0.0", tt.checks...).RegisterRoutes(app)

			resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/health", nil))
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)

			var status HealthStatus
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&status))
			assert.Equal(t, tt.wantBody, status.Status)
			assert.Len(t, status.Checks, len(tt.checks))
			assert.NotEmpty(t, status.Timestamp)
		})
	}
}

func TestHealthHandler_Readiness(t *testing.T) {
	t.Run("ready", func(t *testing.T) {
		app := fiber.New()
		NewHealthHandler("1.0.0", okCheck("postgres")).RegisterRoutes(app)

		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/readyz", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("names the failing backend", func(t *testing.T) {
		app := fiber.New()
		NewHealthHandler("1.0.0", okCheck("postgres"), failingCheck("redis")).RegisterRoutes(app)

		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/readyz", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

		var result map[string]string
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
		assert.Equal(t, "redis unavailable", result["reason"])
	})
}

func TestHealthHandler_Liveness(t *testing.T) {
	app := fiber.New()
	NewHealthHandler("1.0.0", failingCheck("mongo")).RegisterRoutes(app)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/livez", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var result map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	assert.Equal(t, "alive", result["status"])
}

func TestHealthHandler_Version(t *testing.T) {
	app := fiber.New()
	NewHealthHandler("2.1.0").RegisterRoutes(app)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/version", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var result map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	assert.Equal(t, "2.1.0", result["version"])
	assert.NotEmpty(t, result["uptime"])
}
