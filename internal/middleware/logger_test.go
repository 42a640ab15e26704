package middleware

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestRedactBody(t *testing.T) {
	t.Run("redacts sensitive keys at any depth", func(t *testing.T) {
		raw := `{"name":"Ada","email":"ada@example.com","Password":"x",
			"organizations":[{"organizationId":"o1","notes":"private"}],
			"linkedinUserId":"ada","phone":"555"}`

		var got map[string]any
		require.NoError(t, json.Unmarshal([]byte(RedactBody([]byte(raw), 0)), &got))

		assert.Equal(t, "Ada", got["name"])
		assert.Equal(t, redacted, got["email"])
		assert.Equal(t, redacted, got["Password"])
		assert.Equal(t, redacted, got["linkedinUserId"])
		assert.Equal(t, redacted, got["phone"])
		orgs := got["organizations"].([]any)
		edge := orgs[0].(map[string]any)
		assert.Equal(t, "o1", edge["organizationId"])
		assert.Equal(t, redacted, edge["notes"])
	})

	t.Run("non JSON body is not echoed", func(t *testing.T) {
		assert.Equal(t, "[unparseable body]", RedactBody([]byte("password=hunter2"), 0))
	})

	t.Run("truncates long bodies", func(t *testing.T) {
		raw := `{"name":"` + strings.Repeat("a", 100) + `"}`
		out := RedactBody([]byte(raw), 20)
		assert.True(t, strings.HasSuffix(out, "...(truncated)"))
		assert.Len(t, out, 20+len("...(truncated)"))
	})
}

func TestLoggerMiddleware(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	cfg := DefaultLoggerConfig(zap.New(core))
	cfg.IncludeBody = true

	app := fiber.New()
	app.Use(RequestID())
	app.Use(func(c *fiber.Ctx) error {
		c.Locals(string(ContextKeyUserID), "owner-7")
		return c.Next()
	})
	app.Use(NewLoggerMiddleware(cfg).Handler())
	app.Post("/v1/people", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusCreated)
	})

	req := httptest.NewRequest("POST", "/v1/people", strings.NewReader(`{"name":"Ada","email":"ada@example.com"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-ID", "req-1")
	_, err := app.Test(req)
	require.NoError(t, err)

	entries := logs.FilterMessage("request completed").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "req-1", fields["request_id"])
	assert.Equal(t, "owner-7", fields["owner_id"])
	assert.Equal(t, int64(201), fields["status"])
	assert.NotContains(t, fields["body"], "ada@example.com")
	assert.Contains(t, fields["body"], "Ada")
}

func TestLoggerMiddleware_SkipsHealth(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	cfg := DefaultLoggerConfig(zap.New(core))
	cfg.Skip = HealthSkipper

	app := fiber.New()
	app.Use(NewLoggerMiddleware(cfg).Handler())
	app.Get("/livez", func(c *fiber.Ctx) error { return c.SendStatus(200) })

	_, err := app.Test(httptest.NewRequest("GET", "/livez", nil))
	require.NoError(t, err)
	assert.Zero(t, logs.Len())
}

func TestRecoverWithSentry(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)

	app := fiber.New()
	app.Use(RequestID())
	app.Use(RecoverWithSentry(zap.New(core), false))
	app.Get("/boom", func(c *fiber.Ctx) error {
		panic("kaboom")
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/boom", nil))
	require.NoError(t, err)

	assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)
	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "Internal Server Error", body["error"])
	assert.NotEmpty(t, body["request_id"])
	assert.Equal(t, 1, logs.FilterMessage("panic recovered").Len())
}
