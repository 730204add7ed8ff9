package middleware_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/scim-mock-server/internal/middleware"
	"github.com/noah-isme/scim-mock-server/internal/observability"
	"github.com/noah-isme/scim-mock-server/internal/utils"
)

func newApp(t *testing.T, logs io.Writer) *fiber.App {
	t.Helper()

	logger := zerolog.New(logs)
	app := fiber.New()
	middleware.Register(app, middleware.Config{Logger: &logger, AccessLog: io.Discard})
	return app
}

func TestRegisterSetsCORSAndSecurityHeaders(t *testing.T) {
	app := newApp(t, io.Discard)
	app.Get("/Users", func(c *fiber.Ctx) error { return c.SendString("ok") })

	req := httptest.NewRequest(http.MethodGet, "/Users", nil)
	req.Header.Set(fiber.HeaderOrigin, "http://client.example")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)

	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get(fiber.HeaderAccessControlAllowOrigin))
	assert.Equal(t, "nosniff", resp.Header.Get(fiber.HeaderXContentTypeOptions))
	assert.NotEmpty(t, resp.Header.Get(middleware.HeaderCorrelationID))
}

func TestRegisterAnswersPreflight(t *testing.T) {
	app := newApp(t, io.Discard)
	app.Post("/Users", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusCreated) })

	req := httptest.NewRequest(http.MethodOptions, "/Users", nil)
	req.Header.Set(fiber.HeaderOrigin, "http://client.example")
	req.Header.Set(fiber.HeaderAccessControlRequestMethod, http.MethodPost)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)

	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get(fiber.HeaderAccessControlAllowOrigin))
	assert.Equal(t, middleware.CORSAllowMethods, resp.Header.Get(fiber.HeaderAccessControlAllowMethods))
	assert.Equal(t, middleware.CORSAllowHeaders, resp.Header.Get(fiber.HeaderAccessControlAllowHeaders))
}

func TestCorrelationIDIsPropagated(t *testing.T) {
	var logs bytes.Buffer
	app := newApp(t, &logs)
	app.Get("/echo", func(c *fiber.Ctx) error {
		return c.SendString(middleware.GetCorrelationID(c) + "|" + middleware.CorrelationIDFromContext(c.UserContext()))
	})

	req := httptest.NewRequest(http.MethodGet, "/echo", nil)
	req.Header.Set(middleware.HeaderCorrelationID, "corr-123")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "corr-123|corr-123", string(body))
	assert.Equal(t, "corr-123", resp.Header.Get(middleware.HeaderCorrelationID))
}

func TestObservabilityCountsAndLogsFailures(t *testing.T) {
	var logs bytes.Buffer
	app := newApp(t, &logs)
	app.Get("/boom/:id", func(c *fiber.Ctx) error {
		return fiber.NewError(fiber.StatusBadGateway, "upstream")
	})

	counter := observability.HTTPRequests().WithLabelValues(http.MethodGet, "/boom/:id", "502")
	before := testutil.ToFloat64(counter)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/boom/7", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadGateway, resp.StatusCode)

	assert.Equal(t, before+1, testutil.ToFloat64(counter))

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(logs.Bytes()), &line))
	assert.Equal(t, "error", line["level"])
	assert.Equal(t, "/boom/:id", line["route"])
	assert.EqualValues(t, 502, line["status"])
}

func TestRequireSCIMMediaType(t *testing.T) {
	app := fiber.New()
	app.Use(middleware.RequireSCIMMediaType())
	app.All("/Users", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })

	cases := []struct {
		name        string
		method      string
		contentType string
		status      int
	}{
		{name: "scim json", method: http.MethodPost, contentType: "application/scim+json", status: fiber.StatusOK},
		{name: "scim json with charset", method: http.MethodPut, contentType: "application/scim+json; charset=utf-8", status: fiber.StatusOK},
		{name: "plain json", method: http.MethodPost, contentType: "application/json", status: fiber.StatusUnsupportedMediaType},
		{name: "missing", method: http.MethodPut, contentType: "", status: fiber.StatusUnsupportedMediaType},
		{name: "delete ignores type", method: http.MethodDelete, contentType: "text/plain", status: fiber.StatusOK},
		{name: "get ignores type", method: http.MethodGet, contentType: "", status: fiber.StatusOK},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(tc.method, "/Users", strings.NewReader(`{}`))
			if tc.contentType != "" {
				req.Header.Set(fiber.HeaderContentType, tc.contentType)
			}
			resp, err := app.Test(req, -1)
			require.NoError(t, err)
			assert.Equal(t, tc.status, resp.StatusCode)
		})
	}
}

func TestFailWithRunsHandlerFirst(t *testing.T) {
	calls := 0
	app := fiber.New()
	app.Use(middleware.FailWith(fiber.StatusInternalServerError))
	app.Post("/Users", func(c *fiber.Ctx) error {
		calls++
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"id": "abc"})
	})

	counter := observability.InjectedFailures().WithLabelValues(middleware.ReasonConfigured, "500")
	before := testutil.ToFloat64(counter)

	resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/Users", nil), -1)
	require.NoError(t, err)

	assert.Equal(t, 1, calls)
	assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, before+1, testutil.ToFloat64(counter))

	var payload utils.SCIMError
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	assert.Equal(t, "500", payload.Status)
}

func TestFailWithZeroIsNoop(t *testing.T) {
	app := fiber.New()
	app.Use(middleware.FailWith(0))
	app.Delete("/Users/:id", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusNoContent) })

	resp, err := app.Test(httptest.NewRequest(http.MethodDelete, "/Users/1", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)
}

func TestRateLimitAnswers429AfterMax(t *testing.T) {
	app := fiber.New()
	app.Use(middleware.RateLimit("test", 2, time.Minute))
	app.Get("/Users", func(c *fiber.Ctx) error { return c.SendString("ok") })

	statuses := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/Users", nil), -1)
		require.NoError(t, err)
		statuses = append(statuses, resp.StatusCode)
	}

	assert.Equal(t, []int{fiber.StatusOK, fiber.StatusOK, fiber.StatusTooManyRequests}, statuses)
}

func TestRateLimitZeroIsNoop(t *testing.T) {
	app := fiber.New()
	app.Use(middleware.RateLimit("test", 0, time.Minute))
	app.Get("/Users", func(c *fiber.Ctx) error { return c.SendString("ok") })

	for i := 0; i < 5; i++ {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/Users", nil), -1)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	}
}
