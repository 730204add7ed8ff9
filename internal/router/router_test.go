package router_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/scim-mock-server/internal/config"
	"github.com/noah-isme/scim-mock-server/internal/handler"
	"github.com/noah-isme/scim-mock-server/internal/journal"
	"github.com/noah-isme/scim-mock-server/internal/resource"
	"github.com/noah-isme/scim-mock-server/internal/router"
	"github.com/noah-isme/scim-mock-server/internal/utils"
)

func newRouterApp(t *testing.T, cfg config.Config) (*fiber.App, *journal.Journal) {
	t.Helper()

	j, err := journal.New(t.TempDir())
	require.NoError(t, err)

	logger := zerolog.New(io.Discard)
	handlers := make([]*handler.ResourceHandler, 0, len(cfg.Resources))
	for _, kind := range cfg.Resources {
		handlers = append(handlers, handler.NewResourceHandler(kind, j, logger))
	}

	app := fiber.New(fiber.Config{ErrorHandler: utils.ErrorHandler})
	router.Register(app, cfg, router.Dependencies{ResourceHandlers: handlers})
	return app, j
}

func TestRegisterMountsEveryKind(t *testing.T) {
	cfg := config.Config{AppName: "mock", AppEnv: "test", Resources: resource.Defaults()}
	app, j := newRouterApp(t, cfg)

	for _, kind := range resource.Defaults() {
		req := httptest.NewRequest(http.MethodPost, kind.Prefix(""), strings.NewReader(`{"kind":"`+kind.String()+`"}`))
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)

		resp, err := app.Test(req, -1)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusCreated, resp.StatusCode, kind.String())

		data, err := os.ReadFile(j.Path(kind))
		require.NoError(t, err)
		assert.Contains(t, string(data), "kind: '"+kind.String()+"'")
	}
}

func TestRegisterHonoursBasePath(t *testing.T) {
	cfg := config.Config{BasePath: "/scim/v2", Resources: []resource.Kind{resource.Users}}
	app, _ := newRouterApp(t, cfg)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/scim/v2/Users", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/Users", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	var envelope utils.APIResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))
	assert.False(t, envelope.Success)
	assert.Equal(t, "Cannot GET /Users", envelope.Message)
}

func TestRegisterServesOperationalEndpoints(t *testing.T) {
	app, _ := newRouterApp(t, config.Config{Resources: []resource.Kind{resource.Users}})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil), -1)
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, handler.HomeMessage, string(body))

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/health", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/metrics", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	body, err = io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "go_goroutines")
}

func TestRegisterAppliesFaultInjection(t *testing.T) {
	cfg := config.Config{
		Resources:       []resource.Kind{resource.Users},
		FailWith:        fiber.StatusServiceUnavailable,
		StrictMediaType: true,
	}
	app, j := newRouterApp(t, cfg)

	req := httptest.NewRequest(http.MethodPost, "/Users", strings.NewReader(`{}`))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnsupportedMediaType, resp.StatusCode)

	req = httptest.NewRequest(http.MethodPost, "/Users", strings.NewReader(`{"userName":"bob"}`))
	req.Header.Set(fiber.HeaderContentType, "application/scim+json")
	resp, err = app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusServiceUnavailable, resp.StatusCode)

	data, err := os.ReadFile(j.Path(resource.Users))
	require.NoError(t, err)
	assert.Equal(t, "{\n  userName: 'bob'\n}\n---\n", string(data))

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/health", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}
