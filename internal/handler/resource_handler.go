package handler

import (
	"context"
	"net/url"
	"time"

	"github.com/gofiber/fiber/v2"
	fiberutils "github.com/gofiber/fiber/v2/utils"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/noah-isme/scim-mock-server/internal/journal"
	"github.com/noah-isme/scim-mock-server/internal/middleware"
	"github.com/noah-isme/scim-mock-server/internal/payload"
	"github.com/noah-isme/scim-mock-server/internal/resource"
)

// JSDateLayout renders timestamps the way JavaScript's Date.prototype.toString does.
const JSDateLayout = "Mon Jan 02 2006 15:04:05 GMT-0700 (MST)"

// ListPrefix starts every list response body.
const ListPrefix = "jodu "

// Recorder persists journal entries.
type Recorder interface {
	Append(ctx context.Context, entry journal.Entry) error
}

// ResourceHandler serves the mock endpoints of one resource kind. Every
// matched request gets a canned response; mutating requests are recorded
// before answering.
type ResourceHandler struct {
	kind     resource.Kind
	recorder Recorder
	logger   zerolog.Logger
	now      func() time.Time
	newID    func() string
}

// ResourceOption customises a ResourceHandler.
type ResourceOption func(*ResourceHandler)

// WithClock overrides the clock used for list responses.
func WithClock(now func() time.Time) ResourceOption {
	return func(h *ResourceHandler) {
		if now != nil {
			h.now = now
		}
	}
}

// WithIDGenerator overrides how created resources are identified.
func WithIDGenerator(newID func() string) ResourceOption {
	return func(h *ResourceHandler) {
		if newID != nil {
			h.newID = newID
		}
	}
}

// NewResourceHandler constructs a ResourceHandler for kind.
func NewResourceHandler(kind resource.Kind, recorder Recorder, logger zerolog.Logger, opts ...ResourceOption) *ResourceHandler {
	h := &ResourceHandler{
		kind:     kind,
		recorder: recorder,
		logger:   logger.With().Str("component", "resource_handler").Str("resource", kind.String()).Logger(),
		now:      time.Now,
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Kind reports the resource kind served by the handler.
func (h *ResourceHandler) Kind() resource.Kind {
	return h.kind
}

// Register mounts the resource routes on the provided router.
func (h *ResourceHandler) Register(router fiber.Router) {
	router.Post("", h.Create)
	router.Put("", h.Replace)
	router.Put("/:id", h.Replace)
	router.Delete("/:id", h.Delete)
	router.Get("", h.List)
}

// Create records the request body and answers 201 with a fresh identifier.
func (h *ResourceHandler) Create(c *fiber.Ctx) error {
	id := h.newID()
	record := payload.Inspect(payload.Decode(c.Get(fiber.HeaderContentType), c.Body()))

	h.record(c, journal.OperationCreate, id, record)

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"id": id})
}

// Replace records the request body and answers 200 with an empty body.
func (h *ResourceHandler) Replace(c *fiber.Ctx) error {
	id := resourceID(c)
	record := payload.Inspect(payload.Decode(c.Get(fiber.HeaderContentType), c.Body()))

	h.record(c, journal.OperationReplace, id, record)

	return c.Status(fiber.StatusOK).Send(nil)
}

// Delete records the deletion of the identified resource and answers 204.
func (h *ResourceHandler) Delete(c *fiber.Ctx) error {
	id := resourceID(c)

	h.record(c, journal.OperationDelete, id, payload.Deleted(id))

	return c.SendStatus(fiber.StatusNoContent)
}

// List answers with the canned list text stamped with the current time.
func (h *ResourceHandler) List(c *fiber.Ctx) error {
	logger := h.operationLogger(c, "list")
	logger.Debug().Msg("list requested")
	return c.SendString(ListPrefix + h.now().Format(JSDateLayout))
}

func (h *ResourceHandler) record(c *fiber.Ctx, operation journal.Operation, id, record string) {
	logger := h.operationLogger(c, string(operation))
	entry := journal.Entry{
		Kind:       h.kind,
		Operation:  operation,
		ResourceID: id,
		Record:     record,
		RequestID:  middleware.GetCorrelationID(c),
	}

	if err := h.recorder.Append(c.UserContext(), entry); err != nil {
		logger.Error().Err(err).Str("id", id).Msg("failed to journal request")
		return
	}

	logger.Info().Str("id", id).Msg("request journaled")
}

// operationLogger binds the correlation id and operation of the active request.
func (h *ResourceHandler) operationLogger(c *fiber.Ctx, operation string) zerolog.Logger {
	ctx := h.logger.With().Str("operation", operation)
	if correlation := middleware.GetCorrelationID(c); correlation != "" {
		ctx = ctx.Str("correlation_id", correlation)
	}
	return ctx.Logger()
}

// resourceID returns the percent-decoded :id segment, or the raw segment
// when it is not valid escaping.
func resourceID(c *fiber.Ctx) string {
	raw := fiberutils.CopyString(c.Params("id"))
	if decoded, err := url.PathUnescape(raw); err == nil {
		return decoded
	}
	return raw
}
