package utils

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
)

// SCIMErrorSchema identifies SCIM error envelopes.
const SCIMErrorSchema = "urn:ietf:params:scim:api:messages:2.0:Error"

// MIMESCIMJSON is the media type SCIM clients are expected to send.
const MIMESCIMJSON = "application/scim+json"

// APIResponse describes the envelope used by the operational endpoints.
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message"`
}

// SCIMError is the error body SCIM clients understand.
type SCIMError struct {
	Schemas []string `json:"schemas"`
	Status  string   `json:"status"`
	Detail  string   `json:"detail,omitempty"`
}

// SendSuccess sends a successful JSON response with a message.
func SendSuccess(c *fiber.Ctx, message string, data interface{}) error {
	if message == "" {
		message = "success"
	}

	return c.Status(fiber.StatusOK).JSON(APIResponse{
		Success: true,
		Data:    data,
		Message: message,
	})
}

// SendError sends an error JSON response with the given status code.
func SendError(c *fiber.Ctx, status int, message string) error {
	if message == "" {
		message = "error"
	}

	return c.Status(status).JSON(APIResponse{
		Success: false,
		Message: message,
	})
}

// ErrorHandler renders errors that reach fiber as the error envelope.
// Only fiber errors expose their message; anything else is reported as an
// internal server error.
func ErrorHandler(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	message := fiber.ErrInternalServerError.Message

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		status = fiberErr.Code
		message = fiberErr.Message
	}

	return SendError(c, status, message)
}

// SendSCIMError replaces the current response with a SCIM error envelope.
func SendSCIMError(c *fiber.Ctx, status int, detail string) error {
	if detail == "" {
		detail = fiber.NewError(status).Message
	}

	return c.Status(status).JSON(SCIMError{
		Schemas: []string{SCIMErrorSchema},
		Status:  strconv.Itoa(status),
		Detail:  detail,
	}, MIMESCIMJSON)
}
