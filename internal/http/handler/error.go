package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"cardapi/internal/apperr"
	"cardapi/internal/http/middleware"
)

// errorPayload defines the standardized error response body.
type errorPayload struct {
	RequestID string        `json:"request_id"`
	Error     errorEnvelope `json:"error"`
}

type errorEnvelope struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// requestIDFromCtx extracts request_id previously stored by middleware.RequestID.
func requestIDFromCtx(c *fiber.Ctx) string {
	if v := c.Locals(middleware.RequestIDLocalKey); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// writeError writes a standardized JSON error response without leaking internal errors.
func writeError(c *fiber.Ctx, status int, code, message string) error {
	return c.Status(status).JSON(errorPayload{
		RequestID: requestIDFromCtx(c),
		Error: errorEnvelope{
			Code:    code,
			Message: message,
		},
	})
}

// writeServiceError maps service errors to responses. Only validation messages
// are passed through; everything else gets a fixed message.
func writeServiceError(c *fiber.Ctx, err error) error {
	var appErr *apperr.Error
	if !errors.As(err, &appErr) {
		return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
	}
	switch appErr.Code {
	case apperr.CodeNotFound:
		return writeError(c, fiber.StatusNotFound, "NOT_FOUND", appErr.Message)
	case apperr.CodeInvalidInput:
		return writeError(c, fiber.StatusBadRequest, "INVALID_INPUT", appErr.Message)
	case apperr.CodeAssetLoad:
		return writeError(c, fiber.StatusBadGateway, "ASSET_LOAD_FAILED", "contact photo could not be loaded")
	case apperr.CodeEncoding:
		return writeError(c, fiber.StatusInternalServerError, "ENCODING_FAILED", "contact photo could not be encoded")
	case apperr.CodeDownloadTrigger:
		return writeError(c, fiber.StatusInternalServerError, "DOWNLOAD_FAILED", "contact card could not be delivered")
	default:
		return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
	}
}

// ErrorHandler returns a Fiber global error handler that standardizes error responses.
func ErrorHandler() fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		status := fiber.StatusInternalServerError
		var fe *fiber.Error
		if errors.As(err, &fe) {
			status = fe.Code
		}

		switch status {
		case fiber.StatusBadRequest:
			return writeError(c, status, "BAD_REQUEST", "bad request")
		case fiber.StatusNotFound:
			return writeError(c, status, "NOT_FOUND", "resource not found")
		case fiber.StatusMethodNotAllowed:
			return writeError(c, status, "METHOD_NOT_ALLOWED", "method not allowed")
		case fiber.StatusRequestEntityTooLarge:
			return writeError(c, status, "PAYLOAD_TOO_LARGE", "payload too large")
		default:
			return writeError(c, status, "INTERNAL_ERROR", "internal server error")
		}
	}
}
