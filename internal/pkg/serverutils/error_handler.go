package serverutils

import (
	"errors"

	"ai-learning-assistant-be/internal/repository/memory"
	"ai-learning-assistant-be/pkg/assistant/document"
	"ai-learning-assistant-be/pkg/assistant/session"

	"github.com/gofiber/fiber/v2"
)

// ErrorHandlerMiddleware turns errors returned by handlers into the JSON envelope.
func ErrorHandlerMiddleware() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		err := ctx.Next()
		if err == nil {
			return nil
		}
		status, errorType := StatusFor(err)
		return ctx.Status(status).JSON(TypedErrorResponse(status, err.Error(), errorType))
	}
}

// FiberErrorHandler is the app-level fallback for errors raised outside the
// middleware chain (routing, body limits).
func FiberErrorHandler(ctx *fiber.Ctx, err error) error {
	status, errorType := StatusFor(err)
	return ctx.Status(status).JSON(TypedErrorResponse(status, err.Error(), errorType))
}

func StatusFor(err error) (int, string) {
	var inputErr *session.InputError
	if errors.As(err, &inputErr) {
		if inputErr == session.ErrQueryInFlight {
			return fiber.StatusConflict, inputErr.Code
		}
		return fiber.StatusBadRequest, inputErr.Code
	}

	var validationErr *ValidationError
	if errors.As(err, &validationErr) {
		return fiber.StatusBadRequest, "validation_error"
	}

	switch {
	case errors.Is(err, memory.ErrSessionNotFound):
		return fiber.StatusNotFound, "session_not_found"
	case errors.Is(err, document.ErrUnsupportedType):
		return fiber.StatusUnsupportedMediaType, "unsupported_file_type"
	case errors.Is(err, document.ErrFileTooLarge):
		return fiber.StatusRequestEntityTooLarge, "file_too_large"
	case errors.Is(err, document.ErrInvalidEncoding), errors.Is(err, document.ErrEmptyFile):
		return fiber.StatusBadRequest, "invalid_file"
	}

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return fiberErr.Code, ""
	}

	return fiber.StatusInternalServerError, "internal_error"
}
