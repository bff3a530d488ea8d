package serverutils

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"docqa-be/pkg/rag/session"
)

// ErrorHandlerMiddleware converts service errors into the response
// envelope; nothing escapes as a raw lower-level error.
func ErrorHandlerMiddleware() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		err := ctx.Next()
		if err == nil {
			return nil
		}

		var verr *ValidationError
		switch {
		case errors.As(err, &verr):
			return ctx.Status(fiber.StatusBadRequest).JSON(ErrorResponse(verr.Error()))
		case errors.Is(err, session.ErrNotFound):
			return ctx.Status(fiber.StatusNotFound).JSON(ErrorResponse("Session not found"))
		case errors.Is(err, session.ErrNotReady):
			return ctx.Status(fiber.StatusConflict).JSON(ErrorResponse("Session is not ready"))
		case errors.Is(err, session.ErrInvalidTransition):
			return ctx.Status(fiber.StatusConflict).JSON(ErrorResponse("Operation not valid in the session's current state"))
		case errors.Is(err, session.ErrBusy):
			return ctx.Status(fiber.StatusTooManyRequests).JSON(ErrorResponse("A query is already in progress for this session"))
		default:
			var ferr *fiber.Error
			if errors.As(err, &ferr) {
				return ctx.Status(ferr.Code).JSON(ErrorResponse(ferr.Message))
			}
			return ctx.Status(fiber.StatusInternalServerError).JSON(ErrorResponse("Internal server error"))
		}
	}
}
