package serverutils

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"doc-domains-be/internal/apperrors"
	"doc-domains-be/internal/pkg/logger"
)

type errorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Kind    string `json:"kind,omitempty"`
}

// ErrorHandlerMiddleware translates errors bubbling out of handlers into
// JSON responses. Application errors carry a kind that decides the status.
func ErrorHandlerMiddleware(log logger.ILogger) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		err := ctx.Next()
		if err == nil {
			return nil
		}

		var fiberErr *fiber.Error
		if errors.As(err, &fiberErr) {
			return ctx.Status(fiberErr.Code).JSON(errorResponse{
				Success: false,
				Message: fiberErr.Message,
			})
		}

		var appErr *apperrors.Error
		if errors.As(err, &appErr) {
			status := statusForKind(appErr.Kind)
			if status >= fiber.StatusInternalServerError {
				log.Error("serverutils", "request failed", map[string]interface{}{
					"path":   ctx.Path(),
					"method": ctx.Method(),
					"kind":   string(appErr.Kind),
					"error":  err.Error(),
				})
			}
			return ctx.Status(status).JSON(errorResponse{
				Success: false,
				Message: appErr.Message,
				Kind:    string(appErr.Kind),
			})
		}

		log.Error("serverutils", "unhandled error", map[string]interface{}{
			"path":   ctx.Path(),
			"method": ctx.Method(),
			"error":  err.Error(),
		})
		return ctx.Status(fiber.StatusInternalServerError).JSON(errorResponse{
			Success: false,
			Message: "internal server error",
		})
	}
}

func statusForKind(kind apperrors.Kind) int {
	switch kind {
	case apperrors.KindConfiguration, apperrors.KindUnsupportedFormat, apperrors.KindCorruptFile:
		return fiber.StatusBadRequest
	case apperrors.KindNotFound:
		return fiber.StatusNotFound
	case apperrors.KindAlreadyExists:
		return fiber.StatusConflict
	case apperrors.KindBusy:
		return fiber.StatusConflict
	case apperrors.KindEmbeddingUnavailable, apperrors.KindVectorUnavailable, apperrors.KindGenUnavailable:
		return fiber.StatusServiceUnavailable
	case apperrors.KindPartialFailure:
		return fiber.StatusMultiStatus
	default:
		return fiber.StatusInternalServerError
	}
}
