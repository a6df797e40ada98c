package api

import (
	"go-reporting/internal/common/apperr"

	"github.com/gofiber/fiber/v2"
)

// ErrorResponse maps the error taxonomy onto HTTP statuses. Messages are passed
// through as-is: services only ever name fields and entities the caller is
// already authorized to see.
func ErrorResponse(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	switch apperr.KindOf(err) {
	case apperr.KindValidation:
		status = fiber.StatusBadRequest
	case apperr.KindNotFound:
		status = fiber.StatusNotFound
	case apperr.KindAuthorization:
		status = fiber.StatusForbidden
	case apperr.KindConflict:
		status = fiber.StatusConflict
	case apperr.KindTimeout:
		status = fiber.StatusGatewayTimeout
	case apperr.KindExecution, apperr.KindExport:
		status = fiber.StatusInternalServerError
	}
	return c.Status(status).JSON(fiber.Map{
		"error": err.Error(),
		"kind":  apperr.KindOf(err).String(),
	})
}
