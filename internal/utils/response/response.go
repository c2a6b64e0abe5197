package response

import (
	"errors"

	apperrors "tipjar/internal/errors"

	"github.com/gofiber/fiber/v2"
)

func Success(c *fiber.Ctx, message string, data interface{}) error {
	return c.JSON(fiber.Map{
		"message": message,
		"data":    data,
	})
}

func Error(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(fiber.Map{
		"error": message,
	})
}

// DomainError renders a classified error with its stable code. Unclassified
// errors fall back to a plain message so internals never leak.
func DomainError(c *fiber.Ctx, status int, err error) error {
	var derr *apperrors.DomainError
	if errors.As(err, &derr) {
		return c.Status(status).JSON(fiber.Map{
			"error": derr.Message,
			"code":  derr.Code,
		})
	}
	return Error(c, status, err.Error())
}

func BadRequest(c *fiber.Ctx, message string) error {
	return Error(c, fiber.StatusBadRequest, message)
}

func ServerError(c *fiber.Ctx, message string) error {
	return Error(c, fiber.StatusInternalServerError, message)
}

func ValidationError(c *fiber.Ctx, fields map[string]string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"error":  "Validation failed",
		"fields": fields,
	})
}
