package controllers

import (
	"errors"

	"tutorbook_go/middleware"
	"tutorbook_go/services"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

// respondError maps service errors to HTTP status codes. Identity problems are
// reported as 400, like any other invalid request.
func respondError(c *fiber.Ctx, err error) error {
	status := statusFor(err)
	message := err.Error()
	if status == fiber.StatusInternalServerError {
		logrus.WithError(err).WithFields(logrus.Fields{
			"request_id": middleware.GetRequestID(c),
			"method":     c.Method(),
			"path":       c.Path(),
		}).Error("Request failed")
		message = "Internal server error"
	}
	return c.Status(status).JSON(fiber.Map{"error": message})
}

func statusFor(err error) int {
	var idErr invalidIDError
	switch {
	case errors.As(err, &idErr):
		return fiber.StatusBadRequest
	case errors.Is(err, services.ErrForbidden):
		return fiber.StatusForbidden
	case errors.Is(err, services.ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, services.ErrDuplicateRecord):
		return fiber.StatusConflict
	case errors.Is(err, services.ErrArchiveDisabled):
		return fiber.StatusServiceUnavailable
	case errors.Is(err, services.ErrMissingIdentity),
		errors.Is(err, services.ErrUnknownIdentity),
		services.IsRuleViolation(err):
		return fiber.StatusBadRequest
	default:
		return fiber.StatusInternalServerError
	}
}

// invalidIDError reports a missing or non-numeric :id path parameter.
type invalidIDError struct {
	resource string
}

func (e invalidIDError) Error() string {
	return "Invalid " + e.resource + " ID"
}

func parseID(c *fiber.Ctx, resource string) (uint, error) {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return 0, invalidIDError{resource: resource}
	}
	return uint(id), nil
}

func badBody(c *fiber.Ctx) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
}
