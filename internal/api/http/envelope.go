package http

import (
	"time"

	"github.com/gofiber/fiber/v2"

	apperrors "github.com/spec-kit/raffle-service/pkg/util"
)

// Success writes the standard envelope around payload. Reserved envelope keys
// overwrite payload entries of the same name.
func Success(c *fiber.Ctx, payload fiber.Map) error {
	body := fiber.Map{}
	for key, value := range payload {
		body[key] = value
	}
	now := time.Now().UTC().Format(time.RFC3339)
	body["success"] = true
	body["timestamp"] = now
	body["meta"] = fiber.Map{"timestamp": now}
	return c.JSON(body)
}

// Error writes the standard error envelope and sets the mapped HTTP status.
func Error(c *fiber.Ctx, domainErr *apperrors.DomainError) error {
	now := time.Now().UTC().Format(time.RFC3339)
	body := fiber.Map{
		"success":   false,
		"error":     domainErr.Message,
		"code":      domainErr.Code,
		"status":    domainErr.HTTPStatus,
		"timestamp": now,
		"meta":      fiber.Map{"timestamp": now},
	}
	if len(domainErr.Details) > 0 {
		body["details"] = domainErr.Details
	}
	return c.Status(domainErr.HTTPStatus).JSON(body)
}
