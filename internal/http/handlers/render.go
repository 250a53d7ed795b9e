package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"gardenly/internal/domain"
)

var kindStatus = map[domain.Kind]int{
	domain.KindInvalidArgument:    fiber.StatusBadRequest,
	domain.KindUnauthenticated:    fiber.StatusUnauthorized,
	domain.KindForbidden:          fiber.StatusForbidden,
	domain.KindNotFound:           fiber.StatusNotFound,
	domain.KindInvalidState:       fiber.StatusBadRequest,
	domain.KindEmptyCart:          fiber.StatusBadRequest,
	domain.KindInsufficientStock:  fiber.StatusBadRequest,
	domain.KindOTPExpired:         fiber.StatusBadRequest,
	domain.KindOTPMismatch:        fiber.StatusBadRequest,
	domain.KindOTPAlreadyUsed:     fiber.StatusBadRequest,
	domain.KindNotificationFailed: fiber.StatusInternalServerError,
	domain.KindPersistence:        fiber.StatusInternalServerError,
}

// fail maps a service error onto the JSON error surface. Infrastructure
// failures keep their kind but never leak their message.
func fail(c *fiber.Ctx, err error) error {
	kind := domain.KindOf(err)
	status, ok := kindStatus[kind]
	if !ok {
		status = fiber.StatusInternalServerError
	}

	body := fiber.Map{"error": string(kind)}
	if status < fiber.StatusInternalServerError {
		body["message"] = err.Error()
		var de *domain.Error
		if errors.As(err, &de) && len(de.Fields) > 0 {
			body["fields"] = de.Fields
		}
	} else {
		body["message"] = "something went wrong, please try again"
	}
	return c.Status(status).JSON(body)
}
