// handlers/respond.go
package handlers

import (
	"errors"
	"log"

	"guild-bot-system/services"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// domainError maps domain errors to responses the gateway renders for the
// user. Anything unrecognized is a store/infra failure: logged, generic 500.
func domainError(c *fiber.Ctx, err error) error {
	var cooldown *services.ClaimCooldownError
	switch {
	case errors.As(err, &cooldown):
		return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
			"error":             "claim on cooldown",
			"claim":             cooldown.Claim,
			"remaining_seconds": int64(cooldown.Remaining.Seconds()),
		})
	case errors.Is(err, services.ErrInsufficientFunds),
		errors.Is(err, services.ErrInvalidAmount),
		errors.Is(err, services.ErrInvalidEventTime),
		errors.Is(err, services.ErrNothingToSplit),
		errors.Is(err, services.ErrNoParticipants):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, services.ErrSessionAlreadyActive):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, services.ErrNoActiveSession):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, services.ErrForbidden):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, gorm.ErrRecordNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not found"})
	default:
		log.Printf("[HTTP] Internal error on %s: %v", c.Path(), err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal error"})
	}
}

func requireAdmin(c *fiber.Ctx) bool {
	isAdmin, _ := c.Locals("is_admin").(bool)
	return isAdmin
}
