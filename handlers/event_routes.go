// handlers/event_routes.go
package handlers

import (
	"time"

	"guild-bot-system/middleware"
	"guild-bot-system/services"

	"github.com/gofiber/fiber/v2"
)

func SetupEventRoutes(app *fiber.App, events *services.EventService) {
	secured := app.Group("/", middleware.UserContextMiddleware())

	secured.Post("/events", func(c *fiber.Ctx) error {
		var req struct {
			Title       string    `json:"title"`
			Description string    `json:"description"`
			EventAt     time.Time `json:"event_at"`
		}
		if err := c.BodyParser(&req); err != nil || req.Title == "" || req.EventAt.IsZero() {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
		}

		event, err := events.Create(c.UserContext(),
			c.Locals("guild_id").(string), c.Locals("user_id").(string),
			req.Title, req.Description, req.EventAt)
		if err != nil {
			return domainError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(event)
	})

	secured.Get("/events/upcoming", func(c *fiber.Ctx) error {
		list, err := events.Upcoming(c.UserContext(), c.Locals("guild_id").(string))
		if err != nil {
			return domainError(c, err)
		}
		return c.JSON(list)
	})
}
