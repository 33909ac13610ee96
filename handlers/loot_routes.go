// handlers/loot_routes.go
package handlers

import (
	"guild-bot-system/middleware"
	"guild-bot-system/services"

	"github.com/gofiber/fiber/v2"
)

func SetupLootRoutes(app *fiber.App, loot *services.LootService) {
	secured := app.Group("/", middleware.UserContextMiddleware())

	secured.Post("/loot/start", func(c *fiber.Ctx) error {
		var req struct {
			ChannelID string `json:"channel_id"`
		}
		if err := c.BodyParser(&req); err != nil || req.ChannelID == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
		}

		session, err := loot.Start(c.UserContext(),
			c.Locals("guild_id").(string), req.ChannelID, c.Locals("user_id").(string))
		if err != nil {
			return domainError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(session)
	})

	secured.Post("/loot/join", func(c *fiber.Ctx) error {
		var req struct {
			ChannelID string `json:"channel_id"`
		}
		if err := c.BodyParser(&req); err != nil || req.ChannelID == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
		}

		session, participants, err := loot.Join(c.UserContext(), req.ChannelID, c.Locals("user_id").(string))
		if err != nil {
			return domainError(c, err)
		}
		return c.JSON(fiber.Map{"session": session, "participant_count": participants})
	})

	secured.Post("/loot/items", func(c *fiber.Ctx) error {
		var req struct {
			ChannelID string `json:"channel_id"`
			Name      string `json:"name"`
			Quantity  uint32 `json:"quantity"`
			Value     int64  `json:"value"`
		}
		if err := c.BodyParser(&req); err != nil || req.ChannelID == "" || req.Name == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
		}

		item, total, err := loot.AddItem(c.UserContext(),
			req.ChannelID, req.Name, req.Quantity, req.Value, c.Locals("user_id").(string))
		if err != nil {
			return domainError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"item": item, "session_total": total})
	})

	secured.Post("/loot/split", func(c *fiber.Ctx) error {
		var req struct {
			ChannelID string `json:"channel_id"`
		}
		if err := c.BodyParser(&req); err != nil || req.ChannelID == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
		}

		result, err := loot.Split(c.UserContext(), req.ChannelID)
		if err != nil {
			return domainError(c, err)
		}
		return c.JSON(result)
	})

	secured.Post("/loot/cancel", func(c *fiber.Ctx) error {
		var req struct {
			ChannelID string `json:"channel_id"`
		}
		if err := c.BodyParser(&req); err != nil || req.ChannelID == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
		}
		moderator, _ := c.Locals("is_moderator").(bool)

		if err := loot.Cancel(c.UserContext(), req.ChannelID, c.Locals("user_id").(string), moderator); err != nil {
			return domainError(c, err)
		}
		return c.JSON(fiber.Map{"cancelled": true})
	})

	secured.Get("/loot/session", func(c *fiber.Ctx) error {
		channelID := c.Query("channel_id")
		if channelID == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "channel_id is required"})
		}

		info, err := loot.Info(c.UserContext(), channelID)
		if err != nil {
			return domainError(c, err)
		}
		return c.JSON(info)
	})

	secured.Get("/loot/history", func(c *fiber.Ctx) error {
		userID := c.Query("user_id", c.Locals("user_id").(string))
		records, err := loot.History(c.UserContext(),
			userID, c.Locals("guild_id").(string), c.QueryInt("limit", 10))
		if err != nil {
			return domainError(c, err)
		}
		return c.JSON(records)
	})
}
