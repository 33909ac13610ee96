// handlers/economy_routes.go
package handlers

import (
	"guild-bot-system/middleware"
	"guild-bot-system/services"

	"github.com/gofiber/fiber/v2"
)

func SetupEconomyRoutes(app *fiber.App, economy *services.EconomyService) {
	secured := app.Group("/", middleware.UserContextMiddleware())

	secured.Get("/economy/balance", func(c *fiber.Ctx) error {
		userID := c.Query("user_id", c.Locals("user_id").(string))
		guildID := c.Locals("guild_id").(string)

		balance, err := economy.Balance(c.UserContext(), userID, guildID)
		if err != nil {
			return domainError(c, err)
		}
		return c.JSON(fiber.Map{"user_id": userID, "balance": balance})
	})

	secured.Post("/economy/daily", func(c *fiber.Ctx) error {
		result, err := economy.ClaimDaily(c.UserContext(),
			c.Locals("user_id").(string), c.Locals("guild_id").(string))
		if err != nil {
			return domainError(c, err)
		}
		return c.JSON(result)
	})

	secured.Post("/economy/work", func(c *fiber.Ctx) error {
		result, err := economy.ClaimWork(c.UserContext(),
			c.Locals("user_id").(string), c.Locals("guild_id").(string))
		if err != nil {
			return domainError(c, err)
		}
		return c.JSON(result)
	})

	secured.Post("/economy/transfer", func(c *fiber.Ctx) error {
		var req struct {
			ToUserID string `json:"to_user_id"`
			ToIsBot  bool   `json:"to_is_bot"`
			Amount   int64  `json:"amount"`
		}
		if err := c.BodyParser(&req); err != nil || req.ToUserID == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
		}
		if req.ToIsBot {
			// Bots are not players; coins sent there would vanish.
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "cannot transfer to a bot"})
		}

		newBalance, err := economy.Transfer(c.UserContext(),
			c.Locals("guild_id").(string), c.Locals("user_id").(string), req.ToUserID, req.Amount)
		if err != nil {
			return domainError(c, err)
		}
		return c.JSON(fiber.Map{
			"to_user_id":  req.ToUserID,
			"amount":      req.Amount,
			"new_balance": newBalance,
		})
	})

	secured.Post("/economy/coinflip", func(c *fiber.Ctx) error {
		var req struct {
			Guess string `json:"guess"`
			Stake int64  `json:"stake"`
		}
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
		}

		result, err := economy.Wager(c.UserContext(),
			c.Locals("user_id").(string), c.Locals("guild_id").(string), req.Guess, req.Stake)
		if err != nil {
			return domainError(c, err)
		}
		return c.JSON(result)
	})

	secured.Get("/economy/leaderboard", func(c *fiber.Ctx) error {
		rows, err := economy.TopByBalance(c.UserContext(),
			c.Locals("guild_id").(string), c.QueryInt("limit", 10))
		if err != nil {
			return domainError(c, err)
		}
		return c.JSON(rows)
	})

	secured.Put("/admin/economy/balance", func(c *fiber.Ctx) error {
		if !requireAdmin(c) {
			return domainError(c, services.ErrForbidden)
		}
		var req struct {
			UserID  string `json:"user_id"`
			Balance int64  `json:"balance"`
		}
		if err := c.BodyParser(&req); err != nil || req.UserID == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
		}

		newBalance, err := economy.SetBalance(c.UserContext(),
			req.UserID, c.Locals("guild_id").(string), req.Balance)
		if err != nil {
			return domainError(c, err)
		}
		return c.JSON(fiber.Map{"user_id": req.UserID, "balance": newBalance})
	})
}
