// handlers/progression_routes.go
package handlers

import (
	"context"
	"log"
	"math/rand"

	"guild-bot-system/middleware"
	"guild-bot-system/services"

	"github.com/gofiber/fiber/v2"
)

// RoleEnsurer is the slice of the gateway role API the level-up path needs.
type RoleEnsurer interface {
	EnsureRole(ctx context.Context, guildID, userID, roleName string) error
}

func SetupProgressionRoutes(app *fiber.App, progression *services.ProgressionService, economy *services.EconomyService, roles RoleEnsurer) {
	secured := app.Group("/", middleware.UserContextMiddleware())

	// Message ingestion: the gateway posts here for every guild message.
	// The engine decides whether the grant applies (cooldown); the handler
	// composes the level-up follow-ups the engine deliberately does not do.
	secured.Post("/messages/xp", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		guildID := c.Locals("guild_id").(string)
		ctx := c.UserContext()

		amount := uint64(services.MessageXPMin + rand.Intn(services.MessageXPMax-services.MessageXPMin+1))
		result, err := progression.GrantXP(ctx, userID, guildID, amount)
		if err != nil {
			return domainError(c, err)
		}

		response := fiber.Map{"grant": result}
		if result.Applied && result.LeveledUp {
			if _, err := economy.Credit(ctx, userID, guildID, services.LevelUpCoinBonus); err != nil {
				log.Printf("[PROGRESSION] Level-up bonus credit failed for %s: %v", userID, err)
			} else {
				response["bonus"] = services.LevelUpCoinBonus
			}
			if result.MilestoneRole != "" && roles != nil {
				if err := roles.EnsureRole(ctx, guildID, userID, result.MilestoneRole); err != nil {
					log.Printf("[PROGRESSION] Milestone role %q for %s failed: %v", result.MilestoneRole, userID, err)
				}
			}
		}
		return c.JSON(response)
	})

	secured.Get("/progression", func(c *fiber.Ctx) error {
		userID := c.Query("user_id", c.Locals("user_id").(string))
		guildID := c.Locals("guild_id").(string)

		prog, err := progression.Get(c.UserContext(), userID, guildID)
		if err != nil {
			return domainError(c, err)
		}
		return c.JSON(fiber.Map{
			"progression":       prog,
			"xp_for_next_level": services.XPForLevel(prog.Level + 1),
		})
	})

	secured.Get("/progression/leaderboard", func(c *fiber.Ctx) error {
		guildID := c.Locals("guild_id").(string)
		rows, err := progression.TopByXP(c.UserContext(), guildID, c.QueryInt("limit", 10))
		if err != nil {
			return domainError(c, err)
		}
		return c.JSON(rows)
	})

	secured.Put("/admin/progression/xp", func(c *fiber.Ctx) error {
		if !requireAdmin(c) {
			return domainError(c, services.ErrForbidden)
		}
		var req struct {
			UserID string `json:"user_id"`
			XP     uint64 `json:"xp"`
		}
		if err := c.BodyParser(&req); err != nil || req.UserID == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
		}
		guildID := c.Locals("guild_id").(string)

		prog, err := progression.SetXP(c.UserContext(), req.UserID, guildID, req.XP)
		if err != nil {
			return domainError(c, err)
		}
		return c.JSON(prog)
	})
}
