// middleware/auth.go
package middleware

import (
	"log"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// UserContextMiddleware extracts the acting user's identity from headers the
// gateway sets after parsing the interaction. Arguments arriving here are
// already validated by the gateway; this only establishes who is acting and
// where.
func UserContextMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := c.Get("X-User-ID")
		guildID := c.Get("X-Guild-ID")
		rolesStr := c.Get("X-User-Roles")

		if userID == "" || guildID == "" {
			log.Printf("[USER_CTX] Missing identity headers on %s", c.Path())
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "missing X-User-ID / X-Guild-ID, request must come through the gateway",
			})
		}

		var roles []string
		for _, r := range strings.Split(rolesStr, ",") {
			r = strings.TrimSpace(r)
			if r != "" {
				roles = append(roles, r)
			}
		}

		c.Locals("user_id", userID)
		c.Locals("guild_id", guildID)
		c.Locals("user_roles", roles)
		c.Locals("is_moderator", hasRole(roles, "moderator") || hasRole(roles, "admin"))
		c.Locals("is_admin", hasRole(roles, "admin"))

		return c.Next()
	}
}

func hasRole(roles []string, name string) bool {
	for _, r := range roles {
		if strings.EqualFold(r, name) {
			return true
		}
	}
	return false
}
