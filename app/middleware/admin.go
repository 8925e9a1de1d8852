package middleware

import (
	"github.com/gofiber/fiber/v2"

	"authgate/app/database"
)

// RequireRole fails closed: a request without an authenticated user, or with
// a role outside the allowed set, is forbidden. Roles match exactly; there is
// no hierarchy between them.
func RequireRole(roles ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, ok := c.Locals("user").(database.User)
		if !ok {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"message": "Forbidden"})
		}

		for _, role := range roles {
			if user.Role == role {
				return c.Next()
			}
		}

		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"message": "Forbidden"})
	}
}

func AdminMiddleware(c *fiber.Ctx) error {
	return RequireRole(database.RoleAdministrator)(c)
}
