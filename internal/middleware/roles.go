package middleware

import (
	"strings"

	"salescrm/pkg/utils"

	"github.com/gofiber/fiber/v2"
)

// RoleAdmin grants access to audit history and manual rollup captures
const RoleAdmin = "admin"

// RequireRole rejects requests whose claims carry none of the given roles.
// It must run after AuthMiddleware.
func RequireRole(roles ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims, ok := c.Locals(utils.UserClaimsKey).(*utils.UserClaims)
		if !ok || claims == nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Unauthorized",
			})
		}

		if !HasRole(claims, roles...) {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "Access denied: " + strings.Join(roles, " or ") + " role required",
			})
		}

		return c.Next()
	}
}

// HasRole matches role names case-insensitively
func HasRole(claims *utils.UserClaims, roles ...string) bool {
	for _, have := range claims.Roles {
		for _, want := range roles {
			if strings.EqualFold(have, want) {
				return true
			}
		}
	}
	return false
}
