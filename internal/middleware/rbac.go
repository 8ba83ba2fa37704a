package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/konekt-api/internal/utils"
	"github.com/noah-isme/konekt-api/pkg/apperror"
)

// RequireRole ensures that the authenticated user carries one of the allowed
// roles. It must run after JWTProtected.
func RequireRole(roles ...string) fiber.Handler {
	allowed := make(map[string]struct{}, len(roles))
	for _, role := range roles {
		normalized := strings.ToLower(strings.TrimSpace(role))
		if normalized != "" {
			allowed[normalized] = struct{}{}
		}
	}

	return func(c *fiber.Ctx) error {
		if _, ok := CurrentUserID(c); !ok {
			return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
		}

		role, _ := c.Locals("user_role").(string)
		if _, ok := allowed[strings.ToLower(strings.TrimSpace(role))]; !ok {
			return utils.SendAppError(c, apperror.Unauthorized("insufficient permissions"))
		}
		return c.Next()
	}
}
