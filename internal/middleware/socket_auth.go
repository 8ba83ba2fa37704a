package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/noah-isme/konekt-api/internal/utils"
)

// SocketAuth rejects websocket upgrades that are not upgrade requests or that
// carry no valid token. The token is read from the "token" query parameter or
// the Authorization header. Failures answer 401 before any upgrade happens.
func SocketAuth(verifier TokenVerifier) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return utils.SendError(c, fiber.StatusUpgradeRequired, "websocket upgrade required")
		}

		token := strings.TrimSpace(c.Query("token"))
		if token == "" {
			bearer, err := BearerToken(c)
			if err != nil {
				return utils.SendError(c, fiber.StatusUnauthorized, "authentication error")
			}
			token = bearer
		}

		identity, err := verifier.Verify(token)
		if err != nil {
			return utils.SendError(c, fiber.StatusUnauthorized, "authentication error")
		}

		bindIdentity(c, identity)
		return c.Next()
	}
}
