package middleware

import (
	"crypto/subtle"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/thisisnajafi/sarvcast-backend-sub015/utils"
)

// AdminToken rejects requests without "Authorization: Bearer <token>".
// An empty token disables the check.
func AdminToken(token string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if token == "" {
			return c.Next()
		}
		auth := c.Get(fiber.HeaderAuthorization)
		got, ok := strings.CutPrefix(auth, "Bearer ")
		if !ok || subtle.ConstantTimeCompare([]byte(strings.TrimSpace(got)), []byte(token)) != 1 {
			return utils.RespondWithError(c, fiber.StatusUnauthorized, "unauthorized", nil)
		}
		return c.Next()
	}
}
