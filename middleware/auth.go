package middleware

import (
	"log/slog"
	"strings"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"
)

// AdminKeyHeader carries the admin API key. "Authorization: Bearer <key>" is
// accepted as well
const AdminKeyHeader = "X-Admin-Key"

// RequireAPIKey checks the presented key against a bcrypt hash. With an empty
// hash the admin API is disabled and every request is refused
func RequireAPIKey(hash string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if hash == "" {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "Admin API disabled",
			})
		}

		key := c.Get(AdminKeyHeader)
		if key == "" {
			if auth := c.Get(fiber.HeaderAuthorization); strings.HasPrefix(auth, "Bearer ") {
				key = strings.TrimPrefix(auth, "Bearer ")
			}
		}
		if key == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Authentication required",
			})
		}

		if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(key)); err != nil {
			slog.Info("Admin API key rejected", "ip", c.IP())
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid API key",
			})
		}

		c.Locals("role", "admin")
		return c.Next()
	}
}
