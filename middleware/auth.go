package middleware

import (
	"errors"
	"log"
	"strings"

	"bounty-board-backend/services"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// UserContextMiddleware resolves the Bearer token against the identity
// provider, mirrors the profile into the local users table, and attaches the
// local user to the request context.
func UserContextMiddleware(identity *services.IdentityClient, db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "missing authorization header",
			})
		}

		token := strings.TrimPrefix(authHeader, "Bearer ")
		if token == authHeader || token == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "authorization header must be a bearer token",
			})
		}

		identityUser, err := identity.VerifyToken(token)
		if err != nil {
			if errors.Is(err, services.ErrInvalidToken) {
				return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
					"error": "invalid or expired token",
				})
			}
			log.Printf("❌ [AUTH] Identity verification failed for %s: %v", c.Path(), err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "identity service unavailable",
			})
		}

		user, err := identity.SyncUser(db, identityUser)
		if err != nil {
			log.Printf("❌ [AUTH] Failed to sync user %s: %v", identityUser.ID, err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to sync user",
			})
		}

		c.Locals("user_id", user.ID)
		c.Locals("user", user)

		return c.Next()
	}
}
