package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

const callerKey = "auth_caller"

// Middleware enforces bearer authentication when a secret is configured.
// Without one, every request passes: a checkpoint on a closed bench network
// should not need token plumbing to be driven.
func Middleware(tokens *TokenManager) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !tokens.Enabled() {
			return c.Next()
		}
		header := c.Get("Authorization")
		if header == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "missing authorization header")
		}
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			return fiber.NewError(fiber.StatusUnauthorized, "invalid authorization header")
		}
		claims, err := tokens.ParseToken(parts[1])
		if err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, "invalid token")
		}
		c.Locals(callerKey, claims.Caller)
		return c.Next()
	}
}

// CallerFromContext retrieves the authenticated caller name, if any.
func CallerFromContext(c *fiber.Ctx) (string, bool) {
	val := c.Locals(callerKey)
	if val == nil {
		return "", false
	}
	caller, ok := val.(string)
	return caller, ok
}
