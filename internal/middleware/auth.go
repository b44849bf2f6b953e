package middleware

import (
	"errors"
	"strings"

	"ghost-crew/internal/auth"
	"ghost-crew/internal/models"
	"ghost-crew/pkg/logger"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// UseToken verifies the bearer token and stores userID and role in locals.
// Websocket upgrades may pass the token as the "token" query parameter.
func UseToken(secret []byte) fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenString := c.Query("token")
		if authHeader := c.Get("Authorization"); authHeader != "" {
			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "Invalid token format", "success": false, "status": 401})
			}
			tokenString = parts[1]
		}
		if tokenString == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "No token provided", "success": false, "status": 401})
		}

		claims, err := auth.ParseToken(secret, tokenString)
		if err != nil {
			logger.SecurityLogger.Warn("Rejected token", zap.String("path", c.Path()), zap.Error(err))
			message := "Invalid token"
			if errors.Is(err, auth.ErrTokenExpired) {
				message = "Token expired"
			}
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": message, "success": false, "status": 401})
		}

		c.Locals("userID", claims.UserID)
		c.Locals("role", claims.Role)
		return c.Next()
	}
}

// RequireRole answers 403 unless the caller's role is one of roles.
// It must run after UseToken.
func RequireRole(roles ...models.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		role, _ := c.Locals("role").(models.Role)
		for _, r := range roles {
			if role == r {
				return c.Next()
			}
		}
		userID, _ := c.Locals("userID").(int)
		logger.SecurityLogger.Warn("Forbidden", zap.String("role", string(role)), zap.Int("user_id", userID), zap.String("path", c.Path()))
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"message": "Forbidden",
			"success": false,
			"status":  403,
		})
	}
}
