package handlers

import (
	"errors"

	"ghost-crew/internal/auth"
	"ghost-crew/internal/metrics"
	"ghost-crew/internal/repository"
	"ghost-crew/pkg/logger"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Login matches the PIN against the users table and issues a token.
func (h *Handler) Login(c *fiber.Ctx) error {
	type LoginRequest struct {
		PIN string `json:"pin" validate:"required,numeric,min=4,max=8"`
	}

	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		logger.ErrorLogger.Error("Bad request in login", zap.Error(err))
		return fail(c, fiber.StatusBadRequest, "Bad request")
	}
	if err := h.deps.Validate.Struct(req); err != nil {
		logger.AuditLogger.Warn("Validation error during login", zap.Error(err))
		metrics.LoginsTotal.WithLabelValues("invalid").Inc()
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Validation error",
			"errors":  err.Error(),
			"success": false,
			"status":  400,
		})
	}

	user, err := h.deps.Store.Users.GetByPIN(c.UserContext(), req.PIN)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			logger.SecurityLogger.Warn("Unknown PIN", zap.String("ip", c.IP()))
			metrics.LoginsTotal.WithLabelValues("unknown_pin").Inc()
			return fail(c, fiber.StatusUnauthorized, "Invalid PIN")
		}
		logger.ErrorLogger.Error("Error looking up PIN", zap.Error(err))
		return fail(c, fiber.StatusInternalServerError, "Error logging in")
	}

	now := h.deps.Now()
	tokenString, err := auth.IssueToken(h.deps.SecretKey, *user, h.deps.TokenTTL, now)
	if err != nil {
		logger.ErrorLogger.Error("Error generating token", zap.Error(err))
		return fail(c, fiber.StatusInternalServerError, "Error generating token")
	}

	metrics.LoginsTotal.WithLabelValues("success").Inc()
	logger.AuditLogger.Info("Login success", zap.Int("user_id", user.ID), zap.String("role", string(user.Role)))
	return respond(c, fiber.StatusOK, "Login success", fiber.Map{
		"user":       user,
		"token":      tokenString,
		"expires_at": now.Add(h.deps.TokenTTL).UTC(),
	})
}
