package handlers

import (
	"ghost-crew/internal/models"
	"ghost-crew/pkg/logger"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// GetAllUsers lists crew members. Supervisors use it to read assignee names.
func (h *Handler) GetAllUsers(c *fiber.Ctx) error {
	users, err := h.deps.Store.Users.List(c.UserContext())
	if err != nil {
		logger.ErrorLogger.Error("Error fetching users", zap.Error(err))
		return fail(c, fiber.StatusInternalServerError, "Error fetching users")
	}
	return respond(c, fiber.StatusOK, "Users fetched successfully", users)
}

// CreateUser adds a crew member with a PIN. Admin only.
func (h *Handler) CreateUser(c *fiber.Ctx) error {
	type CreateUserRequest struct {
		Name string `json:"name" validate:"required,max=255"`
		PIN  string `json:"pin" validate:"required,numeric,min=4,max=8"`
		Role string `json:"role" validate:"required,oneof=worker supervisor admin"`
	}

	var req CreateUserRequest
	if err := c.BodyParser(&req); err != nil {
		logger.ErrorLogger.Error("Bad request in create user", zap.Error(err))
		return fail(c, fiber.StatusBadRequest, "Bad request")
	}
	if err := h.deps.Validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Validation error",
			"errors":  err.Error(),
			"success": false,
			"status":  400,
		})
	}

	user, err := h.deps.Store.Users.Create(c.UserContext(), models.User{Name: req.Name, PIN: req.PIN, Role: models.Role(req.Role)})
	if err != nil {
		return repoError(c, err, "PIN")
	}

	logger.AuditLogger.Info("User created", zap.Int("user_id", user.ID), zap.String("role", req.Role))
	return respond(c, fiber.StatusCreated, "User created successfully", user)
}
