package handlers

import (
	"ghost-crew/internal/models"
	"ghost-crew/pkg/logger"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

func (h *Handler) ListYachts(c *fiber.Ctx) error {
	yachts, err := h.deps.Store.Yachts.List(c.UserContext())
	if err != nil {
		logger.ErrorLogger.Error("Error fetching yachts", zap.Error(err))
		return fail(c, fiber.StatusInternalServerError, "Error fetching yachts")
	}
	return respond(c, fiber.StatusOK, "Yachts fetched successfully", yachts)
}

func (h *Handler) CreateYacht(c *fiber.Ctx) error {
	type CreateYachtRequest struct {
		Name  string `json:"name" validate:"required,max=255"`
		Model string `json:"model" validate:"max=255"`
		Berth string `json:"berth" validate:"max=64"`
	}

	var req CreateYachtRequest
	if err := c.BodyParser(&req); err != nil {
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

	yacht, err := h.deps.Store.Yachts.Create(c.UserContext(), models.Yacht{Name: req.Name, Model: req.Model, Berth: req.Berth})
	if err != nil {
		return repoError(c, err, "Yacht")
	}
	logger.AuditLogger.Info("Yacht created", zap.Int("yacht_id", yacht.ID))
	return respond(c, fiber.StatusCreated, "Yacht created successfully", yacht)
}
