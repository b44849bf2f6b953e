package handlers

import "github.com/gofiber/fiber/v2"

// Health is the probe the field client uses to decide it is online.
func (h *Handler) Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status": "ok",
		"time":   h.deps.Now().UTC(),
	})
}
