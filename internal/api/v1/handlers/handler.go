package handlers

import (
	"errors"

	"ghost-crew/internal/config"
	"ghost-crew/internal/models"
	"ghost-crew/internal/repository"
	"ghost-crew/pkg/logger"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Handler serves the v1 API from an explicit set of dependencies.
type Handler struct {
	deps *config.Dependencies
}

func New(deps *config.Dependencies) *Handler {
	deps.Normalize()
	return &Handler{deps: deps}
}

// caller returns the user ID and role placed in locals by UseToken.
func caller(c *fiber.Ctx) (int, models.Role) {
	userID, _ := c.Locals("userID").(int)
	role, _ := c.Locals("role").(models.Role)
	return userID, role
}

func fail(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(fiber.Map{
		"message": message,
		"success": false,
		"status":  status,
	})
}

func respond(c *fiber.Ctx, status int, message string, data interface{}) error {
	return c.Status(status).JSON(fiber.Map{
		"message": message,
		"success": true,
		"status":  status,
		"data":    data,
	})
}

// repoError maps repository sentinels to HTTP answers and logs the rest.
func repoError(c *fiber.Ctx, err error, what string) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return fail(c, fiber.StatusNotFound, what+" not found")
	case errors.Is(err, repository.ErrStatusConflict):
		return fail(c, fiber.StatusConflict, "Job status does not allow this change")
	case errors.Is(err, repository.ErrInvalidRef):
		return fail(c, fiber.StatusBadRequest, "Unknown job, yacht or user reference")
	case errors.Is(err, repository.ErrDuplicate):
		return fail(c, fiber.StatusConflict, what+" already exists")
	default:
		logger.ErrorLogger.Error("Repository error", zap.String("what", what), zap.Error(err))
		return fail(c, fiber.StatusInternalServerError, "Error accessing "+what)
	}
}

// canAccessJob: the assignee, supervisors and admins may see a job.
func canAccessJob(job *models.Job, userID int, role models.Role) bool {
	return job.AssignedToUser(userID) || role.CanReview()
}

// loadJob fetches the job named by the :id (or :jobId) param and checks access.
// ok is false when a response has already been written.
func (h *Handler) loadJob(c *fiber.Ctx, param string) (job *models.Job, ok bool, err error) {
	userID, role := caller(c)

	jobID, err := c.ParamsInt(param)
	if err != nil || jobID <= 0 {
		return nil, false, fail(c, fiber.StatusBadRequest, "Invalid job ID")
	}

	job, err = h.deps.Store.Jobs.Get(c.UserContext(), jobID)
	if err != nil {
		return nil, false, repoError(c, err, "Job")
	}
	if !canAccessJob(job, userID, role) {
		logger.SecurityLogger.Warn("Forbidden job access", zap.Int("user_id", userID), zap.Int("job_id", jobID))
		return nil, false, fail(c, fiber.StatusForbidden, "Forbidden")
	}
	return job, true, nil
}
