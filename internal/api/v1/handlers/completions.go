package handlers

import (
	"errors"

	"ghost-crew/internal/metrics"
	"ghost-crew/internal/models"
	"ghost-crew/internal/repository"
	"ghost-crew/internal/websocket"
	"ghost-crew/pkg/logger"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// UpsertTaskCompletion records a checklist task for a job. Writing the same
// job/task pair again replaces the earlier completion, so replays from an
// offline queue are harmless.
func (h *Handler) UpsertTaskCompletion(c *fiber.Ctx) error {
	userID, role := caller(c)
	ctx := c.UserContext()

	var req models.TaskCompletion
	if err := c.BodyParser(&req); err != nil {
		logger.ErrorLogger.Error("Bad request in task completion", zap.Error(err))
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
	if _, ok := models.ChecklistTaskByID(req.TaskID); !ok {
		return fail(c, fiber.StatusBadRequest, "Unknown task")
	}

	job, err := h.deps.Store.Jobs.Get(ctx, req.JobID)
	if err != nil {
		return repoError(c, err, "Job")
	}
	if !canAccessJob(job, userID, role) {
		logger.SecurityLogger.Warn("Forbidden task completion", zap.Int("user_id", userID), zap.Int("job_id", job.ID))
		return fail(c, fiber.StatusForbidden, "Forbidden")
	}
	if job.Status == models.JobReviewed {
		return fail(c, fiber.StatusConflict, "Job already reviewed")
	}

	if req.CompletedBy == 0 {
		req.CompletedBy = userID
	}
	if req.CompletedBy != userID && !role.CanReview() {
		return fail(c, fiber.StatusForbidden, "Cannot record work for another user")
	}
	if req.CompletedAt.IsZero() {
		req.CompletedAt = h.deps.Now().UTC()
	}

	saved, err := h.deps.Store.Completions.Upsert(ctx, req)
	if err != nil {
		return repoError(c, err, "Task completion")
	}

	// First task on a pending job starts it.
	if job.Status == models.JobPending {
		if _, err := h.advance(ctx, job, models.JobPending, models.JobInProgress, userID, nil); err != nil && !errors.Is(err, repository.ErrStatusConflict) {
			logger.ErrorLogger.Error("Error auto-starting job", zap.Int("job_id", job.ID), zap.Error(err))
		}
	}

	metrics.TaskCompletionsTotal.WithLabelValues(metrics.Replayed(req.Synced)).Inc()
	h.deps.Hub.Publish(websocket.Event{Type: websocket.EventTaskCompleted, JobID: job.ID, UserID: saved.CompletedBy, TaskID: saved.TaskID})
	logger.AuditLogger.Info("Task completed",
		zap.Int("job_id", saved.JobID), zap.String("task_id", saved.TaskID), zap.Bool("synced", saved.Synced))

	return respond(c, fiber.StatusOK, "Task completion saved", saved)
}
