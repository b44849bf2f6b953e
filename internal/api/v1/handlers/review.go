package handlers

import (
	"ghost-crew/internal/models"
	"ghost-crew/pkg/logger"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Review handlers run behind RequireRole(supervisor, admin).

func (h *Handler) ListReviewQueue(c *fiber.Ctx) error {
	jobs, err := h.deps.Store.Jobs.ListByStatus(c.UserContext(), models.JobCompleted)
	if err != nil {
		logger.ErrorLogger.Error("Error fetching review queue", zap.Error(err))
		return fail(c, fiber.StatusInternalServerError, "Error fetching review queue")
	}
	return respond(c, fiber.StatusOK, "Jobs awaiting review", jobs)
}

func (h *Handler) GetReview(c *fiber.Ctx) error {
	job, ok, err := h.loadJob(c, "jobId")
	if !ok {
		return err
	}
	ctx := c.UserContext()

	completions, err := h.deps.Store.Completions.ListForJob(ctx, job.ID)
	if err != nil {
		return repoError(c, err, "Task completions")
	}
	issues, err := h.deps.Store.Issues.ListForJob(ctx, job.ID)
	if err != nil {
		return repoError(c, err, "Issues")
	}

	return respond(c, fiber.StatusOK, "Review loaded", models.ReviewDetail{
		Job:         *job,
		Checklist:   models.MergeChecklist(models.DefaultChecklist, completions),
		Completions: completions,
		Issues:      issues,
	})
}

// ApproveJob signs off a completed job.
func (h *Handler) ApproveJob(c *fiber.Ctx) error {
	userID, _ := caller(c)
	job, ok, err := h.loadJob(c, "jobId")
	if !ok {
		return err
	}
	if job.Status != models.JobCompleted {
		return fail(c, fiber.StatusConflict, "Only completed jobs can be reviewed, job is "+string(job.Status))
	}

	reviewer := userID
	updated, err := h.advance(c.UserContext(), job, models.JobCompleted, models.JobReviewed, userID, &reviewer)
	if err != nil {
		return repoError(c, err, "Job")
	}
	return respond(c, fiber.StatusOK, "Job reviewed", updated)
}
