package handlers

import (
	"context"
	"time"

	"ghost-crew/internal/metrics"
	"ghost-crew/internal/models"
	"ghost-crew/internal/websocket"
	"ghost-crew/pkg/logger"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// ListJobs returns the caller's jobs for ?date= (default today), oldest first.
func (h *Handler) ListJobs(c *fiber.Ctx) error {
	// ambil user ID dari locals
	userID, _ := caller(c)

	date := c.Query("date", h.deps.Today())
	if _, err := time.Parse("2006-01-02", date); err != nil {
		return fail(c, fiber.StatusBadRequest, "Invalid date, expected YYYY-MM-DD")
	}

	ctx := c.UserContext()
	if jobs, ok := h.deps.JobCache.GetJobs(ctx, userID, date); ok {
		return respond(c, fiber.StatusOK, "Jobs fetched successfully (from cache)", jobs)
	}

	jobs, err := h.deps.Store.Jobs.ListForAssignee(ctx, userID, date)
	if err != nil {
		logger.ErrorLogger.Error("Error fetching jobs", zap.Int("user_id", userID), zap.Error(err))
		return fail(c, fiber.StatusInternalServerError, "Error fetching jobs")
	}
	h.deps.JobCache.SetJobs(ctx, userID, date, jobs)

	return respond(c, fiber.StatusOK, "Jobs fetched successfully", jobs)
}

func (h *Handler) GetJob(c *fiber.Ctx) error {
	job, ok, err := h.loadJob(c, "id")
	if !ok {
		return err
	}
	return respond(c, fiber.StatusOK, "Job found", job)
}

// JobChecklist returns the checklist with the completions recorded so far.
func (h *Handler) JobChecklist(c *fiber.Ctx) error {
	job, ok, err := h.loadJob(c, "id")
	if !ok {
		return err
	}
	completions, err := h.deps.Store.Completions.ListForJob(c.UserContext(), job.ID)
	if err != nil {
		return repoError(c, err, "Task completions")
	}
	return respond(c, fiber.StatusOK, "Checklist fetched successfully",
		models.MergeChecklist(models.DefaultChecklist, completions))
}

func (h *Handler) StartJob(c *fiber.Ctx) error {
	return h.transition(c, models.JobPending, models.JobInProgress)
}

func (h *Handler) FinishJob(c *fiber.Ctx) error {
	return h.transition(c, models.JobInProgress, models.JobCompleted)
}

func (h *Handler) transition(c *fiber.Ctx, from, to models.JobStatus) error {
	userID, role := caller(c)
	job, ok, err := h.loadJob(c, "id")
	if !ok {
		return err
	}
	if !job.AssignedToUser(userID) && role != models.RoleAdmin {
		return fail(c, fiber.StatusForbidden, "Only the assigned crew member can change this job")
	}
	if job.Status != from {
		return fail(c, fiber.StatusConflict, "Job is "+string(job.Status))
	}

	updated, err := h.advance(c.UserContext(), job, from, to, userID, nil)
	if err != nil {
		return repoError(c, err, "Job")
	}
	return respond(c, fiber.StatusOK, "Job updated", updated)
}

// advance moves the job, drops the cached job list it appeared in and
// notifies the live feed.
func (h *Handler) advance(ctx context.Context, job *models.Job, from, to models.JobStatus, actor int, reviewer *int) (*models.Job, error) {
	updated, err := h.deps.Store.Jobs.Advance(ctx, job.ID, from, to, h.deps.Now().UTC(), reviewer)
	if err != nil {
		return nil, err
	}
	if job.AssignedTo != nil {
		h.deps.JobCache.Invalidate(ctx, *job.AssignedTo, job.ScheduledDate)
	}

	metrics.JobTransitionsTotal.WithLabelValues(string(to)).Inc()
	logger.AuditLogger.Info("Job status changed",
		zap.Int("job_id", job.ID), zap.String("from", string(from)), zap.String("to", string(to)), zap.Int("by", actor))

	eventType := websocket.EventJobStatus
	if to == models.JobReviewed {
		eventType = websocket.EventJobReviewed
	}
	h.deps.Hub.Publish(websocket.Event{Type: eventType, JobID: job.ID, UserID: actor, Status: to})
	return updated, nil
}
