package handlers

import (
	"ghost-crew/internal/metrics"
	"ghost-crew/internal/models"
	"ghost-crew/internal/websocket"
	"ghost-crew/pkg/logger"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// ReportIssue stores a free-form issue, optionally tied to a job.
func (h *Handler) ReportIssue(c *fiber.Ctx) error {
	userID, role := caller(c)
	ctx := c.UserContext()

	var req models.Issue
	if err := c.BodyParser(&req); err != nil {
		logger.ErrorLogger.Error("Bad request in report issue", zap.Error(err))
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

	if req.JobID != nil {
		job, err := h.deps.Store.Jobs.Get(ctx, *req.JobID)
		if err != nil {
			return repoError(c, err, "Job")
		}
		if !canAccessJob(job, userID, role) {
			return fail(c, fiber.StatusForbidden, "Forbidden")
		}
	}

	if req.ReportedBy == 0 {
		req.ReportedBy = userID
	}
	if req.ReportedBy != userID && !role.CanReview() {
		return fail(c, fiber.StatusForbidden, "Cannot report for another user")
	}

	saved, err := h.deps.Store.Issues.Insert(ctx, req)
	if err != nil {
		return repoError(c, err, "Issue")
	}

	metrics.IssuesReportedTotal.WithLabelValues(metrics.Replayed(req.Synced)).Inc()
	event := websocket.Event{Type: websocket.EventIssueReported, UserID: saved.ReportedBy}
	if saved.JobID != nil {
		event.JobID = *saved.JobID
	}
	h.deps.Hub.Publish(event)
	logger.AuditLogger.Info("Issue reported", zap.Int("issue_id", saved.ID), zap.Int("reported_by", saved.ReportedBy))

	return respond(c, fiber.StatusCreated, "Issue reported", saved)
}
