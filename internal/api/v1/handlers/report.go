package handlers

import (
	"fmt"
	"time"

	"ghost-crew/internal/models"
	"ghost-crew/internal/report"
	"ghost-crew/pkg/logger"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ExportJobsReport streams jobs scheduled between ?from and ?to as xlsx.
// The range defaults to the last seven days.
func (h *Handler) ExportJobsReport(c *fiber.Ctx) error {
	ctx := c.UserContext()
	today := h.deps.Now().UTC()
	from := c.Query("from", today.AddDate(0, 0, -7).Format("2006-01-02"))
	to := c.Query("to", today.Format("2006-01-02"))

	fromDate, err := time.Parse("2006-01-02", from)
	if err != nil {
		return fail(c, fiber.StatusBadRequest, "Invalid from date")
	}
	toDate, err := time.Parse("2006-01-02", to)
	if err != nil {
		return fail(c, fiber.StatusBadRequest, "Invalid to date")
	}
	if toDate.Before(fromDate) {
		return fail(c, fiber.StatusBadRequest, "to must not be before from")
	}

	jobs, err := h.deps.Store.Jobs.ListBetween(ctx, from, to)
	if err != nil {
		logger.ErrorLogger.Error("Error fetching jobs for report", zap.Error(err))
		return fail(c, fiber.StatusInternalServerError, "Error fetching jobs")
	}
	users, err := h.deps.Store.Users.List(ctx)
	if err != nil {
		logger.ErrorLogger.Error("Error fetching users for report", zap.Error(err))
		return fail(c, fiber.StatusInternalServerError, "Error fetching users")
	}
	names := make(map[int]string, len(users))
	for _, u := range users {
		names[u.ID] = u.Name
	}

	rows := make([]report.JobRow, 0, len(jobs))
	for _, job := range jobs {
		completions, err := h.deps.Store.Completions.ListForJob(ctx, job.ID)
		if err != nil {
			return repoError(c, err, "Task completions")
		}
		issues, err := h.deps.Store.Issues.ListForJob(ctx, job.ID)
		if err != nil {
			return repoError(c, err, "Issues")
		}
		row := report.JobRow{
			Job:        job,
			TasksDone:  len(completions),
			TasksTotal: len(models.DefaultChecklist),
			Issues:     len(issues),
		}
		if job.AssignedTo != nil {
			row.AssigneeName = names[*job.AssignedTo]
		}
		if job.ReviewedBy != nil {
			row.ReviewerName = names[*job.ReviewedBy]
		}
		rows = append(rows, row)
	}

	buf, err := report.JobsWorkbook(rows)
	if err != nil {
		logger.ErrorLogger.Error("Error building report", zap.Error(err))
		return fail(c, fiber.StatusInternalServerError, "Error building report")
	}

	userID, _ := caller(c)
	logger.AuditLogger.Info("Jobs report exported", zap.Int("user_id", userID), zap.String("from", from), zap.String("to", to), zap.Int("rows", len(rows)))
	c.Set(fiber.HeaderContentType, xlsxContentType)
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="jobs_%s_%s.xlsx"`, from, to))
	return c.Send(buf.Bytes())
}
