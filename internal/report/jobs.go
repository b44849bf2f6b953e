package report

import (
	"bytes"
	"fmt"
	"time"

	"ghost-crew/internal/models"

	"github.com/xuri/excelize/v2"
)

const SheetName = "Jobs"

// JobRow is one line of the review export.
type JobRow struct {
	Job          models.Job
	AssigneeName string
	ReviewerName string
	TasksDone    int
	TasksTotal   int
	Issues       int
}

var headers = []string{
	"Job ID", "Date", "Yacht", "Assignee", "Status", "Started", "Completed",
	"Reviewed By", "Reviewed At", "Tasks Done", "Issues", "Notes",
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format("2006-01-02 15:04")
}

// JobsWorkbook renders rows into an xlsx file with a styled header row.
func JobsWorkbook(rows []JobRow) (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer f.Close()

	f.SetSheetName("Sheet1", SheetName)

	for i, header := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetCellValue(SheetName, cell, header); err != nil {
			return nil, fmt.Errorf("write header: %w", err)
		}
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
	})
	if err == nil {
		_ = f.SetRowStyle(SheetName, 1, 1, headerStyle)
	}
	_ = f.SetColWidth(SheetName, "A", "L", 16)

	for i, r := range rows {
		yacht := ""
		if r.Job.Yacht != nil {
			yacht = r.Job.Yacht.Name
		}
		notes := ""
		if r.Job.Notes != nil {
			notes = *r.Job.Notes
		}
		values := []interface{}{
			r.Job.ID,
			r.Job.ScheduledDate,
			yacht,
			r.AssigneeName,
			string(r.Job.Status),
			formatTime(r.Job.StartedAt),
			formatTime(r.Job.CompletedAt),
			r.ReviewerName,
			formatTime(r.Job.ReviewedAt),
			fmt.Sprintf("%d/%d", r.TasksDone, r.TasksTotal),
			r.Issues,
			notes,
		}
		for col, v := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, i+2)
			if err != nil {
				return nil, err
			}
			if err := f.SetCellValue(SheetName, cell, v); err != nil {
				return nil, fmt.Errorf("write row %d: %w", i+2, err)
			}
		}
	}

	return f.WriteToBuffer()
}
