package models

import (
	"time"
)

type User struct {
	ID        int       `json:"id"`
	Name      string    `json:"name"`
	PIN       string    `json:"-"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

type Yacht struct {
	ID        int       `json:"id"`
	Name      string    `json:"name"`
	Model     string    `json:"model,omitempty"`
	Berth     string    `json:"berth,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Job is one scheduled cleaning of a yacht. ScheduledDate is a calendar
// date in YYYY-MM-DD form.
type Job struct {
	ID            int        `json:"id"`
	YachtID       int        `json:"yacht_id"`
	AssignedTo    *int       `json:"assigned_to"`
	ScheduledDate string     `json:"scheduled_date"`
	Status        JobStatus  `json:"status"`
	StartedAt     *time.Time `json:"started_at,omitempty"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
	ReviewedBy    *int       `json:"reviewed_by,omitempty"`
	ReviewedAt    *time.Time `json:"reviewed_at,omitempty"`
	Notes         *string    `json:"notes,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	Yacht         *Yacht     `json:"yacht,omitempty"`
}

// AssignedToUser reports whether userID is the job's assignee.
func (j Job) AssignedToUser(userID int) bool {
	return j.AssignedTo != nil && *j.AssignedTo == userID
}

// TaskCompletion records one checklist task done on a job. A job/task pair
// has at most one completion; writing it again replaces the previous one.
type TaskCompletion struct {
	ID          int       `json:"id,omitempty"`
	JobID       int       `json:"job_id" validate:"required,gt=0"`
	TaskID      string    `json:"task_id" validate:"required"`
	CompletedBy int       `json:"completed_by"`
	CompletedAt time.Time `json:"completed_at"`
	PhotoURL    *string   `json:"photo_url"`
	Notes       *string   `json:"notes"`
	Synced      bool      `json:"synced"`
}

type Issue struct {
	ID          int       `json:"id,omitempty"`
	JobID       *int      `json:"job_id"`
	ReportedBy  int       `json:"reported_by"`
	Category    string    `json:"category,omitempty"`
	Description string    `json:"description" validate:"required"`
	PhotoURL    *string   `json:"photo_url"`
	CreatedAt   time.Time `json:"created_at"`
	Synced      bool      `json:"synced"`
}

// ReviewDetail is everything a supervisor looks at before signing off a job.
type ReviewDetail struct {
	Job         Job              `json:"job"`
	Checklist   []ChecklistItem  `json:"checklist"`
	Completions []TaskCompletion `json:"completions"`
	Issues      []Issue          `json:"issues"`
}
