package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"ghost-crew/internal/models"
)

type jobRepository struct {
	db *sql.DB
}

func NewJobRepository(db *sql.DB) JobRepository {
	return &jobRepository{db: db}
}

const jobSelect = `
SELECT j.id, j.yacht_id, j.assigned_to, to_char(j.scheduled_date, 'YYYY-MM-DD'), j.status,
       j.started_at, j.completed_at, j.reviewed_by, j.reviewed_at, j.notes, j.created_at,
       y.id, y.name, y.model, y.berth, y.created_at
FROM jobs j
JOIN yachts y ON y.id = j.yacht_id`

// statusColumn is the timestamp stamped when a job enters the status.
var statusColumn = map[models.JobStatus]string{
	models.JobInProgress: "started_at",
	models.JobCompleted:  "completed_at",
	models.JobReviewed:   "reviewed_at",
}

func scanJob(s scanner) (*models.Job, error) {
	var (
		j                                  models.Job
		y                                  models.Yacht
		assignedTo, reviewedBy             sql.NullInt64
		startedAt, completedAt, reviewedAt sql.NullTime
		notes                              sql.NullString
	)
	err := s.Scan(&j.ID, &j.YachtID, &assignedTo, &j.ScheduledDate, &j.Status,
		&startedAt, &completedAt, &reviewedBy, &reviewedAt, &notes, &j.CreatedAt,
		&y.ID, &y.Name, &y.Model, &y.Berth, &y.CreatedAt)
	if err != nil {
		return nil, err
	}
	j.AssignedTo = nullInt(assignedTo)
	j.ReviewedBy = nullInt(reviewedBy)
	j.StartedAt = nullTime(startedAt)
	j.CompletedAt = nullTime(completedAt)
	j.ReviewedAt = nullTime(reviewedAt)
	j.Notes = nullString(notes)
	j.Yacht = &y
	return &j, nil
}

func (r *jobRepository) list(ctx context.Context, query string, args ...interface{}) ([]models.Job, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	jobs := []models.Job{}
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		jobs = append(jobs, *j)
	}
	return jobs, rows.Err()
}

// ListForAssignee returns the user's jobs for one date, oldest first.
func (r *jobRepository) ListForAssignee(ctx context.Context, userID int, date string) ([]models.Job, error) {
	return r.list(ctx, jobSelect+`
WHERE j.assigned_to = $1 AND j.scheduled_date = $2
ORDER BY j.created_at ASC, j.id ASC`, userID, date)
}

func (r *jobRepository) ListByStatus(ctx context.Context, status models.JobStatus) ([]models.Job, error) {
	return r.list(ctx, jobSelect+`
WHERE j.status = $1
ORDER BY j.scheduled_date ASC, j.created_at ASC`, string(status))
}

func (r *jobRepository) ListBetween(ctx context.Context, from, to string) ([]models.Job, error) {
	return r.list(ctx, jobSelect+`
WHERE j.scheduled_date BETWEEN $1 AND $2
ORDER BY j.scheduled_date ASC, j.created_at ASC`, from, to)
}

func (r *jobRepository) Get(ctx context.Context, id int) (*models.Job, error) {
	j, err := scanJob(r.db.QueryRowContext(ctx, jobSelect+" WHERE j.id = $1", id))
	if err != nil {
		return nil, translate(err)
	}
	return j, nil
}

// InsertBatch inserts all jobs in one transaction and returns them with ids.
func (r *jobRepository) InsertBatch(ctx context.Context, jobs []models.Job) ([]models.Job, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
INSERT INTO jobs (yacht_id, assigned_to, scheduled_date, status, started_at, completed_at, reviewed_by, reviewed_at, notes)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
RETURNING id, created_at`)
	if err != nil {
		return nil, err
	}
	defer stmt.Close()

	inserted := make([]models.Job, 0, len(jobs))
	for _, j := range jobs {
		if j.Status == "" {
			j.Status = models.JobPending
		}
		err := stmt.QueryRowContext(ctx,
			j.YachtID, j.AssignedTo, j.ScheduledDate, string(j.Status),
			j.StartedAt, j.CompletedAt, j.ReviewedBy, j.ReviewedAt, j.Notes,
		).Scan(&j.ID, &j.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("insert job for yacht %d: %w", j.YachtID, translate(err))
		}
		inserted = append(inserted, j)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return inserted, nil
}

// Advance moves a job from one status to the next and stamps the matching
// timestamp. It fails with ErrStatusConflict when the job is no longer in from.
func (r *jobRepository) Advance(ctx context.Context, id int, from, to models.JobStatus, at time.Time, reviewer *int) (*models.Job, error) {
	if !from.CanAdvanceTo(to) {
		return nil, ErrStatusConflict
	}
	column := statusColumn[to]

	query := fmt.Sprintf(`
UPDATE jobs SET status = $1, %s = $2, reviewed_by = COALESCE($3, reviewed_by)
WHERE id = $4 AND status = $5`, column)
	res, err := r.db.ExecContext(ctx, query, string(to), at, reviewer, id, string(from))
	if err != nil {
		return nil, translate(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		if _, err := r.Get(ctx, id); err != nil {
			return nil, err
		}
		return nil, ErrStatusConflict
	}
	return r.Get(ctx, id)
}
