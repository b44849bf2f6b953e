package repository

import (
	"context"
	"database/sql"
	"fmt"

	"ghost-crew/internal/models"
)

type completionRepository struct {
	db *sql.DB
}

func NewCompletionRepository(db *sql.DB) CompletionRepository {
	return &completionRepository{db: db}
}

// Upsert writes the completion for a job/task pair, replacing any earlier one.
func (r *completionRepository) Upsert(ctx context.Context, c models.TaskCompletion) (*models.TaskCompletion, error) {
	err := r.db.QueryRowContext(ctx, `
INSERT INTO task_completions (job_id, task_id, completed_by, completed_at, photo_url, notes, synced)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (job_id, task_id) DO UPDATE SET
    completed_by = EXCLUDED.completed_by,
    completed_at = EXCLUDED.completed_at,
    photo_url = EXCLUDED.photo_url,
    notes = EXCLUDED.notes,
    synced = EXCLUDED.synced
RETURNING id`,
		c.JobID, c.TaskID, c.CompletedBy, c.CompletedAt, c.PhotoURL, c.Notes, c.Synced,
	).Scan(&c.ID)
	if err != nil {
		return nil, translate(err)
	}
	return &c, nil
}

func (r *completionRepository) ListForJob(ctx context.Context, jobID int) ([]models.TaskCompletion, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, job_id, task_id, completed_by, completed_at, photo_url, notes, synced
FROM task_completions WHERE job_id = $1 ORDER BY completed_at ASC`, jobID)
	if err != nil {
		return nil, fmt.Errorf("list completions: %w", err)
	}
	defer rows.Close()

	completions := []models.TaskCompletion{}
	for rows.Next() {
		var (
			c               models.TaskCompletion
			photoURL, notes sql.NullString
		)
		if err := rows.Scan(&c.ID, &c.JobID, &c.TaskID, &c.CompletedBy, &c.CompletedAt, &photoURL, &notes, &c.Synced); err != nil {
			return nil, fmt.Errorf("scan completion: %w", err)
		}
		c.PhotoURL = nullString(photoURL)
		c.Notes = nullString(notes)
		completions = append(completions, c)
	}
	return completions, rows.Err()
}
