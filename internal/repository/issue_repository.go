package repository

import (
	"context"
	"database/sql"
	"fmt"

	"ghost-crew/internal/models"
)

type issueRepository struct {
	db *sql.DB
}

func NewIssueRepository(db *sql.DB) IssueRepository {
	return &issueRepository{db: db}
}

func (r *issueRepository) Insert(ctx context.Context, i models.Issue) (*models.Issue, error) {
	if i.CreatedAt.IsZero() {
		err := r.db.QueryRowContext(ctx, `
INSERT INTO issues (job_id, reported_by, category, description, photo_url, synced)
VALUES ($1, $2, $3, $4, $5, $6) RETURNING id, created_at`,
			i.JobID, i.ReportedBy, i.Category, i.Description, i.PhotoURL, i.Synced,
		).Scan(&i.ID, &i.CreatedAt)
		if err != nil {
			return nil, translate(err)
		}
		return &i, nil
	}

	err := r.db.QueryRowContext(ctx, `
INSERT INTO issues (job_id, reported_by, category, description, photo_url, synced, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`,
		i.JobID, i.ReportedBy, i.Category, i.Description, i.PhotoURL, i.Synced, i.CreatedAt,
	).Scan(&i.ID)
	if err != nil {
		return nil, translate(err)
	}
	return &i, nil
}

func (r *issueRepository) ListForJob(ctx context.Context, jobID int) ([]models.Issue, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, job_id, reported_by, category, description, photo_url, synced, created_at
FROM issues WHERE job_id = $1 ORDER BY created_at ASC`, jobID)
	if err != nil {
		return nil, fmt.Errorf("list issues: %w", err)
	}
	defer rows.Close()

	issues := []models.Issue{}
	for rows.Next() {
		var (
			i        models.Issue
			jid      sql.NullInt64
			photoURL sql.NullString
		)
		if err := rows.Scan(&i.ID, &jid, &i.ReportedBy, &i.Category, &i.Description, &photoURL, &i.Synced, &i.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan issue: %w", err)
		}
		i.JobID = nullInt(jid)
		i.PhotoURL = nullString(photoURL)
		issues = append(issues, i)
	}
	return issues, rows.Err()
}
