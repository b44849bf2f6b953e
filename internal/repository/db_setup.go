package repository

import (
	"context"
	"database/sql"
	"fmt"

	"ghost-crew/pkg/logger"

	"go.uber.org/zap"
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
    id SERIAL PRIMARY KEY,
    name VARCHAR(255) NOT NULL,
    pin VARCHAR(16) NOT NULL UNIQUE,
    role VARCHAR(32) NOT NULL DEFAULT 'worker',
    created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS yachts (
    id SERIAL PRIMARY KEY,
    name VARCHAR(255) NOT NULL UNIQUE,
    model VARCHAR(255) NOT NULL DEFAULT '',
    berth VARCHAR(64) NOT NULL DEFAULT '',
    created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS jobs (
    id SERIAL PRIMARY KEY,
    yacht_id INT NOT NULL REFERENCES yachts (id),
    assigned_to INT REFERENCES users (id),
    scheduled_date DATE NOT NULL,
    status VARCHAR(32) NOT NULL DEFAULT 'pending',
    started_at TIMESTAMPTZ,
    completed_at TIMESTAMPTZ,
    reviewed_by INT REFERENCES users (id),
    reviewed_at TIMESTAMPTZ,
    notes TEXT,
    created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS jobs_assignee_date_idx ON jobs (assigned_to, scheduled_date);

CREATE TABLE IF NOT EXISTS task_completions (
    id SERIAL PRIMARY KEY,
    job_id INT NOT NULL REFERENCES jobs (id) ON DELETE CASCADE,
    task_id VARCHAR(64) NOT NULL,
    completed_by INT NOT NULL REFERENCES users (id),
    completed_at TIMESTAMPTZ NOT NULL,
    photo_url TEXT,
    notes TEXT,
    synced BOOLEAN NOT NULL DEFAULT TRUE,
    UNIQUE (job_id, task_id)
);

CREATE TABLE IF NOT EXISTS issues (
    id SERIAL PRIMARY KEY,
    job_id INT REFERENCES jobs (id) ON DELETE CASCADE,
    reported_by INT NOT NULL REFERENCES users (id),
    category VARCHAR(64) NOT NULL DEFAULT '',
    description TEXT NOT NULL,
    photo_url TEXT,
    synced BOOLEAN NOT NULL DEFAULT TRUE,
    created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

func CreateTableIfNotExists(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("create tables: %w", err)
	}
	logger.SystemLogger.Info("Tables 'users', 'yachts', 'jobs', 'task_completions', 'issues' are ready")
	return nil
}

// CreateAdminUser inserts an admin that logs in with pin. It is a no-op
// when the pin is already taken.
func CreateAdminUser(ctx context.Context, db *sql.DB, name, pin string) error {
	_, err := db.ExecContext(ctx,
		"INSERT INTO users (name, pin, role) VALUES ($1, $2, 'admin') ON CONFLICT (pin) DO NOTHING",
		name, pin)
	if err != nil {
		return fmt.Errorf("create admin user: %w", err)
	}
	logger.AuditLogger.Info("Admin user ensured", zap.String("name", name))
	return nil
}

func DeleteAllTable(ctx context.Context, db *sql.DB) error {
	query := `
    DROP TABLE IF EXISTS issues;
    DROP TABLE IF EXISTS task_completions;
    DROP TABLE IF EXISTS jobs;
    DROP TABLE IF EXISTS yachts;
    DROP TABLE IF EXISTS users;
    `
	if _, err := db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("drop tables: %w", err)
	}
	logger.SystemLogger.Info("All tables dropped")
	return nil
}
