package repository

import (
	"context"
	"database/sql"
	"fmt"

	"ghost-crew/internal/models"
)

type yachtRepository struct {
	db *sql.DB
}

func NewYachtRepository(db *sql.DB) YachtRepository {
	return &yachtRepository{db: db}
}

func (r *yachtRepository) List(ctx context.Context) ([]models.Yacht, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT id, name, model, berth, created_at FROM yachts ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("list yachts: %w", err)
	}
	defer rows.Close()

	yachts := []models.Yacht{}
	for rows.Next() {
		var y models.Yacht
		if err := rows.Scan(&y.ID, &y.Name, &y.Model, &y.Berth, &y.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan yacht: %w", err)
		}
		yachts = append(yachts, y)
	}
	return yachts, rows.Err()
}

func (r *yachtRepository) Create(ctx context.Context, y models.Yacht) (*models.Yacht, error) {
	err := r.db.QueryRowContext(ctx,
		"INSERT INTO yachts (name, model, berth) VALUES ($1, $2, $3) RETURNING id, created_at",
		y.Name, y.Model, y.Berth,
	).Scan(&y.ID, &y.CreatedAt)
	if err != nil {
		return nil, translate(err)
	}
	return &y, nil
}
