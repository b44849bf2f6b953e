package repository

import (
	"context"
	"database/sql"
	"fmt"

	"ghost-crew/internal/models"
)

type userRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) UserRepository {
	return &userRepository{db: db}
}

const userColumns = "id, name, pin, role, created_at"

func scanUser(s scanner) (*models.User, error) {
	var u models.User
	if err := s.Scan(&u.ID, &u.Name, &u.PIN, &u.Role, &u.CreatedAt); err != nil {
		return nil, err
	}
	return &u, nil
}

// GetByPIN matches the PIN exactly; PINs are unique per user.
func (r *userRepository) GetByPIN(ctx context.Context, pin string) (*models.User, error) {
	u, err := scanUser(r.db.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE pin = $1", pin))
	if err != nil {
		return nil, translate(err)
	}
	return u, nil
}

func (r *userRepository) GetByID(ctx context.Context, id int) (*models.User, error) {
	u, err := scanUser(r.db.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id = $1", id))
	if err != nil {
		return nil, translate(err)
	}
	return u, nil
}

func (r *userRepository) List(ctx context.Context) ([]models.User, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT "+userColumns+" FROM users ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	users := []models.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

func (r *userRepository) Create(ctx context.Context, u models.User) (*models.User, error) {
	if u.Role == "" {
		u.Role = models.RoleWorker
	}
	err := r.db.QueryRowContext(ctx,
		"INSERT INTO users (name, pin, role) VALUES ($1, $2, $3) RETURNING id, created_at",
		u.Name, u.PIN, u.Role,
	).Scan(&u.ID, &u.CreatedAt)
	if err != nil {
		return nil, translate(err)
	}
	return &u, nil
}
