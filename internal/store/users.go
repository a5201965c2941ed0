package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/joescharf/vibejira/internal/models"
)

func (s *SQLStore) CreateUser(ctx context.Context, u *models.User) error {
	u.CreatedAt = time.Now().UTC()
	err := s.db.QueryRowContext(ctx, s.rebind(
		`INSERT INTO users (username, email, password_hash, created_at) VALUES (?, ?, ?, ?) RETURNING id`),
		u.Username, u.Email, u.PasswordHash, u.CreatedAt,
	).Scan(&u.ID)
	if err != nil {
		return fmt.Errorf("create user: %w", classify(err))
	}
	return nil
}

func (s *SQLStore) getUserWhere(ctx context.Context, column string, key any) (*models.User, error) {
	u := &models.User{}
	err := s.db.QueryRowContext(ctx, s.rebind(
		`SELECT id, username, email, password_hash, created_at FROM users WHERE `+column+` = ?`), key,
	).Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("user %v: %w", key, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

func (s *SQLStore) GetUser(ctx context.Context, id int64) (*models.User, error) {
	return s.getUserWhere(ctx, "id", id)
}

func (s *SQLStore) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.getUserWhere(ctx, "username", username)
}
