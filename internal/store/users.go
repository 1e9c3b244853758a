package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/cpa03/basefly-sub001/pkg/types"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// UserStore handles user database operations
type UserStore struct {
	pool *pgxpool.Pool
}

// GetByID retrieves a user by ID
func (s *UserStore) GetByID(ctx context.Context, id string) (*types.User, error) {
	query := `
		SELECT id, name, email, email_verified, image
		FROM users
		WHERE id = $1
	`

	var user types.User
	err := s.pool.QueryRow(ctx, query, id).Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.EmailVerified,
		&user.Image,
	)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query user: %w", err)
	}

	return &user, nil
}

// UpdateName changes a user's display name
func (s *UserStore) UpdateName(ctx context.Context, id, name string) error {
	query := `UPDATE users SET name = $2 WHERE id = $1`

	result, err := s.pool.Exec(ctx, query, id, name)
	if err != nil {
		return fmt.Errorf("update user name: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}
