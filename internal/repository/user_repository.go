package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/ticket-notifications/internal/domain"
)

// UserRepository reads accounts from the identity tables.
type UserRepository interface {
	GetUser(ctx context.Context, userID string) (*domain.User, error)
}

type userRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository returns a Postgres-backed implementation.
func NewUserRepository(pool *pgxpool.Pool) UserRepository {
	return &userRepository{pool: pool}
}

func (r *userRepository) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	const query = `SELECT id, display_name, email FROM users WHERE id=$1`
	var user domain.User
	if err := r.pool.QueryRow(ctx, query, userID).Scan(&user.ID, &user.DisplayName, &user.Email); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}
