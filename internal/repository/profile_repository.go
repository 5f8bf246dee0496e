package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/ticket-notifications/internal/domain"
)

// ProfileRepository reads and writes notification profiles.
type ProfileRepository interface {
	// Get returns nil without error when the user has no profile.
	Get(ctx context.Context, userID string) (*domain.UserProfile, error)
	Upsert(ctx context.Context, profile *domain.UserProfile) error
}

type profileRepository struct {
	pool *pgxpool.Pool
}

// NewProfileRepository returns a Postgres-backed implementation.
func NewProfileRepository(pool *pgxpool.Pool) ProfileRepository {
	return &profileRepository{pool: pool}
}

func (r *profileRepository) Get(ctx context.Context, userID string) (*domain.UserProfile, error) {
	const query = `
        SELECT user_id, phone_number, notifications_enabled, updated_at
        FROM user_profiles WHERE user_id=$1`
	var profile domain.UserProfile
	err := r.pool.QueryRow(ctx, query, userID).Scan(
		&profile.UserID,
		&profile.PhoneNumber,
		&profile.NotificationsEnabled,
		&profile.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

func (r *profileRepository) Upsert(ctx context.Context, profile *domain.UserProfile) error {
	const query = `
        INSERT INTO user_profiles (user_id, phone_number, notifications_enabled)
        VALUES ($1,$2,$3)
        ON CONFLICT (user_id) DO UPDATE
            SET phone_number=EXCLUDED.phone_number,
                notifications_enabled=EXCLUDED.notifications_enabled,
                updated_at=NOW()
        RETURNING updated_at`
	return r.pool.QueryRow(ctx, query,
		profile.UserID,
		profile.PhoneNumber,
		profile.NotificationsEnabled,
	).Scan(&profile.UpdatedAt)
}
