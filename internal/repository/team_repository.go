package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/ticket-notifications/internal/domain"
)

// TeamRepository reads team membership from the identity tables.
type TeamRepository interface {
	Exists(ctx context.Context, teamID string) (bool, error)
	// ListTeamMembers returns domain.ErrTeamNotFound for an unknown team.
	ListTeamMembers(ctx context.Context, teamID string) ([]domain.TeamMember, error)
}

type teamRepository struct {
	pool *pgxpool.Pool
}

// NewTeamRepository constructs repository.
func NewTeamRepository(pool *pgxpool.Pool) TeamRepository {
	return &teamRepository{pool: pool}
}

func (r *teamRepository) Exists(ctx context.Context, teamID string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM teams WHERE id=$1)`, teamID).Scan(&exists)
	return exists, err
}

func (r *teamRepository) ListTeamMembers(ctx context.Context, teamID string) ([]domain.TeamMember, error) {
	exists, err := r.Exists(ctx, teamID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, domain.ErrTeamNotFound
	}

	const query = `
        SELECT u.id, u.display_name
        FROM team_members m JOIN users u ON u.id = m.user_id
        WHERE m.team_id=$1
        ORDER BY m.joined_at, u.id`
	rows, err := r.pool.Query(ctx, query, teamID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.TeamMember
	for rows.Next() {
		var member domain.TeamMember
		if err := rows.Scan(&member.ID, &member.DisplayName); err != nil {
			return nil, err
		}
		result = append(result, member)
	}
	return result, rows.Err()
}

// Directory combines team membership and user lookups behind one value.
type Directory struct {
	TeamRepository
	UserRepository
}
