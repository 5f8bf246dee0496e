package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/ticket-notifications/internal/domain"
)

// OutboxFunc builds the outbox entry for a ticket change from the committed
// row. previous is the status before the change (empty on create). It runs
// inside the same transaction as the change; returning nil skips the outbox.
type OutboxFunc func(ticket *domain.Ticket, previous domain.TicketStatus) (*domain.OutboxEntry, error)

// TicketRepository encapsulates ticket persistence.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket, outbox OutboxFunc) error
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	ListByTeam(ctx context.Context, teamID string, limit, offset int) ([]domain.Ticket, error)
	UpdateStatus(ctx context.Context, id string, status domain.TicketStatus, outbox OutboxFunc) (*domain.Ticket, domain.TicketStatus, error)
	RecordUpdate(ctx context.Context, update *domain.TicketUpdate, outbox OutboxFunc) (*domain.Ticket, error)
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

const ticketColumns = `id, team_id, title, description, severity, category, status,
               creator_id, creator_name, creator_email, created_at, updated_at`

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket, outbox OutboxFunc) error {
	const query = `
        INSERT INTO tickets (id, team_id, title, description, severity, category, status, creator_id, creator_name, creator_email)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
        RETURNING created_at, updated_at`
	return withTx(ctx, r.pool, func(tx pgx.Tx) error {
		if err := tx.QueryRow(ctx, query,
			ticket.ID,
			ticket.TeamID,
			ticket.Title,
			ticket.Description,
			ticket.Severity,
			ticket.Category,
			ticket.Status,
			ticket.CreatorID,
			ticket.CreatorName,
			ticket.CreatorEmail,
		).Scan(&ticket.CreatedAt, &ticket.UpdatedAt); err != nil {
			return fmt.Errorf("insert ticket: %w", err)
		}
		return appendOutbox(ctx, tx, outbox, ticket, "")
	})
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE id=$1`
	ticket, err := scanTicket(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrTicketNotFound
	}
	return ticket, err
}

func (r *ticketRepository) ListByTeam(ctx context.Context, teamID string, limit, offset int) ([]domain.Ticket, error) {
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	query := `SELECT ` + ticketColumns + `
        FROM tickets WHERE team_id=$1
        ORDER BY updated_at DESC LIMIT $2 OFFSET $3`
	rows, err := r.pool.Query(ctx, query, teamID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Ticket
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *ticket)
	}
	return result, rows.Err()
}

// UpdateStatus writes any of the four statuses, including no-op and
// backward moves, and returns the updated row with the previous status.
// updated_at always moves forward, even within the same clock tick.
func (r *ticketRepository) UpdateStatus(ctx context.Context, id string, status domain.TicketStatus, outbox OutboxFunc) (*domain.Ticket, domain.TicketStatus, error) {
	const lockQuery = `SELECT status FROM tickets WHERE id=$1 FOR UPDATE`
	updateQuery := `
        UPDATE tickets SET status=$2, updated_at=GREATEST(NOW(), updated_at + INTERVAL '1 microsecond')
        WHERE id=$1
        RETURNING ` + ticketColumns

	var (
		updated  *domain.Ticket
		previous domain.TicketStatus
	)
	err := withTx(ctx, r.pool, func(tx pgx.Tx) error {
		if err := tx.QueryRow(ctx, lockQuery, id).Scan(&previous); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return domain.ErrTicketNotFound
			}
			return fmt.Errorf("lock ticket: %w", err)
		}
		ticket, err := scanTicket(tx.QueryRow(ctx, updateQuery, id, status))
		if err != nil {
			return fmt.Errorf("update ticket status: %w", err)
		}
		updated = ticket
		return appendOutbox(ctx, tx, outbox, ticket, previous)
	})
	if err != nil {
		return nil, "", err
	}
	return updated, previous, nil
}

// RecordUpdate stores a generic update audit row. The ticket itself is not
// modified.
func (r *ticketRepository) RecordUpdate(ctx context.Context, update *domain.TicketUpdate, outbox OutboxFunc) (*domain.Ticket, error) {
	selectQuery := `SELECT ` + ticketColumns + ` FROM tickets WHERE id=$1 FOR SHARE`
	const insertQuery = `
        INSERT INTO ticket_updates (id, ticket_id, update_type, description, actor_id, actor_name)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING created_at`

	var ticket *domain.Ticket
	err := withTx(ctx, r.pool, func(tx pgx.Tx) error {
		t, err := scanTicket(tx.QueryRow(ctx, selectQuery, update.TicketID))
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return domain.ErrTicketNotFound
			}
			return fmt.Errorf("load ticket: %w", err)
		}
		ticket = t
		if err := tx.QueryRow(ctx, insertQuery,
			update.ID,
			update.TicketID,
			update.UpdateType,
			update.Description,
			update.ActorID,
			update.ActorName,
		).Scan(&update.CreatedAt); err != nil {
			return fmt.Errorf("insert ticket update: %w", err)
		}
		return appendOutbox(ctx, tx, outbox, ticket, ticket.Status)
	})
	if err != nil {
		return nil, err
	}
	return ticket, nil
}

func scanTicket(row pgx.Row) (*domain.Ticket, error) {
	var ticket domain.Ticket
	if err := row.Scan(
		&ticket.ID,
		&ticket.TeamID,
		&ticket.Title,
		&ticket.Description,
		&ticket.Severity,
		&ticket.Category,
		&ticket.Status,
		&ticket.CreatorID,
		&ticket.CreatorName,
		&ticket.CreatorEmail,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &ticket, nil
}

func appendOutbox(ctx context.Context, tx pgx.Tx, build OutboxFunc, ticket *domain.Ticket, previous domain.TicketStatus) error {
	if build == nil {
		return nil
	}
	entry, err := build(ticket, previous)
	if err != nil {
		return fmt.Errorf("build outbox entry: %w", err)
	}
	if entry == nil {
		return nil
	}
	return insertOutbox(ctx, tx, entry)
}
