package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/ticket-notifications/internal/domain"
)

// OutboxRepository stores pending notification events.
type OutboxRepository interface {
	// ClaimDue leases up to limit pending entries due at or before now by
	// pushing their next_attempt_at to leaseUntil.
	ClaimDue(ctx context.Context, now, leaseUntil time.Time, limit int) ([]domain.OutboxEntry, error)
	MarkDelivered(ctx context.Context, id string, at time.Time) error
	MarkRetry(ctx context.Context, id string, attempts int, next time.Time, lastErr string) error
	MarkFailed(ctx context.Context, id string, attempts int, lastErr string) error
}

type outboxRepository struct {
	pool *pgxpool.Pool
}

// NewOutboxRepository builds repository.
func NewOutboxRepository(pool *pgxpool.Pool) OutboxRepository {
	return &outboxRepository{pool: pool}
}

func insertOutbox(ctx context.Context, tx pgx.Tx, entry *domain.OutboxEntry) error {
	const query = `
        INSERT INTO notification_outbox (id, event_type, ticket_id, payload, status, attempts, next_attempt_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        RETURNING created_at`
	if entry.Status == "" {
		entry.Status = domain.OutboxStatusPending
	}
	if err := tx.QueryRow(ctx, query,
		entry.ID,
		entry.EventType,
		entry.TicketID,
		entry.Payload,
		entry.Status,
		entry.Attempts,
		entry.NextAttemptAt,
	).Scan(&entry.CreatedAt); err != nil {
		return fmt.Errorf("insert outbox: %w", err)
	}
	return nil
}

func (r *outboxRepository) ClaimDue(ctx context.Context, now, leaseUntil time.Time, limit int) ([]domain.OutboxEntry, error) {
	const query = `
        UPDATE notification_outbox SET next_attempt_at=$2
        WHERE id IN (
            SELECT id FROM notification_outbox
            WHERE status='pending' AND next_attempt_at <= $1
            ORDER BY next_attempt_at
            LIMIT $3
            FOR UPDATE SKIP LOCKED
        )
        RETURNING id, event_type, ticket_id, payload, status, attempts, next_attempt_at, last_error, created_at, delivered_at`
	rows, err := r.pool.Query(ctx, query, now, leaseUntil, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.OutboxEntry
	for rows.Next() {
		var entry domain.OutboxEntry
		if err := rows.Scan(
			&entry.ID,
			&entry.EventType,
			&entry.TicketID,
			&entry.Payload,
			&entry.Status,
			&entry.Attempts,
			&entry.NextAttemptAt,
			&entry.LastError,
			&entry.CreatedAt,
			&entry.DeliveredAt,
		); err != nil {
			return nil, err
		}
		result = append(result, entry)
	}
	return result, rows.Err()
}

func (r *outboxRepository) MarkDelivered(ctx context.Context, id string, at time.Time) error {
	const query = `
        UPDATE notification_outbox SET status='delivered', attempts=attempts+1, delivered_at=$2, last_error=''
        WHERE id=$1 AND status='pending'`
	_, err := r.pool.Exec(ctx, query, id, at)
	return err
}

func (r *outboxRepository) MarkRetry(ctx context.Context, id string, attempts int, next time.Time, lastErr string) error {
	const query = `
        UPDATE notification_outbox SET attempts=$2, next_attempt_at=$3, last_error=$4
        WHERE id=$1 AND status='pending'`
	_, err := r.pool.Exec(ctx, query, id, attempts, next, lastErr)
	return err
}

func (r *outboxRepository) MarkFailed(ctx context.Context, id string, attempts int, lastErr string) error {
	const query = `
        UPDATE notification_outbox SET status='failed', attempts=$2, last_error=$3
        WHERE id=$1 AND status='pending'`
	_, err := r.pool.Exec(ctx, query, id, attempts, lastErr)
	return err
}
