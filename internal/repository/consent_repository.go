package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/ticket-notifications/internal/domain"
)

// ConsentRepository persists the append-only consent ledger.
type ConsentRepository interface {
	// Insert always adds a new row; existing rows are never rewritten.
	Insert(ctx context.Context, record *domain.ConsentRecord) error
	// WithdrawActive stamps the most recent active grant for (user, purpose)
	// and returns it, or nil when there is none.
	WithdrawActive(ctx context.Context, userID, purpose string, method domain.ConsentMethod) (*domain.ConsentRecord, error)
	// Latest returns the most recent record for (user, purpose), or nil.
	Latest(ctx context.Context, userID, purpose string) (*domain.ConsentRecord, error)
	// History returns every record for (user, purpose), newest first.
	History(ctx context.Context, userID, purpose string) ([]domain.ConsentRecord, error)
}

type consentRepository struct {
	pool *pgxpool.Pool
}

// NewConsentRepository builds repository.
func NewConsentRepository(pool *pgxpool.Pool) ConsentRepository {
	return &consentRepository{pool: pool}
}

const consentColumns = `id, user_id, purpose, granted, method, granted_at, withdrawn_at, legal_basis, purpose_text, retention_note`

func (r *consentRepository) Insert(ctx context.Context, record *domain.ConsentRecord) error {
	const query = `
        INSERT INTO consent_records (id, user_id, purpose, granted, method, granted_at, legal_basis, purpose_text, retention_note)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`
	_, err := r.pool.Exec(ctx, query,
		record.ID,
		record.UserID,
		record.Purpose,
		record.Granted,
		record.Method,
		record.GrantedAt,
		record.LegalBasis,
		record.PurposeText,
		record.RetentionNote,
	)
	return err
}

// WithdrawActive is a single statement so the lookup and the stamp are one
// atomic row update.
func (r *consentRepository) WithdrawActive(ctx context.Context, userID, purpose string, method domain.ConsentMethod) (*domain.ConsentRecord, error) {
	query := `
        UPDATE consent_records SET withdrawn_at=NOW(), method=$3
        WHERE id = (
            SELECT id FROM consent_records
            WHERE user_id=$1 AND purpose=$2 AND granted AND withdrawn_at IS NULL
            ORDER BY granted_at DESC, id DESC
            LIMIT 1
            FOR UPDATE
        )
        RETURNING ` + consentColumns
	record, err := scanConsent(r.pool.QueryRow(ctx, query, userID, purpose, method))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return record, err
}

func (r *consentRepository) Latest(ctx context.Context, userID, purpose string) (*domain.ConsentRecord, error) {
	query := `SELECT ` + consentColumns + `
        FROM consent_records WHERE user_id=$1 AND purpose=$2
        ORDER BY granted_at DESC, id DESC LIMIT 1`
	record, err := scanConsent(r.pool.QueryRow(ctx, query, userID, purpose))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return record, err
}

func (r *consentRepository) History(ctx context.Context, userID, purpose string) ([]domain.ConsentRecord, error) {
	query := `SELECT ` + consentColumns + `
        FROM consent_records WHERE user_id=$1 AND purpose=$2
        ORDER BY granted_at DESC, id DESC`
	rows, err := r.pool.Query(ctx, query, userID, purpose)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.ConsentRecord
	for rows.Next() {
		record, err := scanConsent(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *record)
	}
	return result, rows.Err()
}

func scanConsent(row pgx.Row) (*domain.ConsentRecord, error) {
	var record domain.ConsentRecord
	if err := row.Scan(
		&record.ID,
		&record.UserID,
		&record.Purpose,
		&record.Granted,
		&record.Method,
		&record.GrantedAt,
		&record.WithdrawnAt,
		&record.LegalBasis,
		&record.PurposeText,
		&record.RetentionNote,
	); err != nil {
		return nil, err
	}
	return &record, nil
}
