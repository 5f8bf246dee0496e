package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-notifications/internal/domain"
	"github.com/spec-kit/ticket-notifications/internal/repository"
	apperrors "github.com/spec-kit/ticket-notifications/pkg/util/errorutil"
)

// ConsentGrant describes a consent decision to append to the ledger.
type ConsentGrant struct {
	UserID        string
	Purpose       string
	Granted       bool
	Method        domain.ConsentMethod
	LegalBasis    string
	PurposeText   string
	RetentionNote string
}

// ConsentLedger records and answers consent for notification purposes.
type ConsentLedger struct {
	repo   repository.ConsentRepository
	logger *zap.Logger
	now    func() time.Time
}

// NewConsentLedger constructs the ledger.
func NewConsentLedger(repo repository.ConsentRepository, logger *zap.Logger) *ConsentLedger {
	return &ConsentLedger{
		repo:   repo,
		logger: logger.Named("consent"),
		now:    time.Now,
	}
}

// RecordConsent appends a new record. Earlier records are left untouched.
func (l *ConsentLedger) RecordConsent(ctx context.Context, grant ConsentGrant) (*domain.ConsentRecord, error) {
	if strings.TrimSpace(grant.UserID) == "" {
		return nil, apperrors.NewValidationError("user id required", nil)
	}
	if strings.TrimSpace(grant.Purpose) == "" {
		return nil, apperrors.NewValidationError("purpose required", nil)
	}
	if grant.Method == "" {
		grant.Method = domain.ConsentMethodAPI
	}
	if !grant.Method.Valid() {
		return nil, apperrors.NewValidationError("unknown consent method", map[string]any{"method": grant.Method})
	}

	record := &domain.ConsentRecord{
		ID:            uuid.NewString(),
		UserID:        grant.UserID,
		Purpose:       grant.Purpose,
		Granted:       grant.Granted,
		Method:        grant.Method,
		GrantedAt:     l.now().UTC(),
		LegalBasis:    grant.LegalBasis,
		PurposeText:   grant.PurposeText,
		RetentionNote: grant.RetentionNote,
	}
	if err := l.repo.Insert(ctx, record); err != nil {
		return nil, fmt.Errorf("record consent: %w", err)
	}
	l.logger.Info("consent recorded",
		zap.String("user_id", record.UserID),
		zap.String("purpose", record.Purpose),
		zap.Bool("granted", record.Granted),
		zap.String("method", string(record.Method)))
	return record, nil
}

// WithdrawConsent stamps the active grant for (user, purpose). It returns
// nil without error when there is nothing to withdraw.
func (l *ConsentLedger) WithdrawConsent(ctx context.Context, userID, purpose string, method domain.ConsentMethod) (*domain.ConsentRecord, error) {
	if method == "" {
		method = domain.ConsentMethodAPI
	}
	record, err := l.repo.WithdrawActive(ctx, userID, purpose, method)
	if err != nil {
		return nil, fmt.Errorf("withdraw consent: %w", err)
	}
	if record == nil {
		l.logger.Debug("no active consent to withdraw",
			zap.String("user_id", userID), zap.String("purpose", purpose))
		return nil, nil
	}
	l.logger.Info("consent withdrawn",
		zap.String("user_id", userID),
		zap.String("purpose", purpose),
		zap.String("record_id", record.ID))
	return record, nil
}

// CurrentConsent returns the most recent record for (user, purpose), or nil.
func (l *ConsentLedger) CurrentConsent(ctx context.Context, userID, purpose string) (*domain.ConsentRecord, error) {
	record, err := l.repo.Latest(ctx, userID, purpose)
	if err != nil {
		return nil, fmt.Errorf("current consent: %w", err)
	}
	return record, nil
}

// History returns all records for (user, purpose), newest first.
func (l *ConsentLedger) History(ctx context.Context, userID, purpose string) ([]domain.ConsentRecord, error) {
	records, err := l.repo.History(ctx, userID, purpose)
	if err != nil {
		return nil, fmt.Errorf("consent history: %w", err)
	}
	return records, nil
}

// HasValidConsent reports whether the latest record is an active grant.
// Lookup failures count as no consent.
func (l *ConsentLedger) HasValidConsent(ctx context.Context, userID, purpose string) bool {
	record, err := l.repo.Latest(ctx, userID, purpose)
	if err != nil {
		l.logger.Warn("consent lookup failed",
			zap.String("user_id", userID),
			zap.String("purpose", purpose),
			zap.Error(err))
		return false
	}
	return record.Active()
}
