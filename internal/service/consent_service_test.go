package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/spec-kit/ticket-notifications/internal/domain"
	"github.com/spec-kit/ticket-notifications/internal/service"
	apperrors "github.com/spec-kit/ticket-notifications/pkg/util/errorutil"
)

const sms = domain.PurposeSMSNotifications

func newLedger(t *testing.T) (*service.ConsentLedger, *memoryConsents) {
	repo := &memoryConsents{}
	return service.NewConsentLedger(repo, zaptest.NewLogger(t)), repo
}

func record(t *testing.T, ledger *service.ConsentLedger, userID string, granted bool) *domain.ConsentRecord {
	t.Helper()
	rec, err := ledger.RecordConsent(context.Background(), service.ConsentGrant{
		UserID:      userID,
		Purpose:     sms,
		Granted:     granted,
		Method:      domain.ConsentMethodUI,
		LegalBasis:  "consent",
		PurposeText: "Ticket updates by SMS",
	})
	require.NoError(t, err)
	return rec
}

func TestGrantThenWithdraw(t *testing.T) {
	t.Parallel()

	ledger, repo := newLedger(t)
	ctx := context.Background()

	granted := record(t, ledger, "alice", true)
	assert.NotEmpty(t, granted.ID)
	assert.True(t, ledger.HasValidConsent(ctx, "alice", sms))

	withdrawn, err := ledger.WithdrawConsent(ctx, "alice", sms, domain.ConsentMethodAPI)
	require.NoError(t, err)
	require.NotNil(t, withdrawn)
	assert.Equal(t, granted.ID, withdrawn.ID)
	assert.NotNil(t, withdrawn.WithdrawnAt)
	assert.Equal(t, domain.ConsentMethodAPI, withdrawn.Method)

	assert.False(t, ledger.HasValidConsent(ctx, "alice", sms))
	assert.Equal(t, 1, repo.count())
}

func TestWithdrawWithoutActiveGrantIsNoop(t *testing.T) {
	t.Parallel()

	ledger, repo := newLedger(t)
	ctx := context.Background()

	withdrawn, err := ledger.WithdrawConsent(ctx, "alice", sms, domain.ConsentMethodUI)
	require.NoError(t, err)
	assert.Nil(t, withdrawn)
	assert.Equal(t, 0, repo.count())

	record(t, ledger, "alice", false)
	withdrawn, err = ledger.WithdrawConsent(ctx, "alice", sms, domain.ConsentMethodUI)
	require.NoError(t, err)
	assert.Nil(t, withdrawn)
	assert.Equal(t, 1, repo.count())
}

func TestLatestRecordGoverns(t *testing.T) {
	t.Parallel()

	ledger, _ := newLedger(t)
	ctx := context.Background()

	record(t, ledger, "alice", true)
	record(t, ledger, "alice", false)
	assert.False(t, ledger.HasValidConsent(ctx, "alice", sms))

	record(t, ledger, "alice", true)
	assert.True(t, ledger.HasValidConsent(ctx, "alice", sms))
	assert.False(t, ledger.HasValidConsent(ctx, "bob", sms))
	assert.False(t, ledger.HasValidConsent(ctx, "alice", "marketing"))

	history, err := ledger.History(ctx, "alice", sms)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.True(t, history[0].Granted)
	assert.False(t, history[1].Granted)

	current, err := ledger.CurrentConsent(ctx, "alice", sms)
	require.NoError(t, err)
	assert.Equal(t, history[0].ID, current.ID)
}

func TestHasValidConsentFailsClosed(t *testing.T) {
	t.Parallel()

	ledger, repo := newLedger(t)
	record(t, ledger, "alice", true)
	repo.failAll = errors.New("connection reset")

	assert.False(t, ledger.HasValidConsent(context.Background(), "alice", sms))
}

func TestRecordConsentValidation(t *testing.T) {
	t.Parallel()

	ledger, repo := newLedger(t)
	ctx := context.Background()

	_, err := ledger.RecordConsent(ctx, service.ConsentGrant{Purpose: sms, Granted: true})
	assert.True(t, apperrors.IsValidation(err))

	_, err = ledger.RecordConsent(ctx, service.ConsentGrant{UserID: "alice", Granted: true})
	assert.True(t, apperrors.IsValidation(err))

	_, err = ledger.RecordConsent(ctx, service.ConsentGrant{UserID: "alice", Purpose: sms, Method: "fax"})
	assert.True(t, apperrors.IsValidation(err))

	rec, err := ledger.RecordConsent(ctx, service.ConsentGrant{UserID: "alice", Purpose: sms, Granted: true})
	require.NoError(t, err)
	assert.Equal(t, domain.ConsentMethodAPI, rec.Method)
	assert.Equal(t, 1, repo.count())
}
