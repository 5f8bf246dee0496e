package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-notifications/internal/config"
	"github.com/spec-kit/ticket-notifications/internal/domain"
	"github.com/spec-kit/ticket-notifications/internal/events"
	"github.com/spec-kit/ticket-notifications/internal/observability"
	"github.com/spec-kit/ticket-notifications/internal/repository"
)

// claimLease is how long a claimed row stays invisible to other relays.
const claimLease = 2 * time.Minute

// OutboxRelay publishes committed outbox entries on the event bus and
// retries entries whose delivery failed.
type OutboxRelay struct {
	store   repository.OutboxRepository
	bus     events.Bus
	cfg     config.OutboxConfig
	metrics *observability.Metrics
	logger  *zap.Logger
	now     func() time.Time
}

// NewOutboxRelay builds a relay. metrics may be nil.
func NewOutboxRelay(store repository.OutboxRepository, bus events.Bus, cfg config.OutboxConfig, metrics *observability.Metrics, logger *zap.Logger) *OutboxRelay {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 5 * time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 8
	}
	if cfg.InitialInterval <= 0 {
		cfg.InitialInterval = 10 * time.Second
	}
	if cfg.MaxInterval < cfg.InitialInterval {
		cfg.MaxInterval = cfg.InitialInterval
	}
	return &OutboxRelay{
		store:   store,
		bus:     bus,
		cfg:     cfg,
		metrics: metrics,
		logger:  logger.Named("outbox"),
		now:     time.Now,
	}
}

// Deliver publishes one entry and records the outcome on its row. A
// failed publish schedules a retry, or marks the row failed once the
// attempt ceiling is reached. The publish error is returned either way.
func (r *OutboxRelay) Deliver(ctx context.Context, entry *domain.OutboxEntry) error {
	attempt := entry.Attempts + 1

	var event events.Event
	if err := json.Unmarshal(entry.Payload, &event); err != nil {
		err = fmt.Errorf("decode outbox %s: %w", entry.ID, err)
		r.metrics.RecordOutbox("failed")
		return errors.Join(err, r.store.MarkFailed(ctx, entry.ID, attempt, err.Error()))
	}

	if err := r.bus.Publish(ctx, event); err != nil {
		return errors.Join(err, r.reschedule(ctx, entry, attempt, err))
	}

	if err := r.store.MarkDelivered(ctx, entry.ID, r.now().UTC()); err != nil {
		return fmt.Errorf("mark outbox %s delivered: %w", entry.ID, err)
	}
	r.metrics.RecordOutbox("delivered")
	return nil
}

func (r *OutboxRelay) reschedule(ctx context.Context, entry *domain.OutboxEntry, attempt int, cause error) error {
	if attempt >= r.cfg.MaxAttempts {
		r.logger.Error("outbox entry abandoned",
			zap.String("outbox_id", entry.ID),
			zap.String("event", entry.EventType),
			zap.Int("attempts", attempt),
			zap.Error(cause))
		r.metrics.RecordOutbox("failed")
		return r.store.MarkFailed(ctx, entry.ID, attempt, cause.Error())
	}

	next := r.now().UTC().Add(r.RetryDelay(attempt))
	r.logger.Warn("outbox delivery failed, retry scheduled",
		zap.String("outbox_id", entry.ID),
		zap.String("event", entry.EventType),
		zap.Int("attempts", attempt),
		zap.Time("next_attempt_at", next),
		zap.Error(cause))
	r.metrics.RecordOutbox("retried")
	return r.store.MarkRetry(ctx, entry.ID, attempt, next, cause.Error())
}

// RetryDelay returns the wait before the attempt following attempt n
// (1-based): InitialInterval growing exponentially up to MaxInterval.
func (r *OutboxRelay) RetryDelay(attempt int) time.Duration {
	b := backoff.NewExponentialBackOff(
		backoff.WithInitialInterval(r.cfg.InitialInterval),
		backoff.WithMaxInterval(r.cfg.MaxInterval),
		backoff.WithRandomizationFactor(0),
		backoff.WithMaxElapsedTime(0),
	)
	delay := b.NextBackOff()
	for i := 1; i < attempt; i++ {
		delay = b.NextBackOff()
	}
	return delay
}

// Run drains due entries every PollInterval until ctx is cancelled.
func (r *OutboxRelay) Run(ctx context.Context) {
	ticker := time.NewTicker(r.cfg.PollInterval)
	defer ticker.Stop()

	r.logger.Info("outbox relay started",
		zap.Duration("poll_interval", r.cfg.PollInterval),
		zap.Int("batch_size", r.cfg.BatchSize))
	for {
		if _, err := r.DrainOnce(ctx); err != nil && ctx.Err() == nil {
			r.logger.Error("outbox drain failed", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			r.logger.Info("outbox relay stopped")
			return
		case <-ticker.C:
		}
	}
}

// DrainOnce claims one batch of due entries and delivers them in order.
// It returns the number of entries claimed.
func (r *OutboxRelay) DrainOnce(ctx context.Context) (int, error) {
	now := r.now().UTC()
	entries, err := r.store.ClaimDue(ctx, now, now.Add(claimLease), r.cfg.BatchSize)
	if err != nil {
		return 0, fmt.Errorf("claim outbox: %w", err)
	}
	for i := range entries {
		if ctx.Err() != nil {
			return i, ctx.Err()
		}
		if err := r.Deliver(ctx, &entries[i]); err != nil {
			r.logger.Debug("outbox redelivery failed",
				zap.String("outbox_id", entries[i].ID), zap.Error(err))
		}
	}
	return len(entries), nil
}
