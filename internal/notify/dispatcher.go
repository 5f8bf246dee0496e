package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-notifications/internal/domain"
	"github.com/spec-kit/ticket-notifications/internal/events"
	"github.com/spec-kit/ticket-notifications/internal/observability"
)

// Result tallies a dispatch. Succeeded+Failed always equals Total, and
// Total always equals the number of recipients passed to Dispatch.
type Result struct {
	Total     int `json:"total"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
}

// Dispatcher composes and sends messages to resolved recipients.
type Dispatcher struct {
	sender   Sender
	composer *Composer
	metrics  *observability.Metrics
	logger   *zap.Logger
}

// NewDispatcher builds a dispatcher. metrics may be nil.
func NewDispatcher(sender Sender, composer *Composer, metrics *observability.Metrics, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		sender:   sender,
		composer: composer,
		metrics:  metrics,
		logger:   logger.Named("dispatcher"),
	}
}

// Dispatch sends one message per recipient. Every send is started before any
// is awaited, and Dispatch returns only after all have settled. A failing
// or panicking send never affects the others. There are no retries here.
func (d *Dispatcher) Dispatch(ctx context.Context, recipients []domain.NotificationRecipient, event events.Event, ticket *domain.Ticket) Result {
	result := Result{Total: len(recipients)}
	if len(recipients) == 0 {
		return result
	}

	start := time.Now()
	p := pool.NewWithResults[bool]()
	for _, recipient := range recipients {
		recipient := recipient
		p.Go(func() bool {
			return d.deliver(ctx, recipient, event, ticket)
		})
	}

	for _, ok := range p.Wait() {
		if ok {
			result.Succeeded++
		} else {
			result.Failed++
		}
	}

	d.metrics.RecordDispatch(string(event.Type))
	d.logger.Info("dispatch complete",
		zap.String("event", string(event.Type)),
		zap.String("ticket_id", event.TicketID),
		zap.Int("total", result.Total),
		zap.Int("succeeded", result.Succeeded),
		zap.Int("failed", result.Failed),
		zap.Duration("duration", time.Since(start)),
	)
	return result
}

// deliver composes and sends to one recipient, reporting success.
func (d *Dispatcher) deliver(ctx context.Context, recipient domain.NotificationRecipient, event events.Event, ticket *domain.Ticket) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("send panicked",
				zap.String("user_id", recipient.UserID),
				zap.Any("panic", r))
			ok = false
		}
		d.metrics.RecordSend(string(event.Type), string(recipient.Role), ok)
	}()

	body, err := d.composer.Compose(event, ticket, recipient.Role)
	if err != nil {
		d.logger.Warn("compose failed",
			zap.String("user_id", recipient.UserID),
			zap.String("role", string(recipient.Role)),
			zap.Error(err))
		return false
	}

	if err := d.sender.Send(ctx, recipient.Address, body); err != nil {
		d.logger.Warn("send failed",
			zap.String("user_id", recipient.UserID),
			zap.String("role", string(recipient.Role)),
			zap.String("to", maskAddress(recipient.Address)),
			zap.Error(fmt.Errorf("deliver %s: %w", event.Type, err)))
		return false
	}
	return true
}
