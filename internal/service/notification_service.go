package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/spec-kit/ticket-notifications/internal/domain"
	"github.com/spec-kit/ticket-notifications/internal/events"
	"github.com/spec-kit/ticket-notifications/internal/notify"
)

// NotificationService turns ticket events into SMS messages.
type NotificationService struct {
	bus        events.Bus
	resolver   *notify.Resolver
	dispatcher *notify.Dispatcher
	logger     *zap.Logger
}

// NewNotificationService creates the service.
func NewNotificationService(bus events.Bus, resolver *notify.Resolver, dispatcher *notify.Dispatcher, logger *zap.Logger) *NotificationService {
	return &NotificationService{
		bus:        bus,
		resolver:   resolver,
		dispatcher: dispatcher,
		logger:     logger.Named("notifications"),
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.bus == nil {
		return
	}
	n.bus.Subscribe(events.EventTicketCreated, n.handleTicketCreated)
	n.bus.Subscribe(events.EventTicketStatusChanged, n.handleTicketStatusChanged)
	n.bus.Subscribe(events.EventTicketUpdated, n.handleTicketUpdated)
}

func (n *NotificationService) handleTicketCreated(ctx context.Context, event events.Event) error {
	_, err := n.notify(ctx, event, "")
	return err
}

// The acting user already knows about their own status change.
func (n *NotificationService) handleTicketStatusChanged(ctx context.Context, event events.Event) error {
	_, err := n.notify(ctx, event, event.Actor.ID)
	return err
}

func (n *NotificationService) handleTicketUpdated(ctx context.Context, event events.Event) error {
	_, err := n.notify(ctx, event, "")
	return err
}

// notify resolves and dispatches one event. Only a failure to compute the
// audience is returned; individual send failures are part of the result.
func (n *NotificationService) notify(ctx context.Context, event events.Event, exclude string) (notify.Result, error) {
	ticket := event.Ticket
	recipients, err := n.resolver.Resolve(ctx, notify.ResolveRequest{
		Kind:          event.Type,
		Ticket:        &ticket,
		ExcludeUserID: exclude,
	})
	if err != nil {
		return notify.Result{}, fmt.Errorf("resolve %s for ticket %s: %w", event.Type, event.TicketID, err)
	}
	if len(recipients) == 0 {
		n.logger.Info("no eligible recipients",
			zap.String("event", string(event.Type)),
			zap.String("ticket_id", event.TicketID))
		return notify.Result{}, nil
	}

	result := n.dispatcher.Dispatch(ctx, recipients, event, &ticket)
	n.logger.Info("notifications sent",
		zap.String("event", string(event.Type)),
		zap.String("ticket_id", event.TicketID),
		zap.Int("recipients", result.Total),
		zap.Int("succeeded", result.Succeeded),
		zap.Int("failed", result.Failed),
		zap.Strings("roles", roles(recipients)))
	return result, nil
}

func roles(recipients []domain.NotificationRecipient) []string {
	out := make([]string, len(recipients))
	for i, r := range recipients {
		out[i] = string(r.Role)
	}
	return out
}
