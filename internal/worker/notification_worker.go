package worker

import (
	"context"

	"github.com/spec-kit/ticket-notifications/internal/service"
)

// StartNotificationWorker registers notification handlers and runs the
// outbox relay until ctx is cancelled. The returned channel closes once the
// relay has stopped.
func StartNotificationWorker(ctx context.Context, notificationService *service.NotificationService, relay *OutboxRelay) <-chan struct{} {
	done := make(chan struct{})
	if notificationService != nil {
		notificationService.RegisterHandlers()
	}
	if relay == nil {
		close(done)
		return done
	}
	go func() {
		defer close(done)
		relay.Run(ctx)
	}()
	return done
}
