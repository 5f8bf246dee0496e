package domain

import "time"

// OutboxStatus tracks delivery of a pending notification.
type OutboxStatus string

const (
	OutboxStatusPending   OutboxStatus = "pending"
	OutboxStatusDelivered OutboxStatus = "delivered"
	OutboxStatusFailed    OutboxStatus = "failed"
)

// OutboxEntry is a notification event committed alongside the ticket change
// that produced it.
type OutboxEntry struct {
	ID            string
	EventType     string
	TicketID      string
	Payload       []byte
	Status        OutboxStatus
	Attempts      int
	NextAttemptAt time.Time
	LastError     string
	CreatedAt     time.Time
	DeliveredAt   *time.Time
}
