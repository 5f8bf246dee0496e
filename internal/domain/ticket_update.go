package domain

import "time"

// TicketUpdate is an immutable audit entry for a generic ticket update
// (comment, attachment, reassignment and similar) that does not touch status.
type TicketUpdate struct {
	ID          string
	TicketID    string
	UpdateType  string
	Description string
	ActorID     string
	ActorName   string
	CreatedAt   time.Time
}
