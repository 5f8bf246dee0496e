package events

import (
	"time"

	"github.com/spec-kit/ticket-notifications/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated       EventType = "ticket_created"
	EventTicketStatusChanged EventType = "ticket_status_changed"
	EventTicketUpdated       EventType = "ticket_updated"
)

// Event represents a ticket lifecycle event. Ticket is a snapshot taken when
// the change was committed.
type Event struct {
	ID           string               `json:"id"`
	Type         EventType            `json:"type"`
	TicketID     string               `json:"ticket_id"`
	Actor        domain.Actor         `json:"actor"`
	Timestamp    time.Time            `json:"timestamp"`
	Ticket       domain.Ticket        `json:"ticket"`
	StatusChange *StatusChangePayload `json:"status_change,omitempty"`
	Update       *UpdatePayload       `json:"update,omitempty"`
}

// StatusChangePayload carries the literal old and new status values.
type StatusChangePayload struct {
	OldStatus domain.TicketStatus `json:"old_status"`
	NewStatus domain.TicketStatus `json:"new_status"`
}

// UpdatePayload describes a generic ticket update.
type UpdatePayload struct {
	UpdateType  string `json:"update_type"`
	Description string `json:"description,omitempty"`
}
