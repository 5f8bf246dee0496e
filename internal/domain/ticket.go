package domain

import "time"

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusOpen       TicketStatus = "open"
	TicketStatusInProgress TicketStatus = "in_progress"
	TicketStatusResolved   TicketStatus = "resolved"
	TicketStatusClosed     TicketStatus = "closed"
)

// Valid reports whether the status is one of the four known values.
func (s TicketStatus) Valid() bool {
	switch s {
	case TicketStatusOpen, TicketStatusInProgress, TicketStatusResolved, TicketStatusClosed:
		return true
	}
	return false
}

// TicketSeverity enumerates ticket urgency.
type TicketSeverity string

const (
	TicketSeverityLow      TicketSeverity = "low"
	TicketSeverityMedium   TicketSeverity = "medium"
	TicketSeverityHigh     TicketSeverity = "high"
	TicketSeverityCritical TicketSeverity = "critical"
)

// Valid reports whether the severity is known.
func (s TicketSeverity) Valid() bool {
	switch s {
	case TicketSeverityLow, TicketSeverityMedium, TicketSeverityHigh, TicketSeverityCritical:
		return true
	}
	return false
}

// Ticket is the aggregate for support requests. Tickets are never deleted,
// only transitioned to closed.
type Ticket struct {
	ID           string
	TeamID       string
	Title        string
	Description  string
	Severity     TicketSeverity
	Category     string
	Status       TicketStatus
	CreatorID    string
	CreatorName  string
	CreatorEmail string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
