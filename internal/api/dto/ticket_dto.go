package dto

import (
	"time"

	"github.com/spec-kit/ticket-notifications/internal/domain"
)

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	TeamID      string                `json:"team_id"`
	Title       string                `json:"title"`
	Description string                `json:"description"`
	Severity    domain.TicketSeverity `json:"severity"`
	Category    string                `json:"category"`
}

// UpdateStatusRequest payload.
type UpdateStatusRequest struct {
	Status domain.TicketStatus `json:"status"`
}

// RecordUpdateRequest payload.
type RecordUpdateRequest struct {
	UpdateType  string `json:"update_type"`
	Description string `json:"description"`
}

// TicketResponse represents a ticket.
type TicketResponse struct {
	ID          string                `json:"id"`
	TeamID      string                `json:"team_id"`
	Title       string                `json:"title"`
	Description string                `json:"description"`
	Severity    domain.TicketSeverity `json:"severity"`
	Category    string                `json:"category,omitempty"`
	Status      domain.TicketStatus   `json:"status"`
	CreatorID   string                `json:"creator_id"`
	CreatorName string                `json:"creator_name"`
	CreatedAt   time.Time             `json:"created_at"`
	UpdatedAt   time.Time             `json:"updated_at"`
}

// TicketUpdateResponse represents a recorded update.
type TicketUpdateResponse struct {
	ID          string    `json:"id"`
	TicketID    string    `json:"ticket_id"`
	UpdateType  string    `json:"update_type"`
	Description string    `json:"description,omitempty"`
	ActorID     string    `json:"actor_id"`
	CreatedAt   time.Time `json:"created_at"`
}

// NewTicketResponse maps a domain ticket.
func NewTicketResponse(t *domain.Ticket) TicketResponse {
	return TicketResponse{
		ID:          t.ID,
		TeamID:      t.TeamID,
		Title:       t.Title,
		Description: t.Description,
		Severity:    t.Severity,
		Category:    t.Category,
		Status:      t.Status,
		CreatorID:   t.CreatorID,
		CreatorName: t.CreatorName,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

// NewTicketUpdateResponse maps a domain update.
func NewTicketUpdateResponse(u *domain.TicketUpdate) TicketUpdateResponse {
	return TicketUpdateResponse{
		ID:          u.ID,
		TicketID:    u.TicketID,
		UpdateType:  u.UpdateType,
		Description: u.Description,
		ActorID:     u.ActorID,
		CreatedAt:   u.CreatedAt,
	}
}
