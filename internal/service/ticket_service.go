package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-notifications/internal/domain"
	"github.com/spec-kit/ticket-notifications/internal/events"
	"github.com/spec-kit/ticket-notifications/internal/repository"
	apperrors "github.com/spec-kit/ticket-notifications/pkg/util/errorutil"
)

// defaultRetryGrace is how long a freshly committed outbox row waits before
// the background relay may pick it up.
const defaultRetryGrace = 30 * time.Second

// Deliverer hands a committed outbox entry to the notification pipeline.
type Deliverer interface {
	Deliver(ctx context.Context, entry *domain.OutboxEntry) error
}

// TicketService coordinates ticket workflows and the notifications they
// trigger.
type TicketService struct {
	tickets    repository.TicketRepository
	teams      repository.TeamRepository
	deliverer  Deliverer
	logger     *zap.Logger
	retryGrace time.Duration
	now        func() time.Time
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	TicketRepo repository.TicketRepository
	TeamRepo   repository.TeamRepository
	Deliverer  Deliverer
	Logger     *zap.Logger
	// RetryGrace delays background redelivery of rows that are delivered
	// inline. Defaults to 30s.
	RetryGrace time.Duration
}

// TicketCreateInput describes ticket creation payload.
type TicketCreateInput struct {
	TeamID      string
	Title       string
	Description string
	Severity    domain.TicketSeverity
	Category    string
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	grace := deps.RetryGrace
	if grace <= 0 {
		grace = defaultRetryGrace
	}
	return &TicketService{
		tickets:    deps.TicketRepo,
		teams:      deps.TeamRepo,
		deliverer:  deps.Deliverer,
		logger:     logger.Named("tickets"),
		retryGrace: grace,
		now:        time.Now,
	}
}

// CreateTicket opens a ticket for the acting user and notifies the team.
func (s *TicketService) CreateTicket(ctx context.Context, actor domain.Actor, input TicketCreateInput) (*domain.Ticket, error) {
	title := strings.TrimSpace(input.Title)
	description := strings.TrimSpace(input.Description)
	teamID := strings.TrimSpace(input.TeamID)
	if title == "" || description == "" {
		return nil, apperrors.NewValidationError("title and description required", nil)
	}
	if teamID == "" {
		return nil, apperrors.NewValidationError("team_id required", nil)
	}
	severity := input.Severity
	if severity == "" {
		severity = domain.TicketSeverityMedium
	}
	if !severity.Valid() {
		return nil, apperrors.NewValidationError("invalid severity", map[string]any{"severity": severity})
	}
	if actor.ID == "" {
		return nil, apperrors.NewUnauthorized("actor required")
	}

	exists, err := s.teams.Exists(ctx, teamID)
	if err != nil {
		return nil, fmt.Errorf("check team: %w", err)
	}
	if !exists {
		return nil, apperrors.NewNotFound("team", map[string]any{"team_id": teamID})
	}

	ticket := &domain.Ticket{
		ID:           uuid.NewString(),
		TeamID:       teamID,
		Title:        title,
		Description:  description,
		Severity:     severity,
		Category:     strings.TrimSpace(input.Category),
		Status:       domain.TicketStatusOpen,
		CreatorID:    actor.ID,
		CreatorName:  actor.Name,
		CreatorEmail: actor.Email,
	}

	var entry *domain.OutboxEntry
	build := s.outbox(&entry, events.EventTicketCreated, actor, func(*domain.Ticket, domain.TicketStatus, *events.Event) {})
	if err := s.tickets.Create(ctx, ticket, build); err != nil {
		return nil, fmt.Errorf("create ticket: %w", err)
	}
	s.deliver(ctx, entry)
	return ticket, nil
}

// UpdateStatus moves a ticket to newStatus. Any of the four statuses is
// accepted from any other, including the current one.
func (s *TicketService) UpdateStatus(ctx context.Context, actor domain.Actor, ticketID string, newStatus domain.TicketStatus) (*domain.Ticket, error) {
	if !newStatus.Valid() {
		return nil, apperrors.NewValidationError("invalid status", map[string]any{"status": newStatus})
	}

	var entry *domain.OutboxEntry
	build := s.outbox(&entry, events.EventTicketStatusChanged, actor, func(t *domain.Ticket, previous domain.TicketStatus, e *events.Event) {
		e.StatusChange = &events.StatusChangePayload{OldStatus: previous, NewStatus: t.Status}
	})
	ticket, previous, err := s.tickets.UpdateStatus(ctx, ticketID, newStatus, build)
	if err != nil {
		return nil, fmt.Errorf("update status: %w", err)
	}
	s.logger.Info("ticket status changed",
		zap.String("ticket_id", ticket.ID),
		zap.String("from", string(previous)),
		zap.String("to", string(ticket.Status)),
		zap.String("actor_id", actor.ID))
	s.deliver(ctx, entry)
	return ticket, nil
}

// RecordUpdate logs a non-status update and notifies the ticket creator.
func (s *TicketService) RecordUpdate(ctx context.Context, actor domain.Actor, ticketID, updateType, description string) (*domain.TicketUpdate, error) {
	updateType = strings.ToLower(strings.TrimSpace(updateType))
	if updateType == "" {
		return nil, apperrors.NewValidationError("update_type required", nil)
	}

	update := &domain.TicketUpdate{
		ID:          uuid.NewString(),
		TicketID:    ticketID,
		UpdateType:  updateType,
		Description: strings.TrimSpace(description),
		ActorID:     actor.ID,
		ActorName:   actor.Name,
	}

	var entry *domain.OutboxEntry
	build := s.outbox(&entry, events.EventTicketUpdated, actor, func(_ *domain.Ticket, _ domain.TicketStatus, e *events.Event) {
		e.Update = &events.UpdatePayload{UpdateType: update.UpdateType, Description: update.Description}
	})
	if _, err := s.tickets.RecordUpdate(ctx, update, build); err != nil {
		return nil, fmt.Errorf("record update: %w", err)
	}
	s.deliver(ctx, entry)
	return update, nil
}

// GetTicket returns a ticket by id.
func (s *TicketService) GetTicket(ctx context.Context, ticketID string) (*domain.Ticket, error) {
	return s.tickets.GetByID(ctx, ticketID)
}

// ListTeamTickets returns a team's tickets, most recently updated first.
func (s *TicketService) ListTeamTickets(ctx context.Context, teamID string, limit, offset int) ([]domain.Ticket, error) {
	if strings.TrimSpace(teamID) == "" {
		return nil, apperrors.NewValidationError("team_id required", nil)
	}
	return s.tickets.ListByTeam(ctx, teamID, limit, offset)
}

// outbox returns the builder the repository calls inside its transaction.
// The built entry is stored in out for delivery after commit.
func (s *TicketService) outbox(out **domain.OutboxEntry, eventType events.EventType, actor domain.Actor, decorate func(*domain.Ticket, domain.TicketStatus, *events.Event)) repository.OutboxFunc {
	return func(ticket *domain.Ticket, previous domain.TicketStatus) (*domain.OutboxEntry, error) {
		now := s.now().UTC()
		event := events.Event{
			ID:        uuid.NewString(),
			Type:      eventType,
			TicketID:  ticket.ID,
			Actor:     actor,
			Timestamp: now,
			Ticket:    *ticket,
		}
		decorate(ticket, previous, &event)

		payload, err := json.Marshal(event)
		if err != nil {
			return nil, fmt.Errorf("marshal %s event: %w", eventType, err)
		}
		entry := &domain.OutboxEntry{
			ID:            event.ID,
			EventType:     string(eventType),
			TicketID:      ticket.ID,
			Payload:       payload,
			Status:        domain.OutboxStatusPending,
			NextAttemptAt: now.Add(s.retryGrace),
		}
		*out = entry
		return entry, nil
	}
}

// deliver runs the notification pipeline for a committed entry. The ticket
// change has already succeeded, so failures are only logged; the relay
// retries the row later.
func (s *TicketService) deliver(ctx context.Context, entry *domain.OutboxEntry) {
	if entry == nil || s.deliverer == nil {
		return
	}
	if err := s.deliverer.Deliver(context.WithoutCancel(ctx), entry); err != nil {
		s.logger.Warn("inline notification delivery failed",
			zap.String("outbox_id", entry.ID),
			zap.String("event", entry.EventType),
			zap.String("ticket_id", entry.TicketID),
			zap.Error(err))
	}
}
