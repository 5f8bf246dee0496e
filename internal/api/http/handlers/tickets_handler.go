package handlers

import (
	"context"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/ticket-notifications/internal/api/dto"
	"github.com/spec-kit/ticket-notifications/internal/auth"
	"github.com/spec-kit/ticket-notifications/internal/domain"
	"github.com/spec-kit/ticket-notifications/internal/service"
	apperrors "github.com/spec-kit/ticket-notifications/pkg/util/errorutil"
)

// TicketWorkflow is implemented by service.TicketService.
type TicketWorkflow interface {
	CreateTicket(ctx context.Context, actor domain.Actor, input service.TicketCreateInput) (*domain.Ticket, error)
	UpdateStatus(ctx context.Context, actor domain.Actor, ticketID string, status domain.TicketStatus) (*domain.Ticket, error)
	RecordUpdate(ctx context.Context, actor domain.Actor, ticketID, updateType, description string) (*domain.TicketUpdate, error)
	GetTicket(ctx context.Context, ticketID string) (*domain.Ticket, error)
	ListTeamTickets(ctx context.Context, teamID string, limit, offset int) ([]domain.Ticket, error)
}

// TicketsHandler manages ticket endpoints.
type TicketsHandler struct {
	service TicketWorkflow
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(tickets TicketWorkflow) *TicketsHandler {
	return &TicketsHandler{service: tickets}
}

// CreateTicket POST /tickets.
func (h *TicketsHandler) CreateTicket(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("user required")
	}
	var req dto.CreateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	ticket, err := h.service.CreateTicket(c.UserContext(), principal.Actor(), service.TicketCreateInput{
		TeamID:      req.TeamID,
		Title:       req.Title,
		Description: req.Description,
		Severity:    req.Severity,
		Category:    req.Category,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewTicketResponse(ticket)})
}

// ListTickets GET /tickets?team_id=.
func (h *TicketsHandler) ListTickets(c *fiber.Ctx) error {
	page := c.QueryInt("page", 1)
	pageSize := c.QueryInt("page_size", 20)
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	tickets, err := h.service.ListTeamTickets(c.UserContext(), c.Query("team_id"), pageSize, (page-1)*pageSize)
	if err != nil {
		return err
	}
	items := make([]dto.TicketResponse, 0, len(tickets))
	for i := range tickets {
		items = append(items, dto.NewTicketResponse(&tickets[i]))
	}
	return c.JSON(fiber.Map{"data": items, "page": page, "page_size": pageSize})
}

// GetTicket GET /tickets/:id.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	ticket, err := h.service.GetTicket(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketResponse(ticket)})
}

// UpdateStatus PATCH /tickets/:id/status.
func (h *TicketsHandler) UpdateStatus(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("user required")
	}
	var req dto.UpdateStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	ticket, err := h.service.UpdateStatus(c.UserContext(), principal.Actor(), c.Params("id"), req.Status)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketResponse(ticket)})
}

// RecordUpdate POST /tickets/:id/updates.
func (h *TicketsHandler) RecordUpdate(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("user required")
	}
	var req dto.RecordUpdateRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	update, err := h.service.RecordUpdate(c.UserContext(), principal.Actor(), c.Params("id"), req.UpdateType, req.Description)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewTicketUpdateResponse(update)})
}
