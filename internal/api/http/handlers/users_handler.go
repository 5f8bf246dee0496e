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

// ProfileStore is implemented by service.ProfileService.
type ProfileStore interface {
	GetProfile(ctx context.Context, userID string) (*domain.UserProfile, error)
	UpdateProfile(ctx context.Context, userID, phone string, enabled bool) (*domain.UserProfile, error)
}

// ConsentStore is implemented by service.ConsentLedger.
type ConsentStore interface {
	RecordConsent(ctx context.Context, grant service.ConsentGrant) (*domain.ConsentRecord, error)
	WithdrawConsent(ctx context.Context, userID, purpose string, method domain.ConsentMethod) (*domain.ConsentRecord, error)
	History(ctx context.Context, userID, purpose string) ([]domain.ConsentRecord, error)
}

// UsersHandler serves the caller's notification profile and consent.
type UsersHandler struct {
	profiles ProfileStore
	consents ConsentStore
}

// NewUsersHandler creates handler.
func NewUsersHandler(profiles ProfileStore, consents ConsentStore) *UsersHandler {
	return &UsersHandler{profiles: profiles, consents: consents}
}

// GetProfile GET /profile.
func (h *UsersHandler) GetProfile(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("user required")
	}
	profile, err := h.profiles.GetProfile(c.UserContext(), principal.User.ID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewProfileResponse(profile)})
}

// UpdateProfile PUT /profile.
func (h *UsersHandler) UpdateProfile(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("user required")
	}
	var req dto.UpdateProfileRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	profile, err := h.profiles.UpdateProfile(c.UserContext(), principal.User.ID, req.PhoneNumber, req.NotificationsEnabled)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewProfileResponse(profile)})
}

// RecordConsent POST /consents.
func (h *UsersHandler) RecordConsent(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("user required")
	}
	var req dto.ConsentRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Granted == nil {
		return apperrors.NewValidationError("granted required", nil)
	}
	if req.Purpose == "" {
		req.Purpose = domain.PurposeSMSNotifications
	}

	record, err := h.consents.RecordConsent(c.UserContext(), service.ConsentGrant{
		UserID:        principal.User.ID,
		Purpose:       req.Purpose,
		Granted:       *req.Granted,
		Method:        req.Method,
		LegalBasis:    req.LegalBasis,
		PurposeText:   req.PurposeText,
		RetentionNote: req.RetentionNote,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewConsentResponse(record)})
}

// GetConsent GET /consents/:purpose returns the history, newest first.
func (h *UsersHandler) GetConsent(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("user required")
	}
	records, err := h.consents.History(c.UserContext(), principal.User.ID, c.Params("purpose"))
	if err != nil {
		return err
	}
	items := make([]dto.ConsentResponse, 0, len(records))
	for i := range records {
		items = append(items, dto.NewConsentResponse(&records[i]))
	}
	active := len(records) > 0 && records[0].Active()
	return c.JSON(fiber.Map{"data": items, "active": active})
}

// WithdrawConsent DELETE /consents/:purpose.
func (h *UsersHandler) WithdrawConsent(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("user required")
	}
	method := domain.ConsentMethod(c.Query("method", string(domain.ConsentMethodAPI)))
	record, err := h.consents.WithdrawConsent(c.UserContext(), principal.User.ID, c.Params("purpose"), method)
	if err != nil {
		return err
	}
	if record == nil {
		return c.SendStatus(http.StatusNoContent)
	}
	return c.JSON(fiber.Map{"data": dto.NewConsentResponse(record)})
}
