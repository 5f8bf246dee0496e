package dto

import (
	"time"

	"github.com/spec-kit/ticket-notifications/internal/domain"
)

// UpdateProfileRequest payload.
type UpdateProfileRequest struct {
	PhoneNumber          string `json:"phone_number"`
	NotificationsEnabled bool   `json:"notifications_enabled"`
}

// ProfileResponse exposes notification settings.
type ProfileResponse struct {
	UserID               string    `json:"user_id"`
	PhoneNumber          string    `json:"phone_number"`
	NotificationsEnabled bool      `json:"notifications_enabled"`
	UpdatedAt            time.Time `json:"updated_at,omitempty"`
}

// ConsentRequest payload.
type ConsentRequest struct {
	Purpose       string               `json:"purpose"`
	Granted       *bool                `json:"granted"`
	Method        domain.ConsentMethod `json:"method"`
	LegalBasis    string               `json:"legal_basis"`
	PurposeText   string               `json:"purpose_text"`
	RetentionNote string               `json:"retention_note"`
}

// ConsentResponse represents one ledger record.
type ConsentResponse struct {
	ID            string               `json:"id"`
	Purpose       string               `json:"purpose"`
	Granted       bool                 `json:"granted"`
	Active        bool                 `json:"active"`
	Method        domain.ConsentMethod `json:"method"`
	GrantedAt     time.Time            `json:"granted_at"`
	WithdrawnAt   *time.Time           `json:"withdrawn_at"`
	LegalBasis    string               `json:"legal_basis,omitempty"`
	PurposeText   string               `json:"purpose_text,omitempty"`
	RetentionNote string               `json:"retention_note,omitempty"`
}

// NewProfileResponse maps a profile.
func NewProfileResponse(p *domain.UserProfile) ProfileResponse {
	return ProfileResponse{
		UserID:               p.UserID,
		PhoneNumber:          p.PhoneNumber,
		NotificationsEnabled: p.NotificationsEnabled,
		UpdatedAt:            p.UpdatedAt,
	}
}

// NewConsentResponse maps a consent record.
func NewConsentResponse(r *domain.ConsentRecord) ConsentResponse {
	return ConsentResponse{
		ID:            r.ID,
		Purpose:       r.Purpose,
		Granted:       r.Granted,
		Active:        r.Active(),
		Method:        r.Method,
		GrantedAt:     r.GrantedAt,
		WithdrawnAt:   r.WithdrawnAt,
		LegalBasis:    r.LegalBasis,
		PurposeText:   r.PurposeText,
		RetentionNote: r.RetentionNote,
	}
}
