package service

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/spec-kit/ticket-notifications/internal/domain"
	"github.com/spec-kit/ticket-notifications/internal/repository"
	apperrors "github.com/spec-kit/ticket-notifications/pkg/util/errorutil"
)

var phonePattern = regexp.MustCompile(`^\+[1-9][0-9]{6,14}$`)

// ProfileService exposes the notification profile of the current user.
type ProfileService struct {
	profiles repository.ProfileRepository
}

// NewProfileService constructs the service.
func NewProfileService(profiles repository.ProfileRepository) *ProfileService {
	return &ProfileService{profiles: profiles}
}

// GetProfile returns the stored profile, or an empty one for unknown users.
func (s *ProfileService) GetProfile(ctx context.Context, userID string) (*domain.UserProfile, error) {
	profile, err := s.profiles.Get(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	if profile == nil {
		return &domain.UserProfile{UserID: userID}, nil
	}
	return profile, nil
}

// UpdateProfile stores the phone number and notification switch. Numbers
// must be in E.164 form; an empty number clears it.
func (s *ProfileService) UpdateProfile(ctx context.Context, userID, phone string, enabled bool) (*domain.UserProfile, error) {
	phone = strings.TrimSpace(phone)
	if phone != "" && !phonePattern.MatchString(phone) {
		return nil, apperrors.NewValidationError("phone number must be in E.164 format", map[string]any{"phone_number": phone})
	}
	profile := &domain.UserProfile{
		UserID:               userID,
		PhoneNumber:          phone,
		NotificationsEnabled: enabled,
	}
	if err := s.profiles.Upsert(ctx, profile); err != nil {
		return nil, fmt.Errorf("upsert profile: %w", err)
	}
	return profile, nil
}
