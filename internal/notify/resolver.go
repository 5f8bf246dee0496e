package notify

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/spec-kit/ticket-notifications/internal/domain"
	"github.com/spec-kit/ticket-notifications/internal/events"
)

// MemberDirectory is the identity collaborator.
type MemberDirectory interface {
	ListTeamMembers(ctx context.Context, teamID string) ([]domain.TeamMember, error)
	GetUser(ctx context.Context, userID string) (*domain.User, error)
}

// ProfileReader returns nil without error when a user has no profile.
type ProfileReader interface {
	Get(ctx context.Context, userID string) (*domain.UserProfile, error)
}

// ConsentChecker reports whether a user currently consents to a purpose.
// Implementations fail closed.
type ConsentChecker interface {
	HasValidConsent(ctx context.Context, userID, purpose string) bool
}

type audience struct {
	team    bool
	creator bool
}

// audiences maps each event type to who hears about it.
var audiences = map[events.EventType]audience{
	events.EventTicketCreated:       {team: true},
	events.EventTicketStatusChanged: {team: true, creator: true},
	events.EventTicketUpdated:       {creator: true},
}

// ResolveRequest describes the event to resolve recipients for.
type ResolveRequest struct {
	Kind   events.EventType
	Ticket *domain.Ticket
	// ExcludeUserID is dropped from the team audience only.
	ExcludeUserID string
}

// Resolver computes the deduplicated, consent-filtered audience of an event.
type Resolver struct {
	directory MemberDirectory
	profiles  ProfileReader
	consent   ConsentChecker
	logger    *zap.Logger
}

// NewResolver builds a resolver.
func NewResolver(directory MemberDirectory, profiles ProfileReader, consent ConsentChecker, logger *zap.Logger) *Resolver {
	return &Resolver{
		directory: directory,
		profiles:  profiles,
		consent:   consent,
		logger:    logger.Named("resolver"),
	}
}

// Resolve returns the recipients for req. Recipients whose profile or
// consent cannot be read are skipped; only an unknown event type, a missing
// ticket or a failed membership lookup is returned as an error.
func (r *Resolver) Resolve(ctx context.Context, req ResolveRequest) ([]domain.NotificationRecipient, error) {
	aud, ok := audiences[req.Kind]
	if !ok {
		return nil, fmt.Errorf("resolve recipients: unknown event type %q", req.Kind)
	}
	if req.Ticket == nil {
		return nil, fmt.Errorf("resolve recipients: ticket required")
	}

	var recipients []domain.NotificationRecipient
	index := make(map[string]int)

	if aud.team {
		members, err := r.directory.ListTeamMembers(ctx, req.Ticket.TeamID)
		if err != nil {
			return nil, fmt.Errorf("list team %s members: %w", req.Ticket.TeamID, err)
		}
		for _, member := range members {
			if member.ID == "" || member.ID == req.ExcludeUserID {
				continue
			}
			if _, seen := index[member.ID]; seen {
				continue
			}
			recipient, ok := r.eligible(ctx, member.ID, member.DisplayName, domain.RoleTeamMember)
			if !ok {
				continue
			}
			index[member.ID] = len(recipients)
			recipients = append(recipients, recipient)
		}
	}

	if aud.creator && req.Ticket.CreatorID != "" {
		if recipient, ok := r.resolveCreator(ctx, req.Ticket); ok {
			if i, seen := index[recipient.UserID]; seen {
				recipients[i] = recipient
			} else {
				index[recipient.UserID] = len(recipients)
				recipients = append(recipients, recipient)
			}
		}
	}

	r.logger.Debug("resolved recipients",
		zap.String("event", string(req.Kind)),
		zap.String("ticket_id", req.Ticket.ID),
		zap.Int("count", len(recipients)))
	return recipients, nil
}

func (r *Resolver) resolveCreator(ctx context.Context, ticket *domain.Ticket) (domain.NotificationRecipient, bool) {
	name := ticket.CreatorName
	if name == "" {
		user, err := r.directory.GetUser(ctx, ticket.CreatorID)
		if err != nil {
			r.logger.Warn("creator lookup failed; using id as name",
				zap.String("user_id", ticket.CreatorID), zap.Error(err))
			name = ticket.CreatorID
		} else {
			name = user.DisplayName
		}
	}
	return r.eligible(ctx, ticket.CreatorID, name, domain.RoleTicketCreator)
}

// eligible applies the profile and consent checks for one user.
func (r *Resolver) eligible(ctx context.Context, userID, name string, role domain.RecipientRole) (domain.NotificationRecipient, bool) {
	profile, err := r.profiles.Get(ctx, userID)
	if err != nil {
		r.logger.Warn("profile lookup failed; skipping recipient",
			zap.String("user_id", userID), zap.String("role", string(role)), zap.Error(err))
		return domain.NotificationRecipient{}, false
	}
	if !profile.Reachable() {
		return domain.NotificationRecipient{}, false
	}
	if !r.consent.HasValidConsent(ctx, userID, domain.PurposeSMSNotifications) {
		return domain.NotificationRecipient{}, false
	}
	return domain.NotificationRecipient{
		UserID:      userID,
		DisplayName: name,
		Address:     profile.PhoneNumber,
		Role:        role,
	}, true
}
