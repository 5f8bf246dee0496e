package notify_test

import (
	"context"
	"errors"
	"sync"

	"github.com/spec-kit/ticket-notifications/internal/domain"
)

type fakeDirectory struct {
	teams   map[string][]domain.TeamMember
	users   map[string]domain.User
	listErr error
}

func (f *fakeDirectory) ListTeamMembers(_ context.Context, teamID string) ([]domain.TeamMember, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	members, ok := f.teams[teamID]
	if !ok {
		return nil, domain.ErrTeamNotFound
	}
	return members, nil
}

func (f *fakeDirectory) GetUser(_ context.Context, userID string) (*domain.User, error) {
	u, ok := f.users[userID]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return &u, nil
}

type fakeProfiles struct {
	profiles map[string]domain.UserProfile
	failing  map[string]bool
}

func (f *fakeProfiles) Get(_ context.Context, userID string) (*domain.UserProfile, error) {
	if f.failing[userID] {
		return nil, errors.New("profile store unavailable")
	}
	p, ok := f.profiles[userID]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

type fakeConsent struct {
	valid map[string]bool
}

func (f *fakeConsent) HasValidConsent(_ context.Context, userID, purpose string) bool {
	return purpose == domain.PurposeSMSNotifications && f.valid[userID]
}

// recordingSender records messages and fails for configured addresses.
type recordingSender struct {
	mu      sync.Mutex
	sent    map[string][]string
	failFor map[string]error
	panicOn map[string]bool
}

func newRecordingSender() *recordingSender {
	return &recordingSender{sent: map[string][]string{}, failFor: map[string]error{}, panicOn: map[string]bool{}}
}

func (s *recordingSender) Send(_ context.Context, to, body string) error {
	if s.panicOn[to] {
		panic("provider exploded")
	}
	if err := s.failFor[to]; err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent[to] = append(s.sent[to], body)
	return nil
}

func (s *recordingSender) messagesTo(to string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.sent[to]...)
}

func reachable(phone string) domain.UserProfile {
	return domain.UserProfile{PhoneNumber: phone, NotificationsEnabled: true}
}
