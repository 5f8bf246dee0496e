package service_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/spec-kit/ticket-notifications/internal/domain"
	"github.com/spec-kit/ticket-notifications/internal/events"
	"github.com/spec-kit/ticket-notifications/internal/repository"
)

// memoryTickets is an in-memory TicketRepository that keeps outbox rows.
type memoryTickets struct {
	mu      sync.Mutex
	tickets map[string]domain.Ticket
	updates []domain.TicketUpdate
	outbox  []domain.OutboxEntry
	clock   time.Time
}

func newMemoryTickets() *memoryTickets {
	return &memoryTickets{
		tickets: map[string]domain.Ticket{},
		clock:   time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
	}
}

func (m *memoryTickets) tick() time.Time {
	m.clock = m.clock.Add(time.Second)
	return m.clock
}

func (m *memoryTickets) Create(_ context.Context, ticket *domain.Ticket, outbox repository.OutboxFunc) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	ticket.CreatedAt = m.tick()
	ticket.UpdatedAt = ticket.CreatedAt
	if err := m.appendOutbox(outbox, ticket, ""); err != nil {
		return err
	}
	m.tickets[ticket.ID] = *ticket
	return nil
}

func (m *memoryTickets) GetByID(_ context.Context, id string) (*domain.Ticket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tickets[id]
	if !ok {
		return nil, domain.ErrTicketNotFound
	}
	return &t, nil
}

func (m *memoryTickets) ListByTeam(_ context.Context, teamID string, _, _ int) ([]domain.Ticket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Ticket
	for _, t := range m.tickets {
		if t.TeamID == teamID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (m *memoryTickets) UpdateStatus(_ context.Context, id string, status domain.TicketStatus, outbox repository.OutboxFunc) (*domain.Ticket, domain.TicketStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tickets[id]
	if !ok {
		return nil, "", domain.ErrTicketNotFound
	}
	previous := t.Status
	t.Status = status
	t.UpdatedAt = m.tick()
	if err := m.appendOutbox(outbox, &t, previous); err != nil {
		return nil, "", err
	}
	m.tickets[id] = t
	return &t, previous, nil
}

func (m *memoryTickets) RecordUpdate(_ context.Context, update *domain.TicketUpdate, outbox repository.OutboxFunc) (*domain.Ticket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tickets[update.TicketID]
	if !ok {
		return nil, domain.ErrTicketNotFound
	}
	update.CreatedAt = m.tick()
	if err := m.appendOutbox(outbox, &t, t.Status); err != nil {
		return nil, err
	}
	m.updates = append(m.updates, *update)
	return &t, nil
}

func (m *memoryTickets) appendOutbox(build repository.OutboxFunc, t *domain.Ticket, previous domain.TicketStatus) error {
	if build == nil {
		return nil
	}
	entry, err := build(t, previous)
	if err != nil || entry == nil {
		return err
	}
	m.outbox = append(m.outbox, *entry)
	return nil
}

func (m *memoryTickets) outboxEntries() []domain.OutboxEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.OutboxEntry(nil), m.outbox...)
}

// directory serves teams, users and profiles from maps.
type directory struct {
	teams    map[string][]domain.TeamMember
	users    map[string]domain.User
	profiles map[string]domain.UserProfile
}

func (d *directory) Exists(_ context.Context, teamID string) (bool, error) {
	_, ok := d.teams[teamID]
	return ok, nil
}

func (d *directory) ListTeamMembers(_ context.Context, teamID string) ([]domain.TeamMember, error) {
	members, ok := d.teams[teamID]
	if !ok {
		return nil, domain.ErrTeamNotFound
	}
	return members, nil
}

func (d *directory) GetUser(_ context.Context, userID string) (*domain.User, error) {
	u, ok := d.users[userID]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return &u, nil
}

func (d *directory) Get(_ context.Context, userID string) (*domain.UserProfile, error) {
	p, ok := d.profiles[userID]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (d *directory) Upsert(_ context.Context, profile *domain.UserProfile) error {
	profile.UpdatedAt = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	d.profiles[profile.UserID] = *profile
	return nil
}

// memoryConsents keeps records in insertion order.
type memoryConsents struct {
	mu      sync.Mutex
	records []*domain.ConsentRecord
	failAll error
}

func (m *memoryConsents) Insert(_ context.Context, record *domain.ConsentRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAll != nil {
		return m.failAll
	}
	r := *record
	m.records = append(m.records, &r)
	return nil
}

func (m *memoryConsents) WithdrawActive(_ context.Context, userID, purpose string, method domain.ConsentMethod) (*domain.ConsentRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.records) - 1; i >= 0; i-- {
		r := m.records[i]
		if r.UserID == userID && r.Purpose == purpose && r.Active() {
			now := time.Now().UTC()
			r.WithdrawnAt = &now
			r.Method = method
			out := *r
			return &out, nil
		}
	}
	return nil, nil
}

func (m *memoryConsents) Latest(_ context.Context, userID, purpose string) (*domain.ConsentRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAll != nil {
		return nil, m.failAll
	}
	for i := len(m.records) - 1; i >= 0; i-- {
		if r := m.records[i]; r.UserID == userID && r.Purpose == purpose {
			out := *r
			return &out, nil
		}
	}
	return nil, nil
}

func (m *memoryConsents) History(_ context.Context, userID, purpose string) ([]domain.ConsentRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.ConsentRecord
	for i := len(m.records) - 1; i >= 0; i-- {
		if r := m.records[i]; r.UserID == userID && r.Purpose == purpose {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (m *memoryConsents) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}

// busDeliverer publishes outbox payloads directly on a bus.
type busDeliverer struct {
	bus       events.Bus
	delivered []string
}

func (d *busDeliverer) Deliver(ctx context.Context, entry *domain.OutboxEntry) error {
	var event events.Event
	if err := json.Unmarshal(entry.Payload, &event); err != nil {
		return err
	}
	if err := d.bus.Publish(ctx, event); err != nil {
		return err
	}
	d.delivered = append(d.delivered, entry.ID)
	return nil
}

// recordingSender records every accepted message by address.
type recordingSender struct {
	mu      sync.Mutex
	sent    map[string][]string
	failFor map[string]bool
}

func newRecordingSender() *recordingSender {
	return &recordingSender{sent: map[string][]string{}, failFor: map[string]bool{}}
}

func (s *recordingSender) Send(_ context.Context, to, body string) error {
	if s.failFor[to] {
		return errors.New("carrier rejected message")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent[to] = append(s.sent[to], body)
	return nil
}

func (s *recordingSender) addresses() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for to := range s.sent {
		out = append(out, to)
	}
	return out
}

func (s *recordingSender) messagesTo(to string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.sent[to]...)
}
