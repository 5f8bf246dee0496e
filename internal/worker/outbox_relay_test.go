package worker

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/spec-kit/ticket-notifications/internal/config"
	"github.com/spec-kit/ticket-notifications/internal/domain"
	"github.com/spec-kit/ticket-notifications/internal/events"
	"github.com/spec-kit/ticket-notifications/internal/observability"
)

type memoryOutbox struct {
	mu      sync.Mutex
	entries map[string]*domain.OutboxEntry
}

func newMemoryOutbox(entries ...domain.OutboxEntry) *memoryOutbox {
	m := &memoryOutbox{entries: map[string]*domain.OutboxEntry{}}
	for i := range entries {
		e := entries[i]
		m.entries[e.ID] = &e
	}
	return m
}

func (m *memoryOutbox) ClaimDue(_ context.Context, now, leaseUntil time.Time, limit int) ([]domain.OutboxEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.OutboxEntry
	for _, e := range m.entries {
		if len(out) == limit {
			break
		}
		if e.Status == domain.OutboxStatusPending && !e.NextAttemptAt.After(now) {
			e.NextAttemptAt = leaseUntil
			out = append(out, *e)
		}
	}
	return out, nil
}

func (m *memoryOutbox) MarkDelivered(_ context.Context, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e := m.entries[id]
	e.Status = domain.OutboxStatusDelivered
	e.DeliveredAt = &at
	return nil
}

func (m *memoryOutbox) MarkRetry(_ context.Context, id string, attempts int, next time.Time, lastErr string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e := m.entries[id]
	e.Attempts = attempts
	e.NextAttemptAt = next
	e.LastError = lastErr
	return nil
}

func (m *memoryOutbox) MarkFailed(_ context.Context, id string, attempts int, lastErr string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e := m.entries[id]
	e.Status = domain.OutboxStatusFailed
	e.Attempts = attempts
	e.LastError = lastErr
	return nil
}

func (m *memoryOutbox) get(id string) domain.OutboxEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.entries[id]
}

var relayNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func testRelay(t *testing.T, store *memoryOutbox, bus events.Bus) *OutboxRelay {
	r := NewOutboxRelay(store, bus, config.OutboxConfig{
		PollInterval:    time.Second,
		BatchSize:       10,
		MaxAttempts:     3,
		InitialInterval: time.Second,
		MaxInterval:     4 * time.Second,
	}, observability.NewMetrics(prometheus.NewRegistry()), zaptest.NewLogger(t))
	r.now = func() time.Time { return relayNow }
	return r
}

func pendingEntry(t *testing.T, id string) domain.OutboxEntry {
	payload, err := json.Marshal(events.Event{
		ID:       id,
		Type:     events.EventTicketCreated,
		TicketID: "t-1",
		Ticket:   domain.Ticket{ID: "t-1", Title: "VPN down"},
	})
	require.NoError(t, err)
	return domain.OutboxEntry{
		ID:            id,
		EventType:     string(events.EventTicketCreated),
		TicketID:      "t-1",
		Payload:       payload,
		Status:        domain.OutboxStatusPending,
		NextAttemptAt: relayNow.Add(-time.Second),
	}
}

func TestDeliverPublishesAndMarksDelivered(t *testing.T) {
	t.Parallel()

	entry := pendingEntry(t, "e-1")
	store := newMemoryOutbox(entry)
	bus := events.NewInMemoryBus()
	var got events.Event
	bus.Subscribe(events.EventTicketCreated, func(_ context.Context, e events.Event) error {
		got = e
		return nil
	})

	require.NoError(t, testRelay(t, store, bus).Deliver(context.Background(), &entry))

	assert.Equal(t, "VPN down", got.Ticket.Title)
	stored := store.get("e-1")
	assert.Equal(t, domain.OutboxStatusDelivered, stored.Status)
	require.NotNil(t, stored.DeliveredAt)
	assert.Equal(t, relayNow, *stored.DeliveredAt)
}

func TestDeliverSchedulesRetryThenGivesUp(t *testing.T) {
	t.Parallel()

	entry := pendingEntry(t, "e-1")
	store := newMemoryOutbox(entry)
	bus := events.NewInMemoryBus()
	bus.Subscribe(events.EventTicketCreated, func(context.Context, events.Event) error {
		return errors.New("directory unavailable")
	})
	relay := testRelay(t, store, bus)

	require.Error(t, relay.Deliver(context.Background(), &entry))
	stored := store.get("e-1")
	assert.Equal(t, domain.OutboxStatusPending, stored.Status)
	assert.Equal(t, 1, stored.Attempts)
	assert.Equal(t, relayNow.Add(time.Second), stored.NextAttemptAt)
	assert.Contains(t, stored.LastError, "directory unavailable")

	require.Error(t, relay.Deliver(context.Background(), &stored))
	stored = store.get("e-1")
	assert.Equal(t, 2, stored.Attempts)
	assert.Equal(t, relayNow.Add(1500*time.Millisecond), stored.NextAttemptAt)

	require.Error(t, relay.Deliver(context.Background(), &stored))
	stored = store.get("e-1")
	assert.Equal(t, domain.OutboxStatusFailed, stored.Status)
	assert.Equal(t, 3, stored.Attempts)
}

func TestDeliverUndecodablePayloadFailsImmediately(t *testing.T) {
	t.Parallel()

	entry := pendingEntry(t, "e-1")
	entry.Payload = []byte("{not json")
	store := newMemoryOutbox(entry)

	require.Error(t, testRelay(t, store, events.NewInMemoryBus()).Deliver(context.Background(), &entry))
	assert.Equal(t, domain.OutboxStatusFailed, store.get("e-1").Status)
}

func TestRetryDelayGrowsToCeiling(t *testing.T) {
	t.Parallel()

	relay := testRelay(t, newMemoryOutbox(), events.NewInMemoryBus())
	want := []time.Duration{
		time.Second,
		1500 * time.Millisecond,
		2250 * time.Millisecond,
		3375 * time.Millisecond,
		4 * time.Second,
		4 * time.Second,
	}
	for i, d := range want {
		assert.Equal(t, d, relay.RetryDelay(i+1), "attempt %d", i+1)
	}
}

func TestDrainOnceDeliversOnlyDueEntries(t *testing.T) {
	t.Parallel()

	due := pendingEntry(t, "due")
	later := pendingEntry(t, "later")
	later.NextAttemptAt = relayNow.Add(time.Minute)
	store := newMemoryOutbox(due, later)

	var published []string
	bus := events.NewInMemoryBus()
	bus.Subscribe(events.EventTicketCreated, func(_ context.Context, e events.Event) error {
		published = append(published, e.ID)
		return nil
	})

	n, err := testRelay(t, store, bus).DrainOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, []string{"due"}, published)
	assert.Equal(t, domain.OutboxStatusDelivered, store.get("due").Status)
	assert.Equal(t, domain.OutboxStatusPending, store.get("later").Status)
}

func TestStartNotificationWorkerStopsWithContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	done := StartNotificationWorker(ctx, nil, testRelay(t, newMemoryOutbox(), events.NewInMemoryBus()))
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("relay did not stop")
	}
}
