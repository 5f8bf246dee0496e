package notify

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spec-kit/ticket-notifications/internal/domain"
	"github.com/spec-kit/ticket-notifications/internal/events"
)

// ErrNoTemplate is returned when no message exists for an (event, role) pair.
var ErrNoTemplate = errors.New("no message template for event and role")

type templateKey struct {
	event events.EventType
	role  domain.RecipientRole
}

type templateFunc func(event events.Event, ticket *domain.Ticket) string

// templates is the full set of supported (event, role) messages. Ticket
// creation only reaches team members and generic updates only reach the
// creator, so those pairs have no counterpart.
var templates = map[templateKey]templateFunc{
	{events.EventTicketCreated, domain.RoleTeamMember}:          createdForMember,
	{events.EventTicketStatusChanged, domain.RoleTicketCreator}: statusForCreator,
	{events.EventTicketStatusChanged, domain.RoleTeamMember}:    statusForMember,
	{events.EventTicketUpdated, domain.RoleTicketCreator}:       updateForCreator,
}

var statusMarkers = map[domain.TicketStatus]string{
	domain.TicketStatusOpen:       "🆕",
	domain.TicketStatusInProgress: "🔧",
	domain.TicketStatusResolved:   "✅",
	domain.TicketStatusClosed:     "🔒",
}

var statusLabels = map[domain.TicketStatus]string{
	domain.TicketStatusOpen:       "Open",
	domain.TicketStatusInProgress: "In Progress",
	domain.TicketStatusResolved:   "Resolved",
	domain.TicketStatusClosed:     "Closed",
}

var updateLabels = map[string]string{
	"comment":    "New comment",
	"attachment": "New attachment",
	"assignment": "Ticket reassigned",
	"priority":   "Severity changed",
	"edit":       "Ticket edited",
}

// Composer renders notification text. It performs no I/O.
type Composer struct {
	link string
}

// NewComposer returns a composer that ends every message with link.
func NewComposer(link string) *Composer {
	return &Composer{link: link}
}

// Compose renders the message for role about event.
func (c *Composer) Compose(event events.Event, ticket *domain.Ticket, role domain.RecipientRole) (string, error) {
	tmpl, ok := templates[templateKey{event: event.Type, role: role}]
	if !ok {
		return "", fmt.Errorf("%w: %s/%s", ErrNoTemplate, event.Type, role)
	}
	if ticket == nil {
		ticket = &event.Ticket
	}
	return tmpl(event, ticket) + "\n\nView tickets: " + c.link, nil
}

func createdForMember(_ events.Event, t *domain.Ticket) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🎫 New ticket: %s\n", t.Title)
	fmt.Fprintf(&b, "Severity: %s\n", severityLabel(t.Severity))
	fmt.Fprintf(&b, "Category: %s\n", orDefault(t.Category, "Uncategorized"))
	fmt.Fprintf(&b, "Created by: %s", orDefault(t.CreatorName, "Unknown"))
	return b.String()
}

func statusForCreator(e events.Event, t *domain.Ticket) string {
	oldStatus, newStatus := statusPair(e, t)
	return fmt.Sprintf("%s Your ticket %q is now %s\n%s → %s",
		statusMarker(newStatus), t.Title, statusLabel(newStatus), statusLabel(oldStatus), statusLabel(newStatus))
}

func statusForMember(e events.Event, t *domain.Ticket) string {
	oldStatus, newStatus := statusPair(e, t)
	return fmt.Sprintf("%s Ticket %q from %s\n%s → %s",
		statusMarker(newStatus), t.Title, orDefault(t.CreatorName, "Unknown"), statusLabel(oldStatus), statusLabel(newStatus))
}

func updateForCreator(e events.Event, t *domain.Ticket) string {
	var updateType, detail string
	if e.Update != nil {
		updateType = e.Update.UpdateType
		detail = strings.TrimSpace(e.Update.Description)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "📝 %s on your ticket %q\n", updateLabel(updateType), t.Title)
	if detail != "" {
		fmt.Fprintf(&b, "%s\n", detail)
	}
	fmt.Fprintf(&b, "Updated by: %s", orDefault(e.Actor.Name, "Support team"))
	return b.String()
}

func statusPair(e events.Event, t *domain.Ticket) (domain.TicketStatus, domain.TicketStatus) {
	if e.StatusChange != nil {
		return e.StatusChange.OldStatus, e.StatusChange.NewStatus
	}
	return t.Status, t.Status
}

func statusMarker(s domain.TicketStatus) string {
	if m, ok := statusMarkers[s]; ok {
		return m
	}
	return "ℹ️"
}

func statusLabel(s domain.TicketStatus) string {
	if l, ok := statusLabels[s]; ok {
		return l
	}
	return string(s)
}

func severityLabel(s domain.TicketSeverity) string {
	if s == "" {
		return "Medium"
	}
	return strings.ToUpper(string(s[:1])) + string(s[1:])
}

func updateLabel(updateType string) string {
	if l, ok := updateLabels[strings.ToLower(updateType)]; ok {
		return l
	}
	if updateType == "" {
		return "Update"
	}
	return "Update (" + updateType + ")"
}

func orDefault(v, fallback string) string {
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	return v
}
