package domain

// RecipientRole tags why a recipient is being notified.
type RecipientRole string

const (
	RoleTeamMember    RecipientRole = "team_member"
	RoleTicketCreator RecipientRole = "ticket_creator"
)

// NotificationRecipient is computed per dispatch and never persisted.
type NotificationRecipient struct {
	UserID      string
	DisplayName string
	Address     string
	Role        RecipientRole
}
