package domain

import "time"

// PurposeSMSNotifications is the consent purpose gating ticket SMS messages.
const PurposeSMSNotifications = "sms_notifications"

// ConsentMethod records how a grant or withdrawal was captured.
type ConsentMethod string

const (
	ConsentMethodUI           ConsentMethod = "ui"
	ConsentMethodAPI          ConsentMethod = "api"
	ConsentMethodRegistration ConsentMethod = "registration"
)

// Valid reports whether m is a known method.
func (m ConsentMethod) Valid() bool {
	switch m {
	case ConsentMethodUI, ConsentMethodAPI, ConsentMethodRegistration:
		return true
	}
	return false
}

// ConsentRecord is one row of the append-only consent ledger.
type ConsentRecord struct {
	ID            string
	UserID        string
	Purpose       string
	Granted       bool
	Method        ConsentMethod
	GrantedAt     time.Time
	WithdrawnAt   *time.Time
	LegalBasis    string
	PurposeText   string
	RetentionNote string
}

// Active reports whether the record is a grant that has not been withdrawn.
func (c *ConsentRecord) Active() bool {
	return c != nil && c.Granted && c.WithdrawnAt == nil
}
