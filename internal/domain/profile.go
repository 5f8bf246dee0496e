package domain

import "time"

// UserProfile holds the notification settings owned by the profile store.
type UserProfile struct {
	UserID               string
	PhoneNumber          string
	NotificationsEnabled bool
	UpdatedAt            time.Time
}

// Reachable reports whether the profile has an address and accepts notifications.
func (p *UserProfile) Reachable() bool {
	return p != nil && p.PhoneNumber != "" && p.NotificationsEnabled
}
