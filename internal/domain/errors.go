package domain

import "errors"

var (
	// ErrTicketNotFound is returned when a ticket id does not exist.
	ErrTicketNotFound = errors.New("ticket not found")
	// ErrTeamNotFound is returned when a team id does not exist.
	ErrTeamNotFound = errors.New("team not found")
	// ErrUserNotFound is returned when the directory has no such user.
	ErrUserNotFound = errors.New("user not found")
)
