package domain

// TeamMember is a member entry returned by the identity directory.
type TeamMember struct {
	ID          string
	DisplayName string
}

// User is the identity directory view of an account.
type User struct {
	ID          string
	DisplayName string
	Email       string
}
