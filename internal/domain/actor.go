package domain

// Actor identifies who performed a ticket action.
type Actor struct {
	ID    string
	Name  string
	Email string
}
