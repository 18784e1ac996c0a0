package models

// User represents a registered user account.
// Users are created on first login and are never updated or deleted.
type User struct {
	// ID is the store-assigned identifier.
	ID int64

	// Email is the user's email address (unique, compared case-sensitively).
	Email string

	// Name is the display name captured at creation.
	Name string
}
