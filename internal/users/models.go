package users

import "time"

// Account represents a persisted user record keyed by email.
// Emails are stored case-sensitively; no normalization is applied.
type Account struct {
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	CreatedAt    time.Time `json:"created_at"`
}
