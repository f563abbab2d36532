package session

import "time"

// Session records who is authenticated in one browser context.
// A session holds at most one email; its absence means Anonymous.
type Session struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
	// ExpiresAt is zero when the session has no expiry policy.
	ExpiresAt time.Time `json:"expires_at,omitempty"`
}
