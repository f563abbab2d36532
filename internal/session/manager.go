// Package session provides server-side session management. Sessions
// are stored behind the Store interface (Redis in production) keyed by
// an opaque ID that travels in an HttpOnly cookie.
//
// A session moves between exactly two states: Anonymous (no record)
// and Authenticated (record holding the account email). There is no
// automatic transition unless a positive max age is configured.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrSessionNotFound is returned when a session is not found
	ErrSessionNotFound = errors.New("session not found")
	// ErrSessionExpired is returned when a session has expired
	ErrSessionExpired = errors.New("session expired")
	// ErrInvalidSession is returned when session data is invalid
	ErrInvalidSession = errors.New("invalid session")
)

// Manager defines the interface for session management operations
type Manager interface {
	// Create starts an authenticated session for email. maxAge is the
	// lifetime in seconds; zero or negative means no expiry.
	Create(ctx context.Context, email string, maxAge int) (string, error)
	Get(ctx context.Context, sessionID string) (*Session, error)
	Delete(ctx context.Context, sessionID string) error
	Validate(ctx context.Context, sessionID string) (bool, error)
	// Ping reports whether the backing store is reachable.
	Ping(ctx context.Context) error
}

// manager implements Manager interface
type manager struct {
	store Store
}

// NewManager creates a new session manager
func NewManager(store Store) Manager {
	return &manager{
		store: store,
	}
}

// Create creates a new session and returns the session ID
func (m *manager) Create(ctx context.Context, email string, maxAge int) (string, error) {
	sessionID := uuid.New().String()

	now := time.Now()
	session := &Session{
		ID:        sessionID,
		Email:     email,
		CreatedAt: now,
	}

	var ttl time.Duration
	if maxAge > 0 {
		session.ExpiresAt = now.Add(time.Duration(maxAge) * time.Second)
		ttl = time.Duration(maxAge) * time.Second
	}

	sessionData, err := json.Marshal(session)
	if err != nil {
		return "", fmt.Errorf("failed to marshal session: %w", err)
	}

	key := fmt.Sprintf("session:%s", sessionID)
	if err := m.store.Set(ctx, key, string(sessionData), ttl); err != nil {
		return "", fmt.Errorf("failed to store session: %w", err)
	}

	return sessionID, nil
}

// Get retrieves a session by ID
func (m *manager) Get(ctx context.Context, sessionID string) (*Session, error) {
	key := fmt.Sprintf("session:%s", sessionID)

	sessionData, err := m.store.Get(ctx, key)
	if err != nil {
		return nil, ErrSessionNotFound
	}

	var session Session
	if err := json.Unmarshal([]byte(sessionData), &session); err != nil {
		return nil, ErrInvalidSession
	}

	// Zero ExpiresAt means the session never expires on its own.
	if !session.ExpiresAt.IsZero() && time.Now().After(session.ExpiresAt) {
		m.store.Delete(ctx, key)
		return nil, ErrSessionExpired
	}

	return &session, nil
}

// Delete removes a session. Deleting an absent session is a no-op, so
// logout stays idempotent.
func (m *manager) Delete(ctx context.Context, sessionID string) error {
	key := fmt.Sprintf("session:%s", sessionID)
	return m.store.Delete(ctx, key)
}

// Validate checks if a session exists and is valid
func (m *manager) Validate(ctx context.Context, sessionID string) (bool, error) {
	session, err := m.Get(ctx, sessionID)
	if err != nil {
		return false, err
	}

	return session != nil, nil
}

// Ping checks connectivity to the backing session store
func (m *manager) Ping(ctx context.Context) error {
	return m.store.Ping(ctx)
}
