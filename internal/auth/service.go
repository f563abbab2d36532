// Package auth implements account signup, login and deletion for the
// GroceryHelper API. Credentials are verified by recomputing the
// password digest against the durable account store; the newsletter
// subscription attempted during signup is best-effort and never blocks
// account creation.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log"

	"groceryhelper/internal/newsletter"
	"groceryhelper/internal/password"
	"groceryhelper/internal/users"
)

var (
	// ErrEmailExists is returned when the email is already registered
	ErrEmailExists = errors.New("email already registered")
	// ErrUserNotFound is returned when no account matches the email
	ErrUserNotFound = errors.New("account not found")
	// ErrInvalidCredentials is returned on a password mismatch
	ErrInvalidCredentials = errors.New("invalid email or password")
)

// Store is the account persistence consumed by the service.
// *users.Repository satisfies it; tests substitute fakes.
type Store interface {
	Add(ctx context.Context, account *users.Account) (*users.Account, error)
	GetByEmail(ctx context.Context, email string) (*users.Account, error)
	Exists(ctx context.Context, email string) (bool, error)
	Delete(ctx context.Context, email string) error
}

// Service defines the authentication service interface
type Service interface {
	Signup(ctx context.Context, email, plaintext, firstName, lastName string) (*users.Account, error)
	Login(ctx context.Context, email, plaintext string) (*users.Account, error)
	GetByEmail(ctx context.Context, email string) (*users.Account, error)
	DeleteAccount(ctx context.Context, email string) error
}

// service implements the Service interface
type service struct {
	store    Store
	hasher   password.Hasher
	notifier newsletter.Notifier
}

// NewService creates a new authentication service
func NewService(store Store, hasher password.Hasher, notifier newsletter.Notifier) Service {
	return &service{
		store:    store,
		hasher:   hasher,
		notifier: notifier,
	}
}

// Signup registers a new account. The email must be unregistered; the
// newsletter subscription is attempted first and its outcome only
// changes what gets logged.
func (s *service) Signup(ctx context.Context, email, plaintext, firstName, lastName string) (*users.Account, error) {
	exists, err := s.store.Exists(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}
	if exists {
		return nil, ErrEmailExists
	}

	if !s.notifier.Subscribe(ctx, email, firstName, lastName) {
		log.Printf("Newsletter subscription failed for %s, proceeding with signup", email)
	}

	digest, err := s.hasher.Hash(plaintext)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	account, err := s.store.Add(ctx, &users.Account{
		Email:        email,
		PasswordHash: digest,
		FirstName:    firstName,
		LastName:     lastName,
	})
	if err != nil {
		// A concurrent signup can still hit the unique constraint.
		if errors.Is(err, users.ErrDuplicateEmail) {
			return nil, ErrEmailExists
		}
		return nil, fmt.Errorf("failed to create account: %w", err)
	}

	log.Printf("Created account: %s", account.Email)

	return account, nil
}

// Login verifies credentials by recomputing the digest. Unknown email
// and wrong password both surface as ErrInvalidCredentials.
func (s *service) Login(ctx context.Context, email, plaintext string) (*users.Account, error) {
	account, err := s.store.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, users.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to load account: %w", err)
	}

	if !s.hasher.Check(plaintext, account.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	return account, nil
}

// GetByEmail returns the account behind an authenticated session
func (s *service) GetByEmail(ctx context.Context, email string) (*users.Account, error) {
	account, err := s.store.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, users.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to load account: %w", err)
	}
	return account, nil
}

// DeleteAccount removes the account for email
func (s *service) DeleteAccount(ctx context.Context, email string) error {
	err := s.store.Delete(ctx, email)
	if err != nil {
		if errors.Is(err, users.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to delete account: %w", err)
	}

	log.Printf("Deleted account: %s", email)

	return nil
}
