// Package users implements the durable account store. Accounts live in
// a single Postgres table keyed by email and survive sessions and
// process restarts.
package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"

	"github.com/jackc/pgx/v5/pgconn"

	"groceryhelper/internal/database"
)

var (
	// ErrDuplicateEmail is returned when the email is already registered
	ErrDuplicateEmail = errors.New("email already registered")
	// ErrNotFound is returned when no account matches the email
	ErrNotFound = errors.New("account not found")
)

const uniqueViolationCode = "23505"

// Repository handles all database operations for accounts
type Repository struct {
	db database.Service
}

// NewRepository creates a new accounts repository
func NewRepository(db database.Service) *Repository {
	return &Repository{db: db}
}

// EnsureSchema creates the users table if it does not exist
func (r *Repository) EnsureSchema(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS users (
			email TEXT PRIMARY KEY,
			password_hash TEXT NOT NULL,
			first_name TEXT NOT NULL,
			last_name TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`

	if _, err := r.db.Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to ensure users schema: %w", err)
	}
	return nil
}

// Add inserts a new account. The email unique constraint is surfaced
// as ErrDuplicateEmail; any other failure is a wrapped storage error.
func (r *Repository) Add(ctx context.Context, account *Account) (*Account, error) {
	query := `
		INSERT INTO users (email, password_hash, first_name, last_name)
		VALUES ($1, $2, $3, $4)
		RETURNING email, password_hash, first_name, last_name, created_at
	`

	created := &Account{}
	err := r.db.QueryRow(ctx, query,
		account.Email, account.PasswordHash, account.FirstName, account.LastName,
	).Scan(
		&created.Email,
		&created.PasswordHash,
		&created.FirstName,
		&created.LastName,
		&created.CreatedAt,
	)

	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateEmail
		}
		log.Printf("Error adding account: %v", err)
		return nil, fmt.Errorf("failed to add account: %w", err)
	}

	return created, nil
}

// GetByEmail retrieves an account by email
func (r *Repository) GetByEmail(ctx context.Context, email string) (*Account, error) {
	query := `
		SELECT email, password_hash, first_name, last_name, created_at
		FROM users
		WHERE email = $1
	`

	account := &Account{}
	err := r.db.QueryRow(ctx, query, email).Scan(
		&account.Email,
		&account.PasswordHash,
		&account.FirstName,
		&account.LastName,
		&account.CreatedAt,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		log.Printf("Error getting account by email: %v", err)
		return nil, fmt.Errorf("failed to get account: %w", err)
	}

	return account, nil
}

// Exists reports whether an account with the email is registered
func (r *Repository) Exists(ctx context.Context, email string) (bool, error) {
	_, err := r.GetByEmail(ctx, email)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Delete removes an account. ErrNotFound when no row matched.
func (r *Repository) Delete(ctx context.Context, email string) error {
	query := `DELETE FROM users WHERE email = $1`

	result, err := r.db.Exec(ctx, query, email)
	if err != nil {
		log.Printf("Error deleting account: %v", err)
		return fmt.Errorf("failed to delete account: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read delete result: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}

	return nil
}

// isUniqueViolation checks if the error is a unique constraint violation
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode
}
