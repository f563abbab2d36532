// Package database provides the shared PostgreSQL connection service.
// A single pooled *sql.DB (pgx stdlib driver) is shared by all
// repositories instead of opening a connection per operation.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strconv"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/joho/godotenv/autoload"

	"groceryhelper/internal/config"
)

// Service defines the interface for database operations
type Service interface {
	// QueryRow executes a query that returns at most one row
	QueryRow(ctx context.Context, query string, args ...any) *sql.Row

	// Query executes a query that returns rows
	Query(ctx context.Context, query string, args ...any) (*sql.Rows, error)

	// Exec executes a statement and returns its result
	Exec(ctx context.Context, query string, args ...any) (sql.Result, error)

	// Health returns connection health and pool statistics
	Health() map[string]string

	// Close terminates the connection pool
	Close() error
}

type service struct {
	db *sql.DB
}

// New opens the database connection pool using DATABASE_URL, or the
// individual DB_* variables when DATABASE_URL is not set.
func New() (Service, error) {
	dsn := config.GetEnvOrDefault("DATABASE_URL", "")
	if dsn == "" {
		dsn = fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
			config.GetEnvOrDefault("DB_USER", "postgres"),
			config.GetEnvOrDefault("DB_PASSWORD", "postgres"),
			config.GetEnvOrDefault("DB_HOST", "localhost"),
			config.GetEnvOrDefault("DB_PORT", "5432"),
			config.GetEnvOrDefault("DB_NAME", "groceryhelper"),
			config.GetEnvOrDefault("DB_SSLMODE", "disable"),
		)
	}

	return Open(dsn)
}

// Open creates a Service for the given connection string. Exposed so
// tests can point the service at a container-provided database.
func Open(dsn string) (Service, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(config.GetEnvInt("DB_MAX_OPEN_CONNS", 25))
	db.SetMaxIdleConns(config.GetEnvInt("DB_MAX_IDLE_CONNS", 5))
	db.SetConnMaxLifetime(30 * time.Minute)

	return &service{db: db}, nil
}

func (s *service) QueryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return s.db.QueryRowContext(ctx, query, args...)
}

func (s *service) Query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return s.db.QueryContext(ctx, query, args...)
}

func (s *service) Exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return s.db.ExecContext(ctx, query, args...)
}

// Health pings the database and reports pool statistics
func (s *service) Health() map[string]string {
	stats := make(map[string]string)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := s.db.PingContext(ctx); err != nil {
		stats["status"] = "down"
		stats["error"] = err.Error()
		log.Printf("Database health check failed: %v", err)
		return stats
	}

	poolStats := s.db.Stats()
	stats["status"] = "up"
	stats["open_connections"] = strconv.Itoa(poolStats.OpenConnections)
	stats["in_use"] = strconv.Itoa(poolStats.InUse)
	stats["idle"] = strconv.Itoa(poolStats.Idle)

	return stats
}

func (s *service) Close() error {
	return s.db.Close()
}
