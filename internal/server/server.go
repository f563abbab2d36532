// Package server assembles the GroceryHelper HTTP API: account
// signup/login/logout, the authenticated ingredient analysis flow and
// health reporting.
package server

import (
	"fmt"
	"net/http"
	"time"

	_ "github.com/joho/godotenv/autoload"

	"groceryhelper/internal/analysis"
	"groceryhelper/internal/auth"
	"groceryhelper/internal/config"
	"groceryhelper/internal/database"
	"groceryhelper/internal/session"
	"groceryhelper/internal/storage"
)

// Server holds the dependencies for the HTTP server
type Server struct {
	port int

	db         database.Service
	storage    storage.Service // nil when object storage is unconfigured
	analyzer   analysis.Analyzer
	sessionMgr session.Manager
	authH      *auth.Handler
}

// Config holds server configuration
type Config struct {
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// LoadConfigFromEnv loads server configuration from environment variables
func LoadConfigFromEnv() *Config {
	return &Config{
		Port:         config.GetEnvInt("PORT", 8080),
		ReadTimeout:  getEnvDuration("SERVER_READ_TIMEOUT", 15*time.Second),
		WriteTimeout: getEnvDuration("SERVER_WRITE_TIMEOUT", 90*time.Second),
		IdleTimeout:  getEnvDuration("SERVER_IDLE_TIMEOUT", 120*time.Second),
	}
}

// New creates and configures the HTTP server around the wired dependencies
func New(db database.Service, store storage.Service, analyzer analysis.Analyzer,
	sessionMgr session.Manager, authHandler *auth.Handler) *http.Server {

	cfg := LoadConfigFromEnv()

	appServer := &Server{
		port:       cfg.Port,
		db:         db,
		storage:    store,
		analyzer:   analyzer,
		sessionMgr: sessionMgr,
		authH:      authHandler,
	}

	return &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           appServer.RegisterRoutes(),
		ReadTimeout:       cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := config.GetEnvOrDefault(key, ""); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
