// Package newsletter provides the best-effort mailing-list subscription
// invoked during signup. Subscription failure never blocks signup; the
// only difference between outcomes is what gets logged.
package newsletter

import (
	"context"
	"log"
	"strings"

	"groceryhelper/internal/config"
)

// Notifier defines the mailing-list subscription contract as consumed
// by the auth service. Subscribe reports success, where "already a
// list member" and an unconfigured integration both count as success.
type Notifier interface {
	Subscribe(ctx context.Context, email, firstName, lastName string) bool
	Configured() bool
}

// Config holds mailing-list provider configuration
type Config struct {
	APIKey string
	ListID string
	Server string
}

// NewConfig creates notifier configuration from environment variables.
// The server prefix defaults to the suffix of the API key after the
// last "-" (the provider encodes its region there).
func NewConfig() *Config {
	cfg := &Config{
		APIKey: config.GetEnvOrDefault("MAILCHIMP_API_KEY", ""),
		ListID: config.GetEnvOrDefault("MAILCHIMP_LIST_ID", ""),
		Server: config.GetEnvOrDefault("MAILCHIMP_SERVER", ""),
	}

	if cfg.Server == "" && strings.Contains(cfg.APIKey, "-") {
		parts := strings.Split(cfg.APIKey, "-")
		cfg.Server = parts[len(parts)-1]
	}

	return cfg
}

// Configured reports whether every value the integration needs is present
func (c *Config) Configured() bool {
	return c.APIKey != "" && c.ListID != "" && c.Server != ""
}

// NewNotifier creates a notifier for the configuration. When any value
// is missing the integration is disabled rather than erroring.
func NewNotifier(cfg *Config) Notifier {
	if !cfg.Configured() {
		return &disabledNotifier{}
	}
	return newMailchimpNotifier(cfg)
}

// disabledNotifier is used when the integration is unconfigured.
// Subscribing is then "nothing to do" and counts as success.
type disabledNotifier struct{}

func (n *disabledNotifier) Subscribe(ctx context.Context, email, firstName, lastName string) bool {
	log.Printf("Newsletter integration not configured, skipping subscription for %s", email)
	return true
}

func (n *disabledNotifier) Configured() bool { return false }
