// Package consul provides optional service registration with HashiCorp
// Consul. Registration is skipped entirely when no Consul address is
// configured.
package consul

import (
	"fmt"

	consulapi "github.com/hashicorp/consul/api"
)

// Client wraps the Consul API client
type Client struct {
	api *consulapi.Client
}

// HealthCheck describes the HTTP health check Consul polls
type HealthCheck struct {
	HTTP     string
	Interval string
	Timeout  string
}

// ServiceConfig describes a service registration
type ServiceConfig struct {
	ID      string
	Name    string
	Address string
	Port    int
	Tags    []string
	Check   *HealthCheck
}

// NewClientWithToken creates a new Consul client with ACL token authentication
func NewClientWithToken(addr, token string) (*Client, error) {
	config := consulapi.DefaultConfig()
	config.Address = addr

	if token != "" {
		config.Token = token
	}

	client, err := consulapi.NewClient(config)
	if err != nil {
		return nil, err
	}

	return &Client{api: client}, nil
}

// Register registers the service with its health check
func (c *Client) Register(cfg *ServiceConfig) error {
	registration := &consulapi.AgentServiceRegistration{
		ID:      cfg.ID,
		Name:    cfg.Name,
		Address: cfg.Address,
		Port:    cfg.Port,
		Tags:    cfg.Tags,
	}

	if cfg.Check != nil {
		registration.Check = &consulapi.AgentServiceCheck{
			HTTP:     cfg.Check.HTTP,
			Interval: cfg.Check.Interval,
			Timeout:  cfg.Check.Timeout,
			// Remove instances that stay critical, e.g. after a crash.
			DeregisterCriticalServiceAfter: "1m",
		}
	}

	if err := c.api.Agent().ServiceRegister(registration); err != nil {
		return fmt.Errorf("failed to register service %s: %w", cfg.ID, err)
	}

	return nil
}

// Deregister removes the service registration
func (c *Client) Deregister(serviceID string) error {
	return c.api.Agent().ServiceDeregister(serviceID)
}
