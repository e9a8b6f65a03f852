package upstream

import (
	"fmt"
	"net/url"
	"time"
)

// Config defines how the client reaches the upstream work-order service.
type Config struct {
	// Base address of the API service, e.g. https://acme.0.razorsync.com/ApiService.svc
	BaseURL string `toml:"base_url"`

	// Static access credential sent in the Token header
	Token string `toml:"token"`

	// Tenant name sent in the ServerName header; optional
	ServerName string `toml:"server_name"`

	// Overrides the Host header when the service sits behind a shared ingress
	Host string `toml:"host"`

	// Per-call timeout covering connect, write and full body read
	Timeout time.Duration `toml:"timeout"`
}

// DefaultConfig returns client defaults. BaseURL and Token have no default.
func DefaultConfig() Config {
	return Config{
		Timeout: 30 * time.Second,
	}
}

// validateConfig validates client configuration and returns error if invalid
func validateConfig(config Config) error {
	if config.BaseURL == "" {
		return fmt.Errorf("BaseURL must be specified")
	}

	u, err := url.Parse(config.BaseURL)
	if err != nil {
		return fmt.Errorf("BaseURL is invalid: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("BaseURL must use http or https, got %q", u.Scheme)
	}

	if config.Token == "" {
		return fmt.Errorf("Token must be specified")
	}

	if config.Timeout <= 0 {
		return fmt.Errorf("Timeout must be positive, got %v", config.Timeout)
	}

	return nil
}
