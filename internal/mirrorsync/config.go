package mirrorsync

import (
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// Config defines how the reconciliation pipeline is notified
type Config struct {
	// Webhook that makes the pipeline refresh the mirror from upstream.
	// Empty disables the trigger.
	Endpoint string `toml:"endpoint"`

	// HTTP method used for the notification
	Method string `toml:"method"`

	// Timeout for the single outbound call
	Timeout time.Duration `toml:"timeout"`
}

// DefaultConfig returns trigger defaults. The pipeline webhook accepts a bare GET.
func DefaultConfig() Config {
	return Config{
		Method:  http.MethodGet,
		Timeout: 10 * time.Second,
	}
}

// validateConfig validates trigger configuration and returns error if invalid
func validateConfig(config Config) error {
	if config.Endpoint != "" {
		u, err := url.Parse(config.Endpoint)
		if err != nil {
			return fmt.Errorf("Endpoint is invalid: %w", err)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return fmt.Errorf("Endpoint must use http or https, got %q", u.Scheme)
		}
	}

	switch config.Method {
	case http.MethodGet, http.MethodPost:
	default:
		return fmt.Errorf("Method must be GET or POST, got %q", config.Method)
	}

	if config.Timeout <= 0 {
		return fmt.Errorf("Timeout must be positive, got %v", config.Timeout)
	}

	return nil
}
