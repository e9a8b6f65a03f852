package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/livinlefevreloca/wosync/internal/db"
	"github.com/livinlefevreloca/wosync/internal/mirrorsync"
	"github.com/livinlefevreloca/wosync/internal/updater"
	"github.com/livinlefevreloca/wosync/internal/upstream"
)

// Environment variables that override file settings. Credentials belong
// here rather than in a checked-in file.
const (
	EnvUpstreamToken      = "WOSYNC_UPSTREAM_TOKEN"
	EnvUpstreamBaseURL    = "WOSYNC_UPSTREAM_BASE_URL"
	EnvMirrorSyncEndpoint = "WOSYNC_MIRROR_SYNC_ENDPOINT"
	EnvDatabaseDSN        = "WOSYNC_DATABASE_DSN"
)

// Config represents the application configuration
type Config struct {
	Database   db.Config         `toml:"database"`
	Upstream   upstream.Config   `toml:"upstream"`
	Updater    updater.Config    `toml:"updater"`
	MirrorSync mirrorsync.Config `toml:"mirror_sync"`
	HTTP       HTTPConfig        `toml:"http"`
	Logging    LoggingConfig     `toml:"logging"`
}

// HTTPConfig holds HTTP API server settings
type HTTPConfig struct {
	Address         string        `toml:"address"`
	Port            int           `toml:"port"`
	ReadTimeout     time.Duration `toml:"read_timeout"`
	ShutdownTimeout time.Duration `toml:"shutdown_timeout"`
}

// LoggingConfig holds logging settings
type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Database: db.Config{
			Driver:          "sqlite3",
			DSN:             "wosync.db",
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
			ConnMaxIdleTime: 5 * time.Minute,
			InitSchema:      false,
		},
		Upstream:   upstream.DefaultConfig(),
		Updater:    updater.DefaultConfig(),
		MirrorSync: mirrorsync.DefaultConfig(),
		HTTP: HTTPConfig{
			Address:         "0.0.0.0",
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			ShutdownTimeout: 30 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// LoadFromFile loads configuration from a TOML file
func LoadFromFile(path string) (*Config, error) {
	// Start with defaults
	config := DefaultConfig()

	// Check if file exists
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file does not exist: %s", path)
	}

	// Parse TOML file
	md, err := toml.DecodeFile(path, config)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("unknown config keys: %v", undecoded)
	}

	return config, nil
}

// LoadConfig loads configuration with the following precedence:
// 1. Default values
// 2. Config file (if specified)
// 3. Environment variables
// 4. Command-line flags (handled by caller)
func LoadConfig(configPath string) (*Config, error) {
	config := DefaultConfig()

	if configPath != "" {
		fileConfig, err := LoadFromFile(configPath)
		if err != nil {
			return nil, err
		}
		config = fileConfig
	}

	config.applyEnv(os.LookupEnv)
	return config, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) {
	if v, ok := lookup(EnvUpstreamToken); ok {
		c.Upstream.Token = v
	}
	if v, ok := lookup(EnvUpstreamBaseURL); ok {
		c.Upstream.BaseURL = v
	}
	if v, ok := lookup(EnvMirrorSyncEndpoint); ok {
		c.MirrorSync.Endpoint = v
	}
	if v, ok := lookup(EnvDatabaseDSN); ok {
		c.Database.DSN = v
	}
}

// Validate checks if the configuration is valid. Component sections are
// validated again by their constructors; this catches the common mistakes
// before anything is opened.
func (c *Config) Validate() error {
	if err := c.ValidateDatabase(); err != nil {
		return err
	}

	// Upstream validation
	if c.Upstream.BaseURL == "" {
		return fmt.Errorf("upstream base_url must be specified")
	}
	if c.Upstream.Token == "" {
		return fmt.Errorf("upstream token must be specified (or set %s)", EnvUpstreamToken)
	}
	if c.Upstream.Timeout <= 0 {
		return fmt.Errorf("upstream timeout must be positive")
	}

	// Updater validation
	if c.Updater.FallbackFieldWorkerID <= 0 {
		return fmt.Errorf("updater fallback_field_worker_id must be positive")
	}
	if c.Updater.BatchDelay < 0 {
		return fmt.Errorf("updater batch_delay must not be negative")
	}

	// Mirror sync validation
	if c.MirrorSync.Timeout <= 0 {
		return fmt.Errorf("mirror_sync timeout must be positive")
	}

	// HTTP validation
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("HTTP port must be between 1 and 65535")
	}

	// Logging validation
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logging.Level)
	}
	if c.Logging.Format != "text" && c.Logging.Format != "json" {
		return fmt.Errorf("invalid log format: %s (must be text or json)", c.Logging.Format)
	}

	return nil
}

// ValidateDatabase checks only the mirror store section, for commands that
// never reach the upstream.
func (c *Config) ValidateDatabase() error {
	if c.Database.Driver == "" {
		return fmt.Errorf("database driver must be specified")
	}
	if c.Database.Driver != "sqlite3" {
		return fmt.Errorf("unsupported database driver: %s (must be sqlite3)", c.Database.Driver)
	}
	if c.Database.DSN == "" {
		return fmt.Errorf("database DSN must be specified")
	}
	return nil
}
