package updater

import (
	"fmt"
	"time"

	"github.com/livinlefevreloca/wosync/internal/workorder"
)

// Config defines how status updates are applied
type Config struct {
	// Catch-all field worker assigned when the current one cannot keep the order
	FallbackFieldWorkerID int `toml:"fallback_field_worker_id"`

	// Pause between batch items when the caller does not supply one
	BatchDelay time.Duration `toml:"batch_delay"`

	// Fields regenerated by the upstream on every write; never sent back
	ServerOwnedFields []string `toml:"server_owned_fields"`
}

// DefaultConfig returns updater defaults. FallbackFieldWorkerID has no default.
func DefaultConfig() Config {
	fields := make([]string, len(workorder.DefaultServerOwnedFields))
	copy(fields, workorder.DefaultServerOwnedFields)

	return Config{
		BatchDelay:        time.Second,
		ServerOwnedFields: fields,
	}
}

// validateConfig validates updater configuration and returns error if invalid
func validateConfig(config Config) error {
	if config.FallbackFieldWorkerID <= 0 {
		return fmt.Errorf("FallbackFieldWorkerID must be positive, got %d", config.FallbackFieldWorkerID)
	}

	if config.BatchDelay < 0 {
		return fmt.Errorf("BatchDelay must be non-negative, got %v", config.BatchDelay)
	}

	for _, name := range config.ServerOwnedFields {
		switch name {
		case workorder.FieldID, workorder.FieldStatusID, workorder.FieldFieldWorkerID, workorder.FieldDescription:
			return fmt.Errorf("ServerOwnedFields must not include %s", name)
		}
	}

	return nil
}
