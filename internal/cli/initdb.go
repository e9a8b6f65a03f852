package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/livinlefevreloca/wosync/internal/db"
)

// seedFile is the YAML layout accepted by init-db --seed
type seedFile struct {
	FieldWorkers []struct {
		ID     int    `yaml:"id"`
		Name   string `yaml:"name"`
		Active *bool  `yaml:"active"`
	} `yaml:"field_workers"`

	Statuses []struct {
		ID          int    `yaml:"id"`
		Description string `yaml:"description"`
		IsComplete  bool   `yaml:"is_complete"`
	} `yaml:"statuses"`

	WorkOrders []struct {
		ID            int     `yaml:"id"`
		CustomID      *string `yaml:"custom_id"`
		Description   *string `yaml:"description"`
		StatusID      *int    `yaml:"status_id"`
		FieldWorkerID *int    `yaml:"field_worker_id"`
	} `yaml:"work_orders"`
}

// NewInitDBCommand creates the init-db command.
func NewInitDBCommand(rootOpts *RootOptions) *cobra.Command {
	var seedPath string

	cmd := &cobra.Command{
		Use:   "init-db",
		Short: "Create the mirror schema, optionally seeding it",
		Long: `Create the mirror tables if they do not exist.

In production the reconciliation pipeline fills the mirror. For local work a
YAML seed can load a roster, a status catalog and custom id mappings:

  field_workers:
    - id: 1
      name: Dispatch Pool
    - id: 99
      name: Former Tech
      active: false
  statuses:
    - id: 2
      description: Complete - To Billing
      is_complete: true
  work_orders:
    - id: 56335
      custom_id: 21393-23

Example:
  wosync init-db --seed dev-seed.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInitDB(cmd, rootOpts, seedPath)
		},
	}

	cmd.Flags().StringVar(&seedPath, "seed", "", "YAML file with rows to load")

	return cmd
}

func runInitDB(cmd *cobra.Command, opts *RootOptions, seedPath string) error {
	ctx := commandContext(cmd)

	cfg, err := loadConfig(opts, false)
	if err != nil {
		return err
	}
	logger := newLogger(cfg.Logging, opts.Verbose, cmd.ErrOrStderr())

	var seed seedFile
	if seedPath != "" {
		data, err := os.ReadFile(seedPath)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to read seed file", err)
		}
		if err := yaml.Unmarshal(data, &seed); err != nil {
			return WrapExitError(ExitCommandError, "failed to parse seed file", err)
		}
	}

	database, err := openDB(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer database.Close()

	if err := database.InitSchema(ctx); err != nil {
		return WrapExitError(ExitFailure, "failed to create schema", err)
	}
	logger.Info("mirror schema ready", "dsn", cfg.Database.DSN)

	if err := database.WithTransaction(ctx, func(tx *db.Tx) error {
		return loadSeed(ctx, tx, &seed)
	}); err != nil {
		return WrapExitError(ExitFailure, "failed to load seed", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s mirror ready: %d field workers, %d statuses, %d work orders seeded\n",
		okLabel, len(seed.FieldWorkers), len(seed.Statuses), len(seed.WorkOrders))
	return nil
}

func loadSeed(ctx context.Context, tx *db.Tx, seed *seedFile) error {
	for _, fw := range seed.FieldWorkers {
		active := fw.Active == nil || *fw.Active
		if err := tx.UpsertFieldWorker(ctx, db.FieldWorker{ID: fw.ID, FullName: fw.Name, Active: active}); err != nil {
			return fmt.Errorf("field worker %d: %w", fw.ID, err)
		}
	}

	for _, s := range seed.Statuses {
		if err := tx.UpsertStatus(ctx, db.Status{ID: s.ID, Description: s.Description, IsComplete: s.IsComplete}); err != nil {
			return fmt.Errorf("status %d: %w", s.ID, err)
		}
	}

	for _, wo := range seed.WorkOrders {
		err := tx.UpsertWorkOrder(ctx, &db.WorkOrder{
			ID:            wo.ID,
			CustomID:      wo.CustomID,
			Description:   wo.Description,
			StatusID:      wo.StatusID,
			FieldWorkerID: wo.FieldWorkerID,
		})
		if err != nil {
			return fmt.Errorf("work order %d: %w", wo.ID, err)
		}
	}

	return nil
}
