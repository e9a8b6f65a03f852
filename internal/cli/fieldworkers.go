package cli

import (
	"github.com/spf13/cobra"

	"github.com/livinlefevreloca/wosync/internal/db"
	"github.com/livinlefevreloca/wosync/internal/directory"
)

// NewFieldWorkersCommand creates the field-workers command.
func NewFieldWorkersCommand(rootOpts *RootOptions) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "field-workers",
		Short: "List the active field-worker roster from the mirror",
		Long: `List the active field-worker roster from the mirror.

With --all, deactivated workers are listed too. These are the ids that cause
a work order to be reassigned to the fallback on its next update.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFieldWorkers(cmd, rootOpts, all)
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "include deactivated field workers")

	return cmd
}

func runFieldWorkers(cmd *cobra.Command, opts *RootOptions, all bool) error {
	ctx := commandContext(cmd)

	cfg, err := loadConfig(opts, false)
	if err != nil {
		return err
	}
	logger := newLogger(cfg.Logging, opts.Verbose, cmd.ErrOrStderr())

	database, err := openDB(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer database.Close()

	var workers []db.FieldWorker
	if all {
		workers, err = database.GetFieldWorkers(ctx)
	} else {
		workers, err = directory.New(database, logger).FieldWorkers(ctx)
	}
	if err != nil {
		return WrapExitError(ExitFailure, "failed to read roster", err)
	}

	if opts.Format == "json" {
		return writeJSON(cmd.OutOrStdout(), workers)
	}
	return renderFieldWorkers(cmd.OutOrStdout(), workers)
}
