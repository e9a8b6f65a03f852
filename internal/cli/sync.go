package cli

import (
	"github.com/spf13/cobra"
)

// NewSyncCommand creates the sync command.
func NewSyncCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Ask the reconciliation pipeline to refresh the mirror",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSync(cmd, rootOpts)
		},
	}

	return cmd
}

func runSync(cmd *cobra.Command, opts *RootOptions) error {
	ctx := commandContext(cmd)

	app, err := setup(ctx, opts, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer app.Close()

	if !app.Mirror.Enabled() {
		return NewExitError(ExitCommandError, "mirror_sync.endpoint is not configured")
	}

	result := app.Mirror.TriggerSync(ctx)

	if opts.Format == "json" {
		if err := writeJSON(cmd.OutOrStdout(), result); err != nil {
			return err
		}
	} else {
		renderSyncResult(cmd.OutOrStdout(), result)
	}

	if !result.Success {
		return NewExitError(ExitFailure, "mirror sync failed: "+result.Message)
	}
	return nil
}
