package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/livinlefevreloca/wosync/internal/updater"
)

// UpdateOptions holds flags for the update command.
type UpdateOptions struct {
	*RootOptions
	UpdatedBy string
	NoSync    bool
}

// NewUpdateCommand creates the update command.
func NewUpdateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &UpdateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "update <work-order> <status-id>",
		Short: "Change the status of one work order",
		Long: `Change the status of one work order.

The work order may be given by upstream id or by custom id; custom ids are
resolved through the mirror.

Example:
  wosync update 56335 2
  wosync update 21393-23 2 --by "Dana"`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUpdate(cmd, opts, args[0], args[1])
		},
	}

	cmd.Flags().StringVar(&opts.UpdatedBy, "by", "", "name recorded in the work order description")
	cmd.Flags().BoolVar(&opts.NoSync, "no-sync", false, "do not trigger a mirror sync")

	return cmd
}

func runUpdate(cmd *cobra.Command, opts *UpdateOptions, ref, status string) error {
	ctx := commandContext(cmd)

	app, err := setup(ctx, opts.RootOptions, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer app.Close()

	id, err := app.DB.ResolveWorkOrderID(ctx, ref)
	if err != nil {
		return WrapExitError(ExitCommandError, fmt.Sprintf("cannot resolve work order %q", ref), err)
	}

	var info *updater.UpdaterInfo
	if strings.TrimSpace(opts.UpdatedBy) != "" {
		info = &updater.UpdaterInfo{Name: opts.UpdatedBy}
	}

	outcome, err := app.Updater.UpdateStatus(ctx, id, status, updater.Options{
		Updater:            info,
		SuppressMirrorSync: opts.NoSync,
	})
	if err != nil {
		return updateExitError("update failed", err)
	}

	if opts.Format == "json" {
		return writeJSON(cmd.OutOrStdout(), outcome)
	}
	renderOutcome(cmd.OutOrStdout(), outcome)
	return nil
}
