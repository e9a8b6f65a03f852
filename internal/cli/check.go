package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// checkResult is one line of the check report
type checkResult struct {
	Name   string `json:"name"`
	OK     bool   `json:"ok"`
	Detail string `json:"detail"`
}

// NewCheckCommand creates the check command.
func NewCheckCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Verify configuration, upstream credentials and the mirror",
		Long: `Verify that every collaborator the engine needs is reachable.

The upstream is pinged with the configured credential, the mirror roster is
read, and the configured fallback field worker is checked for being active.
No work order is modified and no mirror sync is triggered.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd, rootOpts)
		},
	}

	return cmd
}

func runCheck(cmd *cobra.Command, opts *RootOptions) error {
	ctx := commandContext(cmd)

	app, err := setup(ctx, opts, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer app.Close()

	var results []checkResult

	if err := app.Upstream.Ping(ctx); err != nil {
		results = append(results, checkResult{Name: "upstream", Detail: err.Error()})
	} else {
		results = append(results, checkResult{Name: "upstream", OK: true, Detail: app.Config.Upstream.BaseURL})
	}

	ids, err := app.Directory.ActiveFieldWorkerIDs(ctx)
	if err != nil {
		results = append(results, checkResult{Name: "directory", Detail: err.Error()})
	} else {
		results = append(results, checkResult{Name: "directory", OK: true, Detail: fmt.Sprintf("%d active field workers", len(ids))})

		fallback := app.Config.Updater.FallbackFieldWorkerID
		if _, ok := ids[fallback]; ok {
			results = append(results, checkResult{Name: "fallback", OK: true, Detail: fmt.Sprintf("field worker %d is active", fallback)})
		} else {
			results = append(results, checkResult{Name: "fallback", Detail: fmt.Sprintf("field worker %d is not active", fallback)})
		}
	}

	if app.Mirror.Enabled() {
		results = append(results, checkResult{Name: "mirror_sync", OK: true, Detail: app.Config.MirrorSync.Endpoint})
	} else {
		results = append(results, checkResult{Name: "mirror_sync", OK: true, Detail: "disabled"})
	}

	failed := 0
	for _, r := range results {
		if !r.OK {
			failed++
		}
	}

	w := cmd.OutOrStdout()
	if opts.Format == "json" {
		if err := writeJSON(w, results); err != nil {
			return err
		}
	} else {
		for _, r := range results {
			fmt.Fprintf(w, "%s %-12s %s\n", syncLabel(r.OK), r.Name, r.Detail)
		}
	}

	if failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d checks failed", failed))
	}
	return nil
}
