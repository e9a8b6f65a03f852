package cli

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/livinlefevreloca/wosync/internal/db"
	"github.com/livinlefevreloca/wosync/internal/updater"
)

// BatchOptions holds flags for the batch command.
type BatchOptions struct {
	*RootOptions
	File      string
	Refs      []string
	Status    string
	Delay     time.Duration
	UpdatedBy string
}

// batchFile is the YAML layout accepted by --file
type batchFile struct {
	UpdatedBy string          `yaml:"updated_by"`
	Delay     *time.Duration  `yaml:"delay"`
	Items     []batchFileItem `yaml:"items"`
}

type batchFileItem struct {
	// Upstream id or custom id
	ID       string `yaml:"id"`
	StatusID string `yaml:"status_id"`
}

// NewBatchCommand creates the batch command.
func NewBatchCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &BatchOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Change the status of many work orders, one at a time",
		Long: `Change the status of many work orders sequentially.

Items are applied in order with a pause between them. A failed item never
stops the batch. The mirror is synced once, after the last item.

The --file format:

  updated_by: Dana
  delay: 2s
  items:
    - id: 56335
      status_id: 2
    - id: 21393-23
      status_id: 44

Example:
  wosync batch --ids 56335,56336 --status 2
  wosync batch --file close-out.yaml --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBatch(cmd, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.File, "file", "f", "", "YAML file listing items")
	cmd.Flags().StringSliceVar(&opts.Refs, "ids", nil, "comma-separated work order ids or custom ids")
	cmd.Flags().StringVar(&opts.Status, "status", "", "status id applied to every --ids item")
	cmd.Flags().DurationVar(&opts.Delay, "delay", 0, "pause between items (default updater.batch_delay)")
	cmd.Flags().StringVar(&opts.UpdatedBy, "by", "", "name recorded in each work order description")
	cmd.MarkFlagsMutuallyExclusive("file", "ids")

	return cmd
}

func runBatch(cmd *cobra.Command, opts *BatchOptions) error {
	ctx := commandContext(cmd)

	file, err := batchInput(opts, cmd.Flags().Changed("delay"))
	if err != nil {
		return err
	}

	app, err := setup(ctx, opts.RootOptions, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer app.Close()

	items, err := resolveItems(ctx, app.DB, file.Items)
	if err != nil {
		return err
	}

	var info *updater.UpdaterInfo
	if strings.TrimSpace(file.UpdatedBy) != "" {
		info = &updater.UpdaterInfo{Name: file.UpdatedBy}
	}

	ledger := app.Batch.UpdateMany(ctx, items, updater.BatchOptions{
		Delay:   file.Delay,
		Updater: info,
		OnProgress: func(done, total int) {
			app.Logger.Debug("batch progress", "done", done, "total", total)
		},
	})

	if opts.Format == "json" {
		if err := writeJSON(cmd.OutOrStdout(), ledger); err != nil {
			return err
		}
	} else {
		renderLedger(cmd.OutOrStdout(), ledger)
	}

	if failed := ledger.Failed(); failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d of %d items failed", failed, len(ledger.Entries)))
	}
	return nil
}

// batchInput builds the batch from either --file or --ids/--status. Flags
// override values from the file. A delay left unset anywhere falls back to
// updater.batch_delay; an explicit 0 disables the pause.
func batchInput(opts *BatchOptions, delaySet bool) (*batchFile, error) {
	file := &batchFile{}

	switch {
	case opts.File != "":
		data, err := os.ReadFile(opts.File)
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "failed to read batch file", err)
		}
		if err := yaml.Unmarshal(data, file); err != nil {
			return nil, WrapExitError(ExitCommandError, "failed to parse batch file", err)
		}
	case len(opts.Refs) > 0:
		if opts.Status == "" {
			return nil, NewExitError(ExitCommandError, "--status is required with --ids")
		}
		for _, ref := range opts.Refs {
			file.Items = append(file.Items, batchFileItem{ID: strings.TrimSpace(ref), StatusID: opts.Status})
		}
	default:
		return nil, NewExitError(ExitCommandError, "one of --file or --ids is required")
	}

	if delaySet {
		if opts.Delay < 0 {
			return nil, NewExitError(ExitCommandError, "--delay must not be negative")
		}
		file.Delay = &opts.Delay
	}
	if file.Delay != nil && *file.Delay < 0 {
		return nil, NewExitError(ExitCommandError, "delay must not be negative")
	}
	if opts.UpdatedBy != "" {
		file.UpdatedBy = opts.UpdatedBy
	}

	return file, nil
}

// resolveItems maps every reference onto an upstream id before anything is
// sent, so a typo cannot leave a batch half applied.
func resolveItems(ctx context.Context, database *db.DB, in []batchFileItem) ([]updater.Item, error) {
	items := make([]updater.Item, 0, len(in))
	var unresolved []string

	for _, item := range in {
		id, err := database.ResolveWorkOrderID(ctx, item.ID)
		if err != nil {
			unresolved = append(unresolved, item.ID)
			continue
		}
		items = append(items, updater.Item{ID: id, StatusID: item.StatusID})
	}

	if len(unresolved) > 0 {
		return nil, NewExitError(ExitCommandError, fmt.Sprintf("cannot resolve work orders: %s", strings.Join(unresolved, ", ")))
	}
	return items, nil
}
