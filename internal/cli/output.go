package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"

	"github.com/livinlefevreloca/wosync/internal/db"
	"github.com/livinlefevreloca/wosync/internal/mirrorsync"
	"github.com/livinlefevreloca/wosync/internal/updater"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // Update, batch item or sync failed
	ExitCommandError = 2 // Bad flags, config or input
)

// ExitError represents an error with a specific exit code.
type ExitError struct {
	Code    int
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// NewExitError creates a new ExitError with the given code and message.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError wraps an existing error with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error.
// Returns ExitFailure (1) if the error is not an ExitError.
func GetExitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// updateExitError maps an engine error onto an exit code
func updateExitError(message string, err error) *ExitError {
	if updater.Kind(err) == updater.KindInvalidInput {
		return WrapExitError(ExitCommandError, message, err)
	}
	return WrapExitError(ExitFailure, message, err)
}

var (
	okLabel   = color.New(color.FgGreen).Sprint("OK  ")
	failLabel = color.New(color.FgRed).Sprint("FAIL")
	skipLabel = color.New(color.FgYellow).Sprint("SKIP")
)

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func renderOutcome(w io.Writer, o *updater.Outcome) {
	fmt.Fprintf(w, "%s work order %d: status %d -> %d\n", okLabel, o.WorkOrderID, o.OldStatusID, o.NewStatusID)
	if o.FieldWorkerReassigned {
		previous := "none"
		if o.OldFieldWorkerID != nil {
			previous = fmt.Sprint(*o.OldFieldWorkerID)
		}
		fmt.Fprintf(w, "     field worker %s -> %d (%s)\n", previous, o.NewFieldWorkerID,
			color.New(color.FgYellow).Sprint(o.ReassignReason))
	}
	if o.MirrorSyncTriggered {
		fmt.Fprintf(w, "     mirror sync: %s\n", syncLabel(o.MirrorSyncSucceeded))
	}
}

func renderLedger(w io.Writer, ledger *updater.Ledger) {
	fmt.Fprintf(w, "batch %s\n", ledger.BatchID)
	for _, e := range ledger.Entries {
		if e.Success {
			o := e.Outcome
			line := fmt.Sprintf("%s %d  status %d -> %d", okLabel, e.WorkOrderID, o.OldStatusID, o.NewStatusID)
			if o.FieldWorkerReassigned {
				line += fmt.Sprintf("  reassigned to FW %d (%s)", o.NewFieldWorkerID, o.ReassignReason)
			}
			fmt.Fprintln(w, line)
			continue
		}
		label := failLabel
		if e.Kind == updater.KindCancelled {
			label = skipLabel
		}
		fmt.Fprintf(w, "%s %d  [%s] %s\n", label, e.WorkOrderID, e.Kind, e.Error)
	}

	fmt.Fprintf(w, "%d succeeded, %d failed in %s\n",
		ledger.Succeeded(), ledger.Failed(), ledger.FinishedAt.Sub(ledger.StartedAt).Round(time.Millisecond))
	if ledger.MirrorSync != nil {
		fmt.Fprintf(w, "mirror sync: %s %s\n", syncLabel(ledger.MirrorSync.Success), ledger.MirrorSync.Message)
	}
}

func renderSyncResult(w io.Writer, result mirrorsync.Result) {
	fmt.Fprintf(w, "mirror sync: %s %s\n", syncLabel(result.Success), result.Message)
}

func renderFieldWorkers(w io.Writer, workers []db.FieldWorker) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME")
	for _, fw := range workers {
		name := fw.FullName
		if !fw.Active {
			name += " (inactive)"
		}
		fmt.Fprintf(tw, "%d\t%s\n", fw.ID, name)
	}
	return tw.Flush()
}

func syncLabel(ok bool) string {
	if ok {
		return okLabel
	}
	return failLabel
}
