package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/livinlefevreloca/wosync/internal/api"
)

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API",
		Long: `Serve the engine over HTTP until interrupted.

Example:
  wosync serve --config wosync.toml
  wosync serve --port 9000`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, rootOpts, port)
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 0, "override http.port")

	return cmd
}

func runServe(cmd *cobra.Command, opts *RootOptions, port int) error {
	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := setup(ctx, opts, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer app.Close()

	if port > 0 {
		app.Config.HTTP.Port = port
	}

	server := api.NewServer(api.Deps{
		Resolver: app.DB,
		Upstream: app.Upstream,
		Records:  app.DB,
		Updater:  app.Updater,
		Batch:    app.Batch,
		Mirror:   app.Mirror,
		Roster:   app.Directory,
		Statuses: app.DB,
	}, app.Logger.With("component", "api"))

	addr := net.JoinHostPort(app.Config.HTTP.Address, strconv.Itoa(app.Config.HTTP.Port))
	httpServer := &http.Server{
		Addr:        addr,
		Handler:     server.Handler(),
		ReadTimeout: app.Config.HTTP.ReadTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		app.Logger.Info("http api listening", "address", addr)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return WrapExitError(ExitFailure, "http server failed", err)
		}
		return nil
	case <-ctx.Done():
	}

	app.Logger.Info("shutting down gracefully")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), app.Config.HTTP.ShutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return WrapExitError(ExitFailure, "shutdown failed", err)
	}
	fmt.Fprintln(cmd.ErrOrStderr(), "stopped")
	return nil
}

// commandContext returns the command's context, or Background when run
// outside Execute.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
