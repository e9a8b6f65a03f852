package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/livinlefevreloca/wosync/internal/config"
	"github.com/livinlefevreloca/wosync/internal/db"
	"github.com/livinlefevreloca/wosync/internal/directory"
	"github.com/livinlefevreloca/wosync/internal/mirrorsync"
	"github.com/livinlefevreloca/wosync/internal/updater"
	"github.com/livinlefevreloca/wosync/internal/upstream"
)

// App is the engine wired from one configuration
type App struct {
	Config    *config.Config
	Logger    *slog.Logger
	DB        *db.DB
	Upstream  *upstream.Client
	Directory *directory.Directory
	Mirror    *mirrorsync.Trigger
	Updater   *updater.Updater
	Batch     *updater.BatchUpdater
}

// loadConfig reads and validates configuration. full=false checks only the
// database section.
func loadConfig(opts *RootOptions, full bool) (*config.Config, error) {
	cfg, err := config.LoadConfig(opts.ConfigPath)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load configuration", err)
	}

	validate := cfg.ValidateDatabase
	if full {
		validate = cfg.Validate
	}
	if err := validate(); err != nil {
		return nil, WrapExitError(ExitCommandError, "invalid configuration", err)
	}

	return cfg, nil
}

// newLogger builds the process logger. Logs always go to w (stderr) so
// command output on stdout stays parseable.
func newLogger(cfg config.LoggingConfig, verbose bool, w io.Writer) *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	if verbose {
		level = slog.LevelDebug
	}

	handlerOpts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(w, handlerOpts)
	} else {
		handler = slog.NewTextHandler(w, handlerOpts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

func openDB(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*db.DB, error) {
	logger.Debug("connecting to database", "driver", cfg.Database.Driver, "dsn", cfg.Database.DSN)

	database, err := db.OpenWithConfig(ctx, cfg.Database)
	if err != nil {
		logger.Error("failed to connect to database", "error", err, "driver", cfg.Database.Driver)
		return nil, WrapExitError(ExitCommandError, "failed to open mirror database", err)
	}
	return database, nil
}

// NewApp connects every engine component.
func NewApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	database, err := openDB(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	app, err := newApp(cfg, database, logger)
	if err != nil {
		database.Close()
		return nil, WrapExitError(ExitCommandError, "failed to initialize engine", err)
	}
	return app, nil
}

func newApp(cfg *config.Config, database *db.DB, logger *slog.Logger) (*App, error) {
	client, err := upstream.NewClient(cfg.Upstream, nil, logger.With("component", "upstream"))
	if err != nil {
		return nil, fmt.Errorf("upstream: %w", err)
	}

	trigger, err := mirrorsync.NewTrigger(cfg.MirrorSync, nil, logger.With("component", "mirror_sync"))
	if err != nil {
		return nil, fmt.Errorf("mirror sync: %w", err)
	}

	dir := directory.New(database, logger.With("component", "directory"))

	single, err := updater.New(cfg.Updater, client, dir, trigger, logger.With("component", "updater"))
	if err != nil {
		return nil, fmt.Errorf("updater: %w", err)
	}

	return &App{
		Config:    cfg,
		Logger:    logger,
		DB:        database,
		Upstream:  client,
		Directory: dir,
		Mirror:    trigger,
		Updater:   single,
		Batch:     updater.NewBatchUpdater(single, trigger, cfg.Updater, logger.With("component", "batch")),
	}, nil
}

// Close releases the mirror database
func (a *App) Close() error {
	return a.DB.Close()
}

// setup is the common prologue of engine commands
func setup(ctx context.Context, opts *RootOptions, errOut io.Writer) (*App, error) {
	cfg, err := loadConfig(opts, true)
	if err != nil {
		return nil, err
	}
	logger := newLogger(cfg.Logging, opts.Verbose, errOut)
	return NewApp(ctx, cfg, logger)
}
