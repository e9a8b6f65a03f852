// Package directory exposes the active field-worker roster held in the
// mirror store.
package directory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/livinlefevreloca/wosync/internal/db"
)

// ErrUnavailable means the roster could not be read. An update that needs
// the roster must stop rather than assume nobody is active.
var ErrUnavailable = errors.New("directory: field-worker roster unavailable")

// Store is the mirror query the directory depends on
type Store interface {
	GetActiveFieldWorkers(ctx context.Context) ([]db.FieldWorker, error)
}

// Directory reads the roster on every call. Nothing is cached.
type Directory struct {
	store  Store
	logger *slog.Logger
}

func New(store Store, logger *slog.Logger) *Directory {
	return &Directory{
		store:  store,
		logger: logger,
	}
}

// ActiveFieldWorkerIDs returns the set of currently active field workers.
func (d *Directory) ActiveFieldWorkerIDs(ctx context.Context) (map[int]struct{}, error) {
	workers, err := d.FieldWorkers(ctx)
	if err != nil {
		return nil, err
	}

	ids := make(map[int]struct{}, len(workers))
	for _, fw := range workers {
		ids[fw.ID] = struct{}{}
	}
	return ids, nil
}

// FieldWorkers returns the active roster with display names.
func (d *Directory) FieldWorkers(ctx context.Context) ([]db.FieldWorker, error) {
	workers, err := d.store.GetActiveFieldWorkers(ctx)
	if err != nil {
		d.logger.Error("failed to read field-worker roster", "error", err)
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	if len(workers) == 0 {
		d.logger.Error("field-worker roster is empty")
		return nil, fmt.Errorf("%w: no active field workers", ErrUnavailable)
	}

	d.logger.Debug("loaded field-worker roster", "active_count", len(workers))
	return workers, nil
}

// IsUnavailable checks if error is a roster read failure
func IsUnavailable(err error) bool {
	return errors.Is(err, ErrUnavailable)
}
