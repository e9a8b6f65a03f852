package updater

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/livinlefevreloca/wosync/internal/mirrorsync"
)

// Item is one requested status change. StatusID is kept as text so that
// malformed input is reported per item instead of rejecting the batch.
type Item struct {
	ID       int    `json:"id"`
	StatusID string `json:"statusId"`
}

// BatchOptions tune one batch run
type BatchOptions struct {
	// Pause between items; nil uses Config.BatchDelay and zero means none
	Delay *time.Duration

	Updater *UpdaterInfo

	// Called after every item with the number of items handled so far
	OnProgress func(done, total int)
}

// Entry is the ledger record for one item
type Entry struct {
	WorkOrderID int      `json:"workOrderId"`
	Success     bool     `json:"success"`
	Error       string   `json:"error,omitempty"`
	Kind        string   `json:"kind,omitempty"`
	Outcome     *Outcome `json:"outcome,omitempty"`
}

// Ledger is the full accounting of a batch, in input order
type Ledger struct {
	BatchID    string             `json:"batchId"`
	Entries    []Entry            `json:"entries"`
	MirrorSync *mirrorsync.Result `json:"mirrorSync,omitempty"`
	StartedAt  time.Time          `json:"startedAt"`
	FinishedAt time.Time          `json:"finishedAt"`
}

// Succeeded returns the number of successful items
func (l *Ledger) Succeeded() int {
	n := 0
	for _, e := range l.Entries {
		if e.Success {
			n++
		}
	}
	return n
}

// Failed returns the number of failed items
func (l *Ledger) Failed() int {
	return len(l.Entries) - l.Succeeded()
}

// SingleUpdater applies one status change
type SingleUpdater interface {
	UpdateStatus(ctx context.Context, id int, newStatus string, opts Options) (*Outcome, error)
}

// BatchUpdater drives a SingleUpdater over a list of items, one at a time.
type BatchUpdater struct {
	single SingleUpdater
	mirror MirrorSyncer
	config Config
	logger *slog.Logger

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// NewBatchUpdater creates a batch driver. mirror may be nil.
func NewBatchUpdater(single SingleUpdater, mirror MirrorSyncer, config Config, logger *slog.Logger) *BatchUpdater {
	return &BatchUpdater{
		single: single,
		mirror: mirror,
		config: config,
		logger: logger,
		now:    time.Now,
		sleep:  sleepContext,
	}
}

// UpdateMany applies every item in order and always returns a complete
// ledger. Item failures never stop the batch. Cancellation is observed only
// between items: an item that has started runs to completion, and items not
// yet started are recorded as cancelled. One mirror sync is triggered after
// the loop when at least one item was given.
func (b *BatchUpdater) UpdateMany(ctx context.Context, items []Item, opts BatchOptions) *Ledger {
	ledger := &Ledger{
		BatchID:   uuid.New().String(),
		Entries:   make([]Entry, 0, len(items)),
		StartedAt: b.now(),
	}

	if len(items) == 0 {
		ledger.FinishedAt = b.now()
		return ledger
	}

	delay := b.config.BatchDelay
	if opts.Delay != nil {
		delay = max(*opts.Delay, 0)
	}

	logger := b.logger.With("batch_id", ledger.BatchID)
	logger.Info("starting batch update", "item_count", len(items), "delay", delay)

	var cancelErr error
	for i, item := range items {
		if cancelErr == nil && i > 0 {
			cancelErr = b.sleep(ctx, delay)
		}
		if cancelErr == nil {
			cancelErr = ctx.Err()
		}

		if cancelErr != nil {
			ledger.Entries = append(ledger.Entries, Entry{
				WorkOrderID: item.ID,
				Error:       cancelErr.Error(),
				Kind:        KindCancelled,
			})
		} else {
			// A write already sent upstream cannot be rolled back
			ledger.Entries = append(ledger.Entries, b.apply(context.WithoutCancel(ctx), logger, item, opts.Updater))
		}

		if opts.OnProgress != nil {
			opts.OnProgress(i+1, len(items))
		}
	}

	if cancelErr != nil {
		logger.Warn("batch cancelled", "error", cancelErr)
	}

	if b.mirror != nil && b.mirror.Enabled() {
		// Earlier writes may have landed even if the batch was cancelled
		result := b.mirror.TriggerSync(context.WithoutCancel(ctx))
		ledger.MirrorSync = &result
	}

	ledger.FinishedAt = b.now()
	logger.Info("batch update complete",
		"succeeded", ledger.Succeeded(),
		"failed", ledger.Failed(),
		"duration", ledger.FinishedAt.Sub(ledger.StartedAt))

	return ledger
}

func (b *BatchUpdater) apply(ctx context.Context, logger *slog.Logger, item Item, info *UpdaterInfo) Entry {
	outcome, err := b.single.UpdateStatus(ctx, item.ID, item.StatusID, Options{
		Updater:            info,
		SuppressMirrorSync: true,
	})
	if err != nil {
		logger.Warn("batch item failed", "work_order_id", item.ID, "error", err)
		return Entry{
			WorkOrderID: item.ID,
			Error:       err.Error(),
			Kind:        Kind(err),
		}
	}

	return Entry{
		WorkOrderID: item.ID,
		Success:     true,
		Outcome:     outcome,
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
