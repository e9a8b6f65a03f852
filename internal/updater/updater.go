// Package updater applies status changes to upstream work orders with a
// read-modify-write cycle, reassigning orders whose field worker is no
// longer active.
package updater

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/livinlefevreloca/wosync/internal/mirrorsync"
	"github.com/livinlefevreloca/wosync/internal/policy"
	"github.com/livinlefevreloca/wosync/internal/upstream"
	"github.com/livinlefevreloca/wosync/internal/workorder"
)

// Upstream reads and writes single work orders
type Upstream interface {
	FetchWorkOrder(ctx context.Context, id int) (*workorder.WorkOrder, error)
	WriteWorkOrder(ctx context.Context, envelope *workorder.Envelope) (*upstream.WriteResult, error)
}

// Directory provides the active field-worker snapshot
type Directory interface {
	ActiveFieldWorkerIDs(ctx context.Context) (map[int]struct{}, error)
}

// MirrorSyncer asks the reconciliation pipeline to refresh the mirror
type MirrorSyncer interface {
	Enabled() bool
	TriggerSync(ctx context.Context) mirrorsync.Result
}

// Clock provides the time used in updater annotations
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// Options tune a single update
type Options struct {
	Updater            *UpdaterInfo
	SuppressMirrorSync bool
}

// Outcome describes an applied update
type Outcome struct {
	WorkOrderID           int           `json:"workOrderId"`
	OldStatusID           int           `json:"oldStatusId"`
	NewStatusID           int           `json:"newStatusId"`
	OldFieldWorkerID      *int          `json:"oldFieldWorkerId"`
	NewFieldWorkerID      int           `json:"newFieldWorkerId"`
	FieldWorkerReassigned bool          `json:"fieldWorkerReassigned"`
	ReassignReason        policy.Reason `json:"reassignReason,omitempty"`
	MirrorSyncTriggered   bool          `json:"mirrorSyncTriggered"`
	MirrorSyncSucceeded   bool          `json:"mirrorSyncSucceeded"`
}

// Updater performs one logical status change at a time. It holds no state
// between calls and never retries.
type Updater struct {
	config    Config
	policy    policy.Policy
	upstream  Upstream
	directory Directory
	mirror    MirrorSyncer
	clock     Clock
	logger    *slog.Logger
}

// New creates an updater. mirror may be nil, in which case no sync is ever
// triggered.
func New(config Config, up Upstream, dir Directory, mirror MirrorSyncer, logger *slog.Logger) (*Updater, error) {
	if err := validateConfig(config); err != nil {
		return nil, err
	}
	if up == nil {
		return nil, fmt.Errorf("upstream client is required")
	}
	if dir == nil {
		return nil, fmt.Errorf("field-worker directory is required")
	}

	return &Updater{
		config:    config,
		policy:    policy.New(config.FallbackFieldWorkerID),
		upstream:  up,
		directory: dir,
		mirror:    mirror,
		clock:     realClock{},
		logger:    logger,
	}, nil
}

// SetClock replaces the clock used for updater annotations
func (u *Updater) SetClock(clock Clock) {
	u.clock = clock
}

// GetConfig returns the updater configuration
func (u *Updater) GetConfig() Config {
	return u.config
}

// UpdateStatus moves work order id to newStatus. Input is validated before
// any network call.
func (u *Updater) UpdateStatus(ctx context.Context, id int, newStatus string, opts Options) (*Outcome, error) {
	if id <= 0 {
		return nil, fmt.Errorf("%w: work order id must be positive, got %d", ErrInvalidInput, id)
	}
	statusID, err := ParseStatusID(newStatus)
	if err != nil {
		return nil, err
	}
	if opts.Updater != nil && strings.TrimSpace(opts.Updater.Name) == "" {
		return nil, fmt.Errorf("%w: updater name is empty", ErrInvalidInput)
	}

	logger := u.logger.With("work_order_id", id, "status_id", statusID)

	wo, err := u.upstream.FetchWorkOrder(ctx, id)
	if err != nil {
		logger.Warn("failed to fetch work order", "error", err)
		return nil, &UpdateError{WorkOrderID: id, StatusID: statusID, Op: "fetch", Err: err}
	}

	active, err := u.directory.ActiveFieldWorkerIDs(ctx)
	if err != nil {
		logger.Error("cannot validate field worker", "error", err)
		return nil, &UpdateError{WorkOrderID: id, StatusID: statusID, Op: "directory", Err: err}
	}

	decision := u.policy.Decide(wo.FieldWorkerID, active)
	if decision.Reassign {
		if _, ok := active[decision.NewFieldWorkerID]; !ok {
			logger.Error("fallback field worker is not active",
				"fallback_field_worker_id", decision.NewFieldWorkerID,
				"reason", decision.Reason)
			return nil, &UpdateError{
				WorkOrderID: id,
				StatusID:    statusID,
				Op:          "reassign",
				Err:         fmt.Errorf("%w: field worker %d", ErrFallbackInactive, decision.NewFieldWorkerID),
			}
		}
	}

	envelope := u.buildEnvelope(wo, statusID, decision, opts.Updater)

	if _, err := u.upstream.WriteWorkOrder(ctx, envelope); err != nil {
		logger.Error("failed to write work order", "error", err)
		return nil, &UpdateError{WorkOrderID: id, StatusID: statusID, Op: "write", Err: err}
	}

	outcome := &Outcome{
		WorkOrderID:           id,
		OldStatusID:           wo.StatusID,
		NewStatusID:           statusID,
		OldFieldWorkerID:      wo.FieldWorkerID,
		NewFieldWorkerID:      decision.NewFieldWorkerID,
		FieldWorkerReassigned: decision.Reassign,
		ReassignReason:        decision.Reason,
	}

	logger.Info("work order updated",
		"old_status_id", wo.StatusID,
		"reassigned", decision.Reassign,
		"new_field_worker_id", decision.NewFieldWorkerID)

	if !opts.SuppressMirrorSync && u.mirror != nil && u.mirror.Enabled() {
		result := u.mirror.TriggerSync(ctx)
		outcome.MirrorSyncTriggered = true
		outcome.MirrorSyncSucceeded = result.Success
		if !result.Success {
			logger.Warn("mirror sync failed after update", "message", result.Message)
		}
	}

	return outcome, nil
}

// buildEnvelope starts from the full fetched record and overwrites only the
// targeted fields.
func (u *Updater) buildEnvelope(wo *workorder.WorkOrder, statusID int, decision policy.Decision, info *UpdaterInfo) *workorder.Envelope {
	envelope := wo.Envelope()
	description := wo.Description
	changed := false

	if decision.Reassign {
		envelope.SetFieldWorkerID(decision.NewFieldWorkerID)
		var appended bool
		description, appended = workorder.AppendAnnotation(description, reassignAnnotation(decision, wo.FieldWorkerID))
		changed = changed || appended
	}

	envelope.SetStatusID(statusID)

	if info != nil {
		at := info.At
		if at.IsZero() {
			at = u.clock.Now()
		}
		var appended bool
		description, appended = workorder.AppendAnnotation(description, updaterAnnotation(*info, at))
		changed = changed || appended
	}

	// An untouched description keeps its original encoding
	if changed {
		envelope.SetDescription(description)
	}

	envelope.Strip(u.config.ServerOwnedFields...)
	return envelope
}
