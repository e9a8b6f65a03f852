package db

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
)

// =============================================================================
// Work Order Mirror Operations
// =============================================================================

// GetWorkOrder retrieves a mirrored work order by upstream id
func (db *DB) GetWorkOrder(ctx context.Context, id int) (*WorkOrder, error) {
	wo := &WorkOrder{}

	query := `
		SELECT id, custom_id, description, status_id, field_worker_id, start_date
		FROM work_orders
		WHERE id = ?
	`

	err := db.QueryRowContext(ctx, query, id).Scan(
		&wo.ID,
		&wo.CustomID,
		&wo.Description,
		&wo.StatusID,
		&wo.FieldWorkerID,
		&wo.StartDate,
	)

	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}

	if err != nil {
		return nil, err
	}

	return wo, nil
}

// ResolveWorkOrderID turns a caller reference into an upstream id. Numeric
// references are upstream ids already. Anything else is looked up as a
// custom id; custom ids are reused over time, so the most recent order wins.
func (db *DB) ResolveWorkOrderID(ctx context.Context, ref string) (int, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return 0, fmt.Errorf("%w: empty work order reference", ErrNotFound)
	}

	if id, err := strconv.Atoi(ref); err == nil && id > 0 {
		return id, nil
	}

	query := `
		SELECT id
		FROM work_orders
		WHERE custom_id = ?
		ORDER BY start_date DESC, id DESC
		LIMIT 1
	`

	var id int
	err := db.QueryRowContext(ctx, query, ref).Scan(&id)
	if err == sql.ErrNoRows {
		return 0, fmt.Errorf("%w: custom id %q", ErrNotFound, ref)
	}
	if err != nil {
		return 0, err
	}

	return id, nil
}

// UpsertWorkOrder inserts or replaces a mirrored work order
func (tx *Tx) UpsertWorkOrder(ctx context.Context, wo *WorkOrder) error {
	query := `
		INSERT INTO work_orders (id, custom_id, description, status_id, field_worker_id, start_date)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			custom_id = excluded.custom_id,
			description = excluded.description,
			status_id = excluded.status_id,
			field_worker_id = excluded.field_worker_id,
			start_date = excluded.start_date
	`

	_, err := tx.ExecContext(ctx, query, wo.ID, wo.CustomID, wo.Description, wo.StatusID, wo.FieldWorkerID, wo.StartDate)
	return err
}
