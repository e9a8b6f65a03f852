package db

import (
	"context"
	"fmt"
	"time"
)

// FieldWorker is a roster entry. Only active workers may hold work orders.
type FieldWorker struct {
	ID       int    `json:"id"`
	FullName string `json:"name"`
	Active   bool   `json:"active"`
}

// Status is an entry of the upstream status catalog
type Status struct {
	ID          int    `json:"statusId"`
	Description string `json:"description"`
	IsComplete  bool   `json:"isComplete"`
}

// WorkOrder is the mirrored copy of an upstream work order
type WorkOrder struct {
	ID            int        `json:"id"`
	CustomID      *string    `json:"customId"`
	Description   *string    `json:"description"`
	StatusID      *int       `json:"statusId"`
	FieldWorkerID *int       `json:"fieldWorkerId"`
	StartDate     *time.Time `json:"startDate"`
}

// schemaStatements create the mirror tables. The reconciliation pipeline
// owns their contents; the engine only reads them, apart from seeding.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS field_workers (
		id        INTEGER PRIMARY KEY,
		full_name TEXT NOT NULL,
		active    BOOLEAN NOT NULL DEFAULT 1
	)`,
	`CREATE TABLE IF NOT EXISTS statuses (
		status_id          INTEGER PRIMARY KEY,
		status_description TEXT NOT NULL,
		is_complete        BOOLEAN NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS work_orders (
		id              INTEGER PRIMARY KEY,
		custom_id       TEXT,
		description     TEXT,
		status_id       INTEGER,
		field_worker_id INTEGER,
		start_date      TIMESTAMP
	)`,
	`CREATE INDEX IF NOT EXISTS idx_work_orders_custom_id ON work_orders(custom_id)`,
	`CREATE INDEX IF NOT EXISTS idx_field_workers_active ON field_workers(active)`,
}

// InitSchema creates the mirror tables if they do not exist
func (db *DB) InitSchema(ctx context.Context) error {
	return db.WithTransaction(ctx, func(tx *Tx) error {
		for _, stmt := range schemaStatements {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("init schema: %w", err)
			}
		}
		return nil
	})
}
