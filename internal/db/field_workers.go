package db

import "context"

// =============================================================================
// Field Worker Operations
// =============================================================================

// GetActiveFieldWorkers returns the current roster of active field workers
func (db *DB) GetActiveFieldWorkers(ctx context.Context) ([]FieldWorker, error) {
	return db.queryFieldWorkers(ctx, `
		SELECT id, full_name, active
		FROM field_workers
		WHERE active = 1
		ORDER BY full_name, id
	`)
}

// GetFieldWorkers returns every known field worker, active or not
func (db *DB) GetFieldWorkers(ctx context.Context) ([]FieldWorker, error) {
	return db.queryFieldWorkers(ctx, `
		SELECT id, full_name, active
		FROM field_workers
		ORDER BY full_name, id
	`)
}

func (db *DB) queryFieldWorkers(ctx context.Context, query string) ([]FieldWorker, error) {
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	workers := []FieldWorker{}
	for rows.Next() {
		var fw FieldWorker
		if err := rows.Scan(&fw.ID, &fw.FullName, &fw.Active); err != nil {
			return nil, err
		}
		workers = append(workers, fw)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return workers, nil
}

// UpsertFieldWorker inserts or replaces a roster entry
func (tx *Tx) UpsertFieldWorker(ctx context.Context, fw FieldWorker) error {
	query := `
		INSERT INTO field_workers (id, full_name, active)
		VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			full_name = excluded.full_name,
			active = excluded.active
	`

	_, err := tx.ExecContext(ctx, query, fw.ID, fw.FullName, fw.Active)
	return err
}
