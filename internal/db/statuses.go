package db

import "context"

// =============================================================================
// Status Catalog Operations
// =============================================================================

// GetStatuses returns the status catalog ordered by description
func (db *DB) GetStatuses(ctx context.Context) ([]Status, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT status_id, status_description, is_complete
		FROM statuses
		ORDER BY status_description
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	statuses := []Status{}
	for rows.Next() {
		var s Status
		if err := rows.Scan(&s.ID, &s.Description, &s.IsComplete); err != nil {
			return nil, err
		}
		statuses = append(statuses, s)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return statuses, nil
}

// UpsertStatus inserts or replaces a catalog entry
func (tx *Tx) UpsertStatus(ctx context.Context, s Status) error {
	query := `
		INSERT INTO statuses (status_id, status_description, is_complete)
		VALUES (?, ?, ?)
		ON CONFLICT(status_id) DO UPDATE SET
			status_description = excluded.status_description,
			is_complete = excluded.is_complete
	`

	_, err := tx.ExecContext(ctx, query, s.ID, s.Description, s.IsComplete)
	return err
}
