package db

import (
	"context"

	"washplant-monitor/internal/models"
)

// The alias table is written only through the management surface below; the
// metrics engine reads it via AllAliases and never mutates it.

// AllAliases returns the full client_id to display_name mapping.
func (db *Database) AllAliases(ctx context.Context) (map[int64]string, error) {
	rows, err := db.conn.QueryContext(ctx, `SELECT client_id, display_name FROM client_aliases`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	aliases := make(map[int64]string)
	for rows.Next() {
		var id int64
		var name string
		if err := rows.Scan(&id, &name); err != nil {
			return nil, err
		}
		aliases[id] = name
	}
	return aliases, rows.Err()
}

// ListAliases returns aliases ordered by client id.
func (db *Database) ListAliases(ctx context.Context) ([]models.ClientAlias, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT client_id, display_name FROM client_aliases ORDER BY client_id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []models.ClientAlias
	for rows.Next() {
		var a models.ClientAlias
		if err := rows.Scan(&a.ClientID, &a.DisplayName); err != nil {
			return nil, err
		}
		results = append(results, a)
	}
	return results, rows.Err()
}

// UpsertAlias inserts or replaces the display name for a client id.
func (db *Database) UpsertAlias(ctx context.Context, clientID int64, displayName string) error {
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO client_aliases (client_id, display_name) VALUES (?, ?)
		ON CONFLICT (client_id) DO UPDATE SET display_name = excluded.display_name
	`, clientID, displayName)
	return err
}

// DeleteAlias removes the alias for a client id. Deleting a missing alias is
// not an error.
func (db *Database) DeleteAlias(ctx context.Context, clientID int64) error {
	_, err := db.conn.ExecContext(ctx, `DELETE FROM client_aliases WHERE client_id = ?`, clientID)
	return err
}
