package datasource

import (
	"context"
	"database/sql"
	"fmt"
)

// SchemaVersion is stored in the meta table.
const SchemaVersion = 1

// createSchema creates the tables and indexes if they do not exist.
func createSchema(ctx context.Context, db *sql.DB) error {
	stmts := []struct {
		name string
		sql  string
	}{
		{"graphs table", `
			CREATE TABLE IF NOT EXISTS graphs (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				text TEXT NOT NULL,
				norm TEXT NOT NULL UNIQUE,
				graph TEXT NOT NULL,
				node_count INTEGER NOT NULL,
				edge_count INTEGER NOT NULL,
				created_at TEXT NOT NULL,
				updated_at TEXT NOT NULL
			)`},
		// One row per distinct entity label in a graph, for label filtering.
		{"graph_labels table", `
			CREATE TABLE IF NOT EXISTS graph_labels (
				graph_id INTEGER NOT NULL,
				label TEXT NOT NULL COLLATE NOCASE,
				PRIMARY KEY (graph_id, label),
				FOREIGN KEY (graph_id) REFERENCES graphs(id) ON DELETE CASCADE
			)`},
		{"label index", `CREATE INDEX IF NOT EXISTS idx_graph_labels_label ON graph_labels(label)`},
		{"meta table", `
			CREATE TABLE IF NOT EXISTS meta (
				key TEXT PRIMARY KEY,
				value TEXT NOT NULL
			)`},
	}
	for _, s := range stmts {
		if _, err := db.ExecContext(ctx, s.sql); err != nil {
			return fmt.Errorf("create %s: %w", s.name, err)
		}
	}

	_, err := db.ExecContext(ctx,
		`INSERT INTO meta (key, value) VALUES ('schema_version', ?)
		 ON CONFLICT(key) DO NOTHING`, fmt.Sprint(SchemaVersion))
	if err != nil {
		return fmt.Errorf("write schema version: %w", err)
	}
	return nil
}
