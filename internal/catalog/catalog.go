package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"
)

// Catalog is the workbench store. It keeps table metadata, column
// profiles, relation edges, and operation history in a SQLite file,
// alongside the physical data tables themselves.
//
// Physical data lives in tables named t_<id>_v<version>. Every
// transform writes a new version table and bumps current_version, so
// undo is a metadata flip rather than a data rewrite.
type Catalog struct {
	db  *sql.DB
	log *slog.Logger
}

// Open opens (or creates) the catalog at path.
func Open(ctx context.Context, path string, logger *slog.Logger) (*Catalog, error) {
	if logger == nil {
		logger = slog.Default()
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening catalog: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("pinging catalog: %w", err)
	}
	// modernc.org/sqlite serializes access per connection; a single
	// connection avoids SQLITE_BUSY on concurrent writes.
	db.SetMaxOpenConns(1)

	c := &Catalog{db: db, log: logger}
	if err := c.ensureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return c, nil
}

func (c *Catalog) Close() error { return c.db.Close() }

var schemaDDL = []string{
	`CREATE TABLE IF NOT EXISTS tables (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL UNIQUE,
		source TEXT NOT NULL DEFAULT 'csv',
		current_version INTEGER NOT NULL DEFAULT 1,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS table_versions (
		table_id INTEGER NOT NULL REFERENCES tables(id),
		version INTEGER NOT NULL,
		columns_json TEXT NOT NULL,
		row_count INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL,
		PRIMARY KEY (table_id, version)
	)`,
	`CREATE TABLE IF NOT EXISTS column_profiles (
		table_id INTEGER NOT NULL,
		version INTEGER NOT NULL,
		name TEXT NOT NULL,
		type TEXT NOT NULL,
		row_count INTEGER NOT NULL,
		distinct_count INTEGER NOT NULL,
		missing_count INTEGER NOT NULL,
		is_nullable INTEGER NOT NULL,
		is_strict_unique INTEGER NOT NULL,
		is_identity_like INTEGER NOT NULL,
		is_pk_candidate INTEGER NOT NULL,
		stats_anomaly INTEGER NOT NULL,
		PRIMARY KEY (table_id, version, name)
	)`,
	`CREATE TABLE IF NOT EXISTS relation_edges (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		from_table_id INTEGER NOT NULL,
		from_field TEXT NOT NULL,
		to_table_id INTEGER NOT NULL,
		to_field TEXT NOT NULL,
		cardinality TEXT NOT NULL,
		weak INTEGER NOT NULL DEFAULT 0,
		inferred INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL,
		UNIQUE (from_table_id, from_field, to_table_id, to_field)
	)`,
	`CREATE TABLE IF NOT EXISTS operation_logs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		table_id INTEGER NOT NULL,
		kind TEXT NOT NULL,
		details_json TEXT NOT NULL,
		prev_version INTEGER NOT NULL,
		new_version INTEGER NOT NULL,
		undone INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS lineage_edges (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		parent_table_id INTEGER NOT NULL,
		child_table_id INTEGER NOT NULL,
		operation TEXT NOT NULL,
		created_at TEXT NOT NULL
	)`,
}

func (c *Catalog) ensureSchema(ctx context.Context) error {
	for _, ddl := range schemaDDL {
		if _, err := c.db.ExecContext(ctx, ddl); err != nil {
			return fmt.Errorf("ensuring catalog schema: %w", err)
		}
	}
	return nil
}

// physName returns the physical table name for a table version.
func physName(tableID int64, version int) string {
	return fmt.Sprintf("t_%d_v%d", tableID, version)
}

// sqlIdent quotes an identifier for use in generated SQL.
func sqlIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
