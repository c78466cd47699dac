package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tablewright/tablewright/internal/fieldtype"
)

// ErrTableNotFound is returned when a table id or name does not exist.
var ErrTableNotFound = errors.New("table not found")

// Column describes one column of a stored table.
type Column struct {
	Name string         `json:"name"`
	Type fieldtype.Type `json:"type"`
}

// Table is the metadata record for a stored table.
type Table struct {
	ID             int64     `json:"id"`
	Name           string    `json:"name"`
	Source         string    `json:"source"`
	CurrentVersion int       `json:"currentVersion"`
	Columns        []Column  `json:"columns"`
	RowCount       int64     `json:"rowCount"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// ImportTable stores a new table with the given columns and rows.
// Row values must align positionally with cols.
func (c *Catalog) ImportTable(ctx context.Context, name, source string, cols []Column, rows [][]any) (*Table, error) {
	if name == "" {
		return nil, errors.New("table name must not be empty")
	}
	if len(cols) == 0 {
		return nil, errors.New("table must have at least one column")
	}
	seen := make(map[string]bool, len(cols))
	for _, col := range cols {
		if col.Name == "" {
			return nil, errors.New("column name must not be empty")
		}
		if !col.Type.Valid() {
			return nil, fmt.Errorf("column %q has invalid type %q", col.Name, col.Type)
		}
		if seen[col.Name] {
			return nil, fmt.Errorf("duplicate column name %q", col.Name)
		}
		seen[col.Name] = true
	}

	now := time.Now().UTC().Format(time.RFC3339)
	res, err := c.db.ExecContext(ctx,
		`INSERT INTO tables (name, source, current_version, created_at, updated_at) VALUES (?, ?, 1, ?, ?)`,
		name, source, now, now)
	if err != nil {
		return nil, fmt.Errorf("registering table %s: %w", name, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}

	if err := c.createVersion(ctx, id, 1, cols, int64(len(rows)), now); err != nil {
		return nil, err
	}
	if err := c.insertRows(ctx, physName(id, 1), cols, rows); err != nil {
		return nil, err
	}

	c.log.Info("imported table", "table", name, "id", id, "columns", len(cols), "rows", len(rows))
	return c.GetTable(ctx, id)
}

// createVersion registers a version record and creates its physical table.
func (c *Catalog) createVersion(ctx context.Context, tableID int64, version int, cols []Column, rowCount int64, now string) error {
	colsJSON, err := json.Marshal(cols)
	if err != nil {
		return fmt.Errorf("encoding columns: %w", err)
	}
	if _, err := c.db.ExecContext(ctx,
		`INSERT INTO table_versions (table_id, version, columns_json, row_count, created_at) VALUES (?, ?, ?, ?, ?)`,
		tableID, version, string(colsJSON), rowCount, now); err != nil {
		return fmt.Errorf("registering version %d: %w", version, err)
	}

	decls := make([]string, len(cols))
	for i, col := range cols {
		decls[i] = sqlIdent(col.Name) + " " + col.Type.SQLiteDecl()
	}
	ddl := fmt.Sprintf("CREATE TABLE %s (%s)", physName(tableID, version), strings.Join(decls, ", "))
	if _, err := c.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("creating data table: %w", err)
	}
	return nil
}

const insertBatchSize = 200

func (c *Catalog) insertRows(ctx context.Context, phys string, cols []Column, rows [][]any) error {
	if len(rows) == 0 {
		return nil
	}

	names := make([]string, len(cols))
	for i, col := range cols {
		names[i] = sqlIdent(col.Name)
	}
	rowPH := "(" + strings.TrimRight(strings.Repeat("?,", len(cols)), ",") + ")"

	for start := 0; start < len(rows); start += insertBatchSize {
		end := start + insertBatchSize
		if end > len(rows) {
			end = len(rows)
		}
		batch := rows[start:end]

		var b strings.Builder
		b.WriteString("INSERT INTO ")
		b.WriteString(phys)
		b.WriteString(" (")
		b.WriteString(strings.Join(names, ", "))
		b.WriteString(") VALUES ")

		args := make([]any, 0, len(batch)*len(cols))
		for i, row := range batch {
			if len(row) != len(cols) {
				return fmt.Errorf("row %d has %d values, expected %d", start+i, len(row), len(cols))
			}
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(rowPH)
			args = append(args, row...)
		}
		if _, err := c.db.ExecContext(ctx, b.String(), args...); err != nil {
			return fmt.Errorf("inserting rows into %s: %w", phys, err)
		}
	}
	return nil
}

// ListTables returns all tables in creation order.
func (c *Catalog) ListTables(ctx context.Context) ([]Table, error) {
	rows, err := c.db.QueryContext(ctx,
		`SELECT t.id, t.name, t.source, t.current_version, v.columns_json, v.row_count, t.created_at, t.updated_at
		 FROM tables t
		 JOIN table_versions v ON v.table_id = t.id AND v.version = t.current_version
		 ORDER BY t.id`)
	if err != nil {
		return nil, fmt.Errorf("listing tables: %w", err)
	}
	defer rows.Close()

	var out []Table
	for rows.Next() {
		t, err := scanTable(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

// GetTable returns a table by id.
func (c *Catalog) GetTable(ctx context.Context, id int64) (*Table, error) {
	row := c.db.QueryRowContext(ctx,
		`SELECT t.id, t.name, t.source, t.current_version, v.columns_json, v.row_count, t.created_at, t.updated_at
		 FROM tables t
		 JOIN table_versions v ON v.table_id = t.id AND v.version = t.current_version
		 WHERE t.id = ?`, id)
	t, err := scanTable(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("table %d: %w", id, ErrTableNotFound)
	}
	return t, err
}

// GetTableByName returns a table by its display name.
func (c *Catalog) GetTableByName(ctx context.Context, name string) (*Table, error) {
	var id int64
	err := c.db.QueryRowContext(ctx, `SELECT id FROM tables WHERE name = ?`, name).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("table %q: %w", name, ErrTableNotFound)
	}
	if err != nil {
		return nil, err
	}
	return c.GetTable(ctx, id)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTable(s rowScanner) (*Table, error) {
	var t Table
	var colsJSON, created, updated string
	if err := s.Scan(&t.ID, &t.Name, &t.Source, &t.CurrentVersion, &colsJSON, &t.RowCount, &created, &updated); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(colsJSON), &t.Columns); err != nil {
		return nil, fmt.Errorf("decoding columns for table %d: %w", t.ID, err)
	}
	t.CreatedAt, _ = time.Parse(time.RFC3339, created)
	t.UpdatedAt, _ = time.Parse(time.RFC3339, updated)
	return &t, nil
}

// Rows returns a page of data from the table's current version.
func (c *Catalog) Rows(ctx context.Context, id int64, offset, limit int) ([]Column, [][]any, error) {
	t, err := c.GetTable(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if limit <= 0 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}

	names := make([]string, len(t.Columns))
	for i, col := range t.Columns {
		names[i] = sqlIdent(col.Name)
	}
	q := fmt.Sprintf("SELECT %s FROM %s LIMIT ? OFFSET ?",
		strings.Join(names, ", "), physName(t.ID, t.CurrentVersion))

	rows, err := c.db.QueryContext(ctx, q, limit, offset)
	if err != nil {
		return nil, nil, fmt.Errorf("reading rows of table %d: %w", id, err)
	}
	defer rows.Close()

	var out [][]any
	for rows.Next() {
		vals := make([]any, len(t.Columns))
		ptrs := make([]any, len(t.Columns))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, nil, err
		}
		out = append(out, vals)
	}
	return t.Columns, out, rows.Err()
}

// DeleteTable removes a table, all its versions, and any metadata that
// references it.
func (c *Catalog) DeleteTable(ctx context.Context, id int64) error {
	t, err := c.GetTable(ctx, id)
	if err != nil {
		return err
	}

	versions, err := c.versionNumbers(ctx, id)
	if err != nil {
		return err
	}
	for _, v := range versions {
		if _, err := c.db.ExecContext(ctx, "DROP TABLE IF EXISTS "+physName(id, v)); err != nil {
			return fmt.Errorf("dropping data table: %w", err)
		}
	}

	stmts := []string{
		`DELETE FROM column_profiles WHERE table_id = ?`,
		`DELETE FROM relation_edges WHERE from_table_id = ? OR to_table_id = ?`,
		`DELETE FROM operation_logs WHERE table_id = ?`,
		`DELETE FROM lineage_edges WHERE parent_table_id = ? OR child_table_id = ?`,
		`DELETE FROM table_versions WHERE table_id = ?`,
		`DELETE FROM tables WHERE id = ?`,
	}
	for _, stmt := range stmts {
		n := strings.Count(stmt, "?")
		args := make([]any, n)
		for i := range args {
			args[i] = id
		}
		if _, err := c.db.ExecContext(ctx, stmt, args...); err != nil {
			return fmt.Errorf("deleting table %d metadata: %w", id, err)
		}
	}

	c.log.Info("deleted table", "table", t.Name, "id", id)
	return nil
}

func (c *Catalog) versionNumbers(ctx context.Context, id int64) ([]int, error) {
	rows, err := c.db.QueryContext(ctx, `SELECT version FROM table_versions WHERE table_id = ? ORDER BY version`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []int
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// bumpVersion records a new current version for a table.
func (c *Catalog) bumpVersion(ctx context.Context, id int64, version int) error {
	now := time.Now().UTC().Format(time.RFC3339)
	_, err := c.db.ExecContext(ctx,
		`UPDATE tables SET current_version = ?, updated_at = ? WHERE id = ?`, version, now, id)
	return err
}
