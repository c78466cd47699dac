package catalog

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// MergeRequest joins two tables on a column pair into a new table.
type MergeRequest struct {
	LeftID  int64  `json:"leftId"`
	RightID int64  `json:"rightId"`
	LeftOn  string `json:"leftOn"`
	RightOn string `json:"rightOn"`
	How     string `json:"how"`  // "inner" or "left", default inner
	Name    string `json:"name"` // result table name
}

// Merge joins two tables and stores the result as a new table. Right
// columns whose names collide with left ones (other than the join
// column) get a "_right" suffix. Lineage edges link the result to both
// parents.
func (c *Catalog) Merge(ctx context.Context, req MergeRequest) (*Table, error) {
	left, err := c.GetTable(ctx, req.LeftID)
	if err != nil {
		return nil, err
	}
	right, err := c.GetTable(ctx, req.RightID)
	if err != nil {
		return nil, err
	}
	if !hasColumn(left, req.LeftOn) {
		return nil, fmt.Errorf("table %s has no column %q", left.Name, req.LeftOn)
	}
	if !hasColumn(right, req.RightOn) {
		return nil, fmt.Errorf("table %s has no column %q", right.Name, req.RightOn)
	}

	join := "JOIN"
	switch req.How {
	case "", "inner":
	case "left":
		join = "LEFT JOIN"
	default:
		return nil, fmt.Errorf("unsupported join kind %q", req.How)
	}

	name := req.Name
	if name == "" {
		name = left.Name + "_" + right.Name
	}

	taken := make(map[string]bool, len(left.Columns))
	newCols := make([]Column, 0, len(left.Columns)+len(right.Columns))
	sel := make([]string, 0, cap(newCols))
	for _, col := range left.Columns {
		taken[col.Name] = true
		newCols = append(newCols, col)
		sel = append(sel, "l."+sqlIdent(col.Name))
	}
	for _, col := range right.Columns {
		if col.Name == req.RightOn {
			// The join key already appears on the left side.
			continue
		}
		out := col
		if taken[out.Name] {
			out.Name += "_right"
		}
		if taken[out.Name] {
			return nil, fmt.Errorf("column %q collides even after suffixing", col.Name)
		}
		taken[out.Name] = true
		newCols = append(newCols, out)
		sel = append(sel, "r."+sqlIdent(col.Name))
	}

	merged, err := c.ImportTable(ctx, name, "merge", newCols, nil)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf("INSERT INTO %s SELECT %s FROM %s l %s %s r ON l.%s = r.%s",
		physName(merged.ID, 1), strings.Join(sel, ", "),
		physName(left.ID, left.CurrentVersion), join,
		physName(right.ID, right.CurrentVersion),
		sqlIdent(req.LeftOn), sqlIdent(req.RightOn))
	if _, err := c.db.ExecContext(ctx, query); err != nil {
		// Leave no half-built table behind.
		_ = c.DeleteTable(ctx, merged.ID)
		return nil, fmt.Errorf("merging %s and %s: %w", left.Name, right.Name, err)
	}

	var rowCount int64
	if err := c.db.QueryRowContext(ctx, "SELECT count(*) FROM "+physName(merged.ID, 1)).Scan(&rowCount); err != nil {
		return nil, err
	}
	if _, err := c.db.ExecContext(ctx,
		`UPDATE table_versions SET row_count = ? WHERE table_id = ? AND version = 1`,
		rowCount, merged.ID); err != nil {
		return nil, err
	}

	now := time.Now().UTC().Format(time.RFC3339)
	for _, parent := range []int64{left.ID, right.ID} {
		if _, err := c.db.ExecContext(ctx,
			`INSERT INTO lineage_edges (parent_table_id, child_table_id, operation, created_at) VALUES (?, ?, 'merge', ?)`,
			parent, merged.ID, now); err != nil {
			return nil, fmt.Errorf("recording lineage: %w", err)
		}
	}
	if err := c.logOperation(ctx, merged.ID, "merge", req, 0, 1); err != nil {
		return nil, err
	}

	c.log.Info("merged tables", "left", left.Name, "right", right.Name, "result", name, "rows", rowCount)
	return c.GetTable(ctx, merged.ID)
}

// LineageEdge records that one table was derived from another.
type LineageEdge struct {
	ParentTableID int64  `json:"parentTableId"`
	ChildTableID  int64  `json:"childTableId"`
	Operation     string `json:"operation"`
}

// Lineage returns the edges touching a table, as parent or child.
func (c *Catalog) Lineage(ctx context.Context, id int64) ([]LineageEdge, error) {
	rows, err := c.db.QueryContext(ctx,
		`SELECT parent_table_id, child_table_id, operation FROM lineage_edges
		 WHERE parent_table_id = ? OR child_table_id = ? ORDER BY id`, id, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []LineageEdge
	for rows.Next() {
		var e LineageEdge
		if err := rows.Scan(&e.ParentTableID, &e.ChildTableID, &e.Operation); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
