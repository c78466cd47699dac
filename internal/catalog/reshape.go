package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tablewright/tablewright/internal/fieldtype"
)

// MeltRequest turns a wide table into long form. Every value column is
// unpivoted into (variable, value) rows, repeated per id-var tuple.
type MeltRequest struct {
	TableID   int64    `json:"tableId"`
	IDVars    []string `json:"idVars"`
	ValueVars []string `json:"valueVars"`
	VarName   string   `json:"varName"`   // default "variable"
	ValueName string   `json:"valueName"` // default "value"
}

// PivotRequest turns a long table into wide form. Distinct values of
// the column variable become new columns, filled from the value column.
type PivotRequest struct {
	TableID   int64    `json:"tableId"`
	IndexCols []string `json:"indexCols"`
	ColumnVar string   `json:"columnVar"`
	ValueVar  string   `json:"valueVar"`
}

const maxPivotColumns = 200

// Melt writes a new version of the table in long form.
func (c *Catalog) Melt(ctx context.Context, req MeltRequest) (*Table, error) {
	t, err := c.GetTable(ctx, req.TableID)
	if err != nil {
		return nil, err
	}
	if req.VarName == "" {
		req.VarName = "variable"
	}
	if req.ValueName == "" {
		req.ValueName = "value"
	}
	if len(req.ValueVars) == 0 {
		return nil, errors.New("melt requires at least one value column")
	}
	for _, name := range append(append([]string{}, req.IDVars...), req.ValueVars...) {
		if !hasColumn(t, name) {
			return nil, fmt.Errorf("table %s has no column %q", t.Name, name)
		}
	}

	newCols := make([]Column, 0, len(req.IDVars)+2)
	for _, name := range req.IDVars {
		newCols = append(newCols, Column{Name: name, Type: columnType(t, name)})
	}
	newCols = append(newCols,
		Column{Name: req.VarName, Type: fieldtype.Text},
		Column{Name: req.ValueName, Type: meltValueType(t, req.ValueVars)})

	idSel := make([]string, len(req.IDVars))
	for i, name := range req.IDVars {
		idSel[i] = sqlIdent(name)
	}
	prefix := ""
	if len(idSel) > 0 {
		prefix = strings.Join(idSel, ", ") + ", "
	}

	// One SELECT branch per value column, stacked with UNION ALL.
	phys := physName(t.ID, t.CurrentVersion)
	branches := make([]string, len(req.ValueVars))
	for i, name := range req.ValueVars {
		branches[i] = fmt.Sprintf("SELECT %s'%s' AS %s, %s AS %s FROM %s",
			prefix, strings.ReplaceAll(name, "'", "''"), sqlIdent(req.VarName),
			sqlIdent(name), sqlIdent(req.ValueName), phys)
	}
	query := strings.Join(branches, " UNION ALL ")

	return c.applyVersion(ctx, t, "melt", req, newCols, query, nil)
}

// Pivot writes a new version of the table in wide form.
func (c *Catalog) Pivot(ctx context.Context, req PivotRequest) (*Table, error) {
	t, err := c.GetTable(ctx, req.TableID)
	if err != nil {
		return nil, err
	}
	if len(req.IndexCols) == 0 {
		return nil, errors.New("pivot requires at least one index column")
	}
	for _, name := range append(append([]string{}, req.IndexCols...), req.ColumnVar, req.ValueVar) {
		if !hasColumn(t, name) {
			return nil, fmt.Errorf("table %s has no column %q", t.Name, name)
		}
	}

	phys := physName(t.ID, t.CurrentVersion)
	values, err := c.distinctValues(ctx, phys, req.ColumnVar)
	if err != nil {
		return nil, err
	}
	if len(values) == 0 {
		return nil, errors.New("pivot column has no values")
	}
	if len(values) > maxPivotColumns {
		return nil, fmt.Errorf("pivot would create %d columns (limit %d)", len(values), maxPivotColumns)
	}

	valueType := columnType(t, req.ValueVar)
	newCols := make([]Column, 0, len(req.IndexCols)+len(values))
	for _, name := range req.IndexCols {
		newCols = append(newCols, Column{Name: name, Type: columnType(t, name)})
	}
	existing := make(map[string]bool, len(req.IndexCols))
	for _, name := range req.IndexCols {
		existing[name] = true
	}
	for _, v := range values {
		name := v
		if existing[name] {
			name = req.ColumnVar + "_" + name
		}
		newCols = append(newCols, Column{Name: name, Type: valueType})
	}

	idxSel := make([]string, len(req.IndexCols))
	for i, name := range req.IndexCols {
		idxSel[i] = sqlIdent(name)
	}
	sel := make([]string, 0, len(newCols))
	sel = append(sel, idxSel...)
	var args []any
	for _, v := range values {
		// min() picks the first value when a cell has duplicates.
		sel = append(sel, fmt.Sprintf("min(CASE WHEN %s = ? THEN %s END)",
			sqlIdent(req.ColumnVar), sqlIdent(req.ValueVar)))
		args = append(args, v)
	}
	query := fmt.Sprintf("SELECT %s FROM %s GROUP BY %s",
		strings.Join(sel, ", "), phys, strings.Join(idxSel, ", "))

	return c.applyVersion(ctx, t, "pivot", req, newCols, query, args)
}

// distinctValues returns the distinct non-null values of a column as
// strings, in sorted order.
func (c *Catalog) distinctValues(ctx context.Context, phys, col string) ([]string, error) {
	q := fmt.Sprintf("SELECT DISTINCT CAST(%s AS TEXT) FROM %s WHERE %s IS NOT NULL ORDER BY 1",
		sqlIdent(col), phys, sqlIdent(col))
	rows, err := c.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("enumerating pivot values: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// applyVersion materializes query into the table's next version,
// records the operation, and bumps the current version.
func (c *Catalog) applyVersion(ctx context.Context, t *Table, kind string, details any, newCols []Column, query string, args []any) (*Table, error) {
	next := t.CurrentVersion + 1
	// Versions after an undo are overwritten, not branched.
	versions, err := c.versionNumbers(ctx, t.ID)
	if err != nil {
		return nil, err
	}
	for _, v := range versions {
		if v < next {
			continue
		}
		if _, err := c.db.ExecContext(ctx, "DROP TABLE IF EXISTS "+physName(t.ID, v)); err != nil {
			return nil, err
		}
	}
	if _, err := c.db.ExecContext(ctx,
		`DELETE FROM table_versions WHERE table_id = ? AND version >= ?`, t.ID, next); err != nil {
		return nil, err
	}

	now := time.Now().UTC().Format(time.RFC3339)
	if err := c.createVersion(ctx, t.ID, next, newCols, 0, now); err != nil {
		return nil, err
	}

	names := make([]string, len(newCols))
	for i, col := range newCols {
		names[i] = sqlIdent(col.Name)
	}
	insert := fmt.Sprintf("INSERT INTO %s (%s) %s",
		physName(t.ID, next), strings.Join(names, ", "), query)
	if _, err := c.db.ExecContext(ctx, insert, args...); err != nil {
		return nil, fmt.Errorf("applying %s to table %s: %w", kind, t.Name, err)
	}

	var rowCount int64
	if err := c.db.QueryRowContext(ctx, "SELECT count(*) FROM "+physName(t.ID, next)).Scan(&rowCount); err != nil {
		return nil, err
	}
	if _, err := c.db.ExecContext(ctx,
		`UPDATE table_versions SET row_count = ? WHERE table_id = ? AND version = ?`,
		rowCount, t.ID, next); err != nil {
		return nil, err
	}

	if err := c.logOperation(ctx, t.ID, kind, details, t.CurrentVersion, next); err != nil {
		return nil, err
	}
	if err := c.bumpVersion(ctx, t.ID, next); err != nil {
		return nil, err
	}

	c.log.Info("applied transform", "table", t.Name, "kind", kind, "version", next, "rows", rowCount)
	return c.GetTable(ctx, t.ID)
}

func columnType(t *Table, name string) fieldtype.Type {
	for _, col := range t.Columns {
		if col.Name == name {
			return col.Type
		}
	}
	return fieldtype.Text
}

// meltValueType picks the melted value column's type. Mixed source
// types degrade to text.
func meltValueType(t *Table, valueVars []string) fieldtype.Type {
	typ := columnType(t, valueVars[0])
	for _, name := range valueVars[1:] {
		if columnType(t, name) != typ {
			return fieldtype.Text
		}
	}
	return typ
}
