package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tablewright/tablewright/internal/fieldtype"
)

// Clean operation kinds.
const (
	CleanFillMissing = "fill_missing" // fill missing cells of Column with Value
	CleanDropMissing = "drop_missing" // drop rows where Column is missing
	CleanDeduplicate = "deduplicate"  // drop exact duplicate rows
	CleanTrim        = "trim"         // trim surrounding whitespace in Column
	CleanLowercase   = "lowercase"    // lowercase Column
	CleanRename      = "rename"       // rename Column to Value
	CleanDropColumn  = "drop_column"  // remove Column
	CleanCast        = "cast"         // cast Column to the type named by Value
)

// CleanRequest describes one cleaning operation on a table.
type CleanRequest struct {
	TableID int64  `json:"tableId"`
	Op      string `json:"op"`
	Column  string `json:"column,omitempty"`
	Value   string `json:"value,omitempty"`
}

// CleanPreview reports what a cleaning operation would change.
type CleanPreview struct {
	Op           string `json:"op"`
	AffectedRows int64  `json:"affectedRows"`
	RowsBefore   int64  `json:"rowsBefore"`
	RowsAfter    int64  `json:"rowsAfter"`
}

// PreviewClean computes the effect of a cleaning operation without
// applying it.
func (c *Catalog) PreviewClean(ctx context.Context, req CleanRequest) (*CleanPreview, error) {
	t, err := c.GetTable(ctx, req.TableID)
	if err != nil {
		return nil, err
	}
	if err := validateClean(t, req); err != nil {
		return nil, err
	}

	phys := physName(t.ID, t.CurrentVersion)
	pv := &CleanPreview{Op: req.Op, RowsBefore: t.RowCount, RowsAfter: t.RowCount}

	switch req.Op {
	case CleanFillMissing, CleanDropMissing:
		col := findColumn(t, req.Column)
		q := fmt.Sprintf("SELECT count(*) FROM %s WHERE %s", phys, missingPredicate(*col))
		if err := c.db.QueryRowContext(ctx, q).Scan(&pv.AffectedRows); err != nil {
			return nil, err
		}
		if req.Op == CleanDropMissing {
			pv.RowsAfter = pv.RowsBefore - pv.AffectedRows
		}
	case CleanDeduplicate:
		names := make([]string, len(t.Columns))
		for i, col := range t.Columns {
			names[i] = sqlIdent(col.Name)
		}
		q := fmt.Sprintf("SELECT count(*) FROM (SELECT DISTINCT %s FROM %s)",
			strings.Join(names, ", "), phys)
		var distinct int64
		if err := c.db.QueryRowContext(ctx, q).Scan(&distinct); err != nil {
			return nil, err
		}
		pv.AffectedRows = pv.RowsBefore - distinct
		pv.RowsAfter = distinct
	case CleanTrim, CleanLowercase:
		fn := "trim"
		if req.Op == CleanLowercase {
			fn = "lower"
		}
		q := fmt.Sprintf("SELECT count(*) FROM %s WHERE %s IS NOT NULL AND %s <> %s(%s)",
			phys, sqlIdent(req.Column), sqlIdent(req.Column), fn, sqlIdent(req.Column))
		if err := c.db.QueryRowContext(ctx, q).Scan(&pv.AffectedRows); err != nil {
			return nil, err
		}
	case CleanRename, CleanDropColumn, CleanCast:
		pv.AffectedRows = pv.RowsBefore
	}
	return pv, nil
}

// Clean applies a cleaning operation as a new table version.
func (c *Catalog) Clean(ctx context.Context, req CleanRequest) (*Table, error) {
	t, err := c.GetTable(ctx, req.TableID)
	if err != nil {
		return nil, err
	}
	if err := validateClean(t, req); err != nil {
		return nil, err
	}

	phys := physName(t.ID, t.CurrentVersion)
	newCols := make([]Column, 0, len(t.Columns))
	sel := make([]string, 0, len(t.Columns))
	var where string
	var args []any

	for _, col := range t.Columns {
		out := col
		expr := sqlIdent(col.Name)
		if col.Name == req.Column {
			switch req.Op {
			case CleanFillMissing:
				expr = fmt.Sprintf("CASE WHEN %s THEN ? ELSE %s END", missingPredicate(col), expr)
				args = append(args, req.Value)
			case CleanTrim:
				expr = fmt.Sprintf("trim(%s)", expr)
			case CleanLowercase:
				expr = fmt.Sprintf("lower(%s)", expr)
			case CleanRename:
				out.Name = req.Value
			case CleanDropColumn:
				continue
			case CleanCast:
				target := fieldtype.Type(req.Value)
				expr = fmt.Sprintf("CAST(%s AS %s)", expr, target.SQLiteDecl())
				out.Type = target
			}
		}
		newCols = append(newCols, out)
		sel = append(sel, expr)
	}

	switch req.Op {
	case CleanDropMissing:
		col := findColumn(t, req.Column)
		where = " WHERE NOT " + missingPredicate(*col)
	case CleanDeduplicate:
		// DISTINCT over plain column references drops exact duplicates.
		return c.applyVersion(ctx, t, "clean:"+req.Op, req, newCols,
			fmt.Sprintf("SELECT DISTINCT %s FROM %s", strings.Join(sel, ", "), phys), nil)
	}

	query := fmt.Sprintf("SELECT %s FROM %s%s", strings.Join(sel, ", "), phys, where)
	return c.applyVersion(ctx, t, "clean:"+req.Op, req, newCols, query, args)
}

func validateClean(t *Table, req CleanRequest) error {
	switch req.Op {
	case CleanDeduplicate:
		return nil
	case CleanFillMissing, CleanDropMissing, CleanTrim, CleanLowercase, CleanRename, CleanDropColumn, CleanCast:
	default:
		return fmt.Errorf("unknown clean operation %q", req.Op)
	}

	if !hasColumn(t, req.Column) {
		return fmt.Errorf("table %s has no column %q", t.Name, req.Column)
	}
	switch req.Op {
	case CleanRename:
		if req.Value == "" {
			return errors.New("rename requires a new column name")
		}
		if req.Value != req.Column && hasColumn(t, req.Value) {
			return fmt.Errorf("table %s already has a column %q", t.Name, req.Value)
		}
	case CleanDropColumn:
		if len(t.Columns) == 1 {
			return errors.New("cannot drop the only column")
		}
	case CleanCast:
		if !fieldtype.Type(req.Value).Valid() {
			return fmt.Errorf("invalid target type %q", req.Value)
		}
	case CleanFillMissing:
		if req.Value == "" {
			return errors.New("fill_missing requires a fill value")
		}
	}
	return nil
}

func findColumn(t *Table, name string) *Column {
	for i := range t.Columns {
		if t.Columns[i].Name == name {
			return &t.Columns[i]
		}
	}
	return nil
}
