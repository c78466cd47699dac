package catalog

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/tablewright/tablewright/internal/fieldtype"
	"github.com/tablewright/tablewright/internal/inference"
)

// missingPredicate returns the SQL predicate that counts a value as
// missing. Text-like columns treat whitespace-only strings as missing,
// matching how blank CSV cells arrive.
func missingPredicate(col Column) string {
	q := sqlIdent(col.Name)
	switch col.Type {
	case fieldtype.Text, fieldtype.Identifier, fieldtype.Structured:
		return fmt.Sprintf("(%s IS NULL OR trim(%s) = '')", q, q)
	default:
		return q + " IS NULL"
	}
}

// columnStats computes the per-column statistics the profiler needs,
// in a single scan per column over the table's current version.
func (c *Catalog) columnStats(ctx context.Context, t *Table) ([]inference.Column, error) {
	phys := physName(t.ID, t.CurrentVersion)

	out := make([]inference.Column, 0, len(t.Columns))
	for _, col := range t.Columns {
		miss := missingPredicate(col)
		// Distinct counts ignore missing values so a blank text cell is
		// never counted as a value of its own.
		q := fmt.Sprintf(
			`SELECT count(*), count(DISTINCT CASE WHEN %s THEN NULL ELSE %s END), sum(CASE WHEN %s THEN 1 ELSE 0 END)`,
			miss, sqlIdent(col.Name), miss)
		if col.Type == fieldtype.Integer {
			q += fmt.Sprintf(`, min(%s), max(%s)`, sqlIdent(col.Name), sqlIdent(col.Name))
		}
		q += " FROM " + phys

		ic := inference.Column{Name: col.Name, Type: col.Type}
		var missing sql.NullInt64
		if col.Type == fieldtype.Integer {
			var minV, maxV sql.NullInt64
			if err := c.db.QueryRowContext(ctx, q).Scan(&ic.RowCount, &ic.DistinctCount, &missing, &minV, &maxV); err != nil {
				return nil, fmt.Errorf("profiling column %s.%s: %w", t.Name, col.Name, err)
			}
			if minV.Valid {
				ic.MinInt = &minV.Int64
			}
			if maxV.Valid {
				ic.MaxInt = &maxV.Int64
			}
		} else {
			if err := c.db.QueryRowContext(ctx, q).Scan(&ic.RowCount, &ic.DistinctCount, &missing); err != nil {
				return nil, fmt.Errorf("profiling column %s.%s: %w", t.Name, col.Name, err)
			}
		}
		if missing.Valid {
			ic.MissingCount = missing.Int64
		}
		out = append(out, ic)
	}
	return out, nil
}
