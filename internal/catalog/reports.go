package catalog

import (
	"context"
	"fmt"

	"github.com/tablewright/tablewright/internal/fieldtype"
)

// ColumnSummary is the per-column slice of a table summary.
type ColumnSummary struct {
	Name          string         `json:"name"`
	Type          fieldtype.Type `json:"type"`
	DistinctCount int64          `json:"distinctCount"`
	MissingCount  int64          `json:"missingCount"`
	MissingPct    float64        `json:"missingPct"`

	// Numeric columns only.
	Min    *float64 `json:"min,omitempty"`
	Max    *float64 `json:"max,omitempty"`
	Mean   *float64 `json:"mean,omitempty"`
	Median *float64 `json:"median,omitempty"`
}

// TableSummary is the descriptive-statistics report for one table.
type TableSummary struct {
	TableID     int64           `json:"tableId"`
	Name        string          `json:"name"`
	RowCount    int64           `json:"rowCount"`
	ColumnCount int             `json:"columnCount"`
	Columns     []ColumnSummary `json:"columns"`
}

// Summarize computes descriptive statistics for the table's current
// version.
func (c *Catalog) Summarize(ctx context.Context, id int64) (*TableSummary, error) {
	t, err := c.GetTable(ctx, id)
	if err != nil {
		return nil, err
	}
	phys := physName(t.ID, t.CurrentVersion)

	sum := &TableSummary{
		TableID:     t.ID,
		Name:        t.Name,
		RowCount:    t.RowCount,
		ColumnCount: len(t.Columns),
	}
	for _, col := range t.Columns {
		cs := ColumnSummary{Name: col.Name, Type: col.Type}
		miss := missingPredicate(col)
		q := fmt.Sprintf(
			`SELECT count(DISTINCT CASE WHEN %s THEN NULL ELSE %s END), sum(CASE WHEN %s THEN 1 ELSE 0 END)`,
			miss, sqlIdent(col.Name), miss)
		if col.Type.IsNumeric() {
			q += fmt.Sprintf(`, min(%s), max(%s), avg(%s)`,
				sqlIdent(col.Name), sqlIdent(col.Name), sqlIdent(col.Name))
		}
		q += " FROM " + phys

		if col.Type.IsNumeric() {
			var minV, maxV, mean *float64
			var missingI *int64
			if err := c.db.QueryRowContext(ctx, q).Scan(&cs.DistinctCount, &missingI, &minV, &maxV, &mean); err != nil {
				return nil, fmt.Errorf("summarizing %s.%s: %w", t.Name, col.Name, err)
			}
			if missingI != nil {
				cs.MissingCount = *missingI
			}
			cs.Min, cs.Max, cs.Mean = minV, maxV, mean
			med, err := c.median(ctx, phys, col)
			if err != nil {
				return nil, err
			}
			cs.Median = med
		} else {
			var missingI *int64
			if err := c.db.QueryRowContext(ctx, q).Scan(&cs.DistinctCount, &missingI); err != nil {
				return nil, fmt.Errorf("summarizing %s.%s: %w", t.Name, col.Name, err)
			}
			if missingI != nil {
				cs.MissingCount = *missingI
			}
		}
		if t.RowCount > 0 {
			cs.MissingPct = 100 * float64(cs.MissingCount) / float64(t.RowCount)
		}
		sum.Columns = append(sum.Columns, cs)
	}
	return sum, nil
}

// median computes the lower median of a numeric column, ignoring NULLs.
func (c *Catalog) median(ctx context.Context, phys string, col Column) (*float64, error) {
	var n int64
	q := fmt.Sprintf("SELECT count(%s) FROM %s", sqlIdent(col.Name), phys)
	if err := c.db.QueryRowContext(ctx, q).Scan(&n); err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, nil
	}
	var med float64
	q = fmt.Sprintf("SELECT %s FROM %s WHERE %s IS NOT NULL ORDER BY %s LIMIT 1 OFFSET %d",
		sqlIdent(col.Name), phys, sqlIdent(col.Name), sqlIdent(col.Name), (n-1)/2)
	if err := c.db.QueryRowContext(ctx, q).Scan(&med); err != nil {
		return nil, err
	}
	return &med, nil
}

// QualityIssue flags one data-quality finding on a table.
type QualityIssue struct {
	Column   string `json:"column,omitempty"`
	Kind     string `json:"kind"`
	Detail   string `json:"detail"`
	Severity string `json:"severity"` // "warn" or "error"
}

// QualityReport aggregates quality findings for one table.
type QualityReport struct {
	TableID       int64          `json:"tableId"`
	Name          string         `json:"name"`
	RowCount      int64          `json:"rowCount"`
	DuplicateRows int64          `json:"duplicateRows"`
	Issues        []QualityIssue `json:"issues"`
}

// Quality checks a table for missing data, duplicate rows, constant
// columns, and inconsistent statistics.
func (c *Catalog) Quality(ctx context.Context, id int64) (*QualityReport, error) {
	t, err := c.GetTable(ctx, id)
	if err != nil {
		return nil, err
	}
	profiles, err := c.GetProfiles(ctx, id)
	if err != nil {
		return nil, err
	}

	report := &QualityReport{TableID: t.ID, Name: t.Name, RowCount: t.RowCount}

	pv, err := c.PreviewClean(ctx, CleanRequest{TableID: id, Op: CleanDeduplicate})
	if err != nil {
		return nil, err
	}
	report.DuplicateRows = pv.AffectedRows
	if pv.AffectedRows > 0 {
		report.Issues = append(report.Issues, QualityIssue{
			Kind:     "duplicate_rows",
			Detail:   fmt.Sprintf("%d exact duplicate rows", pv.AffectedRows),
			Severity: "warn",
		})
	}

	for _, sp := range profiles {
		if sp.RowCount == 0 {
			continue
		}
		if pct := 100 * float64(sp.MissingCount) / float64(sp.RowCount); pct >= 50 {
			report.Issues = append(report.Issues, QualityIssue{
				Column:   sp.Name,
				Kind:     "mostly_missing",
				Detail:   fmt.Sprintf("%.0f%% of values missing", pct),
				Severity: "warn",
			})
		}
		if sp.DistinctCount == 1 && sp.MissingCount == 0 && sp.RowCount > 1 {
			report.Issues = append(report.Issues, QualityIssue{
				Column:   sp.Name,
				Kind:     "constant_column",
				Detail:   "every row has the same value",
				Severity: "warn",
			})
		}
		if sp.StatsAnomaly {
			report.Issues = append(report.Issues, QualityIssue{
				Column:   sp.Name,
				Kind:     "stats_anomaly",
				Detail:   "profile statistics were inconsistent and had to be clamped",
				Severity: "error",
			})
		}
	}
	return report, nil
}
