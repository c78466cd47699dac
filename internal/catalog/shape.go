package catalog

import (
	"context"

	"github.com/tablewright/tablewright/internal/inference"
)

// AnalyzeShape classifies the table's layout and recommends a reshape.
// Columns participating in stored relation edges count as identifiers.
func (c *Catalog) AnalyzeShape(ctx context.Context, id int64) (*inference.ShapeAnalysis, error) {
	return c.AnalyzeShapeWith(ctx, id, inference.DefaultThresholds())
}

// AnalyzeShapeWith is AnalyzeShape with caller-supplied thresholds.
func (c *Catalog) AnalyzeShapeWith(ctx context.Context, id int64, th inference.Thresholds) (*inference.ShapeAnalysis, error) {
	t, err := c.GetTable(ctx, id)
	if err != nil {
		return nil, err
	}
	profiles, err := c.GetProfiles(ctx, id)
	if err != nil {
		return nil, err
	}
	related, err := c.relatedColumns(ctx, id)
	if err != nil {
		return nil, err
	}

	cols := make([]inference.Column, len(profiles))
	iprofiles := make([]inference.ColumnProfile, len(profiles))
	for i, sp := range profiles {
		cols[i] = inference.Column{
			Name:          sp.Name,
			Type:          sp.Type,
			RowCount:      sp.RowCount,
			DistinctCount: sp.DistinctCount,
			MissingCount:  sp.MissingCount,
		}
		iprofiles[i] = sp.columnProfile()
	}

	// Keep column order for determinism of the suggestion lists.
	var fkCols []string
	for _, col := range t.Columns {
		if related[col.Name] {
			fkCols = append(fkCols, col.Name)
		}
	}

	analysis := inference.ClassifyShapeWith(th, cols, iprofiles, fkCols)
	return &analysis, nil
}
