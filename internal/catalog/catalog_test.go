package catalog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"

	"github.com/tablewright/tablewright/internal/fieldtype"
	"github.com/tablewright/tablewright/internal/inference"
)

func newTestCatalog(t *testing.T) *Catalog {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	c, err := Open(context.Background(), filepath.Join(t.TempDir(), "catalog.db"), logger)
	if err != nil {
		t.Fatalf("opening catalog: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func importCustomers(t *testing.T, c *Catalog) *Table {
	t.Helper()
	tbl, err := c.ImportTable(context.Background(), "customers", "csv",
		[]Column{
			{Name: "id", Type: fieldtype.Integer},
			{Name: "name", Type: fieldtype.Text},
			{Name: "city", Type: fieldtype.Text},
		},
		[][]any{
			{int64(1), "Ada", "London"},
			{int64(2), "Grace", "New York"},
			{int64(3), "Edsger", ""},
		})
	if err != nil {
		t.Fatalf("importing customers: %v", err)
	}
	return tbl
}

func importOrders(t *testing.T, c *Catalog) *Table {
	t.Helper()
	tbl, err := c.ImportTable(context.Background(), "orders", "csv",
		[]Column{
			{Name: "id", Type: fieldtype.Integer},
			{Name: "customer_id", Type: fieldtype.Integer},
			{Name: "total", Type: fieldtype.Float},
		},
		[][]any{
			{int64(1), int64(1), 9.5},
			{int64(2), int64(1), 12.0},
			{int64(3), int64(2), 3.25},
			{int64(4), int64(3), 40.0},
		})
	if err != nil {
		t.Fatalf("importing orders: %v", err)
	}
	return tbl
}

func TestImportAndGet(t *testing.T) {
	c := newTestCatalog(t)
	tbl := importCustomers(t, c)

	if tbl.RowCount != 3 {
		t.Errorf("expected 3 rows, got %d", tbl.RowCount)
	}
	if tbl.CurrentVersion != 1 {
		t.Errorf("expected version 1, got %d", tbl.CurrentVersion)
	}

	got, err := c.GetTableByName(context.Background(), "customers")
	if err != nil {
		t.Fatalf("GetTableByName: %v", err)
	}
	if got.ID != tbl.ID || len(got.Columns) != 3 {
		t.Errorf("unexpected table: %+v", got)
	}

	if _, err := c.GetTable(context.Background(), 999); !errors.Is(err, ErrTableNotFound) {
		t.Errorf("expected ErrTableNotFound, got %v", err)
	}
}

func TestImportRejectsBadColumns(t *testing.T) {
	c := newTestCatalog(t)
	ctx := context.Background()

	cases := []struct {
		name string
		cols []Column
	}{
		{"empty name", []Column{{Name: "", Type: fieldtype.Text}}},
		{"bad type", []Column{{Name: "x", Type: "decimalish"}}},
		{"duplicate", []Column{{Name: "x", Type: fieldtype.Text}, {Name: "x", Type: fieldtype.Integer}}},
	}
	for _, tc := range cases {
		if _, err := c.ImportTable(ctx, "t_"+tc.name, "csv", tc.cols, nil); err == nil {
			t.Errorf("%s: expected error", tc.name)
		}
	}
}

func TestRowsPaging(t *testing.T) {
	c := newTestCatalog(t)
	tbl := importOrders(t, c)

	cols, rows, err := c.Rows(context.Background(), tbl.ID, 1, 2)
	if err != nil {
		t.Fatalf("Rows: %v", err)
	}
	if len(cols) != 3 {
		t.Errorf("expected 3 columns, got %d", len(cols))
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[0][0].(int64) != 2 {
		t.Errorf("expected offset to skip first row, got id %v", rows[0][0])
	}
}

func TestProfileTable(t *testing.T) {
	c := newTestCatalog(t)
	tbl := importCustomers(t, c)

	profiles, err := c.ProfileTable(context.Background(), tbl.ID)
	if err != nil {
		t.Fatalf("ProfileTable: %v", err)
	}
	if len(profiles) != 3 {
		t.Fatalf("expected 3 profiles, got %d", len(profiles))
	}

	id := profiles[0]
	if !id.IsStrictUnique || !id.IsIdentityLike || !id.IsPrimaryKeyCandidate {
		t.Errorf("id column should be a dense unique key: %+v", id)
	}
	city := profiles[2]
	if !city.IsNullable {
		t.Error("city has a blank cell and should be nullable")
	}
	if city.MissingCount != 1 {
		t.Errorf("expected 1 missing city, got %d", city.MissingCount)
	}

	// Cached read returns the same result without recomputing.
	again, err := c.GetProfiles(context.Background(), tbl.ID)
	if err != nil {
		t.Fatalf("GetProfiles: %v", err)
	}
	if len(again) != 3 || again[0].Name != "id" {
		t.Errorf("unexpected cached profiles: %+v", again)
	}
}

func TestInferRelations(t *testing.T) {
	c := newTestCatalog(t)
	customers := importCustomers(t, c)
	orders := importOrders(t, c)

	// Rename so the shared column matches exactly.
	if _, err := c.Clean(context.Background(), CleanRequest{
		TableID: customers.ID, Op: CleanRename, Column: "id", Value: "customer_id",
	}); err != nil {
		t.Fatalf("rename: %v", err)
	}

	rels, err := c.InferRelations(context.Background())
	if err != nil {
		t.Fatalf("InferRelations: %v", err)
	}
	if len(rels) != 1 {
		t.Fatalf("expected 1 relation, got %d: %+v", len(rels), rels)
	}
	r := rels[0]
	if r.FromTableID != orders.ID || r.ToTableID != customers.ID {
		t.Errorf("edge should point orders -> customers: %+v", r)
	}
	if r.Cardinality != inference.ManyToOne || !r.Inferred || r.Weak {
		t.Errorf("unexpected edge classification: %+v", r)
	}

	// Re-running replaces rather than duplicates.
	rels, err = c.InferRelations(context.Background())
	if err != nil {
		t.Fatalf("re-infer: %v", err)
	}
	if len(rels) != 1 {
		t.Errorf("expected 1 relation after re-infer, got %d", len(rels))
	}
}

func TestDeclaredRelationSurvivesReinference(t *testing.T) {
	c := newTestCatalog(t)
	customers := importCustomers(t, c)
	orders := importOrders(t, c)

	declared, err := c.AddRelation(context.Background(), Relation{
		FromTableID: customers.ID, FromField: "id",
		ToTableID: orders.ID, ToField: "customer_id",
		Cardinality: inference.OneToMany,
	})
	if err != nil {
		t.Fatalf("AddRelation: %v", err)
	}
	if declared.Cardinality != inference.OneToMany {
		t.Errorf("declared cardinality changed: %+v", declared)
	}

	if _, err := c.InferRelations(context.Background()); err != nil {
		t.Fatalf("InferRelations: %v", err)
	}
	rels, err := c.ListRelations(context.Background())
	if err != nil {
		t.Fatalf("ListRelations: %v", err)
	}
	found := false
	for _, r := range rels {
		if !r.Inferred && r.Cardinality == inference.OneToMany {
			found = true
		}
	}
	if !found {
		t.Errorf("declared edge lost after re-inference: %+v", rels)
	}
}

func TestMeltAndUndo(t *testing.T) {
	c := newTestCatalog(t)
	ctx := context.Background()
	tbl, err := c.ImportTable(ctx, "revenue", "csv",
		[]Column{
			{Name: "region", Type: fieldtype.Text},
			{Name: "rev_jan", Type: fieldtype.Float},
			{Name: "rev_feb", Type: fieldtype.Float},
		},
		[][]any{
			{"north", 10.0, 20.0},
			{"south", 5.0, 7.5},
		})
	if err != nil {
		t.Fatalf("import: %v", err)
	}

	melted, err := c.Melt(ctx, MeltRequest{
		TableID: tbl.ID, IDVars: []string{"region"},
		ValueVars: []string{"rev_jan", "rev_feb"},
	})
	if err != nil {
		t.Fatalf("Melt: %v", err)
	}
	if melted.CurrentVersion != 2 {
		t.Errorf("expected version 2, got %d", melted.CurrentVersion)
	}
	if melted.RowCount != 4 {
		t.Errorf("expected 4 long rows, got %d", melted.RowCount)
	}
	if len(melted.Columns) != 3 || melted.Columns[1].Name != "variable" || melted.Columns[2].Name != "value" {
		t.Errorf("unexpected melted columns: %+v", melted.Columns)
	}

	restored, err := c.Undo(ctx, tbl.ID)
	if err != nil {
		t.Fatalf("Undo: %v", err)
	}
	if restored.CurrentVersion != 1 || restored.RowCount != 2 {
		t.Errorf("undo should restore the wide table: %+v", restored)
	}

	if _, err := c.Undo(ctx, tbl.ID); !errors.Is(err, ErrNoHistory) {
		t.Errorf("expected ErrNoHistory, got %v", err)
	}
}

func TestPivotRoundTrip(t *testing.T) {
	c := newTestCatalog(t)
	ctx := context.Background()
	tbl, err := c.ImportTable(ctx, "long_revenue", "csv",
		[]Column{
			{Name: "region", Type: fieldtype.Text},
			{Name: "month", Type: fieldtype.Text},
			{Name: "revenue", Type: fieldtype.Float},
		},
		[][]any{
			{"north", "jan", 10.0},
			{"north", "feb", 20.0},
			{"south", "jan", 5.0},
			{"south", "feb", 7.5},
		})
	if err != nil {
		t.Fatalf("import: %v", err)
	}

	wide, err := c.Pivot(ctx, PivotRequest{
		TableID: tbl.ID, IndexCols: []string{"region"},
		ColumnVar: "month", ValueVar: "revenue",
	})
	if err != nil {
		t.Fatalf("Pivot: %v", err)
	}
	if wide.RowCount != 2 {
		t.Errorf("expected 2 wide rows, got %d", wide.RowCount)
	}
	// Pivot columns come out sorted: feb before jan.
	if len(wide.Columns) != 3 || wide.Columns[1].Name != "feb" || wide.Columns[2].Name != "jan" {
		t.Errorf("unexpected pivot columns: %+v", wide.Columns)
	}
}

func TestCleanOperations(t *testing.T) {
	c := newTestCatalog(t)
	ctx := context.Background()
	tbl, err := c.ImportTable(ctx, "messy", "csv",
		[]Column{
			{Name: "code", Type: fieldtype.Text},
			{Name: "amount", Type: fieldtype.Text},
		},
		[][]any{
			{" a ", "1"},
			{" a ", "1"},
			{"b", ""},
		})
	if err != nil {
		t.Fatalf("import: %v", err)
	}

	pv, err := c.PreviewClean(ctx, CleanRequest{TableID: tbl.ID, Op: CleanDropMissing, Column: "amount"})
	if err != nil {
		t.Fatalf("PreviewClean: %v", err)
	}
	if pv.AffectedRows != 1 || pv.RowsAfter != 2 {
		t.Errorf("unexpected preview: %+v", pv)
	}

	after, err := c.Clean(ctx, CleanRequest{TableID: tbl.ID, Op: CleanFillMissing, Column: "amount", Value: "0"})
	if err != nil {
		t.Fatalf("fill_missing: %v", err)
	}
	if after.RowCount != 3 {
		t.Errorf("fill should keep all rows, got %d", after.RowCount)
	}

	after, err = c.Clean(ctx, CleanRequest{TableID: tbl.ID, Op: CleanTrim, Column: "code"})
	if err != nil {
		t.Fatalf("trim: %v", err)
	}
	after, err = c.Clean(ctx, CleanRequest{TableID: tbl.ID, Op: CleanDeduplicate})
	if err != nil {
		t.Fatalf("deduplicate: %v", err)
	}
	if after.RowCount != 2 {
		t.Errorf("expected 2 rows after dedupe, got %d", after.RowCount)
	}

	after, err = c.Clean(ctx, CleanRequest{TableID: tbl.ID, Op: CleanCast, Column: "amount", Value: string(fieldtype.Integer)})
	if err != nil {
		t.Fatalf("cast: %v", err)
	}
	if after.Columns[1].Type != fieldtype.Integer {
		t.Errorf("cast should retype the column: %+v", after.Columns[1])
	}

	history, err := c.History(ctx, tbl.ID)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(history) != 4 {
		t.Errorf("expected 4 logged operations, got %d", len(history))
	}
}

func TestCleanLowercase(t *testing.T) {
	c := newTestCatalog(t)
	ctx := context.Background()
	tbl, err := c.ImportTable(ctx, "mixed", "csv",
		[]Column{{Name: "city", Type: fieldtype.Text}},
		[][]any{{"Berlin"}, {"PARIS"}, {"oslo"}})
	if err != nil {
		t.Fatalf("import: %v", err)
	}

	pv, err := c.PreviewClean(ctx, CleanRequest{TableID: tbl.ID, Op: CleanLowercase, Column: "city"})
	if err != nil {
		t.Fatalf("PreviewClean: %v", err)
	}
	if pv.AffectedRows != 2 {
		t.Errorf("expected 2 affected rows, got %d", pv.AffectedRows)
	}

	after, err := c.Clean(ctx, CleanRequest{TableID: tbl.ID, Op: CleanLowercase, Column: "city"})
	if err != nil {
		t.Fatalf("lowercase: %v", err)
	}
	_, rows, err := c.Rows(ctx, after.ID, 0, 10)
	if err != nil {
		t.Fatalf("Rows: %v", err)
	}
	for _, row := range rows {
		got := fmt.Sprintf("%v", row[0])
		if got != strings.ToLower(got) {
			t.Errorf("value %q not lowercased", got)
		}
	}
}

func TestMerge(t *testing.T) {
	c := newTestCatalog(t)
	ctx := context.Background()
	customers := importCustomers(t, c)
	orders := importOrders(t, c)

	merged, err := c.Merge(ctx, MergeRequest{
		LeftID: orders.ID, RightID: customers.ID,
		LeftOn: "customer_id", RightOn: "id",
		How: "inner", Name: "orders_enriched",
	})
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if merged.RowCount != 4 {
		t.Errorf("expected 4 joined rows, got %d", merged.RowCount)
	}
	// orders(id, customer_id, total) + customers(name, city); the join
	// key and the colliding "id" are handled.
	if len(merged.Columns) != 5 {
		t.Errorf("unexpected merged columns: %+v", merged.Columns)
	}

	lineage, err := c.Lineage(ctx, merged.ID)
	if err != nil {
		t.Fatalf("Lineage: %v", err)
	}
	if len(lineage) != 2 {
		t.Errorf("expected 2 lineage edges, got %d", len(lineage))
	}
}

func TestSummarizeAndQuality(t *testing.T) {
	c := newTestCatalog(t)
	ctx := context.Background()
	orders := importOrders(t, c)

	sum, err := c.Summarize(ctx, orders.ID)
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if sum.RowCount != 4 || sum.ColumnCount != 3 {
		t.Errorf("unexpected summary header: %+v", sum)
	}
	total := sum.Columns[2]
	if total.Min == nil || *total.Min != 3.25 {
		t.Errorf("unexpected min: %+v", total.Min)
	}
	if total.Max == nil || *total.Max != 40.0 {
		t.Errorf("unexpected max: %+v", total.Max)
	}
	if total.Median == nil || *total.Median != 9.5 {
		t.Errorf("unexpected lower median: %+v", total.Median)
	}

	customers := importCustomers(t, c)
	csum, err := c.Summarize(ctx, customers.ID)
	if err != nil {
		t.Fatalf("Summarize customers: %v", err)
	}
	city := csum.Columns[2]
	// One of three cities is blank; MissingPct is on a 0-100 scale.
	if city.MissingCount != 1 || city.MissingPct < 33.3 || city.MissingPct > 33.4 {
		t.Errorf("unexpected city missing stats: count=%d pct=%v", city.MissingCount, city.MissingPct)
	}

	q, err := c.Quality(ctx, orders.ID)
	if err != nil {
		t.Fatalf("Quality: %v", err)
	}
	if q.DuplicateRows != 0 {
		t.Errorf("orders has no duplicates: %+v", q)
	}
	if len(q.Issues) != 0 {
		t.Errorf("expected clean report, got %+v", q.Issues)
	}
}

func TestAnalyzeShape(t *testing.T) {
	c := newTestCatalog(t)
	ctx := context.Background()
	tbl, err := c.ImportTable(ctx, "metrics", "csv",
		[]Column{
			{Name: "region", Type: fieldtype.Text},
			{Name: "rev_jan", Type: fieldtype.Float},
			{Name: "rev_feb", Type: fieldtype.Float},
			{Name: "rev_mar", Type: fieldtype.Float},
			{Name: "rev_apr", Type: fieldtype.Float},
		},
		[][]any{
			{"north", 1.0, 2.0, 3.0, 4.0},
			{"south", 5.0, 6.0, 7.0, 8.0},
		})
	if err != nil {
		t.Fatalf("import: %v", err)
	}

	analysis, err := c.AnalyzeShape(ctx, tbl.ID)
	if err != nil {
		t.Fatalf("AnalyzeShape: %v", err)
	}
	if analysis.Shape != inference.ShapeWide {
		t.Errorf("expected wide shape, got %s (%s)", analysis.Shape, analysis.Reason)
	}
	if analysis.RecommendedDirection != inference.WideToLong {
		t.Errorf("unexpected direction %s", analysis.RecommendedDirection)
	}
	if len(analysis.SuggestedValueVars) != 4 {
		t.Errorf("expected 4 value vars, got %v", analysis.SuggestedValueVars)
	}
}

func TestDeleteTable(t *testing.T) {
	c := newTestCatalog(t)
	ctx := context.Background()
	tbl := importCustomers(t, c)

	if err := c.DeleteTable(ctx, tbl.ID); err != nil {
		t.Fatalf("DeleteTable: %v", err)
	}
	if _, err := c.GetTable(ctx, tbl.ID); !errors.Is(err, ErrTableNotFound) {
		t.Errorf("expected ErrTableNotFound, got %v", err)
	}
	tables, err := c.ListTables(ctx)
	if err != nil {
		t.Fatalf("ListTables: %v", err)
	}
	if len(tables) != 0 {
		t.Errorf("expected empty catalog, got %d tables", len(tables))
	}
}
