package inference

import (
	"reflect"
	"testing"

	"github.com/tablewright/tablewright/internal/fieldtype"
)

func profiled(t *testing.T, id string, cols []Column) TableProfile {
	t.Helper()
	profiles, err := Profile(cols)
	if err != nil {
		t.Fatalf("Profile(%s): %v", id, err)
	}
	return TableProfile{ID: id, Columns: profiles}
}

func TestInferRelationsForeignKey(t *testing.T) {
	orders := profiled(t, "orders", []Column{
		{Name: "order_id", Type: fieldtype.Integer, RowCount: 200, DistinctCount: 200, MinInt: i64(1), MaxInt: i64(200)},
		{Name: "customer_id", Type: fieldtype.Integer, RowCount: 200, DistinctCount: 40},
		{Name: "amount", Type: fieldtype.Float, RowCount: 200, DistinctCount: 180},
	})
	customers := profiled(t, "customers", []Column{
		{Name: "customer_id", Type: fieldtype.Integer, RowCount: 40, DistinctCount: 40, MinInt: i64(1), MaxInt: i64(40)},
		{Name: "name", Type: fieldtype.Text, RowCount: 40, DistinctCount: 39},
	})

	edges := InferRelations([]TableProfile{orders, customers})
	if len(edges) != 1 {
		t.Fatalf("want exactly 1 edge, got %d: %+v", len(edges), edges)
	}

	e := edges[0]
	if e.FromTableID != "orders" || e.ToTableID != "customers" {
		t.Errorf("edge must point from the referencing to the referenced table: %+v", e)
	}
	if e.FromField != "customer_id" || e.ToField != "customer_id" {
		t.Errorf("unexpected fields: %+v", e)
	}
	if e.Cardinality != ManyToOne {
		t.Errorf("one unique side: cardinality = %q, want %q", e.Cardinality, ManyToOne)
	}
	if e.Weak {
		t.Error("a key-backed edge must not be marked weak")
	}
}

func TestInferRelationsOneToOne(t *testing.T) {
	users := profiled(t, "users", []Column{
		{Name: "user_id", Type: fieldtype.Integer, RowCount: 10, DistinctCount: 10, MinInt: i64(1), MaxInt: i64(10)},
	})
	profilesTbl := profiled(t, "profiles", []Column{
		{Name: "user_id", Type: fieldtype.Integer, RowCount: 10, DistinctCount: 10, MinInt: i64(3), MaxInt: i64(30)},
	})

	edges := InferRelations([]TableProfile{profilesTbl, users})
	if len(edges) != 1 {
		t.Fatalf("want 1 edge, got %d", len(edges))
	}
	e := edges[0]
	if e.Cardinality != OneToOne {
		t.Errorf("both sides unique: cardinality = %q, want %q", e.Cardinality, OneToOne)
	}
	// users.user_id is identity-like, so the edge orients toward it.
	if e.ToTableID != "users" || e.FromTableID != "profiles" {
		t.Errorf("1:1 edge should orient toward the stronger key side: %+v", e)
	}
}

func TestInferRelationsWeakFallback(t *testing.T) {
	a := profiled(t, "visits", []Column{
		{Name: "region", Type: fieldtype.Text, RowCount: 50, DistinctCount: 5},
	})
	b := profiled(t, "sales", []Column{
		{Name: "region", Type: fieldtype.Text, RowCount: 80, DistinctCount: 5},
	})

	edges := InferRelations([]TableProfile{a, b})
	if len(edges) != 1 {
		t.Fatalf("want 1 edge, got %d", len(edges))
	}
	e := edges[0]
	if !e.Weak {
		t.Error("neither side unique: edge must be marked weak")
	}
	if e.Cardinality != ManyToOne {
		t.Errorf("weak fallback cardinality = %q, want %q", e.Cardinality, ManyToOne)
	}
	if e.FromTableID != "visits" || e.ToTableID != "sales" {
		t.Errorf("weak fallback keeps encounter order: %+v", e)
	}
}

func TestInferRelationsMultipleSharedColumns(t *testing.T) {
	a := profiled(t, "shipments", []Column{
		{Name: "order_id", Type: fieldtype.Integer, RowCount: 30, DistinctCount: 25},
		{Name: "warehouse_id", Type: fieldtype.Integer, RowCount: 30, DistinctCount: 4},
	})
	b := profiled(t, "orders", []Column{
		{Name: "order_id", Type: fieldtype.Integer, RowCount: 25, DistinctCount: 25, MinInt: i64(1), MaxInt: i64(25)},
		{Name: "warehouse_id", Type: fieldtype.Integer, RowCount: 25, DistinctCount: 4},
	})

	edges := InferRelations([]TableProfile{a, b})
	if len(edges) != 2 {
		t.Fatalf("two shared column names must yield two edges, got %d", len(edges))
	}
}

func TestInferRelationsTargetUniqueness(t *testing.T) {
	tables := []TableProfile{
		profiled(t, "t1", []Column{
			{Name: "k", Type: fieldtype.Integer, RowCount: 9, DistinctCount: 9, MinInt: i64(1), MaxInt: i64(9)},
			{Name: "tag", Type: fieldtype.Text, RowCount: 9, DistinctCount: 3},
		}),
		profiled(t, "t2", []Column{
			{Name: "k", Type: fieldtype.Integer, RowCount: 20, DistinctCount: 9},
			{Name: "tag", Type: fieldtype.Text, RowCount: 20, DistinctCount: 3},
		}),
	}

	byField := make(map[[2]string]ColumnProfile)
	for _, tb := range tables {
		for _, p := range tb.Columns {
			byField[[2]string{tb.ID, p.Name}] = p
		}
	}

	for _, e := range InferRelations(tables) {
		target := byField[[2]string{e.ToTableID, e.ToField}]
		if !e.Weak && !target.IsStrictUnique {
			t.Errorf("non-weak edge targets a non-unique column: %+v", e)
		}
		if e.Weak && (target.IsStrictUnique || byField[[2]string{e.FromTableID, e.FromField}].IsStrictUnique) {
			t.Errorf("weak edge despite a unique side: %+v", e)
		}
	}
}

func TestInferRelationsDeterministic(t *testing.T) {
	tables := []TableProfile{
		profiled(t, "a", []Column{
			{Name: "x", Type: fieldtype.Integer, RowCount: 5, DistinctCount: 5, MinInt: i64(1), MaxInt: i64(5)},
			{Name: "y", Type: fieldtype.Text, RowCount: 5, DistinctCount: 2},
		}),
		profiled(t, "b", []Column{
			{Name: "y", Type: fieldtype.Text, RowCount: 7, DistinctCount: 2},
			{Name: "x", Type: fieldtype.Integer, RowCount: 7, DistinctCount: 5},
		}),
		profiled(t, "c", []Column{
			{Name: "x", Type: fieldtype.Integer, RowCount: 3, DistinctCount: 3, MinInt: i64(1), MaxInt: i64(3)},
		}),
	}

	first := InferRelations(tables)
	for i := 0; i < 10; i++ {
		if again := InferRelations(tables); !reflect.DeepEqual(first, again) {
			t.Fatalf("run %d differed:\n%+v\n%+v", i, first, again)
		}
	}
}

func TestInferRelationsEmptyInput(t *testing.T) {
	if edges := InferRelations(nil); len(edges) != 0 {
		t.Errorf("no tables, no edges: %+v", edges)
	}
	single := []TableProfile{{ID: "only", Columns: []ColumnProfile{{Name: "id"}}}}
	if edges := InferRelations(single); len(edges) != 0 {
		t.Errorf("a single table has no cross-table relations: %+v", edges)
	}
}
