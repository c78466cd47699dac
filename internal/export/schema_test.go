package export

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/tablewright/tablewright/internal/catalog"
	"github.com/tablewright/tablewright/internal/fieldtype"
)

func TestWriteSchema(t *testing.T) {
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cat, err := catalog.Open(ctx, filepath.Join(t.TempDir(), "catalog.db"), logger)
	if err != nil {
		t.Fatalf("opening catalog: %v", err)
	}
	defer cat.Close()

	customers, err := cat.ImportTable(ctx, "customers", "csv",
		[]catalog.Column{
			{Name: "customer_id", Type: fieldtype.Integer},
			{Name: "name", Type: fieldtype.Text},
		},
		[][]any{{int64(1), "Ada"}, {int64(2), "Grace"}})
	if err != nil {
		t.Fatalf("import customers: %v", err)
	}
	orders, err := cat.ImportTable(ctx, "orders", "csv",
		[]catalog.Column{
			{Name: "id", Type: fieldtype.Integer},
			{Name: "customer_id", Type: fieldtype.Integer},
		},
		[][]any{{int64(1), int64(1)}, {int64(2), int64(1)}})
	if err != nil {
		t.Fatalf("import orders: %v", err)
	}
	if _, err := cat.AddRelation(ctx, catalog.Relation{
		FromTableID: orders.ID,
		FromField:   "customer_id",
		ToTableID:   customers.ID,
		ToField:     "customer_id",
		Cardinality: "m:1",
	}); err != nil {
		t.Fatalf("AddRelation: %v", err)
	}

	dir := t.TempDir()
	path, err := WriteSchema(ctx, cat, dir)
	if err != nil {
		t.Fatalf("WriteSchema: %v", err)
	}
	if filepath.Base(path) != "schema.yaml" {
		t.Errorf("unexpected snapshot path %q", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading snapshot: %v", err)
	}
	var snap SchemaSnapshot
	if err := yaml.Unmarshal(data, &snap); err != nil {
		t.Fatalf("parsing snapshot: %v", err)
	}
	if len(snap.Tables) != 2 {
		t.Fatalf("expected 2 tables, got %d", len(snap.Tables))
	}
	if len(snap.Relations) != 1 {
		t.Fatalf("expected 1 relation, got %d", len(snap.Relations))
	}
	rel := snap.Relations[0]
	if rel.From != "orders.customer_id" || rel.To != "customers.customer_id" {
		t.Errorf("unexpected relation endpoints: %+v", rel)
	}
	if rel.Cardinality != "m:1" || rel.Inferred {
		t.Errorf("declared relation mangled: %+v", rel)
	}
}
