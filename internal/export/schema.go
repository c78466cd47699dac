package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/tablewright/tablewright/internal/catalog"
)

// SchemaSnapshot is the serialized view of the catalog: every table's
// current columns plus all relation edges, suitable for review or
// check-in alongside the exported data.
type SchemaSnapshot struct {
	Tables    []SchemaTable    `yaml:"tables"`
	Relations []SchemaRelation `yaml:"relations,omitempty"`
}

type SchemaTable struct {
	Name     string         `yaml:"name"`
	Source   string         `yaml:"source"`
	Version  int            `yaml:"version"`
	RowCount int64          `yaml:"rows"`
	Columns  []SchemaColumn `yaml:"columns"`
}

type SchemaColumn struct {
	Name string `yaml:"name"`
	Type string `yaml:"type"`
}

type SchemaRelation struct {
	From        string `yaml:"from"` // table.column
	To          string `yaml:"to"`
	Cardinality string `yaml:"cardinality"`
	Weak        bool   `yaml:"weak,omitempty"`
	Inferred    bool   `yaml:"inferred,omitempty"`
}

// WriteSchema writes a YAML snapshot of the whole catalog to
// <dir>/schema.yaml and returns the path.
func WriteSchema(ctx context.Context, cat *catalog.Catalog, dir string) (string, error) {
	snap, err := BuildSchema(ctx, cat)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating export directory: %w", err)
	}
	path := filepath.Join(dir, "schema.yaml")

	data, err := yaml.Marshal(snap)
	if err != nil {
		return "", fmt.Errorf("marshaling schema: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("writing %s: %w", path, err)
	}
	return path, nil
}

// BuildSchema assembles the snapshot without writing it.
func BuildSchema(ctx context.Context, cat *catalog.Catalog) (*SchemaSnapshot, error) {
	tables, err := cat.ListTables(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing tables: %w", err)
	}

	names := make(map[int64]string, len(tables))
	snap := &SchemaSnapshot{}
	for _, t := range tables {
		names[t.ID] = t.Name
		st := SchemaTable{
			Name:     t.Name,
			Source:   t.Source,
			Version:  t.CurrentVersion,
			RowCount: t.RowCount,
		}
		for _, col := range t.Columns {
			st.Columns = append(st.Columns, SchemaColumn{Name: col.Name, Type: string(col.Type)})
		}
		snap.Tables = append(snap.Tables, st)
	}

	rels, err := cat.ListRelations(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing relations: %w", err)
	}
	for _, r := range rels {
		snap.Relations = append(snap.Relations, SchemaRelation{
			From:        fmt.Sprintf("%s.%s", names[r.FromTableID], r.FromField),
			To:          fmt.Sprintf("%s.%s", names[r.ToTableID], r.ToField),
			Cardinality: string(r.Cardinality),
			Weak:        r.Weak,
			Inferred:    r.Inferred,
		})
	}
	return snap, nil
}
