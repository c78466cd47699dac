package catalog

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/tablewright/tablewright/internal/inference"
)

// Relation is a stored cross-table reference. Inferred edges come from
// the relation inferencer; declared ones are created by the user and
// survive re-inference.
type Relation struct {
	ID          int64                 `json:"id"`
	FromTableID int64                 `json:"fromTableId"`
	FromField   string                `json:"fromField"`
	ToTableID   int64                 `json:"toTableId"`
	ToField     string                `json:"toField"`
	Cardinality inference.Cardinality `json:"cardinality"`
	Weak        bool                  `json:"weak"`
	Inferred    bool                  `json:"inferred"`
}

// InferRelations profiles every table, runs the relation inferencer
// across all of them, and replaces the stored inferred edges with the
// result. User-declared edges are left untouched.
func (c *Catalog) InferRelations(ctx context.Context) ([]Relation, error) {
	tables, err := c.ListTables(ctx)
	if err != nil {
		return nil, err
	}

	tps := make([]inference.TableProfile, 0, len(tables))
	for i := range tables {
		profiles, err := c.GetProfiles(ctx, tables[i].ID)
		if err != nil {
			return nil, err
		}
		tps = append(tps, toTableProfile(&tables[i], profiles))
	}

	edges := inference.InferRelations(tps)

	if _, err := c.db.ExecContext(ctx, `DELETE FROM relation_edges WHERE inferred = 1`); err != nil {
		return nil, err
	}

	now := time.Now().UTC().Format(time.RFC3339)
	for _, e := range edges {
		fromID, err := strconv.ParseInt(e.FromTableID, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("bad table id %q: %w", e.FromTableID, err)
		}
		toID, err := strconv.ParseInt(e.ToTableID, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("bad table id %q: %w", e.ToTableID, err)
		}
		// A declared edge on the same pair wins over the inferred one.
		if _, err := c.db.ExecContext(ctx,
			`INSERT OR IGNORE INTO relation_edges
			   (from_table_id, from_field, to_table_id, to_field, cardinality, weak, inferred, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, 1, ?)`,
			fromID, e.FromField, toID, e.ToField, string(e.Cardinality), boolInt(e.Weak), now); err != nil {
			return nil, fmt.Errorf("storing relation edge: %w", err)
		}
	}

	c.log.Info("inferred relations", "tables", len(tables), "edges", len(edges))
	return c.ListRelations(ctx)
}

// AddRelation records a user-declared relation edge. Declared edges may
// use any cardinality, including 1:m.
func (c *Catalog) AddRelation(ctx context.Context, r Relation) (*Relation, error) {
	switch r.Cardinality {
	case inference.OneToOne, inference.OneToMany, inference.ManyToOne:
	default:
		return nil, fmt.Errorf("invalid cardinality %q", r.Cardinality)
	}
	for _, ref := range []struct {
		id    int64
		field string
	}{{r.FromTableID, r.FromField}, {r.ToTableID, r.ToField}} {
		t, err := c.GetTable(ctx, ref.id)
		if err != nil {
			return nil, err
		}
		if !hasColumn(t, ref.field) {
			return nil, fmt.Errorf("table %s has no column %q", t.Name, ref.field)
		}
	}

	now := time.Now().UTC().Format(time.RFC3339)
	res, err := c.db.ExecContext(ctx,
		`INSERT INTO relation_edges
		   (from_table_id, from_field, to_table_id, to_field, cardinality, weak, inferred, created_at)
		 VALUES (?, ?, ?, ?, ?, 0, 0, ?)
		 ON CONFLICT (from_table_id, from_field, to_table_id, to_field)
		 DO UPDATE SET cardinality = excluded.cardinality, weak = 0, inferred = 0`,
		r.FromTableID, r.FromField, r.ToTableID, r.ToField, string(r.Cardinality), now)
	if err != nil {
		return nil, fmt.Errorf("storing relation: %w", err)
	}
	id, _ := res.LastInsertId()
	r.ID = id
	r.Inferred = false
	r.Weak = false
	return &r, nil
}

// DeleteRelation removes a relation edge by id.
func (c *Catalog) DeleteRelation(ctx context.Context, id int64) error {
	res, err := c.db.ExecContext(ctx, `DELETE FROM relation_edges WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errors.New("relation not found")
	}
	return nil
}

// ListRelations returns all stored relation edges, declared and
// inferred, in insertion order.
func (c *Catalog) ListRelations(ctx context.Context) ([]Relation, error) {
	rows, err := c.db.QueryContext(ctx,
		`SELECT id, from_table_id, from_field, to_table_id, to_field, cardinality, weak, inferred
		 FROM relation_edges ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("listing relations: %w", err)
	}
	defer rows.Close()

	var out []Relation
	for rows.Next() {
		var r Relation
		var card string
		var weak, inferred int
		if err := rows.Scan(&r.ID, &r.FromTableID, &r.FromField, &r.ToTableID, &r.ToField, &card, &weak, &inferred); err != nil {
			return nil, err
		}
		r.Cardinality = inference.Cardinality(card)
		r.Weak = weak == 1
		r.Inferred = inferred == 1
		out = append(out, r)
	}
	return out, rows.Err()
}

// relatedColumns returns the set of this table's columns that appear on
// either end of a stored relation edge. Shape classification treats
// those as identifiers regardless of type.
func (c *Catalog) relatedColumns(ctx context.Context, tableID int64) (map[string]bool, error) {
	rows, err := c.db.QueryContext(ctx,
		`SELECT from_table_id, from_field, to_table_id, to_field FROM relation_edges
		 WHERE from_table_id = ? OR to_table_id = ?`, tableID, tableID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]bool)
	for rows.Next() {
		var fromID, toID int64
		var fromField, toField string
		if err := rows.Scan(&fromID, &fromField, &toID, &toField); err != nil {
			return nil, err
		}
		if fromID == tableID {
			out[fromField] = true
		}
		if toID == tableID {
			out[toField] = true
		}
	}
	return out, rows.Err()
}

func hasColumn(t *Table, name string) bool {
	for _, col := range t.Columns {
		if col.Name == name {
			return true
		}
	}
	return false
}
