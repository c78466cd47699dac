package catalog

import (
	"context"
	"fmt"
	"strconv"

	"github.com/tablewright/tablewright/internal/fieldtype"
	"github.com/tablewright/tablewright/internal/inference"
)

// StoredProfile is a persisted column profile together with the raw
// statistics it was derived from.
type StoredProfile struct {
	TableID       int64          `json:"tableId"`
	Version       int            `json:"version"`
	Name          string         `json:"name"`
	Type          fieldtype.Type `json:"type"`
	RowCount      int64          `json:"rowCount"`
	DistinctCount int64          `json:"distinctCount"`
	MissingCount  int64          `json:"missingCount"`

	IsNullable            bool `json:"isNullable"`
	IsStrictUnique        bool `json:"isStrictUnique"`
	IsIdentityLike        bool `json:"isIdentityLike"`
	IsPrimaryKeyCandidate bool `json:"isPrimaryKeyCandidate"`
	StatsAnomaly          bool `json:"statsAnomaly"`
}

func (sp StoredProfile) columnProfile() inference.ColumnProfile {
	return inference.ColumnProfile{
		Name:                  sp.Name,
		Type:                  sp.Type,
		IsNullable:            sp.IsNullable,
		IsStrictUnique:        sp.IsStrictUnique,
		IsIdentityLike:        sp.IsIdentityLike,
		IsPrimaryKeyCandidate: sp.IsPrimaryKeyCandidate,
		StatsAnomaly:          sp.StatsAnomaly,
	}
}

// ProfileTable computes column statistics for the table's current
// version, runs the profiler over them, and persists the result. It
// replaces any previous profile for the same version.
func (c *Catalog) ProfileTable(ctx context.Context, id int64) ([]StoredProfile, error) {
	t, err := c.GetTable(ctx, id)
	if err != nil {
		return nil, err
	}

	stats, err := c.columnStats(ctx, t)
	if err != nil {
		return nil, err
	}
	profiles, err := inference.Profile(stats)
	if err != nil {
		return nil, fmt.Errorf("profiling table %s: %w", t.Name, err)
	}

	if _, err := c.db.ExecContext(ctx,
		`DELETE FROM column_profiles WHERE table_id = ? AND version = ?`, t.ID, t.CurrentVersion); err != nil {
		return nil, err
	}

	out := make([]StoredProfile, 0, len(profiles))
	for i, p := range profiles {
		sp := StoredProfile{
			TableID:               t.ID,
			Version:               t.CurrentVersion,
			Name:                  p.Name,
			Type:                  p.Type,
			RowCount:              stats[i].RowCount,
			DistinctCount:         stats[i].DistinctCount,
			MissingCount:          stats[i].MissingCount,
			IsNullable:            p.IsNullable,
			IsStrictUnique:        p.IsStrictUnique,
			IsIdentityLike:        p.IsIdentityLike,
			IsPrimaryKeyCandidate: p.IsPrimaryKeyCandidate,
			StatsAnomaly:          p.StatsAnomaly,
		}
		if _, err := c.db.ExecContext(ctx,
			`INSERT INTO column_profiles
			   (table_id, version, name, type, row_count, distinct_count, missing_count,
			    is_nullable, is_strict_unique, is_identity_like, is_pk_candidate, stats_anomaly)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			sp.TableID, sp.Version, sp.Name, string(sp.Type),
			sp.RowCount, sp.DistinctCount, sp.MissingCount,
			boolInt(p.IsNullable), boolInt(p.IsStrictUnique), boolInt(p.IsIdentityLike),
			boolInt(p.IsPrimaryKeyCandidate), boolInt(p.StatsAnomaly)); err != nil {
			return nil, fmt.Errorf("storing profile for %s.%s: %w", t.Name, p.Name, err)
		}
		out = append(out, sp)
	}

	c.log.Info("profiled table", "table", t.Name, "columns", len(out))
	return out, nil
}

// GetProfiles returns stored profiles for the table's current version,
// computing them first if none exist yet.
func (c *Catalog) GetProfiles(ctx context.Context, id int64) ([]StoredProfile, error) {
	t, err := c.GetTable(ctx, id)
	if err != nil {
		return nil, err
	}

	profiles, err := c.loadProfiles(ctx, t)
	if err != nil {
		return nil, err
	}
	if len(profiles) == 0 {
		return c.ProfileTable(ctx, id)
	}
	return profiles, nil
}

func (c *Catalog) loadProfiles(ctx context.Context, t *Table) ([]StoredProfile, error) {
	rows, err := c.db.QueryContext(ctx,
		`SELECT name, type, row_count, distinct_count, missing_count,
		        is_nullable, is_strict_unique, is_identity_like, is_pk_candidate, stats_anomaly
		 FROM column_profiles WHERE table_id = ? AND version = ?`,
		t.ID, t.CurrentVersion)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	byName := make(map[string]StoredProfile)
	for rows.Next() {
		sp := StoredProfile{TableID: t.ID, Version: t.CurrentVersion}
		var typ string
		var nullable, unique, identity, pk, anomaly int
		if err := rows.Scan(&sp.Name, &typ, &sp.RowCount, &sp.DistinctCount, &sp.MissingCount,
			&nullable, &unique, &identity, &pk, &anomaly); err != nil {
			return nil, err
		}
		sp.Type = fieldtype.Type(typ)
		sp.IsNullable = nullable == 1
		sp.IsStrictUnique = unique == 1
		sp.IsIdentityLike = identity == 1
		sp.IsPrimaryKeyCandidate = pk == 1
		sp.StatsAnomaly = anomaly == 1
		byName[sp.Name] = sp
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(byName) == 0 {
		return nil, nil
	}

	// Return in the table's column order, not storage order.
	out := make([]StoredProfile, 0, len(byName))
	for _, col := range t.Columns {
		if sp, ok := byName[col.Name]; ok {
			out = append(out, sp)
		}
	}
	if len(out) != len(t.Columns) {
		// Stale profile from an earlier version shape; recompute.
		return nil, nil
	}
	return out, nil
}

func toTableProfile(t *Table, profiles []StoredProfile) inference.TableProfile {
	tp := inference.TableProfile{
		ID:      strconv.FormatInt(t.ID, 10),
		Columns: make([]inference.ColumnProfile, len(profiles)),
	}
	for i, sp := range profiles {
		tp.Columns[i] = sp.columnProfile()
	}
	return tp
}
