package inference

import (
	"fmt"
	"sort"
	"strings"

	"github.com/tablewright/tablewright/internal/fieldtype"
)

// Profile derives constraint flags for every column of one table,
// order-preserving. It is a pure function of the input statistics: no I/O,
// input untouched, identical input yields identical output.
//
// Inconsistent statistics (distinct count above row count, negative
// counts) are normalized defensively and flagged via StatsAnomaly rather
// than failing; a missing column name or semantic type is a broken caller
// contract and returns an error.
func Profile(table []Column) ([]ColumnProfile, error) {
	profiles := make([]ColumnProfile, len(table))

	for i, col := range table {
		if col.Name == "" {
			return nil, fmt.Errorf("column %d: empty name", i)
		}
		if !col.Type.Valid() {
			return nil, fmt.Errorf("column %q: unknown semantic type %q", col.Name, col.Type)
		}

		rowCount := col.RowCount
		missing := col.MissingCount
		distinct := col.DistinctCount
		anomaly := false

		if rowCount < 0 || missing < 0 || distinct < 0 {
			anomaly = true
			rowCount = max64(rowCount, 0)
			missing = max64(missing, 0)
			distinct = max64(distinct, 0)
		}
		if missing > rowCount {
			anomaly = true
			missing = rowCount
		}
		if distinct > rowCount {
			anomaly = true
			distinct = rowCount
		}

		p := ColumnProfile{
			Name:         col.Name,
			Type:         col.Type,
			IsNullable:   missing > 0,
			StatsAnomaly: anomaly,
		}

		p.IsStrictUnique = rowCount > 0 && missing == 0 && distinct == rowCount
		p.IsIdentityLike = isIdentityLike(col, p.IsStrictUnique, rowCount)

		profiles[i] = p
	}

	markPrimaryKeyCandidate(profiles)
	return profiles, nil
}

// isIdentityLike reports whether a strict-unique integer column forms a
// dense, gap-free 0- or 1-based sequence.
func isIdentityLike(col Column, strictUnique bool, rowCount int64) bool {
	if !strictUnique || col.Type != fieldtype.Integer {
		return false
	}
	if col.MinInt == nil || col.MaxInt == nil {
		return false
	}
	lo, hi := *col.MinInt, *col.MaxInt
	if lo != 0 && lo != 1 {
		return false
	}
	return hi-lo+1 == rowCount
}

// markPrimaryKeyCandidate flags the single best strict-unique column, if
// any. A column named "id" outranks one ending in "_id", which outranks
// any other strict-unique column; ties break lexicographically.
func markPrimaryKeyCandidate(profiles []ColumnProfile) {
	type ranked struct {
		idx  int
		rank int
		name string
	}
	var candidates []ranked
	for i, p := range profiles {
		if !p.IsStrictUnique {
			continue
		}
		candidates = append(candidates, ranked{idx: i, rank: pkNameRank(p.Name), name: strings.ToLower(p.Name)})
	}
	if len(candidates) == 0 {
		return
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].rank != candidates[j].rank {
			return candidates[i].rank < candidates[j].rank
		}
		return candidates[i].name < candidates[j].name
	})
	profiles[candidates[0].idx].IsPrimaryKeyCandidate = true
}

func pkNameRank(name string) int {
	n := strings.ToLower(name)
	switch {
	case n == "id":
		return 0
	case strings.HasSuffix(n, "_id"):
		return 1
	default:
		return 2
	}
}

func max64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}
