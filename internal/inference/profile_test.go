package inference

import (
	"reflect"
	"testing"

	"github.com/tablewright/tablewright/internal/fieldtype"
)

func i64(v int64) *int64 { return &v }

func TestProfileFlags(t *testing.T) {
	cols := []Column{
		{Name: "order_id", Type: fieldtype.Integer, RowCount: 100, DistinctCount: 100, MissingCount: 0, MinInt: i64(1), MaxInt: i64(100)},
		{Name: "customer_id", Type: fieldtype.Integer, RowCount: 100, DistinctCount: 40, MissingCount: 0, MinInt: i64(3), MaxInt: i64(900)},
		{Name: "note", Type: fieldtype.Text, RowCount: 100, DistinctCount: 37, MissingCount: 12},
	}

	profiles, err := Profile(cols)
	if err != nil {
		t.Fatalf("Profile: %v", err)
	}
	if len(profiles) != 3 {
		t.Fatalf("want 3 profiles, got %d", len(profiles))
	}

	oid := profiles[0]
	if !oid.IsStrictUnique || !oid.IsIdentityLike || !oid.IsPrimaryKeyCandidate {
		t.Errorf("order_id should be unique, identity-like, and the pk candidate: %+v", oid)
	}
	if oid.IsNullable {
		t.Error("order_id has no missing values")
	}

	cid := profiles[1]
	if cid.IsStrictUnique || cid.IsIdentityLike || cid.IsPrimaryKeyCandidate {
		t.Errorf("customer_id is not unique: %+v", cid)
	}

	note := profiles[2]
	if !note.IsNullable {
		t.Error("note has missing values and should be nullable")
	}
	if note.IsStrictUnique {
		t.Error("a column with missing values can never be strict-unique")
	}
}

func TestProfileIdempotent(t *testing.T) {
	cols := []Column{
		{Name: "id", Type: fieldtype.Integer, RowCount: 5, DistinctCount: 5, MinInt: i64(0), MaxInt: i64(4)},
		{Name: "label", Type: fieldtype.Text, RowCount: 5, DistinctCount: 3, MissingCount: 1},
	}
	a, err := Profile(cols)
	if err != nil {
		t.Fatalf("Profile: %v", err)
	}
	b, err := Profile(cols)
	if err != nil {
		t.Fatalf("Profile: %v", err)
	}
	if !reflect.DeepEqual(a, b) {
		t.Errorf("identical input produced different output:\n%+v\n%+v", a, b)
	}
}

func TestProfileEmptyTable(t *testing.T) {
	profiles, err := Profile([]Column{
		{Name: "id", Type: fieldtype.Integer},
		{Name: "name", Type: fieldtype.Text},
	})
	if err != nil {
		t.Fatalf("Profile: %v", err)
	}
	for _, p := range profiles {
		if p.IsNullable || p.IsStrictUnique || p.IsIdentityLike || p.IsPrimaryKeyCandidate {
			t.Errorf("zero-row column %q should have all flags false: %+v", p.Name, p)
		}
	}
}

func TestProfileNoColumns(t *testing.T) {
	profiles, err := Profile(nil)
	if err != nil {
		t.Fatalf("Profile: %v", err)
	}
	if len(profiles) != 0 {
		t.Errorf("want no profiles, got %d", len(profiles))
	}
}

func TestProfileClampsInconsistentStats(t *testing.T) {
	profiles, err := Profile([]Column{
		{Name: "v", Type: fieldtype.Text, RowCount: 10, DistinctCount: 25, MissingCount: 0},
	})
	if err != nil {
		t.Fatalf("Profile: %v", err)
	}
	p := profiles[0]
	if !p.StatsAnomaly {
		t.Error("distinct > rows must be flagged as an anomaly")
	}
	// Clamped to rowCount: the column now profiles as strict-unique, but
	// the anomaly flag keeps the problem observable upstream.
	if !p.IsStrictUnique {
		t.Error("clamped distinct equals row count")
	}
}

func TestProfileContractViolations(t *testing.T) {
	if _, err := Profile([]Column{{Name: "", Type: fieldtype.Text}}); err == nil {
		t.Error("empty column name must be a hard failure")
	}
	if _, err := Profile([]Column{{Name: "x", Type: fieldtype.Type("int4")}}); err == nil {
		t.Error("a type outside the closed set must be a hard failure")
	}
}

func TestPrimaryKeyCandidateTieBreak(t *testing.T) {
	cols := []Column{
		{Name: "token", Type: fieldtype.Text, RowCount: 10, DistinctCount: 10},
		{Name: "user_id", Type: fieldtype.Integer, RowCount: 10, DistinctCount: 10, MinInt: i64(1), MaxInt: i64(10)},
		{Name: "id", Type: fieldtype.Integer, RowCount: 10, DistinctCount: 10, MinInt: i64(1), MaxInt: i64(10)},
	}
	profiles, err := Profile(cols)
	if err != nil {
		t.Fatalf("Profile: %v", err)
	}

	var flagged []string
	for _, p := range profiles {
		if p.IsPrimaryKeyCandidate {
			flagged = append(flagged, p.Name)
		}
	}
	if len(flagged) != 1 || flagged[0] != "id" {
		t.Errorf("want exactly [id] flagged, got %v", flagged)
	}
}

func TestIdentityRequiresIntegerAndDenseRange(t *testing.T) {
	cases := []struct {
		name string
		col  Column
		want bool
	}{
		{"one-based dense", Column{Name: "n", Type: fieldtype.Integer, RowCount: 4, DistinctCount: 4, MinInt: i64(1), MaxInt: i64(4)}, true},
		{"zero-based dense", Column{Name: "n", Type: fieldtype.Integer, RowCount: 4, DistinctCount: 4, MinInt: i64(0), MaxInt: i64(3)}, true},
		{"gapped", Column{Name: "n", Type: fieldtype.Integer, RowCount: 4, DistinctCount: 4, MinInt: i64(1), MaxInt: i64(9)}, false},
		{"offset base", Column{Name: "n", Type: fieldtype.Integer, RowCount: 4, DistinctCount: 4, MinInt: i64(100), MaxInt: i64(103)}, false},
		{"float sequence", Column{Name: "n", Type: fieldtype.Float, RowCount: 4, DistinctCount: 4, MinInt: i64(1), MaxInt: i64(4)}, false},
		{"text", Column{Name: "n", Type: fieldtype.Text, RowCount: 4, DistinctCount: 4}, false},
	}
	for _, c := range cases {
		profiles, err := Profile([]Column{c.col})
		if err != nil {
			t.Fatalf("%s: %v", c.name, err)
		}
		if got := profiles[0].IsIdentityLike; got != c.want {
			t.Errorf("%s: identity = %v, want %v", c.name, got, c.want)
		}
		if profiles[0].IsIdentityLike && !profiles[0].IsStrictUnique {
			t.Errorf("%s: identity implies strict-unique", c.name)
		}
	}
}
