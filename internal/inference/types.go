package inference

import "github.com/tablewright/tablewright/internal/fieldtype"

// Column is the per-column input to the engine: name, semantic type, and
// the population statistics computed by the catalog at profiling time.
type Column struct {
	Name         string
	Type         fieldtype.Type
	NullableHint *bool // pre-existing schema flag; absent for fresh imports

	RowCount      int64
	DistinctCount int64
	MissingCount  int64

	// Observed integer bounds, set only for integer-typed columns.
	// Needed for dense-sequence (identity) detection.
	MinInt *int64
	MaxInt *int64
}

// ColumnProfile is the derived constraint profile for one column.
type ColumnProfile struct {
	Name string
	Type fieldtype.Type

	IsNullable            bool
	IsStrictUnique        bool
	IsIdentityLike        bool
	IsPrimaryKeyCandidate bool

	// StatsAnomaly is set when the caller-supplied statistics were
	// inconsistent (distinct count exceeding row count) and had to be
	// clamped. Upstream data-quality problems should not be masked.
	StatsAnomaly bool
}

// TableProfile pairs a table identifier with its profiled columns, in
// column order. This is the unit RelationInferencer consumes.
type TableProfile struct {
	ID      string
	Columns []ColumnProfile
}

// Cardinality classifies a relation between two columns across tables,
// always expressed in the edge's from → to direction.
type Cardinality string

const (
	OneToOne  Cardinality = "1:1"
	OneToMany Cardinality = "1:m"
	ManyToOne Cardinality = "m:1"
)

// RelationEdge is an inferred cross-table reference. From is the
// referencing (foreign-key) side, To the referenced (key) side.
type RelationEdge struct {
	FromTableID string
	FromField   string
	ToTableID   string
	ToField     string
	Cardinality Cardinality

	// Weak marks the best-effort fallback emitted when neither side of
	// the matched pair is strict-unique. Such edges make no key claim.
	Weak bool
}

// Shape classifies a table's overall layout.
type Shape string

const (
	ShapeWide      Shape = "wide"
	ShapeLong      Shape = "long"
	ShapeAmbiguous Shape = "ambiguous"
)

// Direction is a recommended reshape transformation.
type Direction string

const (
	WideToLong Direction = "wide-to-long"
	LongToWide Direction = "long-to-wide"
)

// ShapeAnalysis is the reshape recommendation for one table. Columns in
// neither suggestion set are left for the caller to assign explicitly.
type ShapeAnalysis struct {
	Shape                Shape
	RecommendedDirection Direction
	Reason               string
	SuggestedIDVars      []string
	SuggestedValueVars   []string
}
