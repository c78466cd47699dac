package fieldtype

import "strings"

// Type is a closed semantic category for a column. Free-form source type
// strings (DuckDB, PostgreSQL, SQLite declarations) are mapped into this
// set at the boundary so downstream branching is exhaustive.
type Type string

const (
	Integer    Type = "integer"
	Float      Type = "float"
	Text       Type = "text"
	Boolean    Type = "boolean"
	Date       Type = "date"
	Timestamp  Type = "timestamp"
	Structured Type = "structured"
	Identifier Type = "identifier"
)

// All lists every known semantic type.
var All = []Type{
	Integer,
	Float,
	Text,
	Boolean,
	Date,
	Timestamp,
	Structured,
	Identifier,
}

// Valid reports whether t is a member of the closed set.
func (t Type) Valid() bool {
	for _, k := range All {
		if t == k {
			return true
		}
	}
	return false
}

// IsNumeric reports whether t is a measurement-capable numeric type.
func (t Type) IsNumeric() bool {
	return t == Integer || t == Float
}

// IsTemporal reports whether t carries date or time semantics.
func (t Type) IsTemporal() bool {
	return t == Date || t == Timestamp
}

// sourceTypes maps lowercased source type names to semantic types.
// Covers PostgreSQL information_schema names, DuckDB/SQLite declarations,
// and the short aliases that show up in exported metadata.
var sourceTypes = map[string]Type{
	"integer":   Integer,
	"int":       Integer,
	"int2":      Integer,
	"int4":      Integer,
	"int8":      Integer,
	"smallint":  Integer,
	"bigint":    Integer,
	"serial":    Integer,
	"bigserial": Integer,

	"real":             Float,
	"float":            Float,
	"float4":           Float,
	"float8":           Float,
	"double":           Float,
	"double precision": Float,
	"numeric":          Float,
	"decimal":          Float,

	"text":              Text,
	"varchar":           Text,
	"character varying": Text,
	"character":         Text,
	"char":              Text,
	"string":            Text,
	"clob":              Text,

	"boolean": Boolean,
	"bool":    Boolean,

	"date": Date,

	"timestamp":                   Timestamp,
	"timestamptz":                 Timestamp,
	"timestamp with time zone":    Timestamp,
	"timestamp without time zone": Timestamp,
	"datetime":                    Timestamp,

	"json":  Structured,
	"jsonb": Structured,

	"uuid": Identifier,
}

// FromSource maps a free-form source type string to a semantic type.
// Unknown types fall back to Text, matching how untyped CSV columns land.
func FromSource(sourceType string) Type {
	s := strings.ToLower(strings.TrimSpace(sourceType))
	if t, ok := sourceTypes[s]; ok {
		return t
	}
	// Parameterized declarations like varchar(255) or numeric(10,2).
	if i := strings.IndexByte(s, '('); i > 0 {
		if t, ok := sourceTypes[strings.TrimSpace(s[:i])]; ok {
			return t
		}
	}
	return Text
}

// SQLiteDecl returns the SQLite column declaration used to store values of
// this semantic type. SQLite affinity is loose; the declaration is kept
// round-trippable through FromSource.
func (t Type) SQLiteDecl() string {
	switch t {
	case Integer:
		return "integer"
	case Float:
		return "real"
	case Boolean:
		return "boolean"
	case Date:
		return "date"
	case Timestamp:
		return "timestamp"
	case Structured:
		return "json"
	case Identifier:
		return "uuid"
	default:
		return "text"
	}
}
