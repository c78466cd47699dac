package api

import (
	"github.com/tablewright/tablewright/internal/catalog"
	"github.com/tablewright/tablewright/internal/inference"
)

// RowsResponse is the API response for a page of table data.
type RowsResponse struct {
	Columns []catalog.Column `json:"columns"`
	Rows    [][]any          `json:"rows"`
	Offset  int              `json:"offset"`
	Limit   int              `json:"limit"`
}

// MeltRequestBody is the request body for POST /api/tables/{id}/melt.
type MeltRequestBody struct {
	IDVars    []string `json:"id_vars"`
	ValueVars []string `json:"value_vars"`
	VarName   string   `json:"var_name,omitempty"`
	ValueName string   `json:"value_name,omitempty"`
}

// PivotRequestBody is the request body for POST /api/tables/{id}/pivot.
type PivotRequestBody struct {
	IndexCols []string `json:"index_cols"`
	ColumnVar string   `json:"column_var"`
	ValueVar  string   `json:"value_var"`
}

// CleanRequestBody is the request body for the clean endpoints.
type CleanRequestBody struct {
	Op     string `json:"op"`
	Column string `json:"column,omitempty"`
	Value  string `json:"value,omitempty"`
}

// RelationRequest is the request body for POST /api/relations.
type RelationRequest struct {
	FromTableID int64  `json:"from_table_id"`
	FromField   string `json:"from_field"`
	ToTableID   int64  `json:"to_table_id"`
	ToField     string `json:"to_field"`
	Cardinality string `json:"cardinality"`
}

// MergeRequestBody is the request body for POST /api/merge.
type MergeRequestBody struct {
	LeftID  int64  `json:"left_id"`
	RightID int64  `json:"right_id"`
	LeftOn  string `json:"left_on"`
	RightOn string `json:"right_on"`
	How     string `json:"how,omitempty"`
	Name    string `json:"name,omitempty"`
}

// ShapeResponse is the API response for shape analysis.
type ShapeResponse struct {
	Shape                string   `json:"shape"`
	RecommendedDirection string   `json:"recommended_direction"`
	Reason               string   `json:"reason"`
	SuggestedIDVars      []string `json:"suggested_id_vars"`
	SuggestedValueVars   []string `json:"suggested_value_vars"`
}

// ExportResponse is the API response for CSV export.
type ExportResponse struct {
	Path string `json:"path"`
}

func shapeResponse(a *inference.ShapeAnalysis) ShapeResponse {
	return ShapeResponse{
		Shape:                string(a.Shape),
		RecommendedDirection: string(a.RecommendedDirection),
		Reason:               a.Reason,
		SuggestedIDVars:      a.SuggestedIDVars,
		SuggestedValueVars:   a.SuggestedValueVars,
	}
}
