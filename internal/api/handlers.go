package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/tablewright/tablewright/internal/catalog"
	"github.com/tablewright/tablewright/internal/export"
	"github.com/tablewright/tablewright/internal/importer"
	"github.com/tablewright/tablewright/internal/inference"
)

// pathID parses the {id} path segment. A zero return means the error
// response was already written.
func pathID(w http.ResponseWriter, r *http.Request) int64 {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		errorResponse(w, http.StatusBadRequest, "invalid id")
		return 0
	}
	return id
}

func writeCatalogError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, catalog.ErrTableNotFound):
		errorResponse(w, http.StatusNotFound, err.Error())
	case errors.Is(err, catalog.ErrNoHistory):
		errorResponse(w, http.StatusConflict, err.Error())
	default:
		errorResponse(w, http.StatusInternalServerError, err.Error())
	}
}

func (s *Server) handleImportCSV(w http.ResponseWriter, r *http.Request) {
	file, header, err := r.FormFile("file")
	if err != nil {
		errorResponse(w, http.StatusBadRequest, "missing file upload")
		return
	}
	defer file.Close()

	name := r.FormValue("name")
	if name == "" {
		name = header.Filename
	}
	ds, err := importer.ReadCSV(file, trimCSVExt(name))
	if err != nil {
		errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	tbl, err := s.catalog.ImportTable(r.Context(), ds.Name, "csv", ds.Columns, ds.Rows)
	if err != nil {
		errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}
	jsonResponse(w, http.StatusCreated, tbl)
}

func trimCSVExt(name string) string {
	if len(name) > 4 && name[len(name)-4:] == ".csv" {
		return name[:len(name)-4]
	}
	return name
}

func (s *Server) handleListTables(w http.ResponseWriter, r *http.Request) {
	tables, err := s.catalog.ListTables(r.Context())
	if err != nil {
		writeCatalogError(w, err)
		return
	}
	if tables == nil {
		tables = []catalog.Table{}
	}
	jsonResponse(w, http.StatusOK, tables)
}

func (s *Server) handleGetTable(w http.ResponseWriter, r *http.Request) {
	id := pathID(w, r)
	if id == 0 {
		return
	}
	tbl, err := s.catalog.GetTable(r.Context(), id)
	if err != nil {
		writeCatalogError(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, tbl)
}

func (s *Server) handleDeleteTable(w http.ResponseWriter, r *http.Request) {
	id := pathID(w, r)
	if id == 0 {
		return
	}
	if err := s.catalog.DeleteTable(r.Context(), id); err != nil {
		writeCatalogError(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Server) handleTableRows(w http.ResponseWriter, r *http.Request) {
	id := pathID(w, r)
	if id == 0 {
		return
	}
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 {
		limit = 100
	}

	cols, rows, err := s.catalog.Rows(r.Context(), id, offset, limit)
	if err != nil {
		writeCatalogError(w, err)
		return
	}
	if rows == nil {
		rows = [][]any{}
	}
	jsonResponse(w, http.StatusOK, RowsResponse{Columns: cols, Rows: rows, Offset: offset, Limit: limit})
}

func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	id := pathID(w, r)
	if id == 0 {
		return
	}
	profiles, err := s.catalog.GetProfiles(r.Context(), id)
	if err != nil {
		writeCatalogError(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, profiles)
}

func (s *Server) handleProfileTable(w http.ResponseWriter, r *http.Request) {
	id := pathID(w, r)
	if id == 0 {
		return
	}
	profiles, err := s.catalog.ProfileTable(r.Context(), id)
	if err != nil {
		writeCatalogError(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, profiles)
}

func (s *Server) handleAnalyzeShape(w http.ResponseWriter, r *http.Request) {
	id := pathID(w, r)
	if id == 0 {
		return
	}
	analysis, err := s.catalog.AnalyzeShapeWith(r.Context(), id, s.cfg.Engine.Thresholds())
	if err != nil {
		writeCatalogError(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, shapeResponse(analysis))
}

func (s *Server) handleSummarize(w http.ResponseWriter, r *http.Request) {
	id := pathID(w, r)
	if id == 0 {
		return
	}
	sum, err := s.catalog.Summarize(r.Context(), id)
	if err != nil {
		writeCatalogError(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, sum)
}

func (s *Server) handleQuality(w http.ResponseWriter, r *http.Request) {
	id := pathID(w, r)
	if id == 0 {
		return
	}
	report, err := s.catalog.Quality(r.Context(), id)
	if err != nil {
		writeCatalogError(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, report)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	id := pathID(w, r)
	if id == 0 {
		return
	}
	ops, err := s.catalog.History(r.Context(), id)
	if err != nil {
		writeCatalogError(w, err)
		return
	}
	if ops == nil {
		ops = []catalog.Operation{}
	}
	jsonResponse(w, http.StatusOK, ops)
}

func (s *Server) handleLineage(w http.ResponseWriter, r *http.Request) {
	id := pathID(w, r)
	if id == 0 {
		return
	}
	edges, err := s.catalog.Lineage(r.Context(), id)
	if err != nil {
		writeCatalogError(w, err)
		return
	}
	if edges == nil {
		edges = []catalog.LineageEdge{}
	}
	jsonResponse(w, http.StatusOK, edges)
}

func (s *Server) handleUndo(w http.ResponseWriter, r *http.Request) {
	id := pathID(w, r)
	if id == 0 {
		return
	}
	tbl, err := s.catalog.Undo(r.Context(), id)
	if err != nil {
		writeCatalogError(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, tbl)
}

func (s *Server) handleMelt(w http.ResponseWriter, r *http.Request) {
	id := pathID(w, r)
	if id == 0 {
		return
	}
	var req MeltRequestBody
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errorResponse(w, http.StatusBadRequest, "invalid request body")
		return
	}
	tbl, err := s.catalog.Melt(r.Context(), catalog.MeltRequest{
		TableID:   id,
		IDVars:    req.IDVars,
		ValueVars: req.ValueVars,
		VarName:   req.VarName,
		ValueName: req.ValueName,
	})
	if err != nil {
		writeCatalogError(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, tbl)
}

func (s *Server) handlePivot(w http.ResponseWriter, r *http.Request) {
	id := pathID(w, r)
	if id == 0 {
		return
	}
	var req PivotRequestBody
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errorResponse(w, http.StatusBadRequest, "invalid request body")
		return
	}
	tbl, err := s.catalog.Pivot(r.Context(), catalog.PivotRequest{
		TableID:   id,
		IndexCols: req.IndexCols,
		ColumnVar: req.ColumnVar,
		ValueVar:  req.ValueVar,
	})
	if err != nil {
		writeCatalogError(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, tbl)
}

func (s *Server) handleClean(w http.ResponseWriter, r *http.Request) {
	id := pathID(w, r)
	if id == 0 {
		return
	}
	var req CleanRequestBody
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errorResponse(w, http.StatusBadRequest, "invalid request body")
		return
	}
	tbl, err := s.catalog.Clean(r.Context(), catalog.CleanRequest{
		TableID: id, Op: req.Op, Column: req.Column, Value: req.Value,
	})
	if err != nil {
		writeCatalogError(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, tbl)
}

func (s *Server) handleCleanPreview(w http.ResponseWriter, r *http.Request) {
	id := pathID(w, r)
	if id == 0 {
		return
	}
	var req CleanRequestBody
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errorResponse(w, http.StatusBadRequest, "invalid request body")
		return
	}
	pv, err := s.catalog.PreviewClean(r.Context(), catalog.CleanRequest{
		TableID: id, Op: req.Op, Column: req.Column, Value: req.Value,
	})
	if err != nil {
		writeCatalogError(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, pv)
}

func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	id := pathID(w, r)
	if id == 0 {
		return
	}
	path, err := export.WriteCSV(r.Context(), s.catalog, id, s.cfg.Export.Dir)
	if err != nil {
		writeCatalogError(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, ExportResponse{Path: path})
}

func (s *Server) handleExportSchema(w http.ResponseWriter, r *http.Request) {
	path, err := export.WriteSchema(r.Context(), s.catalog, s.cfg.Export.Dir)
	if err != nil {
		writeCatalogError(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, ExportResponse{Path: path})
}

func (s *Server) handleListRelations(w http.ResponseWriter, r *http.Request) {
	rels, err := s.catalog.ListRelations(r.Context())
	if err != nil {
		writeCatalogError(w, err)
		return
	}
	if rels == nil {
		rels = []catalog.Relation{}
	}
	jsonResponse(w, http.StatusOK, rels)
}

func (s *Server) handleAddRelation(w http.ResponseWriter, r *http.Request) {
	var req RelationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errorResponse(w, http.StatusBadRequest, "invalid request body")
		return
	}
	rel, err := s.catalog.AddRelation(r.Context(), catalog.Relation{
		FromTableID: req.FromTableID,
		FromField:   req.FromField,
		ToTableID:   req.ToTableID,
		ToField:     req.ToField,
		Cardinality: inference.Cardinality(req.Cardinality),
	})
	if err != nil {
		writeCatalogError(w, err)
		return
	}
	jsonResponse(w, http.StatusCreated, rel)
}

func (s *Server) handleDeleteRelation(w http.ResponseWriter, r *http.Request) {
	id := pathID(w, r)
	if id == 0 {
		return
	}
	if err := s.catalog.DeleteRelation(r.Context(), id); err != nil {
		errorResponse(w, http.StatusNotFound, err.Error())
		return
	}
	jsonResponse(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Server) handleInferRelations(w http.ResponseWriter, r *http.Request) {
	rels, err := s.catalog.InferRelations(r.Context())
	if err != nil {
		writeCatalogError(w, err)
		return
	}
	if rels == nil {
		rels = []catalog.Relation{}
	}
	jsonResponse(w, http.StatusOK, rels)
}

func (s *Server) handleMerge(w http.ResponseWriter, r *http.Request) {
	var req MergeRequestBody
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errorResponse(w, http.StatusBadRequest, "invalid request body")
		return
	}
	tbl, err := s.catalog.Merge(r.Context(), catalog.MergeRequest{
		LeftID:  req.LeftID,
		RightID: req.RightID,
		LeftOn:  req.LeftOn,
		RightOn: req.RightOn,
		How:     req.How,
		Name:    req.Name,
	})
	if err != nil {
		writeCatalogError(w, err)
		return
	}
	jsonResponse(w, http.StatusCreated, tbl)
}
