package api

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"strings"

	"github.com/tablewright/tablewright/internal/catalog"
	"github.com/tablewright/tablewright/internal/config"
)

// Server is the REST API server for the workbench UI.
type Server struct {
	catalog  *catalog.Catalog
	cfg      *config.Config
	logger   *slog.Logger
	port     int
	server   *http.Server
	staticFS fs.FS
	devMode  bool
}

// Option configures the API server.
type Option func(*Server)

// WithStaticFS sets the filesystem for serving the web app.
func WithStaticFS(fsys fs.FS) Option {
	return func(s *Server) {
		s.staticFS = fsys
	}
}

// WithDevMode enables CORS for development.
func WithDevMode(dev bool) Option {
	return func(s *Server) {
		s.devMode = dev
	}
}

// New creates a new API server.
func New(cat *catalog.Catalog, cfg *config.Config, logger *slog.Logger, port int, opts ...Option) *Server {
	s := &Server{
		catalog: cat,
		cfg:     cfg,
		logger:  logger,
		port:    port,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", s.port),
		Handler: s.Handler(),
	}

	s.logger.Info("starting workbench server", "port", s.port, "dev_mode", s.devMode)
	return s.server.ListenAndServe()
}

// Handler builds the route table. Exposed separately so tests can
// exercise it without a listening socket.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.registerRoutes(mux)

	var handler http.Handler = requestLogger(s.logger, mux)
	if s.devMode {
		handler = s.corsMiddleware(handler)
	}
	return handler
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

func (s *Server) registerRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/health", s.handleHealth)

	mux.HandleFunc("POST /api/import/csv", s.handleImportCSV)

	mux.HandleFunc("GET /api/tables", s.handleListTables)
	mux.HandleFunc("GET /api/tables/{id}", s.handleGetTable)
	mux.HandleFunc("DELETE /api/tables/{id}", s.handleDeleteTable)
	mux.HandleFunc("GET /api/tables/{id}/rows", s.handleTableRows)
	mux.HandleFunc("GET /api/tables/{id}/profile", s.handleGetProfile)
	mux.HandleFunc("POST /api/tables/{id}/profile", s.handleProfileTable)
	mux.HandleFunc("GET /api/tables/{id}/shape", s.handleAnalyzeShape)
	mux.HandleFunc("GET /api/tables/{id}/summary", s.handleSummarize)
	mux.HandleFunc("GET /api/tables/{id}/quality", s.handleQuality)
	mux.HandleFunc("GET /api/tables/{id}/history", s.handleHistory)
	mux.HandleFunc("GET /api/tables/{id}/lineage", s.handleLineage)
	mux.HandleFunc("POST /api/tables/{id}/undo", s.handleUndo)
	mux.HandleFunc("POST /api/tables/{id}/melt", s.handleMelt)
	mux.HandleFunc("POST /api/tables/{id}/pivot", s.handlePivot)
	mux.HandleFunc("POST /api/tables/{id}/clean", s.handleClean)
	mux.HandleFunc("POST /api/tables/{id}/clean/preview", s.handleCleanPreview)
	mux.HandleFunc("POST /api/tables/{id}/export/csv", s.handleExportCSV)
	mux.HandleFunc("POST /api/export/schema", s.handleExportSchema)

	mux.HandleFunc("GET /api/relations", s.handleListRelations)
	mux.HandleFunc("POST /api/relations", s.handleAddRelation)
	mux.HandleFunc("DELETE /api/relations/{id}", s.handleDeleteRelation)
	mux.HandleFunc("POST /api/relations/infer", s.handleInferRelations)

	mux.HandleFunc("POST /api/merge", s.handleMerge)

	// SPA static file serving
	if s.staticFS != nil {
		mux.Handle("/", s.spaHandler())
	}
}

// spaHandler serves the web app. For any non-API, non-asset request,
// it returns index.html so client-side routing works.
func (s *Server) spaHandler() http.Handler {
	fileServer := http.FileServer(http.FS(s.staticFS))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path
		if path == "/" {
			path = "index.html"
		} else {
			path = strings.TrimPrefix(path, "/")
		}

		f, err := s.staticFS.Open(path)
		if err == nil {
			f.Close()
			fileServer.ServeHTTP(w, r)
			return
		}

		r.URL.Path = "/"
		fileServer.ServeHTTP(w, r)
	})
}

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
