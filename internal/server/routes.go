package server

import (
	"net/http"
)

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	// API routes - Query pipeline
	mux.HandleFunc("/api/query", s.app.QueryHandler.QueryHandler)       // POST - full RAG answer
	mux.HandleFunc("/api/search", s.app.QueryHandler.SearchHandler)     // POST - retrieval only
	mux.HandleFunc("/api/optimize", s.app.QueryHandler.OptimizeHandler) // POST - threshold sweep

	// API routes - Documents
	mux.HandleFunc("/api/documents", s.app.DocumentHandler.CollectionHandler) // GET (list), POST (ingest)
	mux.HandleFunc("/api/documents/", s.app.DocumentHandler.ItemHandler)      // GET/DELETE /{id}

	// API routes - Index introspection
	mux.HandleFunc("/api/stats", s.app.StatusHandler.StatsHandler)      // GET - index statistics
	mux.HandleFunc("/api/status", s.app.StatusHandler.GetStatusHandler) // GET - component health
	mux.HandleFunc("/api/export", s.app.StatusHandler.ExportHandler)    // GET - full index dump

	// API routes - Reports
	mux.HandleFunc("/api/reports", s.app.ReportHandler.ReportHandler) // POST - PDF query report

	// API routes - System
	mux.HandleFunc("/api/version", s.app.APIHandler.VersionHandler)
	mux.HandleFunc("/api/health", s.app.APIHandler.HealthHandler)
	mux.HandleFunc("/health", s.app.APIHandler.HealthHandler)

	// 404 handler for unmatched API routes
	mux.HandleFunc("/api/", s.app.APIHandler.NotFoundHandler)

	return mux
}
