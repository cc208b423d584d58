package handlers

import (
	"net/http"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/respondeo/internal/common"
	"github.com/ternarybob/respondeo/internal/interfaces"
	"github.com/ternarybob/respondeo/internal/services/reports"
	"github.com/ternarybob/respondeo/pkg/api"
)

// ReportHandler handles HTTP requests for PDF report generation
type ReportHandler struct {
	ragService    interfaces.RAGService
	reportService *reports.Service
	config        *common.Config
	logger        arbor.ILogger
}

// NewReportHandler creates a new ReportHandler
func NewReportHandler(ragService interfaces.RAGService, reportService *reports.Service, config *common.Config, logger arbor.ILogger) *ReportHandler {
	return &ReportHandler{
		ragService:    ragService,
		reportService: reportService,
		config:        config,
		logger:        logger,
	}
}

// ReportHandler handles POST /api/reports. It answers the query through the
// full retrieval pipeline and renders the result as a PDF on disk.
func (h *ReportHandler) ReportHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	var req api.ReportRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	topK, minSimilarity := searchParams(h.config, req.TopK, req.MinSimilarity)

	h.logger.Info().
		Str("query", req.Query).
		Int("top_k", topK).
		Msg("Generating query report")

	response, err := h.ragService.Query(r.Context(), req.Query, topK, minSimilarity)
	if err != nil {
		h.logger.Error().Err(err).Str("query", req.Query).Msg("Report query failed")
		WriteServiceError(w, err)
		return
	}

	report, err := h.reportService.QueryReport(response)
	if err != nil {
		h.logger.Error().Err(err).Msg("Report rendering failed")
		WriteServiceError(w, err)
		return
	}

	WriteJSON(w, http.StatusCreated, api.ReportResponse{
		Path:      report.Path,
		SizeBytes: report.SizeBytes,
		CreatedAt: report.CreatedAt,
	})
}
