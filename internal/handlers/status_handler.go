package handlers

import (
	"net/http"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/respondeo/internal/interfaces"
	"github.com/ternarybob/respondeo/internal/services/status"
	"github.com/ternarybob/respondeo/pkg/api"
)

// StatusHandler handles HTTP requests for service health and index statistics
type StatusHandler struct {
	statusService    *status.Service
	indexService     interfaces.IndexService
	embeddingService interfaces.EmbeddingService
	storage          interfaces.StorageManager
	ragService       interfaces.RAGService
	logger           arbor.ILogger
}

// NewStatusHandler creates a new StatusHandler
func NewStatusHandler(statusService *status.Service, indexService interfaces.IndexService, embeddingService interfaces.EmbeddingService, storage interfaces.StorageManager, ragService interfaces.RAGService, logger arbor.ILogger) *StatusHandler {
	return &StatusHandler{
		statusService:    statusService,
		indexService:     indexService,
		embeddingService: embeddingService,
		storage:          storage,
		ragService:       ragService,
		logger:           logger,
	}
}

// GetStatusHandler handles GET /api/status
func (h *StatusHandler) GetStatusHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	snapshot := h.statusService.Snapshot(r.Context())
	WriteJSON(w, http.StatusOK, api.StatusResponse{
		Status:     snapshot.Status,
		Version:    snapshot.Version,
		Uptime:     snapshot.Uptime,
		Backend:    snapshot.Backend,
		Ready:      snapshot.Ready,
		Components: snapshot.Components,
		Timestamp:  snapshot.Timestamp,
	})
}

// StatsHandler handles GET /api/stats
func (h *StatusHandler) StatsHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	stats, err := h.indexService.Stats(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to compute index stats")
		WriteServiceError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, api.StatsResponse{
		TotalChunks:        stats.TotalChunks,
		UniqueDocuments:    stats.UniqueDocuments,
		ChunkTypes:         stats.ChunkTypes,
		EmbeddingDimension: stats.EmbeddingDimension,
		EmbeddingModel:     h.embeddingService.ModelName(),
		Backend:            h.storage.Backend(),
		Ready:              h.ragService.Ready(),
	})
}

// ExportHandler handles GET /api/export
func (h *StatusHandler) ExportHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	export, err := h.indexService.Export(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("Index export failed")
		WriteServiceError(w, err)
		return
	}

	h.logger.Info().Int("chunks", len(export.Chunks)).Msg("Index exported")
	w.Header().Set("Content-Disposition", `attachment; filename="index_export.json"`)
	WriteJSON(w, http.StatusOK, export)
}
