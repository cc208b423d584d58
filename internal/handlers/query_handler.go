package handlers

import (
	"net/http"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/respondeo/internal/common"
	"github.com/ternarybob/respondeo/internal/interfaces"
	"github.com/ternarybob/respondeo/internal/models"
	"github.com/ternarybob/respondeo/pkg/api"
)

// QueryHandler handles question answering, retrieval-only search and
// threshold optimization requests.
type QueryHandler struct {
	ragService interfaces.RAGService
	config     *common.Config
	logger     arbor.ILogger
}

// NewQueryHandler creates a new QueryHandler
func NewQueryHandler(ragService interfaces.RAGService, config *common.Config, logger arbor.ILogger) *QueryHandler {
	return &QueryHandler{
		ragService: ragService,
		config:     config,
		logger:     logger,
	}
}

// QueryHandler handles POST /api/query
func (h *QueryHandler) QueryHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var req api.QueryRequest
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
		Float64("min_similarity", minSimilarity).
		Msg("Query request received")

	response, err := h.ragService.Query(r.Context(), req.Query, topK, minSimilarity)
	if err != nil {
		h.logger.Error().Err(err).Str("query", req.Query).Msg("Query failed")
		WriteServiceError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, api.QueryResponse{
		Query:           response.Query,
		RetrievedChunks: toRetrievedChunks(response.Retrieved),
		Answer:          response.Answer,
		Confidence:      response.Confidence,
		ModelUsed:       response.ModelUsed,
	})
}

// SearchHandler handles POST /api/search (retrieval only, no synthesis)
func (h *QueryHandler) SearchHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var req api.QueryRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	topK, minSimilarity := searchParams(h.config, req.TopK, req.MinSimilarity)

	results, err := h.ragService.Retrieve(r.Context(), req.Query, topK, minSimilarity)
	if err != nil {
		h.logger.Error().Err(err).Str("query", req.Query).Msg("Search failed")
		WriteServiceError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, api.SearchResponse{
		Query:   req.Query,
		Results: toRetrievedChunks(results),
		Count:   len(results),
	})
}

// OptimizeHandler handles POST /api/optimize
func (h *QueryHandler) OptimizeHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var req api.OptimizeRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	best, err := h.ragService.OptimizeThreshold(r.Context(), req.Query, req.Thresholds)
	if err != nil {
		h.logger.Error().Err(err).Str("query", req.Query).Msg("Threshold optimization failed")
		WriteServiceError(w, err)
		return
	}

	h.logger.Info().
		Str("query", req.Query).
		Float64("best_threshold", best).
		Msg("Threshold optimized")

	WriteJSON(w, http.StatusOK, api.OptimizeResponse{
		Query:         req.Query,
		BestThreshold: best,
	})
}

// searchParams resolves request overrides against configured defaults.
func searchParams(cfg *common.Config, topK int, minSimilarity *float64) (int, float64) {
	if topK <= 0 {
		topK = cfg.Query.TopK
	}
	threshold := cfg.Query.MinSimilarity
	if minSimilarity != nil {
		threshold = *minSimilarity
	}
	return topK, threshold
}

// toRetrievedChunks converts internal search results to their wire form.
func toRetrievedChunks(results []models.SearchResult) []api.RetrievedChunk {
	chunks := make([]api.RetrievedChunk, 0, len(results))
	for _, result := range results {
		chunks = append(chunks, api.RetrievedChunk{
			ChunkID:    result.ChunkID,
			Text:       result.Text,
			Similarity: result.Similarity,
			Metadata:   result.Metadata,
		})
	}
	return chunks
}
