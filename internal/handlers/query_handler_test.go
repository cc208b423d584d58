package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ternarybob/respondeo/internal/common"
	"github.com/ternarybob/respondeo/internal/interfaces"
	"github.com/ternarybob/respondeo/internal/models"
)

// mockRAGService implements interfaces.RAGService for testing
type mockRAGService struct {
	queryFunc    func(ctx context.Context, text string, topK int, minSimilarity float64) (*models.QueryResponse, error)
	retrieveFunc func(ctx context.Context, text string, topK int, minSimilarity float64) ([]models.SearchResult, error)
	optimizeFunc func(ctx context.Context, query string, candidates []float64) (float64, error)
	ready        bool
}

func (m *mockRAGService) Query(ctx context.Context, text string, topK int, minSimilarity float64) (*models.QueryResponse, error) {
	if m.queryFunc != nil {
		return m.queryFunc(ctx, text, topK, minSimilarity)
	}
	return &models.QueryResponse{Query: text}, nil
}

func (m *mockRAGService) Retrieve(ctx context.Context, text string, topK int, minSimilarity float64) ([]models.SearchResult, error) {
	if m.retrieveFunc != nil {
		return m.retrieveFunc(ctx, text, topK, minSimilarity)
	}
	return nil, nil
}

func (m *mockRAGService) OptimizeThreshold(ctx context.Context, query string, candidates []float64) (float64, error) {
	if m.optimizeFunc != nil {
		return m.optimizeFunc(ctx, query, candidates)
	}
	return 0, nil
}

func (m *mockRAGService) Ready() bool {
	return m.ready
}

func testQueryConfig() *common.Config {
	cfg := common.NewDefaultConfig()
	cfg.Query.TopK = 5
	cfg.Query.MinSimilarity = 0.7
	return cfg
}

func TestQueryHandler_Success(t *testing.T) {
	mockService := &mockRAGService{
		queryFunc: func(ctx context.Context, text string, topK int, minSimilarity float64) (*models.QueryResponse, error) {
			return &models.QueryResponse{
				Query: text,
				Retrieved: []models.SearchResult{
					{ChunkID: "doc_1_chunk_0", Text: "relevant text", Similarity: 0.91},
				},
				Answer:     "Based on the indexed documents: relevant text",
				Confidence: 0.91,
				ModelUsed:  "fallback",
			}, nil
		},
	}

	handler := NewQueryHandler(mockService, testQueryConfig(), common.GetLogger())
	body := strings.NewReader(`{"query": "what is indexed?"}`)
	req := httptest.NewRequest("POST", "/api/query", body)
	rec := httptest.NewRecorder()

	handler.QueryHandler(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var response map[string]interface{}
	if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}

	if response["query"] != "what is indexed?" {
		t.Errorf("Expected query echoed back, got %v", response["query"])
	}
	if response["answer"] == "" {
		t.Error("Expected non-empty answer")
	}
	if response["confidence"].(float64) != 0.91 {
		t.Errorf("Expected confidence 0.91, got %v", response["confidence"])
	}

	chunks := response["retrieved_chunks"].([]interface{})
	if len(chunks) != 1 {
		t.Fatalf("Expected 1 retrieved chunk, got %d", len(chunks))
	}
}

func TestQueryHandler_DefaultsApplied(t *testing.T) {
	var capturedTopK int
	var capturedMinSim float64
	mockService := &mockRAGService{
		queryFunc: func(ctx context.Context, text string, topK int, minSimilarity float64) (*models.QueryResponse, error) {
			capturedTopK = topK
			capturedMinSim = minSimilarity
			return &models.QueryResponse{Query: text}, nil
		},
	}

	handler := NewQueryHandler(mockService, testQueryConfig(), common.GetLogger())
	req := httptest.NewRequest("POST", "/api/query", strings.NewReader(`{"query": "q"}`))
	rec := httptest.NewRecorder()

	handler.QueryHandler(rec, req)

	if capturedTopK != 5 {
		t.Errorf("Expected configured top_k 5, got %d", capturedTopK)
	}
	if capturedMinSim != 0.7 {
		t.Errorf("Expected configured min_similarity 0.7, got %v", capturedMinSim)
	}
}

func TestQueryHandler_Overrides(t *testing.T) {
	var capturedTopK int
	var capturedMinSim float64
	mockService := &mockRAGService{
		queryFunc: func(ctx context.Context, text string, topK int, minSimilarity float64) (*models.QueryResponse, error) {
			capturedTopK = topK
			capturedMinSim = minSimilarity
			return &models.QueryResponse{Query: text}, nil
		},
	}

	handler := NewQueryHandler(mockService, testQueryConfig(), common.GetLogger())
	body := strings.NewReader(`{"query": "q", "top_k": 3, "min_similarity": 0.2}`)
	req := httptest.NewRequest("POST", "/api/query", body)
	rec := httptest.NewRecorder()

	handler.QueryHandler(rec, req)

	if capturedTopK != 3 {
		t.Errorf("Expected top_k override 3, got %d", capturedTopK)
	}
	if capturedMinSim != 0.2 {
		t.Errorf("Expected min_similarity override 0.2, got %v", capturedMinSim)
	}
}

func TestQueryHandler_ZeroMinSimilarityOverride(t *testing.T) {
	// An explicit 0 must not be confused with "absent".
	var capturedMinSim float64 = -1
	mockService := &mockRAGService{
		queryFunc: func(ctx context.Context, text string, topK int, minSimilarity float64) (*models.QueryResponse, error) {
			capturedMinSim = minSimilarity
			return &models.QueryResponse{Query: text}, nil
		},
	}

	handler := NewQueryHandler(mockService, testQueryConfig(), common.GetLogger())
	body := strings.NewReader(`{"query": "q", "min_similarity": 0}`)
	req := httptest.NewRequest("POST", "/api/query", body)
	rec := httptest.NewRecorder()

	handler.QueryHandler(rec, req)

	if capturedMinSim != 0 {
		t.Errorf("Expected explicit min_similarity 0 to be passed through, got %v", capturedMinSim)
	}
}

func TestQueryHandler_EmptyQuery(t *testing.T) {
	handler := NewQueryHandler(&mockRAGService{}, testQueryConfig(), common.GetLogger())
	req := httptest.NewRequest("POST", "/api/query", strings.NewReader(`{"query": ""}`))
	rec := httptest.NewRecorder()

	handler.QueryHandler(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 for empty query, got %d", rec.Code)
	}
}

func TestQueryHandler_InvalidJSON(t *testing.T) {
	handler := NewQueryHandler(&mockRAGService{}, testQueryConfig(), common.GetLogger())
	req := httptest.NewRequest("POST", "/api/query", strings.NewReader(`{not json`))
	rec := httptest.NewRecorder()

	handler.QueryHandler(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 for malformed JSON, got %d", rec.Code)
	}
}

func TestQueryHandler_MethodNotAllowed(t *testing.T) {
	handler := NewQueryHandler(&mockRAGService{}, testQueryConfig(), common.GetLogger())
	req := httptest.NewRequest("GET", "/api/query", nil)
	rec := httptest.NewRecorder()

	handler.QueryHandler(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("Expected status 405, got %d", rec.Code)
	}
}

func TestQueryHandler_EmbeddingUnavailable(t *testing.T) {
	mockService := &mockRAGService{
		queryFunc: func(ctx context.Context, text string, topK int, minSimilarity float64) (*models.QueryResponse, error) {
			return nil, interfaces.ErrEmbeddingUnavailable
		},
	}

	handler := NewQueryHandler(mockService, testQueryConfig(), common.GetLogger())
	req := httptest.NewRequest("POST", "/api/query", strings.NewReader(`{"query": "q"}`))
	rec := httptest.NewRecorder()

	handler.QueryHandler(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected status 503 for unavailable embedding, got %d", rec.Code)
	}
}

func TestQueryHandler_EngineNotReady(t *testing.T) {
	mockService := &mockRAGService{
		queryFunc: func(ctx context.Context, text string, topK int, minSimilarity float64) (*models.QueryResponse, error) {
			return nil, interfaces.ErrEngineNotReady
		},
	}

	handler := NewQueryHandler(mockService, testQueryConfig(), common.GetLogger())
	req := httptest.NewRequest("POST", "/api/query", strings.NewReader(`{"query": "q"}`))
	rec := httptest.NewRecorder()

	handler.QueryHandler(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected status 503 for engine not ready, got %d", rec.Code)
	}
}

func TestSearchHandler_Success(t *testing.T) {
	mockService := &mockRAGService{
		retrieveFunc: func(ctx context.Context, text string, topK int, minSimilarity float64) ([]models.SearchResult, error) {
			return []models.SearchResult{
				{ChunkID: "doc_1_chunk_0", Text: "first", Similarity: 0.95},
				{ChunkID: "doc_1_chunk_1", Text: "second", Similarity: 0.82},
			}, nil
		},
	}

	handler := NewQueryHandler(mockService, testQueryConfig(), common.GetLogger())
	req := httptest.NewRequest("POST", "/api/search", strings.NewReader(`{"query": "test"}`))
	rec := httptest.NewRecorder()

	handler.SearchHandler(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rec.Code)
	}

	var response map[string]interface{}
	if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}

	if int(response["count"].(float64)) != 2 {
		t.Errorf("Expected count 2, got %v", response["count"])
	}

	results := response["results"].([]interface{})
	first := results[0].(map[string]interface{})
	if first["similarity"].(float64) != 0.95 {
		t.Errorf("Expected similarity 0.95 on first result, got %v", first["similarity"])
	}
}

func TestSearchHandler_EmptyResultIsNotError(t *testing.T) {
	mockService := &mockRAGService{
		retrieveFunc: func(ctx context.Context, text string, topK int, minSimilarity float64) ([]models.SearchResult, error) {
			return []models.SearchResult{}, nil
		},
	}

	handler := NewQueryHandler(mockService, testQueryConfig(), common.GetLogger())
	req := httptest.NewRequest("POST", "/api/search", strings.NewReader(`{"query": "nothing matches"}`))
	rec := httptest.NewRecorder()

	handler.SearchHandler(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200 for empty retrieval, got %d", rec.Code)
	}

	var response map[string]interface{}
	json.NewDecoder(rec.Body).Decode(&response)
	if int(response["count"].(float64)) != 0 {
		t.Errorf("Expected count 0, got %v", response["count"])
	}
}

func TestOptimizeHandler_Success(t *testing.T) {
	var capturedCandidates []float64
	mockService := &mockRAGService{
		optimizeFunc: func(ctx context.Context, query string, candidates []float64) (float64, error) {
			capturedCandidates = candidates
			return 0.5, nil
		},
	}

	handler := NewQueryHandler(mockService, testQueryConfig(), common.GetLogger())
	body := strings.NewReader(`{"query": "q", "thresholds": [0.3, 0.5, 0.7]}`)
	req := httptest.NewRequest("POST", "/api/optimize", body)
	rec := httptest.NewRecorder()

	handler.OptimizeHandler(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rec.Code)
	}
	if len(capturedCandidates) != 3 {
		t.Errorf("Expected 3 candidate thresholds passed through, got %d", len(capturedCandidates))
	}

	var response map[string]interface{}
	json.NewDecoder(rec.Body).Decode(&response)
	if response["best_threshold"].(float64) != 0.5 {
		t.Errorf("Expected best_threshold 0.5, got %v", response["best_threshold"])
	}
}

func TestOptimizeHandler_InvalidThreshold(t *testing.T) {
	handler := NewQueryHandler(&mockRAGService{}, testQueryConfig(), common.GetLogger())
	body := strings.NewReader(`{"query": "q", "thresholds": [0.3, 1.5]}`)
	req := httptest.NewRequest("POST", "/api/optimize", body)
	rec := httptest.NewRecorder()

	handler.OptimizeHandler(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 for out-of-range threshold, got %d", rec.Code)
	}
}
