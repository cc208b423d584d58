package interfaces

import (
	"context"

	"github.com/ternarybob/respondeo/internal/models"
)

// RAGService orchestrates retrieval and answer synthesis. Construction
// wires an IndexService (required) and a generator LLMService (optional);
// calls made without a wired index fail with ErrEngineNotReady. Generator
// failures never surface to the caller: the engine degrades to fallback
// synthesis from the best retrieved chunk.
type RAGService interface {
	// Query retrieves relevant chunks and synthesises an answer with a
	// confidence score. Empty retrieval produces a zero-confidence
	// response with a fixed no-information answer, not an error.
	Query(ctx context.Context, text string, topK int, minSimilarity float64) (*models.QueryResponse, error)

	// Retrieve performs the search step only, without synthesis.
	Retrieve(ctx context.Context, text string, topK int, minSimilarity float64) ([]models.SearchResult, error)

	// OptimizeThreshold searches at each candidate threshold and returns
	// the one maximising nonzero result count, then average similarity.
	// Advisory and side-effect free.
	OptimizeThreshold(ctx context.Context, query string, candidates []float64) (float64, error)

	// Ready reports whether the engine can serve queries.
	Ready() bool
}
