package rag

import (
	"context"
	"fmt"
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/respondeo/internal/common"
	"github.com/ternarybob/respondeo/internal/interfaces"
	"github.com/ternarybob/respondeo/internal/models"
)

// defaultTopK bounds retrieval during threshold optimization and when the
// caller passes a non-positive limit.
const defaultTopK = 5

// noInformationAnswer is returned verbatim when retrieval finds nothing.
const noInformationAnswer = "No relevant information found for your query."

// systemPrompt instructs the generator to stay grounded in the retrieved
// context.
const systemPrompt = "You are a helpful assistant that answers questions based on the provided context. Always base your answers on the given context and be accurate and helpful."

const answerPromptTemplate = `Based on the following context, please answer the user's question.

Context:
%s

User Question: %s

Please provide a comprehensive answer based on the context above. If the context doesn't contain enough information to answer the question, please say so. Be accurate and helpful.`

// defaultThresholdCandidates are tried by OptimizeThreshold when the caller
// supplies none.
var defaultThresholdCandidates = []float64{0.5, 0.6, 0.7, 0.8, 0.9}

// Service coordinates retrieval and answer synthesis. The index is
// required; the generator is optional and its failures are absorbed into
// fallback synthesis so a broken generation provider never breaks queries.
type Service struct {
	index      interfaces.IndexService
	generator  interfaces.LLMService
	maxContext int
	logger     arbor.ILogger
}

var _ interfaces.RAGService = (*Service)(nil)

// NewService creates a query engine over the given index. A nil generator
// disables synthesis; every answer then comes from fallback synthesis. The
// [query] config section caps how many retrieved chunks enter the
// generator prompt.
func NewService(index interfaces.IndexService, generator interfaces.LLMService, config *common.Config, logger arbor.ILogger) *Service {
	maxContext := config.Query.MaxContextChunks
	if maxContext <= 0 {
		maxContext = defaultTopK
	}

	s := &Service{
		index:      index,
		generator:  generator,
		maxContext: maxContext,
		logger:     logger,
	}

	generatorModel := "none"
	if generator != nil {
		generatorModel = generator.ModelName()
	}
	logger.Info().
		Str("generator", generatorModel).
		Bool("ready", s.Ready()).
		Msg("Query engine initialized")

	return s
}

// Ready reports whether the engine can serve queries.
func (s *Service) Ready() bool {
	return s.index != nil
}

// Query retrieves relevant chunks and synthesises an answer. Empty
// retrieval produces a zero-confidence fallback response, not an error.
func (s *Service) Query(ctx context.Context, text string, topK int, minSimilarity float64) (*models.QueryResponse, error) {
	if !s.Ready() {
		return nil, fmt.Errorf("query engine has no index: %w", interfaces.ErrEngineNotReady)
	}

	retrieved, err := s.index.Search(ctx, text, topK, minSimilarity)
	if err != nil {
		return nil, fmt.Errorf("query retrieval failed: %w", err)
	}

	if len(retrieved) == 0 {
		s.logger.Debug().
			Str("query", text).
			Float64("min_similarity", minSimilarity).
			Msg("No chunks above threshold")
		return &models.QueryResponse{
			Query:      text,
			Retrieved:  []models.SearchResult{},
			Answer:     noInformationAnswer,
			Confidence: 0.0,
			ModelUsed:  models.ModelUsedFallback,
		}, nil
	}

	answer, confidence, modelUsed := s.synthesize(ctx, text, retrieved)

	s.logger.Debug().
		Str("query", text).
		Int("chunks", len(retrieved)).
		Float64("confidence", confidence).
		Str("model_used", modelUsed).
		Msg("Query answered")

	return &models.QueryResponse{
		Query:      text,
		Retrieved:  retrieved,
		Answer:     answer,
		Confidence: confidence,
		ModelUsed:  modelUsed,
	}, nil
}

// Retrieve performs the search step only, without synthesis.
func (s *Service) Retrieve(ctx context.Context, text string, topK int, minSimilarity float64) ([]models.SearchResult, error) {
	if !s.Ready() {
		return nil, fmt.Errorf("query engine has no index: %w", interfaces.ErrEngineNotReady)
	}
	return s.index.Search(ctx, text, topK, minSimilarity)
}

// OptimizeThreshold searches at each candidate threshold and returns the
// one maximising nonzero result count, then average similarity. When no
// threshold retrieves anything the first candidate is returned.
func (s *Service) OptimizeThreshold(ctx context.Context, query string, candidates []float64) (float64, error) {
	if !s.Ready() {
		return 0, fmt.Errorf("query engine has no index: %w", interfaces.ErrEngineNotReady)
	}
	if len(candidates) == 0 {
		candidates = defaultThresholdCandidates
	}

	bestThreshold := candidates[0]
	bestScore := -1.0
	for _, threshold := range candidates {
		results, err := s.index.Search(ctx, query, defaultTopK, threshold)
		if err != nil {
			return 0, fmt.Errorf("threshold probe at %.2f failed: %w", threshold, err)
		}

		// Empty retrieval scores zero; otherwise the average similarity,
		// which is always above the (positive) threshold that produced it.
		score := 0.0
		if len(results) > 0 {
			var sum float64
			for _, result := range results {
				sum += result.Similarity
			}
			score = sum / float64(len(results))
		}

		s.logger.Debug().
			Float64("threshold", threshold).
			Int("results", len(results)).
			Float64("avg_similarity", score).
			Msg("Threshold probe")

		if score > bestScore {
			bestScore = score
			bestThreshold = threshold
		}
	}

	s.logger.Info().
		Str("query", query).
		Float64("optimal_threshold", bestThreshold).
		Msg("Threshold optimization complete")

	return bestThreshold, nil
}

// synthesize produces the answer, confidence and model marker for a
// non-empty retrieval. Generator errors are logged and absorbed into
// fallback synthesis, never returned. The prompt carries at most
// maxContext chunks; confidence is always computed over the full
// retrieval.
func (s *Service) synthesize(ctx context.Context, query string, retrieved []models.SearchResult) (string, float64, string) {
	if s.generator == nil {
		return s.fallbackAnswer(retrieved)
	}

	contextChunks := retrieved
	if len(contextChunks) > s.maxContext {
		contextChunks = contextChunks[:s.maxContext]
	}

	prompt := fmt.Sprintf(answerPromptTemplate, buildContext(contextChunks), query)
	messages := []interfaces.Message{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: prompt},
	}

	answer, err := s.generator.Chat(ctx, messages)
	if err != nil || strings.TrimSpace(answer) == "" {
		s.logger.Warn().
			Err(err).
			Str("model", s.generator.ModelName()).
			Msg("Generator failed, using fallback synthesis")
		return s.fallbackAnswer(retrieved)
	}

	return answer, weightedConfidence(retrieved), s.generator.ModelName()
}

// fallbackAnswer synthesises a response from the highest-similarity chunk.
func (s *Service) fallbackAnswer(retrieved []models.SearchResult) (string, float64, string) {
	best := retrieved[0]
	for _, result := range retrieved[1:] {
		if result.Similarity > best.Similarity {
			best = result
		}
	}

	answer := fmt.Sprintf("Based on the most relevant information found:\n\n%s\n\nThis information has a relevance score of %.3f.",
		best.Text, best.Similarity)
	return answer, best.Similarity, models.ModelUsedFallback
}

// buildContext renders retrieved chunks as an annotated context block for
// the generator prompt.
func buildContext(retrieved []models.SearchResult) string {
	parts := make([]string, 0, len(retrieved))
	for i, result := range retrieved {
		var block strings.Builder
		fmt.Fprintf(&block, "--- Chunk %d (Similarity: %.3f) ---\n", i+1, result.Similarity)
		fmt.Fprintf(&block, "Source: Document %s\n", metadataValue(result.Metadata, "document_id"))
		fmt.Fprintf(&block, "Type: %s\n", metadataValue(result.Metadata, "chunk_type"))
		fmt.Fprintf(&block, "Text: %s\n", result.Text)
		parts = append(parts, block.String())
	}
	return strings.Join(parts, "\n")
}

func metadataValue(metadata map[string]string, key string) string {
	if value, ok := metadata[key]; ok && value != "" {
		return value
	}
	return "unknown"
}

// weightedConfidence averages similarities weighted by 1/(rank+1), so the
// top result dominates but later results still contribute.
func weightedConfidence(retrieved []models.SearchResult) float64 {
	if len(retrieved) == 0 {
		return 0
	}

	var weightedSum, totalWeight float64
	for i, result := range retrieved {
		weight := 1.0 / float64(i+1)
		weightedSum += result.Similarity * weight
		totalWeight += weight
	}
	return weightedSum / totalWeight
}
