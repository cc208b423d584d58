package index

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strconv"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/respondeo/internal/interfaces"
	"github.com/ternarybob/respondeo/internal/models"
)

// defaultTopK bounds a search when the caller passes a non-positive limit.
const defaultTopK = 5

// Service owns the vector index: it embeds chunks, persists them with
// insert-if-absent semantics, and ranks stored vectors against queries by
// cosine similarity.
type Service struct {
	embedding interfaces.EmbeddingService
	vectors   interfaces.VectorStorage
	logger    arbor.ILogger
}

var _ interfaces.IndexService = (*Service)(nil)

// NewService creates an index service over the given embedding service and
// vector storage backend.
func NewService(embedding interfaces.EmbeddingService, vectors interfaces.VectorStorage, logger arbor.ILogger) *Service {
	return &Service{
		embedding: embedding,
		vectors:   vectors,
		logger:    logger,
	}
}

// Embed turns chunks into embedded chunks via the embedding service.
func (s *Service) Embed(ctx context.Context, chunks []models.Chunk) ([]models.EmbeddedChunk, error) {
	return s.embedding.EmbedChunks(ctx, chunks)
}

// Upsert stores embedded chunks. Ids already present are skipped, never
// overwritten or duplicated, so re-ingesting a document is safe. The whole
// batch is validated against the index dimension before anything is written.
func (s *Service) Upsert(ctx context.Context, embedded []models.EmbeddedChunk) (int, error) {
	dimension := s.Dimension()
	for i := range embedded {
		if len(embedded[i].Embedding) != dimension {
			return 0, fmt.Errorf("chunk %s has dimension %d, index expects %d: %w",
				embedded[i].ChunkID, len(embedded[i].Embedding), dimension, interfaces.ErrDimensionMismatch)
		}
	}

	inserted := 0
	skipped := 0
	for i := range embedded {
		ok, err := s.vectors.Insert(ctx, &embedded[i])
		if err != nil {
			return inserted, fmt.Errorf("failed to upsert chunk %s: %w", embedded[i].ChunkID, err)
		}
		if ok {
			inserted++
		} else {
			skipped++
		}
	}

	s.logger.Debug().
		Int("inserted", inserted).
		Int("skipped", skipped).
		Msg("Upserted chunks")

	return inserted, nil
}

// Search embeds the query text with the same model as stored chunks and
// returns at most topK results with similarity >= minSimilarity, sorted
// descending. Ties keep insertion order. An empty result is not an error.
func (s *Service) Search(ctx context.Context, queryText string, topK int, minSimilarity float64) ([]models.SearchResult, error) {
	if topK <= 0 {
		topK = defaultTopK
	}

	queryVector, err := s.embedding.GenerateQueryEmbedding(ctx, queryText)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	chunks, err := s.vectors.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("index read failed (%v): %w", err, interfaces.ErrRetrievalFailed)
	}

	// Chunks arrive in insertion order and the sort is stable, so equal
	// similarities rank older entries first.
	results := make([]models.SearchResult, 0, len(chunks))
	for _, chunk := range chunks {
		similarity := cosineSimilarity(queryVector, chunk.Embedding)
		if similarity < minSimilarity {
			continue
		}
		results = append(results, models.SearchResult{
			ChunkID:    chunk.ChunkID,
			Text:       chunk.Text,
			Similarity: similarity,
			Metadata: map[string]string{
				"document_id":     chunk.DocumentID,
				"chunk_type":      chunk.ChunkType,
				"sequence_index":  strconv.Itoa(chunk.SequenceIndex),
				"embedding_model": chunk.EmbeddingModel,
			},
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Similarity > results[j].Similarity
	})
	if len(results) > topK {
		results = results[:topK]
	}

	s.logger.Debug().
		Int("candidates", len(chunks)).
		Int("results", len(results)).
		Float64("min_similarity", minSimilarity).
		Msg("Similarity search complete")

	return results, nil
}

// DeleteByDocument removes every chunk of a document. Unknown ids delete
// zero chunks without error.
func (s *Service) DeleteByDocument(ctx context.Context, documentID string) (int, error) {
	deleted, err := s.vectors.DeleteByDocument(ctx, documentID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete chunks for document %s: %w", documentID, err)
	}

	if deleted > 0 {
		s.logger.Info().
			Str("document_id", documentID).
			Int("chunks", deleted).
			Msg("Removed document from index")
	}
	return deleted, nil
}

// Stats reports index size, document count, chunk type histogram and the
// embedding dimension.
func (s *Service) Stats(ctx context.Context) (*models.IndexStats, error) {
	total, err := s.vectors.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count chunks: %w", err)
	}

	documentIDs, err := s.vectors.DocumentIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list document ids: %w", err)
	}

	chunkTypes, err := s.vectors.CountByType(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count chunk types: %w", err)
	}

	return &models.IndexStats{
		TotalChunks:        total,
		UniqueDocuments:    len(documentIDs),
		ChunkTypes:         chunkTypes,
		EmbeddingDimension: s.Dimension(),
	}, nil
}

// Cleanup removes embedded chunks older than the retention horizon and
// returns how many were removed.
func (s *Service) Cleanup(ctx context.Context, olderThan time.Duration) (int, error) {
	cutoff := time.Now().UTC().Add(-olderThan)
	deleted, err := s.vectors.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to clean up old chunks: %w", err)
	}

	if deleted > 0 {
		s.logger.Info().
			Int("chunks", deleted).
			Str("older_than", olderThan.String()).
			Msg("Cleaned up old chunks")
	}
	return deleted, nil
}

// Export dumps the full index, vectors included, for offline analysis.
func (s *Service) Export(ctx context.Context) (*models.IndexExport, error) {
	chunks, err := s.vectors.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to export index: %w", err)
	}

	export := &models.IndexExport{
		ExportedAt: time.Now().UTC(),
		Model:      s.embedding.ModelName(),
		Dimension:  s.Dimension(),
		Chunks:     make([]models.EmbeddedChunk, 0, len(chunks)),
	}
	for _, chunk := range chunks {
		export.Chunks = append(export.Chunks, *chunk)
	}

	s.logger.Info().
		Int("chunks", len(export.Chunks)).
		Msg("Exported index")

	return export, nil
}

// Dimension returns the fixed vector length of this index instance.
func (s *Service) Dimension() int {
	return s.embedding.Dimension()
}

// cosineSimilarity computes similarity in float64 over float32 vectors.
// Zero or mismatched vectors score 0 rather than NaN.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
