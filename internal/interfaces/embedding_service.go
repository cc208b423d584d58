package interfaces

import (
	"context"

	"github.com/ternarybob/respondeo/internal/models"
)

// EmbeddingService generates vector embeddings with two-tier provider
// fallback: a configured primary provider and a fallback tried when the
// primary cannot produce a vector. Only when both tiers fail does an
// operation report ErrEmbeddingUnavailable.
type EmbeddingService interface {
	// Generate embedding for raw text
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)

	// Generate query embedding (same model as document embeddings, so
	// query and stored vectors share a space)
	GenerateQueryEmbedding(ctx context.Context, query string) ([]float32, error)

	// Embed a batch of chunks through the worker pool. Cancellable
	// between per-chunk calls; a chunk is either fully embedded or
	// absent from the result.
	EmbedChunks(ctx context.Context, chunks []models.Chunk) ([]models.EmbeddedChunk, error)

	// Get model information (reflects the tier that is actually serving)
	ModelName() string
	Dimension() int

	// Check if at least one tier is available
	IsAvailable(ctx context.Context) bool
}
