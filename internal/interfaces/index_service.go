package interfaces

import (
	"context"
	"time"

	"github.com/ternarybob/respondeo/internal/models"
)

// IndexService owns what is indexed: it embeds chunks, persists them with
// idempotent upsert semantics, and answers similarity queries.
type IndexService interface {
	// Embed turns chunks into embedded chunks via the embedding service.
	Embed(ctx context.Context, chunks []models.Chunk) ([]models.EmbeddedChunk, error)

	// Upsert stores embedded chunks. Ids already present are skipped,
	// never overwritten or duplicated. Returns the number inserted.
	// Vectors whose length differs from the index dimension are rejected
	// with ErrDimensionMismatch.
	Upsert(ctx context.Context, embedded []models.EmbeddedChunk) (int, error)

	// Search embeds queryText with the same model and returns at most
	// topK results with cosine similarity >= minSimilarity, sorted
	// descending, ties broken by insertion order. Empty result is not
	// an error.
	Search(ctx context.Context, queryText string, topK int, minSimilarity float64) ([]models.SearchResult, error)

	// DeleteByDocument removes every chunk of a document. Unknown ids
	// delete zero chunks without error.
	DeleteByDocument(ctx context.Context, documentID string) (int, error)

	// Stats reports index size, document count, chunk type histogram and
	// the embedding dimension.
	Stats(ctx context.Context) (*models.IndexStats, error)

	// Cleanup removes embedded chunks older than the retention horizon.
	Cleanup(ctx context.Context, olderThan time.Duration) (int, error)

	// Export dumps the full index for offline analysis.
	Export(ctx context.Context) (*models.IndexExport, error)

	// Dimension returns the fixed vector length of this index instance.
	Dimension() int
}
