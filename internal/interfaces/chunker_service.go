package interfaces

import (
	"github.com/ternarybob/respondeo/internal/models"
)

// Merge strategies accepted by ChunkerService.Merge.
const (
	MergeStrategySimple = "simple"
	MergeStrategySmart  = "smart"
)

// ChunkerService splits raw extracted text into bounded, overlapping
// chunks. Splitting is deterministic: the same text and parameters always
// produce the same boundaries and ids.
type ChunkerService interface {
	// Chunk splits text for a document. targetSize must be positive and
	// overlap must satisfy 0 <= overlap < targetSize. Empty or
	// whitespace-only text yields an empty slice, not an error.
	Chunk(text, documentID string, targetSize, overlap int) ([]models.Chunk, error)

	// Normalize canonicalises whitespace and punctuation spacing.
	// Idempotent: Normalize(Normalize(x)) == Normalize(x).
	Normalize(text string) string

	// Merge recombines small sequential chunks up to targetSize using the
	// named strategy ("simple" concatenates, "smart" strips duplicated
	// overlap first).
	Merge(chunks []models.Chunk, targetSize int, strategy string) ([]models.Chunk, error)

	// Reconstruct rebuilds the normalized source text from sequential
	// chunks, stripping duplicated overlap between neighbours.
	Reconstruct(chunks []models.Chunk) string
}
