package models

import (
	"time"
)

// ModelUsedFallback marks responses synthesised without a generator,
// either because none is configured or because the generator failed.
const ModelUsedFallback = "fallback"

// SearchResult is one ranked chunk returned by a similarity search.
// Produced per query, never persisted.
type SearchResult struct {
	ChunkID    string            `json:"chunk_id"`
	Text       string            `json:"text"`
	Similarity float64           `json:"similarity"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// QueryResponse is the full answer to one natural-language query.
type QueryResponse struct {
	Query      string         `json:"query"`
	Retrieved  []SearchResult `json:"retrieved_chunks"`
	Answer     string         `json:"answer"`
	Confidence float64        `json:"confidence"`
	ModelUsed  string         `json:"model_used"`
}

// IndexStats summarises the state of the vector index.
type IndexStats struct {
	TotalChunks        int            `json:"total_chunks"`
	UniqueDocuments    int            `json:"unique_documents"`
	ChunkTypes         map[string]int `json:"chunk_type_distribution"`
	EmbeddingDimension int            `json:"embedding_dimension"`
}

// IndexExport is a full dump of the index for offline analysis.
type IndexExport struct {
	ExportedAt time.Time       `json:"exported_at"`
	Model      string          `json:"embedding_model"`
	Dimension  int             `json:"embedding_dimension"`
	Chunks     []EmbeddedChunk `json:"chunks"`
}
