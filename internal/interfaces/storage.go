package interfaces

import (
	"context"
	"time"

	"github.com/ternarybob/respondeo/internal/models"
)

// VectorStorage - persistence for embedded chunks keyed by chunk id.
// Insert is insert-if-absent: an existing id is never overwritten, which
// is what makes repeated ingestion of the same document safe. Per-id
// atomicity is the backend's responsibility (transaction or lock).
type VectorStorage interface {
	// Insert operations
	Insert(ctx context.Context, chunk *models.EmbeddedChunk) (bool, error) // false when id already present
	Exists(ctx context.Context, chunkID string) (bool, error)

	// Read operations
	Get(ctx context.Context, chunkID string) (*models.EmbeddedChunk, error)
	All(ctx context.Context) ([]*models.EmbeddedChunk, error)
	ByDocument(ctx context.Context, documentID string) ([]*models.EmbeddedChunk, error)

	// Delete operations
	DeleteByDocument(ctx context.Context, documentID string) (int, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int, error)

	// Stats operations
	Count(ctx context.Context) (int, error)
	CountByType(ctx context.Context) (map[string]int, error)
	DocumentIDs(ctx context.Context) ([]string, error)
}

// DocumentStorage - registry of ingested documents
type DocumentStorage interface {
	Save(ctx context.Context, doc *models.Document) error
	Get(ctx context.Context, id string) (*models.Document, error)
	List(ctx context.Context) ([]*models.Document, error)
	Delete(ctx context.Context, id string) error
	Count(ctx context.Context) (int, error)
}

// StorageManager - composite interface for all storage operations
type StorageManager interface {
	VectorStorage() VectorStorage
	DocumentStorage() DocumentStorage
	Backend() string
	Close() error
}
