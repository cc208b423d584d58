package interfaces

import (
	"context"

	"github.com/ternarybob/respondeo/internal/models"
)

// IngestService runs the full pipeline for one document: extract text,
// chunk it, embed the chunks, upsert them into the index and record the
// document in the registry. Re-ingesting the same content produces the
// same chunk ids, so the upsert step inserts nothing new.
type IngestService interface {
	// IngestFile ingests a document from disk, picking the extractor by
	// file extension.
	IngestFile(ctx context.Context, path string) (*models.IngestResult, error)

	// IngestText ingests already-extracted text under a display name.
	IngestText(ctx context.Context, name, text string) (*models.IngestResult, error)

	// DeleteDocument removes a document and all of its chunks. Unknown
	// ids report zero deletions without error.
	DeleteDocument(ctx context.Context, documentID string) (int, error)

	// DocumentContent reconstructs the normalized text of an ingested
	// document from its stored chunks.
	DocumentContent(ctx context.Context, documentID string) (string, error)
}
