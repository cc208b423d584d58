package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/respondeo/internal/common"
	"github.com/ternarybob/respondeo/internal/interfaces"
	"github.com/ternarybob/respondeo/internal/models"
)

// textFormat is the format recorded for documents ingested from raw text
// rather than a file on disk.
const textFormat = "text"

// Service runs the ingestion pipeline: extract, chunk, embed, upsert,
// register. Document ids are derived from the normalized content, so
// re-ingesting the same document reproduces the same chunk ids and the
// upsert step inserts nothing new.
type Service struct {
	registry  interfaces.ExtractorRegistry
	chunker   interfaces.ChunkerService
	index     interfaces.IndexService
	documents interfaces.DocumentStorage
	vectors   interfaces.VectorStorage

	targetSize int
	overlap    int
	logger     arbor.ILogger
}

var _ interfaces.IngestService = (*Service)(nil)

// NewService creates an ingest service wired to the extractor registry,
// chunker, index and storage manager. Chunking parameters come from the
// [chunking] config section.
func NewService(
	registry interfaces.ExtractorRegistry,
	chunker interfaces.ChunkerService,
	index interfaces.IndexService,
	storage interfaces.StorageManager,
	config *common.Config,
	logger arbor.ILogger,
) *Service {
	return &Service{
		registry:   registry,
		chunker:    chunker,
		index:      index,
		documents:  storage.DocumentStorage(),
		vectors:    storage.VectorStorage(),
		targetSize: config.Chunking.TargetSize,
		overlap:    config.Chunking.Overlap,
		logger:     logger,
	}
}

// IngestFile ingests a document from disk. The extractor is chosen by file
// extension through the registry.
func (s *Service) IngestFile(ctx context.Context, path string) (*models.IngestResult, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory, not a document", path)
	}

	extractor, err := s.registry.ForPath(path)
	if err != nil {
		return nil, err
	}

	extracted, err := extractor.Extract(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("failed to extract %s: %w", path, err)
	}

	s.logger.Debug().
		Str("path", path).
		Str("format", extractor.Format()).
		Int("pages", extracted.Pages).
		Int("chars", len(extracted.Text)).
		Msg("Document extracted")

	return s.ingest(ctx, filepath.Base(path), path, extractor.Format(), info.Size(), extracted.Text)
}

// IngestText ingests already-extracted text under a display name.
func (s *Service) IngestText(ctx context.Context, name, text string) (*models.IngestResult, error) {
	if name == "" {
		name = "untitled"
	}
	return s.ingest(ctx, name, "", textFormat, int64(len(text)), text)
}

// ingest runs chunk, embed, upsert and registry save for one document.
func (s *Service) ingest(ctx context.Context, name, sourcePath, format string, sizeBytes int64, text string) (*models.IngestResult, error) {
	start := time.Now()

	normalized := s.chunker.Normalize(text)
	documentID := common.DocumentIDForContent(normalized)

	chunks, err := s.chunker.Chunk(text, documentID, s.targetSize, s.overlap)
	if err != nil {
		return nil, fmt.Errorf("failed to chunk %s: %w", name, err)
	}

	inserted := 0
	if len(chunks) > 0 {
		embedded, err := s.index.Embed(ctx, chunks)
		if err != nil {
			return nil, fmt.Errorf("failed to embed %s: %w", name, err)
		}

		inserted, err = s.index.Upsert(ctx, embedded)
		if err != nil {
			return nil, fmt.Errorf("failed to index %s: %w", name, err)
		}
	} else {
		s.logger.Warn().
			Str("name", name).
			Msg("Document produced no chunks, registering empty")
	}

	doc := &models.Document{
		ID:         documentID,
		Name:       name,
		SourcePath: sourcePath,
		Format:     format,
		SizeBytes:  sizeBytes,
		ChunkCount: len(chunks),
		IngestedAt: time.Now().UTC(),
	}
	if err := s.documents.Save(ctx, doc); err != nil {
		return nil, fmt.Errorf("failed to register document %s: %w", documentID, err)
	}

	duration := time.Since(start)
	s.logger.Info().
		Str("document_id", documentID).
		Str("name", name).
		Str("format", format).
		Int("chunks", len(chunks)).
		Int("inserted", inserted).
		Dur("duration", duration).
		Msg("Document ingested")

	return &models.IngestResult{
		DocumentID: documentID,
		Name:       name,
		ChunkCount: len(chunks),
		Inserted:   inserted,
		Duration:   duration,
	}, nil
}

// DeleteDocument removes a document's chunks from the index and its entry
// from the registry. Unknown ids delete zero chunks without error.
func (s *Service) DeleteDocument(ctx context.Context, documentID string) (int, error) {
	deleted, err := s.index.DeleteByDocument(ctx, documentID)
	if err != nil {
		return 0, err
	}

	if err := s.documents.Delete(ctx, documentID); err != nil {
		return deleted, fmt.Errorf("failed to delete document record %s: %w", documentID, err)
	}

	s.logger.Info().
		Str("document_id", documentID).
		Int("chunks_deleted", deleted).
		Msg("Document deleted")
	return deleted, nil
}

// DocumentContent rebuilds the normalized text of an ingested document
// from its stored chunks, stripping the duplicated overlap between
// neighbours.
func (s *Service) DocumentContent(ctx context.Context, documentID string) (string, error) {
	if _, err := s.documents.Get(ctx, documentID); err != nil {
		return "", err
	}

	embedded, err := s.vectors.ByDocument(ctx, documentID)
	if err != nil {
		return "", fmt.Errorf("failed to load chunks for %s: %w", documentID, err)
	}

	chunks := make([]models.Chunk, len(embedded))
	for i := range embedded {
		chunks[i] = embedded[i].Chunk
	}
	sort.SliceStable(chunks, func(i, j int) bool {
		return chunks[i].SequenceIndex < chunks[j].SequenceIndex
	})

	return s.chunker.Reconstruct(chunks), nil
}
