package badger

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/respondeo/internal/interfaces"
	"github.com/ternarybob/respondeo/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// VectorStorage implements the VectorStorage interface for Badger.
// Embedded chunks are keyed by ChunkID; insert-if-absent rides on
// badgerhold's Insert, which rejects existing keys inside a single
// transaction.
type VectorStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewVectorStorage creates a new VectorStorage instance
func NewVectorStorage(db *BadgerDB, logger arbor.ILogger) interfaces.VectorStorage {
	return &VectorStorage{
		db:     db,
		logger: logger,
	}
}

// Insert stores a chunk unless its id is already present. Returns false
// when the id exists; the stored record is never overwritten.
func (s *VectorStorage) Insert(ctx context.Context, chunk *models.EmbeddedChunk) (bool, error) {
	if chunk == nil || chunk.ChunkID == "" {
		return false, fmt.Errorf("chunk id is required")
	}

	if err := s.db.Store().Insert(chunk.ChunkID, chunk); err != nil {
		if err == badgerhold.ErrKeyExists {
			return false, nil
		}
		return false, fmt.Errorf("failed to insert chunk %s: %w", chunk.ChunkID, err)
	}
	return true, nil
}

// Exists reports whether a chunk id is stored.
func (s *VectorStorage) Exists(ctx context.Context, chunkID string) (bool, error) {
	var chunk models.EmbeddedChunk
	if err := s.db.Store().Get(chunkID, &chunk); err != nil {
		if err == badgerhold.ErrNotFound {
			return false, nil
		}
		return false, fmt.Errorf("failed to check chunk %s: %w", chunkID, err)
	}
	return true, nil
}

// Get returns a stored chunk by id.
func (s *VectorStorage) Get(ctx context.Context, chunkID string) (*models.EmbeddedChunk, error) {
	var chunk models.EmbeddedChunk
	if err := s.db.Store().Get(chunkID, &chunk); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, fmt.Errorf("chunk not found: %s", chunkID)
		}
		return nil, fmt.Errorf("failed to get chunk %s: %w", chunkID, err)
	}
	return &chunk, nil
}

// All returns every stored chunk in stable insertion order.
func (s *VectorStorage) All(ctx context.Context) ([]*models.EmbeddedChunk, error) {
	var chunks []models.EmbeddedChunk
	if err := s.db.Store().Find(&chunks, nil); err != nil {
		return nil, fmt.Errorf("failed to list chunks: %w", err)
	}
	return sortStable(chunks), nil
}

// ByDocument returns every chunk for a document in stable insertion order.
func (s *VectorStorage) ByDocument(ctx context.Context, documentID string) ([]*models.EmbeddedChunk, error) {
	var chunks []models.EmbeddedChunk
	if err := s.db.Store().Find(&chunks, badgerhold.Where("DocumentID").Eq(documentID)); err != nil {
		return nil, fmt.Errorf("failed to list chunks for document %s: %w", documentID, err)
	}
	return sortStable(chunks), nil
}

// DeleteByDocument removes all chunks for a document and returns how many
// were removed. Unknown documents delete nothing and return no error.
func (s *VectorStorage) DeleteByDocument(ctx context.Context, documentID string) (int, error) {
	count, err := s.db.Store().Count(&models.EmbeddedChunk{}, badgerhold.Where("DocumentID").Eq(documentID))
	if err != nil {
		return 0, fmt.Errorf("failed to count chunks for document %s: %w", documentID, err)
	}
	if count == 0 {
		return 0, nil
	}

	if err := s.db.Store().DeleteMatching(&models.EmbeddedChunk{}, badgerhold.Where("DocumentID").Eq(documentID)); err != nil {
		return 0, fmt.Errorf("failed to delete chunks for document %s: %w", documentID, err)
	}

	s.logger.Debug().Str("document_id", documentID).Int("chunks", int(count)).Msg("Deleted document chunks")
	return int(count), nil
}

// DeleteOlderThan removes chunks embedded before the cutoff and returns how
// many were removed.
func (s *VectorStorage) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	query := badgerhold.Where("EmbeddedAt").Lt(cutoff)

	count, err := s.db.Store().Count(&models.EmbeddedChunk{}, query)
	if err != nil {
		return 0, fmt.Errorf("failed to count old chunks: %w", err)
	}
	if count == 0 {
		return 0, nil
	}

	if err := s.db.Store().DeleteMatching(&models.EmbeddedChunk{}, query); err != nil {
		return 0, fmt.Errorf("failed to delete old chunks: %w", err)
	}
	return int(count), nil
}

// Count returns the number of stored chunks.
func (s *VectorStorage) Count(ctx context.Context) (int, error) {
	count, err := s.db.Store().Count(&models.EmbeddedChunk{}, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to count chunks: %w", err)
	}
	return int(count), nil
}

// CountByType returns chunk counts grouped by chunk type.
func (s *VectorStorage) CountByType(ctx context.Context) (map[string]int, error) {
	var chunks []models.EmbeddedChunk
	if err := s.db.Store().Find(&chunks, nil); err != nil {
		return nil, fmt.Errorf("failed to list chunks: %w", err)
	}

	counts := make(map[string]int)
	for _, chunk := range chunks {
		counts[chunk.ChunkType]++
	}
	return counts, nil
}

// DocumentIDs returns the distinct document ids with stored chunks.
func (s *VectorStorage) DocumentIDs(ctx context.Context) ([]string, error) {
	var chunks []models.EmbeddedChunk
	if err := s.db.Store().Find(&chunks, nil); err != nil {
		return nil, fmt.Errorf("failed to list chunks: %w", err)
	}

	seen := make(map[string]bool)
	var ids []string
	for _, chunk := range chunks {
		if !seen[chunk.DocumentID] {
			seen[chunk.DocumentID] = true
			ids = append(ids, chunk.DocumentID)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// sortStable orders chunks by embed time, document and sequence. Badger
// iterates in key order, so this re-establishes the order chunks entered
// the index, which keeps similarity tie-breaking deterministic.
func sortStable(chunks []models.EmbeddedChunk) []*models.EmbeddedChunk {
	sort.SliceStable(chunks, func(i, j int) bool {
		if !chunks[i].EmbeddedAt.Equal(chunks[j].EmbeddedAt) {
			return chunks[i].EmbeddedAt.Before(chunks[j].EmbeddedAt)
		}
		if chunks[i].DocumentID != chunks[j].DocumentID {
			return chunks[i].DocumentID < chunks[j].DocumentID
		}
		return chunks[i].SequenceIndex < chunks[j].SequenceIndex
	})

	result := make([]*models.EmbeddedChunk, len(chunks))
	for i := range chunks {
		result[i] = &chunks[i]
	}
	return result
}
