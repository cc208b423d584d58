package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/respondeo/internal/interfaces"
	"github.com/ternarybob/respondeo/internal/models"
)

// VectorStorage implements the VectorStorage interface with a mutex-guarded
// map plus an insertion-order slice. The existence check and insert happen
// under one lock acquisition, which is what makes Insert atomic per id.
type VectorStorage struct {
	mu     sync.RWMutex
	chunks map[string]*models.EmbeddedChunk
	order  []string
	logger arbor.ILogger
}

// NewVectorStorage creates a new in-memory VectorStorage instance
func NewVectorStorage(logger arbor.ILogger) interfaces.VectorStorage {
	return &VectorStorage{
		chunks: make(map[string]*models.EmbeddedChunk),
		logger: logger,
	}
}

// Insert stores a chunk unless its id is already present. Returns false
// when the id exists; the stored record is never overwritten.
func (s *VectorStorage) Insert(ctx context.Context, chunk *models.EmbeddedChunk) (bool, error) {
	if chunk == nil || chunk.ChunkID == "" {
		return false, fmt.Errorf("chunk id is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.chunks[chunk.ChunkID]; exists {
		return false, nil
	}

	stored := *chunk
	s.chunks[chunk.ChunkID] = &stored
	s.order = append(s.order, chunk.ChunkID)
	return true, nil
}

// Exists reports whether a chunk id is stored.
func (s *VectorStorage) Exists(ctx context.Context, chunkID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, exists := s.chunks[chunkID]
	return exists, nil
}

// Get returns a stored chunk by id.
func (s *VectorStorage) Get(ctx context.Context, chunkID string) (*models.EmbeddedChunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	chunk, exists := s.chunks[chunkID]
	if !exists {
		return nil, fmt.Errorf("chunk not found: %s", chunkID)
	}

	copied := *chunk
	return &copied, nil
}

// All returns every stored chunk in insertion order.
func (s *VectorStorage) All(ctx context.Context) ([]*models.EmbeddedChunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*models.EmbeddedChunk, 0, len(s.order))
	for _, id := range s.order {
		copied := *s.chunks[id]
		result = append(result, &copied)
	}
	return result, nil
}

// ByDocument returns every chunk for a document in insertion order.
func (s *VectorStorage) ByDocument(ctx context.Context, documentID string) ([]*models.EmbeddedChunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*models.EmbeddedChunk
	for _, id := range s.order {
		if chunk := s.chunks[id]; chunk.DocumentID == documentID {
			copied := *chunk
			result = append(result, &copied)
		}
	}
	return result, nil
}

// DeleteByDocument removes all chunks for a document and returns how many
// were removed. Unknown documents delete nothing and return no error.
func (s *VectorStorage) DeleteByDocument(ctx context.Context, documentID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.deleteWhere(func(chunk *models.EmbeddedChunk) bool {
		return chunk.DocumentID == documentID
	}), nil
}

// DeleteOlderThan removes chunks embedded before the cutoff and returns how
// many were removed.
func (s *VectorStorage) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.deleteWhere(func(chunk *models.EmbeddedChunk) bool {
		return chunk.EmbeddedAt.Before(cutoff)
	}), nil
}

// Count returns the number of stored chunks.
func (s *VectorStorage) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.chunks), nil
}

// CountByType returns chunk counts grouped by chunk type.
func (s *VectorStorage) CountByType(ctx context.Context) (map[string]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[string]int)
	for _, chunk := range s.chunks {
		counts[chunk.ChunkType]++
	}
	return counts, nil
}

// DocumentIDs returns the distinct document ids with stored chunks.
func (s *VectorStorage) DocumentIDs(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]bool)
	var ids []string
	for _, id := range s.order {
		documentID := s.chunks[id].DocumentID
		if !seen[documentID] {
			seen[documentID] = true
			ids = append(ids, documentID)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// deleteWhere removes matching chunks and compacts the order slice.
// Callers must hold the write lock.
func (s *VectorStorage) deleteWhere(match func(*models.EmbeddedChunk) bool) int {
	deleted := 0
	kept := s.order[:0]
	for _, id := range s.order {
		if match(s.chunks[id]) {
			delete(s.chunks, id)
			deleted++
			continue
		}
		kept = append(kept, id)
	}
	s.order = kept
	return deleted
}
