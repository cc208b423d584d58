package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/respondeo/internal/interfaces"
	"github.com/ternarybob/respondeo/internal/models"
)

// DocumentStorage implements the DocumentStorage interface with a
// mutex-guarded map.
type DocumentStorage struct {
	mu     sync.RWMutex
	docs   map[string]*models.Document
	logger arbor.ILogger
}

// NewDocumentStorage creates a new in-memory DocumentStorage instance
func NewDocumentStorage(logger arbor.ILogger) interfaces.DocumentStorage {
	return &DocumentStorage{
		docs:   make(map[string]*models.Document),
		logger: logger,
	}
}

// Save upserts a document record by id.
func (s *DocumentStorage) Save(ctx context.Context, doc *models.Document) error {
	if doc == nil || doc.ID == "" {
		return fmt.Errorf("document ID is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	stored := *doc
	s.docs[doc.ID] = &stored
	return nil
}

// Get returns a document by id.
func (s *DocumentStorage) Get(ctx context.Context, id string) (*models.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, exists := s.docs[id]
	if !exists {
		return nil, fmt.Errorf("document not found: %s", id)
	}

	copied := *doc
	return &copied, nil
}

// List returns all documents ordered by ingestion time, newest first.
func (s *DocumentStorage) List(ctx context.Context) ([]*models.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*models.Document, 0, len(s.docs))
	for _, doc := range s.docs {
		copied := *doc
		result = append(result, &copied)
	}

	sort.SliceStable(result, func(i, j int) bool {
		if !result[i].IngestedAt.Equal(result[j].IngestedAt) {
			return result[i].IngestedAt.After(result[j].IngestedAt)
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}

// Delete removes a document record. Deleting an unknown id is not an error.
func (s *DocumentStorage) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.docs, id)
	return nil
}

// Count returns the number of registered documents.
func (s *DocumentStorage) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.docs), nil
}
