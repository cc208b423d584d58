package memory

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/respondeo/internal/models"
)

// Test helper - newTestChunk builds an embedded chunk with a small vector
func newTestChunk(documentID string, seq int) *models.EmbeddedChunk {
	chunk := models.NewChunk(documentID, fmt.Sprintf("chunk %d of %s", seq, documentID), seq, 0, models.ChunkTypeParagraph)
	return &models.EmbeddedChunk{
		Chunk:          chunk,
		Embedding:      []float32{0.1, 0.2, 0.3},
		EmbeddingModel: "test-model",
		EmbeddedAt:     time.Now().UTC(),
	}
}

func TestInsertIsIdempotent(t *testing.T) {
	storage := NewVectorStorage(arbor.NewLogger())
	ctx := context.Background()

	chunk := newTestChunk("doc1", 0)

	inserted, err := storage.Insert(ctx, chunk)
	if err != nil {
		t.Fatalf("first Insert() error = %v", err)
	}
	if !inserted {
		t.Fatal("first Insert() = false, want true")
	}

	inserted, err = storage.Insert(ctx, chunk)
	if err != nil {
		t.Fatalf("second Insert() error = %v", err)
	}
	if inserted {
		t.Error("second Insert() = true, want false")
	}

	count, err := storage.Count(ctx)
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if count != 1 {
		t.Errorf("Count() = %d, want 1", count)
	}
}

func TestInsertDoesNotOverwrite(t *testing.T) {
	storage := NewVectorStorage(arbor.NewLogger())
	ctx := context.Background()

	original := newTestChunk("doc1", 0)
	original.Text = "original text"
	if _, err := storage.Insert(ctx, original); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}

	replacement := newTestChunk("doc1", 0)
	replacement.Text = "replacement text"
	if _, err := storage.Insert(ctx, replacement); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}

	stored, err := storage.Get(ctx, original.ChunkID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if stored.Text != "original text" {
		t.Errorf("stored text = %q, want original preserved", stored.Text)
	}
}

func TestAllPreservesInsertionOrder(t *testing.T) {
	storage := NewVectorStorage(arbor.NewLogger())
	ctx := context.Background()

	ids := []string{}
	for i := 0; i < 5; i++ {
		chunk := newTestChunk("doc-order", i)
		ids = append(ids, chunk.ChunkID)
		if _, err := storage.Insert(ctx, chunk); err != nil {
			t.Fatalf("Insert() error = %v", err)
		}
	}

	all, err := storage.All(ctx)
	if err != nil {
		t.Fatalf("All() error = %v", err)
	}
	if len(all) != len(ids) {
		t.Fatalf("All() returned %d chunks, want %d", len(all), len(ids))
	}
	for i, chunk := range all {
		if chunk.ChunkID != ids[i] {
			t.Errorf("All()[%d] = %q, want %q", i, chunk.ChunkID, ids[i])
		}
	}
}

func TestDeleteByDocument(t *testing.T) {
	storage := NewVectorStorage(arbor.NewLogger())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := storage.Insert(ctx, newTestChunk("doc-a", i)); err != nil {
			t.Fatalf("Insert() error = %v", err)
		}
	}
	for i := 0; i < 2; i++ {
		if _, err := storage.Insert(ctx, newTestChunk("doc-b", i)); err != nil {
			t.Fatalf("Insert() error = %v", err)
		}
	}

	deleted, err := storage.DeleteByDocument(ctx, "doc-a")
	if err != nil {
		t.Fatalf("DeleteByDocument() error = %v", err)
	}
	if deleted != 3 {
		t.Errorf("DeleteByDocument() = %d, want 3", deleted)
	}

	count, _ := storage.Count(ctx)
	if count != 2 {
		t.Errorf("Count() after delete = %d, want 2", count)
	}

	remaining, err := storage.ByDocument(ctx, "doc-b")
	if err != nil {
		t.Fatalf("ByDocument() error = %v", err)
	}
	if len(remaining) != 2 {
		t.Errorf("ByDocument(doc-b) = %d chunks, want 2", len(remaining))
	}
}

func TestDeleteByDocumentUnknownID(t *testing.T) {
	storage := NewVectorStorage(arbor.NewLogger())
	ctx := context.Background()

	deleted, err := storage.DeleteByDocument(ctx, "no-such-document")
	if err != nil {
		t.Fatalf("DeleteByDocument() error = %v", err)
	}
	if deleted != 0 {
		t.Errorf("DeleteByDocument() = %d, want 0", deleted)
	}
}

func TestDeleteOlderThan(t *testing.T) {
	storage := NewVectorStorage(arbor.NewLogger())
	ctx := context.Background()

	old := newTestChunk("doc-old", 0)
	old.EmbeddedAt = time.Now().UTC().Add(-48 * time.Hour)
	if _, err := storage.Insert(ctx, old); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}

	fresh := newTestChunk("doc-fresh", 0)
	if _, err := storage.Insert(ctx, fresh); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}

	deleted, err := storage.DeleteOlderThan(ctx, time.Now().UTC().Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("DeleteOlderThan() error = %v", err)
	}
	if deleted != 1 {
		t.Errorf("DeleteOlderThan() = %d, want 1", deleted)
	}

	if _, err := storage.Get(ctx, fresh.ChunkID); err != nil {
		t.Errorf("fresh chunk should survive cleanup: %v", err)
	}
}

func TestCountByTypeAndDocumentIDs(t *testing.T) {
	storage := NewVectorStorage(arbor.NewLogger())
	ctx := context.Background()

	para := newTestChunk("doc-a", 0)
	para.ChunkType = models.ChunkTypeParagraph
	group := newTestChunk("doc-a", 1)
	group.ChunkType = models.ChunkTypeSentenceGroup
	other := newTestChunk("doc-b", 0)
	other.ChunkType = models.ChunkTypeParagraph

	for _, chunk := range []*models.EmbeddedChunk{para, group, other} {
		if _, err := storage.Insert(ctx, chunk); err != nil {
			t.Fatalf("Insert() error = %v", err)
		}
	}

	counts, err := storage.CountByType(ctx)
	if err != nil {
		t.Fatalf("CountByType() error = %v", err)
	}
	if counts[models.ChunkTypeParagraph] != 2 || counts[models.ChunkTypeSentenceGroup] != 1 {
		t.Errorf("CountByType() = %v", counts)
	}

	ids, err := storage.DocumentIDs(ctx)
	if err != nil {
		t.Fatalf("DocumentIDs() error = %v", err)
	}
	if len(ids) != 2 || ids[0] != "doc-a" || ids[1] != "doc-b" {
		t.Errorf("DocumentIDs() = %v, want [doc-a doc-b]", ids)
	}
}

func TestConcurrentInsertSameID(t *testing.T) {
	storage := NewVectorStorage(arbor.NewLogger())
	ctx := context.Background()

	const goroutines = 16

	var wg sync.WaitGroup
	insertions := make(chan bool, goroutines)

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			inserted, err := storage.Insert(ctx, newTestChunk("doc-race", 0))
			if err != nil {
				t.Errorf("Insert() error = %v", err)
				return
			}
			insertions <- inserted
		}()
	}
	wg.Wait()
	close(insertions)

	wins := 0
	for inserted := range insertions {
		if inserted {
			wins++
		}
	}
	if wins != 1 {
		t.Errorf("%d inserts reported success for one id, want exactly 1", wins)
	}

	count, _ := storage.Count(ctx)
	if count != 1 {
		t.Errorf("Count() = %d, want 1", count)
	}
}

func TestConcurrentInsertDistinctIDs(t *testing.T) {
	storage := NewVectorStorage(arbor.NewLogger())
	ctx := context.Background()

	const goroutines = 32

	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(seq int) {
			defer wg.Done()
			if _, err := storage.Insert(ctx, newTestChunk("doc-parallel", seq)); err != nil {
				t.Errorf("Insert() error = %v", err)
			}
		}(i)
	}
	wg.Wait()

	count, _ := storage.Count(ctx)
	if count != goroutines {
		t.Errorf("Count() = %d, want %d", count, goroutines)
	}
}
