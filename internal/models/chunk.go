package models

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// Chunk types produced by the chunker. The type records which splitting
// strategy created the chunk, which feeds the index histogram and lets
// the merge utilities treat sentence groups differently from paragraphs.
const (
	ChunkTypeParagraph      = "paragraph"
	ChunkTypeSentenceGroup  = "sentence_group"
	ChunkTypeCharacterSplit = "character_split"
	ChunkTypeOptimized      = "optimized"
)

// Chunk is a retrieval-sized unit of document text. Chunks are created
// once during ingestion and never mutated; deletion happens only as a
// cascade of document deletion.
type Chunk struct {
	ChunkID        string    `json:"chunk_id"`
	DocumentID     string    `json:"document_id"`
	Text           string    `json:"text"`
	SequenceIndex  int       `json:"sequence_index"`
	ParagraphIndex int       `json:"paragraph_index"`
	ChunkType      string    `json:"chunk_type"`
	WordCount      int       `json:"word_count"`
	CharCount      int       `json:"char_count"`
	CreatedAt      time.Time `json:"created_at"`

	// Overlap context from neighbouring chunks. Empty at sequence
	// boundaries.
	ContextBefore string `json:"context_before,omitempty"`
	ContextAfter  string `json:"context_after,omitempty"`
}

// ChunkIDFor derives the stable chunk identifier for a document position.
// The id depends only on document id and sequence, so re-chunking the same
// document with the same parameters reproduces the same ids.
func ChunkIDFor(documentID string, sequenceIndex int) string {
	return fmt.Sprintf("%s_chunk_%d", documentID, sequenceIndex)
}

// NewChunk builds a chunk with derived id, counts and creation time.
func NewChunk(documentID, text string, sequenceIndex, paragraphIndex int, chunkType string) Chunk {
	return Chunk{
		ChunkID:        ChunkIDFor(documentID, sequenceIndex),
		DocumentID:     documentID,
		Text:           text,
		SequenceIndex:  sequenceIndex,
		ParagraphIndex: paragraphIndex,
		ChunkType:      chunkType,
		WordCount:      len(strings.Fields(text)),
		CharCount:      utf8.RuneCountInString(text),
		CreatedAt:      time.Now().UTC(),
	}
}

// EmbeddedChunk is a chunk plus its embedding vector. Owned by the index
// once stored; the vector dimension is fixed per index instance.
type EmbeddedChunk struct {
	Chunk

	Embedding      []float32 `json:"embedding"`
	EmbeddingModel string    `json:"embedding_model"`
	EmbeddedAt     time.Time `json:"embedded_at"`
}
