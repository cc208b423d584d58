package models

import (
	"time"
)

// Document is the ingestion registry entry for one source file. The
// chunks themselves live in the vector index; this record backs the
// document list/content API and cascade deletion.
type Document struct {
	ID         string    `json:"id"`          // doc_{uuid}
	Name       string    `json:"name"`        // display name, usually the file name
	SourcePath string    `json:"source_path"` // path the document was ingested from
	Format     string    `json:"format"`      // extractor format: pdf, html, markdown, eml, text
	SizeBytes  int64     `json:"size_bytes"`
	ChunkCount int       `json:"chunk_count"`
	IngestedAt time.Time `json:"ingested_at"`
}

// ExtractedDocument is the raw output of a document extractor. The
// pipeline consumes only Text; page and table counts are carried for
// reporting.
type ExtractedDocument struct {
	Text   string `json:"text"`
	Pages  int    `json:"pages,omitempty"`
	Tables int    `json:"tables,omitempty"`
	Images int    `json:"images,omitempty"`
}

// IngestResult summarises one document ingestion run.
type IngestResult struct {
	DocumentID string        `json:"document_id"`
	Name       string        `json:"name"`
	ChunkCount int           `json:"chunk_count"`
	Inserted   int           `json:"inserted"`
	Duration   time.Duration `json:"duration"`
}
