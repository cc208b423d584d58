// Package api defines the request and response payloads of the Respondeo
// HTTP API. Handlers translate between these wire types and the internal
// domain models, so external clients never depend on internal packages.
package api

import (
	"time"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// QueryRequest is the body of POST /api/query and POST /api/search.
// TopK and MinSimilarity fall back to the server's configured defaults
// when omitted.
type QueryRequest struct {
	Query         string   `json:"query" validate:"required"`
	TopK          int      `json:"top_k,omitempty" validate:"gte=0,lte=100"`
	MinSimilarity *float64 `json:"min_similarity,omitempty" validate:"omitempty,gte=0,lte=1"`
}

// Validate checks the request against its constraints.
func (r *QueryRequest) Validate() error {
	return validate.Struct(r)
}

// RetrievedChunk is one ranked chunk in a query or search response.
type RetrievedChunk struct {
	ChunkID    string            `json:"chunk_id"`
	Text       string            `json:"text"`
	Similarity float64           `json:"similarity"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// QueryResponse is the body returned by POST /api/query.
type QueryResponse struct {
	Query           string           `json:"query"`
	RetrievedChunks []RetrievedChunk `json:"retrieved_chunks"`
	Answer          string           `json:"answer"`
	Confidence      float64          `json:"confidence"`
	ModelUsed       string           `json:"model_used"`
}

// SearchResponse is the body returned by POST /api/search.
type SearchResponse struct {
	Query   string           `json:"query"`
	Results []RetrievedChunk `json:"results"`
	Count   int              `json:"count"`
}

// IngestRequest is the body of POST /api/documents. Either Path (a file
// readable by the server) or Name+Text (inline content) must be set.
type IngestRequest struct {
	Path string `json:"path,omitempty"`
	Name string `json:"name,omitempty"`
	Text string `json:"text,omitempty"`
}

// Validate checks that exactly one ingestion source is present.
func (r *IngestRequest) Validate() error {
	if r.Path == "" && r.Text == "" {
		return &ValidationError{Field: "path", Message: "either path or text is required"}
	}
	if r.Path != "" && r.Text != "" {
		return &ValidationError{Field: "path", Message: "path and text are mutually exclusive"}
	}
	return nil
}

// IngestResponse is the body returned by POST /api/documents.
type IngestResponse struct {
	DocumentID string `json:"document_id"`
	Name       string `json:"name"`
	ChunkCount int    `json:"chunk_count"`
	Inserted   int    `json:"inserted"`
	DurationMS int64  `json:"duration_ms"`
}

// DocumentSummary is one registry entry in GET /api/documents.
type DocumentSummary struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	SourcePath string    `json:"source_path,omitempty"`
	Format     string    `json:"format"`
	SizeBytes  int64     `json:"size_bytes"`
	ChunkCount int       `json:"chunk_count"`
	IngestedAt time.Time `json:"ingested_at"`
}

// DocumentListResponse is the body returned by GET /api/documents.
type DocumentListResponse struct {
	Documents []DocumentSummary `json:"documents"`
	Total     int               `json:"total"`
}

// DocumentDetailResponse is the body returned by GET /api/documents/{id}:
// the registry entry plus the text reconstructed from stored chunks.
type DocumentDetailResponse struct {
	DocumentSummary
	Content string `json:"content"`
}

// DeleteResponse is the body returned by DELETE /api/documents/{id}.
type DeleteResponse struct {
	DocumentID    string `json:"document_id"`
	Deleted       bool   `json:"deleted"`
	ChunksDeleted int    `json:"chunks_deleted"`
}

// StatsResponse is the body returned by GET /api/stats.
type StatsResponse struct {
	TotalChunks        int            `json:"total_chunks"`
	UniqueDocuments    int            `json:"unique_documents"`
	ChunkTypes         map[string]int `json:"chunk_type_distribution"`
	EmbeddingDimension int            `json:"embedding_dimension"`
	EmbeddingModel     string         `json:"embedding_model"`
	Backend            string         `json:"backend"`
	Ready              bool           `json:"ready"`
}

// StatusResponse is the body returned by GET /api/status.
type StatusResponse struct {
	Status     string            `json:"status"`
	Version    string            `json:"version"`
	Uptime     string            `json:"uptime"`
	Backend    string            `json:"backend"`
	Ready      bool              `json:"ready"`
	Components map[string]string `json:"components"`
	Timestamp  time.Time         `json:"timestamp"`
}

// OptimizeRequest is the body of POST /api/optimize. Thresholds defaults
// to the server's candidate ladder when omitted.
type OptimizeRequest struct {
	Query      string    `json:"query" validate:"required"`
	Thresholds []float64 `json:"thresholds,omitempty" validate:"omitempty,dive,gte=0,lte=1"`
}

// Validate checks the request against its constraints.
func (r *OptimizeRequest) Validate() error {
	return validate.Struct(r)
}

// OptimizeResponse is the body returned by POST /api/optimize.
type OptimizeResponse struct {
	Query         string  `json:"query"`
	BestThreshold float64 `json:"best_threshold"`
}

// ReportRequest is the body of POST /api/reports: run a query and write
// its response as a PDF report.
type ReportRequest struct {
	Query         string   `json:"query" validate:"required"`
	TopK          int      `json:"top_k,omitempty" validate:"gte=0,lte=100"`
	MinSimilarity *float64 `json:"min_similarity,omitempty" validate:"omitempty,gte=0,lte=1"`
}

// Validate checks the request against its constraints.
func (r *ReportRequest) Validate() error {
	return validate.Struct(r)
}

// ReportResponse is the body returned by POST /api/reports.
type ReportResponse struct {
	Path      string    `json:"path"`
	SizeBytes int       `json:"size_bytes"`
	CreatedAt time.Time `json:"created_at"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error  string `json:"error"`
	Status int    `json:"status"`
}

// ValidationError reports a single invalid request field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}
