package handlers

import (
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/respondeo/internal/interfaces"
	"github.com/ternarybob/respondeo/internal/models"
	"github.com/ternarybob/respondeo/pkg/api"
)

// maxUploadBytes caps multipart document uploads.
const maxUploadBytes = 32 << 20

// DocumentHandler handles document ingestion, listing, content retrieval
// and deletion.
type DocumentHandler struct {
	ingestService interfaces.IngestService
	documents     interfaces.DocumentStorage
	logger        arbor.ILogger
}

// NewDocumentHandler creates a new DocumentHandler
func NewDocumentHandler(ingestService interfaces.IngestService, documents interfaces.DocumentStorage, logger arbor.ILogger) *DocumentHandler {
	return &DocumentHandler{
		ingestService: ingestService,
		documents:     documents,
		logger:        logger,
	}
}

// CollectionHandler handles /api/documents: POST ingests, GET lists.
func (h *DocumentHandler) CollectionHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.ingest(w, r)
	case http.MethodGet:
		h.list(w, r)
	default:
		WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

// ItemHandler handles /api/documents/{id}: GET returns metadata plus
// reconstructed content, DELETE removes the document and its chunks.
func (h *DocumentHandler) ItemHandler(w http.ResponseWriter, r *http.Request) {
	documentID := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/documents/"), "/")
	if documentID == "" {
		WriteError(w, http.StatusBadRequest, "Document ID is required")
		return
	}

	switch r.Method {
	case http.MethodGet:
		h.get(w, r, documentID)
	case http.MethodDelete:
		h.delete(w, r, documentID)
	default:
		WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

// ingest accepts either a JSON body naming a server-readable path or
// inline text, or a multipart upload carrying the file itself.
func (h *DocumentHandler) ingest(w http.ResponseWriter, r *http.Request) {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		h.ingestUpload(w, r)
		return
	}

	var req api.IngestRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	var result *models.IngestResult
	var err error
	if req.Path != "" {
		result, err = h.ingestService.IngestFile(r.Context(), req.Path)
	} else {
		result, err = h.ingestService.IngestText(r.Context(), req.Name, req.Text)
	}
	if err != nil {
		h.logger.Error().Err(err).Str("path", req.Path).Msg("Ingestion failed")
		WriteServiceError(w, err)
		return
	}

	WriteJSON(w, http.StatusCreated, toIngestResponse(result))
}

// ingestUpload stages the uploaded file under its original name so the
// extractor registry can dispatch on the extension.
func (h *DocumentHandler) ingestUpload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid multipart form: "+err.Error())
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		WriteError(w, http.StatusBadRequest, "Form field 'file' is required")
		return
	}
	defer file.Close()

	name := filepath.Base(header.Filename)
	if name == "" || name == "." {
		WriteError(w, http.StatusBadRequest, "Uploaded file has no filename")
		return
	}

	staging, err := os.MkdirTemp("", "respondeo-upload-")
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "Failed to stage upload: "+err.Error())
		return
	}
	defer os.RemoveAll(staging)

	staged := filepath.Join(staging, name)
	out, err := os.Create(staged)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "Failed to stage upload: "+err.Error())
		return
	}
	if _, err := io.Copy(out, file); err != nil {
		out.Close()
		WriteError(w, http.StatusInternalServerError, "Failed to stage upload: "+err.Error())
		return
	}
	out.Close()

	result, err := h.ingestService.IngestFile(r.Context(), staged)
	if err != nil {
		h.logger.Error().Err(err).Str("filename", name).Msg("Upload ingestion failed")
		WriteServiceError(w, err)
		return
	}

	h.logger.Info().
		Str("filename", name).
		Str("document_id", result.DocumentID).
		Int("chunks", result.ChunkCount).
		Msg("Upload ingested")

	WriteJSON(w, http.StatusCreated, toIngestResponse(result))
}

func (h *DocumentHandler) list(w http.ResponseWriter, r *http.Request) {
	docs, err := h.documents.List(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to list documents")
		WriteServiceError(w, err)
		return
	}

	summaries := make([]api.DocumentSummary, 0, len(docs))
	for _, doc := range docs {
		summaries = append(summaries, toDocumentSummary(doc))
	}

	WriteJSON(w, http.StatusOK, api.DocumentListResponse{
		Documents: summaries,
		Total:     len(summaries),
	})
}

func (h *DocumentHandler) get(w http.ResponseWriter, r *http.Request, documentID string) {
	doc, err := h.documents.Get(r.Context(), documentID)
	if err != nil {
		WriteError(w, http.StatusNotFound, "Document not found: "+documentID)
		return
	}

	content, err := h.ingestService.DocumentContent(r.Context(), documentID)
	if err != nil {
		h.logger.Error().Err(err).Str("document_id", documentID).Msg("Failed to reconstruct content")
		WriteServiceError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, api.DocumentDetailResponse{
		DocumentSummary: toDocumentSummary(doc),
		Content:         content,
	})
}

func (h *DocumentHandler) delete(w http.ResponseWriter, r *http.Request, documentID string) {
	_, getErr := h.documents.Get(r.Context(), documentID)
	existed := getErr == nil

	deleted, err := h.ingestService.DeleteDocument(r.Context(), documentID)
	if err != nil {
		h.logger.Error().Err(err).Str("document_id", documentID).Msg("Deletion failed")
		WriteServiceError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, api.DeleteResponse{
		DocumentID:    documentID,
		Deleted:       existed,
		ChunksDeleted: deleted,
	})
}

func toIngestResponse(result *models.IngestResult) api.IngestResponse {
	return api.IngestResponse{
		DocumentID: result.DocumentID,
		Name:       result.Name,
		ChunkCount: result.ChunkCount,
		Inserted:   result.Inserted,
		DurationMS: result.Duration.Milliseconds(),
	}
}

func toDocumentSummary(doc *models.Document) api.DocumentSummary {
	return api.DocumentSummary{
		ID:         doc.ID,
		Name:       doc.Name,
		SourcePath: doc.SourcePath,
		Format:     doc.Format,
		SizeBytes:  doc.SizeBytes,
		ChunkCount: doc.ChunkCount,
		IngestedAt: doc.IngestedAt,
	}
}
