package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/respondeo/internal/app"
	"github.com/ternarybob/respondeo/internal/server"
)

func setupTestServer(t *testing.T) (*app.App, *server.Server, string) {
	t.Helper()

	config := newTestConfig()

	application, err := app.New(config, arbor.NewLogger())
	require.NoError(t, err, "Failed to create application")

	srv := server.New(application)

	go func() {
		if err := srv.Start(); err != nil {
			t.Logf("Server error: %v", err)
		}
	}()

	time.Sleep(500 * time.Millisecond)

	serverURL := fmt.Sprintf("http://localhost:%d", config.Server.Port)
	return application, srv, serverURL
}

func postJSON(t *testing.T, url string, body interface{}) *http.Response {
	t.Helper()

	payload, err := json.Marshal(body)
	require.NoError(t, err)

	resp, err := http.Post(url, "application/json", bytes.NewReader(payload))
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()

	var result map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	return result
}

func TestDocumentLifecycleOverHTTP(t *testing.T) {
	application, srv, serverURL := setupTestServer(t)
	defer application.Close()
	defer srv.Shutdown(context.Background())

	var documentID string

	t.Run("ingest text document", func(t *testing.T) {
		resp := postJSON(t, serverURL+"/api/documents", map[string]string{
			"name": "concurrency.md",
			"text": concurrencyText,
		})
		defer resp.Body.Close()

		require.Equal(t, http.StatusCreated, resp.StatusCode)

		result := decodeBody(t, resp)
		documentID, _ = result["document_id"].(string)
		require.NotEmpty(t, documentID)
		assert.Equal(t, "concurrency.md", result["name"])
		assert.Equal(t, float64(2), result["chunk_count"])
		assert.Equal(t, float64(2), result["inserted"])
	})

	t.Run("list documents includes the new entry", func(t *testing.T) {
		resp, err := http.Get(serverURL + "/api/documents")
		require.NoError(t, err)
		defer resp.Body.Close()

		require.Equal(t, http.StatusOK, resp.StatusCode)

		result := decodeBody(t, resp)
		assert.Equal(t, float64(1), result["total"])

		documents, ok := result["documents"].([]interface{})
		require.True(t, ok, "documents should be a list")
		require.Len(t, documents, 1)

		entry := documents[0].(map[string]interface{})
		assert.Equal(t, documentID, entry["id"])
		assert.Equal(t, "concurrency.md", entry["name"])
	})

	t.Run("get document returns reconstructed content", func(t *testing.T) {
		resp, err := http.Get(serverURL + "/api/documents/" + documentID)
		require.NoError(t, err)
		defer resp.Body.Close()

		require.Equal(t, http.StatusOK, resp.StatusCode)

		result := decodeBody(t, resp)
		assert.Equal(t, documentID, result["id"])
		assert.Contains(t, result["content"], concurrencyParagraph)
	})

	t.Run("query answers from the ingested document", func(t *testing.T) {
		resp := postJSON(t, serverURL+"/api/query", map[string]interface{}{
			"query":          concurrencyParagraph,
			"top_k":          3,
			"min_similarity": 0.5,
		})
		defer resp.Body.Close()

		require.Equal(t, http.StatusOK, resp.StatusCode)

		result := decodeBody(t, resp)
		assert.NotEmpty(t, result["answer"])
		assert.Greater(t, result["confidence"].(float64), 0.0)

		retrieved, ok := result["retrieved_chunks"].([]interface{})
		require.True(t, ok, "retrieved_chunks should be a list")
		assert.NotEmpty(t, retrieved)
	})

	t.Run("search returns ranked chunks", func(t *testing.T) {
		resp := postJSON(t, serverURL+"/api/search", map[string]interface{}{
			"query":          channelsParagraph,
			"min_similarity": 0.5,
		})
		defer resp.Body.Close()

		require.Equal(t, http.StatusOK, resp.StatusCode)

		result := decodeBody(t, resp)
		require.Equal(t, float64(2), result["count"])

		results := result["results"].([]interface{})
		top := results[0].(map[string]interface{})
		assert.Equal(t, channelsParagraph, top["text"])
		assert.InDelta(t, 1.0, top["similarity"].(float64), 0.001)
	})

	t.Run("stats reflect the index state", func(t *testing.T) {
		resp, err := http.Get(serverURL + "/api/stats")
		require.NoError(t, err)
		defer resp.Body.Close()

		require.Equal(t, http.StatusOK, resp.StatusCode)

		result := decodeBody(t, resp)
		assert.Equal(t, float64(2), result["total_chunks"])
		assert.Equal(t, float64(1), result["unique_documents"])
		assert.Equal(t, "mock-embedding", result["embedding_model"])
		assert.Equal(t, "memory", result["backend"])
		assert.Equal(t, true, result["ready"])
	})

	t.Run("delete document cascades to the index", func(t *testing.T) {
		req, err := http.NewRequest(http.MethodDelete, serverURL+"/api/documents/"+documentID, nil)
		require.NoError(t, err)

		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()

		require.Equal(t, http.StatusOK, resp.StatusCode)

		result := decodeBody(t, resp)
		assert.Equal(t, true, result["deleted"])
		assert.Equal(t, float64(2), result["chunks_deleted"])
	})

	t.Run("deleted document is gone", func(t *testing.T) {
		resp, err := http.Get(serverURL + "/api/documents/" + documentID)
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}

func TestQueryEndpointValidation(t *testing.T) {
	application, srv, serverURL := setupTestServer(t)
	defer application.Close()
	defer srv.Shutdown(context.Background())

	t.Run("empty query returns bad request", func(t *testing.T) {
		resp := postJSON(t, serverURL+"/api/query", map[string]string{"query": ""})
		defer resp.Body.Close()

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

		result := decodeBody(t, resp)
		assert.NotEmpty(t, result["error"])
	})

	t.Run("query only accepts POST", func(t *testing.T) {
		resp, err := http.Get(serverURL + "/api/query")
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
	})

	t.Run("ingest requires path or text", func(t *testing.T) {
		resp := postJSON(t, serverURL+"/api/documents", map[string]string{"name": "empty.md"})
		defer resp.Body.Close()

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("unknown api route returns not found", func(t *testing.T) {
		resp, err := http.Get(serverURL + "/api/nonexistent")
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}

func TestHealthAndStatusEndpoints(t *testing.T) {
	application, srv, serverURL := setupTestServer(t)
	defer application.Close()
	defer srv.Shutdown(context.Background())

	t.Run("health endpoint reports ok", func(t *testing.T) {
		resp, err := http.Get(serverURL + "/health")
		require.NoError(t, err)
		defer resp.Body.Close()

		require.Equal(t, http.StatusOK, resp.StatusCode)

		result := decodeBody(t, resp)
		assert.Equal(t, "ok", result["status"])
		assert.Equal(t, "respondeo", result["service"])
	})

	t.Run("status endpoint reports component health", func(t *testing.T) {
		resp, err := http.Get(serverURL + "/api/status")
		require.NoError(t, err)
		defer resp.Body.Close()

		require.Equal(t, http.StatusOK, resp.StatusCode)

		result := decodeBody(t, resp)
		assert.Equal(t, true, result["ready"])
		assert.Equal(t, "memory", result["backend"])
		assert.NotEmpty(t, result["components"])
	})

	t.Run("version endpoint returns build info", func(t *testing.T) {
		resp, err := http.Get(serverURL + "/api/version")
		require.NoError(t, err)
		defer resp.Body.Close()

		require.Equal(t, http.StatusOK, resp.StatusCode)

		result := decodeBody(t, resp)
		assert.NotEmpty(t, result["version"])
	})
}
