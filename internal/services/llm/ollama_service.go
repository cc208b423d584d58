package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/respondeo/internal/common"
	"github.com/ternarybob/respondeo/internal/interfaces"
)

// OllamaService implements the LLMService interface against a local
// Ollama server. It is the offline tier: no API key, no external
// network traffic, suitable as the embedding fallback provider.
type OllamaService struct {
	config     *common.OllamaConfig
	role       Role
	dimension  int
	logger     arbor.ILogger
	baseURL    string
	httpClient *http.Client
}

var _ interfaces.LLMService = (*OllamaService)(nil)

type ollamaEmbeddingRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type ollamaEmbeddingResponse struct {
	Embedding []float64 `json:"embedding"`
}

type ollamaChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ollamaChatRequest struct {
	Model    string              `json:"model"`
	Messages []ollamaChatMessage `json:"messages"`
	Stream   bool                `json:"stream"`
}

type ollamaChatResponse struct {
	Message ollamaChatMessage `json:"message"`
	Done    bool              `json:"done"`
}

// NewOllamaService creates a new Ollama LLM service instance for the
// given role. The server is not contacted at construction time; use
// HealthCheck to verify it is running.
func NewOllamaService(cfg *common.OllamaConfig, role Role, dimension int, logger arbor.ILogger) (*OllamaService, error) {
	baseURL := strings.TrimSuffix(cfg.URL, "/")
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}

	// Set default model names if not specified
	if cfg.Model == "" {
		cfg.Model = "llama3.2"
	}
	if cfg.EmbeddingModel == "" {
		cfg.EmbeddingModel = "nomic-embed-text"
	}

	// Parse timeout duration
	timeout, err := time.ParseDuration(cfg.Timeout)
	if err != nil {
		return nil, fmt.Errorf("invalid ollama timeout %q: %w", cfg.Timeout, interfaces.ErrInvalidConfiguration)
	}

	service := &OllamaService{
		config:    cfg,
		role:      role,
		dimension: dimension,
		logger:    logger,
		baseURL:   baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}

	logger.Info().
		Str("role", string(role)).
		Str("url", baseURL).
		Str("model", service.ModelName()).
		Int("dimension", dimension).
		Msg("Ollama LLM service initialized")

	return service, nil
}

// Embed generates an embedding vector for the given text using the
// configured embedding model.
func (s *OllamaService) Embed(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, fmt.Errorf("text cannot be empty for embedding generation")
	}

	reqBody := ollamaEmbeddingRequest{
		Model:  s.config.EmbeddingModel,
		Prompt: text,
	}

	var result ollamaEmbeddingResponse
	if err := s.post(ctx, "/api/embeddings", reqBody, &result); err != nil {
		return nil, fmt.Errorf("ollama embedding failed: %w", err)
	}

	if len(result.Embedding) == 0 {
		return nil, fmt.Errorf("ollama returned an empty embedding vector")
	}

	// A mismatch here means the configured model does not produce the
	// index dimension; vectors of the wrong length must never be stored.
	if len(result.Embedding) != s.dimension {
		return nil, fmt.Errorf("embedding dimension mismatch: model %s produced %d, index expects %d", s.config.EmbeddingModel, len(result.Embedding), s.dimension)
	}

	embedding := make([]float32, len(result.Embedding))
	for i, v := range result.Embedding {
		embedding[i] = float32(v)
	}

	return embedding, nil
}

// EmbedBatch generates embeddings for multiple texts, one server call
// per text.
func (s *OllamaService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	embeddings := make([][]float32, len(texts))
	for i, text := range texts {
		embedding, err := s.Embed(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("batch embedding failed at text %d of %d: %w", i+1, len(texts), err)
		}
		embeddings[i] = embedding
	}
	return embeddings, nil
}

// Chat generates a completion response based on the conversation history.
// Ollama accepts the role/content message format directly.
func (s *OllamaService) Chat(ctx context.Context, messages []interfaces.Message) (string, error) {
	if len(messages) == 0 {
		return "", fmt.Errorf("messages cannot be empty for chat completion")
	}

	ollamaMessages := make([]ollamaChatMessage, len(messages))
	for i, msg := range messages {
		ollamaMessages[i] = ollamaChatMessage{
			Role:    msg.Role,
			Content: msg.Content,
		}
	}

	reqBody := ollamaChatRequest{
		Model:    s.config.Model,
		Messages: ollamaMessages,
		Stream:   false,
	}

	startTime := time.Now()
	var result ollamaChatResponse
	if err := s.post(ctx, "/api/chat", reqBody, &result); err != nil {
		return "", fmt.Errorf("ollama chat failed: %w", err)
	}

	if strings.TrimSpace(result.Message.Content) == "" {
		return "", fmt.Errorf("ollama returned an empty chat response")
	}

	s.logger.Debug().
		Int("message_count", len(messages)).
		Int("response_length", len(result.Message.Content)).
		Dur("duration", time.Since(startTime)).
		Msg("Ollama chat completion completed")

	return result.Message.Content, nil
}

// HealthCheck verifies the Ollama server is running and reachable.
func (s *OllamaService) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/api/tags", nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("ollama server not reachable at %s (is 'ollama serve' running?): %w", s.baseURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ollama server responded with status %d", resp.StatusCode)
	}

	return nil
}

// GetMode returns the current operational mode of the LLM service.
func (s *OllamaService) GetMode() interfaces.LLMMode {
	return interfaces.LLMModeOffline
}

// ModelName returns the model this instance calls, which depends on the
// role it was constructed for.
func (s *OllamaService) ModelName() string {
	if s.role == RoleEmbedding {
		return s.config.EmbeddingModel
	}
	return s.config.Model
}

// Dimension returns the embedding vector length this service produces.
func (s *OllamaService) Dimension() int {
	return s.dimension
}

// Close releases resources and performs cleanup operations.
func (s *OllamaService) Close() error {
	s.logger.Debug().Msg("Closing Ollama LLM service")
	s.httpClient.CloseIdleConnections()
	return nil
}

// post sends a JSON request to the Ollama server and decodes the JSON
// response into result.
func (s *OllamaService) post(ctx context.Context, path string, body interface{}, result interface{}) error {
	jsonData, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+path, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request to %s failed: %w", s.baseURL+path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("ollama returned status %d: %s", resp.StatusCode, string(respBody))
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}
