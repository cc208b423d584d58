package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/respondeo/internal/common"
	"github.com/ternarybob/respondeo/internal/interfaces"
	"golang.org/x/time/rate"
)

// OpenAIService implements the LLMService interface using the OpenAI API.
// Embedding instances call the configured embedding model with the index
// dimensionality; generation instances call the chat model.
type OpenAIService struct {
	config    *common.OpenAIConfig
	role      Role
	dimension int
	logger    arbor.ILogger
	client    openai.Client
	timeout   time.Duration
	limiter   *rate.Limiter
	retry     *RetryConfig
}

var _ interfaces.LLMService = (*OpenAIService)(nil)

// convertMessagesToOpenAI converts []interfaces.Message to OpenAI message
// params. OpenAI accepts system messages inline, so no extraction is
// needed; unknown roles default to user.
func convertMessagesToOpenAI(messages []interfaces.Message) ([]openai.ChatCompletionMessageParamUnion, error) {
	if len(messages) == 0 {
		return nil, fmt.Errorf("messages cannot be empty")
	}

	// Check that at least one message has role "user"
	hasUserMessage := false
	for _, msg := range messages {
		if msg.Role == "user" {
			hasUserMessage = true
			break
		}
	}
	if !hasUserMessage {
		return nil, fmt.Errorf("at least one message must have role 'user'")
	}

	openaiMessages := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, msg := range messages {
		switch msg.Role {
		case "system":
			openaiMessages = append(openaiMessages, openai.SystemMessage(msg.Content))
		case "assistant":
			openaiMessages = append(openaiMessages, openai.AssistantMessage(msg.Content))
		default:
			openaiMessages = append(openaiMessages, openai.UserMessage(msg.Content))
		}
	}

	return openaiMessages, nil
}

// NewOpenAIService creates a new OpenAI LLM service instance for the
// given role.
//
// Errors:
//   - Missing API key (set OPENAI_API_KEY, RESPONDEO_OPENAI_API_KEY, or openai.api_key)
//   - Invalid timeout or rate limit duration
func NewOpenAIService(cfg *common.OpenAIConfig, role Role, dimension int, logger arbor.ILogger) (*OpenAIService, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai api key is required (set OPENAI_API_KEY, RESPONDEO_OPENAI_API_KEY, or openai.api_key in config): %w", interfaces.ErrInvalidConfiguration)
	}

	// Set default model names if not specified
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}
	if cfg.EmbeddingModel == "" {
		cfg.EmbeddingModel = "text-embedding-3-small"
	}

	// Parse timeout duration
	timeout, err := time.ParseDuration(cfg.Timeout)
	if err != nil {
		return nil, fmt.Errorf("invalid openai timeout %q: %w", cfg.Timeout, interfaces.ErrInvalidConfiguration)
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.RateLimit != "" {
		interval, err := time.ParseDuration(cfg.RateLimit)
		if err != nil {
			return nil, fmt.Errorf("invalid openai rate_limit %q: %w", cfg.RateLimit, interfaces.ErrInvalidConfiguration)
		}
		if interval > 0 {
			limiter = rate.NewLimiter(rate.Every(interval), 1)
		}
	}

	client := openai.NewClient(
		option.WithAPIKey(cfg.APIKey),
	)

	service := &OpenAIService{
		config:    cfg,
		role:      role,
		dimension: dimension,
		logger:    logger,
		client:    client,
		timeout:   timeout,
		limiter:   limiter,
		retry:     NewDefaultRetryConfig(),
	}

	logger.Info().
		Str("role", string(role)).
		Str("model", service.ModelName()).
		Int("dimension", dimension).
		Dur("timeout", timeout).
		Msg("OpenAI LLM service initialized")

	return service, nil
}

// Embed generates an embedding vector for the given text.
func (s *OpenAIService) Embed(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, fmt.Errorf("text cannot be empty for embedding generation")
	}

	embeddings, err := s.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}

	return embeddings[0], nil
}

// EmbedBatch generates embeddings for multiple texts in a single API
// call; the response is index-aligned with the input.
func (s *OpenAIService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait interrupted: %w", err)
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	startTime := time.Now()
	s.logger.Debug().
		Int("text_count", len(texts)).
		Msg("Starting embedding generation")

	var embeddings [][]float32
	err := callWithRetry(timeoutCtx, s.logger, s.retry, "openai embedding", func() error {
		var callErr error
		embeddings, callErr = s.generateEmbeddings(timeoutCtx, texts)
		return callErr
	})
	if err != nil {
		s.logger.Error().
			Err(err).
			Int("text_count", len(texts)).
			Msg("Embedding generation failed")
		return nil, fmt.Errorf("embedding generation failed: %w", err)
	}

	s.logger.Debug().
		Int("text_count", len(texts)).
		Dur("duration", time.Since(startTime)).
		Msg("Embedding generation completed")

	return embeddings, nil
}

// Chat generates a completion response based on the conversation history.
func (s *OpenAIService) Chat(ctx context.Context, messages []interfaces.Message) (string, error) {
	if len(messages) == 0 {
		return "", fmt.Errorf("messages cannot be empty for chat completion")
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limit wait interrupted: %w", err)
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	startTime := time.Now()
	s.logger.Debug().
		Int("message_count", len(messages)).
		Msg("Starting OpenAI chat completion")

	var response string
	err := callWithRetry(timeoutCtx, s.logger, s.retry, "openai chat", func() error {
		var callErr error
		response, callErr = s.generateCompletion(timeoutCtx, messages)
		return callErr
	})
	if err != nil {
		s.logger.Error().
			Err(err).
			Int("message_count", len(messages)).
			Msg("OpenAI chat completion failed")
		return "", fmt.Errorf("chat completion failed: %w", err)
	}

	s.logger.Debug().
		Int("message_count", len(messages)).
		Int("response_length", len(response)).
		Dur("duration", time.Since(startTime)).
		Msg("OpenAI chat completion completed")

	return response, nil
}

// HealthCheck verifies the service can reach the model its role uses,
// with a lightweight probe and a short timeout.
func (s *OpenAIService) HealthCheck(ctx context.Context) error {
	s.logger.Debug().Msg("Running OpenAI LLM service health check")

	healthCheckCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	switch s.role {
	case RoleEmbedding:
		embeddings, err := s.generateEmbeddings(healthCheckCtx, []string{"health check probe"})
		if err != nil {
			return fmt.Errorf("embedding probe failed: %w", err)
		}
		if len(embeddings) == 0 || len(embeddings[0]) == 0 {
			return fmt.Errorf("embedding probe returned empty vector")
		}
	default:
		response, err := s.generateCompletion(healthCheckCtx, []interfaces.Message{{Role: "user", Content: "ping"}})
		if err != nil {
			return fmt.Errorf("chat probe failed: %w", err)
		}
		if len(strings.TrimSpace(response)) == 0 {
			return fmt.Errorf("chat probe returned empty response")
		}
	}

	s.logger.Debug().
		Str("model", s.ModelName()).
		Msg("OpenAI LLM service health check passed")

	return nil
}

// GetMode returns the current operational mode of the LLM service.
func (s *OpenAIService) GetMode() interfaces.LLMMode {
	return interfaces.LLMModeCloud
}

// ModelName returns the model this instance calls, which depends on the
// role it was constructed for.
func (s *OpenAIService) ModelName() string {
	if s.role == RoleEmbedding {
		return s.config.EmbeddingModel
	}
	return s.config.Model
}

// Dimension returns the embedding vector length this service produces.
func (s *OpenAIService) Dimension() int {
	return s.dimension
}

// Close releases resources and performs cleanup operations.
func (s *OpenAIService) Close() error {
	s.logger.Debug().Msg("Closing OpenAI LLM service")
	return nil
}

// generateEmbeddings encapsulates the OpenAI embeddings call. Dimensions
// is passed explicitly so v3 embedding models match the index dimension.
func (s *OpenAIService) generateEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	params := openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{
			OfArrayOfStrings: texts,
		},
		Model:      openai.EmbeddingModel(s.config.EmbeddingModel),
		Dimensions: openai.Int(int64(s.dimension)),
	}

	resp, err := s.client.Embeddings.New(ctx, params)
	if err != nil {
		return nil, err
	}

	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("expected %d embeddings, got %d", len(texts), len(resp.Data))
	}

	// Place vectors by response index rather than slice position
	embeddings := make([][]float32, len(texts))
	for _, item := range resp.Data {
		idx := int(item.Index)
		if idx < 0 || idx >= len(texts) {
			return nil, fmt.Errorf("embedding index %d out of range", idx)
		}

		vector := make([]float32, len(item.Embedding))
		for i, v := range item.Embedding {
			vector[i] = float32(v)
		}

		if len(vector) != s.dimension {
			return nil, fmt.Errorf("embedding dimension mismatch: expected %d, got %d", s.dimension, len(vector))
		}

		embeddings[idx] = vector
	}

	return embeddings, nil
}

// generateCompletion encapsulates the OpenAI chat completion call.
func (s *OpenAIService) generateCompletion(ctx context.Context, messages []interfaces.Message) (string, error) {
	openaiMessages, err := convertMessagesToOpenAI(messages)
	if err != nil {
		return "", fmt.Errorf("failed to convert messages to OpenAI format: %w", err)
	}

	params := openai.ChatCompletionNewParams{
		Messages: openaiMessages,
		Model:    openai.ChatModel(s.config.Model),
	}

	// Set temperature if configured
	if s.config.Temperature > 0 {
		params.Temperature = openai.Float(float64(s.config.Temperature))
	}

	resp, err := s.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", err
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices in chat response")
	}

	response := resp.Choices[0].Message.Content
	if strings.TrimSpace(response) == "" {
		return "", fmt.Errorf("no response generated from chat model")
	}

	return response, nil
}
