package llm

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/respondeo/internal/interfaces"
)

// MockService is a deterministic, dependency-free LLMService. It lets
// the pipeline run without any provider: embeddings are derived from
// the text's rune values, so equal texts always produce equal vectors.
type MockService struct {
	dimension int
	logger    arbor.ILogger
}

var _ interfaces.LLMService = (*MockService)(nil)

// NewMockService creates a mock LLM service producing vectors of the
// given dimension.
func NewMockService(dimension int, logger arbor.ILogger) *MockService {
	logger.Warn().
		Int("dimension", dimension).
		Msg("Created mock LLM service - embeddings are text-seeded, not semantic")

	return &MockService{
		dimension: dimension,
		logger:    logger,
	}
}

// Embed generates a deterministic vector seeded by the text content.
func (s *MockService) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	seed := 0
	for _, c := range text {
		seed += int(c)
	}

	embedding := make([]float32, s.dimension)
	for i := range embedding {
		embedding[i] = float32((seed+i)%100) / 100.0
	}

	return embedding, nil
}

// EmbedBatch generates deterministic vectors for multiple texts.
func (s *MockService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	embeddings := make([][]float32, len(texts))
	for i, text := range texts {
		embedding, err := s.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		embeddings[i] = embedding
	}
	return embeddings, nil
}

// Chat returns a canned response echoing the last message.
func (s *MockService) Chat(ctx context.Context, messages []interfaces.Message) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if len(messages) == 0 {
		return "", fmt.Errorf("messages cannot be empty for chat completion")
	}

	lastMsg := messages[len(messages)-1]
	return fmt.Sprintf("Mock response to: %s", lastMsg.Content), nil
}

// HealthCheck always passes.
func (s *MockService) HealthCheck(ctx context.Context) error {
	return nil
}

// GetMode returns the current operational mode of the LLM service.
func (s *MockService) GetMode() interfaces.LLMMode {
	return interfaces.LLMModeOffline
}

// ModelName identifies mock vectors in stored chunks and stats output.
func (s *MockService) ModelName() string {
	return "mock-embedding"
}

// Dimension returns the embedding vector length this service produces.
func (s *MockService) Dimension() int {
	return s.dimension
}

// Close releases resources and performs cleanup operations.
func (s *MockService) Close() error {
	return nil
}
