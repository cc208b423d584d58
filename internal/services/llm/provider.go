package llm

import (
	"fmt"
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/respondeo/internal/common"
	"github.com/ternarybob/respondeo/internal/interfaces"
)

// Role selects which of a provider's models an instance serves. Every
// provider config block carries both a chat and an embedding model; the
// app constructs one instance per role so that ModelName and health
// probes reflect the model actually in use.
type Role string

const (
	// RoleEmbedding instances serve vector generation only.
	RoleEmbedding Role = "embedding"

	// RoleGeneration instances serve chat completions only.
	RoleGeneration Role = "generation"
)

// NewProvider builds the LLM service for a named provider and role.
// Unknown provider names and combinations that cannot work (Claude has
// no embedding endpoint) are rejected with ErrInvalidConfiguration.
func NewProvider(name string, role Role, cfg *common.Config, logger arbor.ILogger) (interfaces.LLMService, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "gemini":
		return NewGeminiService(&cfg.Gemini, role, cfg.Embedding.Dimension, logger)

	case "claude":
		if role == RoleEmbedding {
			return nil, fmt.Errorf("claude provides no embedding endpoint: %w", interfaces.ErrInvalidConfiguration)
		}
		return NewClaudeService(&cfg.Claude, logger)

	case "openai":
		return NewOpenAIService(&cfg.OpenAI, role, cfg.Embedding.Dimension, logger)

	case "ollama":
		return NewOllamaService(&cfg.Ollama, role, cfg.Embedding.Dimension, logger)

	case "mock":
		return NewMockService(cfg.Embedding.Dimension, logger), nil

	default:
		return nil, fmt.Errorf("unknown llm provider %q: %w", name, interfaces.ErrInvalidConfiguration)
	}
}
