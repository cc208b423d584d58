package llm

import (
	"errors"
	"testing"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/respondeo/internal/common"
	"github.com/ternarybob/respondeo/internal/interfaces"
)

func TestNewProviderUnknownName(t *testing.T) {
	cfg := common.NewDefaultConfig()

	_, err := NewProvider("cohere", RoleEmbedding, cfg, arbor.NewLogger())
	if !errors.Is(err, interfaces.ErrInvalidConfiguration) {
		t.Errorf("NewProvider(cohere) error = %v, want ErrInvalidConfiguration", err)
	}
}

func TestNewProviderClaudeEmbeddingRejected(t *testing.T) {
	cfg := common.NewDefaultConfig()
	cfg.Claude.APIKey = "test-key"

	_, err := NewProvider("claude", RoleEmbedding, cfg, arbor.NewLogger())
	if !errors.Is(err, interfaces.ErrInvalidConfiguration) {
		t.Errorf("NewProvider(claude, embedding) error = %v, want ErrInvalidConfiguration", err)
	}

	// Generation role is fine
	service, err := NewProvider("claude", RoleGeneration, cfg, arbor.NewLogger())
	if err != nil {
		t.Fatalf("NewProvider(claude, generation) error = %v", err)
	}
	if service.ModelName() != cfg.Claude.Model {
		t.Errorf("ModelName() = %q, want %q", service.ModelName(), cfg.Claude.Model)
	}
}

func TestNewProviderMock(t *testing.T) {
	cfg := common.NewDefaultConfig()

	service, err := NewProvider("mock", RoleEmbedding, cfg, arbor.NewLogger())
	if err != nil {
		t.Fatalf("NewProvider(mock) error = %v", err)
	}

	if service.Dimension() != cfg.Embedding.Dimension {
		t.Errorf("Dimension() = %d, want %d", service.Dimension(), cfg.Embedding.Dimension)
	}
	if service.GetMode() != interfaces.LLMModeOffline {
		t.Errorf("GetMode() = %v, want offline", service.GetMode())
	}
}

func TestNewProviderOllamaRoleModels(t *testing.T) {
	cfg := common.NewDefaultConfig()

	embedder, err := NewProvider("ollama", RoleEmbedding, cfg, arbor.NewLogger())
	if err != nil {
		t.Fatalf("NewProvider(ollama, embedding) error = %v", err)
	}
	if embedder.ModelName() != cfg.Ollama.EmbeddingModel {
		t.Errorf("embedding ModelName() = %q, want %q", embedder.ModelName(), cfg.Ollama.EmbeddingModel)
	}

	generator, err := NewProvider("ollama", RoleGeneration, cfg, arbor.NewLogger())
	if err != nil {
		t.Fatalf("NewProvider(ollama, generation) error = %v", err)
	}
	if generator.ModelName() != cfg.Ollama.Model {
		t.Errorf("generation ModelName() = %q, want %q", generator.ModelName(), cfg.Ollama.Model)
	}
	if generator.GetMode() != interfaces.LLMModeOffline {
		t.Errorf("GetMode() = %v, want offline", generator.GetMode())
	}
}

func TestNewProviderMissingAPIKey(t *testing.T) {
	cfg := common.NewDefaultConfig()
	cfg.Gemini.APIKey = ""
	cfg.OpenAI.APIKey = ""

	if _, err := NewProvider("gemini", RoleEmbedding, cfg, arbor.NewLogger()); !errors.Is(err, interfaces.ErrInvalidConfiguration) {
		t.Errorf("NewProvider(gemini) without key error = %v, want ErrInvalidConfiguration", err)
	}
	if _, err := NewProvider("openai", RoleGeneration, cfg, arbor.NewLogger()); !errors.Is(err, interfaces.ErrInvalidConfiguration) {
		t.Errorf("NewProvider(openai) without key error = %v, want ErrInvalidConfiguration", err)
	}
}

func TestProviderNameNormalised(t *testing.T) {
	cfg := common.NewDefaultConfig()

	service, err := NewProvider("  MOCK  ", RoleEmbedding, cfg, arbor.NewLogger())
	if err != nil {
		t.Fatalf("NewProvider with padded name error = %v", err)
	}
	if service.ModelName() != "mock-embedding" {
		t.Errorf("ModelName() = %q, want mock-embedding", service.ModelName())
	}
}
