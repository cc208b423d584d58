package interfaces

import (
	"context"
)

// LLMMode represents the operational mode of the LLM service
type LLMMode string

const (
	// LLMModeCloud indicates the service uses cloud-based LLM APIs
	LLMModeCloud LLMMode = "cloud"

	// LLMModeOffline indicates the service uses local/offline LLM models
	LLMModeOffline LLMMode = "offline"
)

// Message represents a single message in a chat conversation
type Message struct {
	// Role identifies the message sender: "user", "assistant", or "system"
	Role string

	// Content contains the text content of the message
	Content string
}

// LLMService defines the interface for language model operations including
// embeddings generation and chat completions. Implementations may use either
// cloud-based APIs (Gemini, Claude, OpenAI) or offline models (Ollama).
type LLMService interface {
	// Embed generates a fixed-dimension embedding vector for the given text.
	// The embedding is used for semantic search, similarity comparison,
	// and vector storage operations.
	//
	// Parameters:
	//   - ctx: Context for cancellation and timeout control
	//   - text: Input text to generate embedding for
	//
	// Returns:
	//   - []float32: Embedding vector of Dimension() length
	//   - error: Error if embedding generation fails
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts. Implementations
	// may batch the provider call or loop per text; either way the result
	// slice is index-aligned with the input.
	//
	// Parameters:
	//   - ctx: Context for cancellation and timeout control
	//   - texts: Input texts to generate embeddings for
	//
	// Returns:
	//   - [][]float32: One embedding per input text, same order
	//   - error: Error if any embedding fails
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Chat generates a completion response based on the conversation history.
	// The messages slice should contain the full conversation context including
	// system prompts, user messages, and previous assistant responses.
	//
	// Parameters:
	//   - ctx: Context for cancellation and timeout control
	//   - messages: Conversation history in chronological order
	//
	// Returns:
	//   - string: Generated assistant response
	//   - error: Error if chat completion fails
	Chat(ctx context.Context, messages []Message) (string, error)

	// HealthCheck verifies the LLM service is operational and can handle requests.
	// For cloud services, this may check API connectivity and authentication.
	// For offline services, this may verify the local server is reachable.
	//
	// Parameters:
	//   - ctx: Context for cancellation and timeout control
	//
	// Returns:
	//   - error: Error if service is not healthy or unreachable
	HealthCheck(ctx context.Context) error

	// GetMode returns the current operational mode of the LLM service.
	//
	// Returns:
	//   - LLMMode: Current mode (LLMModeCloud or LLMModeOffline)
	GetMode() LLMMode

	// ModelName returns the provider model identifier used for embeddings
	// and generation, e.g. "gemini-embedding-001".
	ModelName() string

	// Dimension returns the embedding vector length this service produces.
	Dimension() int

	// Close releases resources and performs cleanup operations.
	// For cloud services, this may close HTTP connections.
	// For offline services, this may shut down local model servers.
	//
	// Returns:
	//   - error: Error if cleanup fails
	Close() error
}
