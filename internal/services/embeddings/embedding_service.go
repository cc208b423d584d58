package embeddings

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/respondeo/internal/common"
	"github.com/ternarybob/respondeo/internal/interfaces"
	"github.com/ternarybob/respondeo/internal/models"
	"github.com/ternarybob/respondeo/internal/services/workers"
)

// Service generates embeddings through a two-tier provider chain: the
// primary provider is tried first, the fallback only when the primary
// cannot produce a vector. Both tiers are validated against the index
// dimension, so a vector of the wrong length never leaves this package.
type Service struct {
	primary   interfaces.LLMService
	fallback  interfaces.LLMService
	dimension int
	timeout   time.Duration
	workers   int
	logger    arbor.ILogger

	mu      sync.RWMutex
	serving interfaces.LLMService
}

var _ interfaces.EmbeddingService = (*Service)(nil)

// NewService creates an embedding service over the given provider tiers.
// The fallback may be nil to disable the second tier.
func NewService(primary, fallback interfaces.LLMService, config *common.Config, logger arbor.ILogger) *Service {
	s := &Service{
		primary:   primary,
		fallback:  fallback,
		dimension: config.Embedding.Dimension,
		timeout:   config.EmbeddingTimeout(),
		workers:   config.Embedding.BatchWorkers,
		logger:    logger,
		serving:   primary,
	}
	if s.serving == nil {
		s.serving = fallback
	}

	logger.Info().
		Str("primary", tierName(primary)).
		Str("fallback", tierName(fallback)).
		Int("dimension", s.dimension).
		Str("timeout", s.timeout.String()).
		Int("batch_workers", s.workers).
		Msg("Embedding service initialized")

	return s
}

// GenerateEmbedding produces a vector for the given text through the
// two-tier chain. Both tiers failing yields an error wrapping
// interfaces.ErrEmbeddingUnavailable.
func (s *Service) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	vector, model, err := s.embed(ctx, text)
	if err != nil {
		return nil, err
	}

	s.logger.Debug().
		Str("model", model).
		Int("dimension", len(vector)).
		Int("text_length", len(text)).
		Msg("Generated embedding")

	return vector, nil
}

// GenerateQueryEmbedding embeds a search query. Queries go through the same
// chain as documents so query and stored vectors share a space.
func (s *Service) GenerateQueryEmbedding(ctx context.Context, query string) ([]float32, error) {
	return s.GenerateEmbedding(ctx, query)
}

// EmbedChunks embeds a batch of chunks on the worker pool, preserving input
// order in the result. A chunk whose embedding fails is left out rather than
// returned half-built; cancellation aborts the batch between per-chunk calls
// and returns whatever completed along with the context error.
func (s *Service) EmbedChunks(ctx context.Context, chunks []models.Chunk) ([]models.EmbeddedChunk, error) {
	if len(chunks) == 0 {
		return []models.EmbeddedChunk{}, nil
	}

	pool := workers.NewPool(ctx, s.workers, s.logger)
	pool.Start()

	// Each job writes only its own index, so no mutex is needed around
	// the results slice.
	results := make([]*models.EmbeddedChunk, len(chunks))
	for i := range chunks {
		i := i
		chunk := chunks[i]
		job := func(jobCtx context.Context) error {
			if err := jobCtx.Err(); err != nil {
				return err
			}
			vector, model, err := s.embed(jobCtx, chunk.Text)
			if err != nil {
				return fmt.Errorf("chunk %s: %w", chunk.ChunkID, err)
			}
			results[i] = &models.EmbeddedChunk{
				Chunk:          chunk,
				Embedding:      vector,
				EmbeddingModel: model,
				EmbeddedAt:     time.Now().UTC(),
			}
			return nil
		}
		if err := pool.Submit(job); err != nil {
			break
		}
	}
	pool.Wait()

	embedded := make([]models.EmbeddedChunk, 0, len(chunks))
	for _, result := range results {
		if result != nil {
			embedded = append(embedded, *result)
		}
	}

	if err := ctx.Err(); err != nil {
		s.logger.Warn().
			Int("embedded", len(embedded)).
			Int("total", len(chunks)).
			Msg("Batch embedding cancelled")
		return embedded, err
	}

	if errs := pool.Errors(); len(errs) > 0 {
		s.logger.Warn().
			Int("failed", len(errs)).
			Int("total", len(chunks)).
			Msg("Batch embedding completed with failures")
		return embedded, fmt.Errorf("embedded %d of %d chunks: %w", len(embedded), len(chunks), errs[0])
	}

	s.logger.Debug().
		Int("count", len(embedded)).
		Msg("Batch embedding complete")

	return embedded, nil
}

// ModelName returns the model of the tier that most recently served an
// embedding (the primary until a fallback actually serves).
func (s *Service) ModelName() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.serving == nil {
		return ""
	}
	return s.serving.ModelName()
}

// Dimension returns the index dimension both tiers are validated against.
func (s *Service) Dimension() int {
	return s.dimension
}

// IsAvailable reports whether at least one tier answers its health check.
func (s *Service) IsAvailable(ctx context.Context) bool {
	if s.primary != nil {
		err := s.primary.HealthCheck(ctx)
		if err == nil {
			return true
		}
		s.logger.Debug().Err(err).Msg("Primary embedding provider unhealthy")
	}
	if s.fallback != nil {
		err := s.fallback.HealthCheck(ctx)
		if err == nil {
			return true
		}
		s.logger.Debug().Err(err).Msg("Fallback embedding provider unhealthy")
	}
	return false
}

// embed runs the two-tier chain for one text, returning the vector and the
// model name of the tier that produced it. Caller cancellation is reported
// as the context error, never as provider unavailability.
func (s *Service) embed(ctx context.Context, text string) ([]float32, string, error) {
	if strings.TrimSpace(text) == "" {
		return nil, "", fmt.Errorf("cannot generate embedding for empty text")
	}

	var primaryErr error
	if s.primary != nil {
		vector, err := s.embedWithTier(ctx, s.primary, text)
		if err == nil {
			s.markServing(s.primary)
			return vector, s.primary.ModelName(), nil
		}
		if ctx.Err() != nil {
			return nil, "", ctx.Err()
		}
		primaryErr = err
		if s.fallback != nil {
			s.logger.Warn().
				Err(err).
				Str("fallback", s.fallback.ModelName()).
				Msg("Primary embedding provider failed, trying fallback")
		}
	}

	if s.fallback != nil {
		vector, err := s.embedWithTier(ctx, s.fallback, text)
		if err == nil {
			s.markServing(s.fallback)
			return vector, s.fallback.ModelName(), nil
		}
		if ctx.Err() != nil {
			return nil, "", ctx.Err()
		}
		if primaryErr != nil {
			return nil, "", fmt.Errorf("primary (%v) and fallback (%v) providers failed: %w", primaryErr, err, interfaces.ErrEmbeddingUnavailable)
		}
		return nil, "", fmt.Errorf("fallback provider failed: %v: %w", err, interfaces.ErrEmbeddingUnavailable)
	}

	if primaryErr != nil {
		return nil, "", fmt.Errorf("primary provider failed: %v: %w", primaryErr, interfaces.ErrEmbeddingUnavailable)
	}
	return nil, "", fmt.Errorf("no embedding provider configured: %w", interfaces.ErrEmbeddingUnavailable)
}

// embedWithTier calls one provider under the per-call timeout and validates
// the vector length against the index dimension.
func (s *Service) embedWithTier(ctx context.Context, tier interfaces.LLMService, text string) ([]float32, error) {
	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	vector, err := tier.Embed(callCtx, text)
	if err != nil {
		return nil, err
	}
	if len(vector) != s.dimension {
		return nil, fmt.Errorf("embedding dimension mismatch: expected %d, got %d", s.dimension, len(vector))
	}
	return vector, nil
}

func (s *Service) markServing(tier interfaces.LLMService) {
	s.mu.Lock()
	s.serving = tier
	s.mu.Unlock()
}

func tierName(tier interfaces.LLMService) string {
	if tier == nil {
		return "none"
	}
	return tier.ModelName()
}
