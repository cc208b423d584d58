package status

import (
	"context"
	"sync"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/respondeo/internal/common"
	"github.com/ternarybob/respondeo/internal/interfaces"
)

// Component health states reported in the status snapshot.
const (
	HealthOK          = "ok"
	HealthUnavailable = "unavailable"
	HealthDisabled    = "disabled"
)

// Snapshot is the point-in-time system status served by /api/status.
type Snapshot struct {
	Status     string            `json:"status"` // operational or degraded
	Version    string            `json:"version"`
	Uptime     string            `json:"uptime"`
	Backend    string            `json:"backend"`
	Ready      bool              `json:"ready"`
	Components map[string]string `json:"components"`
	Timestamp  time.Time         `json:"timestamp"`
}

// Service reports system health: storage reachability, provider
// availability, engine readiness and process uptime.
type Service struct {
	startedAt time.Time
	storage   interfaces.StorageManager
	embedding interfaces.EmbeddingService
	generator interfaces.LLMService // nil when generation is disabled
	rag       interfaces.RAGService
	logger    arbor.ILogger

	mu       sync.Mutex
	lastSeen map[string]string // last reported component health, for change logging
}

// NewService creates a status service over the wired components. The
// generator may be nil when the deployment runs retrieval-only.
func NewService(
	storage interfaces.StorageManager,
	embedding interfaces.EmbeddingService,
	generator interfaces.LLMService,
	rag interfaces.RAGService,
	logger arbor.ILogger,
) *Service {
	return &Service{
		startedAt: time.Now(),
		storage:   storage,
		embedding: embedding,
		generator: generator,
		rag:       rag,
		logger:    logger,
		lastSeen:  make(map[string]string),
	}
}

// Uptime returns how long the process has been serving.
func (s *Service) Uptime() time.Duration {
	return time.Since(s.startedAt)
}

// Snapshot probes each component and assembles the status payload.
// Storage and embedding are required for "operational"; a missing or
// failing generator only degrades answer synthesis, not the service.
func (s *Service) Snapshot(ctx context.Context) *Snapshot {
	components := map[string]string{
		"storage":   s.storageHealth(ctx),
		"embedding": s.embeddingHealth(ctx),
		"generator": s.generatorHealth(ctx),
	}
	s.logChanges(components)

	overall := "operational"
	if components["storage"] != HealthOK || components["embedding"] != HealthOK {
		overall = "degraded"
	}

	return &Snapshot{
		Status:     overall,
		Version:    common.GetFullVersion(),
		Uptime:     s.Uptime().Round(time.Second).String(),
		Backend:    s.storage.Backend(),
		Ready:      s.rag.Ready(),
		Components: components,
		Timestamp:  time.Now().UTC(),
	}
}

func (s *Service) storageHealth(ctx context.Context) string {
	if _, err := s.storage.DocumentStorage().Count(ctx); err != nil {
		return HealthUnavailable
	}
	return HealthOK
}

func (s *Service) embeddingHealth(ctx context.Context) string {
	if !s.embedding.IsAvailable(ctx) {
		return HealthUnavailable
	}
	return HealthOK
}

func (s *Service) generatorHealth(ctx context.Context) string {
	if s.generator == nil {
		return HealthDisabled
	}
	if err := s.generator.HealthCheck(ctx); err != nil {
		return HealthUnavailable
	}
	return HealthOK
}

// logChanges emits one log line per component whose health changed since
// the previous snapshot, so repeated probes stay quiet in steady state.
func (s *Service) logChanges(components map[string]string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for name, health := range components {
		if previous, seen := s.lastSeen[name]; seen && previous != health {
			s.logger.Warn().
				Str("component", name).
				Str("previous", previous).
				Str("current", health).
				Msg("Component health changed")
		}
		s.lastSeen[name] = health
	}
}
