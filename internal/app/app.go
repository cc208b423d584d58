package app

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/respondeo/internal/common"
	"github.com/ternarybob/respondeo/internal/handlers"
	"github.com/ternarybob/respondeo/internal/interfaces"
	"github.com/ternarybob/respondeo/internal/services/chunker"
	"github.com/ternarybob/respondeo/internal/services/embeddings"
	"github.com/ternarybob/respondeo/internal/services/extractors"
	"github.com/ternarybob/respondeo/internal/services/index"
	"github.com/ternarybob/respondeo/internal/services/ingest"
	"github.com/ternarybob/respondeo/internal/services/llm"
	"github.com/ternarybob/respondeo/internal/services/rag"
	"github.com/ternarybob/respondeo/internal/services/reports"
	"github.com/ternarybob/respondeo/internal/services/scheduler"
	"github.com/ternarybob/respondeo/internal/services/status"
	"github.com/ternarybob/respondeo/internal/services/watcher"
	"github.com/ternarybob/respondeo/internal/storage"
)

// App holds all application components and dependencies
type App struct {
	Config  *common.Config
	Logger  arbor.ILogger
	Storage interfaces.StorageManager

	// Pipeline services
	ExtractorRegistry interfaces.ExtractorRegistry
	ChunkerService    interfaces.ChunkerService
	EmbeddingService  interfaces.EmbeddingService
	IndexService      interfaces.IndexService
	RAGService        interfaces.RAGService
	IngestService     interfaces.IngestService

	// Generator LLM; nil when generation is disabled, in which case every
	// answer uses fallback synthesis from the best retrieved chunk.
	GeneratorService interfaces.LLMService

	// Supporting services
	StatusService    *status.Service
	SchedulerService interfaces.SchedulerService
	WatcherService   *watcher.Service
	ReportService    *reports.Service

	// HTTP handlers
	APIHandler      *handlers.APIHandler
	QueryHandler    *handlers.QueryHandler
	DocumentHandler *handlers.DocumentHandler
	StatusHandler   *handlers.StatusHandler
	ReportHandler   *handlers.ReportHandler

	// Raw embedding providers, kept for shutdown
	embeddingPrimary  interfaces.LLMService
	embeddingFallback interfaces.LLMService
}

// New initializes the application with all dependencies
func New(cfg *common.Config, logger arbor.ILogger) (*App, error) {
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	if err := app.initStorage(); err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	if err := app.initServices(); err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	if err := app.initHandlers(); err != nil {
		return nil, fmt.Errorf("failed to initialize handlers: %w", err)
	}

	logger.Info().
		Str("backend", app.Storage.Backend()).
		Str("embedding_provider", cfg.Embedding.Provider).
		Str("generation_provider", cfg.Generation.Provider).
		Bool("watcher_enabled", cfg.Watcher.Enabled).
		Msg("Application initialization complete")

	return app, nil
}

// initStorage initializes the storage layer from the [storage] config section
func (a *App) initStorage() error {
	manager, err := storage.NewStorageManager(a.Logger, a.Config)
	if err != nil {
		return fmt.Errorf("failed to create storage manager: %w", err)
	}

	a.Storage = manager
	a.Logger.Debug().
		Str("backend", manager.Backend()).
		Msg("Storage layer initialized")

	return nil
}

// initServices initializes all business services in dependency order:
// extractors and chunker first, then the embedding tier, then the index
// and engine built on top of them, and finally the operational services
// (scheduler, watcher, reports, status) that wrap the pipeline.
func (a *App) initServices() error {
	a.ExtractorRegistry = extractors.NewRegistry(a.Logger)
	a.ChunkerService = chunker.NewService(a.Logger)

	// Embedding providers. The primary is required; a misconfigured
	// provider name is a startup error. The fallback tier is optional
	// and only warns when it cannot be built.
	primary, err := llm.NewProvider(a.Config.Embedding.Provider, llm.RoleEmbedding, a.Config, a.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize embedding provider %q: %w", a.Config.Embedding.Provider, err)
	}

	var fallback interfaces.LLMService
	if a.Config.Embedding.FallbackProvider != "" {
		fallback, err = llm.NewProvider(a.Config.Embedding.FallbackProvider, llm.RoleEmbedding, a.Config, a.Logger)
		if err != nil {
			fallback = nil
			a.Logger.Warn().Err(err).
				Str("provider", a.Config.Embedding.FallbackProvider).
				Msg("Failed to initialize fallback embedding provider - running without fallback tier")
		}
	}

	a.embeddingPrimary = primary
	a.embeddingFallback = fallback
	a.EmbeddingService = embeddings.NewService(primary, fallback, a.Config, a.Logger)

	// Generator provider. Generation is optional: "none" disables it, and
	// a failed health check only warns because the engine degrades to
	// fallback synthesis per query rather than failing requests.
	if provider := a.Config.Generation.Provider; provider != "" && provider != "none" {
		generator, err := llm.NewProvider(provider, llm.RoleGeneration, a.Config, a.Logger)
		if err != nil {
			a.Logger.Warn().Err(err).
				Str("provider", provider).
				Msg("Failed to initialize generation provider - answers will use fallback synthesis")
		} else {
			if err := generator.HealthCheck(context.Background()); err != nil {
				a.Logger.Warn().Err(err).
					Str("provider", provider).
					Msg("Generation provider health check failed - answers use fallback synthesis until it recovers")
			}
			a.GeneratorService = generator
		}
	} else {
		a.Logger.Debug().Msg("Answer generation disabled, using fallback synthesis")
	}

	a.IndexService = index.NewService(a.EmbeddingService, a.Storage.VectorStorage(), a.Logger)
	a.RAGService = rag.NewService(a.IndexService, a.GeneratorService, a.Config, a.Logger)
	a.IngestService = ingest.NewService(
		a.ExtractorRegistry,
		a.ChunkerService,
		a.IndexService,
		a.Storage,
		a.Config,
		a.Logger,
	)

	a.StatusService = status.NewService(a.Storage, a.EmbeddingService, a.GeneratorService, a.RAGService, a.Logger)
	a.ReportService = reports.NewService(a.Config, a.Logger)

	if err := a.initScheduler(); err != nil {
		return err
	}

	if a.Config.Watcher.Enabled {
		a.WatcherService = watcher.NewService(a.IngestService, a.Storage.DocumentStorage(), a.Config, a.Logger)
		if err := a.WatcherService.Start(); err != nil {
			return fmt.Errorf("failed to start watcher service: %w", err)
		}
		a.Logger.Debug().Str("dir", a.Config.Watcher.Dir).Msg("Watcher service started")
	}

	return nil
}

// initScheduler wires the cron scheduler and its maintenance jobs.
func (a *App) initScheduler() error {
	sched := scheduler.NewService(a.Logger)
	a.SchedulerService = sched

	// Daily stats snapshot keeps index growth visible in the logs.
	err := sched.RegisterJob("index-stats", "@daily", "Log index statistics", func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		stats, err := a.IndexService.Stats(ctx)
		if err != nil {
			return err
		}
		a.Logger.Info().
			Int("total_chunks", stats.TotalChunks).
			Int("unique_documents", stats.UniqueDocuments).
			Msg("Index statistics")
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to register stats job: %w", err)
	}

	if a.Config.Maintenance.Enabled {
		retention := time.Duration(a.Config.Maintenance.RetentionDays) * 24 * time.Hour
		err := sched.RegisterJob("index-cleanup", a.Config.Maintenance.Schedule, "Remove chunks past the retention horizon", func() error {
			if a.Config.Maintenance.RetentionDays <= 0 {
				return nil
			}
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
			defer cancel()

			deleted, err := a.IndexService.Cleanup(ctx, retention)
			if err != nil {
				return err
			}
			if deleted > 0 {
				a.Logger.Info().
					Int("deleted", deleted).
					Int("retention_days", a.Config.Maintenance.RetentionDays).
					Msg("Index cleanup removed expired chunks")
			}
			return nil
		})
		if err != nil {
			return fmt.Errorf("failed to register cleanup job: %w", err)
		}
	}

	if err := sched.Start(); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}
	a.Logger.Debug().Bool("maintenance", a.Config.Maintenance.Enabled).Msg("Scheduler started")

	return nil
}

// initHandlers initializes all HTTP handlers
func (a *App) initHandlers() error {
	a.APIHandler = handlers.NewAPIHandler(a.Logger)
	a.QueryHandler = handlers.NewQueryHandler(a.RAGService, a.Config, a.Logger)
	a.DocumentHandler = handlers.NewDocumentHandler(a.IngestService, a.Storage.DocumentStorage(), a.Logger)
	a.StatusHandler = handlers.NewStatusHandler(a.StatusService, a.IndexService, a.EmbeddingService, a.Storage, a.RAGService, a.Logger)
	a.ReportHandler = handlers.NewReportHandler(a.RAGService, a.ReportService, a.Config, a.Logger)

	return nil
}

// Close closes all application resources
func (a *App) Close() error {
	if a.WatcherService != nil {
		if err := a.WatcherService.Stop(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to stop watcher service")
		}
	}

	if a.SchedulerService != nil {
		if err := a.SchedulerService.Stop(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to stop scheduler service")
		}
	}

	if a.GeneratorService != nil {
		if err := a.GeneratorService.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close generation provider")
		}
	}

	if a.embeddingFallback != nil {
		if err := a.embeddingFallback.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close fallback embedding provider")
		}
	}

	if a.embeddingPrimary != nil {
		if err := a.embeddingPrimary.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close embedding provider")
		}
	}

	if a.Storage != nil {
		if err := a.Storage.Close(); err != nil {
			return fmt.Errorf("failed to close storage: %w", err)
		}
		a.Logger.Info().Msg("Storage closed")
	}

	return nil
}
