package integration

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/respondeo/internal/app"
	"github.com/ternarybob/respondeo/internal/common"
)

// newTestConfig builds a hermetic configuration: in-memory storage and
// mock providers, so integration tests never touch disk or network.
func newTestConfig() *common.Config {
	config := common.NewDefaultConfig()
	config.Server.Port = 8093
	config.Storage.Type = "memory"
	config.Chunking.TargetSize = 200
	config.Chunking.Overlap = 40
	config.Embedding.Provider = "mock"
	config.Embedding.FallbackProvider = ""
	config.Embedding.Dimension = 32
	config.Generation.Provider = "mock"
	return config
}

// TestApplicationStartup verifies that the application initializes
// successfully with the test configuration, all services are properly
// initialized, and the application can be cleanly shut down.
func TestApplicationStartup(t *testing.T) {
	t.Log("=== Testing Application Startup ===")

	// Step 1: Build and validate test configuration
	config := newTestConfig()
	require.NoError(t, config.Validate(), "Test configuration should be valid")
	t.Log("✓ Configuration built and validated")

	// Step 2: Initialize logger
	logger := arbor.NewLogger()
	require.NotNil(t, logger, "Logger should be initialized")
	t.Log("✓ Logger initialized")

	// Step 3: Create application
	application, err := app.New(config, logger)
	require.NoError(t, err, "Application initialization should succeed")
	require.NotNil(t, application, "Application should not be nil")
	t.Log("✓ Application created successfully")

	// Step 4: Verify storage manager initialized
	require.NotNil(t, application.Storage, "Storage manager should be initialized")
	assert.Equal(t, "memory", application.Storage.Backend(), "Storage backend should be memory")
	require.NotNil(t, application.Storage.VectorStorage(), "Vector storage should be initialized")
	require.NotNil(t, application.Storage.DocumentStorage(), "Document storage should be initialized")
	t.Log("✓ Storage manager initialized")

	// Step 5: Verify pipeline services initialized
	require.NotNil(t, application.ExtractorRegistry, "Extractor registry should be initialized")
	require.NotNil(t, application.ChunkerService, "Chunker service should be initialized")
	require.NotNil(t, application.EmbeddingService, "Embedding service should be initialized")
	require.NotNil(t, application.IndexService, "Index service should be initialized")
	require.NotNil(t, application.IngestService, "Ingest service should be initialized")
	t.Log("✓ Pipeline services initialized")

	// Step 6: Verify embedding provider and dimension
	assert.Equal(t, "mock-embedding", application.EmbeddingService.ModelName(), "Embedding model should be the mock provider")
	assert.Equal(t, 32, application.EmbeddingService.Dimension(), "Embedding dimension should match config")
	t.Logf("✓ Embedding service using %s", application.EmbeddingService.ModelName())

	// Step 7: Verify query engine ready with a generator
	require.NotNil(t, application.RAGService, "Query engine should be initialized")
	require.NotNil(t, application.GeneratorService, "Generator should be initialized for mock provider")
	assert.True(t, application.RAGService.Ready(), "Query engine should be ready")
	t.Log("✓ Query engine ready")

	// Step 8: Verify supporting services initialized
	require.NotNil(t, application.StatusService, "Status service should be initialized")
	require.NotNil(t, application.SchedulerService, "Scheduler service should be initialized")
	require.NotNil(t, application.ReportService, "Report service should be initialized")
	assert.Nil(t, application.WatcherService, "Watcher should stay disabled by default")
	t.Log("✓ Supporting services initialized")

	// Step 9: Verify scheduler started with the stats job registered
	assert.True(t, application.SchedulerService.IsRunning(), "Scheduler should be running")
	jobStatus, err := application.SchedulerService.GetJobStatus("index-stats")
	require.NoError(t, err, "Stats job should be registered")
	assert.Equal(t, "@daily", jobStatus.Schedule, "Stats job should run daily")
	t.Log("✓ Scheduler running with stats job registered")

	// Step 10: Verify HTTP handlers initialized
	require.NotNil(t, application.APIHandler, "API handler should be initialized")
	require.NotNil(t, application.QueryHandler, "Query handler should be initialized")
	require.NotNil(t, application.DocumentHandler, "Document handler should be initialized")
	require.NotNil(t, application.StatusHandler, "Status handler should be initialized")
	require.NotNil(t, application.ReportHandler, "Report handler should be initialized")
	t.Log("✓ HTTP handlers initialized")

	// Step 11: Clean shutdown
	require.NoError(t, application.Close(), "Application should shut down cleanly")
	assert.False(t, application.SchedulerService.IsRunning(), "Scheduler should stop on shutdown")
	t.Log("✓ Application closed cleanly")

	t.Log("=== Application Startup Test PASSED ===")
}

// TestApplicationStartupWithoutGenerator verifies that generation
// provider "none" produces a working application whose answers come
// from fallback synthesis.
func TestApplicationStartupWithoutGenerator(t *testing.T) {
	t.Log("=== Testing Application Startup Without Generator ===")

	config := newTestConfig()
	config.Generation.Provider = "none"

	application, err := app.New(config, arbor.NewLogger())
	require.NoError(t, err, "Application should start without a generator")
	defer application.Close()

	assert.Nil(t, application.GeneratorService, "Generator should be nil when disabled")
	assert.True(t, application.RAGService.Ready(), "Query engine should still be ready")
	t.Log("✓ Application runs with fallback synthesis only")
}

// TestApplicationStartupRejectsBadEmbeddingProvider verifies that an
// unknown embedding provider fails startup instead of limping along
// without vectors.
func TestApplicationStartupRejectsBadEmbeddingProvider(t *testing.T) {
	t.Log("=== Testing Startup Rejects Unknown Embedding Provider ===")

	config := newTestConfig()
	config.Embedding.Provider = "nonexistent"

	application, err := app.New(config, arbor.NewLogger())
	require.Error(t, err, "Unknown embedding provider should fail startup")
	assert.Nil(t, application, "No application should be returned on failure")
	t.Logf("✓ Startup rejected: %v", err)
}
