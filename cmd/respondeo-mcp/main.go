package main

import (
	"fmt"
	"os"

	"github.com/mark3labs/mcp-go/server"
	"github.com/ternarybob/arbor"
	arbor_models "github.com/ternarybob/arbor/models"
	"github.com/ternarybob/respondeo/internal/common"
	"github.com/ternarybob/respondeo/internal/interfaces"
	"github.com/ternarybob/respondeo/internal/services/embeddings"
	"github.com/ternarybob/respondeo/internal/services/index"
	"github.com/ternarybob/respondeo/internal/services/llm"
	"github.com/ternarybob/respondeo/internal/services/rag"
	"github.com/ternarybob/respondeo/internal/storage"
)

func main() {
	// Load configuration
	configPath := os.Getenv("RESPONDEO_CONFIG")
	if configPath == "" {
		configPath = "respondeo.toml"
	}

	config, err := common.LoadFromFile(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize minimal logger for MCP server (console only, no file output)
	logger := arbor.NewLogger().WithConsoleWriter(arbor_models.WriterConfiguration{
		Type:             arbor_models.LogWriterTypeConsole,
		TimeFormat:       "15:04:05",
		DisableTimestamp: false,
	}).WithLevelFromString("warn") // Minimal logging to avoid cluttering MCP stdio

	// Initialize storage
	storageManager, err := storage.NewStorageManager(logger, config)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize storage")
	}
	defer storageManager.Close()

	// Initialize the embedding tier
	primary, err := llm.NewProvider(config.Embedding.Provider, llm.RoleEmbedding, config, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize embedding provider")
	}
	defer primary.Close()

	var fallback interfaces.LLMService
	if config.Embedding.FallbackProvider != "" {
		fallback, err = llm.NewProvider(config.Embedding.FallbackProvider, llm.RoleEmbedding, config, logger)
		if err != nil {
			fallback = nil
			logger.Warn().Err(err).Msg("Fallback embedding provider unavailable")
		} else {
			defer fallback.Close()
		}
	}

	embeddingService := embeddings.NewService(primary, fallback, config, logger)

	// Optional generator for synthesised answers
	var generator interfaces.LLMService
	if provider := config.Generation.Provider; provider != "" && provider != "none" {
		generator, err = llm.NewProvider(provider, llm.RoleGeneration, config, logger)
		if err != nil {
			generator = nil
			logger.Warn().Err(err).Msg("Generation provider unavailable, answers use fallback synthesis")
		} else {
			defer generator.Close()
		}
	}

	// Index and engine over the shared storage
	indexService := index.NewService(embeddingService, storageManager.VectorStorage(), logger)
	ragService := rag.NewService(indexService, generator, config, logger)

	// Create MCP server
	mcpServer := server.NewMCPServer(
		"respondeo",
		common.GetVersion(),
		server.WithToolCapabilities(true),
	)

	// Register knowledge base tools
	mcpServer.AddTool(createQueryKnowledgeBaseTool(), handleQueryKnowledgeBase(ragService, config, logger))
	mcpServer.AddTool(createSearchChunksTool(), handleSearchChunks(ragService, config, logger))
	mcpServer.AddTool(createGetIndexStatsTool(), handleGetIndexStats(indexService, embeddingService, logger))
	mcpServer.AddTool(createListDocumentsTool(), handleListDocuments(storageManager.DocumentStorage(), logger))

	// Start server (blocks on stdio)
	if err := server.ServeStdio(mcpServer); err != nil {
		logger.Fatal().Err(err).Msg("MCP server failed")
	}
}
