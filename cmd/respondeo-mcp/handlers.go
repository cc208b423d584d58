package main

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/respondeo/internal/common"
	"github.com/ternarybob/respondeo/internal/interfaces"
)

// handleQueryKnowledgeBase implements the query_knowledge_base tool
func handleQueryKnowledgeBase(ragService interfaces.RAGService, config *common.Config, logger arbor.ILogger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query, err := request.RequireString("query")
		if err != nil || query == "" {
			return &mcp.CallToolResult{
				Content: []mcp.Content{
					mcp.NewTextContent("Error: query parameter is required"),
				},
			}, nil
		}

		topK := request.GetInt("top_k", config.Query.TopK)
		if topK > 100 {
			topK = 100
		}
		minSimilarity := request.GetFloat("min_similarity", config.Query.MinSimilarity)

		response, err := ragService.Query(ctx, query, topK, minSimilarity)
		if err != nil {
			logger.Error().Err(err).Msg("Query failed")
			return &mcp.CallToolResult{
				Content: []mcp.Content{
					mcp.NewTextContent(fmt.Sprintf("Query error: %v", err)),
				},
			}, nil
		}

		markdown := formatQueryResponse(response)
		return &mcp.CallToolResult{
			Content: []mcp.Content{
				mcp.NewTextContent(markdown),
			},
		}, nil
	}
}

// handleSearchChunks implements the search_chunks tool
func handleSearchChunks(ragService interfaces.RAGService, config *common.Config, logger arbor.ILogger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query, err := request.RequireString("query")
		if err != nil || query == "" {
			return &mcp.CallToolResult{
				Content: []mcp.Content{
					mcp.NewTextContent("Error: query parameter is required"),
				},
			}, nil
		}

		topK := request.GetInt("top_k", config.Query.TopK)
		if topK > 100 {
			topK = 100
		}
		minSimilarity := request.GetFloat("min_similarity", config.Query.MinSimilarity)

		results, err := ragService.Retrieve(ctx, query, topK, minSimilarity)
		if err != nil {
			logger.Error().Err(err).Msg("Search failed")
			return &mcp.CallToolResult{
				Content: []mcp.Content{
					mcp.NewTextContent(fmt.Sprintf("Search error: %v", err)),
				},
			}, nil
		}

		markdown := formatSearchResults(query, results)
		return &mcp.CallToolResult{
			Content: []mcp.Content{
				mcp.NewTextContent(markdown),
			},
		}, nil
	}
}

// handleGetIndexStats implements the get_index_stats tool
func handleGetIndexStats(indexService interfaces.IndexService, embedding interfaces.EmbeddingService, logger arbor.ILogger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		stats, err := indexService.Stats(ctx)
		if err != nil {
			logger.Error().Err(err).Msg("Stats failed")
			return &mcp.CallToolResult{
				Content: []mcp.Content{
					mcp.NewTextContent(fmt.Sprintf("Stats error: %v", err)),
				},
			}, nil
		}

		markdown := formatIndexStats(stats, embedding.ModelName())
		return &mcp.CallToolResult{
			Content: []mcp.Content{
				mcp.NewTextContent(markdown),
			},
		}, nil
	}
}

// handleListDocuments implements the list_documents tool
func handleListDocuments(documents interfaces.DocumentStorage, logger arbor.ILogger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		limit := request.GetInt("limit", 50)

		docs, err := documents.List(ctx)
		if err != nil {
			logger.Error().Err(err).Msg("List documents failed")
			return &mcp.CallToolResult{
				Content: []mcp.Content{
					mcp.NewTextContent(fmt.Sprintf("List error: %v", err)),
				},
			}, nil
		}

		if limit > 0 && len(docs) > limit {
			docs = docs[:limit]
		}

		markdown := formatDocumentList(docs)
		return &mcp.CallToolResult{
			Content: []mcp.Content{
				mcp.NewTextContent(markdown),
			},
		}, nil
	}
}
