package main

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// createQueryKnowledgeBaseTool returns the query_knowledge_base tool definition
func createQueryKnowledgeBaseTool() mcp.Tool {
	return mcp.NewTool("query_knowledge_base",
		mcp.WithDescription("Ask a question against the indexed documents and get a synthesised answer with sources and a confidence score"),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Natural-language question"),
		),
		mcp.WithNumber("top_k",
			mcp.Description("Maximum chunks retrieved for context (default from config, max: 100)"),
		),
		mcp.WithNumber("min_similarity",
			mcp.Description("Similarity threshold in [0,1]; lower values retrieve more loosely related chunks"),
		),
	)
}

// createSearchChunksTool returns the search_chunks tool definition
func createSearchChunksTool() mcp.Tool {
	return mcp.NewTool("search_chunks",
		mcp.WithDescription("Similarity search over indexed chunks without answer synthesis; returns raw chunks ranked by cosine similarity"),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Search text"),
		),
		mcp.WithNumber("top_k",
			mcp.Description("Maximum results (default from config, max: 100)"),
		),
		mcp.WithNumber("min_similarity",
			mcp.Description("Similarity threshold in [0,1]"),
		),
	)
}

// createGetIndexStatsTool returns the get_index_stats tool definition
func createGetIndexStatsTool() mcp.Tool {
	return mcp.NewTool("get_index_stats",
		mcp.WithDescription("Report index size, document count, chunk type distribution and the embedding model in use"),
	)
}

// createListDocumentsTool returns the list_documents tool definition
func createListDocumentsTool() mcp.Tool {
	return mcp.NewTool("list_documents",
		mcp.WithDescription("List ingested documents with format, chunk count and ingestion time"),
		mcp.WithNumber("limit",
			mcp.Description("Max results (default: 50)"),
		),
	)
}
