package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/ternarybob/respondeo/internal/models"
)

// formatQueryResponse formats a full query answer as markdown
func formatQueryResponse(response *models.QueryResponse) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("## Answer\n\n%s\n\n", response.Answer))
	sb.WriteString(fmt.Sprintf("**Confidence:** %.3f\n", response.Confidence))
	sb.WriteString(fmt.Sprintf("**Model:** %s\n\n", response.ModelUsed))

	if len(response.Retrieved) == 0 {
		sb.WriteString("No chunks matched the similarity threshold.\n")
		return sb.String()
	}

	sb.WriteString(fmt.Sprintf("## Sources (%d chunks)\n\n", len(response.Retrieved)))
	for i, chunk := range response.Retrieved {
		sb.WriteString(fmt.Sprintf("### %d. %s (similarity %.3f)\n", i+1, chunk.ChunkID, chunk.Similarity))
		sb.WriteString(preview(chunk.Text, 300))
		sb.WriteString("\n\n")
	}

	return sb.String()
}

// formatSearchResults formats retrieval-only results as markdown
func formatSearchResults(query string, results []models.SearchResult) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("## Search Results for \"%s\" (%d results)\n\n", query, len(results)))

	if len(results) == 0 {
		sb.WriteString("No results found.\n")
		return sb.String()
	}

	for i, result := range results {
		sb.WriteString(fmt.Sprintf("### %d. %s\n", i+1, result.ChunkID))
		sb.WriteString(fmt.Sprintf("**Similarity:** %.3f\n", result.Similarity))
		if docID, ok := result.Metadata["document_id"]; ok {
			sb.WriteString(fmt.Sprintf("**Document:** %s\n", docID))
		}
		sb.WriteString("\n")
		sb.WriteString(preview(result.Text, 300))
		sb.WriteString("\n\n---\n\n")
	}

	return sb.String()
}

// formatIndexStats formats index statistics as markdown
func formatIndexStats(stats *models.IndexStats, modelName string) string {
	var sb strings.Builder
	sb.WriteString("## Index Statistics\n\n")
	sb.WriteString(fmt.Sprintf("- **Total chunks:** %d\n", stats.TotalChunks))
	sb.WriteString(fmt.Sprintf("- **Unique documents:** %d\n", stats.UniqueDocuments))
	sb.WriteString(fmt.Sprintf("- **Embedding dimension:** %d\n", stats.EmbeddingDimension))
	sb.WriteString(fmt.Sprintf("- **Embedding model:** %s\n", modelName))

	if len(stats.ChunkTypes) > 0 {
		sb.WriteString("\n### Chunk Types\n\n")
		for chunkType, count := range stats.ChunkTypes {
			sb.WriteString(fmt.Sprintf("- %s: %d\n", chunkType, count))
		}
	}

	return sb.String()
}

// formatDocumentList formats the document registry as markdown
func formatDocumentList(docs []*models.Document) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("## Documents (%d)\n\n", len(docs)))

	if len(docs) == 0 {
		sb.WriteString("No documents ingested.\n")
		return sb.String()
	}

	for i, doc := range docs {
		sb.WriteString(fmt.Sprintf("%d. **%s** (%s, %d chunks)\n", i+1, doc.Name, doc.Format, doc.ChunkCount))
		sb.WriteString(fmt.Sprintf("   ID: %s\n", doc.ID))
		sb.WriteString(fmt.Sprintf("   Ingested: %s\n", doc.IngestedAt.Format(time.RFC3339)))
		if doc.SourcePath != "" {
			sb.WriteString(fmt.Sprintf("   Path: %s\n", doc.SourcePath))
		}
		sb.WriteString("\n")
	}

	return sb.String()
}

// preview truncates text for inline display
func preview(text string, max int) string {
	if len(text) > max {
		return text[:max] + "..."
	}
	return text
}
