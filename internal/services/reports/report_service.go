package reports

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/respondeo/internal/common"
	"github.com/ternarybob/respondeo/internal/interfaces"
	"github.com/ternarybob/respondeo/internal/models"
)

// Report describes one generated report file.
type Report struct {
	Path      string    `json:"path"`
	SizeBytes int       `json:"size_bytes"`
	CreatedAt time.Time `json:"created_at"`
}

// Service turns query responses into PDF reports in the configured
// reports directory.
type Service struct {
	renderer interfaces.PDFService
	dir      string
	logger   arbor.ILogger
}

// NewService creates a report service writing into the [reports] dir.
func NewService(config *common.Config, logger arbor.ILogger) *Service {
	return &Service{
		renderer: NewRenderer(logger),
		dir:      config.Reports.Dir,
		logger:   logger,
	}
}

// QueryReport renders a query response as markdown, converts it to PDF
// and writes it to disk. The filename carries a timestamp, so repeated
// reports for the same query never collide.
func (s *Service) QueryReport(response *models.QueryResponse) (*Report, error) {
	if response == nil {
		return nil, fmt.Errorf("query response is required: %w", interfaces.ErrInvalidConfiguration)
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create reports directory %s: %w", s.dir, err)
	}

	now := time.Now()
	markdown := s.queryMarkdown(response, now)
	pdf, err := s.renderer.ConvertMarkdownToPDF(markdown, "Query Report")
	if err != nil {
		return nil, err
	}

	path := filepath.Join(s.dir, fmt.Sprintf("query_report_%s.pdf", now.Format("20060102_150405")))
	if err := os.WriteFile(path, pdf, 0o644); err != nil {
		return nil, fmt.Errorf("failed to write report %s: %w", path, err)
	}

	s.logger.Info().
		Str("path", path).
		Int("size_bytes", len(pdf)).
		Int("chunks", len(response.Retrieved)).
		Msg("Query report written")

	return &Report{
		Path:      path,
		SizeBytes: len(pdf),
		CreatedAt: now,
	}, nil
}

// queryMarkdown lays the response out as a report document.
func (s *Service) queryMarkdown(response *models.QueryResponse, generatedAt time.Time) string {
	var b strings.Builder

	b.WriteString("# Query Report\n\n")
	fmt.Fprintf(&b, "Generated %s\n\n", generatedAt.Format(time.RFC1123))
	b.WriteString("---\n\n")

	b.WriteString("## Query\n\n")
	b.WriteString(response.Query)
	b.WriteString("\n\n")

	b.WriteString("## Answer\n\n")
	b.WriteString(response.Answer)
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "**Confidence:** %.3f\n\n", response.Confidence)
	fmt.Fprintf(&b, "**Model:** %s\n\n", response.ModelUsed)

	fmt.Fprintf(&b, "## Retrieved Chunks (%d)\n\n", len(response.Retrieved))
	if len(response.Retrieved) == 0 {
		b.WriteString("No chunks matched the similarity threshold.\n\n")
		return b.String()
	}

	b.WriteString("| Rank | Chunk | Similarity |\n")
	b.WriteString("|------|-------|------------|\n")
	for i, result := range response.Retrieved {
		fmt.Fprintf(&b, "| %d | %s | %.3f |\n", i+1, result.ChunkID, result.Similarity)
	}
	b.WriteString("\n")

	for i, result := range response.Retrieved {
		fmt.Fprintf(&b, "### %d. %s\n\n", i+1, result.ChunkID)
		b.WriteString(result.Text)
		b.WriteString("\n\n")
	}

	return b.String()
}
