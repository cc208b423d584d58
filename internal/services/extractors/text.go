package extractors

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/respondeo/internal/interfaces"
	"github.com/ternarybob/respondeo/internal/models"
)

// TextExtractor reads plain text files as-is. Whitespace normalization
// is the chunker's job.
type TextExtractor struct {
	logger arbor.ILogger
}

// Compile-time assertion
var _ interfaces.DocumentExtractor = (*TextExtractor)(nil)

// NewTextExtractor creates a new plain text extractor.
func NewTextExtractor(logger arbor.ILogger) *TextExtractor {
	return &TextExtractor{logger: logger}
}

// Supports reports whether the path has a plain text extension.
func (e *TextExtractor) Supports(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".txt" || ext == ".text"
}

// Format names the source format.
func (e *TextExtractor) Format() string {
	return "text"
}

// Extract reads the file content verbatim.
func (e *TextExtractor) Extract(ctx context.Context, path string) (*models.ExtractedDocument, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read text file: %w", err)
	}

	e.logger.Debug().
		Str("path", path).
		Int("text_length", len(content)).
		Msg("Read text file")

	return &models.ExtractedDocument{Text: string(content)}, nil
}
