package interfaces

import (
	"context"

	"github.com/ternarybob/respondeo/internal/models"
)

// DocumentExtractor pulls raw text out of one source format. One
// implementation exists per format and the registry picks it at
// construction time from the file extension; core logic never branches
// on format strings.
type DocumentExtractor interface {
	// Extract reads the file and returns its text content.
	Extract(ctx context.Context, path string) (*models.ExtractedDocument, error)

	// Supports reports whether this extractor handles the given path.
	Supports(path string) bool

	// Format names the source format, e.g. "pdf".
	Format() string
}

// ExtractorRegistry resolves the extractor for a path.
type ExtractorRegistry interface {
	// ForPath returns the extractor for a file, or an error when no
	// registered extractor supports it.
	ForPath(path string) (DocumentExtractor, error)

	// Formats lists the registered format names.
	Formats() []string
}
