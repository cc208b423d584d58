package extractors

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/respondeo/internal/interfaces"
)

// Registry resolves the extractor for a source file. All extractors are
// registered at construction and lookup goes through Supports, so core
// logic never branches on format strings.
type Registry struct {
	extractors []interfaces.DocumentExtractor
	logger     arbor.ILogger
}

// Compile-time assertion
var _ interfaces.ExtractorRegistry = (*Registry)(nil)

// NewRegistry creates a registry with all built-in extractors registered.
func NewRegistry(logger arbor.ILogger) *Registry {
	return &Registry{
		extractors: []interfaces.DocumentExtractor{
			NewPDFExtractor(logger),
			NewHTMLExtractor(logger),
			NewMarkdownExtractor(logger),
			NewEmailExtractor(logger),
			NewTextExtractor(logger),
		},
		logger: logger,
	}
}

// ForPath returns the extractor that handles the given file.
func (r *Registry) ForPath(path string) (interfaces.DocumentExtractor, error) {
	for _, extractor := range r.extractors {
		if extractor.Supports(path) {
			return extractor, nil
		}
	}

	ext := strings.ToLower(filepath.Ext(path))
	if ext == "" {
		ext = "(no extension)"
	}
	return nil, fmt.Errorf("no extractor registered for %s files: %w", ext, interfaces.ErrInvalidConfiguration)
}

// Formats lists the registered format names.
func (r *Registry) Formats() []string {
	formats := make([]string, 0, len(r.extractors))
	for _, extractor := range r.extractors {
		formats = append(formats, extractor.Format())
	}
	return formats
}
