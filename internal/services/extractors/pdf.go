// -----------------------------------------------------------------------
// PDF Extractor - Extract text content from PDF documents
// Uses pdfcpu for Go-native PDF processing
// -----------------------------------------------------------------------

package extractors

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/respondeo/internal/interfaces"
	"github.com/ternarybob/respondeo/internal/models"
)

// PDFExtractor extracts page text from PDF files using pdfcpu.
type PDFExtractor struct {
	logger  arbor.ILogger
	tempDir string
}

// Compile-time assertion
var _ interfaces.DocumentExtractor = (*PDFExtractor)(nil)

// NewPDFExtractor creates a new PDF extractor.
func NewPDFExtractor(logger arbor.ILogger) *PDFExtractor {
	// Temp directory for pdfcpu page content files
	tempDir := filepath.Join(os.TempDir(), "respondeo-pdf")
	os.MkdirAll(tempDir, 0755)

	return &PDFExtractor{
		logger:  logger,
		tempDir: tempDir,
	}
}

// Supports reports whether the path has a PDF extension.
func (e *PDFExtractor) Supports(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".pdf")
}

// Format names the source format.
func (e *PDFExtractor) Format() string {
	return "pdf"
}

// Extract reads the PDF and returns its full text with page markers
// between pages.
func (e *PDFExtractor) Extract(ctx context.Context, path string) (*models.ExtractedDocument, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	pdfCtx, err := api.ReadContextFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read PDF context: %w", err)
	}
	pageCount := pdfCtx.PageCount

	// pdfcpu doesn't have direct text extraction, so we extract page
	// content into files and read them back in page order.
	outDir, err := os.MkdirTemp(e.tempDir, "pages_")
	if err != nil {
		return nil, fmt.Errorf("failed to create extraction dir: %w", err)
	}
	defer os.RemoveAll(outDir)

	conf := model.NewDefaultConfiguration()
	if err := api.ExtractContentFile(path, outDir, nil, conf); err != nil {
		return nil, fmt.Errorf("failed to extract PDF content: %w", err)
	}

	files, _ := os.ReadDir(outDir)
	pageTexts := make(map[int]string)
	for _, file := range files {
		if file.IsDir() {
			continue
		}
		content, err := os.ReadFile(filepath.Join(outDir, file.Name()))
		if err != nil {
			continue
		}
		var pageNum int
		if _, err := fmt.Sscanf(file.Name(), "Content_page_%d", &pageNum); err == nil {
			pageTexts[pageNum] = string(content)
		}
	}

	var fullText strings.Builder
	for pageNum := 1; pageNum <= pageCount; pageNum++ {
		text, ok := pageTexts[pageNum]
		if !ok {
			continue
		}
		if fullText.Len() > 0 {
			fullText.WriteString(fmt.Sprintf("\n\n--- Page %d ---\n\n", pageNum))
		}
		fullText.WriteString(text)
	}

	e.logger.Debug().
		Str("path", path).
		Int("pages", pageCount).
		Int("text_length", fullText.Len()).
		Msg("Extracted PDF text")

	return &models.ExtractedDocument{
		Text:  fullText.String(),
		Pages: pageCount,
	}, nil
}
