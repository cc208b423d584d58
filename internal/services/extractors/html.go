package extractors

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/respondeo/internal/interfaces"
	"github.com/ternarybob/respondeo/internal/models"
)

var excessBlankLines = regexp.MustCompile(`\n{3,}`)

// HTMLExtractor extracts readable text from HTML files. The DOM is
// cleaned with goquery before markdown conversion so navigation chrome
// never reaches the chunker.
type HTMLExtractor struct {
	logger arbor.ILogger
}

// Compile-time assertion
var _ interfaces.DocumentExtractor = (*HTMLExtractor)(nil)

// NewHTMLExtractor creates a new HTML extractor.
func NewHTMLExtractor(logger arbor.ILogger) *HTMLExtractor {
	return &HTMLExtractor{logger: logger}
}

// Supports reports whether the path has an HTML extension.
func (e *HTMLExtractor) Supports(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".html" || ext == ".htm"
}

// Format names the source format.
func (e *HTMLExtractor) Format() string {
	return "html"
}

// Extract parses the HTML file, strips non-content elements and returns
// the main content converted to markdown text.
func (e *HTMLExtractor) Extract(ctx context.Context, path string) (*models.ExtractedDocument, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read HTML file: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(raw)))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	tables := doc.Find("table").Length()
	images := doc.Find("img").Length()

	// Remove script and style elements
	doc.Find("script, style, nav, footer, aside").Remove()

	// Process the main content area
	selection := doc.Find("main, article, .content, .main-content, #content, #main, body").First()
	if selection.Length() == 0 {
		selection = doc.Find("body")
	}

	html, err := selection.Html()
	if err != nil {
		return nil, fmt.Errorf("failed to render content HTML: %w", err)
	}

	converter := md.NewConverter("", true, nil)
	markdown, err := converter.ConvertString(html)
	if err != nil {
		e.logger.Warn().Err(err).Str("path", path).Msg("HTML to markdown conversion failed, using stripped text")
		markdown = selection.Text()
	}
	if strings.TrimSpace(markdown) == "" {
		markdown = selection.Text()
	}

	text := strings.TrimSpace(excessBlankLines.ReplaceAllString(markdown, "\n\n"))

	e.logger.Debug().
		Str("path", path).
		Int("tables", tables).
		Int("images", images).
		Int("text_length", len(text)).
		Msg("Extracted HTML text")

	return &models.ExtractedDocument{
		Text:   text,
		Tables: tables,
		Images: images,
	}, nil
}
