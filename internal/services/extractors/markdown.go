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
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	extast "github.com/yuin/goldmark/extension/ast"
	gmtext "github.com/yuin/goldmark/text"
)

// MarkdownExtractor flattens markdown to plain text through the goldmark
// AST so formatting syntax never shows up inside chunks.
type MarkdownExtractor struct {
	logger arbor.ILogger
}

// Compile-time assertion
var _ interfaces.DocumentExtractor = (*MarkdownExtractor)(nil)

// NewMarkdownExtractor creates a new markdown extractor.
func NewMarkdownExtractor(logger arbor.ILogger) *MarkdownExtractor {
	return &MarkdownExtractor{logger: logger}
}

// Supports reports whether the path has a markdown extension.
func (e *MarkdownExtractor) Supports(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".md" || ext == ".markdown"
}

// Format names the source format.
func (e *MarkdownExtractor) Format() string {
	return "markdown"
}

// Extract parses the markdown file and returns its plain text, block
// elements separated by blank lines.
func (e *MarkdownExtractor) Extract(ctx context.Context, path string) (*models.ExtractedDocument, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read markdown file: %w", err)
	}

	source := []byte(stripFrontmatter(string(raw)))

	parser := goldmark.New(
		goldmark.WithExtensions(extension.Table, extension.Strikethrough, extension.Linkify),
	)
	doc := parser.Parser().Parse(gmtext.NewReader(source))

	var buf strings.Builder
	tables := 0
	images := 0

	err = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		switch node := n.(type) {
		case *ast.Text:
			if entering {
				buf.Write(node.Segment.Value(source))
				if node.SoftLineBreak() || node.HardLineBreak() {
					buf.WriteByte('\n')
				}
			}
		case *ast.AutoLink:
			if entering {
				buf.Write(node.URL(source))
			}
		case *ast.Heading, *ast.Paragraph:
			if !entering {
				buf.WriteString("\n\n")
			}
		case *ast.ListItem:
			if !entering {
				buf.WriteByte('\n')
			}
		case *ast.FencedCodeBlock:
			if entering {
				writeSegmentLines(&buf, node.Lines(), source)
				buf.WriteString("\n")
				return ast.WalkSkipChildren, nil
			}
		case *ast.CodeBlock:
			if entering {
				writeSegmentLines(&buf, node.Lines(), source)
				buf.WriteString("\n")
				return ast.WalkSkipChildren, nil
			}
		case *ast.Image:
			if entering {
				images++
			}
		case *extast.Table:
			if entering {
				tables++
			}
		case *extast.TableRow:
			if !entering {
				buf.WriteByte('\n')
			}
		case *extast.TableCell:
			if !entering {
				buf.WriteByte(' ')
			}
		}
		return ast.WalkContinue, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk markdown AST: %w", err)
	}

	text := strings.TrimSpace(excessBlankLines.ReplaceAllString(buf.String(), "\n\n"))

	e.logger.Debug().
		Str("path", path).
		Int("tables", tables).
		Int("images", images).
		Int("text_length", len(text)).
		Msg("Extracted markdown text")

	return &models.ExtractedDocument{
		Text:   text,
		Tables: tables,
		Images: images,
	}, nil
}

// writeSegmentLines copies raw source lines of a code block into the buffer.
func writeSegmentLines(buf *strings.Builder, lines *gmtext.Segments, source []byte) {
	for i := 0; i < lines.Len(); i++ {
		line := lines.At(i)
		buf.Write(line.Value(source))
	}
}

// stripFrontmatter removes YAML frontmatter delimited by --- at the
// start of the content.
func stripFrontmatter(markdown string) string {
	if !strings.HasPrefix(markdown, "---\n") {
		return markdown
	}

	endIdx := strings.Index(markdown[4:], "\n---\n")
	if endIdx == -1 {
		return markdown
	}

	return strings.TrimSpace(markdown[4+endIdx+5:])
}
