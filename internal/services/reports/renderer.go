package reports

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/go-pdf/fpdf"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/respondeo/internal/interfaces"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	extast "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"
)

// Page geometry for A4 portrait with 12mm margins.
const (
	pageMargin   = 12.0
	contentWidth = 186.0
	bodyFontSize = 9.0
	lineHeight   = 5.0
)

// Renderer converts markdown to PDF by walking the goldmark AST and
// emitting fpdf drawing calls. It covers the constructs query reports
// produce: headings, paragraphs, emphasis, code, lists, rules and tables.
type Renderer struct {
	logger arbor.ILogger
}

var _ interfaces.PDFService = (*Renderer)(nil)

// NewRenderer creates a markdown-to-PDF renderer.
func NewRenderer(logger arbor.ILogger) *Renderer {
	return &Renderer{logger: logger}
}

// ConvertMarkdownToPDF converts markdown content to a PDF byte slice.
// The title goes into the PDF document properties, not the page; reports
// carry their own H1.
func (r *Renderer) ConvertMarkdownToPDF(markdown, title string) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(title, true)
	pdf.SetMargins(pageMargin, pageMargin, pageMargin)
	pdf.SetAutoPageBreak(true, pageMargin)
	pdf.AddPage()
	pdf.SetFont("Arial", "", bodyFontSize)

	md := goldmark.New(
		goldmark.WithExtensions(extension.Table, extension.Strikethrough),
	)
	source := []byte(markdown)
	doc := md.Parser().Parse(text.NewReader(source))

	walker := &pdfWalker{pdf: pdf, source: source}
	if err := ast.Walk(doc, walker.walk); err != nil {
		r.logger.Error().Err(err).Msg("Failed to render markdown")
		return nil, fmt.Errorf("failed to render markdown: %w", err)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		r.logger.Error().Err(err).Msg("Failed to write PDF output")
		return nil, fmt.Errorf("failed to write PDF output: %w", err)
	}

	r.logger.Debug().
		Int("markdown_len", len(markdown)).
		Int("pdf_size", buf.Len()).
		Msg("Markdown rendered to PDF")
	return buf.Bytes(), nil
}

// pdfWalker holds the mutable rendering state for one document walk.
type pdfWalker struct {
	pdf    *fpdf.Fpdf
	source []byte
	bold   bool
	italic bool
	depth  int // list nesting
}

func (w *pdfWalker) bodyFont() {
	style := ""
	if w.bold {
		style += "B"
	}
	if w.italic {
		style += "I"
	}
	w.pdf.SetFont("Arial", style, bodyFontSize)
}

func (w *pdfWalker) walk(n ast.Node, entering bool) (ast.WalkStatus, error) {
	switch node := n.(type) {
	case *ast.Heading:
		w.heading(node, entering)
	case *ast.Paragraph:
		if !entering {
			w.pdf.Ln(lineHeight + 2)
		}
	case *ast.Text:
		if entering {
			w.pdf.Write(lineHeight, string(node.Text(w.source)))
			if node.SoftLineBreak() || node.HardLineBreak() {
				w.pdf.Write(lineHeight, " ")
			}
		}
	case *ast.Emphasis:
		if node.Level == 2 {
			w.bold = entering
		} else {
			w.italic = entering
		}
		w.bodyFont()
	case *ast.CodeSpan:
		return w.codeSpan(node, entering)
	case *ast.FencedCodeBlock:
		if entering {
			w.codeBlock(node.Lines())
			return ast.WalkSkipChildren, nil
		}
	case *ast.CodeBlock:
		if entering {
			w.codeBlock(node.Lines())
			return ast.WalkSkipChildren, nil
		}
	case *ast.List:
		if entering {
			w.depth++
		} else {
			w.depth--
			if w.depth == 0 {
				w.pdf.Ln(2)
			}
		}
	case *ast.ListItem:
		if entering {
			w.pdf.Ln(lineHeight)
			w.pdf.SetX(pageMargin + float64(w.depth)*4)
			w.pdf.Write(lineHeight, "- ")
		}
	case *ast.ThematicBreak:
		if entering {
			w.pdf.Ln(3)
			y := w.pdf.GetY()
			w.pdf.Line(pageMargin, y, pageMargin+contentWidth, y)
			w.pdf.Ln(3)
		}
	case *extast.Table:
		if entering {
			w.table(node)
			return ast.WalkSkipChildren, nil
		}
	}
	return ast.WalkContinue, nil
}

func (w *pdfWalker) heading(n *ast.Heading, entering bool) {
	if entering {
		w.pdf.Ln(5)
		size := 16.0 - 2.0*float64(n.Level)
		if size < 9 {
			size = 9
		}
		w.pdf.SetFont("Arial", "B", size)
		return
	}
	w.pdf.Ln(7)
	w.bodyFont()
}

func (w *pdfWalker) codeSpan(n *ast.CodeSpan, entering bool) (ast.WalkStatus, error) {
	if !entering {
		return ast.WalkContinue, nil
	}
	w.pdf.SetFont("Courier", "", bodyFontSize)
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		if textNode, ok := c.(*ast.Text); ok {
			w.pdf.Write(lineHeight, string(textNode.Segment.Value(w.source)))
		}
	}
	w.bodyFont()
	return ast.WalkSkipChildren, nil
}

func (w *pdfWalker) codeBlock(lines *text.Segments) {
	w.pdf.Ln(2)
	w.pdf.SetFont("Courier", "", bodyFontSize-1)
	w.pdf.SetFillColor(245, 245, 245)

	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		line := strings.TrimRight(string(seg.Value(w.source)), "\n")
		w.pdf.MultiCell(contentWidth, lineHeight-1, line, "", "L", true)
	}

	w.pdf.SetFillColor(255, 255, 255)
	w.bodyFont()
	w.pdf.Ln(2)
}

// table renders with equal column widths; report tables are short and
// uniform, so content-measured sizing is not worth its complexity here.
func (w *pdfWalker) table(n *extast.Table) {
	rows, headerCount := w.tableRows(n)
	if len(rows) == 0 || len(rows[0]) == 0 {
		return
	}

	colWidth := contentWidth / float64(len(rows[0]))
	w.pdf.Ln(2)

	for i, row := range rows {
		if i < headerCount {
			w.pdf.SetFont("Arial", "B", bodyFontSize-1)
			w.pdf.SetFillColor(230, 230, 230)
		} else {
			w.pdf.SetFont("Arial", "", bodyFontSize-1)
			w.pdf.SetFillColor(255, 255, 255)
		}

		rowHeight := w.rowHeight(row, colWidth)
		if w.pdf.GetY()+rowHeight > 297-pageMargin {
			w.pdf.AddPage()
		}

		x := pageMargin
		y := w.pdf.GetY()
		for _, cell := range row {
			w.pdf.Rect(x, y, colWidth, rowHeight, "FD")
			w.pdf.SetXY(x+1, y+1)
			w.pdf.MultiCell(colWidth-2, lineHeight-1, cell, "", "L", false)
			x += colWidth
		}
		w.pdf.SetXY(pageMargin, y+rowHeight)
	}

	w.pdf.Ln(3)
	w.bodyFont()
}

// tableRows flattens header and body rows into string cells, returning
// the rows and how many of them are header rows. A TableHeader node holds
// its cells directly, like a row.
func (w *pdfWalker) tableRows(n *extast.Table) ([][]string, int) {
	var rows [][]string
	headerCount := 0

	for child := n.FirstChild(); child != nil; child = child.NextSibling() {
		switch child.(type) {
		case *extast.TableHeader:
			rows = append(rows, w.cells(child))
			headerCount++
		case *extast.TableRow:
			rows = append(rows, w.cells(child))
		}
	}
	return rows, headerCount
}

func (w *pdfWalker) cells(node ast.Node) []string {
	var cells []string
	for cell := node.FirstChild(); cell != nil; cell = cell.NextSibling() {
		if _, ok := cell.(*extast.TableCell); ok {
			cells = append(cells, string(cell.Text(w.source)))
		}
	}
	return cells
}

// rowHeight estimates the row height from the tallest wrapped cell,
// capped at six lines to keep degenerate cells from eating the page.
func (w *pdfWalker) rowHeight(row []string, colWidth float64) float64 {
	maxLines := 1
	for _, cell := range row {
		lines := len(w.pdf.SplitText(cell, colWidth-2))
		if lines > maxLines {
			maxLines = lines
		}
	}
	if maxLines > 6 {
		maxLines = 6
	}
	return float64(maxLines)*(lineHeight-1) + 2
}
