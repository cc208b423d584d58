package interfaces

// PDFService converts markdown content into a rendered PDF document.
type PDFService interface {
	// ConvertMarkdownToPDF converts markdown content to a PDF byte slice.
	// The title goes into the PDF document properties, not the page.
	ConvertMarkdownToPDF(markdown, title string) ([]byte, error)
}
