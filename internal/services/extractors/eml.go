package extractors

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/emersion/go-message/mail"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/respondeo/internal/interfaces"
	"github.com/ternarybob/respondeo/internal/models"
)

// EmailExtractor extracts the subject, sender and readable body from
// .eml files. Plain text parts are preferred; HTML-only messages are
// converted to markdown.
type EmailExtractor struct {
	logger arbor.ILogger
}

// Compile-time assertion
var _ interfaces.DocumentExtractor = (*EmailExtractor)(nil)

// NewEmailExtractor creates a new email extractor.
func NewEmailExtractor(logger arbor.ILogger) *EmailExtractor {
	return &EmailExtractor{logger: logger}
}

// Supports reports whether the path has an .eml extension.
func (e *EmailExtractor) Supports(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".eml")
}

// Format names the source format.
func (e *EmailExtractor) Format() string {
	return "eml"
}

// Extract parses the email message and returns a header block followed
// by the body text.
func (e *EmailExtractor) Extract(ctx context.Context, path string) (*models.ExtractedDocument, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open email file: %w", err)
	}
	defer f.Close()

	mr, err := mail.CreateReader(f)
	if err != nil {
		return nil, fmt.Errorf("failed to create mail reader: %w", err)
	}

	var plainParts []string
	var htmlPart string
	images := 0

	for {
		p, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read next part: %w", err)
		}

		switch h := p.Header.(type) {
		case *mail.InlineHeader:
			contentType, _, _ := h.ContentType()
			switch {
			case strings.HasPrefix(contentType, "text/plain"):
				b, err := io.ReadAll(p.Body)
				if err != nil {
					return nil, fmt.Errorf("failed to read body: %w", err)
				}
				plainParts = append(plainParts, strings.TrimSpace(string(b)))
			case strings.HasPrefix(contentType, "text/html") && htmlPart == "":
				b, err := io.ReadAll(p.Body)
				if err != nil {
					return nil, fmt.Errorf("failed to read body: %w", err)
				}
				htmlPart = string(b)
			}
		case *mail.AttachmentHeader:
			contentType, _, _ := h.ContentType()
			if strings.HasPrefix(contentType, "image/") {
				images++
			}
		}
	}

	body := strings.Join(plainParts, "\n\n")
	if body == "" && htmlPart != "" {
		converter := md.NewConverter("", true, nil)
		converted, err := converter.ConvertString(htmlPart)
		if err != nil {
			e.logger.Warn().Err(err).Str("path", path).Msg("HTML body conversion failed")
		} else {
			body = strings.TrimSpace(converted)
		}
	}

	var text strings.Builder
	if subject, err := mr.Header.Subject(); err == nil && subject != "" {
		fmt.Fprintf(&text, "Subject: %s\n", subject)
	}
	if from, err := mr.Header.AddressList("From"); err == nil && len(from) > 0 {
		fmt.Fprintf(&text, "From: %s\n", formatAddress(from[0]))
	}
	if date, err := mr.Header.Date(); err == nil && !date.IsZero() {
		fmt.Fprintf(&text, "Date: %s\n", date.Format(time.RFC1123Z))
	}
	if body != "" {
		if text.Len() > 0 {
			text.WriteString("\n")
		}
		text.WriteString(body)
	}

	e.logger.Debug().
		Str("path", path).
		Int("text_length", text.Len()).
		Int("image_attachments", images).
		Msg("Extracted email text")

	return &models.ExtractedDocument{
		Text:   strings.TrimSpace(text.String()),
		Images: images,
	}, nil
}

// formatAddress renders an address as "Name <addr>" or the bare address.
func formatAddress(a *mail.Address) string {
	if a.Name != "" {
		return fmt.Sprintf("%s <%s>", a.Name, a.Address)
	}
	return a.Address
}
