package chunker

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/respondeo/internal/interfaces"
	"github.com/ternarybob/respondeo/internal/models"
)

// Paragraph fragments at or below this rune count are discarded as noise
// (page numbers, stray headings, separator lines).
const minParagraphLength = 10

// findOverlapWindow caps the suffix/prefix scan in FindOverlap.
const findOverlapWindow = 100

var (
	spaceRunPattern  = regexp.MustCompile(` {2,}`)
	blankRunPattern  = regexp.MustCompile(`\n{3,}`)
	punctGapPattern  = regexp.MustCompile(` +([.!?])`)
	paragraphPattern = regexp.MustCompile(`\n{2,}`)
	sentencePattern  = regexp.MustCompile(`[.!?]+\s+|[;:]\s+`)
)

// Service splits normalized text into retrieval-sized chunks. Splitting is
// deterministic: identical text and parameters reproduce identical chunk
// boundaries, sequence indices and ids, which is what makes index upserts
// idempotent across re-ingestion.
type Service struct {
	logger arbor.ILogger
}

var _ interfaces.ChunkerService = (*Service)(nil)

// NewService creates a new chunker service
func NewService(logger arbor.ILogger) *Service {
	return &Service{
		logger: logger,
	}
}

// Chunk splits text into chunks for a document. Paragraphs that fit in
// targetSize become single chunks; longer paragraphs are split at sentence
// boundaries and greedily packed; text with no usable boundaries degrades to
// fixed-width character slices. Malformed text never produces an error.
func (s *Service) Chunk(text, documentID string, targetSize, overlap int) ([]models.Chunk, error) {
	if targetSize <= 0 {
		return nil, fmt.Errorf("target size %d must be positive: %w", targetSize, interfaces.ErrInvalidConfiguration)
	}
	if overlap < 0 || overlap >= targetSize {
		return nil, fmt.Errorf("overlap %d must be in [0, %d): %w", overlap, targetSize, interfaces.ErrInvalidConfiguration)
	}
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	normalized := s.Normalize(text)
	paragraphs := splitParagraphs(normalized)

	var chunks []models.Chunk
	seq := 0
	for paraIdx, paragraph := range paragraphs {
		if utf8.RuneCountInString(paragraph) <= targetSize {
			chunks = append(chunks, models.NewChunk(documentID, paragraph, seq, paraIdx, models.ChunkTypeParagraph))
			seq++
			continue
		}
		chunks = append(chunks, s.splitParagraph(documentID, paragraph, paraIdx, &seq, targetSize)...)
	}

	applyOverlap(chunks, overlap)

	s.logger.Debug().
		Str("document_id", documentID).
		Int("paragraphs", len(paragraphs)).
		Int("chunks", len(chunks)).
		Msg("Chunked document text")

	return chunks, nil
}

// Normalize canonicalises whitespace: CRLF and CR become LF, tabs become
// spaces, space runs collapse, line edges are trimmed, three or more
// newlines collapse to a single blank line, and spaces before sentence
// punctuation are removed. Applying it twice yields the same result.
func (s *Service) Normalize(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	text = strings.ReplaceAll(text, "\t", " ")

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(spaceRunPattern.ReplaceAllString(line, " "))
	}
	text = strings.Join(lines, "\n")

	text = blankRunPattern.ReplaceAllString(text, "\n\n")
	text = punctGapPattern.ReplaceAllString(text, "$1")

	return strings.TrimSpace(text)
}

// Merge recombines sequential chunks into larger "optimized" chunks up to
// targetSize. The simple strategy concatenates texts as-is; the smart
// strategy strips text duplicated across neighbouring chunks before joining.
func (s *Service) Merge(chunks []models.Chunk, targetSize int, strategy string) ([]models.Chunk, error) {
	if targetSize <= 0 {
		return nil, fmt.Errorf("target size %d must be positive: %w", targetSize, interfaces.ErrInvalidConfiguration)
	}
	switch strategy {
	case interfaces.MergeStrategySimple, interfaces.MergeStrategySmart:
	default:
		return nil, fmt.Errorf("unknown merge strategy %q: %w", strategy, interfaces.ErrInvalidConfiguration)
	}
	if len(chunks) == 0 {
		return nil, nil
	}

	documentID := chunks[0].DocumentID

	var merged []models.Chunk
	var pieces []string
	joinedLen := 0
	firstParagraph := 0
	prevText := ""

	flush := func() {
		text := strings.TrimSpace(strings.Join(pieces, " "))
		if text != "" {
			chunk := models.NewChunk(documentID, text, len(merged), firstParagraph, models.ChunkTypeOptimized)
			chunk.ChunkID = fmt.Sprintf("%s_optimized_%d", documentID, len(merged))
			merged = append(merged, chunk)
		}
		pieces = nil
		joinedLen = 0
	}

	for _, chunk := range chunks {
		piece := chunk.Text
		if strategy == interfaces.MergeStrategySmart && prevText != "" {
			if n := FindOverlap(prevText, piece); n > 0 {
				piece = string([]rune(piece)[n:])
			}
		}
		prevText = chunk.Text

		piece = strings.TrimSpace(piece)
		if piece == "" {
			continue
		}

		pieceLen := utf8.RuneCountInString(piece)
		if joinedLen > 0 && joinedLen+1+pieceLen > targetSize {
			flush()
		}
		if joinedLen == 0 {
			firstParagraph = chunk.ParagraphIndex
			joinedLen = pieceLen
		} else {
			joinedLen += 1 + pieceLen
		}
		pieces = append(pieces, piece)
	}
	flush()

	return merged, nil
}

// Reconstruct rebuilds the source text from sequential chunks, stripping
// text duplicated across neighbours. The result matches the normalized
// original up to whitespace.
func (s *Service) Reconstruct(chunks []models.Chunk) string {
	if len(chunks) == 0 {
		return ""
	}

	var b strings.Builder
	prevText := ""
	for _, chunk := range chunks {
		piece := chunk.Text
		if prevText != "" {
			if n := FindOverlap(prevText, piece); n > 0 {
				piece = string([]rune(piece)[n:])
			}
		}
		prevText = chunk.Text

		piece = strings.TrimSpace(piece)
		if piece == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(piece)
	}
	return b.String()
}

// FindOverlap returns the length in runes of the longest suffix of a that
// is also a prefix of b, scanning at most findOverlapWindow runes. Returns
// 0 when the texts share no boundary text.
func FindOverlap(a, b string) int {
	ra := []rune(a)
	rb := []rune(b)

	window := len(ra)
	if len(rb) < window {
		window = len(rb)
	}
	if window > findOverlapWindow {
		window = findOverlapWindow
	}

	for i := window; i > 0; i-- {
		if string(ra[len(ra)-i:]) == string(rb[:i]) {
			return i
		}
	}
	return 0
}

// splitParagraphs splits normalized text on blank lines and drops fragments
// too short to carry retrievable content.
func splitParagraphs(text string) []string {
	var paragraphs []string
	for _, part := range paragraphPattern.Split(text, -1) {
		part = strings.TrimSpace(part)
		if utf8.RuneCountInString(part) > minParagraphLength {
			paragraphs = append(paragraphs, part)
		}
	}
	return paragraphs
}

// splitParagraph breaks an oversized paragraph into sentence_group chunks by
// greedy packing. Sentences that individually exceed targetSize, or
// paragraphs with no detectable boundaries, fall back to character slices.
func (s *Service) splitParagraph(documentID, paragraph string, paraIdx int, seq *int, targetSize int) []models.Chunk {
	sentences := splitSentences(paragraph)
	if len(sentences) == 0 {
		return characterSplit(documentID, paragraph, paraIdx, seq, targetSize)
	}

	var chunks []models.Chunk
	var group []string
	groupLen := 0

	flush := func() {
		text := strings.TrimSpace(strings.Join(group, " "))
		if text != "" {
			chunks = append(chunks, models.NewChunk(documentID, text, *seq, paraIdx, models.ChunkTypeSentenceGroup))
			*seq++
		}
		group = nil
		groupLen = 0
	}

	for _, sentence := range sentences {
		n := utf8.RuneCountInString(sentence)
		if n > targetSize {
			flush()
			chunks = append(chunks, characterSplit(documentID, sentence, paraIdx, seq, targetSize)...)
			continue
		}
		if groupLen > 0 && groupLen+1+n > targetSize {
			flush()
		}
		if groupLen == 0 {
			groupLen = n
		} else {
			groupLen += 1 + n
		}
		group = append(group, sentence)
	}
	flush()

	return chunks
}

// splitSentences splits paragraph text at sentence boundaries, keeping the
// terminating punctuation with each sentence. When no boundaries match, each
// line stands as its own sentence, which keeps headings and list entries
// intact.
func splitSentences(text string) []string {
	var sentences []string

	start := 0
	for _, loc := range sentencePattern.FindAllStringIndex(text, -1) {
		sentence := strings.TrimSpace(text[start:loc[1]])
		if sentence != "" {
			sentences = append(sentences, sentence)
		}
		start = loc[1]
	}
	if tail := strings.TrimSpace(text[start:]); tail != "" {
		sentences = append(sentences, tail)
	}

	if len(sentences) == 0 {
		for _, line := range strings.Split(text, "\n") {
			if line = strings.TrimSpace(line); line != "" {
				sentences = append(sentences, line)
			}
		}
	}

	return sentences
}

// characterSplit slices text into fixed-width pieces. Last resort for text
// with no usable structure; pieces never exceed targetSize runes.
func characterSplit(documentID, text string, paraIdx int, seq *int, targetSize int) []models.Chunk {
	runes := []rune(text)

	var chunks []models.Chunk
	for start := 0; start < len(runes); start += targetSize {
		end := start + targetSize
		if end > len(runes) {
			end = len(runes)
		}
		piece := strings.TrimSpace(string(runes[start:end]))
		if piece == "" {
			continue
		}
		chunks = append(chunks, models.NewChunk(documentID, piece, *seq, paraIdx, models.ChunkTypeCharacterSplit))
		*seq++
	}
	return chunks
}

// applyOverlap copies boundary text between neighbouring chunks. The first
// chunk has no ContextBefore and the last no ContextAfter.
func applyOverlap(chunks []models.Chunk, overlap int) {
	if len(chunks) <= 1 || overlap <= 0 {
		return
	}
	for i := range chunks {
		if i > 0 {
			chunks[i].ContextBefore = tailRunes(chunks[i-1].Text, overlap)
		}
		if i < len(chunks)-1 {
			chunks[i].ContextAfter = headRunes(chunks[i+1].Text, overlap)
		}
	}
}

func tailRunes(text string, n int) string {
	runes := []rune(text)
	if len(runes) <= n {
		return text
	}
	return string(runes[len(runes)-n:])
}

func headRunes(text string, n int) string {
	runes := []rune(text)
	if len(runes) <= n {
		return text
	}
	return string(runes[:n])
}
