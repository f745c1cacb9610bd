package extract

import (
	"regexp"
	"strings"

	"github.com/wbl65535/Data-Engineering-1/types"
)

const (
	// Paragraphs shorter than this that lack terminal punctuation are
	// treated as broken-off fragments and merged forward.
	shortParagraphLen = 30
	// Cleaned paragraphs below this many characters are discarded as noise.
	minParagraphLen = 10
	// Split remainders below this many characters are discarded.
	minChunkLen = 50
	// Vertical gap in layout units that signals a paragraph break.
	lineGapThreshold = 15
)

var (
	terminalPunctRe = regexp.MustCompile(`[.。?？!！]$`)
	listMarkerRe    = regexp.MustCompile(`^(\d+\.|•|\*|-)`)
	multiSpaceRe    = regexp.MustCompile(`\s{2,}`)
	blankLineRe     = regexp.MustCompile(`\n\s*\n`)
)

// Segmenter turns the positioned-text stream of one document into an
// ordered sequence of provenance-tagged chunks.
type Segmenter struct {
	ChunkSize int
	Overlap   int
}

func NewSegmenter(chunkSize, overlap int) *Segmenter {
	if chunkSize <= 0 {
		chunkSize = 500
	}
	if overlap < 0 || overlap >= chunkSize {
		overlap = 50
	}
	return &Segmenter{ChunkSize: chunkSize, Overlap: overlap}
}

// Segment walks the document page by page, derives candidate paragraphs,
// cleans them and emits chunks. Paragraph numbers are 1-based and scoped
// to the page; all chunks split from one paragraph share its number.
func (s *Segmenter) Segment(layout *Layout, sourceID string) []types.Chunk {
	var all []types.Chunk
	totalPages := len(layout.Pages)

	for pageIdx, page := range layout.Pages {
		paragraphs := paragraphsFromBlocks(page)
		if len(paragraphs) == 0 {
			paragraphs = paragraphsFromText(page.Text)
		}

		for paraIdx, paragraph := range paragraphs {
			cleaned := strings.TrimSpace(multiSpaceRe.ReplaceAllString(paragraph, " "))
			runes := []rune(cleaned)
			if len(runes) < minParagraphLen {
				continue
			}

			meta := types.ChunkMetadata{
				Source:          sourceID,
				PageNumber:      pageIdx + 1,
				ParagraphNumber: paraIdx + 1,
				TotalPages:      totalPages,
			}

			if len(runes) <= s.ChunkSize {
				all = append(all, types.Chunk{Text: cleaned, Metadata: meta})
				continue
			}

			step := s.ChunkSize - s.Overlap
			for i := 0; i < len(runes); i += step {
				end := i + s.ChunkSize
				if end > len(runes) {
					end = len(runes)
				}
				if end-i < minChunkLen {
					continue
				}
				chunkMeta := meta
				chunkMeta.ChunkNumber = i/step + 1
				all = append(all, types.Chunk{Text: string(runes[i:end]), Metadata: chunkMeta})
			}
		}
	}

	return all
}

// blockScanState is the fold state of paragraph detection over positioned
// lines: accumulated lines, the previous block's type and the previous
// line's bottom edge.
type blockScanState struct {
	current       []string
	lastBlockType int
	lastY1        float64
}

// paragraphsFromBlocks derives paragraphs from structured blocks. Three
// independent heuristics each force a break: a leading indentation marker,
// a vertical gap above the threshold, and a change of block type.
func paragraphsFromBlocks(page Page) []string {
	if len(page.Blocks) == 0 {
		return nil
	}

	var paragraphs []string
	st := blockScanState{lastBlockType: -1}

	for _, block := range page.Blocks {
		if len(block.Lines) == 0 {
			continue
		}

		for _, line := range block.Lines {
			raw := joinSpans(line)
			text := strings.TrimSpace(raw)
			if text == "" {
				continue
			}

			newParagraph := false
			switch {
			case strings.HasPrefix(raw, "\t") || strings.HasPrefix(raw, "    "):
				newParagraph = true
			case abs(line.BBox.Y0()-st.lastY1) > lineGapThreshold:
				newParagraph = true
			case st.lastBlockType != -1 && st.lastBlockType != block.Type:
				newParagraph = true
			}

			if newParagraph && len(st.current) > 0 {
				paragraphs = append(paragraphs, strings.Join(st.current, " "))
				st.current = nil
			}

			st.current = append(st.current, text)
			st.lastY1 = line.BBox.Y1()
		}

		st.lastBlockType = block.Type
	}

	if len(st.current) > 0 {
		paragraphs = append(paragraphs, strings.Join(st.current, " "))
	}

	return mergeShortParagraphs(paragraphs)
}

// mergeShortParagraphs repairs splits the layout heuristics got wrong: a
// paragraph under 30 characters without sentence-final punctuation is
// glued onto the paragraph that follows it.
func mergeShortParagraphs(paragraphs []string) []string {
	var merged []string
	var pending string

	for _, p := range paragraphs {
		if len([]rune(p)) < shortParagraphLen && !terminalPunctRe.MatchString(p) {
			pending += " " + p
			continue
		}
		if pending != "" {
			pending += " " + p
			merged = append(merged, strings.TrimSpace(pending))
			pending = ""
		} else {
			merged = append(merged, p)
		}
	}

	if pending != "" {
		merged = append(merged, strings.TrimSpace(pending))
	}

	return merged
}

// paragraphsFromText is the fallback used when a page yields no usable
// blocks. It splits plain extracted text on blank lines, then inside each
// piece: leading list or numbering markers force a break, a line ending in
// sentence-final punctuation signals that the next line starts a new
// paragraph, and short trailing lines without terminal punctuation are
// merged into the current paragraph.
func paragraphsFromText(text string) []string {
	var paragraphs []string

	for _, rawPara := range blankLineRe.Split(text, -1) {
		if strings.TrimSpace(rawPara) == "" {
			continue
		}

		var para []string
		currentLine := ""

		for _, raw := range strings.Split(rawPara, "\n") {
			line := strings.TrimSpace(raw)
			if line == "" {
				if currentLine != "" {
					para = append(para, currentLine)
					currentLine = ""
				}
				continue
			}

			newParagraph := false
			switch {
			// marker match on the trimmed line so indented list items
			// still break; indentation itself is checked on the raw line
			case listMarkerRe.MatchString(line) || strings.HasPrefix(raw, "\t") || strings.HasPrefix(raw, "    "):
				newParagraph = true
			case currentLine != "" && terminalPunctRe.MatchString(currentLine):
				newParagraph = true
			case len([]rune(line)) < shortParagraphLen && currentLine != "" && !terminalPunctRe.MatchString(currentLine):
				newParagraph = false
			}

			if newParagraph && currentLine != "" {
				para = append(para, currentLine)
				currentLine = line
			} else if currentLine != "" {
				currentLine += " " + line
			} else {
				currentLine = line
			}
		}

		if currentLine != "" {
			para = append(para, currentLine)
		}

		paragraphs = append(paragraphs, para...)
	}

	return paragraphs
}

func joinSpans(line Line) string {
	var b strings.Builder
	for _, span := range line.Spans {
		if strings.TrimSpace(span.Text) == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteString(" ")
		}
		b.WriteString(span.Text)
	}
	return b.String()
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
