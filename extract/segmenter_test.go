package extract

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func textBlock(blockType int, y0, y1 float64, texts ...string) Block {
	lines := make([]Line, len(texts))
	height := (y1 - y0) / float64(len(texts))
	for i, t := range texts {
		top := y0 + float64(i)*height
		lines[i] = Line{
			Spans: []Span{{Text: t, BBox: BBox{0, top, 100, top + height}}},
			BBox:  BBox{0, top, 100, top + height},
		}
	}
	return Block{Type: blockType, BBox: BBox{0, y0, 100, y1}, Lines: lines}
}

func onePageLayout(blocks ...Block) *Layout {
	return &Layout{Pages: []Page{{Blocks: blocks}}}
}

func TestSegmentSingleParagraphFitsOneChunk(t *testing.T) {
	// exactly chunk_size characters must stay a single chunk without a
	// chunk number
	text := strings.Repeat("a", 500)
	seg := NewSegmenter(500, 50)

	chunks := seg.Segment(onePageLayout(textBlock(0, 0, 12, text)), "course.pdf")

	require.Len(t, chunks, 1)
	assert.Equal(t, text, chunks[0].Text)
	assert.Equal(t, 0, chunks[0].Metadata.ChunkNumber)
	assert.Equal(t, 1, chunks[0].Metadata.PageNumber)
	assert.Equal(t, 1, chunks[0].Metadata.ParagraphNumber)
	assert.Equal(t, 1, chunks[0].Metadata.TotalPages)
	assert.Equal(t, "course.pdf", chunks[0].Metadata.Source)
}

func TestSegmentLongParagraphOverlappingChunks(t *testing.T) {
	text := strings.Repeat("b", 1200)
	seg := NewSegmenter(500, 50)

	chunks := seg.Segment(onePageLayout(textBlock(0, 0, 12, text)), "course.pdf")

	require.Len(t, chunks, 3)
	for i, c := range chunks {
		assert.Equal(t, i+1, c.Metadata.ChunkNumber)
		// every chunk of a split paragraph keeps the paragraph number
		assert.Equal(t, 1, c.Metadata.ParagraphNumber)
	}
	// step = chunk_size - overlap = 450
	assert.Len(t, []rune(chunks[0].Text), 500)
	assert.Len(t, []rune(chunks[1].Text), 500)
	assert.Len(t, []rune(chunks[2].Text), 300)
}

func TestSegmentDiscardsShortTail(t *testing.T) {
	// 940 chars: second step yields 490, third would start at 900 with
	// only 40 left, below the 50-char minimum
	text := strings.Repeat("c", 940)
	seg := NewSegmenter(500, 50)

	chunks := seg.Segment(onePageLayout(textBlock(0, 0, 12, text)), "course.pdf")

	require.Len(t, chunks, 2)
	assert.Equal(t, 1, chunks[0].Metadata.ChunkNumber)
	assert.Equal(t, 2, chunks[1].Metadata.ChunkNumber)
}

func TestSegmentDiscardsNoiseParagraphs(t *testing.T) {
	seg := NewSegmenter(500, 50)

	chunks := seg.Segment(onePageLayout(textBlock(0, 0, 12, "x.")), "course.pdf")

	assert.Empty(t, chunks)
}

func TestSegmentCollapsesWhitespace(t *testing.T) {
	seg := NewSegmenter(500, 50)

	chunks := seg.Segment(onePageLayout(textBlock(0, 0, 12, "data   engineering\t\tpipelines run nightly.")), "course.pdf")

	require.Len(t, chunks, 1)
	assert.Equal(t, "data engineering pipelines run nightly.", chunks[0].Text)
}

func TestVerticalGapStartsNewParagraph(t *testing.T) {
	first := textBlock(0, 0, 12, "The first paragraph talks about batch processing systems.")
	// gap of 30 layout units between the blocks, above the threshold
	second := textBlock(0, 42, 54, "The second paragraph talks about stream processing systems.")
	seg := NewSegmenter(500, 50)

	chunks := seg.Segment(onePageLayout(first, second), "course.pdf")

	require.Len(t, chunks, 2)
	assert.Equal(t, 1, chunks[0].Metadata.ParagraphNumber)
	assert.Equal(t, 2, chunks[1].Metadata.ParagraphNumber)
}

func TestSmallGapKeepsLinesTogether(t *testing.T) {
	block := textBlock(0, 0, 24, "The lecture introduces distributed", "dataflow engines and their schedulers.")
	seg := NewSegmenter(500, 50)

	chunks := seg.Segment(onePageLayout(block), "course.pdf")

	require.Len(t, chunks, 1)
	assert.Equal(t, "The lecture introduces distributed dataflow engines and their schedulers.", chunks[0].Text)
}

func TestIndentStartsNewParagraph(t *testing.T) {
	block := textBlock(0, 0, 24,
		"A closing sentence of the previous paragraph about storage layers.",
		"    An indented line opens the next paragraph about caching policies.")
	seg := NewSegmenter(500, 50)

	chunks := seg.Segment(onePageLayout(block), "course.pdf")

	require.Len(t, chunks, 2)
}

func TestBlockTypeChangeStartsNewParagraph(t *testing.T) {
	first := textBlock(0, 0, 12, "Text before a figure describing the lambda architecture layers.")
	second := textBlock(1, 12, 24, "Figure 3: the speed layer complements the batch layer downstream.")
	seg := NewSegmenter(500, 50)

	chunks := seg.Segment(onePageLayout(first, second), "course.pdf")

	require.Len(t, chunks, 2)
}

func TestShortUnterminatedParagraphMergesForward(t *testing.T) {
	// heading-like fragment without terminal punctuation merges into the
	// paragraph that follows it
	first := textBlock(0, 0, 12, "Lecture 4 overview")
	second := textBlock(0, 42, 54, "This lecture covers partitioning strategies for large datasets.")
	seg := NewSegmenter(500, 50)

	chunks := seg.Segment(onePageLayout(first, second), "course.pdf")

	require.Len(t, chunks, 1)
	assert.Equal(t, "Lecture 4 overview This lecture covers partitioning strategies for large datasets.", chunks[0].Text)
}

func TestFallbackToPlainText(t *testing.T) {
	page := Page{Text: "First paragraph of plain text about window functions.\n\nSecond paragraph of plain text about watermarks."}
	seg := NewSegmenter(500, 50)

	chunks := seg.Segment(&Layout{Pages: []Page{page}}, "course.pdf")

	require.Len(t, chunks, 2)
	assert.Equal(t, "First paragraph of plain text about window functions.", chunks[0].Text)
	assert.Equal(t, "Second paragraph of plain text about watermarks.", chunks[1].Text)
}

func TestFallbackListMarkersBreakParagraphs(t *testing.T) {
	page := Page{Text: "Key properties of a good partition key are listed below.\n1. High cardinality keeps partitions balanced over time.\n2. Stable values avoid expensive repartitioning later on."}
	seg := NewSegmenter(500, 50)

	chunks := seg.Segment(&Layout{Pages: []Page{page}}, "course.pdf")

	require.Len(t, chunks, 3)
	assert.True(t, strings.HasPrefix(chunks[1].Text, "1."))
	assert.True(t, strings.HasPrefix(chunks[2].Text, "2."))
}

func TestFallbackIndentedListMarkerBreaksParagraph(t *testing.T) {
	page := Page{Text: "The ingestion checklist below applies to every new upstream source\n  1. Register the schema with the catalog before the first load runs."}
	seg := NewSegmenter(500, 50)

	chunks := seg.Segment(&Layout{Pages: []Page{page}}, "course.pdf")

	require.Len(t, chunks, 2)
	assert.True(t, strings.HasPrefix(chunks[1].Text, "1."))
}

func TestFallbackSentenceEndBreaksParagraph(t *testing.T) {
	page := Page{Text: "The checkpoint interval controls recovery time for the operator state.\nShorter intervals trade throughput for faster recovery in most engines."}
	seg := NewSegmenter(500, 50)

	chunks := seg.Segment(&Layout{Pages: []Page{page}}, "course.pdf")

	require.Len(t, chunks, 2)
}

func TestFallbackShortLineMergesIntoCurrent(t *testing.T) {
	page := Page{Text: "The storage format comparison covers row and columnar layouts\nand hybrid ones.\nCompression ratios differ significantly between them in practice."}
	seg := NewSegmenter(500, 50)

	chunks := seg.Segment(&Layout{Pages: []Page{page}}, "course.pdf")

	require.Len(t, chunks, 2)
	assert.Equal(t, "The storage format comparison covers row and columnar layouts and hybrid ones.", chunks[0].Text)
}

func TestSegmentMultiplePages(t *testing.T) {
	layout := &Layout{Pages: []Page{
		{Blocks: []Block{textBlock(0, 0, 12, "Page one describes the ingestion layer of the platform.")}},
		{Blocks: []Block{textBlock(0, 0, 12, "Page two describes the serving layer of the platform.")}},
	}}
	seg := NewSegmenter(500, 50)

	chunks := seg.Segment(layout, "course.pdf")

	require.Len(t, chunks, 2)
	assert.Equal(t, 1, chunks[0].Metadata.PageNumber)
	assert.Equal(t, 2, chunks[1].Metadata.PageNumber)
	// paragraph numbering restarts per page
	assert.Equal(t, 1, chunks[1].Metadata.ParagraphNumber)
	assert.Equal(t, 2, chunks[0].Metadata.TotalPages)
	assert.Equal(t, 2, chunks[1].Metadata.TotalPages)
}

func TestAllChunksSatisfyLengthAndMetadataBounds(t *testing.T) {
	layout := &Layout{Pages: []Page{
		{Blocks: []Block{
			textBlock(0, 0, 12, strings.Repeat("long paragraph text ", 60)),
			textBlock(0, 42, 54, "tiny"),
			textBlock(0, 84, 96, "A regular paragraph about schema evolution in data lakes."),
		}},
	}}
	seg := NewSegmenter(500, 50)

	chunks := seg.Segment(layout, "course.pdf")

	require.NotEmpty(t, chunks)
	for _, c := range chunks {
		assert.GreaterOrEqual(t, len([]rune(c.Text)), 10)
		assert.LessOrEqual(t, len([]rune(c.Text)), 500)
		assert.GreaterOrEqual(t, c.Metadata.PageNumber, 1)
		assert.GreaterOrEqual(t, c.Metadata.ParagraphNumber, 1)
	}
}
