package store

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wbl65535/Data-Engineering-1/types"
)

// bagEmbedder is a deterministic test embedder: a normalized
// bag-of-characters vector, so identical texts embed identically.
type bagEmbedder struct {
	dim int
}

func (e *bagEmbedder) Init(ctx context.Context) error { return nil }

func (e *bagEmbedder) Dimension() int { return e.dim }

func (e *bagEmbedder) Encode(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		vec := make([]float64, e.dim)
		for _, r := range text {
			vec[int(r)%e.dim]++
		}
		var sum float64
		for _, v := range vec {
			sum += v * v
		}
		norm := math.Sqrt(sum)
		res := make([]float32, e.dim)
		if norm > 0 {
			for j, v := range vec {
				res[j] = float32(v / norm)
			}
		}
		out[i] = res
	}
	return out, nil
}

func testChunks() []types.Chunk {
	return []types.Chunk{
		{
			Text:     "Columnar storage formats accelerate analytical scans dramatically.",
			Metadata: types.ChunkMetadata{Source: "storage.pdf", PageNumber: 4, ParagraphNumber: 1, TotalPages: 30},
		},
		{
			Text:     "Watermarks bound event-time lateness in streaming pipelines.",
			Metadata: types.ChunkMetadata{Source: "streaming.pdf", PageNumber: 9, ParagraphNumber: 2, TotalPages: 25},
		},
		{
			Text:     "zzzz qqqq xxxx completely unrelated noise 12345 67890",
			Metadata: types.ChunkMetadata{Source: "noise.pdf", PageNumber: 1, ParagraphNumber: 3, TotalPages: 5, ChunkNumber: 2},
		},
	}
}

func newTestStore() *MemoryStore {
	return NewMemoryStore(&bagEmbedder{dim: 32})
}

func TestAddAllThenStats(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()

	require.NoError(t, s.AddAll(ctx, testChunks()))

	stats, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.DocumentCount)
	assert.Equal(t, CollectionName, stats.CollectionName)
}

func TestAddAllRefusesWhenNonEmpty(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()

	require.NoError(t, s.AddAll(ctx, testChunks()))
	// second call is a silent no-op, not an error
	require.NoError(t, s.AddAll(ctx, testChunks()))

	stats, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.DocumentCount)
}

func TestResetEmptiesIndex(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()

	require.NoError(t, s.AddAll(ctx, testChunks()))
	require.NoError(t, s.Reset(ctx))

	stats, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.DocumentCount)

	// reset of an empty index must still succeed
	require.NoError(t, s.Reset(ctx))

	// after a reset, AddAll works again
	require.NoError(t, s.AddAll(ctx, testChunks()))
	stats, err = s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.DocumentCount)
}

func TestQueryRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()
	chunks := testChunks()
	require.NoError(t, s.AddAll(ctx, chunks))

	results, err := s.Query(ctx, chunks[0].Text, 3)
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, chunks[0].Text, results[0].Text)
	assert.Equal(t, chunks[0].Metadata, results[0].Metadata)
	assert.InDelta(t, 1.0, results[0].Similarity, 1e-6)

	for _, r := range results {
		assert.GreaterOrEqual(t, r.Similarity, 0.0)
		assert.LessOrEqual(t, r.Similarity, 1.0)
		assert.LessOrEqual(t, r.Similarity, results[0].Similarity)
	}
}

func TestQueryNeverReturnsMoreThanAvailable(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()
	require.NoError(t, s.AddAll(ctx, testChunks()))

	results, err := s.Query(ctx, "storage formats", 10)
	require.NoError(t, err)
	assert.Len(t, results, 3)
}

func TestQueryOnEmptyIndex(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()

	results, err := s.Query(ctx, "anything", 5)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestDumpPreservesInsertionOrderAndStringMetadata(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()
	require.NoError(t, s.AddAll(ctx, testChunks()))

	records, err := s.Dump(ctx)
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, "chunk_0", records[0].ID)
	assert.Equal(t, "chunk_1", records[1].ID)
	assert.Equal(t, "chunk_2", records[2].ID)

	// numeric fields stay numeric strings
	assert.Equal(t, "4", records[0].Metadata["page_number"])
	assert.Equal(t, "1", records[0].Metadata["paragraph_number"])
	assert.Equal(t, "30", records[0].Metadata["total_pages"])
	_, hasChunkNumber := records[0].Metadata["chunk_number"]
	assert.False(t, hasChunkNumber)
	assert.Equal(t, "2", records[2].Metadata["chunk_number"])
}

func TestMetadataStringConversionRoundTrip(t *testing.T) {
	meta := types.ChunkMetadata{Source: "a.pdf", PageNumber: 7, ParagraphNumber: 3, TotalPages: 55, ChunkNumber: 4}

	got, err := metadataFromStrings(metadataToStrings(meta))
	require.NoError(t, err)
	assert.Equal(t, meta, got)

	// without chunk number the field is absent, not "0"
	meta.ChunkNumber = 0
	m := metadataToStrings(meta)
	_, ok := m["chunk_number"]
	assert.False(t, ok)
	got, err = metadataFromStrings(m)
	require.NoError(t, err)
	assert.Equal(t, meta, got)
}

func TestClampSimilarity(t *testing.T) {
	assert.Equal(t, 1.0, clampSimilarity(0))
	assert.Equal(t, 0.0, clampSimilarity(1))
	// cosine distance past 1 must not yield a negative similarity
	assert.Equal(t, 0.0, clampSimilarity(1.2))
	assert.Equal(t, 1.0, clampSimilarity(-0.01))
	assert.InDelta(t, 0.35, clampSimilarity(0.65), 1e-9)
}

func TestRegisterDocumentUpserts(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()

	doc := types.SourceDocument{ID: types.DocumentID("a.pdf"), Filename: "a.pdf", TotalPages: 10}
	require.NoError(t, s.RegisterDocument(ctx, doc))

	doc.TotalPages = 11
	require.NoError(t, s.RegisterDocument(ctx, doc))

	assert.Len(t, s.docs, 1)
	assert.Equal(t, 11, s.docs[0].TotalPages)
}
