package store

import (
	"context"
	"fmt"
	"strconv"

	"github.com/wbl65535/Data-Engineering-1/types"
)

// CollectionName is the logical name of the knowledge-base collection.
const CollectionName = "intelligent_data_engineering"

// Stats describes the current state of the index.
type Stats struct {
	DocumentCount  int    `json:"document_count"`
	CollectionName string `json:"collection_name"`
}

// Record is one indexed entry as exposed by the inspection dump. Metadata
// values are the stringified form used at the store boundary.
type Record struct {
	ID       string            `json:"id"`
	Text     string            `json:"text"`
	Metadata map[string]string `json:"metadata"`
}

// Index is the embedding index over a persistent backing store. AddAll is
// a no-op when the index already holds records; a rebuild is an explicit
// Reset followed by AddAll.
type Index interface {
	Init(ctx context.Context) error
	Reset(ctx context.Context) error
	AddAll(ctx context.Context, chunks []types.Chunk) error
	Query(ctx context.Context, text string, k int) ([]types.RetrievedDocument, error)
	Stats(ctx context.Context) (Stats, error)
	Dump(ctx context.Context) ([]Record, error)
	RegisterDocument(ctx context.Context, doc types.SourceDocument) error
	Close()
}

// recordID assigns the deterministic sequential identifier of the i-th
// added chunk.
func recordID(i int) string {
	return fmt.Sprintf("chunk_%d", i)
}

// metadataToStrings serializes chunk metadata for storage. Numeric fields
// stay numeric strings so consumers can parse them back.
func metadataToStrings(m types.ChunkMetadata) map[string]string {
	out := map[string]string{
		"source":           m.Source,
		"page_number":      strconv.Itoa(m.PageNumber),
		"paragraph_number": strconv.Itoa(m.ParagraphNumber),
		"total_pages":      strconv.Itoa(m.TotalPages),
	}
	if m.ChunkNumber > 0 {
		out["chunk_number"] = strconv.Itoa(m.ChunkNumber)
	}
	return out
}

// metadataFromStrings is the reverse boundary conversion.
func metadataFromStrings(m map[string]string) (types.ChunkMetadata, error) {
	page, err := strconv.Atoi(m["page_number"])
	if err != nil {
		return types.ChunkMetadata{}, fmt.Errorf("bad page_number %q: %w", m["page_number"], err)
	}
	para, err := strconv.Atoi(m["paragraph_number"])
	if err != nil {
		return types.ChunkMetadata{}, fmt.Errorf("bad paragraph_number %q: %w", m["paragraph_number"], err)
	}
	total, err := strconv.Atoi(m["total_pages"])
	if err != nil {
		return types.ChunkMetadata{}, fmt.Errorf("bad total_pages %q: %w", m["total_pages"], err)
	}
	chunkNumber := 0
	if v, ok := m["chunk_number"]; ok && v != "" {
		chunkNumber, err = strconv.Atoi(v)
		if err != nil {
			return types.ChunkMetadata{}, fmt.Errorf("bad chunk_number %q: %w", v, err)
		}
	}
	return types.ChunkMetadata{
		Source:          m["source"],
		PageNumber:      page,
		ParagraphNumber: para,
		TotalPages:      total,
		ChunkNumber:     chunkNumber,
	}, nil
}

// clampSimilarity bounds 1-distance to [0,1]. Cosine distance on
// normalized vectors may drift past 1 through float error.
func clampSimilarity(distance float64) float64 {
	s := 1 - distance
	if s < 0 {
		return 0
	}
	if s > 1 {
		return 1
	}
	return s
}
