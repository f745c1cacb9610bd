package store

import (
	"context"
	"log"
	"sort"
	"sync"

	"github.com/wbl65535/Data-Engineering-1/model"
	"github.com/wbl65535/Data-Engineering-1/types"
)

type memoryRecord struct {
	id     string
	text   string
	meta   types.ChunkMetadata
	vector []float32
}

// MemoryStore is a brute-force cosine index with the same contract as the
// Postgres store. It backs offline runs and tests.
type MemoryStore struct {
	mu       sync.RWMutex
	embedder model.Embedder
	records  []memoryRecord
	docs     []types.SourceDocument
}

func NewMemoryStore(embedder model.Embedder) *MemoryStore {
	return &MemoryStore{embedder: embedder}
}

func (m *MemoryStore) Init(ctx context.Context) error { return nil }

func (m *MemoryStore) Reset(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.records) == 0 {
		log.Printf("[STORE] index is empty, nothing to reset")
		return nil
	}
	log.Printf("[STORE] resetting index, deleting %d records...", len(m.records))
	m.records = nil
	m.docs = nil
	return nil
}

func (m *MemoryStore) AddAll(ctx context.Context, chunks []types.Chunk) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.records) > 0 {
		log.Printf("[STORE] index already contains %d records, skipping add", len(m.records))
		return nil
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}

	vectors, err := m.embedder.Encode(ctx, texts)
	if err != nil {
		return err
	}

	for i, c := range chunks {
		m.records = append(m.records, memoryRecord{
			id:     recordID(i),
			text:   c.Text,
			meta:   c.Metadata,
			vector: vectors[i],
		})
	}

	log.Printf("[STORE] added %d chunks, index now holds %d records", len(chunks), len(m.records))
	return nil
}

func (m *MemoryStore) Query(ctx context.Context, text string, k int) ([]types.RetrievedDocument, error) {
	vectors, err := m.embedder.Encode(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	query := vectors[0]

	m.mu.RLock()
	defer m.mu.RUnlock()

	type scored struct {
		idx      int
		distance float64
	}
	scores := make([]scored, len(m.records))
	for i, rec := range m.records {
		scores[i] = scored{idx: i, distance: 1 - dot(rec.vector, query)}
	}
	// ties broken by insertion order
	sort.SliceStable(scores, func(i, j int) bool { return scores[i].distance < scores[j].distance })

	if k > len(scores) {
		k = len(scores)
	}

	results := make([]types.RetrievedDocument, 0, k)
	for i := 0; i < k; i++ {
		rec := m.records[scores[i].idx]
		results = append(results, types.RetrievedDocument{
			Text:       rec.text,
			Metadata:   rec.meta,
			Similarity: clampSimilarity(scores[i].distance),
		})
	}

	return results, nil
}

func (m *MemoryStore) Stats(ctx context.Context) (Stats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return Stats{DocumentCount: len(m.records), CollectionName: CollectionName}, nil
}

func (m *MemoryStore) Dump(ctx context.Context) ([]Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	records := make([]Record, len(m.records))
	for i, rec := range m.records {
		records[i] = Record{
			ID:       rec.id,
			Text:     rec.text,
			Metadata: metadataToStrings(rec.meta),
		}
	}
	return records, nil
}

func (m *MemoryStore) RegisterDocument(ctx context.Context, doc types.SourceDocument) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, d := range m.docs {
		if d.ID == doc.ID {
			m.docs[i] = doc
			return nil
		}
	}
	m.docs = append(m.docs, doc)
	return nil
}

func (m *MemoryStore) Close() {}

// dot over L2-normalized vectors is the cosine similarity.
func dot(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	sum := 0.0
	for i := 0; i < n; i++ {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}
