package store

import (
	"context"
	"fmt"
	"log"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/wbl65535/Data-Engineering-1/model"
	"github.com/wbl65535/Data-Engineering-1/types"
)

const embedBatchSize = 64

// PostgresStore is the persistent embedding index backed by pgvector.
// The pool is opened once per process and owned for the process lifetime.
type PostgresStore struct {
	pool     *pgxpool.Pool
	embedder model.Embedder
}

func NewPostgresStore(ctx context.Context, connStr string, embedder model.Embedder) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return &PostgresStore{pool: pool, embedder: embedder}, nil
}

// Init creates the schema. The vector column dimension comes from the
// embedder, so Init must run after the embedder probe.
func (p *PostgresStore) Init(ctx context.Context) error {
	dim := p.embedder.Dimension()
	if dim <= 0 {
		return fmt.Errorf("embedder dimension unknown, initialize the embedder first")
	}

	query := fmt.Sprintf(`
	CREATE EXTENSION IF NOT EXISTS vector;

	CREATE TABLE IF NOT EXISTS documents (
		id UUID PRIMARY KEY,
		filename TEXT NOT NULL UNIQUE,
		title TEXT,
		author TEXT,
		total_pages INT NOT NULL,
		created_at TIMESTAMP WITH TIME ZONE
	);

	CREATE TABLE IF NOT EXISTS chunks (
		id TEXT PRIMARY KEY,
		seq INT NOT NULL,
		content TEXT NOT NULL,
		source TEXT NOT NULL,
		page_number TEXT NOT NULL,
		paragraph_number TEXT NOT NULL,
		total_pages TEXT NOT NULL,
		chunk_number TEXT NOT NULL DEFAULT '',
		embedding vector(%d)
	);

	CREATE INDEX IF NOT EXISTS idx_chunks_embedding ON chunks USING ivfflat (embedding vector_cosine_ops)
	WITH (lists = 100);

	CREATE INDEX IF NOT EXISTS idx_chunks_source ON chunks(source);
	`, dim)

	_, err := p.pool.Exec(ctx, query)
	return err
}

// Reset deletes every indexed record. Running it on an empty index is a
// safe no-op.
func (p *PostgresStore) Reset(ctx context.Context) error {
	stats, err := p.Stats(ctx)
	if err != nil {
		return err
	}
	if stats.DocumentCount == 0 {
		log.Printf("[STORE] index is empty, nothing to reset")
		return nil
	}

	log.Printf("[STORE] resetting index, deleting %d records...", stats.DocumentCount)
	_, err = p.pool.Exec(ctx, "TRUNCATE chunks, documents")
	return err
}

// AddAll embeds and stores every chunk with a deterministic sequential
// identifier. It refuses to add when the index already holds records.
func (p *PostgresStore) AddAll(ctx context.Context, chunks []types.Chunk) error {
	stats, err := p.Stats(ctx)
	if err != nil {
		return err
	}
	if stats.DocumentCount > 0 {
		log.Printf("[STORE] index already contains %d records, skipping add", stats.DocumentCount)
		return nil
	}

	log.Printf("[STORE] adding %d chunks to the index...", len(chunks))

	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for start := 0; start < len(chunks); start += embedBatchSize {
		end := start + embedBatchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[start:end]

		texts := make([]string, len(batch))
		for i, c := range batch {
			texts[i] = c.Text
		}

		vectors, err := p.embedder.Encode(ctx, texts)
		if err != nil {
			return fmt.Errorf("embedding failed: %w", err)
		}

		for i, c := range batch {
			seq := start + i
			meta := metadataToStrings(c.Metadata)
			_, err := tx.Exec(ctx, `
				INSERT INTO chunks (id, seq, content, source, page_number, paragraph_number, total_pages, chunk_number, embedding)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
				recordID(seq), seq, c.Text,
				meta["source"], meta["page_number"], meta["paragraph_number"], meta["total_pages"], meta["chunk_number"],
				pgvector.NewVector(vectors[i]),
			)
			if err != nil {
				return err
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}

	log.Printf("[STORE] added %d chunks, index now holds %d records", len(chunks), len(chunks))
	return nil
}

// Query embeds the text and returns the k nearest records by cosine
// distance, converted to similarity scores.
func (p *PostgresStore) Query(ctx context.Context, text string, k int) ([]types.RetrievedDocument, error) {
	vectors, err := p.embedder.Encode(ctx, []string{text})
	if err != nil {
		return nil, fmt.Errorf("embedding failed: %w", err)
	}

	rows, err := p.pool.Query(ctx, `
		SELECT content, source, page_number, paragraph_number, total_pages, chunk_number,
		       embedding <=> $1 AS distance
		FROM chunks
		WHERE embedding IS NOT NULL
		ORDER BY embedding <=> $1, seq
		LIMIT $2`,
		pgvector.NewVector(vectors[0]), k,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []types.RetrievedDocument
	for rows.Next() {
		var content, source, page, para, total, chunkNumber string
		var distance float64
		if err := rows.Scan(&content, &source, &page, &para, &total, &chunkNumber, &distance); err != nil {
			return nil, err
		}

		meta, err := metadataFromStrings(map[string]string{
			"source":           source,
			"page_number":      page,
			"paragraph_number": para,
			"total_pages":      total,
			"chunk_number":     chunkNumber,
		})
		if err != nil {
			return nil, err
		}

		results = append(results, types.RetrievedDocument{
			Text:       content,
			Metadata:   meta,
			Similarity: clampSimilarity(distance),
		})
	}

	return results, rows.Err()
}

func (p *PostgresStore) Stats(ctx context.Context) (Stats, error) {
	var count int
	if err := p.pool.QueryRow(ctx, "SELECT count(*) FROM chunks").Scan(&count); err != nil {
		return Stats{}, err
	}
	return Stats{DocumentCount: count, CollectionName: CollectionName}, nil
}

// Dump returns every indexed record in insertion order with stringified
// metadata. Diagnostic only.
func (p *PostgresStore) Dump(ctx context.Context) ([]Record, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT id, content, source, page_number, paragraph_number, total_pages, chunk_number
		FROM chunks ORDER BY seq`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var rec Record
		var source, page, para, total, chunkNumber string
		if err := rows.Scan(&rec.ID, &rec.Text, &source, &page, &para, &total, &chunkNumber); err != nil {
			return nil, err
		}
		rec.Metadata = map[string]string{
			"source":           source,
			"page_number":      page,
			"paragraph_number": para,
			"total_pages":      total,
		}
		if chunkNumber != "" {
			rec.Metadata["chunk_number"] = chunkNumber
		}
		records = append(records, rec)
	}

	return records, rows.Err()
}

// RegisterDocument upserts a source document into the registry.
func (p *PostgresStore) RegisterDocument(ctx context.Context, doc types.SourceDocument) error {
	_, err := p.pool.Exec(ctx, `
		INSERT INTO documents (id, filename, title, author, total_pages, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			title = EXCLUDED.title,
			author = EXCLUDED.author,
			total_pages = EXCLUDED.total_pages`,
		doc.ID, doc.Filename, doc.Title, doc.Author, doc.TotalPages, doc.CreatedAt,
	)
	return err
}

func (p *PostgresStore) Close() {
	if p.pool != nil {
		p.pool.Close()
		log.Println("[STORE] postgres connection pool closed")
	}
}
