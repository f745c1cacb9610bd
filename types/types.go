package types

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// SourceDocument describes one ingested course document. It is immutable
// once extraction has finished.
type SourceDocument struct {
	ID         uuid.UUID
	Filename   string
	Title      string
	Author     string
	TotalPages int
	CreatedAt  time.Time
}

// DocumentID derives a stable identifier from the document filename, so
// re-ingesting the same file never produces a second registry row.
func DocumentID(filename string) uuid.UUID {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(filename))
}

// ChunkMetadata carries the provenance of a chunk. It is sufficient on its
// own to build a human-readable citation (source, page, paragraph).
type ChunkMetadata struct {
	Source          string `json:"source"`
	PageNumber      int    `json:"page_number"`
	ParagraphNumber int    `json:"paragraph_number"`
	TotalPages      int    `json:"total_pages"`
	// ChunkNumber is set only when a long paragraph was split into
	// overlapping chunks, 1-based. Zero means the paragraph fit whole.
	ChunkNumber int `json:"chunk_number,omitempty"`
}

// Chunk is the atomic retrievable unit produced by the segmenter.
type Chunk struct {
	Text     string        `json:"text"`
	Metadata ChunkMetadata `json:"metadata"`
}

// RetrievedDocument is a chunk returned from a similarity search.
// Similarity is 1-distance clamped to [0,1]; higher means more relevant.
type RetrievedDocument struct {
	Text       string        `json:"text"`
	Metadata   ChunkMetadata `json:"metadata"`
	Similarity float64       `json:"similarity"`
}

// AnswerResponse is the externally visible result of one question. The
// answer text refers to sources by their 1-based position in Sources.
type AnswerResponse struct {
	Query   string              `json:"query"`
	Answer  string              `json:"answer"`
	Sources []RetrievedDocument `json:"sources"`
}

// Config holds everything the process reads from the environment, loaded
// once at startup and passed down explicitly.
type Config struct {
	PDFDir       string
	ExtractedDir string
	DumpPath     string

	ChunkSize    int
	ChunkOverlap int
	TopK         int

	// Points trimmed from each page before layout extraction, to keep
	// running headers and footers out of the paragraphs. Zero disables.
	CropTop    float64
	CropBottom float64

	StoreType string // "postgres" or "memory"
	PGConnStr string

	LayoutURL string

	EmbeddingURL    string
	EmbeddingModel  string
	EmbeddingAPIKey string

	LLMBaseURL string
	LLMModel   string
	LLMAPIKey  string

	ServerAddr string
}

// FromEnv builds the config from environment variables, applying defaults
// that match the on-disk layout of the knowledge base.
func FromEnv() Config {
	cfg := Config{
		PDFDir:          envOr("PDF_DIR", "Resource"),
		ExtractedDir:    envOr("EXTRACTED_DIR", "data/extracted"),
		DumpPath:        envOr("DUMP_PATH", "data/vector_content.json"),
		ChunkSize:       envInt("CHUNK_SIZE", 500),
		ChunkOverlap:    envInt("CHUNK_OVERLAP", 50),
		TopK:            envInt("TOP_K", 5),
		CropTop:         envFloat("CROP_TOP", 0),
		CropBottom:      envFloat("CROP_BOTTOM", 0),
		StoreType:       envOr("STORE_TYPE", "postgres"),
		LayoutURL:       os.Getenv("LAYOUT_URL"),
		EmbeddingURL:    os.Getenv("EMBEDDING_URL"),
		EmbeddingModel:  envOr("EMBEDDING_MODEL", "paraphrase-multilingual-MiniLM-L12-v2"),
		EmbeddingAPIKey: os.Getenv("EMBEDDING_API_KEY"),
		LLMBaseURL:      envOr("LLM_BASE_URL", "https://api.siliconflow.cn/v1"),
		LLMModel:        envOr("LLM_MODEL", "Qwen/Qwen2.5-72B-Instruct"),
		LLMAPIKey:       os.Getenv("API_KEY"),
		ServerAddr:      envOr("SERVER_ADDR", ":8080"),
	}

	port := envInt("PG_PORT", 5432)
	cfg.PGConnStr = fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		envOr("PG_HOST", "localhost"), port, os.Getenv("PG_USER"), os.Getenv("PG_PASS"), os.Getenv("PG_DB_NAME"))

	return cfg
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func envFloat(key string, def float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}
