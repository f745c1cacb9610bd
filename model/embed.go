package model

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"math"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

// Embedder converts batches of texts into fixed-length vectors. It must be
// deterministic for a fixed input and model version. Init loads or probes
// the embedding function and must succeed before the index is built.
type Embedder interface {
	Init(ctx context.Context) error
	Encode(ctx context.Context, texts []string) ([][]float32, error)
	Dimension() int
}

// HTTPEmbedder calls an OpenAI-compatible embeddings endpoint.
type HTTPEmbedder struct {
	apiURL    string
	model     string
	cacheDir  string
	dimension int
	client    *http.Client

	// APIKey is sent as a bearer token when set. Local embedding
	// services run without auth, so empty means no header.
	APIKey string

	// initWaits are the pauses between failed initialization probes.
	initWaits []time.Duration
}

type embeddingRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embeddingResponse struct {
	Data []struct {
		Embedding []float64 `json:"embedding"`
	} `json:"data"`
}

// modelDescriptor is cached on disk after a successful probe so the
// embedder can come up in a degraded offline mode when the service is
// unreachable at startup.
type modelDescriptor struct {
	Model     string `json:"model"`
	Dimension int    `json:"dimension"`
}

func NewHTTPEmbedder(apiURL, model, cacheDir string) *HTTPEmbedder {
	if cacheDir == "" {
		cacheDir = "model_cache"
	}
	return &HTTPEmbedder{
		apiURL:    apiURL,
		model:     model,
		cacheDir:  cacheDir,
		client:    &http.Client{Timeout: 30 * time.Second},
		initWaits: []time.Duration{10 * time.Second, 20 * time.Second},
	}
}

// Init probes the embedding service. It retries twice with growing waits,
// then falls back to the cached model descriptor from an earlier run; if
// neither works the error propagates and the build must stop.
func (e *HTTPEmbedder) Init(ctx context.Context) error {
	log.Printf("[EMBEDDER] loading embedding model: %s", e.model)

	attempts := len(e.initWaits) + 1
	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		vectors, err := e.Encode(ctx, []string{"ping"})
		if err == nil && len(vectors) == 1 {
			e.dimension = len(vectors[0])
			if err := e.saveDescriptor(); err != nil {
				log.Printf("[EMBEDDER] failed to cache model descriptor: %v", err)
			}
			log.Printf("[EMBEDDER] embedding model ready, dimension %d", e.dimension)
			return nil
		}
		lastErr = err
		if attempt < len(e.initWaits) {
			wait := e.initWaits[attempt]
			log.Printf("[EMBEDDER] load failed, retrying in %v... (%v)", wait, err)
			select {
			case <-time.After(wait):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}

	log.Printf("[EMBEDDER] service unreachable, trying offline mode...")
	desc, err := e.loadDescriptor()
	if err != nil {
		return fmt.Errorf("failed to load embedding model %s: %w (offline fallback: %v)", e.model, lastErr, err)
	}

	e.dimension = desc.Dimension
	log.Printf("[EMBEDDER] offline mode: using cached descriptor, dimension %d", e.dimension)
	return nil
}

// Encode embeds a batch of texts. Returned vectors are L2-normalized so
// cosine distance stays within [0,1].
func (e *HTTPEmbedder) Encode(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	body, err := json.Marshal(embeddingRequest{Model: e.model, Input: texts})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", e.apiURL, bytes.NewBuffer(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if e.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+e.APIKey)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("embedding API error: status %d, body: %s", resp.StatusCode, string(respBody))
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var out embeddingResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	if len(out.Data) != len(texts) {
		return nil, fmt.Errorf("embedding API returned %d vectors for %d texts", len(out.Data), len(texts))
	}

	vectors := make([][]float32, len(out.Data))
	for i, d := range out.Data {
		norm := normalize64(d.Embedding)
		vec := make([]float32, len(norm))
		for j, v := range norm {
			vec[j] = float32(v)
		}
		vectors[i] = vec
	}

	if e.dimension == 0 && len(vectors) > 0 {
		e.dimension = len(vectors[0])
	}

	return vectors, nil
}

func (e *HTTPEmbedder) Dimension() int { return e.dimension }

func (e *HTTPEmbedder) descriptorPath() string {
	return filepath.Join(e.cacheDir, "model.json")
}

func (e *HTTPEmbedder) saveDescriptor() error {
	if err := os.MkdirAll(e.cacheDir, 0755); err != nil {
		return err
	}
	data, err := json.Marshal(modelDescriptor{Model: e.model, Dimension: e.dimension})
	if err != nil {
		return err
	}
	return os.WriteFile(e.descriptorPath(), data, 0644)
}

func (e *HTTPEmbedder) loadDescriptor() (*modelDescriptor, error) {
	data, err := os.ReadFile(e.descriptorPath())
	if err != nil {
		return nil, err
	}
	var desc modelDescriptor
	if err := json.Unmarshal(data, &desc); err != nil {
		return nil, err
	}
	if desc.Model != e.model || desc.Dimension <= 0 {
		return nil, fmt.Errorf("cached descriptor does not match model %s", e.model)
	}
	return &desc, nil
}

// normalize64 scales a vector to unit length.
func normalize64(vec []float64) []float64 {
	var sum float64
	for _, v := range vec {
		sum += v * v
	}
	norm := math.Sqrt(sum)
	if norm == 0 {
		return vec
	}

	out := make([]float64, len(vec))
	for i, x := range vec {
		out[i] = x / norm
	}
	return out
}
