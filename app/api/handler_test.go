package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wbl65535/Data-Engineering-1/model"
	"github.com/wbl65535/Data-Engineering-1/qa"
	"github.com/wbl65535/Data-Engineering-1/retriever"
	"github.com/wbl65535/Data-Engineering-1/store"
	"github.com/wbl65535/Data-Engineering-1/types"
)

type staticEmbedder struct{}

func (staticEmbedder) Init(ctx context.Context) error { return nil }
func (staticEmbedder) Dimension() int                 { return 2 }

func (staticEmbedder) Encode(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 0}
	}
	return out, nil
}

func testApp(t *testing.T) (*fiber.App, store.Index) {
	t.Helper()
	idx := store.NewMemoryStore(staticEmbedder{})
	r := retriever.New(idx)
	composer := qa.NewComposer(model.NewCompletionClient("http://127.0.0.1:0", "test-model", "test-key"))

	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
	app.Post("/api/v1/ask", NewAskHandler(r, composer, 5).HandleAsk)
	app.Get("/check/healthy", NewCheckHandler(idx).HandleHealthy)
	return app, idx
}

func TestHandleAskValidatesBody(t *testing.T) {
	app, _ := testApp(t)

	body := bytes.NewBufferString(`{"top_k": 3}`)
	req := httptest.NewRequest("POST", "/api/v1/ask", body)
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestHandleAskOnEmptyIndexDeclines(t *testing.T) {
	app, _ := testApp(t)

	body := bytes.NewBufferString(`{"question": "what is a watermark?"}`)
	req := httptest.NewRequest("POST", "/api/v1/ask", body)
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var answer types.AnswerResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&answer))
	assert.Equal(t, "what is a watermark?", answer.Query)
	assert.NotEmpty(t, answer.Answer)
	assert.NotContains(t, answer.Answer, "[Source")
	assert.Empty(t, answer.Sources)
}

func TestHandleHealthyReportsStats(t *testing.T) {
	app, idx := testApp(t)

	chunks := []types.Chunk{{
		Text:     "Windowing groups events by time for incremental aggregation.",
		Metadata: types.ChunkMetadata{Source: "w.pdf", PageNumber: 1, ParagraphNumber: 1, TotalPages: 1},
	}}
	require.NoError(t, idx.AddAll(context.Background(), chunks))

	req := httptest.NewRequest("GET", "/check/healthy", nil)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, "healthy", out["status"])
	assert.Equal(t, float64(1), out["document_count"])
}
