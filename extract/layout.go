package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

// BBox is a rectangle in layout units: x0, y0, x1, y1.
type BBox [4]float64

func (b BBox) Y0() float64 { return b[1] }
func (b BBox) Y1() float64 { return b[3] }

// Span is a positioned run of text within a line.
type Span struct {
	Text string `json:"text"`
	BBox BBox   `json:"bbox"`
}

// Line is a positioned row of spans.
type Line struct {
	Spans []Span `json:"spans"`
	BBox  BBox   `json:"bbox"`
}

// Block is a structural unit of a page. Type distinguishes block kinds
// (0 = text, 1 = image) as reported by the layout service.
type Block struct {
	Type  int    `json:"type"`
	BBox  BBox   `json:"bbox"`
	Lines []Line `json:"lines"`
}

// Page carries the structured blocks of one page plus the plain extracted
// text used as a fallback when no usable blocks are present.
type Page struct {
	Blocks []Block `json:"blocks"`
	Text   string  `json:"text"`
}

// Layout is the positioned-text stream of one document.
type Layout struct {
	Title  string `json:"title"`
	Author string `json:"author"`
	Pages  []Page `json:"pages"`
}

// PageProvider yields the positioned-text stream for a document path.
type PageProvider interface {
	ExtractLayout(ctx context.Context, filePath string) (*Layout, error)
}

// LayoutClient talks to the external layout-analysis service, which accepts
// a PDF upload and returns per-page blocks, lines and spans with bboxes.
type LayoutClient struct {
	url    string
	client *http.Client
}

func NewLayoutClient(url string) *LayoutClient {
	return &LayoutClient{
		url:    url,
		client: &http.Client{Timeout: 5 * time.Minute},
	}
}

type layoutResponse struct {
	Document Layout `json:"document"`
}

func (c *LayoutClient) ExtractLayout(ctx context.Context, filePath string) (*Layout, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile("files", filepath.Base(filePath))
	if err != nil {
		return nil, err
	}

	if _, err := io.Copy(part, file); err != nil {
		return nil, err
	}

	writer.Close()

	req, err := http.NewRequestWithContext(ctx, "POST", c.url, &buf)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("layout service error: status %d, body: %s", resp.StatusCode, string(body))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var d layoutResponse
	if err := json.Unmarshal(body, &d); err != nil {
		return nil, fmt.Errorf("failed to unmarshal layout response: %w", err)
	}

	return &d.Document, nil
}
