package extract

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/wbl65535/Data-Engineering-1/types"
)

// Extractor drives extraction for a directory of PDFs: it validates each
// file, fetches its positioned-text stream from the layout service, runs
// the segmenter and writes one CSV artifact per document. A document that
// fails to open or parse is logged and skipped; the rest of the batch is
// unaffected.
type Extractor struct {
	layout    PageProvider
	segmenter *Segmenter

	// CropTop and CropBottom trim that many points from each page before
	// layout extraction. Zero leaves the page untouched.
	CropTop    float64
	CropBottom float64
}

func NewExtractor(layout PageProvider, segmenter *Segmenter) *Extractor {
	return &Extractor{layout: layout, segmenter: segmenter}
}

// ExtractDocument processes a single PDF and returns its registry entry
// plus the ordered chunks.
func (e *Extractor) ExtractDocument(ctx context.Context, path string) (types.SourceDocument, []types.Chunk, error) {
	filename := filepath.Base(path)

	if err := ValidatePDF(path); err != nil {
		return types.SourceDocument{}, nil, err
	}

	totalPages, err := PageCount(path)
	if err != nil {
		return types.SourceDocument{}, nil, err
	}

	layoutPath := path
	if e.CropTop > 0 || e.CropBottom > 0 {
		cropped := filepath.Join(os.TempDir(), "cropped_"+filename)
		if err := CropHeaderFooter(path, cropped, e.CropTop, e.CropBottom); err != nil {
			log.Printf("[EXTRACT] crop failed for %s, using original: %v", filename, err)
		} else {
			layoutPath = cropped
			defer os.Remove(cropped)
		}
	}

	layout, err := e.layout.ExtractLayout(ctx, layoutPath)
	if err != nil {
		return types.SourceDocument{}, nil, fmt.Errorf("layout extraction failed for %s: %w", filename, err)
	}

	if len(layout.Pages) != totalPages {
		log.Printf("[EXTRACT] page count mismatch for %s: pdf reports %d, layout returned %d", filename, totalPages, len(layout.Pages))
		totalPages = len(layout.Pages)
	}

	log.Printf("[EXTRACT] loaded %s, %d pages", filename, totalPages)

	chunks := e.segmenter.Segment(layout, filename)
	log.Printf("[EXTRACT] %s produced %d chunks", filename, len(chunks))

	title := layout.Title
	if title == "" {
		title = strings.TrimSuffix(filename, filepath.Ext(filename))
	}

	doc := types.SourceDocument{
		ID:         types.DocumentID(filename),
		Filename:   filename,
		Title:      title,
		Author:     layout.Author,
		TotalPages: totalPages,
		CreatedAt:  time.Now(),
	}

	return doc, chunks, nil
}

// ExtractAll processes every PDF in pdfDir, writing one artifact per
// document into outputDir. Per-document failures are logged and skipped.
func (e *Extractor) ExtractAll(ctx context.Context, pdfDir, outputDir string) ([]types.SourceDocument, []types.Chunk, error) {
	entries, err := os.ReadDir(pdfDir)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read pdf directory %s: %w", pdfDir, err)
	}

	var docs []types.SourceDocument
	var all []types.Chunk

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(strings.ToLower(entry.Name()), ".pdf") {
			continue
		}

		path := filepath.Join(pdfDir, entry.Name())
		doc, chunks, err := e.ExtractDocument(ctx, path)
		if err != nil {
			log.Printf("[EXTRACT] skipping %s: %v", entry.Name(), err)
			continue
		}

		if err := WriteArtifact(ArtifactPath(outputDir, doc.Filename), chunks); err != nil {
			log.Printf("[EXTRACT] failed to write artifact for %s: %v", doc.Filename, err)
			continue
		}

		docs = append(docs, doc)
		all = append(all, chunks...)
	}

	log.Printf("[EXTRACT] extracted %d chunks from %d documents", len(all), len(docs))
	return docs, all, nil
}
