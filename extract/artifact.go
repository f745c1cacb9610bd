package extract

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/wbl65535/Data-Engineering-1/types"
)

const artifactSuffix = "_extracted.csv"

var artifactHeader = []string{"text", "source", "page_number", "paragraph_number", "total_pages", "chunk_number"}

// ArtifactPath returns where the extraction artifact of a document lives.
func ArtifactPath(outputDir, filename string) string {
	stem := strings.TrimSuffix(filename, filepath.Ext(filename))
	return filepath.Join(outputDir, stem+artifactSuffix)
}

// WriteArtifact persists the extracted chunks of one document as a UTF-8
// CSV, one record per chunk, so later builds can skip re-segmentation.
func WriteArtifact(path string, chunks []types.Chunk) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(artifactHeader); err != nil {
		return err
	}

	for _, c := range chunks {
		chunkNumber := ""
		if c.Metadata.ChunkNumber > 0 {
			chunkNumber = strconv.Itoa(c.Metadata.ChunkNumber)
		}
		record := []string{
			c.Text,
			c.Metadata.Source,
			strconv.Itoa(c.Metadata.PageNumber),
			strconv.Itoa(c.Metadata.ParagraphNumber),
			strconv.Itoa(c.Metadata.TotalPages),
			chunkNumber,
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}

// ReadArtifact loads chunks back from an extraction artifact.
func ReadArtifact(path string) ([]types.Chunk, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read artifact %s: %w", path, err)
	}
	if len(records) == 0 {
		return nil, nil
	}

	var chunks []types.Chunk
	for _, rec := range records[1:] {
		if len(rec) < 5 {
			continue
		}
		page, err := strconv.Atoi(rec[2])
		if err != nil {
			return nil, fmt.Errorf("bad page_number in %s: %w", path, err)
		}
		para, err := strconv.Atoi(rec[3])
		if err != nil {
			return nil, fmt.Errorf("bad paragraph_number in %s: %w", path, err)
		}
		total, err := strconv.Atoi(rec[4])
		if err != nil {
			return nil, fmt.Errorf("bad total_pages in %s: %w", path, err)
		}
		chunkNumber := 0
		if len(rec) > 5 && rec[5] != "" {
			chunkNumber, err = strconv.Atoi(rec[5])
			if err != nil {
				return nil, fmt.Errorf("bad chunk_number in %s: %w", path, err)
			}
		}
		chunks = append(chunks, types.Chunk{
			Text: rec[0],
			Metadata: types.ChunkMetadata{
				Source:          rec[1],
				PageNumber:      page,
				ParagraphNumber: para,
				TotalPages:      total,
				ChunkNumber:     chunkNumber,
			},
		})
	}

	return chunks, nil
}

// LoadArtifacts reads every extraction artifact in the directory, in
// lexical order, and returns the combined chunk list.
func LoadArtifacts(dir string) ([]types.Chunk, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var all []types.Chunk
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), artifactSuffix) {
			continue
		}
		chunks, err := ReadArtifact(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, err
		}
		all = append(all, chunks...)
	}

	return all, nil
}
