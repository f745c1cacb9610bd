package store

import (
	"context"
	"fmt"

	"github.com/wbl65535/Data-Engineering-1/model"
	"github.com/wbl65535/Data-Engineering-1/types"
)

// Open builds the configured index implementation. The returned index is
// owned by the caller for the process lifetime.
func Open(ctx context.Context, cfg types.Config, embedder model.Embedder) (Index, error) {
	switch cfg.StoreType {
	case "postgres", "":
		return NewPostgresStore(ctx, cfg.PGConnStr, embedder)
	case "memory":
		return NewMemoryStore(embedder), nil
	default:
		return nil, fmt.Errorf("unsupported store type: %s", cfg.StoreType)
	}
}
