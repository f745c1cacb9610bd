// Package retriever issues similarity queries against the embedding index
// and returns results in the index's native descending-similarity order.
package retriever

import (
	"context"
	"fmt"

	"github.com/wbl65535/Data-Engineering-1/store"
	"github.com/wbl65535/Data-Engineering-1/types"
)

type Retriever struct {
	index store.Index
}

func New(index store.Index) *Retriever {
	return &Retriever{index: index}
}

// Search returns up to k documents ordered by descending similarity. When
// the index holds fewer than k records, everything available is returned.
// No re-ranking is applied on top of the index ordering.
func (r *Retriever) Search(ctx context.Context, query string, k int) ([]types.RetrievedDocument, error) {
	if k < 1 {
		return nil, fmt.Errorf("k must be >= 1, got %d", k)
	}
	return r.index.Query(ctx, query, k)
}
