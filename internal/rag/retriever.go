package rag

import (
	"context"
	"fmt"
)

// Retriever embeds a query and returns the top-k most similar chunks from
// the index. It does not retry embedding failures; retry policy belongs to
// the embedding client.
type Retriever struct {
	index    *Index
	embedder EmbeddingClient
}

func NewRetriever(index *Index, embedder EmbeddingClient) *Retriever {
	return &Retriever{index: index, embedder: embedder}
}

// Retrieve returns up to k chunks ranked by similarity to query. An empty
// index is a valid state (knowledge base not built yet) and yields an empty
// result without calling the embedding provider.
func (r *Retriever) Retrieve(ctx context.Context, query string, k int) ([]Result, error) {
	if k <= 0 {
		return nil, fmt.Errorf("%w: k must be positive, got %d", ErrInvalidArgument, k)
	}
	if r.index.Size() == 0 {
		return nil, nil
	}

	vec, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmbeddingUnavailable, err)
	}
	return r.index.Query(vec, k)
}
