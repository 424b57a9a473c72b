package retrieval

import (
	"context"
	"fmt"

	"habitloop/internal/embedding"
)

// Retriever embeds a query and searches one snippet collection. It is the
// read side consumed by the context assembler.
type Retriever struct {
	store    *SnippetStore
	embedder embedding.TextEmbedder
}

func NewRetriever(store *SnippetStore, embedder embedding.TextEmbedder) *Retriever {
	return &Retriever{store: store, embedder: embedder}
}

// Retrieve returns up to k ranked snippet texts for the query. userID filters
// to one user's snippets when non-nil.
func (r *Retriever) Retrieve(ctx context.Context, query string, k int, userID *uint) ([]string, error) {
	vec, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	results, err := r.store.Search(ctx, vec, k, userID)
	if err != nil {
		return nil, err
	}

	texts := make([]string, 0, len(results))
	for _, res := range results {
		texts = append(texts, res.Snippet.Text)
	}
	return texts, nil
}
