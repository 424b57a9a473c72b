package research

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/google/uuid"

	"habitloop/internal/embedding"
	"habitloop/internal/retrieval"
)

const (
	defaultChunkChars   = 1200
	defaultChunkOverlap = 150
)

// Ingestor chunks extracted documents, embeds the chunks and indexes them
// into the research snippet collection.
type Ingestor struct {
	store    *retrieval.SnippetStore
	embedder embedding.TextEmbedder

	ChunkChars   int
	ChunkOverlap int
}

func NewIngestor(store *retrieval.SnippetStore, embedder embedding.TextEmbedder) *Ingestor {
	return &Ingestor{
		store:        store,
		embedder:     embedder,
		ChunkChars:   defaultChunkChars,
		ChunkOverlap: defaultChunkOverlap,
	}
}

// Ingest indexes one document and returns the number of chunks stored.
func (ing *Ingestor) Ingest(ctx context.Context, doc *Document) (int, error) {
	if strings.TrimSpace(doc.Text) == "" {
		return 0, fmt.Errorf("document %q has no text", doc.Source)
	}

	chunks := Chunk(doc.Text, ing.ChunkChars, ing.ChunkOverlap)
	log.Printf("[Research] Ingesting %q: %d chunks", doc.Source, len(chunks))

	stored := 0
	for _, chunk := range chunks {
		vec, err := ing.embedder.Embed(ctx, chunk)
		if err != nil {
			return stored, fmt.Errorf("failed to embed chunk: %w", err)
		}
		err = ing.store.Index(ctx, retrieval.Snippet{
			ID:        uuid.New().String(),
			Text:      chunk,
			Source:    doc.Source,
			Embedding: vec,
		})
		if err != nil {
			return stored, fmt.Errorf("failed to index chunk: %w", err)
		}
		stored++
	}
	return stored, nil
}

// Chunk splits text into overlapping windows, preferring to break at word
// boundaries near the target size.
func Chunk(text string, size, overlap int) []string {
	if size <= 0 {
		size = defaultChunkChars
	}
	if overlap < 0 || overlap >= size {
		overlap = 0
	}

	text = strings.TrimSpace(text)
	if len(text) <= size {
		if text == "" {
			return nil
		}
		return []string{text}
	}

	var chunks []string
	start := 0
	for start < len(text) {
		end := start + size
		if end >= len(text) {
			chunks = append(chunks, strings.TrimSpace(text[start:]))
			break
		}
		// Back up to a space so words stay whole
		cut := end
		for cut > start && text[cut] != ' ' && text[cut] != '\n' {
			cut--
		}
		if cut == start {
			cut = end
		}
		chunks = append(chunks, strings.TrimSpace(text[start:cut]))
		next := cut - overlap
		if next <= start {
			// Overlap would stall the window; advance past the cut instead.
			next = cut
		}
		start = next
	}
	return chunks
}
