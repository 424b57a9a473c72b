// internal/retrieval/store.go
package retrieval

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
)

// Snippet is one ranked text fragment stored in a vector collection.
type Snippet struct {
	ID        string
	UserID    *uint // nil for shared collections (research)
	Text      string
	Source    string
	CreatedAt time.Time
	Embedding []float32
}

// Result pairs a snippet with its retrieval score.
type Result struct {
	Snippet Snippet
	Score   float64
}

// SnippetStore handles vector operations for one collection.
type SnippetStore struct {
	client         *qdrant.Client
	collectionName string
	vectorSize     int
}

// NewSnippetStore creates a store bound to one qdrant collection.
func NewSnippetStore(qdrantURL, collectionName, apiKey string, vectorSize int) (*SnippetStore, error) {
	// Strip http:// or https:// prefix and any port
	qdrantURL = strings.TrimPrefix(qdrantURL, "http://")
	qdrantURL = strings.TrimPrefix(qdrantURL, "https://")

	host := qdrantURL
	if idx := strings.Index(qdrantURL, ":"); idx != -1 {
		host = qdrantURL[:idx]
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   host,
		Port:   6334, // gRPC port
		APIKey: apiKey,
		UseTLS: false,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Qdrant client: %w", err)
	}

	s := &SnippetStore{
		client:         client,
		collectionName: collectionName,
		vectorSize:     vectorSize,
	}

	if err := s.ensureCollection(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to ensure collection: %w", err)
	}

	return s, nil
}

// ensureCollection creates the collection if it doesn't exist
func (s *SnippetStore) ensureCollection(ctx context.Context) error {
	exists, err := s.client.CollectionExists(ctx, s.collectionName)
	if err != nil {
		return fmt.Errorf("failed to check collection existence: %w", err)
	}
	if exists {
		return nil
	}

	err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: s.collectionName,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(s.vectorSize),
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}

	indexes := []struct {
		field string
		typ   qdrant.PayloadSchemaType
	}{
		{"user_id", qdrant.PayloadSchemaType_Keyword},
		{"source", qdrant.PayloadSchemaType_Keyword},
		{"created_at", qdrant.PayloadSchemaType_Integer},
	}

	for _, idx := range indexes {
		fieldType := qdrant.FieldType(idx.typ)
		_, err = s.client.CreateFieldIndex(ctx, &qdrant.CreateFieldIndexCollection{
			CollectionName: s.collectionName,
			FieldName:      idx.field,
			FieldType:      &fieldType,
			Wait:           boolPtr(true),
		})
		if err != nil {
			return fmt.Errorf("failed to create index for %s: %w", idx.field, err)
		}
	}

	return nil
}

// Index upserts a snippet with its embedding.
func (s *SnippetStore) Index(ctx context.Context, snippet Snippet) error {
	if snippet.ID == "" {
		snippet.ID = uuid.New().String()
	}
	if len(snippet.Embedding) != s.vectorSize {
		return fmt.Errorf("embedding size %d does not match collection size %d",
			len(snippet.Embedding), s.vectorSize)
	}
	if snippet.CreatedAt.IsZero() {
		snippet.CreatedAt = time.Now()
	}

	payload := map[string]*qdrant.Value{
		"snippet_id": qdrant.NewValueString(snippet.ID),
		"text":       qdrant.NewValueString(snippet.Text),
		"source":     qdrant.NewValueString(snippet.Source),
		"created_at": qdrant.NewValueInt(snippet.CreatedAt.Unix()),
	}
	if snippet.UserID != nil {
		payload["user_id"] = qdrant.NewValueString(fmt.Sprintf("%d", *snippet.UserID))
	}

	point := &qdrant.PointStruct{
		Id:      qdrant.NewIDUUID(snippet.ID),
		Vectors: qdrant.NewVectors(snippet.Embedding...),
		Payload: payload,
	}

	_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: s.collectionName,
		Points:         []*qdrant.PointStruct{point},
	})
	if err != nil {
		return fmt.Errorf("failed to upsert snippet: %w", err)
	}
	return nil
}

// Search returns the top-k snippets for a query vector. When userID is
// non-nil, results are filtered to that user's snippets.
func (s *SnippetStore) Search(ctx context.Context, queryEmbedding []float32, k int, userID *uint) ([]Result, error) {
	var filter *qdrant.Filter
	if userID != nil {
		filter = &qdrant.Filter{
			Must: []*qdrant.Condition{
				qdrant.NewMatch("user_id", fmt.Sprintf("%d", *userID)),
			},
		}
	}

	searchResult, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: s.collectionName,
		Query:          qdrant.NewQuery(queryEmbedding...),
		Filter:         filter,
		Limit:          uint64Ptr(uint64(k)),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	results := make([]Result, 0, len(searchResult))
	for _, point := range searchResult {
		results = append(results, Result{
			Snippet: pointToSnippet(point),
			Score:   float64(point.Score),
		})
	}
	return results, nil
}

func pointToSnippet(point *qdrant.ScoredPoint) Snippet {
	payload := point.Payload
	snippet := Snippet{
		ID:        getStringFromPayload(payload, "snippet_id"),
		Text:      getStringFromPayload(payload, "text"),
		Source:    getStringFromPayload(payload, "source"),
		CreatedAt: time.Unix(getIntFromPayload(payload, "created_at"), 0),
	}
	if raw := getStringFromPayload(payload, "user_id"); raw != "" {
		var id uint
		if _, err := fmt.Sscanf(raw, "%d", &id); err == nil {
			snippet.UserID = &id
		}
	}
	return snippet
}

// Helper functions for payload extraction
func getStringFromPayload(payload map[string]*qdrant.Value, key string) string {
	if val, ok := payload[key]; ok && val.GetStringValue() != "" {
		return val.GetStringValue()
	}
	return ""
}

func getIntFromPayload(payload map[string]*qdrant.Value, key string) int64 {
	if val, ok := payload[key]; ok {
		return val.GetIntegerValue()
	}
	return 0
}

func boolPtr(b bool) *bool       { return &b }
func uint64Ptr(n uint64) *uint64 { return &n }
