package embedding

import (
	"context"
	"encoding/json"
	"fmt"
)

// Caller posts a JSON payload through the request queue and returns the raw
// response body. Satisfied by the llm queue client.
type Caller interface {
	Call(ctx context.Context, url string, payload map[string]interface{}) ([]byte, error)
}

// QueueEmbedder routes embedding requests through the shared request queue,
// so bulk ingestion competes for the same concurrency slots as generation
// instead of opening its own connections. Submitted at whatever priority the
// wrapped client carries; ingestion uses the background tier.
type QueueEmbedder struct {
	caller Caller
	apiURL string
	model  string
}

func NewQueueEmbedder(caller Caller, apiURL, model string) *QueueEmbedder {
	return &QueueEmbedder{caller: caller, apiURL: apiURL, model: model}
}

// Embed converts text to a vector embedding via the queue.
func (e *QueueEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	payload := map[string]interface{}{
		"input": text,
		"model": e.model,
	}

	body, err := e.caller.Call(ctx, e.apiURL, payload)
	if err != nil {
		return nil, fmt.Errorf("embedding call failed: %w", err)
	}

	var result struct {
		Data []struct {
			Embedding []float32 `json:"embedding"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if len(result.Data) == 0 {
		return nil, fmt.Errorf("no embeddings returned")
	}
	return result.Data[0].Embedding, nil
}
