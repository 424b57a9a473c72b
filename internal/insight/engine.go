package insight

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"
)

// LLMCaller is the queue-client contract the engine submits requests through.
type LLMCaller interface {
	Call(ctx context.Context, url string, payload map[string]interface{}) ([]byte, error)
}

// Engine issues exactly one language-model call per Generate and returns the
// model's raw text unchanged. It never retries; transport errors propagate.
type Engine struct {
	client      LLMCaller
	url         string
	model       string
	temperature float64
	maxTokens   int
}

func NewEngine(client LLMCaller, url, model string, temperature float64, maxTokens int) *Engine {
	return &Engine{
		client:      client,
		url:         url,
		model:       model,
		temperature: temperature,
		maxTokens:   maxTokens,
	}
}

// Generate renders the prompt for the assembled context and invokes the model.
func (e *Engine) Generate(ctx context.Context, jc *JournalContext) (string, error) {
	prompt := BuildUserPrompt(jc)

	payload := map[string]interface{}{
		"model":      e.model,
		"max_tokens": e.maxTokens,
		"messages": []map[string]string{
			{"role": "system", "content": systemPrompt},
			{"role": "user", "content": prompt},
		},
		"temperature": e.temperature,
		"stream":      false,
	}

	log.Printf("[Engine] LLM call for user %d (prompt length: %d chars)", jc.UserID, len(prompt))
	startTime := time.Now()

	body, err := e.client.Call(ctx, e.url, payload)
	if err != nil {
		return "", fmt.Errorf("LLM call failed: %w", err)
	}

	log.Printf("[Engine] LLM response received in %s", time.Since(startTime))

	var result struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	if len(result.Choices) == 0 {
		return "", fmt.Errorf("no choices returned from LLM")
	}

	return strings.TrimSpace(result.Choices[0].Message.Content), nil
}
