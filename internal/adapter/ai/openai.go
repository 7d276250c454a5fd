package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
)

// ErrMissingAPIKey is returned when a hosted endpoint is called without a token.
var ErrMissingAPIKey = errors.New("missing api key")

// OpenAIEmbedder implements port.Embedder against any OpenAI-compatible
// /embeddings endpoint.
type OpenAIEmbedder struct {
	c *client
}

// NewOpenAIEmbedder creates an embedder for an OpenAI-compatible API.
func NewOpenAIEmbedder(cfg EndpointConfig) *OpenAIEmbedder {
	return &OpenAIEmbedder{c: newClient("openai", cfg)}
}

func (o *OpenAIEmbedder) ModelName() string { return o.c.cfg.Model }

func (o *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := o.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedBatch returns one vector per text, ordered by the response index field.
func (o *OpenAIEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	if o.c.cfg.Token == "" {
		return nil, fmt.Errorf("openai embeddings: %w", ErrMissingAPIKey)
	}

	body, err := o.c.post(ctx, "/embeddings", map[string]any{
		"model": o.c.cfg.Model,
		"input": texts,
	})
	if err != nil {
		return nil, fmt.Errorf("openai embeddings: %w", err)
	}

	var resp struct {
		Data []struct {
			Index     int       `json:"index"`
			Embedding []float32 `json:"embedding"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("openai embeddings decode: %w", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("openai embeddings: got %d embeddings for %d inputs", len(resp.Data), len(texts))
	}

	sort.Slice(resp.Data, func(i, j int) bool { return resp.Data[i].Index < resp.Data[j].Index })
	out := make([][]float32, len(resp.Data))
	for i, d := range resp.Data {
		out[i] = d.Embedding
	}
	return out, nil
}

// OpenAICompleter implements port.Completer with a single-message
// /chat/completions request. Groq is the default endpoint.
type OpenAICompleter struct {
	c           *client
	temperature float64
	maxTokens   int
}

// NewOpenAICompleter creates a completer for an OpenAI-compatible API.
func NewOpenAICompleter(cfg EndpointConfig, temperature float64, maxTokens int) *OpenAICompleter {
	return &OpenAICompleter{c: newClient("openai", cfg), temperature: temperature, maxTokens: maxTokens}
}

func (o *OpenAICompleter) ModelName() string { return o.c.cfg.Model }

// Complete sends prompt as the user message and returns the first choice.
func (o *OpenAICompleter) Complete(ctx context.Context, prompt string) (string, error) {
	if o.c.cfg.Token == "" {
		return "", fmt.Errorf("chat completion: %w", ErrMissingAPIKey)
	}

	payload := map[string]any{
		"model":       o.c.cfg.Model,
		"messages":    []map[string]string{{"role": "user", "content": prompt}},
		"temperature": o.temperature,
		"stream":      false,
	}
	if o.maxTokens > 0 {
		payload["max_tokens"] = o.maxTokens
	}

	body, err := o.c.post(ctx, "/chat/completions", payload)
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}

	var resp struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("chat completion decode: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("chat completion: empty response")
	}
	return resp.Choices[0].Message.Content, nil
}
