package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// OllamaEmbedder implements port.Embedder using the Ollama REST API.
type OllamaEmbedder struct {
	c *client
}

// NewOllamaEmbedder creates an embedder for the /api/embed endpoint.
func NewOllamaEmbedder(cfg EndpointConfig) *OllamaEmbedder {
	return &OllamaEmbedder{c: newClient("ollama", cfg)}
}

// ModelName returns the embedding model identifier.
func (o *OllamaEmbedder) ModelName() string {
	return o.c.cfg.Model
}

// Embed generates a vector embedding for the given text.
func (o *OllamaEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := o.embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("ollama embed: %w", err)
	}
	if len(vectors) == 0 {
		return nil, errors.New("ollama embed: empty response")
	}
	return vectors[0], nil
}

// EmbedBatch generates embeddings for multiple texts in one call.
func (o *OllamaEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	vectors, err := o.embed(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("ollama embed batch: %w", err)
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("ollama embed batch: got %d embeddings for %d inputs", len(vectors), len(texts))
	}
	return vectors, nil
}

func (o *OllamaEmbedder) embed(ctx context.Context, input any) ([][]float32, error) {
	payload := map[string]any{
		"model": o.c.cfg.Model,
		"input": input,
	}

	body, err := o.c.post(ctx, "/api/embed", payload)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Embeddings [][]float32 `json:"embeddings"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	return resp.Embeddings, nil
}

// OllamaCompleter implements port.Completer using /api/generate.
type OllamaCompleter struct {
	c           *client
	temperature float64
	maxTokens   int
}

// NewOllamaCompleter creates a completer for a local or cloud Ollama model.
func NewOllamaCompleter(cfg EndpointConfig, temperature float64, maxTokens int) *OllamaCompleter {
	return &OllamaCompleter{c: newClient("ollama", cfg), temperature: temperature, maxTokens: maxTokens}
}

// ModelName returns the generation model identifier.
func (o *OllamaCompleter) ModelName() string {
	return o.c.cfg.Model
}

// Complete sends prompt and returns the complete, non-streamed response.
func (o *OllamaCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	options := map[string]any{"temperature": o.temperature}
	if o.maxTokens > 0 {
		options["num_predict"] = o.maxTokens
	}
	payload := map[string]any{
		"model":   o.c.cfg.Model,
		"prompt":  prompt,
		"stream":  false,
		"options": options,
	}

	body, err := o.c.post(ctx, "/api/generate", payload)
	if err != nil {
		return "", fmt.Errorf("ollama generate: %w", err)
	}

	var resp struct {
		Response string `json:"response"`
		Error    string `json:"error"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("ollama generate decode: %w", err)
	}
	if resp.Error != "" {
		return "", fmt.Errorf("ollama generate: %s", resp.Error)
	}
	return resp.Response, nil
}
