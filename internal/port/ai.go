package port

import "context"

// Embedder abstracts the embedding backend.
// Implementations can target Ollama, OpenAI, or any compatible API.
type Embedder interface {
	// ModelName returns the identifier of the embedding model.
	ModelName() string

	// Embed generates a vector embedding for the given text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts in one call.
	// The returned slice is in the same order as texts.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// Completer abstracts the LLM backend as a single-shot text completion.
type Completer interface {
	// ModelName returns the identifier of the completion model.
	ModelName() string

	// Complete sends prompt and returns the full, non-streamed response text.
	Complete(ctx context.Context, prompt string) (string, error)
}
