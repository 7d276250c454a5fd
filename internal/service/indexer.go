package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/arturoeanton/go-youtube-rag/internal/domain"
	"github.com/arturoeanton/go-youtube-rag/internal/port"
)

// Indexer embeds passages and loads them into a fresh similarity index.
type Indexer struct {
	embedder    port.Embedder
	store       port.IndexStore
	batchSize   int
	callTimeout time.Duration
}

// NewIndexer creates an indexer that embeds batchSize passages per call.
func NewIndexer(embedder port.Embedder, store port.IndexStore, batchSize int, callTimeout time.Duration) *Indexer {
	if batchSize <= 0 {
		batchSize = 32
	}
	return &Indexer{embedder: embedder, store: store, batchSize: batchSize, callTimeout: callTimeout}
}

// Build embeds every passage in order and returns a new index holding them.
// Embedding failures are reported as port.ErrEmbeddingService; nothing is
// stored in that case.
func (x *Indexer) Build(ctx context.Context, passages []domain.Passage) (port.Index, error) {
	if len(passages) == 0 {
		return nil, port.ErrEmptyTranscript
	}

	entries := make([]domain.IndexedPassage, 0, len(passages))
	for start := 0; start < len(passages); start += x.batchSize {
		batch := passages[start:min(start+x.batchSize, len(passages))]
		texts := make([]string, len(batch))
		for i, p := range batch {
			texts[i] = p.Text
		}

		vectors, err := withTimeout(ctx, x.callTimeout, func(ctx context.Context) ([][]float32, error) {
			return x.embedder.EmbedBatch(ctx, texts)
		})
		if err != nil {
			return nil, fmt.Errorf("%w: %w", port.ErrEmbeddingService, err)
		}
		if len(vectors) != len(batch) {
			return nil, fmt.Errorf("%w: got %d vectors for %d passages", port.ErrEmbeddingService, len(vectors), len(batch))
		}
		for i, p := range batch {
			if len(vectors[i]) == 0 {
				return nil, fmt.Errorf("%w: empty vector for passage %d", port.ErrEmbeddingService, p.Index)
			}
			entries = append(entries, domain.IndexedPassage{Passage: p, Vector: vectors[i]})
		}
	}

	idx, err := x.store.Build(ctx, entries)
	if err != nil {
		return nil, fmt.Errorf("build %s index: %w", x.store.Backend(), err)
	}
	slog.Info("index built", "backend", x.store.Backend(), "passages", idx.Len(), "model", x.embedder.ModelName())
	return idx, nil
}
