package port

import (
	"context"

	"github.com/arturoeanton/go-youtube-rag/internal/domain"
)

// IndexStore creates similarity indexes. Every call to Build yields a new,
// independent index; the previous ones are untouched until dropped.
type IndexStore interface {
	// Backend names the implementation (e.g. "memory", "pgvector").
	Backend() string

	// Build inserts all entries into a fresh index. Either the whole index is
	// built or an error is returned and nothing is left behind.
	Build(ctx context.Context, entries []domain.IndexedPassage) (Index, error)
}

// Index is a nearest-neighbour store over the passages of one transcript.
type Index interface {
	// Search returns up to k passages ordered by descending similarity;
	// ties keep insertion order.
	Search(ctx context.Context, vector []float32, k int) ([]domain.ScoredPassage, error)

	// Len returns the number of stored passages.
	Len() int

	// Drop releases the index. It must not be searched afterwards.
	Drop(ctx context.Context) error
}
