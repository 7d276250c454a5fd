package store

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/arturoeanton/go-youtube-rag/internal/domain"
	"github.com/arturoeanton/go-youtube-rag/internal/port"
)

var errDropped = errors.New("index dropped")

// MemoryStore builds process-local indexes searched by brute-force cosine
// similarity.
type MemoryStore struct{}

// NewMemoryStore creates an in-memory index store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (*MemoryStore) Backend() string { return "memory" }

// Build copies entries into a new index. All vectors must share one dimension.
func (*MemoryStore) Build(ctx context.Context, entries []domain.IndexedPassage) (port.Index, error) {
	if len(entries) == 0 {
		return nil, port.ErrEmptyTranscript
	}
	dim := len(entries[0].Vector)
	idx := &memoryIndex{dim: dim, entries: make([]memoryEntry, len(entries))}
	for i, e := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if len(e.Vector) != dim {
			return nil, fmt.Errorf("passage %d: dimension %d, expected %d", e.Index, len(e.Vector), dim)
		}
		vec := make([]float32, dim)
		copy(vec, e.Vector)
		idx.entries[i] = memoryEntry{passage: e.Passage, vector: vec, norm: norm(vec)}
	}
	return idx, nil
}

type memoryEntry struct {
	passage domain.Passage
	vector  []float32
	norm    float64
}

type memoryIndex struct {
	mu      sync.RWMutex
	dim     int
	entries []memoryEntry // nil after Drop
}

func (m *memoryIndex) Search(ctx context.Context, vector []float32, k int) ([]domain.ScoredPassage, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.entries == nil {
		return nil, errDropped
	}
	if len(vector) != m.dim {
		return nil, fmt.Errorf("query dimension %d, index dimension %d", len(vector), m.dim)
	}
	if k <= 0 {
		return nil, nil
	}

	qn := norm(vector)
	scored := make([]domain.ScoredPassage, len(m.entries))
	for i, e := range m.entries {
		scored[i] = domain.ScoredPassage{Passage: e.passage, Similarity: cosine(vector, qn, e.vector, e.norm)}
	}
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Similarity > scored[j].Similarity
	})
	if len(scored) > k {
		scored = scored[:k]
	}
	return scored, ctx.Err()
}

func (m *memoryIndex) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

func (m *memoryIndex) Drop(context.Context) error {
	m.mu.Lock()
	m.entries = nil
	m.mu.Unlock()
	return nil
}

func norm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

// cosine returns 0 when either vector has zero length.
func cosine(a []float32, an float64, b []float32, bn float64) float64 {
	if an == 0 || bn == 0 {
		return 0
	}
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot / (an * bn)
}
