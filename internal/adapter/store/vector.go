package store

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/arturoeanton/go-youtube-rag/internal/domain"
	"github.com/arturoeanton/go-youtube-rag/internal/port"
)

// VectorStore builds pgvector-backed indexes. Each index is a generation of
// rows in the passages table, identified by a UUID.
type VectorStore struct {
	store *PostgresStore
}

// NewVectorStore creates a vector store backed by the given Postgres store.
func NewVectorStore(store *PostgresStore) *VectorStore {
	return &VectorStore{store: store}
}

func (v *VectorStore) Backend() string { return "pgvector" }

// Build inserts all entries under a new generation inside one transaction.
func (v *VectorStore) Build(ctx context.Context, entries []domain.IndexedPassage) (port.Index, error) {
	if len(entries) == 0 {
		return nil, port.ErrEmptyTranscript
	}
	for _, e := range entries {
		if len(e.Vector) != v.store.dimension {
			return nil, fmt.Errorf("passage %d: dimension %d, table expects %d", e.Index, len(e.Vector), v.store.dimension)
		}
	}

	generation := uuid.New()

	tx, err := v.store.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO passages (generation, chunk_index, start_offset, end_offset, content, vector)
		 VALUES ($1, $2, $3, $4, $5, $6::vector)`)
	if err != nil {
		return nil, fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	for _, e := range entries {
		if _, err := stmt.ExecContext(ctx,
			generation, e.Index, e.Start, e.End, e.Text, vectorToString(e.Vector),
		); err != nil {
			return nil, fmt.Errorf("insert passage %d: %w", e.Index, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	slog.Debug("pgvector generation stored", "generation", generation, "passages", len(entries))
	return &vectorIndex{vs: v, generation: generation, size: len(entries)}, nil
}

type vectorIndex struct {
	vs         *VectorStore
	generation uuid.UUID
	size       int
}

// Search performs a cosine similarity search within the generation.
func (x *vectorIndex) Search(ctx context.Context, vector []float32, k int) ([]domain.ScoredPassage, error) {
	if k <= 0 {
		return nil, nil
	}
	if len(vector) != x.vs.store.dimension {
		return nil, fmt.Errorf("query dimension %d, index dimension %d", len(vector), x.vs.store.dimension)
	}

	query := `SELECT chunk_index, start_offset, end_offset, content,
	                 1 - (vector <=> $1::vector) AS similarity
	          FROM passages
	          WHERE generation = $2
	          ORDER BY vector <=> $1::vector, chunk_index
	          LIMIT $3`

	rows, err := x.vs.store.db.QueryContext(ctx, query, vectorToString(vector), x.generation, k)
	if err != nil {
		return nil, fmt.Errorf("search similar: %w", err)
	}
	defer rows.Close()

	var results []domain.ScoredPassage
	for rows.Next() {
		var sp domain.ScoredPassage
		if err := rows.Scan(&sp.Index, &sp.Start, &sp.End, &sp.Text, &sp.Similarity); err != nil {
			return nil, fmt.Errorf("scan similar: %w", err)
		}
		results = append(results, sp)
	}
	return results, rows.Err()
}

func (x *vectorIndex) Len() int { return x.size }

// Drop deletes every row of the generation.
func (x *vectorIndex) Drop(ctx context.Context) error {
	_, err := x.vs.store.db.ExecContext(ctx, `DELETE FROM passages WHERE generation = $1`, x.generation)
	if err != nil {
		return fmt.Errorf("drop generation %s: %w", x.generation, err)
	}
	return nil
}

// vectorToString converts a float32 slice to pgvector string format: [0.1,0.2,0.3].
func vectorToString(v []float32) string {
	parts := make([]string, len(v))
	for i, val := range v {
		parts[i] = strconv.FormatFloat(float64(val), 'g', -1, 32)
	}
	return "[" + strings.Join(parts, ",") + "]"
}
