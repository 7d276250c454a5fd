package service

import (
	"fmt"
	"strings"

	"github.com/arturoeanton/go-youtube-rag/internal/domain"
	"github.com/arturoeanton/go-youtube-rag/internal/port"
)

// Chunker splits normalized transcript text into overlapping passages.
// Sizes are counted in characters (runes), not bytes.
type Chunker struct {
	size    int
	overlap int
}

// NewChunker validates the configuration; overlap must be smaller than size.
func NewChunker(size, overlap int) (*Chunker, error) {
	if size <= 0 || overlap < 0 || overlap >= size {
		return nil, fmt.Errorf("%w: size=%d overlap=%d", port.ErrInvalidChunkConfig, size, overlap)
	}
	return &Chunker{size: size, overlap: overlap}, nil
}

// Split returns passages covering text in reading order. Passage i+1 starts
// size-overlap characters after passage i; the last one may be shorter.
// Empty input yields no passages.
func (c *Chunker) Split(text string) []domain.Passage {
	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}

	step := c.size - c.overlap
	var passages []domain.Passage
	for start := 0; ; start += step {
		end := min(start+c.size, len(runes))
		passages = append(passages, domain.Passage{
			Index: len(passages),
			Text:  string(runes[start:end]),
			Start: start,
			End:   end,
		})
		if end == len(runes) {
			break
		}
	}
	return passages
}

// NormalizeText collapses all whitespace runs to single spaces and trims the ends.
func NormalizeText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
