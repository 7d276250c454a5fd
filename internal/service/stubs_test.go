package service

import (
	"context"
	"errors"
	"hash/fnv"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/arturoeanton/go-youtube-rag/internal/domain"
)

// noSleep records backoff waits without blocking.
func noSleep(waits *[]time.Duration) func(context.Context, time.Duration) error {
	return func(ctx context.Context, d time.Duration) error {
		*waits = append(*waits, d)
		return ctx.Err()
	}
}

type stubProvider struct {
	tracks     []domain.CaptionTrack
	segments   map[string][]domain.TranscriptSegment // by language code
	translated []domain.TranscriptSegment
	listErr    error
	fetchErr   error

	listCalls       int
	fetched         []string
	translatedCalls []string
}

func (p *stubProvider) ListTracks(context.Context, string) ([]domain.CaptionTrack, error) {
	p.listCalls++
	return p.tracks, p.listErr
}

func (p *stubProvider) FetchTrack(_ context.Context, t domain.CaptionTrack) ([]domain.TranscriptSegment, error) {
	p.fetched = append(p.fetched, t.LanguageCode)
	if p.fetchErr != nil {
		return nil, p.fetchErr
	}
	return p.segments[t.LanguageCode], nil
}

func (p *stubProvider) FetchTranslatedTrack(_ context.Context, t domain.CaptionTrack, lang string) ([]domain.TranscriptSegment, error) {
	p.translatedCalls = append(p.translatedCalls, t.LanguageCode+">"+lang)
	if p.fetchErr != nil {
		return nil, p.fetchErr
	}
	return p.translated, nil
}

// stubTranslation fails its first `failures` calls (all calls when failures < 0).
type stubTranslation struct {
	name     string
	failures int
	fn       func(text string) string

	mu    sync.Mutex
	calls []string
}

func (s *stubTranslation) Name() string { return s.name }

func (s *stubTranslation) Translate(_ context.Context, text, _, _ string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, text)
	if s.failures < 0 || len(s.calls) <= s.failures {
		return "", errors.New(s.name + " unavailable")
	}
	if s.fn != nil {
		return s.fn(text), nil
	}
	return strings.ToUpper(text), nil
}

// bagEmbedder hashes lower-cased words into a fixed number of buckets.
type bagEmbedder struct {
	dim int
	err error

	mu    sync.Mutex
	calls int
}

func (e *bagEmbedder) ModelName() string { return "bag-of-words" }

func (e *bagEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	e.mu.Lock()
	e.calls++
	e.mu.Unlock()
	if e.err != nil {
		return nil, e.err
	}
	return e.vector(text), nil
}

func (e *bagEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := e.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (e *bagEmbedder) vector(text string) []float32 {
	v := make([]float32, e.dim)
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, w := range words {
		h := fnv.New32a()
		h.Write([]byte(w))
		v[h.Sum32()%uint32(e.dim)]++
	}
	return v
}

type stubCompleter struct {
	reply string
	err   error

	prompts []string
}

func (c *stubCompleter) ModelName() string { return "stub-llm" }

func (c *stubCompleter) Complete(_ context.Context, prompt string) (string, error) {
	c.prompts = append(c.prompts, prompt)
	return c.reply, c.err
}
