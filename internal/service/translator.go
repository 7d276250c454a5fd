package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/arturoeanton/go-youtube-rag/internal/domain"
	"github.com/arturoeanton/go-youtube-rag/internal/port"
	"github.com/arturoeanton/go-youtube-rag/pkg/retry"
)

// TranslatorConfig tunes chunking and retry behavior of the Translator.
type TranslatorConfig struct {
	MaxChunkSize int           // characters per provider call
	Retries      int           // primary attempts per chunk
	BackoffUnit  time.Duration // first wait; doubles after every failed attempt
	CallTimeout  time.Duration // per provider call, zero = none

	// Sleep overrides the backoff wait, mainly for tests.
	Sleep func(ctx context.Context, d time.Duration) error
}

// Translator translates long text in chunks, retrying the primary provider
// with exponential backoff and falling back to a secondary provider once.
type Translator struct {
	primary  port.TranslationProvider
	fallback port.TranslationProvider // may be nil
	cfg      TranslatorConfig
}

// NewTranslator creates a translator. fallback may be nil.
func NewTranslator(primary, fallback port.TranslationProvider, cfg TranslatorConfig) *Translator {
	if cfg.MaxChunkSize <= 0 {
		cfg.MaxChunkSize = 1000
	}
	if cfg.Retries <= 0 {
		cfg.Retries = 3
	}
	if cfg.BackoffUnit <= 0 {
		cfg.BackoffUnit = time.Second
	}
	return &Translator{primary: primary, fallback: fallback, cfg: cfg}
}

// Translate is the plain-text entry point, used by TranscriptService when
// plain-text translation is configured. It splits text into consecutive slices of at most MaxChunkSize
// characters (ignoring word boundaries), translates each one and joins the
// results with a single space. Any chunk that fails on both providers aborts
// the whole call with a *port.TranslationError; no partial text is returned.
func (t *Translator) Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error) {
	chunks := splitRunes(text, t.cfg.MaxChunkSize)
	translated := make([]string, 0, len(chunks))
	for i, chunk := range chunks {
		out, err := t.translateChunk(ctx, i, len(chunks), chunk, sourceLang, targetLang)
		if err != nil {
			return "", err
		}
		translated = append(translated, out)
	}
	return strings.Join(translated, " "), nil
}

// TranslateSegments translates caption segments in newline-joined batches of
// at most MaxChunkSize characters. When the provider keeps the line structure
// each segment gets its own translation; otherwise the batch text is assigned
// to the first segment of the batch so that reading order is still preserved.
func (t *Translator) TranslateSegments(ctx context.Context, segments []domain.TranscriptSegment, sourceLang, targetLang string) ([]domain.TranscriptSegment, error) {
	batches := batchSegments(segments, t.cfg.MaxChunkSize)
	out := make([]domain.TranscriptSegment, 0, len(segments))

	for i, b := range batches {
		lines := make([]string, len(b))
		for j, s := range b {
			lines[j] = s.Text
		}
		translated, err := t.translateChunk(ctx, i, len(batches), strings.Join(lines, "\n"), sourceLang, targetLang)
		if err != nil {
			return nil, err
		}

		parts := strings.Split(translated, "\n")
		if len(parts) == len(b) {
			for j, s := range b {
				s.Text = strings.TrimSpace(parts[j])
				out = append(out, s)
			}
			continue
		}

		first := b[0]
		last := b[len(b)-1]
		first.Text = NormalizeText(translated)
		first.Duration = last.Start + last.Duration - first.Start
		out = append(out, first)
	}
	return out, nil
}

func (t *Translator) translateChunk(ctx context.Context, idx, total int, chunk, sourceLang, targetLang string) (string, error) {
	rc := retry.Config{
		Attempts:    t.cfg.Retries,
		InitialWait: t.cfg.BackoffUnit,
		Multiplier:  2,
		Sleep:       t.cfg.Sleep,
	}

	attempt := 0
	out, err := retry.Do(ctx, rc, func(ctx context.Context) (string, error) {
		attempt++
		res, err := t.call(ctx, t.primary, chunk, sourceLang, targetLang)
		if err != nil {
			slog.Warn("translation attempt failed",
				"provider", t.primary.Name(), "chunk", idx+1, "of", total, "attempt", attempt, "error", err)
		}
		return res, err
	})
	if err == nil {
		slog.Debug("chunk translated", "provider", t.primary.Name(), "chunk", idx+1, "of", total)
		return out, nil
	}
	if ctx.Err() != nil {
		return "", ctx.Err()
	}

	if t.fallback == nil {
		return "", &port.TranslationError{ChunkIndex: idx, Cause: fmt.Errorf("%s after %d attempts: %w", t.primary.Name(), t.cfg.Retries, err)}
	}

	slog.Info("falling back to secondary translator", "provider", t.fallback.Name(), "chunk", idx+1, "of", total)
	out, fbErr := t.call(ctx, t.fallback, chunk, sourceLang, targetLang)
	if fbErr != nil {
		slog.Error("fallback translation failed", "provider", t.fallback.Name(), "chunk", idx+1, "error", fbErr)
		return "", &port.TranslationError{
			ChunkIndex: idx,
			Cause:      fmt.Errorf("%s after %d attempts: %v; %s: %w", t.primary.Name(), t.cfg.Retries, err, t.fallback.Name(), fbErr),
		}
	}
	return out, nil
}

func (t *Translator) call(ctx context.Context, p port.TranslationProvider, text, sourceLang, targetLang string) (string, error) {
	if t.cfg.CallTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.cfg.CallTimeout)
		defer cancel()
	}
	return p.Translate(ctx, text, sourceLang, targetLang)
}

// splitRunes cuts s into consecutive slices of at most n runes.
func splitRunes(s string, n int) []string {
	runes := []rune(s)
	var out []string
	for i := 0; i < len(runes); i += n {
		out = append(out, string(runes[i:min(i+n, len(runes))]))
	}
	return out
}

// batchSegments groups segments so the newline-joined text of a batch stays
// within n runes. A single oversized segment is split into several segments.
func batchSegments(segments []domain.TranscriptSegment, n int) [][]domain.TranscriptSegment {
	var batches [][]domain.TranscriptSegment
	var cur []domain.TranscriptSegment
	curLen := 0

	flush := func() {
		if len(cur) > 0 {
			batches = append(batches, cur)
			cur, curLen = nil, 0
		}
	}

	for _, s := range segments {
		if s.Text == "" {
			continue
		}
		l := len([]rune(s.Text))
		if l > n {
			flush()
			for _, piece := range splitRunes(s.Text, n) {
				p := s
				p.Text = piece
				batches = append(batches, []domain.TranscriptSegment{p})
			}
			continue
		}
		sep := 0
		if len(cur) > 0 {
			sep = 1
		}
		if curLen+sep+l > n {
			flush()
			sep = 0
		}
		cur = append(cur, s)
		curLen += sep + l
	}
	flush()
	return batches
}
