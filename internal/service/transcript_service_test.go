package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arturoeanton/go-youtube-rag/internal/domain"
	"github.com/arturoeanton/go-youtube-rag/internal/port"
)

func segs(texts ...string) []domain.TranscriptSegment {
	out := make([]domain.TranscriptSegment, len(texts))
	for i, t := range texts {
		out[i] = domain.TranscriptSegment{Text: t, Start: float64(i), Duration: 1}
	}
	return out
}

func TestFetchTargetLanguageTrack(t *testing.T) {
	p := &stubProvider{
		tracks: []domain.CaptionTrack{
			{LanguageCode: "es", IsTranslatable: true},
			{LanguageCode: "en", IsGenerated: true},
			{LanguageCode: "en"},
		},
		segments: map[string][]domain.TranscriptSegment{
			"en": segs("Hello  there.", "\nGeneral Kenobi."),
		},
	}
	svc := NewTranscriptService(p, nil)

	tr, err := svc.Fetch(context.Background(), "vid", "en")
	require.NoError(t, err)
	assert.Equal(t, "Hello there. General Kenobi.", tr.Text)
	assert.Equal(t, "en", tr.LanguageCode)
	assert.Equal(t, "en", tr.SourceLanguage)
	assert.Equal(t, []string{"en"}, p.fetched)
	assert.Empty(t, p.translatedCalls)
}

func TestFetchPrefersManualTrack(t *testing.T) {
	tracks := []domain.CaptionTrack{
		{LanguageCode: "en", IsGenerated: true, BaseURL: "asr"},
		{LanguageCode: "en", BaseURL: "manual"},
	}
	got, ok := findTrack(tracks, "en")
	require.True(t, ok)
	assert.Equal(t, "manual", got.BaseURL)

	got, ok = findTrack(tracks[:1], "en")
	require.True(t, ok)
	assert.Equal(t, "asr", got.BaseURL)

	_, ok = findTrack(tracks, "fr")
	assert.False(t, ok)
}

func TestFetchProviderTranslationUsesFirstTrack(t *testing.T) {
	p := &stubProvider{
		tracks: []domain.CaptionTrack{
			{LanguageCode: "de", IsTranslatable: true},
			{LanguageCode: "fr", IsTranslatable: true},
		},
		translated: segs("Good morning"),
	}
	svc := NewTranscriptService(p, nil)

	tr, err := svc.Fetch(context.Background(), "vid", "en")
	require.NoError(t, err)
	assert.Equal(t, "Good morning", tr.Text)
	assert.Equal(t, "en", tr.LanguageCode)
	assert.Equal(t, "de", tr.SourceLanguage)
	assert.Equal(t, []string{"de>en"}, p.translatedCalls)
}

func TestFetchFallsBackToTranslator(t *testing.T) {
	p := &stubProvider{
		tracks:   []domain.CaptionTrack{{LanguageCode: "hi"}},
		segments: map[string][]domain.TranscriptSegment{"hi": segs("namaste", "duniya")},
	}
	primary := &stubTranslation{name: "primary"}
	svc := NewTranscriptService(p, NewTranslator(primary, nil, TranslatorConfig{}))

	tr, err := svc.Fetch(context.Background(), "vid", "en")
	require.NoError(t, err)
	assert.Equal(t, "NAMASTE DUNIYA", tr.Text)
	assert.Equal(t, "hi", tr.SourceLanguage)
	assert.Equal(t, []string{"namaste\nduniya"}, primary.calls)
}

func TestFetchPlainTextTranslation(t *testing.T) {
	p := &stubProvider{
		tracks:   []domain.CaptionTrack{{LanguageCode: "hi"}},
		segments: map[string][]domain.TranscriptSegment{"hi": segs("namaste", "duniya")},
	}
	primary := &stubTranslation{name: "primary"}
	tr := NewTranslator(primary, nil, TranslatorConfig{MaxChunkSize: 8})
	svc := NewTranscriptService(p, tr, WithPlainTextTranslation())

	got, err := svc.Fetch(context.Background(), "vid", "en")
	require.NoError(t, err)
	assert.Equal(t, []string{"namaste ", "duniya"}, primary.calls)
	assert.Equal(t, "NAMASTE DUNIYA", got.Text)
	assert.Equal(t, "hi", got.SourceLanguage)
}

func TestFetchTranslationFailure(t *testing.T) {
	p := &stubProvider{
		tracks:   []domain.CaptionTrack{{LanguageCode: "hi"}},
		segments: map[string][]domain.TranscriptSegment{"hi": segs("namaste")},
	}
	tr := NewTranslator(
		&stubTranslation{name: "primary", failures: -1},
		&stubTranslation{name: "fallback", failures: -1},
		TranslatorConfig{Sleep: noSleep(new([]time.Duration))},
	)
	svc := NewTranscriptService(p, tr)

	_, err := svc.Fetch(context.Background(), "vid", "en")
	assert.ErrorIs(t, err, port.ErrTranslationFailed)
}

func TestFetchErrors(t *testing.T) {
	tests := []struct {
		name     string
		provider *stubProvider
		want     error
	}{
		{
			name:     "no tracks",
			provider: &stubProvider{},
			want:     port.ErrNoCaptions,
		},
		{
			name:     "provider reports no captions",
			provider: &stubProvider{listErr: port.ErrNoCaptions},
			want:     port.ErrNoCaptions,
		},
		{
			name: "empty transcript",
			provider: &stubProvider{
				tracks:   []domain.CaptionTrack{{LanguageCode: "en"}},
				segments: map[string][]domain.TranscriptSegment{"en": segs(" ", "")},
			},
			want: port.ErrEmptyTranscript,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewTranscriptService(tt.provider, nil).Fetch(context.Background(), "vid", "en")
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestFetchTrackErrorIsNotNoCaptions(t *testing.T) {
	boom := errors.New("timedtext 403")
	p := &stubProvider{
		tracks:   []domain.CaptionTrack{{LanguageCode: "en"}},
		fetchErr: boom,
	}
	_, err := NewTranscriptService(p, nil).Fetch(context.Background(), "vid", "en")
	require.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, port.ErrNoCaptions)
}

type mapCache struct {
	items map[string]*domain.Transcript
	ttl   time.Duration
}

func (c *mapCache) Get(_ context.Context, id, lang string) (*domain.Transcript, bool) {
	t, ok := c.items[id+"/"+lang]
	return t, ok
}

func (c *mapCache) Set(_ context.Context, t *domain.Transcript, ttl time.Duration) error {
	c.items[t.VideoID+"/"+t.LanguageCode] = t
	c.ttl = ttl
	return nil
}

func TestFetchUsesCache(t *testing.T) {
	p := &stubProvider{
		tracks:   []domain.CaptionTrack{{LanguageCode: "en"}},
		segments: map[string][]domain.TranscriptSegment{"en": segs("cached words")},
	}
	cache := &mapCache{items: map[string]*domain.Transcript{}}
	svc := NewTranscriptService(p, nil, WithTranscriptCache(cache, time.Hour))

	first, err := svc.Fetch(context.Background(), "vid", "en")
	require.NoError(t, err)
	second, err := svc.Fetch(context.Background(), "vid", "en")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, p.listCalls)
	assert.Equal(t, time.Hour, cache.ttl)
}
