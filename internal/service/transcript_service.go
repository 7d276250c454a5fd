package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/arturoeanton/go-youtube-rag/internal/domain"
	"github.com/arturoeanton/go-youtube-rag/internal/port"
)

// TranscriptService resolves the transcript of a video in a target language,
// falling back to provider translation and then to the Translator.
type TranscriptService struct {
	provider    port.TranscriptProvider
	translator  *Translator
	cache       port.TranscriptCache // nil = no caching
	cacheTTL    time.Duration
	callTimeout time.Duration
	plainText   bool // translate the joined text instead of segment batches
}

// TranscriptOption configures a TranscriptService.
type TranscriptOption func(*TranscriptService)

// WithTranscriptCache caches resolved transcripts for ttl.
func WithTranscriptCache(c port.TranscriptCache, ttl time.Duration) TranscriptOption {
	return func(s *TranscriptService) {
		s.cache = c
		s.cacheTTL = ttl
	}
}

// WithCallTimeout bounds every call to the transcript provider.
func WithCallTimeout(d time.Duration) TranscriptOption {
	return func(s *TranscriptService) { s.callTimeout = d }
}

// WithPlainTextTranslation makes the Translator path translate the joined
// transcript text in fixed-size slices instead of newline-joined segment batches.
func WithPlainTextTranslation() TranscriptOption {
	return func(s *TranscriptService) { s.plainText = true }
}

// NewTranscriptService creates a new transcript service.
func NewTranscriptService(provider port.TranscriptProvider, translator *Translator, opts ...TranscriptOption) *TranscriptService {
	s := &TranscriptService{provider: provider, translator: translator}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Fetch returns the transcript of videoID in targetLang.
//
// Track selection: a track in targetLang is used directly (manual captions
// preferred over generated ones). Otherwise the first-listed track is used,
// translated by the provider when it supports that, or by the Translator.
func (s *TranscriptService) Fetch(ctx context.Context, videoID, targetLang string) (*domain.Transcript, error) {
	if targetLang == "" {
		targetLang = "en"
	}

	if s.cache != nil {
		if t, ok := s.cache.Get(ctx, videoID, targetLang); ok {
			slog.Info("transcript cache hit", "video_id", videoID, "lang", targetLang)
			return t, nil
		}
	}

	t, err := s.fetch(ctx, videoID, targetLang)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, t, s.cacheTTL); err != nil {
			slog.Warn("transcript cache set failed", "video_id", videoID, "error", err)
		}
	}
	return t, nil
}

func (s *TranscriptService) fetch(ctx context.Context, videoID, targetLang string) (*domain.Transcript, error) {
	tracks, err := withTimeout(ctx, s.callTimeout, func(ctx context.Context) ([]domain.CaptionTrack, error) {
		return s.provider.ListTracks(ctx, videoID)
	})
	if err != nil {
		return nil, fmt.Errorf("list tracks: %w", err)
	}
	if len(tracks) == 0 {
		return nil, fmt.Errorf("%w: %s", port.ErrNoCaptions, videoID)
	}

	for _, tr := range tracks {
		slog.Info("caption track available",
			"video_id", videoID,
			"language", tr.Language,
			"code", tr.LanguageCode,
			"generated", tr.IsGenerated,
			"translatable", tr.IsTranslatable,
		)
	}

	if track, ok := findTrack(tracks, targetLang); ok {
		slog.Info("transcript found in target language", "video_id", videoID, "lang", targetLang)
		segments, err := withTimeout(ctx, s.callTimeout, func(ctx context.Context) ([]domain.TranscriptSegment, error) {
			return s.provider.FetchTrack(ctx, track)
		})
		if err != nil {
			return nil, fmt.Errorf("fetch %s track: %w", track.LanguageCode, err)
		}
		return newTranscript(videoID, segments, targetLang, track.LanguageCode)
	}

	track := tracks[0]
	if track.IsTranslatable {
		slog.Info("translating via caption provider", "video_id", videoID, "from", track.LanguageCode, "to", targetLang)
		segments, err := withTimeout(ctx, s.callTimeout, func(ctx context.Context) ([]domain.TranscriptSegment, error) {
			return s.provider.FetchTranslatedTrack(ctx, track, targetLang)
		})
		if err != nil {
			return nil, fmt.Errorf("fetch %s track translated to %s: %w", track.LanguageCode, targetLang, err)
		}
		return newTranscript(videoID, segments, targetLang, track.LanguageCode)
	}

	if s.translator == nil {
		return nil, &port.TranslationError{ChunkIndex: 0, Cause: errors.New("no translator configured")}
	}

	slog.Info("track not translatable by provider, using translator", "video_id", videoID, "from", track.LanguageCode, "to", targetLang)
	segments, err := withTimeout(ctx, s.callTimeout, func(ctx context.Context) ([]domain.TranscriptSegment, error) {
		return s.provider.FetchTrack(ctx, track)
	})
	if err != nil {
		return nil, fmt.Errorf("fetch %s track: %w", track.LanguageCode, err)
	}
	if s.plainText {
		text, err := s.translator.Translate(ctx, domain.JoinSegments(segments), track.LanguageCode, targetLang)
		if err != nil {
			return nil, err
		}
		return newTranscript(videoID, []domain.TranscriptSegment{{Text: text}}, targetLang, track.LanguageCode)
	}

	translated, err := s.translator.TranslateSegments(ctx, segments, track.LanguageCode, targetLang)
	if err != nil {
		return nil, err
	}
	return newTranscript(videoID, translated, targetLang, track.LanguageCode)
}

// findTrack returns a track in lang, preferring manual captions.
func findTrack(tracks []domain.CaptionTrack, lang string) (domain.CaptionTrack, bool) {
	for _, t := range tracks {
		if t.LanguageCode == lang && !t.IsGenerated {
			return t, true
		}
	}
	for _, t := range tracks {
		if t.LanguageCode == lang {
			return t, true
		}
	}
	return domain.CaptionTrack{}, false
}

func newTranscript(videoID string, segments []domain.TranscriptSegment, lang, sourceLang string) (*domain.Transcript, error) {
	text := NormalizeText(domain.JoinSegments(segments))
	if text == "" {
		return nil, fmt.Errorf("%w: %s", port.ErrEmptyTranscript, videoID)
	}
	return &domain.Transcript{
		VideoID:        videoID,
		Text:           text,
		LanguageCode:   lang,
		SourceLanguage: sourceLang,
	}, nil
}

// withTimeout runs fn under a derived deadline when d > 0.
func withTimeout[T any](ctx context.Context, d time.Duration, fn func(ctx context.Context) (T, error)) (T, error) {
	if d > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}
	return fn(ctx)
}
