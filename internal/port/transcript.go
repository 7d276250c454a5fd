package port

import (
	"context"
	"time"

	"github.com/arturoeanton/go-youtube-rag/internal/domain"
)

// TranscriptProvider abstracts the caption source for a video.
type TranscriptProvider interface {
	// ListTracks returns the caption tracks available for a video in provider order.
	// It returns ErrNoCaptions when the video has none.
	ListTracks(ctx context.Context, videoID string) ([]domain.CaptionTrack, error)

	// FetchTrack returns the segments of a track in its own language.
	FetchTrack(ctx context.Context, track domain.CaptionTrack) ([]domain.TranscriptSegment, error)

	// FetchTranslatedTrack returns the segments of a track translated by the provider.
	FetchTranslatedTrack(ctx context.Context, track domain.CaptionTrack, targetLang string) ([]domain.TranscriptSegment, error)
}

// TranscriptCache stores fetched transcripts keyed by video and target language.
type TranscriptCache interface {
	Get(ctx context.Context, videoID, targetLang string) (*domain.Transcript, bool)
	Set(ctx context.Context, t *domain.Transcript, ttl time.Duration) error
}
