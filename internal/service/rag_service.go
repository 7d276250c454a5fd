package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/arturoeanton/go-youtube-rag/internal/domain"
	"github.com/arturoeanton/go-youtube-rag/internal/port"
)

// SessionConfig holds the retrieval settings of a Session.
type SessionConfig struct {
	TargetLanguage string
	TopK           int
	CallTimeout    time.Duration // per embedding/completion call, zero = none
}

// Session owns the active video index and the service handles used to build
// and query it. One video is active at a time; ingesting a new one replaces
// it atomically.
type Session struct {
	transcripts *TranscriptService
	chunker     *Chunker
	indexer     *Indexer
	embedder    port.Embedder
	completer   port.Completer
	cfg         SessionConfig

	ingestMu sync.Mutex // serializes ProcessVideo

	mu     sync.RWMutex
	index  port.Index
	status domain.VideoStatus
}

// NewSession creates a session with no active video.
func NewSession(
	transcripts *TranscriptService,
	chunker *Chunker,
	indexer *Indexer,
	embedder port.Embedder,
	completer port.Completer,
	cfg SessionConfig,
) *Session {
	if cfg.TopK <= 0 {
		cfg.TopK = 4
	}
	if cfg.TargetLanguage == "" {
		cfg.TargetLanguage = "en"
	}
	return &Session{
		transcripts: transcripts,
		chunker:     chunker,
		indexer:     indexer,
		embedder:    embedder,
		completer:   completer,
		cfg:         cfg,
	}
}

// ProcessVideo ingests the video at rawURL and makes it the active video.
// On failure the previously active index, if any, stays in place.
func (s *Session) ProcessVideo(ctx context.Context, rawURL string) (domain.VideoStatus, error) {
	videoID, err := ExtractVideoID(rawURL)
	if err != nil {
		return domain.VideoStatus{}, err
	}

	s.ingestMu.Lock()
	defer s.ingestMu.Unlock()

	slog.Info("processing video", "video_id", videoID, "lang", s.cfg.TargetLanguage)
	started := time.Now()

	transcript, err := s.transcripts.Fetch(ctx, videoID, s.cfg.TargetLanguage)
	if err != nil {
		return domain.VideoStatus{}, fmt.Errorf("fetch transcript: %w", err)
	}

	passages := s.chunker.Split(transcript.Text)
	if len(passages) == 0 {
		return domain.VideoStatus{}, fmt.Errorf("%w: %s", port.ErrEmptyTranscript, videoID)
	}
	slog.Info("transcript chunked", "video_id", videoID, "chars", len([]rune(transcript.Text)), "passages", len(passages))

	idx, err := s.indexer.Build(ctx, passages)
	if err != nil {
		return domain.VideoStatus{}, fmt.Errorf("index transcript: %w", err)
	}

	status := domain.VideoStatus{
		Ready:          true,
		VideoID:        videoID,
		LanguageCode:   transcript.LanguageCode,
		SourceLanguage: transcript.SourceLanguage,
		Passages:       idx.Len(),
		IngestedAt:     time.Now().UTC(),
	}

	s.mu.Lock()
	old := s.index
	s.index = idx
	s.status = status
	s.mu.Unlock()

	// Queries already see the new index; the old one may take a network round trip to drop.
	if old != nil {
		if err := old.Drop(context.WithoutCancel(ctx)); err != nil {
			slog.Warn("drop previous index failed", "error", err)
		}
	}

	slog.Info("video ready", "video_id", videoID, "passages", status.Passages, "elapsed", time.Since(started))
	return status, nil
}

// Ask retrieves the passages most similar to question and asks the
// completion service to answer from them only.
func (s *Session) Ask(ctx context.Context, question string) (*domain.Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, port.ErrEmptyQuestion
	}

	sources, err := s.Retrieve(ctx, question)
	if err != nil {
		return nil, err
	}

	prompt := BuildPrompt(FormatContext(sources), question)
	text, err := withTimeout(ctx, s.cfg.CallTimeout, func(ctx context.Context) (string, error) {
		return s.completer.Complete(ctx, prompt)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", port.ErrCompletionService, err)
	}

	slog.Info("question answered", "model", s.completer.ModelName(), "sources", len(sources))
	return &domain.Answer{Question: question, Text: text, Sources: sources}, nil
}

// AnswerQuestion returns the completion text for question verbatim.
func (s *Session) AnswerQuestion(ctx context.Context, question string) (string, error) {
	a, err := s.Ask(ctx, question)
	if err != nil {
		return "", err
	}
	return a.Text, nil
}

// Retrieve returns up to TopK passages of the active video ranked by
// similarity to question.
func (s *Session) Retrieve(ctx context.Context, question string) ([]domain.ScoredPassage, error) {
	if !s.Status().Ready {
		return nil, port.ErrNoActiveIndex
	}

	vector, err := withTimeout(ctx, s.cfg.CallTimeout, func(ctx context.Context) ([]float32, error) {
		return s.embedder.Embed(ctx, question)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", port.ErrEmbeddingService, err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.index == nil {
		return nil, port.ErrNoActiveIndex
	}
	results, err := s.index.Search(ctx, vector, s.cfg.TopK)
	if err != nil {
		return nil, fmt.Errorf("search index: %w", err)
	}
	return results, nil
}

// Status reports the active video, if any.
func (s *Session) Status() domain.VideoStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// Close drops the active index.
func (s *Session) Close(ctx context.Context) error {
	s.mu.Lock()
	idx := s.index
	s.index = nil
	s.status = domain.VideoStatus{}
	s.mu.Unlock()

	if idx == nil {
		return nil
	}
	return idx.Drop(ctx)
}
