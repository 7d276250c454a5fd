package service

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arturoeanton/go-youtube-rag/internal/adapter/ai"
	"github.com/arturoeanton/go-youtube-rag/internal/adapter/store"
	"github.com/arturoeanton/go-youtube-rag/internal/domain"
	"github.com/arturoeanton/go-youtube-rag/internal/port"
)

const (
	sentence1 = "The ocean covers most of the surface of our planet."
	sentence2 = "Honeybees tell each other where flowers are by performing a waggle dance."
	sentence3 = "Mount Everest is the tallest mountain above sea level."
	videoURL  = "https://www.youtube.com/watch?v=bees123"
)

// recordingStore keeps every build and tracks dropped indexes.
type recordingStore struct {
	inner *store.MemoryStore

	mu      sync.Mutex
	builds  [][]domain.IndexedPassage
	indexes []*recordingIndex
}

type recordingIndex struct {
	port.Index
	dropped bool
}

func (r *recordingIndex) Drop(ctx context.Context) error {
	r.dropped = true
	return r.Index.Drop(ctx)
}

func (s *recordingStore) Backend() string { return "recording" }

func (s *recordingStore) Build(ctx context.Context, entries []domain.IndexedPassage) (port.Index, error) {
	idx, err := s.inner.Build(ctx, entries)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.builds = append(s.builds, entries)
	ri := &recordingIndex{Index: idx}
	s.indexes = append(s.indexes, ri)
	return ri, nil
}

type sessionFixture struct {
	session   *Session
	provider  *stubProvider
	embedder  *bagEmbedder
	completer *stubCompleter
	store     *recordingStore
}

func newSessionFixture(t *testing.T, chunkSize, overlap int) *sessionFixture {
	t.Helper()
	f := &sessionFixture{
		provider: &stubProvider{
			tracks: []domain.CaptionTrack{{LanguageCode: "en"}},
			segments: map[string][]domain.TranscriptSegment{
				"en": segs(sentence1, sentence2, sentence3),
			},
		},
		embedder:  &bagEmbedder{dim: 64},
		completer: &stubCompleter{reply: "They perform a waggle dance."},
		store:     &recordingStore{inner: store.NewMemoryStore()},
	}
	chunker, err := NewChunker(chunkSize, overlap)
	require.NoError(t, err)

	f.session = NewSession(
		NewTranscriptService(f.provider, nil),
		chunker,
		NewIndexer(f.embedder, f.store, 32, 0),
		f.embedder,
		f.completer,
		SessionConfig{TargetLanguage: "en", TopK: 4},
	)
	return f
}

func TestAnswerBeforeProcessing(t *testing.T) {
	f := newSessionFixture(t, 1000, 200)

	_, err := f.session.AnswerQuestion(context.Background(), "What do bees do?")
	require.ErrorIs(t, err, port.ErrNoActiveIndex)
	assert.Empty(t, f.completer.prompts)
	assert.Zero(t, f.embedder.calls)
	assert.False(t, f.session.Status().Ready)
}

func TestProcessAndAnswer(t *testing.T) {
	f := newSessionFixture(t, 1000, 200)
	ctx := context.Background()

	status, err := f.session.ProcessVideo(ctx, videoURL)
	require.NoError(t, err)
	assert.True(t, status.Ready)
	assert.Equal(t, "bees123", status.VideoID)
	assert.Equal(t, 1, status.Passages)
	assert.Equal(t, status, f.session.Status())

	answer, err := f.session.Ask(ctx, "  How do honeybees tell each other where flowers are?  ")
	require.NoError(t, err)
	assert.Equal(t, "They perform a waggle dance.", answer.Text)
	assert.Equal(t, "How do honeybees tell each other where flowers are?", answer.Question)

	require.NotEmpty(t, answer.Sources)
	assert.LessOrEqual(t, len(answer.Sources), 4)
	var hit *domain.ScoredPassage
	for i := range answer.Sources {
		if strings.Contains(answer.Sources[i].Text, sentence2) {
			hit = &answer.Sources[i]
			break
		}
	}
	require.NotNil(t, hit, "sentence 2 must be retrieved")

	require.Len(t, f.completer.prompts, 1)
	prompt := f.completer.prompts[0]
	assert.Contains(t, prompt, hit.Text)
	assert.Contains(t, prompt, "Answer ONLY from the provided transcript context.")
	assert.Contains(t, prompt, "Question: How do honeybees tell each other where flowers are?")
}

func TestRetrievalRanksMatchingPassageFirst(t *testing.T) {
	f := newSessionFixture(t, 80, 0)
	ctx := context.Background()

	_, err := f.session.ProcessVideo(ctx, videoURL)
	require.NoError(t, err)

	sources, err := f.session.Retrieve(ctx, "waggle dance honeybees flowers")
	require.NoError(t, err)
	require.NotEmpty(t, sources)
	assert.Contains(t, sources[0].Text, "waggle")
	for i := 1; i < len(sources); i++ {
		assert.GreaterOrEqual(t, sources[i-1].Similarity, sources[i].Similarity)
	}
}

func TestProcessVideoIdempotent(t *testing.T) {
	f := newSessionFixture(t, 60, 10)
	ctx := context.Background()

	_, err := f.session.ProcessVideo(ctx, videoURL)
	require.NoError(t, err)
	_, err = f.session.ProcessVideo(ctx, videoURL)
	require.NoError(t, err)

	require.Len(t, f.store.builds, 2)
	assert.Equal(t, f.store.builds[0], f.store.builds[1])
	assert.True(t, f.store.indexes[0].dropped, "first index is released")
	assert.False(t, f.store.indexes[1].dropped)
	assert.Equal(t, len(f.store.builds[1]), f.session.Status().Passages)
}

func TestFailedIngestionKeepsPreviousIndex(t *testing.T) {
	f := newSessionFixture(t, 1000, 200)
	ctx := context.Background()

	first, err := f.session.ProcessVideo(ctx, videoURL)
	require.NoError(t, err)

	f.provider.listErr = errors.New("youtube unreachable")
	_, err = f.session.ProcessVideo(ctx, "https://youtu.be/other99")
	require.Error(t, err)

	assert.Equal(t, first, f.session.Status())
	assert.False(t, f.store.indexes[0].dropped)

	answer, err := f.session.AnswerQuestion(ctx, "What is the tallest mountain?")
	require.NoError(t, err)
	assert.NotEmpty(t, answer)
}

func TestProcessVideoErrors(t *testing.T) {
	f := newSessionFixture(t, 1000, 200)

	_, err := f.session.ProcessVideo(context.Background(), "https://example.com/watch?v=x")
	assert.ErrorIs(t, err, port.ErrInvalidURL)
	assert.Zero(t, f.provider.listCalls)

	f.provider.tracks = nil
	_, err = f.session.ProcessVideo(context.Background(), videoURL)
	assert.ErrorIs(t, err, port.ErrNoCaptions)

	f.provider.tracks = []domain.CaptionTrack{{LanguageCode: "en"}}
	f.embedder.err = errors.New("ollama down")
	_, err = f.session.ProcessVideo(context.Background(), videoURL)
	assert.ErrorIs(t, err, port.ErrEmbeddingService)
	assert.False(t, f.session.Status().Ready)
}

func TestAnswerErrorsAreDistinct(t *testing.T) {
	ctx := context.Background()

	t.Run("completion", func(t *testing.T) {
		f := newSessionFixture(t, 1000, 200)
		_, err := f.session.ProcessVideo(ctx, videoURL)
		require.NoError(t, err)

		f.completer.err = errors.New("401 missing api key")
		_, err = f.session.AnswerQuestion(ctx, "bees?")
		require.ErrorIs(t, err, port.ErrCompletionService)
		assert.NotErrorIs(t, err, port.ErrNoActiveIndex)
	})

	t.Run("embedding", func(t *testing.T) {
		f := newSessionFixture(t, 1000, 200)
		_, err := f.session.ProcessVideo(ctx, videoURL)
		require.NoError(t, err)

		f.embedder.err = errors.New("timeout")
		_, err = f.session.AnswerQuestion(ctx, "bees?")
		require.ErrorIs(t, err, port.ErrEmbeddingService)
		assert.Empty(t, f.completer.prompts)
	})

	t.Run("empty question", func(t *testing.T) {
		f := newSessionFixture(t, 1000, 200)
		_, err := f.session.AnswerQuestion(ctx, "   ")
		assert.ErrorIs(t, err, port.ErrEmptyQuestion)
	})
}

func TestCompletionServerErrorFailsFirstTime(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"choices":[{"message":{"content":"ok"}}]}`))
	}))
	defer srv.Close()

	f := newSessionFixture(t, 1000, 200)
	chunker, err := NewChunker(1000, 200)
	require.NoError(t, err)
	session := NewSession(
		NewTranscriptService(f.provider, nil),
		chunker,
		NewIndexer(f.embedder, f.store, 32, 0),
		f.embedder,
		ai.NewOpenAICompleter(ai.EndpointConfig{BaseURL: srv.URL, Model: "m", Token: "k"}, 0, 0),
		SessionConfig{TargetLanguage: "en", TopK: 4},
	)

	ctx := context.Background()
	_, err = session.ProcessVideo(ctx, videoURL)
	require.NoError(t, err)

	_, err = session.AnswerQuestion(ctx, "bees?")
	require.ErrorIs(t, err, port.ErrCompletionService)
	assert.Equal(t, 1, calls)
}

// slowDropStore hands out indexes whose Drop blocks until release is closed.
type slowDropStore struct {
	inner    *store.MemoryStore
	dropping chan struct{}
	release  chan struct{}
}

type slowDropIndex struct {
	port.Index
	s *slowDropStore
}

func (i *slowDropIndex) Drop(ctx context.Context) error {
	close(i.s.dropping)
	<-i.s.release
	return i.Index.Drop(ctx)
}

func (s *slowDropStore) Backend() string { return "slow" }

func (s *slowDropStore) Build(ctx context.Context, entries []domain.IndexedPassage) (port.Index, error) {
	idx, err := s.inner.Build(ctx, entries)
	if err != nil {
		return nil, err
	}
	return &slowDropIndex{Index: idx, s: s}, nil
}

func TestReplacedIndexDropDoesNotBlockQueries(t *testing.T) {
	f := newSessionFixture(t, 1000, 200)
	st := &slowDropStore{inner: store.NewMemoryStore(), dropping: make(chan struct{}), release: make(chan struct{})}
	chunker, err := NewChunker(1000, 200)
	require.NoError(t, err)
	session := NewSession(
		NewTranscriptService(f.provider, nil),
		chunker,
		NewIndexer(f.embedder, st, 32, 0),
		f.embedder,
		f.completer,
		SessionConfig{TargetLanguage: "en", TopK: 4},
	)

	ctx := context.Background()
	_, err = session.ProcessVideo(ctx, videoURL)
	require.NoError(t, err)

	ingested := make(chan error, 1)
	go func() {
		_, err := session.ProcessVideo(ctx, videoURL)
		ingested <- err
	}()
	<-st.dropping

	answered := make(chan error, 1)
	go func() {
		_, err := session.AnswerQuestion(ctx, "bees?")
		answered <- err
	}()
	select {
	case err := <-answered:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("question blocked while the previous index was being dropped")
	}

	close(st.release)
	require.NoError(t, <-ingested)
}

func TestSessionClose(t *testing.T) {
	f := newSessionFixture(t, 1000, 200)
	ctx := context.Background()

	_, err := f.session.ProcessVideo(ctx, videoURL)
	require.NoError(t, err)
	require.NoError(t, f.session.Close(ctx))

	assert.True(t, f.store.indexes[0].dropped)
	_, err = f.session.AnswerQuestion(ctx, "bees?")
	assert.ErrorIs(t, err, port.ErrNoActiveIndex)
}

func TestBuildPrompt(t *testing.T) {
	ctx := FormatContext([]domain.ScoredPassage{
		{Passage: domain.Passage{Text: "first"}},
		{Passage: domain.Passage{Text: "second"}},
	})
	assert.Equal(t, "first\n\nsecond", ctx)

	p := BuildPrompt(ctx, "why?")
	assert.True(t, strings.HasPrefix(p, "You are a helpful assistant.\n"))
	assert.Contains(t, p, "If the context is insufficient, just say you don't know.")
	assert.Contains(t, p, "first\n\nsecond")
	assert.True(t, strings.HasSuffix(p, "Question: why?\n"))
}
