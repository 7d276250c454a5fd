package port

import (
	"errors"
	"fmt"
)

// Sentinel errors used across ports.
var (
	ErrInvalidURL         = errors.New("invalid youtube url")
	ErrNoCaptions         = errors.New("no captions available for this video")
	ErrTranslationFailed  = errors.New("translation failed")
	ErrEmbeddingService   = errors.New("embedding service error")
	ErrCompletionService  = errors.New("completion service error")
	ErrNoActiveIndex      = errors.New("no active index, process a video first")
	ErrInvalidChunkConfig = errors.New("chunk overlap must be smaller than chunk size")
	ErrEmptyTranscript    = errors.New("transcript is empty")
	ErrEmptyQuestion      = errors.New("question is empty")
)

// TranslationError reports the chunk that could not be translated by either
// the primary or the fallback provider.
type TranslationError struct {
	ChunkIndex int
	Cause      error
}

func (e *TranslationError) Error() string {
	return fmt.Sprintf("translation failed for chunk %d: %v", e.ChunkIndex, e.Cause)
}

func (e *TranslationError) Unwrap() error { return e.Cause }

// Is makes errors.Is(err, ErrTranslationFailed) hold for any TranslationError.
func (e *TranslationError) Is(target error) bool { return target == ErrTranslationFailed }
