package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/arturoeanton/go-youtube-rag/internal/domain"
)

// TranscriptCache keeps resolved transcripts in Redis so that re-ingesting a
// video skips the caption and translation round trips.
type TranscriptCache struct {
	rdb    *redis.Client
	prefix string
}

// NewTranscriptCache connects to redisURL and verifies the connection.
func NewTranscriptCache(ctx context.Context, redisURL string) (*TranscriptCache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	slog.Info("transcript cache: redis connected", "addr", opts.Addr)
	return &TranscriptCache{rdb: rdb, prefix: "ytrag:transcript:"}, nil
}

func (c *TranscriptCache) key(videoID, lang string) string {
	return c.prefix + videoID + ":" + lang
}

// Get returns a cached transcript. Redis errors count as a miss.
func (c *TranscriptCache) Get(ctx context.Context, videoID, targetLang string) (*domain.Transcript, bool) {
	data, err := c.rdb.Get(ctx, c.key(videoID, targetLang)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			slog.Warn("transcript cache get failed", "video_id", videoID, "error", err)
		}
		return nil, false
	}

	var t domain.Transcript
	if err := json.Unmarshal(data, &t); err != nil || t.Text == "" {
		return nil, false
	}
	return &t, true
}

// Set stores t under its video and language for ttl.
func (c *TranscriptCache) Set(ctx context.Context, t *domain.Transcript, ttl time.Duration) error {
	data, err := json.Marshal(t)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, c.key(t.VideoID, t.LanguageCode), data, ttl).Err()
}

// Close closes the Redis client.
func (c *TranscriptCache) Close() error {
	return c.rdb.Close()
}
