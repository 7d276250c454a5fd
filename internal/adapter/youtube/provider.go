package youtube

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/arturoeanton/go-youtube-rag/internal/domain"
	"github.com/arturoeanton/go-youtube-rag/internal/port"
	"github.com/arturoeanton/go-youtube-rag/pkg/retry"
)

// Config holds the endpoints and HTTP client used by the Provider.
// Zero values select the public YouTube endpoints and http.DefaultClient.
type Config struct {
	HTTPClient *http.Client
	PlayerURL  string
	WatchURL   string
	Retry      *retry.Config
}

// Provider implements port.TranscriptProvider on top of the Innertube
// ANDROID /player endpoint, falling back to scraping the watch page.
type Provider struct {
	httpClient *http.Client
	playerURL  string
	watchURL   string
	retry      retry.Config
}

// NewProvider creates a YouTube caption provider.
func NewProvider(cfg Config) *Provider {
	p := &Provider{
		httpClient: cfg.HTTPClient,
		playerURL:  cfg.PlayerURL,
		watchURL:   cfg.WatchURL,
		retry:      retry.DefaultHTTPConfig,
	}
	if p.httpClient == nil {
		p.httpClient = http.DefaultClient
	}
	if p.playerURL == "" {
		p.playerURL = innertubePlayerURL
	}
	if p.watchURL == "" {
		p.watchURL = watchPageURL
	}
	if cfg.Retry != nil {
		p.retry = *cfg.Retry
	}
	return p
}

// ListTracks returns the caption tracks of a video in the order YouTube lists them.
func (p *Provider) ListTracks(ctx context.Context, videoID string) ([]domain.CaptionTrack, error) {
	resp, err := p.player(ctx, videoID)
	if err == nil && len(usable(resp.tracks())) > 0 {
		return toDomain(videoID, usable(resp.tracks())), nil
	}
	if err != nil {
		slog.Warn("youtube: player request failed, trying watch page", "video_id", videoID, "error", err)
	}

	scraped, scrapeErr := p.watchPage(ctx, videoID)
	if scrapeErr != nil {
		if err != nil {
			return nil, fmt.Errorf("list tracks: %w", errors.Join(err, scrapeErr))
		}
		// The player already answered that there is nothing usable.
		slog.Warn("youtube: watch page fallback failed", "video_id", videoID, "error", scrapeErr)
		return nil, noCaptions(resp, nil)
	}

	tracks := usable(scraped.tracks())
	if len(tracks) == 0 {
		return nil, noCaptions(scraped, resp)
	}
	return toDomain(videoID, tracks), nil
}

// noCaptions builds ErrNoCaptions with the most specific reason available.
func noCaptions(primary, secondary *playerResponse) error {
	reason := primary.reason()
	if reason == "" && secondary != nil {
		reason = secondary.reason()
	}
	if len(primary.tracks()) > 0 {
		reason = "all caption tracks require a PoToken"
	}
	if reason != "" {
		return fmt.Errorf("%w: %s", port.ErrNoCaptions, reason)
	}
	return port.ErrNoCaptions
}

// FetchTrack downloads a caption track in its own language.
func (p *Provider) FetchTrack(ctx context.Context, track domain.CaptionTrack) ([]domain.TranscriptSegment, error) {
	return p.timedText(ctx, track.BaseURL, "")
}

// FetchTranslatedTrack downloads a track machine-translated by YouTube.
func (p *Provider) FetchTranslatedTrack(ctx context.Context, track domain.CaptionTrack, targetLang string) ([]domain.TranscriptSegment, error) {
	if !track.IsTranslatable {
		return nil, fmt.Errorf("track %s is not translatable", track.LanguageCode)
	}
	return p.timedText(ctx, track.BaseURL, targetLang)
}

func (p *Provider) player(ctx context.Context, videoID string) (*playerResponse, error) {
	reqBody, err := json.Marshal(playerRequest{
		VideoID: videoID,
		Context: playerContext{
			Client: playerClient{
				ClientName:        "ANDROID",
				ClientVersion:     androidVersion,
				AndroidSdkVersion: 30,
				Hl:                "en",
				Gl:                "US",
			},
		},
		RacyCheckOk:    true,
		ContentCheckOk: true,
	})
	if err != nil {
		return nil, err
	}

	body, err := p.do(ctx, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.playerURL+"?prettyPrint=false", bytes.NewReader(reqBody))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("User-Agent", androidUA)
		req.Header.Set("X-Youtube-Client-Name", "3")
		req.Header.Set("X-Youtube-Client-Version", androidVersion)
		return req, nil
	}, 3<<20)
	if err != nil {
		return nil, fmt.Errorf("android innertube: %w", err)
	}

	var resp playerResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode player: %w", err)
	}
	return &resp, nil
}

func (p *Provider) watchPage(ctx context.Context, videoID string) (*playerResponse, error) {
	watchURL := p.watchURL + "?v=" + url.QueryEscape(videoID)
	body, err := p.do(ctx, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, watchURL, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("User-Agent", browserUA)
		req.Header.Set("Accept-Language", "en-US,en;q=0.9")
		req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
		return req, nil
	}, 6<<20)
	if err != nil {
		return nil, fmt.Errorf("watch page: %w", err)
	}

	idx := bytes.Index(body, []byte(playerResponseMarker))
	if idx < 0 {
		return nil, errors.New("ytInitialPlayerResponse not found in watch page")
	}
	jsonData := extractJSON(body[idx+len(playerResponseMarker):])
	if jsonData == nil {
		return nil, errors.New("failed to extract ytInitialPlayerResponse JSON")
	}

	var resp playerResponse
	if err := json.Unmarshal(jsonData, &resp); err != nil {
		return nil, fmt.Errorf("decode ytInitialPlayerResponse: %w", err)
	}
	return &resp, nil
}

func (p *Provider) timedText(ctx context.Context, baseURL, targetLang string) ([]domain.TranscriptSegment, error) {
	if baseURL == "" {
		return nil, errors.New("caption track has no URL")
	}
	if needsPoToken(baseURL) {
		return nil, errors.New("caption track requires a PoToken")
	}

	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("caption url: %w", err)
	}
	q := u.Query()
	q.Del("fmt")
	if targetLang != "" {
		q.Set("tlang", targetLang)
	}
	u.RawQuery = q.Encode()

	body, err := p.do(ctx, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("User-Agent", browserUA)
		return req, nil
	}, 2<<20)
	if err != nil {
		return nil, fmt.Errorf("fetch timedtext: %w", err)
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, errors.New("fetch timedtext: empty response")
	}
	return parseTimedText(body)
}

// do sends the request built by newReq with retries and returns at most limit bytes.
func (p *Provider) do(ctx context.Context, newReq func(context.Context) (*http.Request, error), limit int64) ([]byte, error) {
	resp, err := retry.HTTP(ctx, p.retry, func(ctx context.Context) (*http.Response, error) {
		req, err := newReq(ctx)
		if err != nil {
			return nil, err
		}
		return p.httpClient.Do(req)
	})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, snippet)
	}
	return io.ReadAll(io.LimitReader(resp.Body, limit))
}

func toDomain(videoID string, tracks []rawTrack) []domain.CaptionTrack {
	out := make([]domain.CaptionTrack, len(tracks))
	for i, t := range tracks {
		out[i] = t.toDomain(videoID)
	}
	return out
}
