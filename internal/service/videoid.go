package service

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/arturoeanton/go-youtube-rag/internal/port"
)

// ExtractVideoID returns the video identifier embedded in a YouTube URL.
// Accepted shapes: youtube.com/watch?v=ID, youtube.com/embed/ID,
// youtube.com/shorts/ID and youtu.be/ID. Anything else yields port.ErrInvalidURL.
func ExtractVideoID(rawURL string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return "", fmt.Errorf("%w: %v", port.ErrInvalidURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("%w: %q", port.ErrInvalidURL, rawURL)
	}

	var id string
	switch strings.ToLower(u.Hostname()) {
	case "www.youtube.com", "youtube.com":
		switch {
		case u.Path == "/watch":
			id = u.Query().Get("v")
		case strings.HasPrefix(u.Path, "/embed/"):
			id = firstSegment(strings.TrimPrefix(u.Path, "/embed/"))
		case strings.HasPrefix(u.Path, "/shorts/"):
			id = firstSegment(strings.TrimPrefix(u.Path, "/shorts/"))
		}
	case "youtu.be":
		id = firstSegment(strings.TrimPrefix(u.Path, "/"))
	}

	if id == "" {
		return "", fmt.Errorf("%w: %q", port.ErrInvalidURL, rawURL)
	}
	return id, nil
}

func firstSegment(p string) string {
	if i := strings.IndexByte(p, '/'); i >= 0 {
		return p[:i]
	}
	return p
}
