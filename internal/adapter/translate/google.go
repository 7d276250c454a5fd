package translate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
)

const googleURL = "https://translate.googleapis.com/translate_a/single"

// Google translates through the public translate.googleapis.com "gtx" client.
type Google struct {
	baseURL string
	http    httpGetter
}

// NewGoogle creates the primary translation provider.
func NewGoogle(o Options) *Google {
	base := o.BaseURL
	if base == "" {
		base = googleURL
	}
	return &Google{baseURL: base, http: newHTTPGetter(o)}
}

func (g *Google) Name() string { return "google" }

// Translate sends text in one request. An empty sourceLang means auto-detect.
func (g *Google) Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return text, nil
	}
	if sourceLang == "" {
		sourceLang = "auto"
	}

	q := url.Values{}
	q.Set("client", "gtx")
	q.Set("sl", sourceLang)
	q.Set("tl", targetLang)
	q.Set("dt", "t")
	q.Set("q", text)

	body, err := g.http.get(ctx, g.baseURL+"?"+q.Encode())
	if err != nil {
		return "", fmt.Errorf("google translate: %w", err)
	}
	out, err := parseGoogle(body)
	if err != nil {
		return "", fmt.Errorf("google translate: %w", err)
	}
	return out, nil
}

// parseGoogle reads the nested array response:
// [[["translated","original",...],...],null,"de",...]
func parseGoogle(body []byte) (string, error) {
	var root []json.RawMessage
	if err := json.Unmarshal(body, &root); err != nil {
		return "", fmt.Errorf("decode: %w", err)
	}
	if len(root) == 0 {
		return "", errors.New("empty response")
	}

	var sentences [][]json.RawMessage
	if err := json.Unmarshal(root[0], &sentences); err != nil {
		return "", fmt.Errorf("decode sentences: %w", err)
	}

	var sb strings.Builder
	for _, s := range sentences {
		if len(s) == 0 {
			continue
		}
		var part string
		if err := json.Unmarshal(s[0], &part); err != nil {
			continue // null entries carry transliteration only
		}
		sb.WriteString(part)
	}
	if sb.Len() == 0 {
		return "", errors.New("no translation in response")
	}
	return sb.String(), nil
}
