package translate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
)

const (
	myMemoryURL = "https://api.mymemory.translated.net/get"

	// myMemoryMaxQuery is the largest query the free API accepts.
	myMemoryMaxQuery = 500
)

// MyMemory translates through the MyMemory public API. It is used as the
// fallback provider.
type MyMemory struct {
	baseURL string
	email   string
	http    httpGetter
}

// NewMyMemory creates the fallback provider. email is optional and raises
// the daily quota.
func NewMyMemory(o Options, email string) *MyMemory {
	base := o.BaseURL
	if base == "" {
		base = myMemoryURL
	}
	return &MyMemory{baseURL: base, email: email, http: newHTTPGetter(o)}
}

func (m *MyMemory) Name() string { return "mymemory" }

// Translate splits text into pieces the API accepts and joins the results.
func (m *MyMemory) Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return text, nil
	}
	if sourceLang == "" {
		sourceLang = "autodetect"
	}

	var parts []string
	for _, piece := range splitWords(text, myMemoryMaxQuery) {
		out, err := m.translate(ctx, piece, sourceLang, targetLang)
		if err != nil {
			return "", fmt.Errorf("mymemory: %w", err)
		}
		parts = append(parts, out)
	}
	return strings.Join(parts, " "), nil
}

func (m *MyMemory) translate(ctx context.Context, text, sourceLang, targetLang string) (string, error) {
	q := url.Values{}
	q.Set("q", text)
	q.Set("langpair", sourceLang+"|"+targetLang)
	if m.email != "" {
		q.Set("de", m.email)
	}

	body, err := m.http.get(ctx, m.baseURL+"?"+q.Encode())
	if err != nil {
		return "", err
	}

	var resp struct {
		ResponseData struct {
			TranslatedText string `json:"translatedText"`
		} `json:"responseData"`
		ResponseStatus  json.Number `json:"responseStatus"`
		ResponseDetails string      `json:"responseDetails"`
		QuotaFinished   bool        `json:"quotaFinished"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("decode: %w", err)
	}

	if resp.QuotaFinished {
		return "", errors.New("daily quota exhausted")
	}
	if s := resp.ResponseStatus.String(); s != "" && s != "200" {
		return "", fmt.Errorf("status %s: %s", s, resp.ResponseDetails)
	}
	if resp.ResponseData.TranslatedText == "" {
		return "", errors.New("empty translation")
	}
	return resp.ResponseData.TranslatedText, nil
}

// splitWords cuts s into pieces of at most n runes, breaking at spaces when
// possible.
func splitWords(s string, n int) []string {
	runes := []rune(s)
	var out []string
	for len(runes) > n {
		cut := n
		for i := n; i > n/2; i-- {
			if runes[i] == ' ' {
				cut = i
				break
			}
		}
		out = append(out, strings.TrimSpace(string(runes[:cut])))
		runes = runes[cut:]
	}
	if rest := strings.TrimSpace(string(runes)); rest != "" {
		out = append(out, rest)
	}
	return out
}
