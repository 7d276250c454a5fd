package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// EndpointConfig holds the configuration for a single model endpoint.
type EndpointConfig struct {
	BaseURL string        // e.g. http://localhost:11434 or https://api.groq.com/openai/v1
	Model   string        // e.g. all-minilm, llama-3.3-70b-versatile
	Token   string        // Bearer token (empty = no auth)
	Timeout time.Duration // per HTTP request, zero = none
}

// client posts JSON to one endpoint. Calls are not retried: the first
// failure is returned to the caller.
type client struct {
	name       string
	cfg        EndpointConfig
	httpClient *http.Client
}

func newClient(name string, cfg EndpointConfig) *client {
	return &client{
		name:       name,
		cfg:        EndpointConfig{BaseURL: strings.TrimRight(cfg.BaseURL, "/"), Model: cfg.Model, Token: cfg.Token, Timeout: cfg.Timeout},
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

// post is a helper for POST requests to the endpoint (with optional bearer token).
func (c *client) post(ctx context.Context, path string, payload any) ([]byte, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+path, bytes.NewReader(payloadBytes))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s request failed: %w", c.name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("%s API error (%d): %s", c.name, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	return io.ReadAll(resp.Body)
}
