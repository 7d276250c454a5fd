package translate

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"golang.org/x/time/rate"

	"github.com/arturoeanton/go-youtube-rag/pkg/retry"
)

// Options configures an HTTP translation provider.
type Options struct {
	HTTPClient *http.Client
	BaseURL    string  // overrides the public endpoint, mainly for tests
	RatePerSec float64 // request rate limit, zero = unlimited
}

// httpGetter issues rate-limited GET requests. Retries are left to the
// caller, so a single Translate call is a single attempt.
type httpGetter struct {
	client  *http.Client
	limiter *rate.Limiter
}

func newHTTPGetter(o Options) httpGetter {
	g := httpGetter{client: o.HTTPClient, limiter: rate.NewLimiter(rate.Inf, 1)}
	if g.client == nil {
		g.client = http.DefaultClient
	}
	if o.RatePerSec > 0 {
		g.limiter = rate.NewLimiter(rate.Limit(o.RatePerSec), 1)
	}
	return g
}

func (g httpGetter) get(ctx context.Context, rawURL string) ([]byte, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36")

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		if retry.IsRetryableStatus(resp.StatusCode) {
			return nil, fmt.Errorf("%w: %s", &retry.StatusError{StatusCode: resp.StatusCode}, snippet)
		}
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, snippet)
	}
	return io.ReadAll(io.LimitReader(resp.Body, 1<<20))
}
