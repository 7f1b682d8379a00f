package fetcher

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/sinergia/leadquote/internal/resilience"
)

// HTTPOptions configures the HTTP fetcher.
type HTTPOptions struct {
	UserAgent   string
	Timeout     time.Duration
	MaxRetries  int
	BackoffBase time.Duration
	MaxBackoff  time.Duration
	// RateLimiters overrides the default limiter per host name.
	RateLimiters map[string]*rate.Limiter
}

// HTTPFetcher implements Fetcher on net/http.
type HTTPFetcher struct {
	client    *http.Client
	userAgent string
	retry     resilience.RetryConfig
	limiters  map[string]*rate.Limiter
	fallback  *rate.Limiter
}

// NewHTTPFetcher creates an HTTPFetcher. Zero options fall back to a 30s
// timeout and three attempts with backoff from one second.
func NewHTTPFetcher(opts HTTPOptions) *HTTPFetcher {
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.MaxRetries == 0 {
		opts.MaxRetries = 3
	}
	if opts.BackoffBase == 0 {
		opts.BackoffBase = time.Second
	}
	if opts.MaxBackoff == 0 {
		opts.MaxBackoff = 30 * time.Second
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "leadquote/1.0"
	}

	limiters := make(map[string]*rate.Limiter, len(opts.RateLimiters))
	for host, lim := range opts.RateLimiters {
		limiters[host] = lim
	}

	return &HTTPFetcher{
		client: &http.Client{
			Timeout: opts.Timeout,
			Transport: &http.Transport{
				// One load fetches every dataset from the same host at once.
				MaxIdleConnsPerHost: 6,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		userAgent: opts.UserAgent,
		retry: resilience.RetryConfig{
			MaxAttempts:    opts.MaxRetries,
			InitialBackoff: opts.BackoffBase,
			MaxBackoff:     opts.MaxBackoff,
			Multiplier:     2,
			JitterFraction: 0.25,
			OnRetry:        resilience.RetryLogger("refdata", "download"),
		},
		limiters: limiters,
		fallback: rate.NewLimiter(20, 20),
	}
}

func (f *HTTPFetcher) limiterFor(rawURL string) *rate.Limiter {
	u, err := url.Parse(rawURL)
	if err != nil {
		return f.fallback
	}
	if lim, ok := f.limiters[u.Host]; ok {
		return lim
	}
	return f.fallback
}

// get issues the request, retrying network failures and 408/429/5xx answers.
func (f *HTTPFetcher) get(ctx context.Context, rawURL, etag string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "fetcher: create request")
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "application/json")
	if etag != "" {
		req.Header.Set("If-None-Match", etag)
	}

	lim := f.limiterFor(rawURL)
	resp, err := resilience.DoVal(ctx, f.retry, func(ctx context.Context) (*http.Response, error) {
		if err := lim.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "fetcher: rate limiter wait")
		}
		resp, err := f.client.Do(req.Clone(ctx))
		if err != nil {
			return nil, err
		}
		if resilience.IsTransientStatus(resp.StatusCode) {
			_ = resp.Body.Close()
			return nil, resilience.NewTransientError(
				eris.Errorf("fetcher: http %d from %s", resp.StatusCode, rawURL), resp.StatusCode)
		}
		return resp, nil
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, eris.Wrap(ctx.Err(), "fetcher: request cancelled")
		}
		return nil, eris.Wrapf(err, "fetcher: get %s", rawURL)
	}
	return resp, nil
}

// Download fetches the URL and returns the response body.
func (f *HTTPFetcher) Download(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	res, err := f.Revalidate(ctx, rawURL, "")
	if err != nil {
		return nil, eris.Wrap(err, "fetcher: download")
	}
	return res.Body, nil
}

// Revalidate fetches the URL unless the server still holds etag.
func (f *HTTPFetcher) Revalidate(ctx context.Context, rawURL, etag string) (*Response, error) {
	resp, err := f.get(ctx, rawURL, etag)
	if err != nil {
		return nil, err
	}

	switch resp.StatusCode {
	case http.StatusOK:
		return &Response{Body: resp.Body, ETag: resp.Header.Get("ETag")}, nil
	case http.StatusNotModified:
		_ = resp.Body.Close()
		if etag == "" {
			return nil, eris.Errorf("fetcher: unsolicited 304 from %s", rawURL)
		}
		return &Response{ETag: etag, NotModified: true}, nil
	default:
		_ = resp.Body.Close()
		return nil, eris.Errorf("fetcher: unexpected status %d from %s", resp.StatusCode, rawURL)
	}
}
