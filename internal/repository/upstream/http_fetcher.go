package upstream

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/efb/signals/signals-backend/internal/domain"
	"github.com/rs/zerolog/log"
)

const (
	// DefaultTimeout bounds a single upstream request
	DefaultTimeout = 10 * time.Second
	// DefaultMaxBodyBytes caps how much of an upstream body is read
	DefaultMaxBodyBytes int64 = 16 << 20
	// DefaultUserAgent is sent unless a source overrides it
	DefaultUserAgent = "EFB-Dashboard/1.0"
)

// HTTPFetcherConfig holds configuration for the upstream HTTP fetcher
type HTTPFetcherConfig struct {
	Timeout      time.Duration
	MaxBodyBytes int64
	UserAgent    string
}

// HTTPFetcher implements domain.Fetcher with a single attempt per request
type HTTPFetcher struct {
	client       *http.Client
	maxBodyBytes int64
	userAgent    string
}

// Ensure HTTPFetcher implements domain.Fetcher
var _ domain.Fetcher = (*HTTPFetcher)(nil)

// NewHTTPFetcher creates a new HTTPFetcher
func NewHTTPFetcher(cfg HTTPFetcherConfig) *HTTPFetcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}

	return &HTTPFetcher{
		client:       &http.Client{Timeout: cfg.Timeout},
		maxBodyBytes: cfg.MaxBodyBytes,
		userAgent:    cfg.UserAgent,
	}
}

// Fetch issues the request and returns the body on a 2xx answer.
// Any other outcome is reported as a *domain.FetchFailure; there are no retries.
func (f *HTTPFetcher) Fetch(ctx context.Context, fr domain.FetchRequest) ([]byte, error) {
	method := fr.Method
	if method == "" {
		method = http.MethodGet
	}

	var body io.Reader
	if len(fr.Body) > 0 {
		body = bytes.NewReader(fr.Body)
	}

	req, err := http.NewRequestWithContext(ctx, method, fr.URL, body)
	if err != nil {
		return nil, &domain.FetchFailure{Message: fmt.Sprintf("invalid request: %v", err)}
	}
	req.Header.Set("User-Agent", f.userAgent)
	for key, value := range fr.Headers {
		req.Header.Set(key, value)
	}

	start := time.Now()
	resp, err := f.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, &domain.FetchFailure{Message: "request timed out"}
		}
		return nil, &domain.FetchFailure{Message: err.Error()}
	}
	defer resp.Body.Close()

	log.Debug().
		Str("host", req.URL.Host).
		Int("status", resp.StatusCode).
		Dur("latency", time.Since(start)).
		Msg("Upstream response")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Drain a little of the body so the connection can be reused
		_, _ = io.CopyN(io.Discard, resp.Body, 4096)
		return nil, &domain.FetchFailure{
			Status:  resp.StatusCode,
			Message: strings.TrimSpace(fmt.Sprintf("%s %s", req.URL.Host, http.StatusText(resp.StatusCode))),
		}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBodyBytes+1))
	if err != nil {
		return nil, &domain.FetchFailure{Message: fmt.Sprintf("read body: %v", err)}
	}
	if int64(len(data)) > f.maxBodyBytes {
		return nil, &domain.FetchFailure{Message: fmt.Sprintf("response body exceeds %d bytes", f.maxBodyBytes)}
	}
	return data, nil
}
