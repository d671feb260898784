// Package sources implements openimage.Source adapters: REST clients for
// Wikimedia Commons, Unsplash, Pexels and Pixabay, and a search-then-scrape
// adapter for government sites.
package sources

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

const (
	// RequestTimeout bounds a single API call.
	RequestTimeout = 30 * time.Second
	// ScrapeTimeout bounds a page scrape, which is slower than an API call.
	ScrapeTimeout = 60 * time.Second

	// maxBodyBytes bounds API and page responses.
	maxBodyBytes = 4 << 20
)

// StatusError reports a non-2xx reply from a provider.
type StatusError struct {
	Provider string
	Code     int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: unexpected status %d", e.Provider, e.Code)
}

// HTTPOptions are shared by all adapters.
type HTTPOptions struct {
	Client    *http.Client // nil = http.DefaultClient
	UserAgent string
	Timeout   time.Duration // per call; zero = RequestTimeout
}

func (o HTTPOptions) client() *http.Client {
	if o.Client == nil {
		return http.DefaultClient
	}
	return o.Client
}

func (o HTTPOptions) timeout(def time.Duration) time.Duration {
	if o.Timeout > 0 {
		return o.Timeout
	}
	return def
}

// do sends req and returns the body of a 2xx reply, bounded by maxBodyBytes.
func (o HTTPOptions) do(req *http.Request, provider string) ([]byte, error) {
	if o.UserAgent != "" && req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", o.UserAgent)
	}
	resp, err := o.client().Do(req) //nolint:gosec // provider endpoints are configured
	if err != nil {
		return nil, fmt.Errorf("%s: %w", provider, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, &StatusError{Provider: provider, Code: resp.StatusCode}
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%s: read body: %w", provider, err)
	}
	return body, nil
}

// getJSON issues a GET with query params and decodes the JSON reply into out.
func (o HTTPOptions) getJSON(ctx context.Context, provider, endpoint string, params url.Values, header http.Header, out any) error {
	ctx, cancel := context.WithTimeout(ctx, o.timeout(RequestTimeout))
	defer cancel()

	u := endpoint
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("%s: build request: %w", provider, err)
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	body, err := o.do(req, provider)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%s: decode reply: %w", provider, err)
	}
	return nil
}

// postJSON sends payload as JSON and decodes the JSON reply into out.
func (o HTTPOptions) postJSON(ctx context.Context, timeout time.Duration, provider, endpoint string, header http.Header, payload, out any) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("%s: encode request: %w", provider, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("%s: build request: %w", provider, err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	body, err := o.do(req, provider)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%s: decode reply: %w", provider, err)
	}
	return nil
}

// capResults returns the smaller of the requested count and the provider limit.
func capResults(requested, limit int) int {
	if requested <= 0 || requested > limit {
		return limit
	}
	return requested
}
