package openimage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"  // register decoder
	_ "image/jpeg" // register decoder
	_ "image/png"  // register decoder
	"io"
	"net/http"
	"strings"
	"time"

	_ "golang.org/x/image/webp" // register decoder
)

// DownloadOpts configures an image download.
type DownloadOpts struct {
	MaxBytes int64         // max response body size (default: 200KB)
	MinBytes int           // reject if smaller (default: 0)
	Timeout  time.Duration // per-request timeout (default: 10s)
}

const (
	defaultMaxBytes = 200 * 1024
	defaultTimeout  = 10 * time.Second

	// classifyMaxBytes bounds downloads for face detection and dedup.
	classifyMaxBytes = 5 * 1024 * 1024
)

// ErrNotImage is returned when a URL does not serve an image.
var ErrNotImage = errors.New("openimage: response is not an image")

// DownloadResult holds downloaded image data.
type DownloadResult struct {
	Data     []byte
	MIMEType string
}

// Downloader fetches image bytes over HTTP.
type Downloader struct {
	Client    *http.Client // nil = http.DefaultClient
	UserAgent string
}

// NewDownloader returns a Downloader using cfg's HTTP client and user agent.
func (c *Config) NewDownloader() *Downloader {
	c.defaults()
	return &Downloader{Client: c.HTTPClient, UserAgent: c.UserAgent}
}

// Download fetches the image at imageURL.
func (d *Downloader) Download(ctx context.Context, imageURL string, opts DownloadOpts) (*DownloadResult, error) {
	if opts.MaxBytes <= 0 {
		opts.MaxBytes = defaultMaxBytes
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	client := d.Client
	if client == nil {
		client = http.DefaultClient
	}

	ctx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if d.UserAgent != "" {
		req.Header.Set("User-Agent", d.UserAgent)
	}

	resp, err := client.Do(req) //nolint:gosec // URL comes from a source adapter
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", imageURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: status %d", imageURL, resp.StatusCode)
	}

	ct := resp.Header.Get("Content-Type")
	// "image/jpeg; charset=utf-8" -> "image/jpeg"
	if idx := strings.IndexByte(ct, ';'); idx >= 0 {
		ct = strings.TrimSpace(ct[:idx])
	}
	if !strings.HasPrefix(ct, "image/") {
		return nil, fmt.Errorf("fetch %s: %w (%q)", imageURL, ErrNotImage, ct)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, opts.MaxBytes))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", imageURL, err)
	}
	if len(data) < opts.MinBytes {
		return nil, fmt.Errorf("fetch %s: %d bytes, want at least %d", imageURL, len(data), opts.MinBytes)
	}

	return &DownloadResult{Data: data, MIMEType: ct}, nil
}

// DownloadImage downloads and decodes the image at imageURL. The raw bytes are
// returned alongside so callers can read embedded metadata.
func (d *Downloader) DownloadImage(ctx context.Context, imageURL string) ([]byte, image.Image, error) {
	r, err := d.Download(ctx, imageURL, DownloadOpts{MaxBytes: classifyMaxBytes})
	if err != nil {
		return nil, nil, err
	}
	img, _, err := image.Decode(bytes.NewReader(r.Data))
	if err != nil {
		return r.Data, nil, fmt.Errorf("decode %s: %w", imageURL, err)
	}
	return r.Data, img, nil
}
