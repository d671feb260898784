package openimage

import (
	"context"
	"errors"
	"image"
	"io"
	"log/slog"
	"net/http"
	"strings"
)

// ImageProbe is what a header probe learns about an image.
type ImageProbe struct {
	Width    int
	Height   int
	MIMEType string
}

// probeDecodeLimit bounds how much of the body is read to find dimensions.
const probeDecodeLimit = 256 * 1024

// ProbeImage fetches the start of the image at rawURL and decodes its
// dimensions. It rejects logo and share-card URLs without a request. The second
// result is false when the URL does not serve a usable image; dimensions are
// zero when the format header could not be decoded.
func (d *Downloader) ProbeImage(ctx context.Context, rawURL string) (ImageProbe, bool) {
	if IsSiteChrome(rawURL) {
		return ImageProbe{}, false
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return ImageProbe{}, false
	}
	if d.UserAgent != "" {
		req.Header.Set("User-Agent", d.UserAgent)
	}

	client := d.Client
	if client == nil {
		client = http.DefaultClient
	}
	limited := *client
	limited.CheckRedirect = func(_ *http.Request, via []*http.Request) error {
		const maxRedirects = 3
		if len(via) >= maxRedirects {
			return errors.New("too many redirects")
		}
		return nil
	}

	resp, err := limited.Do(req) //nolint:gosec // URL comes from a source adapter
	if err != nil {
		return ImageProbe{}, false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return ImageProbe{}, false
	}
	ct := resp.Header.Get("Content-Type")
	if !strings.HasPrefix(ct, "image/") {
		return ImageProbe{}, false
	}

	probe := ImageProbe{MIMEType: ct}
	imgCfg, _, err := image.DecodeConfig(io.LimitReader(resp.Body, probeDecodeLimit))
	if err != nil {
		slog.Debug("openimage: probe could not decode dimensions", "url", rawURL, "error", err)
		return probe, true
	}
	probe.Width, probe.Height = imgCfg.Width, imgCfg.Height
	return probe, true
}
