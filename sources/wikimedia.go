package sources

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/antonholmquist/jason"

	"github.com/anatolykoptev/go-openimage"
)

const (
	wikimediaName     = "Wikimedia Commons"
	wikimediaEndpoint = "https://commons.wikimedia.org/w/api.php"
	wikimediaLimit    = 50
	wikimediaThumbPx  = 400

	// Fallback license page when a file carries no LicenseUrl.
	wikimediaLicensing = "https://commons.wikimedia.org/wiki/Commons:Licensing"

	maxDescriptionRunes = 200
	maxAuthorRunes      = 100
)

// Wikimedia searches Wikimedia Commons. It needs no key.
type Wikimedia struct {
	HTTPOptions
	Endpoint string // default: commons API
}

// NewWikimedia returns a Commons adapter.
func NewWikimedia(opts HTTPOptions) *Wikimedia {
	return &Wikimedia{HTTPOptions: opts, Endpoint: wikimediaEndpoint}
}

func (w *Wikimedia) Name() string    { return wikimediaName }
func (w *Wikimedia) Available() bool { return true }

// Search returns commercially usable Commons files in search rank order.
func (w *Wikimedia) Search(ctx context.Context, query string, maxResults int) ([]openimage.ImageRecord, error) {
	limit := capResults(maxResults, wikimediaLimit)
	params := url.Values{
		"action":        {"query"},
		"format":        {"json"},
		"formatversion": {"2"},
		"generator":     {"search"},
		"gsrsearch":     {"filetype:bitmap " + query},
		"gsrlimit":      {strconv.Itoa(limit)},
		"gsrnamespace":  {"6"},
		"prop":          {"imageinfo"},
		"iiprop":        {"url|size|extmetadata"},
		"iiurlwidth":    {strconv.Itoa(wikimediaThumbPx)},
	}

	ctx, cancel := context.WithTimeout(ctx, w.timeout(RequestTimeout))
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, w.Endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("%s: build request: %w", wikimediaName, err)
	}
	body, err := w.do(req, wikimediaName)
	if err != nil {
		return nil, err
	}

	resp, err := jason.NewObjectFromBytes(body)
	if err != nil {
		return nil, fmt.Errorf("%s: decode reply: %w", wikimediaName, err)
	}
	if apiErr, err := resp.GetString("error", "info"); err == nil {
		return nil, fmt.Errorf("%s: api error: %s", wikimediaName, apiErr)
	}
	pages, err := resp.GetObjectArray("query", "pages")
	if err != nil {
		// No "query" key means no hits.
		return nil, nil
	}

	sort.SliceStable(pages, func(i, j int) bool {
		a, _ := pages[i].GetInt64("index")
		b, _ := pages[j].GetInt64("index")
		return a < b
	})

	out := make([]openimage.ImageRecord, 0, min(len(pages), limit))
	for _, page := range pages {
		rec, ok := wikimediaRecord(page)
		if !ok {
			continue
		}
		if !rec.IsCommercialSafe() {
			slog.Debug("openimage/sources: skipping non-commercial file",
				"source", wikimediaName, "title", rec.Title)
			continue
		}
		out = append(out, rec)
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

func wikimediaRecord(page *jason.Object) (openimage.ImageRecord, bool) {
	infos, err := page.GetObjectArray("imageinfo")
	if err != nil || len(infos) == 0 {
		return openimage.ImageRecord{}, false
	}
	info := infos[0]

	imageURL, _ := info.GetString("url")
	thumbURL, err := info.GetString("thumburl")
	if err != nil || thumbURL == "" {
		thumbURL = imageURL
	}
	width, _ := info.GetInt64("width")
	height, _ := info.GetInt64("height")
	pageURL, _ := info.GetString("descriptionurl")
	title, _ := page.GetString("title")

	licenseName, _ := info.GetString("extmetadata", "LicenseShortName", "value")
	licenseURL, _ := info.GetString("extmetadata", "LicenseUrl", "value")
	if licenseURL == "" {
		licenseURL = wikimediaLicensing
	}
	artist, _ := info.GetString("extmetadata", "Artist", "value")
	desc, _ := info.GetString("extmetadata", "ImageDescription", "value")

	rec := openimage.ImageRecord{
		ImageURL:     imageURL,
		ThumbnailURL: thumbURL,
		Source:       wikimediaName,
		LicenseType:  openimage.ParseLicenseName(licenseName),
		LicenseURL:   licenseURL,
		Title:        strings.TrimPrefix(title, "File:"),
		Description:  openimage.TruncateRunes(htmlToText(desc), maxDescriptionRunes),
		Author:       openimage.TruncateRunes(htmlToText(artist), maxAuthorRunes),
		Width:        int(width),
		Height:       int(height),
		PageURL:      pageURL,
		DownloadURL:  imageURL,
	}
	return rec, rec.Valid()
}
