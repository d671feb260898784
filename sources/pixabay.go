package sources

import (
	"cmp"
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/anatolykoptev/go-openimage"
)

const (
	pixabayName     = "Pixabay"
	pixabayEndpoint = "https://pixabay.com/api/"
	pixabayLimit    = 200
	pixabayLicense  = "https://pixabay.com/service/license/"
)

// Pixabay searches the Pixabay API.
type Pixabay struct {
	HTTPOptions
	APIKey   string
	Endpoint string
}

// NewPixabay returns a Pixabay adapter; it is unavailable without a key.
func NewPixabay(apiKey string, opts HTTPOptions) *Pixabay {
	return &Pixabay{HTTPOptions: opts, APIKey: apiKey, Endpoint: pixabayEndpoint}
}

func (p *Pixabay) Name() string    { return pixabayName }
func (p *Pixabay) Available() bool { return p.APIKey != "" }

type pixabayReply struct {
	Hits []struct {
		PageURL       string `json:"pageURL"`
		Tags          string `json:"tags"`
		PreviewURL    string `json:"previewURL"`
		WebformatURL  string `json:"webformatURL"`
		LargeImageURL string `json:"largeImageURL"`
		ImageWidth    int    `json:"imageWidth"`
		ImageHeight   int    `json:"imageHeight"`
		User          string `json:"user"`
		UserID        int64  `json:"user_id"`
	} `json:"hits"`
}

func (p *Pixabay) Search(ctx context.Context, query string, maxResults int) ([]openimage.ImageRecord, error) {
	limit := capResults(maxResults, pixabayLimit)
	// The API rejects per_page below 3; trim locally instead.
	params := url.Values{
		"key":        {p.APIKey},
		"q":          {query},
		"image_type": {"photo"},
		"per_page":   {strconv.Itoa(max(limit, 3))},
		"safesearch": {"true"},
	}

	var reply pixabayReply
	if err := p.getJSON(ctx, pixabayName, p.Endpoint, params, nil, &reply); err != nil {
		return nil, err
	}

	out := make([]openimage.ImageRecord, 0, min(len(reply.Hits), limit))
	for _, h := range reply.Hits {
		img := cmp.Or(h.LargeImageURL, h.WebformatURL)
		rec := openimage.ImageRecord{
			ImageURL:     img,
			ThumbnailURL: h.PreviewURL,
			Source:       pixabayName,
			LicenseType:  openimage.LicensePixabay,
			LicenseURL:   pixabayLicense,
			Title:        h.Tags,
			Description:  h.Tags,
			Author:       h.User,
			Width:        h.ImageWidth,
			Height:       h.ImageHeight,
			PageURL:      h.PageURL,
			DownloadURL:  img,
		}
		if h.User != "" {
			rec.AuthorURL = fmt.Sprintf("https://pixabay.com/users/%s-%d/", h.User, h.UserID)
		}
		if !rec.Valid() {
			continue
		}
		out = append(out, rec)
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}
