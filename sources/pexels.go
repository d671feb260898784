package sources

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/anatolykoptev/go-openimage"
)

const (
	pexelsName     = "Pexels"
	pexelsEndpoint = "https://api.pexels.com/v1/search"
	pexelsLimit    = 80
	pexelsLicense  = "https://www.pexels.com/license/"
)

// Pexels searches the Pexels photo API.
type Pexels struct {
	HTTPOptions
	APIKey   string
	Endpoint string
}

// NewPexels returns a Pexels adapter; it is unavailable without a key.
func NewPexels(apiKey string, opts HTTPOptions) *Pexels {
	return &Pexels{HTTPOptions: opts, APIKey: apiKey, Endpoint: pexelsEndpoint}
}

func (p *Pexels) Name() string    { return pexelsName }
func (p *Pexels) Available() bool { return p.APIKey != "" }

type pexelsReply struct {
	Photos []struct {
		URL             string `json:"url"`
		Alt             string `json:"alt"`
		Width           int    `json:"width"`
		Height          int    `json:"height"`
		Photographer    string `json:"photographer"`
		PhotographerURL string `json:"photographer_url"`
		Src             struct {
			Original string `json:"original"`
			Large    string `json:"large"`
			Small    string `json:"small"`
		} `json:"src"`
	} `json:"photos"`
}

func (p *Pexels) Search(ctx context.Context, query string, maxResults int) ([]openimage.ImageRecord, error) {
	limit := capResults(maxResults, pexelsLimit)
	params := url.Values{
		"query":       {query},
		"per_page":    {strconv.Itoa(limit)},
		"orientation": {"landscape"},
	}
	header := http.Header{"Authorization": {p.APIKey}}

	var reply pexelsReply
	if err := p.getJSON(ctx, pexelsName, p.Endpoint, params, header, &reply); err != nil {
		return nil, err
	}

	out := make([]openimage.ImageRecord, 0, min(len(reply.Photos), limit))
	for _, ph := range reply.Photos {
		rec := openimage.ImageRecord{
			ImageURL:     ph.Src.Large,
			ThumbnailURL: ph.Src.Small,
			Source:       pexelsName,
			LicenseType:  openimage.LicensePexels,
			LicenseURL:   pexelsLicense,
			Title:        ph.Alt,
			Description:  ph.Alt,
			Author:       ph.Photographer,
			AuthorURL:    ph.PhotographerURL,
			Width:        ph.Width,
			Height:       ph.Height,
			PageURL:      ph.URL,
			DownloadURL:  ph.Src.Original,
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
