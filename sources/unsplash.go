package sources

import (
	"cmp"
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/anatolykoptev/go-openimage"
)

const (
	unsplashName     = "Unsplash"
	unsplashEndpoint = "https://api.unsplash.com/search/photos"
	unsplashLimit    = 30
	unsplashLicense  = "https://unsplash.com/license"
)

// Unsplash searches the Unsplash photo API.
type Unsplash struct {
	HTTPOptions
	AccessKey string
	Endpoint  string
}

// NewUnsplash returns an Unsplash adapter; it is unavailable without a key.
func NewUnsplash(accessKey string, opts HTTPOptions) *Unsplash {
	return &Unsplash{HTTPOptions: opts, AccessKey: accessKey, Endpoint: unsplashEndpoint}
}

func (u *Unsplash) Name() string    { return unsplashName }
func (u *Unsplash) Available() bool { return u.AccessKey != "" }

type unsplashReply struct {
	Results []struct {
		Description    string `json:"description"`
		AltDescription string `json:"alt_description"`
		Width          int    `json:"width"`
		Height         int    `json:"height"`
		URLs           struct {
			Full    string `json:"full"`
			Regular string `json:"regular"`
			Small   string `json:"small"`
		} `json:"urls"`
		Links struct {
			HTML string `json:"html"`
		} `json:"links"`
		User struct {
			Name  string `json:"name"`
			Links struct {
				HTML string `json:"html"`
			} `json:"links"`
		} `json:"user"`
	} `json:"results"`
}

func (u *Unsplash) Search(ctx context.Context, query string, maxResults int) ([]openimage.ImageRecord, error) {
	limit := capResults(maxResults, unsplashLimit)
	params := url.Values{
		"query":       {query},
		"per_page":    {strconv.Itoa(limit)},
		"orientation": {"landscape"},
	}
	header := http.Header{"Authorization": {"Client-ID " + u.AccessKey}}

	var reply unsplashReply
	if err := u.getJSON(ctx, unsplashName, u.Endpoint, params, header, &reply); err != nil {
		return nil, err
	}

	out := make([]openimage.ImageRecord, 0, min(len(reply.Results), limit))
	for _, p := range reply.Results {
		rec := openimage.ImageRecord{
			ImageURL:     p.URLs.Regular,
			ThumbnailURL: p.URLs.Small,
			Source:       unsplashName,
			LicenseType:  openimage.LicenseUnsplash,
			LicenseURL:   unsplashLicense,
			Title:        cmp.Or(p.Description, p.AltDescription),
			Description:  p.Description,
			Author:       p.User.Name,
			AuthorURL:    p.User.Links.HTML,
			Width:        p.Width,
			Height:       p.Height,
			PageURL:      p.Links.HTML,
			DownloadURL:  p.URLs.Full,
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
