package sources

import (
	"cmp"
	"context"
	"net/http"
	"net/url"
	"strings"
)

// SearchHit is one result from a web search backend.
type SearchHit struct {
	URL       string // page URL
	Title     string
	Content   string
	Thumbnail string // image URL, may be empty
	Author    string
}

// SearchBackend runs a web image search for the site adapter.
type SearchBackend interface {
	SearchImages(ctx context.Context, query string, limit int) ([]SearchHit, error)
}

const (
	igniraName     = "ignira"
	igniraEndpoint = "https://api.ignira.xyz/api/search"
	searxngName    = "searxng"
)

// IgniraSearch queries the Ignira search API.
type IgniraSearch struct {
	HTTPOptions
	APIKey   string
	Endpoint string
}

// NewIgniraSearch returns an Ignira backend.
func NewIgniraSearch(apiKey string, opts HTTPOptions) *IgniraSearch {
	return &IgniraSearch{HTTPOptions: opts, APIKey: apiKey, Endpoint: igniraEndpoint}
}

type igniraRequest struct {
	Query        string        `json:"query"`
	Limit        int           `json:"limit"`
	NeuralSearch bool          `json:"neuralSearch"`
	NeuralAlpha  float64       `json:"neuralAlpha"`
	Filters      igniraFilters `json:"filters"`
}

type igniraFilters struct {
	Categories string `json:"categories"`
}

type igniraReply struct {
	TotalResults int `json:"totalResults"`
	Results      []struct {
		URL       string `json:"url"`
		Title     string `json:"title"`
		Content   string `json:"content"`
		Thumbnail string `json:"thumbnail"`
		Author    string `json:"author"`
	} `json:"results"`
}

func (s *IgniraSearch) SearchImages(ctx context.Context, query string, limit int) ([]SearchHit, error) {
	payload := igniraRequest{
		Query:       query,
		Limit:       limit,
		NeuralAlpha: 0.7, //nolint:mnd // API default, ignored with neural search off
		Filters:     igniraFilters{Categories: "images"},
	}
	header := http.Header{"Authorization": {"Bearer " + s.APIKey}}

	var reply igniraReply
	if err := s.postJSON(ctx, s.timeout(RequestTimeout), igniraName, s.Endpoint, header, payload, &reply); err != nil {
		return nil, err
	}
	hits := make([]SearchHit, 0, len(reply.Results))
	for _, r := range reply.Results {
		hits = append(hits, SearchHit{
			URL: r.URL, Title: r.Title, Content: r.Content, Thumbnail: r.Thumbnail, Author: r.Author,
		})
	}
	return hits, nil
}

// SearXNGSearch queries a SearXNG instance's JSON API.
type SearXNGSearch struct {
	HTTPOptions
	BaseURL string
}

// NewSearXNGSearch returns a backend for the instance at baseURL.
func NewSearXNGSearch(baseURL string, opts HTTPOptions) *SearXNGSearch {
	return &SearXNGSearch{HTTPOptions: opts, BaseURL: strings.TrimRight(baseURL, "/")}
}

type searxngReply struct {
	Results []struct {
		URL          string `json:"url"`
		Title        string `json:"title"`
		Content      string `json:"content"`
		ImgSrc       string `json:"img_src"`
		ThumbnailSrc string `json:"thumbnail_src"`
		Author       string `json:"author"`
	} `json:"results"`
}

func (s *SearXNGSearch) SearchImages(ctx context.Context, query string, limit int) ([]SearchHit, error) {
	params := url.Values{
		"q":          {query},
		"format":     {"json"},
		"categories": {"images"},
	}
	var reply searxngReply
	if err := s.getJSON(ctx, searxngName, s.BaseURL+"/search", params, nil, &reply); err != nil {
		return nil, err
	}
	hits := make([]SearchHit, 0, min(len(reply.Results), max(limit, 0)))
	for _, r := range reply.Results {
		if len(hits) >= limit {
			break
		}
		hits = append(hits, SearchHit{
			URL:       r.URL,
			Title:     r.Title,
			Content:   r.Content,
			Thumbnail: cmp.Or(r.ImgSrc, r.ThumbnailSrc),
			Author:    r.Author,
		})
	}
	return hits, nil
}
