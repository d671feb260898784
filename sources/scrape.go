package sources

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	readability "github.com/go-shiori/go-readability"
	"github.com/k3a/html2text"
	"github.com/russross/blackfriday/v2"
)

// Page is a scraped detail page.
type Page struct {
	Text string // readable text, used for credit extraction
	HTML string // markup, used for license links and og:image
}

// PageScraper fetches a detail page for the site adapter.
type PageScraper interface {
	Scrape(ctx context.Context, pageURL string) (*Page, error)
}

// ErrScrapeFailed is returned when a scraping service reports failure.
var ErrScrapeFailed = errors.New("scrape reported no content")

const (
	crawlName     = "crawl.ninja"
	crawlEndpoint = "https://api.crawl.ninja/scrape/markdown"
	directName    = "direct"
)

// htmlToText keeps link text rather than link targets.
func htmlToText(s string) string {
	return strings.TrimSpace(html2text.HTML2TextWithOptions(s,
		html2text.WithUnixLineBreaks(), html2text.WithLinksInnerText()))
}

// CrawlScraper renders pages through the crawl.ninja markdown API.
type CrawlScraper struct {
	HTTPOptions
	APIKey   string
	Endpoint string
}

// NewCrawlScraper returns a crawl.ninja scraper.
func NewCrawlScraper(apiKey string, opts HTTPOptions) *CrawlScraper {
	return &CrawlScraper{HTTPOptions: opts, APIKey: apiKey, Endpoint: crawlEndpoint}
}

type crawlReply struct {
	Success bool `json:"success"`
	Data    *struct {
		Markdown string `json:"markdown"`
	} `json:"data"`
}

// Scrape fetches pageURL as markdown and renders it to HTML and text.
func (c *CrawlScraper) Scrape(ctx context.Context, pageURL string) (*Page, error) {
	header := http.Header{"X-API-Key": {c.APIKey}}
	payload := map[string]string{"url": pageURL}

	var reply crawlReply
	if err := c.postJSON(ctx, c.timeout(ScrapeTimeout), crawlName, c.Endpoint, header, payload, &reply); err != nil {
		return nil, err
	}
	if !reply.Success || reply.Data == nil {
		return nil, fmt.Errorf("%s %s: %w", crawlName, pageURL, ErrScrapeFailed)
	}
	rendered := string(blackfriday.Run([]byte(reply.Data.Markdown)))
	return &Page{Text: htmlToText(rendered), HTML: rendered}, nil
}

// DirectScraper fetches pages itself and extracts the main text with readability.
type DirectScraper struct {
	HTTPOptions
}

// NewDirectScraper returns a scraper that needs no third-party service.
func NewDirectScraper(opts HTTPOptions) *DirectScraper {
	return &DirectScraper{HTTPOptions: opts}
}

// Scrape downloads pageURL. Text is the readability article text, or the
// whole page as text when no article can be found.
func (d *DirectScraper) Scrape(ctx context.Context, pageURL string) (*Page, error) {
	u, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("%s: parse %q: %w", directName, pageURL, err)
	}

	ctx, cancel := context.WithTimeout(ctx, d.timeout(ScrapeTimeout))
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: build request: %w", directName, err)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml")
	body, err := d.do(req, directName)
	if err != nil {
		return nil, err
	}

	page := &Page{HTML: string(body)}
	if article, err := readability.FromReader(bytes.NewReader(body), u); err == nil {
		page.Text = strings.TrimSpace(article.TextContent)
	}
	if page.Text == "" {
		page.Text = htmlToText(page.HTML)
	}
	return page, nil
}
