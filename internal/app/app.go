// Package app assembles an openimage.Finder and its collaborators from
// loaded settings.
package app

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/anatolykoptev/go-openimage"
	"github.com/anatolykoptev/go-openimage/cache"
	"github.com/anatolykoptev/go-openimage/facedetect"
	"github.com/anatolykoptev/go-openimage/internal/config"
	"github.com/anatolykoptev/go-openimage/internal/metrics"
	"github.com/anatolykoptev/go-openimage/llm"
	"github.com/anatolykoptev/go-openimage/sources"
	"github.com/anatolykoptev/go-openimage/tokenize"
)

// App owns the Finder and everything that must be closed with it.
type App struct {
	Settings *config.Settings
	Finder   *openimage.Finder
	Cache    openimage.ResultCache // nil when caching is disabled
	Metrics  *metrics.SearchMetrics
	Registry *prometheus.Registry

	closers []func() error
}

type options struct {
	client   *http.Client
	registry *prometheus.Registry
}

// Option customizes New.
type Option func(*options)

// WithHTTPClient sets the client used by every source, downloader and the
// LLM client.
func WithHTTPClient(c *http.Client) Option { return func(o *options) { o.client = c } }

// WithRegistry registers metrics on r instead of a fresh registry.
func WithRegistry(r *prometheus.Registry) Option { return func(o *options) { o.registry = r } }

// New builds the application. Optional collaborators that fail to load
// (face cascade, tokenizer dictionary) are logged and left out; a cache
// that cannot be opened is an error.
func New(s *config.Settings, opts ...Option) (*App, error) {
	o := options{client: http.DefaultClient}
	for _, opt := range opts {
		opt(&o)
	}
	if o.registry == nil {
		o.registry = prometheus.NewRegistry()
	}

	a := &App{Settings: s, Registry: o.registry}

	m, err := metrics.NewSearchMetrics(o.registry)
	if err != nil {
		return nil, err
	}
	a.Metrics = m

	cfg := openimage.Config{
		HTTPClient:            o.client,
		UserAgent:             s.Search.UserAgent,
		MaxResultsPerSource:   s.Search.MaxResultsPerSource,
		MinImageWidth:         s.Search.MinImageWidth,
		MinImageHeight:        s.Search.MinImageHeight,
		SearchTimeout:         s.Search.Timeout,
		Dedup:                 s.Search.Dedup,
		EnableFaceDetection:   s.Face.Enabled,
		MinFaceConfidence:     s.Face.MinConfidence,
		MinFaceFraction:       s.Face.MinFraction,
		EnableGenderFiltering: s.LLM.Enabled,
		ClassifyTimeout:       s.LLM.Timeout,
		ClassifierMinDelay:    s.LLM.MinDelay,
		ClassifyConcurrency:   s.LLM.Concurrency,
	}
	dl := cfg.NewDownloader()

	if err := a.openCache(&cfg); err != nil {
		return nil, err
	}
	cfg.Sources = buildSources(s, dl, httpOptions(&cfg))
	cfg.FaceDetector = loadFaceDetector(s.Face)
	if g := buildGender(s.LLM, o.client, dl); g != nil {
		cfg.GenderInferrer = g
		cfg.GenderClassifier = g
	}
	cfg.Tokenizer = buildTokenizer(s.Tokens)
	m.Attach(&cfg)

	a.Finder = openimage.New(cfg)
	return a, nil
}

// Close releases the cache.
func (a *App) Close() error {
	var errs []error
	for _, c := range a.closers {
		errs = append(errs, c())
	}
	a.closers = nil
	return errors.Join(errs...)
}

func (a *App) openCache(cfg *openimage.Config) error {
	cs := a.Settings.Cache
	if !cs.Enabled {
		return nil
	}
	switch cs.Backend {
	case "memory":
		cfg.Cache = cache.NewMemory(cache.WithTTL(cs.TTL))
	default:
		store, err := cache.OpenSQLite(cs.Path, cache.WithTTL(cs.TTL))
		if err != nil {
			return fmt.Errorf("open cache: %w", err)
		}
		a.closers = append(a.closers, store.Close)
		cfg.Cache = store
	}
	a.Cache = cfg.Cache
	return nil
}

func httpOptions(cfg *openimage.Config) sources.HTTPOptions {
	return sources.HTTPOptions{Client: cfg.HTTPClient, UserAgent: cfg.UserAgent}
}

// buildSources returns every configured source in display order. Sources
// without credentials stay in the list; the Finder skips them.
func buildSources(s *config.Settings, dl *openimage.Downloader, ho sources.HTTPOptions) []openimage.Source {
	var out []openimage.Source
	if s.Sources.Wikimedia {
		out = append(out, sources.NewWikimedia(ho))
	}
	out = append(out,
		sources.NewUnsplash(s.Sources.Unsplash.APIKey, ho),
		sources.NewPexels(s.Sources.Pexels.APIKey, ho),
		sources.NewPixabay(s.Sources.Pixabay.APIKey, ho),
	)

	if len(s.Sources.Sites) == 0 {
		return out
	}
	backend := buildBackend(s.Sources.Backend, ho)
	siteOpts := []sources.SiteOption{
		sources.WithScraper(buildScraper(s.Sources.Scraper, ho)),
		sources.WithDownloader(dl),
		sources.WithProbe(true),
	}
	for _, name := range s.Sources.Sites {
		p, ok := sources.Presets[strings.ToLower(name)]
		if !ok {
			slog.Warn("openimage: unknown site preset", "site", name)
			continue
		}
		out = append(out, sources.NewSite(p, backend, siteOpts...))
	}
	return out
}

// buildBackend returns nil when the selected backend lacks its credential
// or URL, which leaves the site sources unavailable.
func buildBackend(b config.BackendConf, ho sources.HTTPOptions) sources.SearchBackend {
	switch b.Kind {
	case "searxng":
		if b.SearXNGURL == "" {
			return nil
		}
		return sources.NewSearXNGSearch(b.SearXNGURL, ho)
	default:
		if b.IgniraKey == "" {
			return nil
		}
		return sources.NewIgniraSearch(b.IgniraKey, ho)
	}
}

func buildScraper(sc config.ScraperConf, ho sources.HTTPOptions) sources.PageScraper {
	if sc.Kind == "crawl" && sc.CrawlKey != "" {
		return sources.NewCrawlScraper(sc.CrawlKey, ho)
	}
	if sc.Kind == "crawl" {
		slog.Info("openimage: no crawl API key, fetching pages directly")
	}
	return sources.NewDirectScraper(ho)
}

func loadFaceDetector(fs config.FaceSettings) openimage.FaceDetector {
	if !fs.Enabled || fs.CascadePath == "" {
		return nil
	}
	p, err := facedetect.LoadPigo(fs.CascadePath)
	if err != nil {
		slog.Warn("openimage: face detector unavailable", "path", fs.CascadePath, "error", err)
		return nil
	}
	return p
}

func buildGender(ls config.LLMSettings, client *http.Client, dl *openimage.Downloader) *openimage.LLMGender {
	if !ls.Enabled || ls.APIKey == "" {
		return nil
	}
	c := llm.New(llm.Config{
		Endpoint:   ls.Endpoint,
		APIKey:     ls.APIKey,
		Model:      ls.Model,
		PipelineID: ls.PipelineID,
		Timeout:    ls.Timeout,
		HTTPClient: client,
	})
	return &openimage.LLMGender{Classifier: c, Downloader: dl}
}

func buildTokenizer(ts config.TokenSettings) openimage.Tokenizer {
	if !ts.Japanese {
		return openimage.WhitespaceTokenizer{}
	}
	j, err := tokenize.NewJapanese()
	if err != nil {
		slog.Warn("openimage: japanese tokenizer unavailable", "error", err)
		return openimage.WhitespaceTokenizer{}
	}
	return j
}
