// Package config loads application settings for the openimage CLI and HTTP
// server: built-in defaults, an optional YAML file and environment overrides.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/anatolykoptev/go-openimage/sources"
)

// EnvPrefix is prepended to environment overrides without a legacy name,
// e.g. OPENIMAGE_CACHE_PATH for cache.path.
const EnvPrefix = "OPENIMAGE"

// Settings is the full application configuration.
type Settings struct {
	Log     LogSettings    `mapstructure:"log"`
	Search  SearchSettings `mapstructure:"search"`
	Cache   CacheSettings  `mapstructure:"cache"`
	Sources SourceSettings `mapstructure:"sources"`
	Face    FaceSettings   `mapstructure:"face"`
	LLM     LLMSettings    `mapstructure:"llm"`
	Server  ServerSettings `mapstructure:"server"`
	Tokens  TokenSettings  `mapstructure:"tokenizer"`
}

type LogSettings struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // text or json
}

// SlogLevel maps Level onto slog; unknown values mean info.
func (l LogSettings) SlogLevel() slog.Level {
	switch strings.ToLower(l.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

type SearchSettings struct {
	MaxResultsPerSource int           `mapstructure:"maxresultspersource"`
	MinImageWidth       int           `mapstructure:"minimagewidth"`
	MinImageHeight      int           `mapstructure:"minimageheight"`
	Timeout             time.Duration `mapstructure:"timeout"`
	Dedup               bool          `mapstructure:"dedup"`
	UserAgent           string        `mapstructure:"useragent"`
}

type CacheSettings struct {
	Enabled bool          `mapstructure:"enabled"`
	Backend string        `mapstructure:"backend"` // sqlite or memory
	Path    string        `mapstructure:"path"`
	TTL     time.Duration `mapstructure:"ttl"`
}

type SourceSettings struct {
	Wikimedia bool        `mapstructure:"wikimedia"`
	Unsplash  StockSource `mapstructure:"unsplash"`
	Pexels    StockSource `mapstructure:"pexels"`
	Pixabay   StockSource `mapstructure:"pixabay"`
	Sites     []string    `mapstructure:"sites"`
	Backend   BackendConf `mapstructure:"backend"`
	Scraper   ScraperConf `mapstructure:"scraper"`
}

type StockSource struct {
	APIKey string `mapstructure:"apikey"`
}

// BackendConf selects the general web search used by site adapters.
type BackendConf struct {
	Kind       string `mapstructure:"kind"` // ignira or searxng
	IgniraKey  string `mapstructure:"ignirakey"`
	SearXNGURL string `mapstructure:"searxngurl"`
}

// ScraperConf selects how site adapters fetch pages.
type ScraperConf struct {
	Kind     string `mapstructure:"kind"` // crawl or direct
	CrawlKey string `mapstructure:"crawlkey"`
}

type FaceSettings struct {
	Enabled       bool    `mapstructure:"enabled"`
	CascadePath   string  `mapstructure:"cascadepath"`
	MinConfidence float64 `mapstructure:"minconfidence"`
	MinFraction   float64 `mapstructure:"minfraction"`
}

type LLMSettings struct {
	Enabled     bool          `mapstructure:"enabled"`
	Endpoint    string        `mapstructure:"endpoint"`
	APIKey      string        `mapstructure:"apikey"`
	Model       string        `mapstructure:"model"`
	PipelineID  string        `mapstructure:"pipelineid"`
	Timeout     time.Duration `mapstructure:"timeout"`
	MinDelay    time.Duration `mapstructure:"mindelay"`
	Concurrency int           `mapstructure:"concurrency"`
}

type ServerSettings struct {
	Listen string `mapstructure:"listen"`
}

type TokenSettings struct {
	Japanese bool `mapstructure:"japanese"`
}

type envBinding struct {
	ConfigKey string
	EnvVar    string
}

// legacyEnv keeps the provider key variable names users already export.
var legacyEnv = []envBinding{
	{"sources.unsplash.apikey", "UNSPLASH_ACCESS_KEY"},
	{"sources.pexels.apikey", "PEXELS_API_KEY"},
	{"sources.pixabay.apikey", "PIXABAY_API_KEY"},
	{"sources.backend.ignirakey", "IGNIRA_API_KEY"},
	{"sources.scraper.crawlkey", "CRAWL_NINJA_API_KEY"},
	{"llm.apikey", "ZEUS_LLM_API_KEY"},
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetDefault("search.maxresultspersource", 10)
	v.SetDefault("search.minimagewidth", 800)
	v.SetDefault("search.minimageheight", 600)
	v.SetDefault("search.timeout", 3*time.Minute)
	v.SetDefault("search.dedup", false)
	v.SetDefault("search.useragent", "")

	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.backend", "sqlite")
	v.SetDefault("cache.path", "data/image_cache.db")
	v.SetDefault("cache.ttl", 30*24*time.Hour)

	v.SetDefault("sources.wikimedia", true)
	v.SetDefault("sources.unsplash.apikey", "")
	v.SetDefault("sources.pexels.apikey", "")
	v.SetDefault("sources.pixabay.apikey", "")
	v.SetDefault("sources.sites", []string{"infogouv"})
	v.SetDefault("sources.backend.kind", "ignira")
	v.SetDefault("sources.backend.ignirakey", "")
	v.SetDefault("sources.backend.searxngurl", "")
	v.SetDefault("sources.scraper.kind", "crawl")
	v.SetDefault("sources.scraper.crawlkey", "")

	v.SetDefault("face.enabled", true)
	v.SetDefault("face.cascadepath", "")
	v.SetDefault("face.minconfidence", 0.5)
	v.SetDefault("face.minfraction", 0.05)

	v.SetDefault("llm.enabled", true)
	v.SetDefault("llm.endpoint", "")
	v.SetDefault("llm.apikey", "")
	v.SetDefault("llm.model", "")
	v.SetDefault("llm.pipelineid", "")
	v.SetDefault("llm.timeout", 30*time.Second)
	v.SetDefault("llm.mindelay", 500*time.Millisecond)
	v.SetDefault("llm.concurrency", 3)

	v.SetDefault("server.listen", ":8000")

	v.SetDefault("tokenizer.japanese", false)
}

// Load reads settings. An empty path skips the file and uses defaults plus
// the environment.
func Load(path string) (*Settings, error) {
	return LoadWith(viper.New(), path)
}

// LoadWith is Load on a caller-supplied viper instance, so flags bound with
// BindPFlag take precedence over the file and the environment.
func LoadWith(v *viper.Viper, path string) (*Settings, error) {
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, b := range legacyEnv {
		// The prefixed name stays valid alongside the legacy one.
		envName := EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(b.ConfigKey, ".", "_"))
		if err := v.BindEnv(b.ConfigKey, envName, b.EnvVar); err != nil {
			return nil, fmt.Errorf("bind %s: %w", b.EnvVar, err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	s := &Settings{}
	if err := v.Unmarshal(s); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Validation errors.
var (
	ErrUnknownSite    = errors.New("config: unknown site preset")
	ErrInvalidSetting = errors.New("config: invalid setting")
)

// Validate checks enumerated settings.
func (s *Settings) Validate() error {
	var errs []error
	check := func(name, value string, allowed ...string) {
		if !slices.Contains(allowed, value) {
			errs = append(errs, fmt.Errorf("%w: %s=%q (want one of %s)",
				ErrInvalidSetting, name, value, strings.Join(allowed, ", ")))
		}
	}
	check("log.level", strings.ToLower(s.Log.Level), "debug", "info", "warn", "error")
	check("log.format", s.Log.Format, "text", "json")
	check("cache.backend", s.Cache.Backend, "sqlite", "memory")
	check("sources.backend.kind", s.Sources.Backend.Kind, "ignira", "searxng")
	check("sources.scraper.kind", s.Sources.Scraper.Kind, "crawl", "direct")

	for _, name := range s.Sources.Sites {
		if _, ok := sources.Presets[strings.ToLower(name)]; !ok {
			errs = append(errs, fmt.Errorf("%w: %q", ErrUnknownSite, name))
		}
	}
	if s.Cache.TTL <= 0 {
		errs = append(errs, fmt.Errorf("%w: cache.ttl must be positive", ErrInvalidSetting))
	}
	return errors.Join(errs...)
}
