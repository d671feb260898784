// Package openimage finds commercially usable images for a text query across
// licensed image sources, filters them by relevance, face presence and
// expected gender, and ranks them by a quality score.
package openimage

import (
	"context"
	"image"
	"net/http"
	"time"
)

// Defaults applied by Config.defaults.
const (
	DefaultMaxResultsPerSource = 10
	DefaultMinImageWidth       = 800
	DefaultMinImageHeight      = 600
	DefaultMinFaceConfidence   = 0.5
	DefaultMinFaceFraction     = 0.05
	DefaultClassifyTimeout     = 30 * time.Second
	DefaultClassifierMinDelay  = 500 * time.Millisecond
	DefaultClassifyConcurrency = 3
	DefaultSearchTimeout       = 3 * time.Minute
	DefaultUserAgent           = "Mozilla/5.0 (compatible; go-openimage/1.0)"
)

// Source is one upstream image provider.
//
// Search returns at most maxResults records in provider order. A non-nil
// error means the provider failed; the caller treats it as an empty
// contribution. Name must be stable, it is part of the cache key.
type Source interface {
	Name() string
	Available() bool
	Search(ctx context.Context, query string, maxResults int) ([]ImageRecord, error)
}

// ResultCache stores per-source search results and per-image classification
// outcomes. Implementations must be safe for concurrent use.
type ResultCache interface {
	Get(ctx context.Context, query string, entityType EntityType, source string) ([]ImageRecord, bool)
	Set(ctx context.Context, query string, entityType EntityType, source string, results []ImageRecord)

	GetFace(ctx context.Context, imageURL string) (FaceResult, bool)
	SetFace(ctx context.Context, imageURL string, r FaceResult)

	GetGender(ctx context.Context, imageURL string) (Gender, bool)
	SetGender(ctx context.Context, imageURL string, g Gender)

	ClearExpired(ctx context.Context) (int, error)
	ClearAll(ctx context.Context) (int, error)
	Stats(ctx context.Context) (CacheStats, error)
}

// CacheSearcher is implemented by caches that can list entries by query pattern.
type CacheSearcher interface {
	Search(ctx context.Context, pattern string) ([]CacheEntryInfo, error)
}

// ImageInput represents an image for multimodal LLM classification.
type ImageInput struct {
	URL      string // data: URI or HTTP URL
	MIMEType string // e.g. "image/jpeg"
}

// Classifier abstracts multimodal LLM calls.
type Classifier interface {
	Classify(ctx context.Context, prompt string, images []ImageInput) (string, error)
}

// FaceBox is one detected face in pixel coordinates.
type FaceBox struct {
	X, Y          int
	Width, Height int
	Confidence    float64 // 0..1, 0 when the backend has no notion of confidence
}

// FaceDetector locates faces in a decoded image.
type FaceDetector interface {
	DetectFaces(ctx context.Context, img image.Image) ([]FaceBox, error)
}

// GenderInferrer guesses the likely gender of a person from their name.
type GenderInferrer interface {
	InferGender(ctx context.Context, name string) (Gender, error)
}

// GenderClassifier classifies the apparent gender of the person in an image.
type GenderClassifier interface {
	ClassifyGender(ctx context.Context, imageURL string) (Gender, error)
}

// Tokenizer splits a query into words.
type Tokenizer interface {
	Tokenize(text string) []string
}

// Config holds all dependencies injected by the consumer.
type Config struct {
	Sources          []Source
	Cache            ResultCache      // nil = no caching
	FaceDetector     FaceDetector     // nil = face filtering unavailable
	GenderInferrer   GenderInferrer   // nil = gender filtering unavailable
	GenderClassifier GenderClassifier // nil = gender filtering unavailable
	Tokenizer        Tokenizer        // default: whitespace
	HTTPClient       *http.Client     // default: http.DefaultClient
	UserAgent        string

	MaxResultsPerSource   int
	MinImageWidth         int
	MinImageHeight        int
	EnableFaceDetection   bool
	EnableGenderFiltering bool
	MinFaceConfidence     float64
	MinFaceFraction       float64
	ClassifyTimeout       time.Duration
	ClassifierMinDelay    time.Duration
	ClassifyConcurrency   int
	SearchTimeout         time.Duration

	// Dedup drops perceptual near-duplicates across sources before scoring.
	Dedup bool

	// Optional callbacks for metrics/logging.
	OnSearch       func(SearchEvent)
	OnSourceResult func(SourceEvent)
	OnFilter       func(FilterEvent)
	OnPanic        func(tag string, r any)
}

// SearchEvent is reported once per completed search.
type SearchEvent struct {
	SearchID   string
	EntityType EntityType
	Results    int
	Duration   time.Duration
}

// SourceEvent is reported once per source per search.
type SourceEvent struct {
	Source   string
	Results  int
	Cached   bool
	Err      error
	Duration time.Duration
}

// FilterEvent is reported when a pipeline stage drops records.
type FilterEvent struct {
	Stage   string // "relevance", "face", "gender", "dedup"
	Dropped int
}

// defaults fills zero-value fields with sensible defaults.
func (c *Config) defaults() {
	if c.MaxResultsPerSource <= 0 {
		c.MaxResultsPerSource = DefaultMaxResultsPerSource
	}
	if c.MinImageWidth <= 0 {
		c.MinImageWidth = DefaultMinImageWidth
	}
	if c.MinImageHeight <= 0 {
		c.MinImageHeight = DefaultMinImageHeight
	}
	if c.MinFaceConfidence <= 0 {
		c.MinFaceConfidence = DefaultMinFaceConfidence
	}
	if c.MinFaceFraction <= 0 {
		c.MinFaceFraction = DefaultMinFaceFraction
	}
	if c.ClassifyTimeout <= 0 {
		c.ClassifyTimeout = DefaultClassifyTimeout
	}
	if c.ClassifierMinDelay <= 0 {
		c.ClassifierMinDelay = DefaultClassifierMinDelay
	}
	if c.ClassifyConcurrency <= 0 {
		c.ClassifyConcurrency = DefaultClassifyConcurrency
	}
	if c.SearchTimeout <= 0 {
		c.SearchTimeout = DefaultSearchTimeout
	}
	if c.UserAgent == "" {
		c.UserAgent = DefaultUserAgent
	}
	if c.HTTPClient == nil {
		c.HTTPClient = http.DefaultClient
	}
	if c.Tokenizer == nil {
		c.Tokenizer = WhitespaceTokenizer{}
	}
}

func (c *Config) panicked(tag string, r any) {
	if c.OnPanic != nil {
		c.OnPanic(tag, r)
	}
}
