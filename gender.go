package openimage

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/time/rate"
)

// GenderPipeline filters person images whose apparent gender contradicts the
// gender expected from the query. It fails open: anything indeterminate keeps
// the image.
type GenderPipeline struct {
	inferrer   GenderInferrer
	classifier GenderClassifier
	cache      ResultCache
	limiter    *rate.Limiter
	timeout    time.Duration
	onPanic    func(string, any)
}

// NewGenderPipeline builds the pipeline from cfg. The limiter spaces image
// classifier calls at least ClassifierMinDelay apart for the pipeline's
// lifetime, across concurrent searches. It returns nil when gender filtering
// is disabled or a collaborator is missing.
func NewGenderPipeline(cfg *Config) *GenderPipeline {
	cfg.defaults()
	if !cfg.EnableGenderFiltering || cfg.GenderInferrer == nil || cfg.GenderClassifier == nil {
		return nil
	}
	return &GenderPipeline{
		inferrer:   cfg.GenderInferrer,
		classifier: cfg.GenderClassifier,
		cache:      cfg.Cache,
		limiter:    rate.NewLimiter(rate.Every(cfg.ClassifierMinDelay), 1),
		timeout:    cfg.ClassifyTimeout,
		onPanic:    cfg.OnPanic,
	}
}

// Available reports whether the pipeline can run.
func (p *GenderPipeline) Available() bool {
	return p != nil && p.inferrer != nil && p.classifier != nil
}

// ExpectedGender infers the gender of the person named by query. Any failure
// yields GenderUnknown.
func (p *GenderPipeline) ExpectedGender(ctx context.Context, query string) Gender {
	if !p.Available() {
		return GenderUnknown
	}
	g, oc, err := runIsolated(ctx, p.timeout, "genderInference", p.onPanic,
		func(ctx context.Context) (Gender, error) {
			return p.inferrer.InferGender(ctx, query)
		})
	if oc != outcomeSuccess {
		slog.Debug("openimage: expected gender unavailable", "query", query, "outcome", oc.String(), "error", err)
		return GenderUnknown
	}
	return g
}

// ClassifyImage returns the apparent gender in the image at imageURL. Only
// definite answers are cached; failures, timeouts and indeterminate answers
// return GenderUnknown.
func (p *GenderPipeline) ClassifyImage(ctx context.Context, imageURL string) Gender {
	if !p.Available() {
		return GenderUnknown
	}

	if p.cache != nil {
		if g, ok := p.cache.GetGender(ctx, imageURL); ok {
			return g
		}
	}

	if err := p.limiter.Wait(ctx); err != nil {
		return GenderUnknown
	}

	g, oc, err := runIsolated(ctx, p.timeout, "genderClassification", p.onPanic,
		func(ctx context.Context) (Gender, error) {
			return p.classifier.ClassifyGender(ctx, imageURL)
		})
	if oc != outcomeSuccess {
		slog.Debug("openimage: gender classification failed", "url", imageURL, "outcome", oc.String(), "error", err)
		return GenderUnknown
	}

	if g.Known() && p.cache != nil {
		p.cache.SetGender(ctx, imageURL, g)
	}
	return g
}
