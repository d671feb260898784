package openimage

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// Finder runs searches across the configured sources. It is safe for
// concurrent use; the classifier rate limiter is shared by all searches.
type Finder struct {
	cfg        Config
	configured int
	sources    []Source
	face       *FaceFilter
	gender     *GenderPipeline
	dl         *Downloader
	flight     singleflight.Group
}

// New builds a Finder. Sources that report themselves unavailable are
// dropped here and never queried.
func New(cfg Config) *Finder {
	cfg.defaults()

	f := &Finder{
		cfg:        cfg,
		configured: len(cfg.Sources),
		face:       NewFaceFilter(&cfg),
		gender:     NewGenderPipeline(&cfg),
		dl:         cfg.NewDownloader(),
	}
	for _, s := range cfg.Sources {
		if s == nil || !s.Available() {
			if s != nil {
				slog.Info("openimage: source unavailable, skipping", "source", s.Name())
			}
			continue
		}
		f.sources = append(f.sources, s)
	}
	return f
}

// SearchResult is a ranked result list plus how it was produced.
type SearchResult struct {
	SearchID            string
	Query               string
	EntityType          EntityType
	Images              []ImageRecord
	Sources             []SourceEvent
	FaceFilterApplied   bool
	GenderFilterApplied bool
	ExpectedGender      Gender
}

// FindImages returns at most maxResults images for query, ranked by quality
// score. Source, cache and classifier failures never fail the search; only
// an empty query, an unknown entity type or maxResults < 1 return an error.
func (f *Finder) FindImages(ctx context.Context, query string, entityType EntityType, maxResults int, requireFace bool) ([]ImageRecord, error) {
	res, err := f.FindImagesDetailed(ctx, query, entityType, maxResults, requireFace)
	if err != nil {
		return nil, err
	}
	return res.Images, nil
}

// FindImagesDetailed is like FindImages but also reports per-source outcomes
// and which filters ran.
func (f *Finder) FindImagesDetailed(ctx context.Context, query string, entityType EntityType, maxResults int, requireFace bool) (*SearchResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyQuery
	}
	entity, ok := ParseEntityType(string(entityType))
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidEntityType, entityType)
	}
	if maxResults < 1 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidMaxResults, maxResults)
	}

	start := time.Now()
	res := &SearchResult{SearchID: uuid.NewString(), Query: query, EntityType: entity}
	log := slog.With("search_id", res.SearchID)

	ctx, cancel := context.WithTimeout(ctx, f.cfg.SearchTimeout)
	defer cancel()

	records, events := f.gather(ctx, query, entity)
	res.Sources = events
	log.Debug("openimage: merged source results", "query", query, "records", len(records))

	before := len(records)
	records = filterRelevant(records, QueryTerms(f.cfg.Tokenizer, query))
	f.dropped("relevance", before-len(records))

	if entity == EntityPerson && requireFace && f.face.Available() {
		res.FaceFilterApplied = true
		before = len(records)
		records = f.applyFaceFilter(ctx, records)
		f.dropped("face", before-len(records))
	}

	if entity == EntityPerson && f.gender.Available() {
		res.ExpectedGender = f.gender.ExpectedGender(ctx, query)
		if res.ExpectedGender.Known() {
			res.GenderFilterApplied = true
			before = len(records)
			records = f.applyGenderFilter(ctx, records, res.ExpectedGender)
			f.dropped("gender", before-len(records))
		}
	}

	if f.cfg.Dedup && len(records) > 1 {
		before = len(records)
		records = dedupRecords(ctx, f.dl, records, f.cfg.ClassifyConcurrency)
		f.dropped("dedup", before-len(records))
	}

	res.Images = scoreAndRank(records, entity, f.cfg.MinImageWidth, f.cfg.MinImageHeight, maxResults)

	log.Info("openimage: search complete",
		"query", query,
		"entity_type", entity,
		"results", len(res.Images),
		"face_filter", res.FaceFilterApplied,
		"gender_filter", res.GenderFilterApplied,
		"duration", time.Since(start))
	if f.cfg.OnSearch != nil {
		f.cfg.OnSearch(SearchEvent{SearchID: res.SearchID, EntityType: entity, Results: len(res.Images), Duration: time.Since(start)})
	}
	return res, nil
}

// gather queries every source concurrently and merges the results in source
// order. A failing source contributes nothing.
func (f *Finder) gather(ctx context.Context, query string, entity EntityType) ([]ImageRecord, []SourceEvent) {
	perSource := make([][]ImageRecord, len(f.sources))
	events := make([]SourceEvent, len(f.sources))

	var g errgroup.Group
	g.SetLimit(max(len(f.sources), 1))
	for i, src := range f.sources {
		g.Go(func() error {
			start := time.Now()
			ev := SourceEvent{Source: src.Name()}
			defer func() {
				if r := recover(); r != nil {
					f.cfg.panicked("sourceSearch", r)
					ev.Err = fmt.Errorf("source %s panicked: %v", src.Name(), r)
					perSource[i] = nil
				}
				ev.Results = len(perSource[i])
				ev.Duration = time.Since(start)
				events[i] = ev
				if f.cfg.OnSourceResult != nil {
					f.cfg.OnSourceResult(ev)
				}
			}()

			perSource[i], ev.Cached, ev.Err = f.fetchSource(ctx, src, query, entity)
			if ev.Err != nil {
				slog.Warn("openimage: source search failed", "source", src.Name(), "error", ev.Err)
			}
			return nil
		})
	}
	_ = g.Wait() // tasks never return errors

	var merged []ImageRecord
	for _, recs := range perSource {
		merged = append(merged, recs...)
	}
	return merged, events
}

// fetchSource returns one source's records, from the cache when possible.
// Concurrent identical fetches share a single upstream call. Only non-empty
// successful results are cached.
func (f *Finder) fetchSource(ctx context.Context, src Source, query string, entity EntityType) ([]ImageRecord, bool, error) {
	cache := f.cfg.Cache
	if cache != nil {
		if recs, ok := cache.Get(ctx, query, entity, src.Name()); ok {
			return recs, true, nil
		}
	}

	key := CacheKey(query, entity, src.Name())
	ch := f.flight.DoChan(key, func() (_ any, err error) {
		// Recover here so a panic never reaches other callers sharing this flight.
		defer func() {
			if r := recover(); r != nil {
				f.cfg.panicked("sourceSearch", r)
				err = fmt.Errorf("source %s panicked: %v", src.Name(), r)
			}
		}()
		// The flight outlives any single caller's deadline or cancellation.
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), f.cfg.SearchTimeout)
		defer cancel()
		recs, err := src.Search(fctx, query, f.cfg.MaxResultsPerSource)
		if err != nil {
			return nil, err
		}
		recs = sanitize(recs, f.cfg.MaxResultsPerSource)
		if len(recs) > 0 && cache != nil {
			cache.Set(fctx, query, entity, src.Name(), recs)
		}
		return recs, nil
	})

	select {
	case <-ctx.Done():
		return nil, false, ctx.Err()
	case r := <-ch:
		if r.Err != nil {
			return nil, false, r.Err
		}
		recs, _ := r.Val.([]ImageRecord)
		return append([]ImageRecord(nil), recs...), false, nil
	}
}

// sanitize drops records without required URLs and enforces the per-source cap.
func sanitize(recs []ImageRecord, limit int) []ImageRecord {
	out := make([]ImageRecord, 0, min(len(recs), limit))
	for _, r := range recs {
		if len(out) == limit {
			break
		}
		if r.Valid() {
			out = append(out, r)
		}
	}
	return out
}

func (f *Finder) applyFaceFilter(ctx context.Context, records []ImageRecord) []ImageRecord {
	return f.filterEach(ctx, records, false, func(ctx context.Context, rec *ImageRecord) bool {
		r, err := f.face.Detect(ctx, rec.classifyRef())
		if err != nil {
			return false
		}
		hasFace := r.HasFace
		rec.HasFace = &hasFace
		return hasFace
	})
}

func (f *Finder) applyGenderFilter(ctx context.Context, records []ImageRecord, expected Gender) []ImageRecord {
	return f.filterEach(ctx, records, true, func(ctx context.Context, rec *ImageRecord) bool {
		g := f.gender.ClassifyImage(ctx, rec.classifyRef())
		return !g.Known() || g == expected
	})
}

// filterEach runs keep on every record with bounded concurrency and returns
// the kept records in input order. onPanic is the decision used when keep
// panics.
func (f *Finder) filterEach(ctx context.Context, records []ImageRecord, onPanic bool,
	keep func(context.Context, *ImageRecord) bool,
) []ImageRecord {
	decisions := make([]bool, len(records))
	sem := make(chan struct{}, f.cfg.ClassifyConcurrency)

	var wg sync.WaitGroup
	for i := range records {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			defer func() {
				if r := recover(); r != nil {
					f.cfg.panicked("imageFilter", r)
					decisions[i] = onPanic
				}
			}()
			decisions[i] = keep(ctx, &records[i])
		}(i)
	}
	wg.Wait()

	out := records[:0:0]
	for i, r := range records {
		if decisions[i] {
			out = append(out, r)
		}
	}
	return out
}

func (f *Finder) dropped(stage string, n int) {
	if n <= 0 {
		return
	}
	slog.Debug("openimage: records dropped", "stage", stage, "count", n)
	if f.cfg.OnFilter != nil {
		f.cfg.OnFilter(FilterEvent{Stage: stage, Dropped: n})
	}
}
