package openimage

import (
	"context"
	"errors"
	"image"
	"sync"
	"sync/atomic"
)

// fakeSource returns canned records and counts calls.
type fakeSource struct {
	name      string
	available bool
	records   []ImageRecord
	err       error
	panicMsg  string
	calls     atomic.Int32
}

func (s *fakeSource) Name() string    { return s.name }
func (s *fakeSource) Available() bool { return s.available }

func (s *fakeSource) Search(_ context.Context, _ string, maxResults int) ([]ImageRecord, error) {
	s.calls.Add(1)
	if s.panicMsg != "" {
		panic(s.panicMsg)
	}
	if s.err != nil {
		return nil, s.err
	}
	recs := s.records
	if len(recs) > maxResults {
		recs = recs[:maxResults]
	}
	return append([]ImageRecord(nil), recs...), nil
}

// fakeCache is an in-memory ResultCache without expiry.
type fakeCache struct {
	mu      sync.Mutex
	results map[string][]ImageRecord
	faces   map[string]FaceResult
	genders map[string]Gender
	sets    int
}

func newFakeCache() *fakeCache {
	return &fakeCache{
		results: map[string][]ImageRecord{},
		faces:   map[string]FaceResult{},
		genders: map[string]Gender{},
	}
}

func (c *fakeCache) Get(_ context.Context, q string, e EntityType, s string) ([]ImageRecord, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	r, ok := c.results[CacheKey(q, e, s)]
	return append([]ImageRecord(nil), r...), ok
}

func (c *fakeCache) Set(_ context.Context, q string, e EntityType, s string, r []ImageRecord) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sets++
	c.results[CacheKey(q, e, s)] = append([]ImageRecord(nil), r...)
}

func (c *fakeCache) GetFace(_ context.Context, url string) (FaceResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	r, ok := c.faces[url]
	return r, ok
}

func (c *fakeCache) SetFace(_ context.Context, url string, r FaceResult) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.faces[url] = r
}

func (c *fakeCache) GetGender(_ context.Context, url string) (Gender, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	g, ok := c.genders[url]
	return g, ok
}

func (c *fakeCache) SetGender(_ context.Context, url string, g Gender) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.genders[url] = g
}

func (c *fakeCache) ClearExpired(context.Context) (int, error) { return 0, nil }

func (c *fakeCache) ClearAll(context.Context) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := len(c.results)
	c.results = map[string][]ImageRecord{}
	return n, nil
}

func (c *fakeCache) Stats(context.Context) (CacheStats, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return CacheStats{TotalEntries: int64(len(c.results)), ActiveEntries: int64(len(c.results))}, nil
}

// fakeDetector returns fixed boxes or an error.
type fakeDetector struct {
	boxes []FaceBox
	err   error
	calls atomic.Int32
}

func (d *fakeDetector) DetectFaces(_ context.Context, _ image.Image) ([]FaceBox, error) {
	d.calls.Add(1)
	return d.boxes, d.err
}

// fakeGender answers from maps keyed by name or URL.
type fakeGender struct {
	byName map[string]Gender
	byURL  map[string]Gender
	errURL map[string]bool
	calls  atomic.Int32
}

var errFakeClassifier = errors.New("fake classifier failure")

func (g *fakeGender) InferGender(_ context.Context, name string) (Gender, error) {
	return g.byName[name], nil
}

func (g *fakeGender) ClassifyGender(_ context.Context, url string) (Gender, error) {
	g.calls.Add(1)
	if g.errURL[url] {
		return GenderUnknown, errFakeClassifier
	}
	return g.byURL[url], nil
}

// fakeClassifier returns a canned LLM answer and records prompts.
type fakeClassifier struct {
	mu      sync.Mutex
	resp    string
	err     error
	prompts []string
	images  [][]ImageInput
}

func (c *fakeClassifier) Classify(_ context.Context, prompt string, images []ImageInput) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.prompts = append(c.prompts, prompt)
	c.images = append(c.images, images)
	return c.resp, c.err
}
