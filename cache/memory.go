package cache

import (
	"cmp"
	"context"
	"slices"
	"strings"
	"sync/atomic"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/anatolykoptev/go-openimage"
)

// Memory is an in-process ResultCache. Entries expire against the configured
// clock; nothing survives a restart.
type Memory struct {
	search  *gocache.Cache
	faces   *gocache.Cache
	genders *gocache.Cache
	ttl     time.Duration
	now     func() time.Time
}

type memSearch struct {
	query   string
	entity  openimage.EntityType
	source  string
	results []openimage.ImageRecord
	created time.Time
	expires time.Time
	hits    atomic.Int64
}

type memFace struct {
	result  openimage.FaceResult
	expires time.Time
}

type memGender struct {
	gender  openimage.Gender
	expires time.Time
}

// NewMemory returns an empty in-memory cache.
func NewMemory(opts ...Option) *Memory {
	o := buildOptions(opts)
	// Expiry is checked against o.now, so go-cache never expires on its own.
	return &Memory{
		search:  gocache.New(gocache.NoExpiration, 0),
		faces:   gocache.New(gocache.NoExpiration, 0),
		genders: gocache.New(gocache.NoExpiration, 0),
		ttl:     o.ttl,
		now:     o.now,
	}
}

func (m *Memory) live(expires time.Time) bool { return m.now().Before(expires) }

func (m *Memory) Get(_ context.Context, query string, entityType openimage.EntityType, source string) ([]openimage.ImageRecord, bool) {
	v, ok := m.search.Get(openimage.CacheKey(query, entityType, source))
	if !ok {
		return nil, false
	}
	e := v.(*memSearch)
	if !m.live(e.expires) {
		return nil, false
	}
	e.hits.Add(1)
	return slices.Clone(e.results), true
}

func (m *Memory) Set(_ context.Context, query string, entityType openimage.EntityType, source string, results []openimage.ImageRecord) {
	now := m.now()
	m.search.Set(openimage.CacheKey(query, entityType, source), &memSearch{
		query:   strings.TrimSpace(query),
		entity:  entityType,
		source:  source,
		results: slices.Clone(results),
		created: now,
		expires: now.Add(m.ttl),
	}, gocache.NoExpiration)
}

func (m *Memory) GetFace(_ context.Context, imageURL string) (openimage.FaceResult, bool) {
	v, ok := m.faces.Get(imageURL)
	if !ok {
		return openimage.FaceResult{}, false
	}
	e := v.(memFace)
	if !m.live(e.expires) {
		return openimage.FaceResult{}, false
	}
	return e.result, true
}

func (m *Memory) SetFace(_ context.Context, imageURL string, r openimage.FaceResult) {
	m.faces.Set(imageURL, memFace{result: r, expires: m.now().Add(m.ttl)}, gocache.NoExpiration)
}

func (m *Memory) GetGender(_ context.Context, imageURL string) (openimage.Gender, bool) {
	v, ok := m.genders.Get(imageURL)
	if !ok {
		return openimage.GenderUnknown, false
	}
	e := v.(memGender)
	if !m.live(e.expires) {
		return openimage.GenderUnknown, false
	}
	return e.gender, true
}

func (m *Memory) SetGender(_ context.Context, imageURL string, g openimage.Gender) {
	m.genders.Set(imageURL, memGender{gender: g, expires: m.now().Add(m.ttl)}, gocache.NoExpiration)
}

// ClearExpired drops entries whose expiry has passed.
func (m *Memory) ClearExpired(_ context.Context) (int, error) {
	n := 0
	for k, it := range m.search.Items() {
		if !m.live(it.Object.(*memSearch).expires) {
			m.search.Delete(k)
			n++
		}
	}
	for k, it := range m.faces.Items() {
		if !m.live(it.Object.(memFace).expires) {
			m.faces.Delete(k)
			n++
		}
	}
	for k, it := range m.genders.Items() {
		if !m.live(it.Object.(memGender).expires) {
			m.genders.Delete(k)
			n++
		}
	}
	return n, nil
}

// ClearAll empties the cache.
func (m *Memory) ClearAll(_ context.Context) (int, error) {
	n := m.search.ItemCount() + m.faces.ItemCount() + m.genders.ItemCount()
	m.search.Flush()
	m.faces.Flush()
	m.genders.Flush()
	return n, nil
}

func (m *Memory) Stats(_ context.Context) (openimage.CacheStats, error) {
	st := openimage.CacheStats{TTL: m.ttl}
	var live []*memSearch
	for _, it := range m.search.Items() {
		e := it.Object.(*memSearch)
		st.TotalEntries++
		if m.live(e.expires) {
			live = append(live, e)
			st.TotalHits += e.hits.Load()
		}
	}
	st.ActiveEntries = int64(len(live))
	st.ExpiredEntries = st.TotalEntries - st.ActiveEntries
	st.HitRate = hitRate(st.TotalHits, st.ActiveEntries)

	slices.SortStableFunc(live, func(a, b *memSearch) int {
		return cmp.Compare(b.hits.Load(), a.hits.Load())
	})
	st.PopularQueries = make([]openimage.PopularQuery, 0, min(len(live), popularLimit))
	for _, e := range live[:min(len(live), popularLimit)] {
		st.PopularQueries = append(st.PopularQueries, openimage.PopularQuery{
			Query:      e.query,
			EntityType: e.entity,
			Source:     e.source,
			Hits:       e.hits.Load(),
		})
	}

	for _, it := range m.faces.Items() {
		e := it.Object.(memFace)
		if !m.live(e.expires) {
			continue
		}
		st.FaceEntries++
		if e.result.HasFace {
			st.FacesDetected++
		}
	}
	for _, it := range m.genders.Items() {
		if m.live(it.Object.(memGender).expires) {
			st.GenderEntries++
		}
	}
	return st, nil
}

// Search lists live entries whose query contains pattern, ignoring case.
func (m *Memory) Search(_ context.Context, pattern string) ([]openimage.CacheEntryInfo, error) {
	needle := strings.ToLower(pattern)
	var out []openimage.CacheEntryInfo
	for _, it := range m.search.Items() {
		e := it.Object.(*memSearch)
		if !m.live(e.expires) || !strings.Contains(strings.ToLower(e.query), needle) {
			continue
		}
		out = append(out, openimage.CacheEntryInfo{
			Query:       e.query,
			EntityType:  e.entity,
			Source:      e.source,
			ResultCount: len(e.results),
			CreatedAt:   e.created,
			ExpiresAt:   e.expires,
			HitCount:    e.hits.Load(),
		})
	}
	slices.SortStableFunc(out, func(a, b openimage.CacheEntryInfo) int {
		if c := cmp.Compare(b.HitCount, a.HitCount); c != 0 {
			return c
		}
		return strings.Compare(a.Query, b.Query)
	})
	return out, nil
}
