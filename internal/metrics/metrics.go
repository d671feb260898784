// Package metrics exposes openimage search activity as Prometheus metrics.
package metrics

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/anatolykoptev/go-openimage"
)

// SearchMetrics holds the collectors fed by openimage.Config callbacks.
type SearchMetrics struct {
	Searches       *prometheus.CounterVec
	SearchDuration prometheus.Histogram
	SearchResults  prometheus.Histogram
	SourceResults  *prometheus.CounterVec
	SourceErrors   *prometheus.CounterVec
	SourceDuration *prometheus.HistogramVec
	CacheLookups   *prometheus.CounterVec
	FilterDropped  *prometheus.CounterVec
	Panics         *prometheus.CounterVec
	CacheEntries   prometheus.Gauge
	CacheSizeBytes prometheus.Gauge
	registry       *prometheus.Registry
}

// NewSearchMetrics creates the collectors and registers them with registry.
func NewSearchMetrics(registry *prometheus.Registry) (*SearchMetrics, error) {
	m := &SearchMetrics{registry: registry}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register search metrics: %w", err)
	}
	return m, nil
}

func (m *SearchMetrics) initMetrics() {
	m.Searches = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "openimage_searches_total",
		Help: "Total number of completed searches by entity type.",
	}, []string{"entity_type"})

	m.SearchDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "openimage_search_duration_seconds",
		Help:    "Duration of complete searches in seconds.",
		Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
	})

	m.SearchResults = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "openimage_search_results",
		Help:    "Number of images returned per search.",
		Buckets: []float64{0, 1, 5, 10, 20, 50, 100},
	})

	m.SourceResults = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "openimage_source_results_total",
		Help: "Total number of records contributed by each source.",
	}, []string{"source"})

	m.SourceErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "openimage_source_errors_total",
		Help: "Total number of failed source searches.",
	}, []string{"source"})

	m.SourceDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "openimage_source_duration_seconds",
		Help:    "Duration of per-source searches in seconds.",
		Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
	}, []string{"source"})

	m.CacheLookups = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "openimage_cache_lookups_total",
		Help: "Per-source result lookups by outcome (hit or miss).",
	}, []string{"source", "outcome"})

	m.FilterDropped = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "openimage_filter_dropped_total",
		Help: "Records dropped by each pipeline stage.",
	}, []string{"stage"})

	m.Panics = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "openimage_panics_total",
		Help: "Recovered panics by task tag.",
	}, []string{"tag"})

	m.CacheEntries = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "openimage_cache_active_entries",
		Help: "Unexpired search entries in the result cache.",
	})

	m.CacheSizeBytes = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "openimage_cache_size_bytes",
		Help: "On-disk size of the result cache.",
	})
}

// ObserveSearch records a completed search.
func (m *SearchMetrics) ObserveSearch(ev openimage.SearchEvent) {
	m.Searches.WithLabelValues(string(ev.EntityType)).Inc()
	m.SearchDuration.Observe(ev.Duration.Seconds())
	m.SearchResults.Observe(float64(ev.Results))
}

// ObserveSource records one source's contribution to a search.
func (m *SearchMetrics) ObserveSource(ev openimage.SourceEvent) {
	m.SourceResults.WithLabelValues(ev.Source).Add(float64(ev.Results))
	m.SourceDuration.WithLabelValues(ev.Source).Observe(ev.Duration.Seconds())
	if ev.Err != nil {
		m.SourceErrors.WithLabelValues(ev.Source).Inc()
	}
	outcome := "miss"
	if ev.Cached {
		outcome = "hit"
	}
	m.CacheLookups.WithLabelValues(ev.Source, outcome).Inc()
}

// ObserveFilter records records dropped by a pipeline stage.
func (m *SearchMetrics) ObserveFilter(ev openimage.FilterEvent) {
	m.FilterDropped.WithLabelValues(ev.Stage).Add(float64(ev.Dropped))
}

// ObservePanic records a recovered panic and logs it.
func (m *SearchMetrics) ObservePanic(tag string, r any) {
	slog.Error("openimage: recovered panic", "tag", tag, "panic", r)
	m.Panics.WithLabelValues(tag).Inc()
}

// ObserveCache updates the cache gauges from a stats snapshot.
func (m *SearchMetrics) ObserveCache(stats openimage.CacheStats) {
	m.CacheEntries.Set(float64(stats.ActiveEntries))
	m.CacheSizeBytes.Set(float64(stats.SizeBytes))
}

// Attach installs the metrics callbacks on cfg, chaining any callbacks
// already set.
func (m *SearchMetrics) Attach(cfg *openimage.Config) {
	cfg.OnSearch = chain(cfg.OnSearch, m.ObserveSearch)
	cfg.OnSourceResult = chain(cfg.OnSourceResult, m.ObserveSource)
	cfg.OnFilter = chain(cfg.OnFilter, m.ObserveFilter)
	prevPanic := cfg.OnPanic
	cfg.OnPanic = func(tag string, r any) {
		if prevPanic != nil {
			prevPanic(tag, r)
		}
		m.ObservePanic(tag, r)
	}
}

func chain[E any](prev, next func(E)) func(E) {
	if prev == nil {
		return next
	}
	return func(ev E) {
		prev(ev)
		next(ev)
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *SearchMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		ErrorHandling: promhttp.HTTPErrorOnError,
	})
}

// Collect implements the prometheus.Collector interface.
func (m *SearchMetrics) Collect(ch chan<- prometheus.Metric) {
	m.Searches.Collect(ch)
	ch <- m.SearchDuration
	ch <- m.SearchResults
	m.SourceResults.Collect(ch)
	m.SourceErrors.Collect(ch)
	m.SourceDuration.Collect(ch)
	m.CacheLookups.Collect(ch)
	m.FilterDropped.Collect(ch)
	m.Panics.Collect(ch)
	ch <- m.CacheEntries
	ch <- m.CacheSizeBytes
}

// Describe implements the prometheus.Collector interface.
func (m *SearchMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.Searches.Describe(ch)
	ch <- m.SearchDuration.Desc()
	ch <- m.SearchResults.Desc()
	m.SourceResults.Describe(ch)
	m.SourceErrors.Describe(ch)
	m.SourceDuration.Describe(ch)
	m.CacheLookups.Describe(ch)
	m.FilterDropped.Describe(ch)
	m.Panics.Describe(ch)
	ch <- m.CacheEntries.Desc()
	ch <- m.CacheSizeBytes.Desc()
}
