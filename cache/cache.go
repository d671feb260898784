// Package cache provides openimage.ResultCache backends: a durable SQLite
// store built on gorm and an in-process store built on go-cache.
package cache

import (
	"time"

	"github.com/anatolykoptev/go-openimage"
)

// DefaultTTL is how long search results and classification outcomes stay valid.
const DefaultTTL = 30 * 24 * time.Hour

// popularLimit bounds CacheStats.PopularQueries.
const popularLimit = 10

// Option configures a cache backend.
type Option func(*options)

type options struct {
	ttl time.Duration
	now func() time.Time
}

// WithTTL sets the entry lifetime. Non-positive values keep the default.
func WithTTL(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.ttl = d
		}
	}
}

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{ttl: DefaultTTL, now: time.Now}
	for _, fn := range opts {
		fn(&o)
	}
	return o
}

// hitRate is the average number of hits per live entry.
func hitRate(hits, active int64) float64 {
	return float64(hits) / float64(max(active, 1))
}

var (
	_ openimage.ResultCache   = (*SQLStore)(nil)
	_ openimage.CacheSearcher = (*SQLStore)(nil)
	_ openimage.ResultCache   = (*Memory)(nil)
	_ openimage.CacheSearcher = (*Memory)(nil)
)
