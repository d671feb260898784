package openimage

import (
	"crypto/md5" //nolint:gosec // cache key digest, not a security boundary
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

// EntityType is the kind of thing a query names.
type EntityType string

const (
	EntityPerson EntityType = "person"
	EntityPlace  EntityType = "place"
	EntityThing  EntityType = "thing"
	EntityOther  EntityType = "other"
)

// ParseEntityType normalizes s and reports whether it names a known entity type.
func ParseEntityType(s string) (EntityType, bool) {
	switch e := EntityType(strings.ToLower(strings.TrimSpace(s))); e {
	case EntityPerson, EntityPlace, EntityThing, EntityOther:
		return e, true
	default:
		return "", false
	}
}

// Gender is the outcome of a gender inference. The empty value means indeterminate.
type Gender string

const (
	GenderUnknown Gender = ""
	GenderMale    Gender = "male"
	GenderFemale  Gender = "female"
)

// Known reports whether g is a definite answer.
func (g Gender) Known() bool { return g == GenderMale || g == GenderFemale }

// ImageRecord describes one candidate image and its licensing.
type ImageRecord struct {
	ImageURL     string      `json:"image_url"`
	ThumbnailURL string      `json:"thumbnail_url"`
	Source       string      `json:"source"`
	LicenseType  LicenseKind `json:"license_type"`
	LicenseURL   string      `json:"license_url,omitempty"`
	Title        string      `json:"title,omitempty"`
	Description  string      `json:"description,omitempty"`
	Author       string      `json:"author,omitempty"`
	AuthorURL    string      `json:"author_url,omitempty"`
	Width        int         `json:"width,omitempty"`
	Height       int         `json:"height,omitempty"`
	HasFace      *bool       `json:"has_face,omitempty"`
	QualityScore *float64    `json:"quality_score,omitempty"`
	PageURL      string      `json:"page_url,omitempty"`
	DownloadURL  string      `json:"download_url,omitempty"`
}

// Valid reports whether the record carries both required URLs.
func (r ImageRecord) Valid() bool {
	return r.ImageURL != "" && r.ThumbnailURL != ""
}

// IsCommercialSafe reports whether the record's license allows commercial use.
func (r ImageRecord) IsCommercialSafe() bool {
	return r.LicenseType.IsCommercialSafe()
}

// Score returns the quality score or 0 when the record has not been scored.
func (r ImageRecord) Score() float64 {
	if r.QualityScore == nil {
		return 0
	}
	return *r.QualityScore
}

// classifyRef is the URL handed to face and gender classifiers.
func (r ImageRecord) classifyRef() string {
	if r.ThumbnailURL != "" {
		return r.ThumbnailURL
	}
	return r.ImageURL
}

// FaceResult is the outcome of face detection on one image.
type FaceResult struct {
	HasFace   bool `json:"has_face"`
	FaceCount int  `json:"face_count"`
}

// PopularQuery is one row of the cache's most-hit list.
type PopularQuery struct {
	Query      string     `json:"query" yaml:"query"`
	EntityType EntityType `json:"entity_type" yaml:"entity_type"`
	Source     string     `json:"source" yaml:"source"`
	Hits       int64      `json:"hits" yaml:"hits"`
}

// CacheStats summarizes the result cache.
type CacheStats struct {
	TotalEntries   int64          `json:"total_entries" yaml:"total_entries"`
	ActiveEntries  int64          `json:"active_entries" yaml:"active_entries"`
	ExpiredEntries int64          `json:"expired_entries" yaml:"expired_entries"`
	TotalHits      int64          `json:"total_hits" yaml:"total_hits"`
	HitRate        float64        `json:"hit_rate" yaml:"hit_rate"`
	PopularQueries []PopularQuery `json:"popular_queries" yaml:"popular_queries"`
	FaceEntries    int64          `json:"face_cache_entries" yaml:"face_cache_entries"`
	FacesDetected  int64          `json:"faces_detected" yaml:"faces_detected"`
	GenderEntries  int64          `json:"gender_cache_entries" yaml:"gender_cache_entries"`
	SizeBytes      int64          `json:"size_bytes" yaml:"size_bytes"`
	TTL            time.Duration  `json:"ttl" yaml:"ttl"`
}

// CacheEntryInfo describes one stored search result entry.
type CacheEntryInfo struct {
	Query       string     `json:"query" yaml:"query"`
	EntityType  EntityType `json:"entity_type" yaml:"entity_type"`
	Source      string     `json:"source" yaml:"source"`
	ResultCount int        `json:"result_count" yaml:"result_count"`
	CreatedAt   time.Time  `json:"created_at" yaml:"created_at"`
	ExpiresAt   time.Time  `json:"expires_at" yaml:"expires_at"`
	HitCount    int64      `json:"hit_count" yaml:"hit_count"`
}

// CacheKey derives the search-result cache key. Case and surrounding or
// repeated whitespace do not change the key.
func CacheKey(query string, entityType EntityType, source string) string {
	raw := fmt.Sprintf("%s:%s:%s",
		strings.ToLower(strings.Join(strings.Fields(query), " ")),
		strings.ToLower(strings.TrimSpace(string(entityType))),
		strings.ToLower(strings.TrimSpace(source)),
	)
	sum := md5.Sum([]byte(raw)) //nolint:gosec // see import
	return hex.EncodeToString(sum[:])
}
