package openimage

import (
	"context"
	"log/slog"
)

// StatusConfig echoes the tunables that affect results.
type StatusConfig struct {
	MaxResultsPerSource int `json:"max_results_per_source" yaml:"max_results_per_source"`
	MinImageWidth       int `json:"min_image_width" yaml:"min_image_width"`
	MinImageHeight      int `json:"min_image_height" yaml:"min_image_height"`
}

// Status describes what the Finder can do right now.
type Status struct {
	AvailableSources         []string     `json:"available_sources" yaml:"available_sources"`
	TotalSources             int          `json:"total_sources" yaml:"total_sources"`
	FaceDetectionEnabled     bool         `json:"face_detection_enabled" yaml:"face_detection_enabled"`
	FaceDetectionAvailable   bool         `json:"face_detection_available" yaml:"face_detection_available"`
	GenderFilteringEnabled   bool         `json:"gender_filtering_enabled" yaml:"gender_filtering_enabled"`
	GenderFilteringAvailable bool         `json:"gender_filtering_available" yaml:"gender_filtering_available"`
	CacheEnabled             bool         `json:"cache_enabled" yaml:"cache_enabled"`
	Config                   StatusConfig `json:"config" yaml:"config"`
	Cache                    *CacheStats  `json:"cache_stats,omitempty" yaml:"cache_stats,omitempty"`
}

// AvailableSources returns the names of the sources the Finder queries.
func (f *Finder) AvailableSources() []string {
	names := make([]string, 0, len(f.sources))
	for _, s := range f.sources {
		names = append(names, s.Name())
	}
	return names
}

// Status reports capabilities and cache statistics. A cache statistics
// failure is logged and leaves Cache nil.
func (f *Finder) Status(ctx context.Context) Status {
	st := Status{
		AvailableSources:         f.AvailableSources(),
		TotalSources:             f.configured,
		FaceDetectionEnabled:     f.cfg.EnableFaceDetection,
		FaceDetectionAvailable:   f.face.Available(),
		GenderFilteringEnabled:   f.cfg.EnableGenderFiltering,
		GenderFilteringAvailable: f.gender.Available(),
		CacheEnabled:             f.cfg.Cache != nil,
		Config: StatusConfig{
			MaxResultsPerSource: f.cfg.MaxResultsPerSource,
			MinImageWidth:       f.cfg.MinImageWidth,
			MinImageHeight:      f.cfg.MinImageHeight,
		},
	}
	if f.cfg.Cache != nil {
		stats, err := f.cfg.Cache.Stats(ctx)
		if err != nil {
			slog.Warn("openimage: cache stats failed", "error", err)
		} else {
			st.Cache = &stats
		}
	}
	return st
}

// Cache returns the configured result cache, or nil.
func (f *Finder) Cache() ResultCache { return f.cfg.Cache }
