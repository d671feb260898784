package openimage

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"time"
)

// FaceFilter decides whether an image shows at least one usable face.
type FaceFilter struct {
	detector      FaceDetector
	cache         ResultCache
	dl            *Downloader
	minConfidence float64
	minFraction   float64
	timeout       time.Duration
	onPanic       func(string, any)
}

// NewFaceFilter builds a face filter from cfg. It returns nil when face
// detection is disabled or no detector is configured.
func NewFaceFilter(cfg *Config) *FaceFilter {
	cfg.defaults()
	if !cfg.EnableFaceDetection || cfg.FaceDetector == nil {
		return nil
	}
	return &FaceFilter{
		detector:      cfg.FaceDetector,
		cache:         cfg.Cache,
		dl:            cfg.NewDownloader(),
		minConfidence: cfg.MinFaceConfidence,
		minFraction:   cfg.MinFaceFraction,
		timeout:       cfg.ClassifyTimeout,
		onPanic:       cfg.OnPanic,
	}
}

// Available reports whether the filter can run.
func (f *FaceFilter) Available() bool { return f != nil && f.detector != nil }

// Detect reports whether the image at imageURL contains a face. Successful
// results are cached per URL. On any failure it returns a zero FaceResult and
// the error; failures are never cached.
func (f *FaceFilter) Detect(ctx context.Context, imageURL string) (FaceResult, error) {
	if !f.Available() {
		return FaceResult{}, fmt.Errorf("openimage: face detection unavailable")
	}

	if f.cache != nil {
		if r, ok := f.cache.GetFace(ctx, imageURL); ok {
			return r, nil
		}
	}

	_, img, err := f.dl.DownloadImage(ctx, imageURL)
	if err != nil {
		return FaceResult{}, err
	}

	boxes, oc, err := runIsolated(ctx, f.timeout, "faceDetection", f.onPanic,
		func(ctx context.Context) ([]FaceBox, error) {
			return f.detector.DetectFaces(ctx, img)
		})
	if oc != outcomeSuccess {
		slog.Debug("openimage: face detection failed", "url", imageURL, "outcome", oc.String(), "error", err)
		return FaceResult{}, err
	}

	n := f.countFaces(img.Bounds(), boxes)
	r := FaceResult{HasFace: n > 0, FaceCount: n}
	if f.cache != nil {
		f.cache.SetFace(ctx, imageURL, r)
	}
	return r, nil
}

// countFaces counts boxes that are large and confident enough. A zero
// confidence means the backend does not report one.
func (f *FaceFilter) countFaces(bounds image.Rectangle, boxes []FaceBox) int {
	w, h := float64(bounds.Dx()), float64(bounds.Dy())
	n := 0
	for _, b := range boxes {
		if w <= 0 || h <= 0 {
			continue
		}
		if float64(b.Width)/w < f.minFraction || float64(b.Height)/h < f.minFraction {
			continue
		}
		if b.Confidence > 0 && b.Confidence < f.minConfidence {
			continue
		}
		n++
	}
	return n
}
