// Package facedetect provides an openimage.FaceDetector backed by the pigo
// pixel-intensity-comparison cascade.
package facedetect

import (
	"context"
	"fmt"
	"image"
	"os"

	pigo "github.com/esimov/pigo/core"

	"github.com/anatolykoptev/go-openimage"
)

// Cascade search parameters.
const (
	minFaceSize  = 20
	shiftFactor  = 0.1
	scaleFactor  = 1.1
	iouThreshold = 0.2

	// qualityScale maps pigo's detection score onto 0..1; a score of 5,
	// the usual pigo acceptance threshold, becomes 0.5.
	qualityScale = 10.0
)

// Pigo detects frontal faces with a pre-trained pigo cascade.
// The unpacked cascade is read-only and safe for concurrent use.
type Pigo struct {
	classifier *pigo.Pigo
}

// LoadPigo reads and unpacks the cascade file at path.
func LoadPigo(path string) (*Pigo, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read cascade: %w", err)
	}
	return NewPigo(data)
}

// NewPigo unpacks a cascade from memory.
func NewPigo(cascade []byte) (p *Pigo, err error) {
	// Unpack indexes into the blob without bounds checks.
	defer func() {
		if r := recover(); r != nil {
			p, err = nil, fmt.Errorf("unpack cascade: corrupt data: %v", r)
		}
	}()
	c, err := pigo.NewPigo().Unpack(cascade)
	if err != nil {
		return nil, fmt.Errorf("unpack cascade: %w", err)
	}
	return &Pigo{classifier: c}, nil
}

// DetectFaces implements openimage.FaceDetector.
func (p *Pigo) DetectFaces(ctx context.Context, img image.Image) ([]openimage.FaceBox, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b := img.Bounds()
	rows, cols := b.Dy(), b.Dx()
	if rows == 0 || cols == 0 {
		return nil, nil
	}

	params := pigo.CascadeParams{
		MinSize:     minFaceSize,
		MaxSize:     max(rows, cols),
		ShiftFactor: shiftFactor,
		ScaleFactor: scaleFactor,
		ImageParams: pigo.ImageParams{
			Pixels: pigo.RgbToGrayscale(img),
			Rows:   rows,
			Cols:   cols,
			Dim:    cols,
		},
	}
	dets := p.classifier.RunCascade(params, 0)
	dets = p.classifier.ClusterDetections(dets, iouThreshold)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return toBoxes(dets), nil
}

func toBoxes(dets []pigo.Detection) []openimage.FaceBox {
	boxes := make([]openimage.FaceBox, 0, len(dets))
	for _, d := range dets {
		boxes = append(boxes, openimage.FaceBox{
			X:          d.Col - d.Scale/2,
			Y:          d.Row - d.Scale/2,
			Width:      d.Scale,
			Height:     d.Scale,
			Confidence: min(1, float64(d.Q)/qualityScale),
		})
	}
	return boxes
}

var _ openimage.FaceDetector = (*Pigo)(nil)
