package facedetect

import (
	"path/filepath"
	"testing"

	pigo "github.com/esimov/pigo/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anatolykoptev/go-openimage"
)

func TestToBoxes(t *testing.T) {
	t.Parallel()

	boxes := toBoxes([]pigo.Detection{
		{Row: 100, Col: 200, Scale: 60, Q: 7.5},
		{Row: 40, Col: 40, Scale: 20, Q: 25},
	})
	require.Len(t, boxes, 2)
	assert.Equal(t, openimage.FaceBox{X: 170, Y: 70, Width: 60, Height: 60, Confidence: 0.75}, boxes[0])
	assert.InDelta(t, 1.0, boxes[1].Confidence, 1e-9, "confidence is capped")
}

func TestLoadPigo_Errors(t *testing.T) {
	t.Parallel()

	_, err := LoadPigo(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)

	_, err = NewPigo([]byte{1, 2, 3})
	assert.Error(t, err)
}
