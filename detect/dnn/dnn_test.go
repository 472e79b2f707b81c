package dnn

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssembleDetections(t *testing.T) {
	bounds := image.Rect(0, 0, 640, 480)
	boxes := []image.Rectangle{
		image.Rect(10, 10, 100, 100),
		image.Rect(-20, -20, 50, 50),
		image.Rect(700, 400, 800, 500),
		image.Rect(200, 200, 300, 300),
	}
	scores := []float32{0.9, 0.8, 0.7, 0.6}
	classIDs := []int{0, 2, 16, 999}

	dets := assembleDetections(boxes, scores, classIDs, []int{0, 1, 2, 3}, bounds)
	require.Len(t, dets, 3, "the box entirely outside the image is dropped")

	assert.Equal(t, image.Rect(10, 10, 100, 100), dets[0].Box)
	assert.Equal(t, "person", dets[0].ClassName)

	assert.Equal(t, image.Rect(0, 0, 50, 50), dets[1].Box, "box clamped at the origin")
	assert.Equal(t, "car", dets[1].ClassName)

	assert.Equal(t, "unknown_999", dets[2].ClassName, "out of range class id keeps a sentinel name")
}

func TestAssembleDetectionsRespectsSuppression(t *testing.T) {
	bounds := image.Rect(0, 0, 640, 480)
	boxes := []image.Rectangle{
		image.Rect(10, 10, 100, 100),
		image.Rect(12, 12, 102, 102),
	}
	scores := []float32{0.9, 0.5}
	classIDs := []int{0, 0}

	dets := assembleDetections(boxes, scores, classIDs, []int{0}, bounds)
	require.Len(t, dets, 1, "only suppression survivors are assembled")
	assert.InDelta(t, 0.9, dets[0].Confidence, 1e-6)
}

func TestAssembleDetectionsIgnoresBadIndices(t *testing.T) {
	bounds := image.Rect(0, 0, 640, 480)
	boxes := []image.Rectangle{image.Rect(10, 10, 100, 100)}

	dets := assembleDetections(boxes, []float32{0.9}, []int{0}, []int{-1, 5, 0}, bounds)
	assert.Len(t, dets, 1, "indices outside the candidate list are skipped")
}
