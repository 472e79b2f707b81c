package onnx

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nvr-ai/go-annotate/detect"
)

func TestCandidateCount(t *testing.T) {
	tests := []struct {
		size int
		want int
	}{
		{640, 8400},
		{416, 3549},
		{320, 2100},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, candidateCount(tt.size), "candidate count for input size %d", tt.size)
	}
}

func solidImage(w, h int, c color.RGBA) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

func TestLetterboxWideImage(t *testing.T) {
	img := solidImage(100, 50, color.RGBA{R: 255, A: 255})
	size := 64
	dst := make([]float32, 3*size*size)

	lb := letterbox(img, size, dst)

	assert.Equal(t, 100, lb.originalW, "original width preserved")
	assert.Equal(t, 50, lb.originalH, "original height preserved")
	assert.InDelta(t, 0.64, lb.scale, 1e-6, "scale limited by the wider axis")
	assert.Equal(t, 0, lb.padLeft, "wide image needs no horizontal pad")
	assert.Equal(t, 16, lb.padTop, "vertical pad centers the image")

	area := size * size
	// Top-left corner is padding.
	assert.InDelta(t, letterboxFill, dst[0], 1e-6, "pad rows carry the gray fill")
	// Center pixel carries the red content.
	center := (size/2)*size + size/2
	assert.InDelta(t, 1.0, dst[center], 1e-3, "red channel of content")
	assert.InDelta(t, 0.0, dst[area+center], 1e-3, "green channel of content")
	assert.InDelta(t, 0.0, dst[2*area+center], 1e-3, "blue channel of content")
}

func TestLetterboxTallImage(t *testing.T) {
	img := solidImage(50, 100, color.RGBA{G: 255, A: 255})
	size := 64
	dst := make([]float32, 3*size*size)

	lb := letterbox(img, size, dst)

	assert.Equal(t, 16, lb.padLeft, "horizontal pad centers the image")
	assert.Equal(t, 0, lb.padTop, "tall image needs no vertical pad")
	assert.InDelta(t, 0.64, lb.scale, 1e-6, "scale limited by the taller axis")
}

// synthOutput builds a flattened [1, 4+classes, n] tensor with every
// score zeroed.
func synthOutput(n int) []float32 {
	return make([]float32, (4+len(detect.COCONames))*n)
}

func setCandidate(out []float32, n, i int, cx, cy, w, h float32, classID int, score float32) {
	out[i] = cx
	out[n+i] = cy
	out[2*n+i] = w
	out[3*n+i] = h
	out[(4+classID)*n+i] = score
}

func TestDecodeOutput(t *testing.T) {
	lb := letterboxParams{originalW: 640, originalH: 640, scale: 1, padLeft: 0, padTop: 0}
	opts := detect.Options{ConfidenceThreshold: 0.25, NMSThreshold: 0.45}

	out := synthOutput(3)
	setCandidate(out, 3, 0, 320, 320, 100, 100, 0, 0.9)
	setCandidate(out, 3, 1, 100, 100, 40, 40, 2, 0.1) // below threshold
	setCandidate(out, 3, 2, 500, 200, 60, 80, 16, 0.6)

	dets := decodeOutput(out, lb, opts)
	require.Len(t, dets, 2, "one candidate is below the confidence threshold")

	assert.Equal(t, image.Rect(270, 270, 370, 370), dets[0].Box, "center form converted to corners")
	assert.Equal(t, "person", dets[0].ClassName, "class id resolved to a name")
	assert.InDelta(t, 0.9, dets[0].Confidence, 1e-6, "confidence carried through")
	assert.Equal(t, "dog", dets[1].ClassName, "second surviving candidate")
}

func TestDecodeOutputUnletterboxes(t *testing.T) {
	// A 1280x960 source fitted into 640: scale 0.5, 480 content rows,
	// 80 pad rows above and below.
	lb := letterboxParams{originalW: 1280, originalH: 960, scale: 0.5, padLeft: 0, padTop: 80}
	opts := detect.Options{ConfidenceThreshold: 0.25, NMSThreshold: 0.45}

	out := synthOutput(1)
	setCandidate(out, 1, 0, 320, 320, 100, 100, 0, 0.8)

	dets := decodeOutput(out, lb, opts)
	require.Len(t, dets, 1)
	assert.Equal(t, image.Rect(540, 380, 740, 580), dets[0].Box, "pad removed and scale inverted")
}

func TestDecodeOutputClampsToImage(t *testing.T) {
	lb := letterboxParams{originalW: 640, originalH: 640, scale: 1, padLeft: 0, padTop: 0}
	opts := detect.Options{ConfidenceThreshold: 0.25, NMSThreshold: 0.45}

	out := synthOutput(1)
	setCandidate(out, 1, 0, 10, 10, 60, 60, 0, 0.7)

	dets := decodeOutput(out, lb, opts)
	require.Len(t, dets, 1)
	assert.Equal(t, image.Rect(0, 0, 40, 40), dets[0].Box, "box clipped at the image border")
}

func TestSuppressOverlaps(t *testing.T) {
	base := image.Rect(100, 100, 200, 200)
	nearly := image.Rect(105, 105, 205, 205)

	t.Run("same class collapses to the best box", func(t *testing.T) {
		dets := []detect.Detection{
			{Box: base, Confidence: 0.6, ClassID: 0, ClassName: "person"},
			{Box: nearly, Confidence: 0.9, ClassID: 0, ClassName: "person"},
		}
		kept := suppressOverlaps(dets, 0.45)
		require.Len(t, kept, 1)
		assert.InDelta(t, 0.9, kept[0].Confidence, 1e-6, "higher scored box wins")
	})

	t.Run("different classes both survive", func(t *testing.T) {
		dets := []detect.Detection{
			{Box: base, Confidence: 0.6, ClassID: 0, ClassName: "person"},
			{Box: nearly, Confidence: 0.9, ClassID: 16, ClassName: "dog"},
		}
		kept := suppressOverlaps(dets, 0.45)
		assert.Len(t, kept, 2, "suppression is class aware")
	})

	t.Run("disjoint boxes both survive", func(t *testing.T) {
		dets := []detect.Detection{
			{Box: base, Confidence: 0.6, ClassID: 0},
			{Box: image.Rect(400, 400, 500, 500), Confidence: 0.9, ClassID: 0},
		}
		kept := suppressOverlaps(dets, 0.45)
		assert.Len(t, kept, 2, "no overlap means no suppression")
	})
}

func TestIoU(t *testing.T) {
	a := image.Rect(0, 0, 100, 100)

	assert.InDelta(t, 1.0, iou(a, a), 1e-6, "identical boxes")
	assert.InDelta(t, 0.0, iou(a, image.Rect(200, 200, 300, 300)), 1e-6, "disjoint boxes")

	// Half-width overlap: intersection 50*100, union 100*100*2 - 5000.
	b := image.Rect(50, 0, 150, 100)
	assert.InDelta(t, 5000.0/15000.0, iou(a, b), 1e-6, "partial overlap")
}
