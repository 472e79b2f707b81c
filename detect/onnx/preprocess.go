package onnx

import (
	"image"

	"github.com/nfnt/resize"
)

// letterboxParams records how an image was fitted into the square model
// input, so detections can be mapped back to original pixel space.
type letterboxParams struct {
	originalW int
	originalH int
	scale     float32
	padLeft   int
	padTop    int
}

// letterboxFill is the pad value YOLO models are trained with.
const letterboxFill float32 = 114.0 / 255.0

// letterbox scales img to fit a size x size square preserving aspect
// ratio, centers it on a gray canvas and writes the result into dst as
// a CHW float32 tensor normalized to [0,1]. dst must hold 3*size*size
// values.
func letterbox(img image.Image, size int, dst []float32) letterboxParams {
	bounds := img.Bounds()
	w := bounds.Dx()
	h := bounds.Dy()

	scaleX := float32(size) / float32(w)
	scaleY := float32(size) / float32(h)
	scale := scaleX
	if scaleY < scale {
		scale = scaleY
	}

	newW := int(float32(w) * scale)
	newH := int(float32(h) * scale)
	if newW < 1 {
		newW = 1
	}
	if newH < 1 {
		newH = 1
	}
	padLeft := (size - newW) / 2
	padTop := (size - newH) / 2

	scaled := resize.Resize(uint(newW), uint(newH), img, resize.Bilinear)

	area := size * size
	for i := range dst[:3*area] {
		dst[i] = letterboxFill
	}

	sb := scaled.Bounds()
	for y := 0; y < newH; y++ {
		row := (padTop + y) * size
		for x := 0; x < newW; x++ {
			r, g, b, _ := scaled.At(sb.Min.X+x, sb.Min.Y+y).RGBA()
			idx := row + padLeft + x
			dst[idx] = float32(r>>8) / 255.0
			dst[area+idx] = float32(g>>8) / 255.0
			dst[2*area+idx] = float32(b>>8) / 255.0
		}
	}

	return letterboxParams{
		originalW: w,
		originalH: h,
		scale:     scale,
		padLeft:   padLeft,
		padTop:    padTop,
	}
}
