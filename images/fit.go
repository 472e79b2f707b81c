package images

import (
	"image"

	"github.com/nfnt/resize"
)

// FitWithin returns the largest dimensions with the same aspect ratio as
// (w, h) that fit inside (maxW, maxH). Small images scale up; this is
// display-fit math, not thumbnailing.
func FitWithin(w, h, maxW, maxH int) (int, int) {
	if w <= 0 || h <= 0 || maxW <= 0 || maxH <= 0 {
		return 0, 0
	}

	scaleX := float64(maxW) / float64(w)
	scaleY := float64(maxH) / float64(h)
	scale := scaleX
	if scaleY < scale {
		scale = scaleY
	}

	fw := int(float64(w) * scale)
	fh := int(float64(h) * scale)
	if fw < 1 {
		fw = 1
	}
	if fh < 1 {
		fh = 1
	}
	return fw, fh
}

// ScaleTo resizes img to exactly (w, h).
func ScaleTo(img image.Image, w, h int) image.Image {
	return resize.Resize(uint(w), uint(h), img, resize.Lanczos3)
}

// Thumbnail scales img down to fit within (maxW, maxH), preserving
// aspect ratio and never upscaling.
func Thumbnail(img image.Image, maxW, maxH int) image.Image {
	return resize.Thumbnail(uint(maxW), uint(maxH), img, resize.Lanczos3)
}
