package editor

import (
	"github.com/nvr-ai/go-annotate/annotations"
	"github.com/nvr-ai/go-annotate/images"
)

// Point is a position on the display surface, in display pixels.
type Point struct {
	X float32
	Y float32
}

// Pt is shorthand for Point{x, y}.
func Pt(x, y float32) Point { return Point{X: x, Y: y} }

// Viewport maps between image pixel space and a display surface that
// shows the image aspect-fitted and centered. The fitted region uses
// the same math as images.FitWithin; the rest of the surface is dead
// border.
type Viewport struct {
	ImageW float32
	ImageH float32

	scaleX float32
	scaleY float32
	offX   float32
	offY   float32
}

// NewViewport builds the mapping for an imageW x imageH image shown on
// a surfaceW x surfaceH surface. Degenerate dimensions produce an
// identity mapping.
func NewViewport(imageW, imageH, surfaceW, surfaceH int) Viewport {
	v := Viewport{
		ImageW: float32(imageW),
		ImageH: float32(imageH),
		scaleX: 1,
		scaleY: 1,
	}
	if imageW <= 0 || imageH <= 0 || surfaceW <= 0 || surfaceH <= 0 {
		return v
	}

	fitW, fitH := images.FitWithin(imageW, imageH, surfaceW, surfaceH)
	v.scaleX = float32(fitW) / float32(imageW)
	v.scaleY = float32(fitH) / float32(imageH)
	v.offX = float32(surfaceW-fitW) / 2
	v.offY = float32(surfaceH-fitH) / 2
	return v
}

// ToImage converts a display point to image pixel coordinates.
func (v Viewport) ToImage(p Point) Point {
	return Point{
		X: (p.X - v.offX) / v.scaleX,
		Y: (p.Y - v.offY) / v.scaleY,
	}
}

// ToDisplay converts an image-space point to display coordinates.
func (v Viewport) ToDisplay(p Point) Point {
	return Point{
		X: p.X*v.scaleX + v.offX,
		Y: p.Y*v.scaleY + v.offY,
	}
}

// BoxToDisplay returns the display-space corners of an image-space box.
func (v Viewport) BoxToDisplay(b annotations.Box) (tl, br Point) {
	tl = v.ToDisplay(Point{X: b.X1, Y: b.Y1})
	br = v.ToDisplay(Point{X: b.X2, Y: b.Y2})
	return tl, br
}
