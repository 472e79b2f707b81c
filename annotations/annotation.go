// Package annotations defines bounding-box annotations and their on-disk
// forms.
package annotations

import (
	"encoding/json"
	"fmt"
	"image"

	"github.com/chewxy/math32"
)

// Box is an axis-aligned bounding box in original-image pixel
// coordinates. A well-formed box satisfies X1 < X2 and Y1 < Y2;
// Sanitized restores that after arbitrary edits.
type Box struct {
	X1, Y1, X2, Y2 float32
}

// NewBox returns a box from two corner coordinates.
func NewBox(x1, y1, x2, y2 float32) Box {
	return Box{X1: x1, Y1: y1, X2: x2, Y2: y2}
}

// FromRect converts an integral rectangle into a Box.
func FromRect(r image.Rectangle) Box {
	r = r.Canon()
	return Box{
		X1: float32(r.Min.X),
		Y1: float32(r.Min.Y),
		X2: float32(r.Max.X),
		Y2: float32(r.Max.Y),
	}
}

// Rect converts the box to an image.Rectangle. Coordinates are truncated,
// which is close enough for drawing and overlap checks.
func (b Box) Rect() image.Rectangle {
	return image.Rect(int(b.X1), int(b.Y1), int(b.X2), int(b.Y2)).Canon()
}

// Width returns X2-X1.
func (b Box) Width() float32 { return b.X2 - b.X1 }

// Height returns Y2-Y1.
func (b Box) Height() float32 { return b.Y2 - b.Y1 }

// Center returns the box midpoint.
func (b Box) Center() (float32, float32) {
	return (b.X1 + b.X2) / 2, (b.Y1 + b.Y2) / 2
}

// Translate returns the box moved by (dx, dy).
func (b Box) Translate(dx, dy float32) Box {
	return Box{X1: b.X1 + dx, Y1: b.Y1 + dy, X2: b.X2 + dx, Y2: b.Y2 + dy}
}

// Sanitized forces the box into a valid state for an imgW x imgH image.
// Applied after every drag update, in this order:
//
//  1. clamp all four coordinates to [0, imgW] / [0, imgH],
//  2. swap corners if the box is inverted,
//  3. if width or height collapsed to zero, nudge the edge by one pixel
//     (pull X1/Y1 in, unless it sits at 0, then push X2/Y2 out).
//
// Each coordinate clamps independently, so dragging a whole box against
// an image edge compresses it rather than stopping it.
func (b Box) Sanitized(imgW, imgH float32) Box {
	b.X1 = math32.Max(0, math32.Min(b.X1, imgW))
	b.Y1 = math32.Max(0, math32.Min(b.Y1, imgH))
	b.X2 = math32.Max(0, math32.Min(b.X2, imgW))
	b.Y2 = math32.Max(0, math32.Min(b.Y2, imgH))

	if b.X1 > b.X2 {
		b.X1, b.X2 = b.X2, b.X1
	}
	if b.Y1 > b.Y2 {
		b.Y1, b.Y2 = b.Y2, b.Y1
	}

	if b.X1 == b.X2 {
		if b.X1 > 0 {
			b.X1--
		} else {
			b.X2++
		}
	}
	if b.Y1 == b.Y2 {
		if b.Y1 > 0 {
			b.Y1--
		} else {
			b.Y2++
		}
	}

	return b
}

// MarshalJSON encodes the box as the compact array form [x1, y1, x2, y2]
// used by project files.
func (b Box) MarshalJSON() ([]byte, error) {
	return json.Marshal([4]float32{b.X1, b.Y1, b.X2, b.Y2})
}

// UnmarshalJSON decodes the [x1, y1, x2, y2] array form.
func (b *Box) UnmarshalJSON(data []byte) error {
	var coords []float32
	if err := json.Unmarshal(data, &coords); err != nil {
		return err
	}
	if len(coords) != 4 {
		return fmt.Errorf("box requires 4 coordinates, got %d", len(coords))
	}
	b.X1, b.Y1, b.X2, b.Y2 = coords[0], coords[1], coords[2], coords[3]
	return nil
}

// Annotation is one detected or user-edited bounding box on one image.
//
// ClassName is authoritative: ClassID is the taxonomy index at the time
// the annotation was written and is recomputed from the current taxonomy
// whenever it matters (export, class edits). Confidence is zero for boxes
// the user drew or reshaped by hand; it is omitted from JSON in that
// case.
type Annotation struct {
	Box        Box     `json:"box"`
	Confidence float32 `json:"confidence,omitempty"`
	ClassID    int     `json:"class_id"`
	ClassName  string  `json:"class"`
}

// String formats the annotation for logs.
func (a Annotation) String() string {
	return fmt.Sprintf("%s (%.2f): (%.1f, %.1f)-(%.1f, %.1f)",
		a.ClassName, a.Confidence, a.Box.X1, a.Box.Y1, a.Box.X2, a.Box.Y2)
}

// Clone returns a deep copy of the annotation list. Stores hand out
// clones so callers can never mutate cached state in place.
func Clone(anns []Annotation) []Annotation {
	if anns == nil {
		return nil
	}
	out := make([]Annotation, len(anns))
	copy(out, anns)
	return out
}
