// Package render draws annotated previews: class-colored boxes and name
// captions burned into a copy of the source image, the sanity-check
// artifact reviewers skim after an export.
package render

import (
	"fmt"
	"image"
	gocolor "image/color"

	"gocv.io/x/gocv"

	"github.com/nvr-ai/go-annotate/annotations"
	"github.com/nvr-ai/go-annotate/colors"
)

// ColorFunc resolves a class name to its palette color. A miss falls
// back to green.
type ColorFunc func(name string) (colors.RGB, bool)

var fallbackColor = colors.RGB{0, 255, 0}

const (
	boxThickness     = 2
	captionScale     = 0.9
	captionOffsetY   = 10
	fillThickness    = 2
	outlineThickness = 1
)

// Annotate reads the image at srcPath, draws every annotation onto it
// and writes the result as JPEG to dstPath. Caption text is drawn twice,
// a thick pass in the class color under a thin pass in black or white
// picked by the class color's luminance.
func Annotate(srcPath string, anns []annotations.Annotation, colorFor ColorFunc, dstPath string) error {
	mat := gocv.IMRead(srcPath, gocv.IMReadColor)
	if mat.Empty() {
		return fmt.Errorf("read image %s", srcPath)
	}
	defer mat.Close()

	for _, ann := range anns {
		c := fallbackColor
		if colorFor != nil {
			if got, ok := colorFor(ann.ClassName); ok {
				c = got
			}
		}
		boxColor := gocolor.RGBA{R: c.R(), G: c.G(), B: c.B(), A: 255}

		rect := ann.Box.Rect()
		gocv.Rectangle(&mat, rect, boxColor, boxThickness)

		textColor := gocolor.RGBA{A: 255} // black
		if c.Luminance() <= 127 {
			textColor = gocolor.RGBA{R: 255, G: 255, B: 255, A: 255}
		}
		origin := image.Pt(rect.Min.X, rect.Min.Y-captionOffsetY)
		gocv.PutText(&mat, ann.ClassName, origin, gocv.FontHersheySimplex, captionScale, boxColor, fillThickness)
		gocv.PutText(&mat, ann.ClassName, origin, gocv.FontHersheySimplex, captionScale, textColor, outlineThickness)
	}

	if ok := gocv.IMWrite(dstPath, mat); !ok {
		return fmt.Errorf("write preview %s", dstPath)
	}
	return nil
}
