// Package detect defines the detector boundary the batch pipeline
// consumes, plus the registry through which model-runtime backends
// plug in.
package detect

import (
	"context"
	"image"
)

// Detection is one object found in one image, in original-image pixel
// coordinates.
type Detection struct {
	Box        image.Rectangle
	Confidence float32
	ClassID    int
	ClassName  string
}

// Detector runs object detection over single images. Implementations
// are stateful runtime sessions: load once, Infer many times strictly
// sequentially, Close on shutdown. Any Infer error is a single-image
// failure to the caller, never a session fault.
type Detector interface {
	Infer(ctx context.Context, img image.Image) ([]Detection, error)
	Close() error
}
