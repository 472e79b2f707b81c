// Package project owns the persistent annotation project document: image
// paths, label taxonomy, per-image annotation records and the batch
// resume cursor.
package project

import (
	"github.com/nvr-ai/go-annotate/annotations"
	"github.com/nvr-ai/go-annotate/colors"
)

// DefaultClassNames seeds new projects. The entries are the leading
// classes of the COCO label set, which covers the common case of
// annotating street/vehicle footage out of the box.
var DefaultClassNames = []string{
	"person", "bicycle", "car", "motorcycle", "airplane", "bus",
	"train", "truck", "boat", "traffic light",
}

// Project is the serialized project document. ClassColors is index
// aligned with ClassNames at all times. Annotations maps image path to
// that image's record; a present-but-empty record means the image was
// processed and nothing was found. Pixel data is never part of the
// document.
type Project struct {
	Name               string                              `json:"name"`
	ImageDir           string                              `json:"image_dir"`
	ModelPath          string                              `json:"model_path"`
	OutputDir          string                              `json:"output_dir"`
	ClassNames         []string                            `json:"class_names"`
	ClassColors        []colors.RGB                        `json:"class_colors"`
	LastProcessedIndex int                                 `json:"last_processed_index"`
	ImagePaths         []string                            `json:"image_paths"`
	Annotations        map[string][]annotations.Annotation `json:"annotations"`
}
