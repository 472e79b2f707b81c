package annotations

import "fmt"

// YOLOLine renders one label-file line in YOLO text format:
// "class_id cx cy w h", with center and size normalized to [0,1] by the
// image dimensions and printed to six decimal places.
//
// Arguments:
//   - classID: taxonomy index to write (callers recompute this from the
//     current taxonomy, not from Annotation.ClassID).
//   - box: pixel-space box.
//   - imgW, imgH: dimensions of the image the box belongs to.
//
// Returns:
//   - The formatted line without a trailing newline.
func YOLOLine(classID int, box Box, imgW, imgH int) string {
	w := float32(imgW)
	h := float32(imgH)
	cx := (box.X1 + box.X2) / 2 / w
	cy := (box.Y1 + box.Y2) / 2 / h
	bw := (box.X2 - box.X1) / w
	bh := (box.Y2 - box.Y1) / h
	return fmt.Sprintf("%d %.6f %.6f %.6f %.6f", classID, cx, cy, bw, bh)
}
